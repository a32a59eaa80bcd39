package parser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleSheetsParser reads a service catalog from a spreadsheet.
//
// The sheet has a header row followed by category rows (a single non-empty
// first cell) and service rows:
//
//	code | name | price | time required (hours) | eco friendly | description | image url
type GoogleSheetsParser struct {
	service   *sheets.Service
	readRange string
}

type Config struct {
	CredentialsJSON []byte
	ReadRange       string
}

func New(ctx context.Context, cfg Config) (*GoogleSheetsParser, error) {
	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(cfg.CredentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	readRange := cfg.ReadRange
	if readRange == "" {
		readRange = "A:G"
	}

	return &GoogleSheetsParser{
		service:   service,
		readRange: readRange,
	}, nil
}

func (p *GoogleSheetsParser) ParseCatalog(ctx context.Context, spreadsheetID string) ([]domain.Service, error) {
	resp, err := p.service.Spreadsheets.Values.Get(spreadsheetID, p.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	return ParseRows(resp.Values)
}

// ParseRows converts raw sheet values into catalog services.
func ParseRows(values [][]interface{}) ([]domain.Service, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no data found in spreadsheet")
	}

	var (
		services        []domain.Service
		currentCategory string
		seen            = make(map[string]int)
	)

	// skip header
	for i := 1; i < len(values); i++ {
		row := values[i]
		if len(row) == 0 || cell(row, 0) == "" {
			continue
		}

		// category row
		if len(row) == 1 || cell(row, 1) == "" {
			currentCategory = cell(row, 0)
			continue
		}

		if len(row) < 3 {
			return nil, fmt.Errorf("row %d: expected at least code, name and price", i+1)
		}

		price, err := strconv.ParseFloat(cell(row, 2), 64)
		if err != nil || price < 0 {
			return nil, fmt.Errorf("row %d: invalid price %q", i+1, cell(row, 2))
		}

		service := domain.Service{
			Code:          cell(row, 0),
			Name:          cell(row, 1),
			Category:      currentCategory,
			Price:         price,
			IsEcoFriendly: strings.EqualFold(cell(row, 4), "true"),
			Description:   cell(row, 5),
			ImageURL:      cell(row, 6),
			Status:        domain.ServiceStatusAvailable,
		}
		if hours := cell(row, 3); hours != "" {
			service.TimeRequired, err = strconv.Atoi(hours)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid time required %q", i+1, hours)
			}
		}

		// later rows win for duplicated codes
		if idx, ok := seen[service.Code]; ok {
			services[idx] = service
			continue
		}
		seen[service.Code] = len(services)
		services = append(services, service)
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no services found in spreadsheet")
	}

	return services, nil
}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[idx]))
}
