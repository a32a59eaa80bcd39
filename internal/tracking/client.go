package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/domain"
)

// Client fetches orders from the HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxElapsed time.Duration
	logger     *zap.SugaredLogger
}

func NewClient(baseURL, token string, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxElapsed: 30 * time.Second,
		logger:     logger,
	}
}

type orderEnvelope struct {
	Data  *domain.Order `json:"data"`
	Error string        `json:"error"`
}

// FetchOrder loads the current state of an order, retrying transient
// failures with exponential backoff.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order *domain.Order

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/api/v1/orders/%s", c.baseURL, url.PathEscape(orderID)), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		var envelope orderEnvelope
		_ = json.Unmarshal(body, &envelope)

		switch {
		case resp.StatusCode == http.StatusOK:
			if envelope.Data == nil {
				return backoff.Permanent(fmt.Errorf("failed to parse response: empty order"))
			}
			order = envelope.Data
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(domain.NotFoundError("order %s not found", orderID))
		case resp.StatusCode == http.StatusUnauthorized:
			return backoff.Permanent(domain.UnauthorizedError("%s", envelope.Error))
		case resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(domain.ForbiddenError("%s", envelope.Error))
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("server returned status %d: %s", resp.StatusCode, envelope.Error))
		}
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond
	expBackoff.MaxElapsedTime = c.maxElapsed

	err := backoff.RetryNotify(operation, backoff.WithContext(expBackoff, ctx), func(err error, d time.Duration) {
		c.logger.Warnw("fetching order failed, retrying", "order_id", orderID, "error", err, "retry_in", d)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}

	return order, nil
}
