package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/zoransi/split-laundry-express/internal/domain"
)

type CreateServiceRequest struct {
	Code          string  `json:"code" validate:"required,max=64"`
	Name          string  `json:"name" validate:"required,max=200"`
	Category      string  `json:"category" validate:"required,max=100"`
	Description   string  `json:"description" validate:"max=2000"`
	Price         float64 `json:"price" validate:"gte=0"`
	TimeRequired  int     `json:"time_required" validate:"gte=0"`
	IsEcoFriendly bool    `json:"is_eco_friendly"`
	ImageURL      string  `json:"image_url" validate:"omitempty,url"`
}

type UpdateServiceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available unavailable"`
}

type CreateImportTaskRequest struct {
	SpreadsheetID string `json:"spreadsheet_id" validate:"required"`
	CatalogName   string `json:"catalog_name" validate:"required"`
}

// listServicesHandler godoc
//
//	@Summary		List services
//	@Tags			services
//	@Produce		json
//	@Param			category	query		string	false	"Category"
//	@Param			eco			query		bool	false	"Eco friendly only"
//	@Param			max_price	query		number	false	"Maximum price"
//	@Param			available	query		bool	false	"Available only"
//	@Success		200			{array}		domain.Service
//	@Security		ApiKeyAuth
//	@Router			/services [get]
func (app *application) listServicesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.ServiceFilter{
		Category:      q.Get("category"),
		EcoFriendly:   q.Get("eco") == "true",
		OnlyAvailable: q.Get("available") == "true",
	}
	if raw := q.Get("max_price"); raw != "" {
		maxPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil || maxPrice < 0 {
			app.badRequestResponse(w, r, domain.ValidationError("max_price must be a non-negative number"))
			return
		}
		filter.MaxPrice = maxPrice
	}

	services, err := app.catalogService.ListServices(r.Context(), filter)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if services == nil {
		services = []domain.Service{}
	}

	if err := app.jsonRespone(w, http.StatusOK, services); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getServiceHandler godoc
//
//	@Summary		Get service
//	@Tags			services
//	@Produce		json
//	@Param			service_id	path		string	true	"Service ID"
//	@Success		200			{object}	domain.Service
//	@Failure		404			{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/services/{service_id} [get]
func (app *application) getServiceHandler(w http.ResponseWriter, r *http.Request) {
	svc, err := app.catalogService.GetService(r.Context(), chi.URLParam(r, "service_id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, svc); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createServiceHandler godoc
//
//	@Summary		Create service
//	@Tags			services
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateServiceRequest	true	"Service"
//	@Success		201		{object}	domain.Service
//	@Failure		400		{object}	map[string]string
//	@Failure		403		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/services [post]
func (app *application) createServiceHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	svc := &domain.Service{
		Code:          req.Code,
		Name:          req.Name,
		Category:      req.Category,
		Description:   req.Description,
		Price:         req.Price,
		TimeRequired:  req.TimeRequired,
		IsEcoFriendly: req.IsEcoFriendly,
		ImageURL:      req.ImageURL,
	}

	if err := app.catalogService.CreateService(r.Context(), svc); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusCreated, svc); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateServiceStatusHandler godoc
//
//	@Summary		Update service status
//	@Tags			services
//	@Accept			json
//	@Produce		json
//	@Param			service_id	path		string						true	"Service ID"
//	@Param			request		body		UpdateServiceStatusRequest	true	"Status"
//	@Success		200			{object}	map[string]string
//	@Failure		400			{object}	map[string]string
//	@Failure		404			{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/services/{service_id}/status [patch]
func (app *application) updateServiceStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateServiceStatusRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	serviceID := chi.URLParam(r, "service_id")
	if err := app.catalogService.UpdateServiceStatus(r.Context(), serviceID, domain.ServiceStatus(req.Status)); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	response := map[string]string{
		"id":     serviceID,
		"status": req.Status,
	}

	if err := app.jsonRespone(w, http.StatusOK, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createImportTaskHandler godoc
//
//	@Summary		Import catalog
//	@Description	Queues a catalog import from a Google spreadsheet
//	@Tags			services
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateImportTaskRequest	true	"Import request"
//	@Success		202		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/services/import [post]
func (app *application) createImportTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateImportTaskRequest
	if err := readJson(w, r, &req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(req); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	taskID, err := app.catalogService.CreateImportTask(r.Context(), req.SpreadsheetID, req.CatalogName)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	response := map[string]string{
		"task_id": taskID.Hex(),
		"status":  string(domain.ImportStatusQueued),
	}

	if err := app.jsonRespone(w, http.StatusAccepted, response); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getImportTaskHandler godoc
//
//	@Summary		Get import task
//	@Tags			services
//	@Produce		json
//	@Param			task_id	path		string	true	"Task ID"
//	@Success		200		{object}	domain.ImportTask
//	@Failure		404		{object}	map[string]string
//	@Security		ApiKeyAuth
//	@Router			/services/import/{task_id} [get]
func (app *application) getImportTaskHandler(w http.ResponseWriter, r *http.Request) {
	task, err := app.catalogService.GetImportTask(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonRespone(w, http.StatusOK, task); err != nil {
		app.internalServerError(w, r, err)
	}
}
