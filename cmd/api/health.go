package main

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	// LiveOrders is the number of orders with at least one live subscriber.
	LiveOrders int `json:"live_orders"`
}

// healthCheckHandler godoc
//
//	@Summary		Healthcheck
//	@Description	Reports storage and broker reachability and live channel usage
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]string)
	checks := map[string]func() error{
		"database": func() error { return app.storage.ping(r.Context()) },
		"queue":    app.broker.Ping,
	}

	healthy := true
	for name, check := range checks {
		services[name] = "ok"
		if err := check(); err != nil {
			app.logger.Warnw("health check failed", "service", name, "error", err)
			services[name] = "error"
			healthy = false
		}
	}

	response := HealthResponse{
		Status:     "healthy",
		Version:    version,
		Timestamp:  time.Now().UTC(),
		Services:   services,
		LiveOrders: app.hub.ActiveOrders(),
	}

	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	if err := writeJson(w, status, response); err != nil {
		app.internalServerError(w, r, err)
	}
}
