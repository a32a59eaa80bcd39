package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/auth"
	"github.com/zoransi/split-laundry-express/internal/broadcast"
	"github.com/zoransi/split-laundry-express/internal/queue"
	"github.com/zoransi/split-laundry-express/internal/ratelimiter"
	"github.com/zoransi/split-laundry-express/internal/service"
	"github.com/zoransi/split-laundry-express/internal/worker"
)

type application struct {
	config         config
	logger         *zap.SugaredLogger
	identity       auth.IdentityProvider
	rateLimiter    ratelimiter.Limiter
	registry       *prometheus.Registry
	storage        *storage
	broker         queue.Broker
	hub            *broadcast.Hub
	orderService   *service.OrderService
	catalogService *service.CatalogService
	statusWorker   *worker.OrderStatusWorker
	importWorker   *worker.CatalogImportWorker
}

type config struct {
	addr        string
	env         string
	apiURL      string
	store       string
	broker      string
	rateLimiter ratelimiter.Config
	mongo       mongoConfig
	rabbitMQ    rabbitMQConfig
	live        broadcast.HandlerConfig
	apiTokens   string
	googleCreds string
}

type mongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type rabbitMQConfig struct {
	URL           string
	MaxRetries    int
	RetryDelay    time.Duration
	PrefetchCount int
	DialTimeout   time.Duration
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.instrument)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))

		r.Group(func(r chi.Router) {
			r.Use(app.authenticate)
			r.Use(app.rateLimit)

			r.Method(http.MethodGet, "/live", broadcast.NewHandler(app.hub, app.orderService, app.config.live, app.logger))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", app.createOrderHandler)
				r.Get("/", app.listOrdersHandler)

				r.Route("/{order_id}", func(r chi.Router) {
					r.Get("/", app.getOrderHandler)
					r.With(app.requireAdmin).Put("/status", app.updateOrderStatusHandler)
					r.Post("/cancel", app.cancelOrderHandler)
					r.Get("/history", app.orderHistoryHandler)
					r.Post("/feedback", app.submitFeedbackHandler)
					r.Post("/payment", app.confirmPaymentHandler)
				})
			})

			r.Route("/services", func(r chi.Router) {
				r.Get("/", app.listServicesHandler)

				r.Group(func(r chi.Router) {
					r.Use(app.requireAdmin)
					r.Post("/", app.createServiceHandler)
					r.Patch("/{service_id}/status", app.updateServiceStatusHandler)
					r.Post("/import", app.createImportTaskHandler)
					r.Get("/import/{task_id}", app.getImportTaskHandler)
				})

				r.Get("/{service_id}", app.getServiceHandler)
			})
		})
	})

	return r
}

func (app *application) startWorkers() error {
	if app.statusWorker != nil {
		if err := app.statusWorker.Start(); err != nil {
			return fmt.Errorf("failed to start order status worker: %w", err)
		}
	}
	if app.importWorker != nil {
		if err := app.importWorker.Start(); err != nil {
			return fmt.Errorf("failed to start catalog import worker: %w", err)
		}
	}
	return nil
}

func (app *application) stopWorkers() {
	if app.statusWorker != nil {
		app.statusWorker.Stop()
	}
	if app.importWorker != nil {
		app.importWorker.Stop()
	}
}

func (app *application) run(mux http.Handler) error {
	if err := app.startWorkers(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		err := srv.Shutdown(ctx)

		app.stopWorkers()

		if app.broker != nil {
			if err := app.broker.Close(); err != nil {
				app.logger.Errorw("error closing broker", "error", err)
			} else {
				app.logger.Info("broker closed gracefully")
			}
		}

		if app.storage != nil {
			if err := app.storage.close(ctx); err != nil {
				app.logger.Errorw("error closing storage", "error", err)
			} else {
				app.logger.Info("storage closed gracefully")
			}
		}

		shutdown <- err
	}()

	app.logger.Infow("server have started", "addr", app.config.addr, "env", app.config.env, "version", version)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
