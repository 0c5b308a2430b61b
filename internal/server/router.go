package server

import (
	"net/http"

	"github.com/cloo-solutions/tenderflow/internal/api"
	"github.com/cloo-solutions/tenderflow/internal/api/handlers"
	"github.com/cloo-solutions/tenderflow/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	WorkflowHandler *handlers.WorkflowHandler
	AnalysisHandler *handlers.AnalysisHandler
	Metrics         http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Create)
		r.Get("/", cfg.DocumentHandler.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", cfg.DocumentHandler.Get)

			r.Route("/workflow", func(r chi.Router) {
				r.Get("/", cfg.WorkflowHandler.Status)
				r.Post("/trigger", cfg.WorkflowHandler.Trigger)
				r.Post("/review", cfg.WorkflowHandler.Review)
				r.Post("/duplicate-override", cfg.WorkflowHandler.OverrideDuplicate)
				r.Post("/decision", cfg.WorkflowHandler.Decide)
			})

			r.Post("/analysis", cfg.AnalysisHandler.RunExperts)
			r.Post("/agents/{agent}", cfg.AnalysisHandler.RunAgent)
			r.Get("/evidence", cfg.AnalysisHandler.Evidence)
		})
	})

	return r
}
