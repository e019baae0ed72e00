package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nicscott/assessment-reports/internal/generation"
	httpmiddleware "github.com/nicscott/assessment-reports/internal/http/middleware"
	"github.com/nicscott/assessment-reports/internal/render"
	"github.com/nicscott/assessment-reports/internal/submission"
	"github.com/nicscott/assessment-reports/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	SubmissionHandler *submission.Handler
	GenerationHandler *generation.Handler
	RenderHandler     *render.Handler
	MetricsHandler    http.Handler

	AdminAuthSecret    string
	CORSAllowedOrigins []string

	// Webhook rate limiting, requests/sec per IP. Zero disables it.
	WebhookRateLimit float64
	WebhookBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)

		if cfg.SubmissionHandler != nil {
			webhook := public
			if cfg.WebhookRateLimit > 0 {
				webhook = public.With(httpmiddleware.RateLimit(cfg.WebhookRateLimit, cfg.WebhookBurst))
			}
			webhook.Post("/webhooks/forms/submission", cfg.SubmissionHandler.Webhook)
		}

		if cfg.GenerationHandler != nil {
			public.Post("/ai-generate", cfg.GenerationHandler.Generate)
			public.Get("/ai-status", cfg.GenerationHandler.Status)
		}

		if cfg.RenderHandler != nil {
			public.Get("/reports/view", cfg.RenderHandler.View)
		}

		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin operational endpoints (protected by JWT)
	if cfg.AdminAuthSecret != "" && cfg.SubmissionHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/entries/simulate", cfg.SubmissionHandler.Simulate)
			admin.Post("/entries/{entryID}/reprocess", cfg.SubmissionHandler.Reprocess)
			admin.Post("/entries/{entryID}/fire-completed", cfg.SubmissionHandler.FireCompleted)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
