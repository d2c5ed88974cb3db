package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/preconsulta/intake-platform/internal/accounts"
	httpmiddleware "github.com/preconsulta/intake-platform/internal/http/middleware"
	"github.com/preconsulta/intake-platform/internal/links"
	"github.com/preconsulta/intake-platform/internal/provisioning"
	"github.com/preconsulta/intake-platform/internal/responses"
	"github.com/preconsulta/intake-platform/internal/submissions"
	"github.com/preconsulta/intake-platform/internal/uploads"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LinksHandler       *links.Handler
	UploadsHandler     *uploads.Handler
	SubmitHandler      *submissions.Handler
	WebhookHandler     *provisioning.WebhookHandler
	ResponsesHandler   *responses.Handler
	ProfileHandler     *accounts.Handler
	WSHandler          *responses.WSHandler
	MetricsHandler     http.Handler
	DashboardJWTSecret string
	CORSAllowedOrigins []string
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

	// Public endpoints (patient form, webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		public.Route("/form", func(r chi.Router) {
			r.Post("/verify-link", cfg.LinksHandler.VerifyLink)
			r.Post("/upload-url", cfg.UploadsHandler.IssueUploadURL)
			r.Post("/register-file", cfg.UploadsHandler.RegisterFile)
			r.Post("/submit", cfg.SubmitHandler.Submit)
		})
		if cfg.WebhookHandler != nil {
			public.Post("/webhooks/hotmart", cfg.WebhookHandler.Handle)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Clinician dashboard (protected by JWT)
	if cfg.DashboardJWTSecret != "" {
		r.Route("/dashboard", func(dash chi.Router) {
			dash.Use(httpmiddleware.ClinicianJWT(cfg.DashboardJWTSecret))
			dash.Get("/responses", cfg.ResponsesHandler.List)
			dash.Post("/responses/{id}/files", cfg.ResponsesHandler.ListFiles)
			dash.Patch("/responses/{id}/reviewed", cfg.ResponsesHandler.MarkReviewed)
			dash.Delete("/responses/{id}", cfg.ResponsesHandler.Delete)
			dash.Post("/links", cfg.LinksHandler.CreateLink)
			dash.Get("/links", cfg.LinksHandler.ListLinks)
			if cfg.ProfileHandler != nil {
				dash.Get("/profile", cfg.ProfileHandler.Profile)
			}
			if cfg.WSHandler != nil {
				dash.Get("/ws", cfg.WSHandler.Serve)
			}
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status": "ok"}`))
}
