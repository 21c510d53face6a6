package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/haircarepro/haircarepro/internal/handler"
	"github.com/haircarepro/haircarepro/internal/middleware"
	"github.com/haircarepro/haircarepro/internal/render"
)

// RouterConfig collects everything the route table needs.
type RouterConfig struct {
	Logger         *slog.Logger
	Pages          *handler.Handler
	Health         *handler.HealthHandler
	Metrics        *handler.MetricsHandler
	Sessions       middleware.SessionLoader
	LoginRateLimit middleware.RateLimitConfig
	PDFDir         string
	MaxBodySize    int64
	IsDevelopment  bool
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	}

	// Probes and metrics sit outside the session layer.
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}

	r.Handle(render.PublicPrefix+"/*", http.StripPrefix(render.PublicPrefix+"/", handler.PDFs(cfg.PDFDir)))

	h := cfg.Pages
	limit := cfg.LoginRateLimit
	if limit.Logger == nil {
		limit.Logger = cfg.Logger
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(middleware.SessionConfig{Logger: cfg.Logger, Store: cfg.Sessions}))

		r.Get("/", h.Index)
		r.Get("/login", h.LoginPage)
		r.With(middleware.RateLimitLogin(limit)).Post("/login", h.Login)
		r.Get("/register", h.RegisterPage)
		r.Post("/register", h.Register)
		r.Get("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			r.Get("/survey", h.SurveyPage)
			r.Post("/survey", h.Survey)
			r.Get("/dashboard", h.Dashboard)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
