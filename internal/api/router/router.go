package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cleaningpros/review-funnel/internal/admin"
	"github.com/cleaningpros/review-funnel/internal/feedback"
	"github.com/cleaningpros/review-funnel/internal/funnel"
	httpmiddleware "github.com/cleaningpros/review-funnel/internal/http/middleware"
	"github.com/cleaningpros/review-funnel/internal/observability/metrics"
	"github.com/cleaningpros/review-funnel/internal/web"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger      *logging.Logger
	HTTPMetrics *metrics.HTTPMetrics
	Renderer    *web.Renderer

	FeedbackHandler *feedback.Handler
	ReviewPage      *funnel.PageHandler
	FunnelHandler   *funnel.Handler
	AdminHandler    *admin.Handler

	// HomeURL is where "/" sends visitors.
	HomeURL string

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	FeedbackLimiter    *httpmiddleware.RateLimiter
	HealthChecks       map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.HTTPMetrics))

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Renderer != nil && cfg.HomeURL != "" {
		r.Get("/", cfg.Renderer.RedirectPage(cfg.HomeURL, web.DefaultRedirectDelay))
	}

	// Pages
	r.Group(func(pages chi.Router) {
		pages.Use(middleware.Compress(5, "text/html"))
		if cfg.FeedbackHandler != nil {
			pages.Get("/feedback", cfg.FeedbackHandler.GetPage)
		}
		if cfg.ReviewPage != nil {
			pages.Get("/google-review", cfg.ReviewPage.GetPage)
		}
		if cfg.AdminHandler != nil {
			pages.Get("/google-review/admin", cfg.AdminHandler.GetPage)
		}
	})

	if cfg.AdminHandler != nil {
		r.Get("/google-review/admin/reviews.json", cfg.AdminHandler.GetReviews)
	}

	// The socket must not sit behind the compressor.
	if cfg.FunnelHandler != nil {
		r.Get("/google-review/ws", cfg.FunnelHandler.HandleWebSocket)
	}

	if cfg.FeedbackHandler != nil {
		r.Route("/api", func(api chi.Router) {
			if len(cfg.CORSAllowedOrigins) > 0 {
				api.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
			}
			api.Options("/feedback", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			submit := http.Handler(http.HandlerFunc(cfg.FeedbackHandler.Submit))
			if cfg.FeedbackLimiter != nil {
				submit = httpmiddleware.RateLimit(cfg.FeedbackLimiter)(submit)
			}
			api.Method(http.MethodPost, "/feedback", submit)
		})
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				resp["status"] = "degraded"
				resp[name] = err.Error()
				continue
			}
			resp[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
