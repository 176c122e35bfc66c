package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cleaningpros/review-funnel/cmd/mainconfig"
	"github.com/cleaningpros/review-funnel/internal/admin"
	"github.com/cleaningpros/review-funnel/internal/api/router"
	"github.com/cleaningpros/review-funnel/internal/app/bootstrap"
	"github.com/cleaningpros/review-funnel/internal/clock"
	appconfig "github.com/cleaningpros/review-funnel/internal/config"
	"github.com/cleaningpros/review-funnel/internal/feedback"
	"github.com/cleaningpros/review-funnel/internal/funnel"
	httpmiddleware "github.com/cleaningpros/review-funnel/internal/http/middleware"
	"github.com/cleaningpros/review-funnel/internal/observability/metrics"
	"github.com/cleaningpros/review-funnel/internal/web"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

type appMetrics struct {
	handler  http.Handler
	http     *metrics.HTTPMetrics
	funnel   *metrics.FunnelMetrics
	feedback *metrics.FeedbackMetrics
}

func setupMetrics() appMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return appMetrics{
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		http:     metrics.NewHTTPMetrics(reg),
		funnel:   metrics.NewFunnelMetrics(reg),
		feedback: metrics.NewFeedbackMetrics(reg),
	}
}

// loadSESClient returns nil when SES is not going to be used or AWS config
// cannot be loaded; the alerter then falls back to another provider.
func loadSESClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *sesv2.Client {
	if !bootstrap.NeedsSES(cfg) {
		return nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("failed to load AWS config, SES alerts disabled", "error", err)
		return nil
	}
	return mainconfig.NewSESClient(awsCfg, cfg)
}

type app struct {
	handler  http.Handler
	manager  *funnel.Manager
	limiter  *httpmiddleware.RateLimiter
	closers  []func()
	durable  bool
	location int
}

func (a *app) Close() {
	a.manager.CloseAll()
	a.limiter.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	reg, err := bootstrap.BuildLocations(cfg, logger)
	if err != nil {
		return nil, err
	}
	tz := bootstrap.DisplayLocation(cfg, logger)
	m := setupMetrics()
	a := &app{location: reg.Len()}

	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
		checks["postgres"] = pool.Ping
	}
	stores := bootstrap.BuildStores(pool, logger)
	a.durable = stores.Durable

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	contacts := bootstrap.BuildContactLookup(stores.Bookings, redisClient, cfg.PrefillCacheTTL, logger.Component("bookings"))

	renderer, err := web.NewRenderer(logger.Component("web"))
	if err != nil {
		return nil, err
	}

	alerter := bootstrap.BuildAlerter(cfg, loadSESClient(ctx, cfg, logger), tz, logger.Component("notify"))
	feedbackSvc := feedback.NewService(stores.Feedback, contacts, alerter, m.feedback, logger.Component("feedback"))
	feedbackHandler := feedback.NewHandler(feedbackSvc, renderer, feedback.HandlerConfig{
		SiteURL:   cfg.PublicSiteURL,
		Countdown: cfg.FeedbackCountdown,
	}, logger.Component("feedback"))

	funnelLogger := logger.Component("funnel")
	a.manager = funnel.NewManager(funnel.Config{
		Locations:         reg,
		Reviews:           stores.Reviews,
		Clock:             clock.Real{},
		AdvanceDelay:      cfg.LocationAdvanceDelay,
		CompleteCountdown: cfg.CompleteCountdown,
		RedirectURL:       cfg.PublicSiteURL,
		Metrics:           m.funnel,
		Logger:            funnelLogger,
	})
	funnelHandler := funnel.NewHandler(a.manager, funnel.IdentityConfig{
		ClientID:   cfg.GoogleClientID,
		Timeout:    cfg.IdentityTimeout,
		AutoPrompt: true,
		Verifier:   bootstrap.BuildVerifier(cfg, logger),
	}, clock.Real{}, funnelLogger)

	dashboard := admin.NewDashboard(stores.Reviews, reg, cfg.AdminWindowLimit, tz, logger.Component("admin"))

	a.limiter = httpmiddleware.NewRateLimiter(cfg.FeedbackRateLimit, cfg.FeedbackRateBurst)
	a.handler = router.New(&router.Config{
		Logger:             logger,
		HTTPMetrics:        m.http,
		Renderer:           renderer,
		FeedbackHandler:    feedbackHandler,
		ReviewPage:         funnel.NewPageHandler(renderer, funnel.PageConfig{SiteURL: cfg.PublicSiteURL, RedirectURL: cfg.PublicSiteURL}, funnelLogger),
		FunnelHandler:      funnelHandler,
		AdminHandler:       admin.NewHandler(dashboard, renderer, logger.Component("admin")),
		HomeURL:            cfg.PublicSiteURL,
		MetricsHandler:     m.handler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		FeedbackLimiter:    a.limiter,
		HealthChecks:       checks,
	})
	return a, nil
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting review funnel server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	logger.Info("review funnel ready", "locations", a.location, "durable_store", a.durable, "sign_in_configured", cfg.GoogleClientID != "")

	// No write timeout: the funnel socket stays open for the whole visit.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Sessions first so open sockets stop their timers before the listener drains.
	a.manager.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	a.Close()
	logger.Info("server stopped")
}
