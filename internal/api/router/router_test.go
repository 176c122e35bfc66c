package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleaningpros/review-funnel/internal/admin"
	"github.com/cleaningpros/review-funnel/internal/feedback"
	"github.com/cleaningpros/review-funnel/internal/funnel"
	httpmiddleware "github.com/cleaningpros/review-funnel/internal/http/middleware"
	"github.com/cleaningpros/review-funnel/internal/locations"
	"github.com/cleaningpros/review-funnel/internal/reviews"
	"github.com/cleaningpros/review-funnel/internal/web"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

const home = "https://www.cleaningprofessionals.com.au/"

type fixture struct {
	handler  http.Handler
	feedback *feedback.InMemoryRepository
	reviews  *reviews.InMemoryRepository
}

func newTestRouter(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	logger := logging.NewWithWriter(&bytes.Buffer{}, "error")
	renderer := web.MustRenderer(logger)
	reg := locations.Default()

	feedbackRepo := feedback.NewInMemoryRepository()
	feedbackSvc := feedback.NewService(feedbackRepo, nil, nil, nil, logger)
	reviewRepo := reviews.NewInMemoryRepository()

	manager := funnel.NewManager(funnel.Config{
		Locations:   reg,
		Reviews:     reviewRepo,
		RedirectURL: home,
		Logger:      logger,
	})

	cfg := &Config{
		Logger:          logger,
		Renderer:        renderer,
		FeedbackHandler: feedback.NewHandler(feedbackSvc, renderer, feedback.HandlerConfig{SiteURL: home, Countdown: 5 * time.Second}, logger),
		ReviewPage:      funnel.NewPageHandler(renderer, funnel.PageConfig{SiteURL: home, RedirectURL: home}, logger),
		FunnelHandler:   funnel.NewHandler(manager, funnel.IdentityConfig{}, nil, logger),
		AdminHandler:    admin.NewHandler(admin.NewDashboard(reviewRepo, reg, admin.DefaultLimit, time.UTC, logger), renderer, logger),
		HomeURL:         home,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return &fixture{handler: New(cfg), feedback: feedbackRepo, reviews: reviewRepo}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthEndpoint(t *testing.T) {
	f := newTestRouter(t, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterHealthReportsFailingDependency(t *testing.T) {
	f := newTestRouter(t, func(c *Config) {
		c.HealthChecks = map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}
	})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "ok", resp["postgres"])
	assert.Equal(t, "connection refused", resp["redis"])
}

func TestRouterPages(t *testing.T) {
	f := newTestRouter(t, nil)

	cases := map[string]string{
		"/feedback":            "Customer Feedback",
		"/google-review":       "Share Your Experience",
		"/google-review/admin": "Google Review Dashboard",
		"/":                    home,
	}
	for path, want := range cases {
		t.Run(path, func(t *testing.T) {
			rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), want)
		})
	}
}

func TestRouterFeedbackSubmit(t *testing.T) {
	f := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{"booking_number":"BK-9","feedback_option":"great","name":"Sam","email":"sam@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req)

	require.Equal(t, http.StatusCreated, rec.Code)
	entries := f.feedback.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "BK-9", entries[0].BookingNumber)
	assert.Equal(t, 5, entries[0].Rating)
}

func TestRouterFeedbackRateLimited(t *testing.T) {
	limiter := httpmiddleware.NewRateLimiter(0.001, 1)
	t.Cleanup(limiter.Close)
	f := newTestRouter(t, func(c *Config) { c.FeedbackLimiter = limiter })

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(`{"feedback_option":"ok"}`))
		req.RemoteAddr = "203.0.113.7:4000"
		return f.do(req).Code
	}

	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
	assert.Len(t, f.feedback.Entries(), 1)
}

func TestRouterFeedbackCORSPreflight(t *testing.T) {
	f := newTestRouter(t, func(c *Config) { c.CORSAllowedOrigins = []string{"https://www.cleaningprofessionals.com.au"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/feedback", nil)
	req.Header.Set("Origin", "https://www.cleaningprofessionals.com.au")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := f.do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://www.cleaningprofessionals.com.au", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterAdminJSON(t *testing.T) {
	f := newTestRouter(t, nil)
	_, err := f.reviews.Insert(context.Background(), &reviews.NewReviewIntent{
		CustomerName:  "Jane",
		CustomerEmail: "jane@example.com",
		Rating:        5,
		ReviewText:    "Sparkling bathrooms and a spotless oven.",
	})
	require.NoError(t, err)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/google-review/admin/reviews.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap admin.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Stats.Total)
	require.Len(t, snap.Rows, 1)
}

func TestRouterMetricsOnlyWhenConfigured(t *testing.T) {
	f := newTestRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)

	f = newTestRouter(t, func(c *Config) {
		c.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	})
	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}
