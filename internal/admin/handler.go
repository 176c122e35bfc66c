package admin

import (
	"encoding/json"
	"net/http"

	"github.com/cleaningpros/review-funnel/internal/web"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

// Handler serves the dashboard page and its JSON refresh endpoint.
type Handler struct {
	dashboard *Dashboard
	renderer  *web.Renderer
	logger    *logging.Logger
}

func NewHandler(dashboard *Dashboard, renderer *web.Renderer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{dashboard: dashboard, renderer: renderer, logger: logger}
}

type pageData struct {
	Snapshot
	RefreshURL string
}

// GetPage renders the dashboard.
// GET /google-review/admin
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	snap := h.dashboard.Load(r.Context())
	_ = h.renderer.Render(w, http.StatusOK, web.PageAdmin, web.Page{
		Meta: web.AdminMeta(),
		Data: pageData{Snapshot: snap, RefreshURL: "/google-review/admin/reviews.json"},
	})
}

// GetReviews returns the same snapshot as JSON for the refresh button. A
// failed fetch still answers 200 with stale set.
// GET /google-review/admin/reviews.json
func (h *Handler) GetReviews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dashboard.Load(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
