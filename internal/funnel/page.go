package funnel

import (
	"net/http"

	"github.com/cleaningpros/review-funnel/internal/web"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

// DefaultButtonTarget is the element id the sign-in button renders into.
const DefaultButtonTarget = "google-signin-button"

// PageConfig describes the review page shell.
type PageConfig struct {
	SiteURL     string
	WSPath      string
	RedirectURL string
}

// PageHandler serves the review page. All state lives on the WebSocket.
type PageHandler struct {
	renderer *web.Renderer
	cfg      PageConfig
	logger   *logging.Logger
}

func NewPageHandler(renderer *web.Renderer, cfg PageConfig, logger *logging.Logger) *PageHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.WSPath == "" {
		cfg.WSPath = "/google-review/ws"
	}
	return &PageHandler{renderer: renderer, cfg: cfg, logger: logger}
}

type pageData struct {
	WSPath       string
	ButtonTarget string
	RedirectURL  string
}

func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page := web.Page{
		Meta: web.ReviewMeta(h.cfg.SiteURL),
		Data: pageData{
			WSPath:       h.cfg.WSPath,
			ButtonTarget: DefaultButtonTarget,
			RedirectURL:  h.cfg.RedirectURL,
		},
	}
	if err := h.renderer.Render(w, http.StatusOK, web.PageReview, page); err != nil {
		h.logger.Error("funnel: render review page", "error", err)
	}
}
