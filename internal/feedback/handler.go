package feedback

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cleaningpros/review-funnel/internal/web"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

const maxBodyBytes = 64 << 10

// HandlerConfig carries the page settings.
type HandlerConfig struct {
	SiteURL   string
	Countdown time.Duration
}

// Handler serves the feedback page and its submit endpoint.
type Handler struct {
	service  *Service
	renderer *web.Renderer
	siteURL  string
	redirect string
	seconds  int
	logger   *logging.Logger
}

func NewHandler(service *Service, renderer *web.Renderer, cfg HandlerConfig, logger *logging.Logger) *Handler {
	if service == nil {
		panic("feedback: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	seconds := int(cfg.Countdown / time.Second)
	if seconds <= 0 {
		seconds = 5
	}
	site := strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/")
	if site == "" {
		site = web.DefaultSiteURL
	}
	return &Handler{
		service:  service,
		renderer: renderer,
		siteURL:  site,
		redirect: site + "/",
		seconds:  seconds,
		logger:   logger,
	}
}

type pageData struct {
	BookingNumber string
	Name          string
	Email         string
	Options       []Option
	SubmitURL     string
	RedirectURL   string
	Countdown     int
}

// GetPage renders the feedback page, pre-filled from the booking when it
// resolves.
// GET /feedback?booking=
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	booking := strings.TrimSpace(r.URL.Query().Get("booking"))
	form := NewForm(booking, h.service.Prefill(r.Context(), booking))

	_ = h.renderer.Render(w, http.StatusOK, web.PageFeedback, web.Page{
		Meta: web.FeedbackMeta(h.siteURL),
		Data: pageData{
			BookingNumber: form.BookingNumber,
			Name:          form.Name,
			Email:         form.Email,
			Options:       Options,
			SubmitURL:     "/api/feedback",
			RedirectURL:   h.redirect,
			Countdown:     h.seconds,
		},
	})
}

type submitRequest struct {
	BookingNumber  string `json:"booking_number"`
	FeedbackOption string `json:"feedback_option"`
	Rating         int    `json:"rating"`
	Feedback       string `json:"feedback"`
	Name           string `json:"name"`
	Email          string `json:"email"`
}

type submitResponse struct {
	OK          bool   `json:"ok"`
	ID          string `json:"id,omitempty"`
	Error       string `json:"error,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Countdown   int    `json:"countdown,omitempty"`
}

// Submit stores one feedback entry. A zero rating takes the option's
// default.
// POST /api/feedback
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Error: "Invalid request."})
		return
	}

	form := NewForm(req.BookingNumber, nil)
	form.Name = strings.TrimSpace(req.Name)
	form.Email = strings.TrimSpace(req.Email)
	form.SetText(req.Feedback)

	if req.FeedbackOption != "" {
		if err := form.SelectOption(req.FeedbackOption); err != nil {
			writeJSON(w, http.StatusBadRequest, submitResponse{Error: submitMessage(err)})
			return
		}
	}
	if req.Rating != 0 {
		if err := form.SetRating(req.Rating); err != nil {
			writeJSON(w, http.StatusBadRequest, submitResponse{Error: submitMessage(err)})
			return
		}
	}

	entry, err := form.Submit(r.Context(), h.service)
	if err != nil {
		status := http.StatusInternalServerError
		if isValidation(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, submitResponse{Error: form.Error})
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		OK:          true,
		ID:          entry.ID,
		RedirectURL: h.redirect,
		Countdown:   h.seconds,
	})
}

func isValidation(err error) bool {
	return errors.Is(err, ErrOptionRequired) || errors.Is(err, ErrUnknownOption) || errors.Is(err, ErrInvalidRating)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
