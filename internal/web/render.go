// Package web renders the server-side HTML pages. Every page shares the
// layout template and carries its own "content" block.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/http"

	"github.com/cleaningpros/review-funnel/pkg/logging"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Page names accepted by Render.
const (
	PageFeedback = "feedback"
	PageReview   = "review"
	PageAdmin    = "admin"
	PageRedirect = "redirect"
)

var pageNames = []string{PageFeedback, PageReview, PageAdmin, PageRedirect}

// Meta is the document head shared by every page.
type Meta struct {
	Title       string
	Description string
	Keywords    string
	Canonical   string
	SiteName    string
	SiteURL     string
	NoIndex     bool
	// Organization is emitted as JSON-LD when set.
	Organization *Organization
}

// Page is what the layout executes: the head plus page specific data.
type Page struct {
	Meta Meta
	Data any
}

// Renderer holds one compiled template set per page.
type Renderer struct {
	pages  map[string]*template.Template
	logger *logging.Logger
}

var funcs = template.FuncMap{
	"round": func(f float64) int { return int(math.Round(f)) },
	"stars": func(n int) []bool {
		out := make([]bool, 5)
		for i := range out {
			out[i] = i < n
		}
		return out
	},
}

// NewRenderer parses the embedded templates.
func NewRenderer(logger *logging.Logger) (*Renderer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames)), logger: logger}
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// MustRenderer is NewRenderer for package initialisation and tests.
func MustRenderer(logger *logging.Logger) *Renderer {
	r, err := NewRenderer(logger)
	if err != nil {
		panic(err)
	}
	return r
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("web: unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.logger.Error("render page failed", "page", name, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return fmt.Errorf("web: render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
