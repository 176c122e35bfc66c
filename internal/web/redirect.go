package web

import (
	"net/http"
	"time"
)

// DefaultRedirectDelay is how long the root page shows before leaving.
const DefaultRedirectDelay = 3 * time.Second

type redirectData struct {
	URL         string
	DelayMillis int64
}

// RedirectPage serves a short branded page that forwards the visitor to
// target after delay.
func (r *Renderer) RedirectPage(target string, delay time.Duration) http.HandlerFunc {
	if delay <= 0 {
		delay = DefaultRedirectDelay
	}
	data := redirectData{URL: siteBase(target) + "/", DelayMillis: delay.Milliseconds()}
	meta := Meta{Title: SiteName, SiteName: SiteName}
	return func(w http.ResponseWriter, req *http.Request) {
		_ = r.Render(w, http.StatusOK, PageRedirect, Page{Meta: meta, Data: data})
	}
}
