package admin

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cleaningpros/review-funnel/internal/locations"
	"github.com/cleaningpros/review-funnel/internal/reviews"
)

// ReviewTextLimit is how much review text a dashboard row shows.
const ReviewTextLimit = 100

// dateLayout renders like en-AU with short month and 2-digit 12h time.
const dateLayout = "2 Jan 2006, 03:04 pm"

// Badge is the completion label of one row.
type Badge struct {
	Label string `json:"label"`
	Kind  string `json:"kind"` // complete, partial, none
}

// BadgeFor labels a row that completed n of total locations.
func BadgeFor(n, total int) Badge {
	switch {
	case total > 0 && n >= total:
		return Badge{Label: fmt.Sprintf("Complete (%d/%d)", total, total), Kind: "complete"}
	case n > 0:
		return Badge{Label: fmt.Sprintf("Partial (%d/%d)", n, total), Kind: "partial"}
	default:
		return Badge{Label: fmt.Sprintf("Not Started (0/%d)", total), Kind: "none"}
	}
}

// ChecklistItem is one location in a row's checklist.
type ChecklistItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// Row is one review intent as the dashboard shows it.
type Row struct {
	ID            string          `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Rating        int             `json:"rating"`
	Badge         Badge           `json:"badge"`
	Checklist     []ChecklistItem `json:"checklist"`
	ReviewText    string          `json:"review_text"`
	Date          string          `json:"date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LocationView is a footer card.
type LocationView struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// NewRow builds the row view of intent in the registry's order.
func NewRow(intent reviews.ReviewIntent, reg *locations.Registry, tz *time.Location) Row {
	row := Row{
		ID:            intent.ID,
		CustomerName:  intent.CustomerName,
		CustomerEmail: intent.CustomerEmail,
		Rating:        intent.Rating,
		Badge:         BadgeFor(len(intent.CompletedLocations), reg.Len()),
		ReviewText:    Truncate(intent.ReviewText, ReviewTextLimit),
		Date:          FormatDate(intent.CreatedAt, tz),
		CreatedAt:     intent.CreatedAt,
	}
	for _, loc := range reg.List() {
		row.Checklist = append(row.Checklist, ChecklistItem{
			ID:   loc.ID,
			Name: ShortName(loc.Name),
			Done: intent.HasCompleted(loc.ID),
		})
	}
	return row
}

// Truncate shortens s to limit characters and appends "..." when cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// FormatDate renders t in tz, e.g. "5 Mar 2025, 02:30 pm".
func FormatDate(t time.Time, tz *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if tz == nil {
		tz = time.UTC
	}
	return t.In(tz).Format(dateLayout)
}

// ShortName drops the brand prefix: "Cleaning Professionals - Epping"
// becomes "Epping".
func ShortName(name string) string {
	if _, rest, ok := strings.Cut(name, " - "); ok {
		return rest
	}
	return name
}
