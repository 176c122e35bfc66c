package admin

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cleaningpros/review-funnel/internal/locations"
	"github.com/cleaningpros/review-funnel/internal/reviews"
	"github.com/cleaningpros/review-funnel/pkg/logging"
)

var adminTracer = otel.Tracer("reviewfunnel.internal.admin")

// DefaultLimit is the fetch window.
const DefaultLimit = 50

// intentLister is the slice of reviews.Repository the dashboard reads.
type intentLister interface {
	ListRecent(ctx context.Context, limit int) ([]reviews.ReviewIntent, error)
}

// Snapshot is one rendering of the dashboard.
type Snapshot struct {
	Stats     Stats          `json:"stats"`
	Rows      []Row          `json:"rows"`
	Locations []LocationView `json:"locations"`
	Stale     bool           `json:"stale"`
	Error     string         `json:"error,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Dashboard loads the most recent review intents. It keeps the last good
// snapshot and serves it, marked stale, when a fetch fails.
type Dashboard struct {
	repo      intentLister
	locations *locations.Registry
	limit     int
	tz        *time.Location
	logger    *logging.Logger
	now       func() time.Time

	mu   sync.Mutex
	last *Snapshot
}

// NewDashboard wires the dashboard. limit <= 0 selects DefaultLimit and a
// nil tz selects UTC.
func NewDashboard(repo intentLister, reg *locations.Registry, limit int, tz *time.Location, logger *logging.Logger) *Dashboard {
	if repo == nil {
		panic("admin: review repository required")
	}
	if reg == nil {
		reg = locations.Default()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if tz == nil {
		tz = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dashboard{
		repo:      repo,
		locations: reg,
		limit:     limit,
		tz:        tz,
		logger:    logger,
		now:       time.Now,
	}
}

// Load fetches the window and builds a snapshot.
func (d *Dashboard) Load(ctx context.Context) Snapshot {
	ctx, span := adminTracer.Start(ctx, "admin.load")
	defer span.End()
	span.SetAttributes(attribute.Int("reviewfunnel.limit", d.limit))

	intents, err := d.repo.ListRecent(ctx, d.limit)
	if err != nil {
		span.RecordError(err)
		d.logger.Error("admin: fetch review intents failed", "error", err)
		return d.staleSnapshot()
	}

	snap := Snapshot{
		Stats:     ComputeStats(intents, d.locations.Len()),
		Rows:      make([]Row, 0, len(intents)),
		Locations: d.locationViews(),
		FetchedAt: d.now().UTC(),
	}
	for _, intent := range intents {
		snap.Rows = append(snap.Rows, NewRow(intent, d.locations, d.tz))
	}

	d.mu.Lock()
	kept := snap
	d.last = &kept
	d.mu.Unlock()
	return snap
}

func (d *Dashboard) staleSnapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last != nil {
		snap := *d.last
		snap.Stale = true
		snap.Error = "Showing the last loaded data; refresh failed."
		return snap
	}
	return Snapshot{
		Stats:     ComputeStats(nil, d.locations.Len()),
		Rows:      []Row{},
		Locations: d.locationViews(),
		Stale:     true,
		Error:     "Review data could not be loaded.",
	}
}

func (d *Dashboard) locationViews() []LocationView {
	views := make([]LocationView, 0, d.locations.Len())
	for _, loc := range d.locations.List() {
		views = append(views, LocationView{Name: loc.Name, Address: loc.Address})
	}
	return views
}
