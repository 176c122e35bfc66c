// Package locations holds the static list of business locations customers are
// asked to review, in the order the review funnel visits them.
package locations

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BusinessLocation is one Google Business Profile listing.
type BusinessLocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	PlaceID   string `json:"place_id"`
	ReviewURL string `json:"review_url"`
}

// reviewShortLinkHost is the host of the short review links Google hands out
// from "Share review form".
const reviewShortLinkHost = "g.page"

// Defaults is the reference configuration.
var Defaults = []BusinessLocation{
	{
		ID:        "melbourne",
		Name:      "Cleaning Professionals - Melbourne VIC",
		Address:   "Melbourne VIC, Australia",
		PlaceID:   "CatIouiPpkIsEBM",
		ReviewURL: "https://g.page/r/CatIouiPpkIsEBM/review",
	},
	{
		ID:        "brunswick",
		Name:      "Cleaning Professionals - Brunswick",
		Address:   "Coburg VIC 3058, Australia",
		PlaceID:   "CZTz9YgMQeIEEBM",
		ReviewURL: "https://g.page/r/CZTz9YgMQeIEEBM/review",
	},
	{
		ID:        "epping",
		Name:      "Cleaning Professionals - Epping",
		Address:   "6 Eva Pl, Epping VIC 3076, Australia",
		PlaceID:   "CUm3TZyufX2PEBM",
		ReviewURL: "https://g.page/r/CUm3TZyufX2PEBM/review",
	},
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	ordered []BusinessLocation
	byID    map[string]int
}

// New builds a registry. Ids must be non-empty and unique.
func New(locs []BusinessLocation) (*Registry, error) {
	r := &Registry{
		ordered: make([]BusinessLocation, 0, len(locs)),
		byID:    make(map[string]int, len(locs)),
	}
	for _, loc := range locs {
		loc.ID = strings.TrimSpace(loc.ID)
		if loc.ID == "" {
			return nil, ErrMissingID
		}
		if _, dup := r.byID[loc.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, loc.ID)
		}
		r.byID[loc.ID] = len(r.ordered)
		r.ordered = append(r.ordered, loc)
	}
	return r, nil
}

// Default returns the registry for the reference configuration.
func Default() *Registry {
	r, err := New(Defaults)
	if err != nil {
		panic("locations: invalid defaults: " + err.Error())
	}
	return r
}

// FromJSON parses a JSON array of locations (LOCATIONS_JSON).
func FromJSON(raw string) (*Registry, error) {
	var locs []BusinessLocation
	if err := json.Unmarshal([]byte(raw), &locs); err != nil {
		return nil, fmt.Errorf("locations: parse json: %w", err)
	}
	if len(locs) == 0 {
		return nil, ErrEmpty
	}
	return New(locs)
}

// List returns the locations in their fixed order.
func (r *Registry) List() []BusinessLocation {
	out := make([]BusinessLocation, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len is the registry size N.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// At returns the location at position i of the fixed order.
func (r *Registry) At(i int) (BusinessLocation, bool) {
	if i < 0 || i >= len(r.ordered) {
		return BusinessLocation{}, false
	}
	return r.ordered[i], true
}

// Lookup finds a location by id.
func (r *Registry) Lookup(id string) (BusinessLocation, bool) {
	i, ok := r.byID[id]
	if !ok {
		return BusinessLocation{}, false
	}
	return r.ordered[i], true
}

// Contains reports whether id names a configured location.
func (r *Registry) Contains(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// URLFor returns the review link for id. Unknown ids are simply absent.
func (r *Registry) URLFor(id string) (string, bool) {
	loc, ok := r.Lookup(id)
	if !ok || loc.ReviewURL == "" {
		return "", false
	}
	return loc.ReviewURL, true
}

// IDs returns location ids in order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.ordered))
	for i, loc := range r.ordered {
		ids[i] = loc.ID
	}
	return ids
}

// Names returns display names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, loc := range r.ordered {
		names[i] = loc.Name
	}
	return names
}

// AllConfigured is true iff every location has a place id and a g.page
// short review link.
func (r *Registry) AllConfigured() bool {
	for _, loc := range r.ordered {
		if loc.PlaceID == "" || !isShortReviewLink(loc.ReviewURL) {
			return false
		}
	}
	return true
}

func isShortReviewLink(raw string) bool {
	return raw != "" && strings.Contains(raw, reviewShortLinkHost)
}
