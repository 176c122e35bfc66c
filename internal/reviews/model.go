package reviews

import (
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ReviewIntent records a customer's intention to post public reviews and
// which locations they confirmed.
type ReviewIntent struct {
	ID                 string    `json:"id"`
	CustomerName       string    `json:"customer_name"`
	CustomerEmail      string    `json:"customer_email"`
	Rating             int       `json:"rating"`
	ReviewText         string    `json:"review_text"`
	CompletedLocations []string  `json:"completed_locations"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasCompleted reports whether the location id is in the completed set.
func (r *ReviewIntent) HasCompleted(locationID string) bool {
	for _, id := range r.CompletedLocations {
		if id == locationID {
			return true
		}
	}
	return false
}

// NewReviewIntent is the insert payload. Rows always start with no
// completed locations.
type NewReviewIntent struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Rating        int    `json:"rating"`
	ReviewText    string `json:"review_text"`
}

// Validate checks the insert payload.
func (n *NewReviewIntent) Validate() error {
	if strings.TrimSpace(n.CustomerName) == "" || strings.TrimSpace(n.CustomerEmail) == "" {
		return ErrMissingCustomer
	}
	if n.Rating < MinRating || n.Rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// dedupe keeps the first occurrence of each id, preserving order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
