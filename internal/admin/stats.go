// Package admin serves the read-only review monitoring dashboard.
package admin

import (
	"math"

	"github.com/cleaningpros/review-funnel/internal/reviews"
)

// Stats summarises one fetched window of review intents.
type Stats struct {
	Total                 int     `json:"total"`
	FullCompletion        int     `json:"full_completion"`
	PartialCompletion     int     `json:"partial_completion"`
	AvgRating             float64 `json:"avg_rating"`
	AvgLocationsCompleted float64 `json:"avg_locations_completed"`
	FullPercent           int     `json:"full_percent"`
	PartialPercent        int     `json:"partial_percent"`
	LocationCount         int     `json:"location_count"`
}

// ComputeStats aggregates rows against a registry of locationCount
// locations. Means are rounded to one decimal, half away from zero. An
// empty window yields zeros.
func ComputeStats(rows []reviews.ReviewIntent, locationCount int) Stats {
	stats := Stats{Total: len(rows), LocationCount: locationCount}
	if len(rows) == 0 {
		return stats
	}

	var ratingSum, completedSum int
	for _, row := range rows {
		n := len(row.CompletedLocations)
		switch {
		case locationCount > 0 && n >= locationCount:
			stats.FullCompletion++
		case n > 0:
			stats.PartialCompletion++
		}
		ratingSum += row.Rating
		completedSum += n
	}

	total := float64(len(rows))
	stats.AvgRating = roundTenth(float64(ratingSum) / total)
	stats.AvgLocationsCompleted = roundTenth(float64(completedSum) / total)
	stats.FullPercent = int(math.Round(float64(stats.FullCompletion) / total * 100))
	stats.PartialPercent = int(math.Round(float64(stats.PartialCompletion) / total * 100))
	return stats
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
