package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivitySample is one observation of whether the user was active at a
// point in time. Immutable once recorded; samples older than the
// retention horizon are pruned by the maintenance job.
type ActivitySample struct {
	ID          uuid.UUID `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Active      bool      `json:"active"`
	AppCategory *string   `json:"app_category,omitempty"`
}

// ActivityDensity returns the fraction of samples marked active.
// Returns 0 for an empty slice.
func ActivityDensity(samples []ActivitySample) float64 {
	if len(samples) == 0 {
		return 0
	}
	active := 0
	for _, s := range samples {
		if s.Active {
			active++
		}
	}
	return float64(active) / float64(len(samples))
}
