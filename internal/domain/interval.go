package domain

import (
	"time"

	"github.com/google/uuid"
)

type IntervalRationale string

const (
	RationaleBaseline        IntervalRationale = "baseline"
	RationaleIdleExtended    IntervalRationale = "idle-extended"
	RationaleActiveShortened IntervalRationale = "active-shortened"
)

// IntervalDecision is one output of the interval engine: the computed
// interval, why it was chosen, and how long the decision stays valid.
// Never mutated after creation.
type IntervalDecision struct {
	ID         uuid.UUID         `json:"id"`
	Interval   time.Duration     `json:"interval"`
	Rationale  IntervalRationale `json:"rationale"`
	ValidUntil time.Time         `json:"valid_until"`
}
