package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/sipwell/agent/internal/domain"
)

// IntervalTunables are the adaptive policy knobs. Exposed as
// configuration rather than constants; see config.HighActivityThreshold
// and friends for the env-var defaults.
type IntervalTunables struct {
	// HighActivityThreshold is the activity density above which the
	// interval shortens toward the minimum.
	HighActivityThreshold float64
	// LowActivityThreshold is the activity density below which the
	// interval lengthens toward the maximum.
	LowActivityThreshold float64
}

func DefaultIntervalTunables() IntervalTunables {
	return IntervalTunables{
		HighActivityThreshold: 0.6,
		LowActivityThreshold:  0.2,
	}
}

// IntervalEngine computes the next reminder interval from settings and
// recent activity. Deterministic given the same inputs; all state lives
// in the activity sequence supplied by the caller.
type IntervalEngine struct {
	tunables IntervalTunables
}

func NewIntervalEngine(t IntervalTunables) *IntervalEngine {
	return &IntervalEngine{tunables: t}
}

// ComputeNextInterval starts from the midpoint of [min, max], shortens
// toward min when activity density is high, lengthens toward max when
// the user looks idle, clamps to [min, max], and finally pushes the due
// time out of quiet hours if it landed inside them.
func (e *IntervalEngine) ComputeNextInterval(settings domain.ReminderSettings, samples []domain.ActivitySample, now time.Time) domain.IntervalDecision {
	min, max := settings.MinInterval, settings.MaxInterval
	baseline := min + (max-min)/2

	interval := baseline
	rationale := domain.RationaleBaseline

	if len(samples) > 0 {
		density := domain.ActivityDensity(samples)
		high, low := e.tunables.HighActivityThreshold, e.tunables.LowActivityThreshold

		switch {
		case density >= high:
			// Shorten proportionally to how far density sits above the
			// threshold.
			f := 1.0
			if high < 1 {
				f = (density - high) / (1 - high)
			}
			interval = baseline - time.Duration(f*float64(baseline-min))
			rationale = domain.RationaleActiveShortened
		case density <= low:
			f := 1.0
			if low > 0 {
				f = (low - density) / low
			}
			interval = baseline + time.Duration(f*float64(max-baseline))
			rationale = domain.RationaleIdleExtended
		}
	}

	if interval < min {
		interval = min
	}
	if interval > max {
		interval = max
	}

	// A due time inside quiet hours moves to the window's end. This may
	// push the interval past max; user rest wins over cadence.
	due := now.Add(interval)
	if shifted := settings.QuietHours.ShiftOut(due); shifted.After(due) {
		interval = shifted.Sub(now)
	}

	return domain.IntervalDecision{
		ID:         uuid.New(),
		Interval:   interval,
		Rationale:  rationale,
		ValidUntil: now.Add(interval),
	}
}
