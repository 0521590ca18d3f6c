package service

import (
	"testing"
	"time"

	"github.com/sipwell/agent/internal/domain"
)

func testSettings() domain.ReminderSettings {
	return domain.ReminderSettings{
		MinInterval:   30 * time.Minute,
		MaxInterval:   120 * time.Minute,
		Disruption:    domain.DisruptionNormal,
		RetentionDays: 30,
	}
}

func samplesWithDensity(n, active int) []domain.ActivitySample {
	now := time.Now()
	samples := make([]domain.ActivitySample, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, domain.ActivitySample{
			Timestamp: now.Add(-time.Duration(n-i) * time.Minute),
			Active:    i < active,
		})
	}
	return samples
}

func TestComputeNextInterval_EmptyHistoryReturnsBaseline(t *testing.T) {
	engine := NewIntervalEngine(DefaultIntervalTunables())

	decision := engine.ComputeNextInterval(testSettings(), nil, time.Now())

	if decision.Interval != 75*time.Minute {
		t.Fatalf("expected 75m baseline, got %v", decision.Interval)
	}
	if decision.Rationale != domain.RationaleBaseline {
		t.Fatalf("expected baseline rationale, got %q", decision.Rationale)
	}
}

func TestComputeNextInterval_HighDensityShortensTowardMin(t *testing.T) {
	engine := NewIntervalEngine(DefaultIntervalTunables())
	settings := testSettings()

	decision := engine.ComputeNextInterval(settings, samplesWithDensity(10, 10), time.Now())

	if decision.Rationale != domain.RationaleActiveShortened {
		t.Fatalf("expected active-shortened rationale, got %q", decision.Rationale)
	}
	if decision.Interval != settings.MinInterval {
		t.Fatalf("full density should reach the minimum, got %v", decision.Interval)
	}
}

func TestComputeNextInterval_LowDensityExtendsTowardMax(t *testing.T) {
	engine := NewIntervalEngine(DefaultIntervalTunables())
	settings := testSettings()

	decision := engine.ComputeNextInterval(settings, samplesWithDensity(10, 0), time.Now())

	if decision.Rationale != domain.RationaleIdleExtended {
		t.Fatalf("expected idle-extended rationale, got %q", decision.Rationale)
	}
	if decision.Interval != settings.MaxInterval {
		t.Fatalf("zero density should reach the maximum, got %v", decision.Interval)
	}
}

func TestComputeNextInterval_MidDensityKeepsBaseline(t *testing.T) {
	engine := NewIntervalEngine(DefaultIntervalTunables())

	decision := engine.ComputeNextInterval(testSettings(), samplesWithDensity(10, 4), time.Now())

	if decision.Rationale != domain.RationaleBaseline {
		t.Fatalf("expected baseline rationale, got %q", decision.Rationale)
	}
	if decision.Interval != 75*time.Minute {
		t.Fatalf("expected baseline interval, got %v", decision.Interval)
	}
}

func TestComputeNextInterval_AlwaysWithinBounds(t *testing.T) {
	engine := NewIntervalEngine(DefaultIntervalTunables())

	bounds := []struct {
		min, max time.Duration
	}{
		{10 * time.Minute, 10 * time.Minute},
		{15 * time.Minute, 45 * time.Minute},
		{30 * time.Minute, 120 * time.Minute},
		{1 * time.Hour, 4 * time.Hour},
	}

	for _, b := range bounds {
		settings := testSettings()
		settings.MinInterval = b.min
		settings.MaxInterval = b.max

		for active := 0; active <= 10; active++ {
			decision := engine.ComputeNextInterval(settings, samplesWithDensity(10, active), time.Now())
			if decision.Interval < b.min || decision.Interval > b.max {
				t.Fatalf("interval %v outside [%v, %v] at density %d/10",
					decision.Interval, b.min, b.max, active)
			}
		}
	}
}

func TestComputeNextInterval_QuietHoursShiftsDueTime(t *testing.T) {
	engine := NewIntervalEngine(DefaultIntervalTunables())
	settings := testSettings()
	// Quiet from 22:00 to 07:00.
	settings.QuietHours = domain.QuietHours{StartMinute: 22 * 60, EndMinute: 7 * 60}

	// 21:30 plus the 75m baseline lands at 22:45, inside quiet hours.
	now := time.Date(2026, 3, 10, 21, 30, 0, 0, time.UTC)
	decision := engine.ComputeNextInterval(settings, nil, now)

	due := now.Add(decision.Interval)
	if settings.QuietHours.Contains(due) {
		t.Fatalf("due time %v still inside quiet hours", due)
	}
	wantDue := time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)
	if !due.Equal(wantDue) {
		t.Fatalf("expected due time %v at quiet hours end, got %v", wantDue, due)
	}
}

func TestComputeNextInterval_DismissalShortensNextDecision(t *testing.T) {
	engine := NewIntervalEngine(DefaultIntervalTunables())
	settings := testSettings()

	first := engine.ComputeNextInterval(settings, nil, time.Now())

	// One engagement sample so far: density 1.0.
	withEngagement := samplesWithDensity(1, 1)
	second := engine.ComputeNextInterval(settings, withEngagement, time.Now())

	if second.Interval > first.Interval {
		t.Fatalf("engagement should not lengthen the interval: %v > %v", second.Interval, first.Interval)
	}
}

func TestComputeNextInterval_Deterministic(t *testing.T) {
	engine := NewIntervalEngine(DefaultIntervalTunables())
	settings := testSettings()
	samples := samplesWithDensity(8, 6)
	now := time.Now()

	a := engine.ComputeNextInterval(settings, samples, now)
	b := engine.ComputeNextInterval(settings, samples, now)

	if a.Interval != b.Interval || a.Rationale != b.Rationale {
		t.Fatalf("same inputs produced different decisions: %v/%s vs %v/%s",
			a.Interval, a.Rationale, b.Interval, b.Rationale)
	}
}
