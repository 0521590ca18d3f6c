package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sipwell/agent/internal/channel"
	"github.com/sipwell/agent/internal/domain"
)

func fixedIntervalSettings(interval time.Duration) domain.ReminderSettings {
	return domain.ReminderSettings{
		MinInterval:   interval,
		MaxInterval:   interval,
		Disruption:    domain.DisruptionNormal,
		RetentionDays: 30,
	}
}

type schedulerFixture struct {
	scheduler *Scheduler
	settings  *mockSettingsStore
	activity  *mockActivityStore
	reminders *mockReminderStore
	sink      *mockSink
	notify    *channel.MockChannel
	overlay   *channel.MockChannel
}

func newSchedulerFixture(settings domain.ReminderSettings, responseTimeout time.Duration) *schedulerFixture {
	f := &schedulerFixture{
		settings:  &mockSettingsStore{settings: &settings},
		activity:  &mockActivityStore{},
		reminders: &mockReminderStore{},
		sink:      &mockSink{},
		notify:    channel.NewMockChannel(domain.ChannelNotification),
		overlay:   channel.NewMockChannel(domain.ChannelOverlay),
	}
	delivery := NewDelivery(f.notify, f.overlay, f.sink, testLogger())
	engine := NewIntervalEngine(DefaultIntervalTunables())
	f.scheduler = NewScheduler(f.settings, f.activity, f.reminders, engine, delivery, f.sink, testLogger())
	f.scheduler.SetResponseTimeout(responseTimeout)
	return f
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestScheduler_SchedulesOnStart(t *testing.T) {
	f := newSchedulerFixture(fixedIntervalSettings(time.Hour), time.Minute)

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.scheduler.Stop()

	cur := f.scheduler.Current()
	if cur == nil {
		t.Fatal("expected an outstanding scheduled record")
	}
	if cur.State != domain.StateScheduled {
		t.Fatalf("expected scheduled state, got %s", cur.State)
	}

	// Nothing is awaiting a response yet.
	err := f.scheduler.RespondTo(context.Background(), cur.ID, domain.UserResponse{Kind: domain.ResponseDismissed})
	if !errors.Is(err, ErrNoOutstandingReminder) {
		t.Fatalf("expected ErrNoOutstandingReminder, got %v", err)
	}
}

func TestScheduler_DismissFeedsEngagementAndReschedules(t *testing.T) {
	f := newSchedulerFixture(fixedIntervalSettings(15*time.Millisecond), time.Second)

	dueCh := make(chan domain.ReminderRecord, 1)
	f.scheduler.SetOnReminderDue(func(rec domain.ReminderRecord) {
		select {
		case dueCh <- rec:
		default:
		}
	})

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.scheduler.Stop()

	var due domain.ReminderRecord
	select {
	case due = <-dueCh:
	case <-time.After(2 * time.Second):
		t.Fatal("reminder never became due")
	}

	waitFor(t, time.Second, func() bool {
		cur := f.scheduler.Current()
		return cur != nil && cur.ID == due.ID && cur.State == domain.StateDelivering
	}, "delivery to start")

	if err := f.scheduler.RespondTo(context.Background(), due.ID, domain.UserResponse{Kind: domain.ResponseDismissed}); err != nil {
		t.Fatalf("dismiss failed: %v", err)
	}

	if got := len(f.reminders.byState(domain.StateDismissed)); got != 1 {
		t.Fatalf("expected 1 dismissed record, got %d", got)
	}
	if f.activity.activeCount() < 1 {
		t.Fatal("dismissal should append an active engagement sample")
	}
	if f.scheduler.IgnoreStreak() != 0 {
		t.Fatalf("dismissal should reset the ignore streak, got %d", f.scheduler.IgnoreStreak())
	}

	// A fresh cycle replaces the dismissed record.
	cur := f.scheduler.Current()
	if cur == nil || cur.ID == due.ID {
		t.Fatal("expected a new scheduled record after dismissal")
	}
}

func TestScheduler_SnoozeReschedulesAtExactOffset(t *testing.T) {
	f := newSchedulerFixture(fixedIntervalSettings(10*time.Millisecond), time.Second)

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.scheduler.Stop()

	waitFor(t, time.Second, func() bool {
		cur := f.scheduler.Current()
		return cur != nil && cur.State == domain.StateDelivering
	}, "delivery to start")

	cur := f.scheduler.Current()
	snooze := 300 * time.Millisecond
	before := time.Now()
	if err := f.scheduler.RespondTo(context.Background(), cur.ID,
		domain.UserResponse{Kind: domain.ResponseSnoozed, SnoozeFor: snooze}); err != nil {
		t.Fatalf("snooze failed: %v", err)
	}

	next := f.scheduler.Current()
	if next == nil || next.State != domain.StateScheduled {
		t.Fatal("expected a scheduled record after snooze")
	}
	// Snooze bypasses the adaptive engine entirely.
	if next.DecisionID != uuid.Nil {
		t.Fatal("snoozed record should not reference an interval decision")
	}
	offset := next.ScheduledFor.Sub(before)
	if offset < snooze-20*time.Millisecond || offset > snooze+100*time.Millisecond {
		t.Fatalf("snooze rescheduled at offset %v, want about %v", offset, snooze)
	}
}

func TestScheduler_TimeoutMarksIgnored(t *testing.T) {
	f := newSchedulerFixture(fixedIntervalSettings(10*time.Millisecond), 25*time.Millisecond)

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.scheduler.Stop()

	waitFor(t, 2*time.Second, func() bool {
		return len(f.reminders.byState(domain.StateIgnored)) >= 1
	}, "a reminder to time out")

	if f.scheduler.IgnoreStreak() < 1 {
		t.Fatalf("expected ignore streak >= 1, got %d", f.scheduler.IgnoreStreak())
	}
}

func TestScheduler_EscalatesToOverlayAfterConsecutiveIgnores(t *testing.T) {
	f := newSchedulerFixture(fixedIntervalSettings(10*time.Millisecond), 20*time.Millisecond)

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.scheduler.Stop()

	// Under normal disruption the first two attempts go to the toast;
	// from the third consecutive ignore the overlay takes over.
	waitFor(t, 3*time.Second, func() bool {
		return len(f.overlay.Shown()) >= 1
	}, "escalation to the overlay")

	if len(f.notify.Shown()) < 2 {
		t.Fatalf("expected at least 2 notification attempts before escalation, got %d", len(f.notify.Shown()))
	}
}

func TestScheduler_DeliveryFailureAdvancesSchedule(t *testing.T) {
	f := newSchedulerFixture(fixedIntervalSettings(10*time.Millisecond), time.Second)
	f.notify.FailWith(errors.New("surface down"))
	f.overlay.FailWith(errors.New("surface down"))

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.scheduler.Stop()

	waitFor(t, 2*time.Second, func() bool {
		return len(f.reminders.byState(domain.StateIgnored)) >= 1 && f.sink.recoverableCount() >= 1
	}, "ignored record and recoverable report")

	// The failure never blocks the next cycle.
	waitFor(t, 2*time.Second, func() bool {
		cur := f.scheduler.Current()
		return cur != nil
	}, "schedule to advance")
}

func TestScheduler_WarmStartsIgnoreStreak(t *testing.T) {
	f := newSchedulerFixture(fixedIntervalSettings(time.Hour), time.Minute)

	// History oldest to newest: dismissed, ignored, ignored.
	for _, state := range []domain.ReminderState{domain.StateDismissed, domain.StateIgnored, domain.StateIgnored} {
		_ = f.reminders.Create(context.Background(), &domain.ReminderRecord{
			ID:        uuid.New(),
			State:     state,
			CreatedAt: time.Now(),
		})
	}

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.scheduler.Stop()

	if got := f.scheduler.IgnoreStreak(); got != 2 {
		t.Fatalf("expected warm-started streak of 2, got %d", got)
	}
}

func TestScheduler_OnlyOneRecordOutstanding(t *testing.T) {
	f := newSchedulerFixture(fixedIntervalSettings(10*time.Millisecond), 20*time.Millisecond)

	if err := f.scheduler.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.scheduler.Stop()

	// Sample the store while cycles churn; the single-writer loop must
	// never have two records in flight.
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		inFlight := len(f.reminders.byState(domain.StateDue)) + len(f.reminders.byState(domain.StateDelivering))
		if inFlight > 1 {
			t.Fatalf("found %d records in due/delivering", inFlight)
		}
		time.Sleep(time.Millisecond)
	}
}
