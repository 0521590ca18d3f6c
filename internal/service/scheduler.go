package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sipwell/agent/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultResponseTimeout = 2 * time.Minute
	defaultActivityWindow  = 30 * time.Minute

	// Storage calls from the scheduling loop are bounded so a slow
	// database cannot stall reminder cycles.
	storeTimeout = 10 * time.Second

	warmStartDepth = 20
)

var (
	ErrNoOutstandingReminder = errors.New("no reminder is awaiting a response")
	ErrReminderMismatch      = errors.New("reminder is not the outstanding one")
	ErrInvalidResponse       = errors.New("invalid response kind")
	ErrInvalidSnooze         = errors.New("snooze duration must be positive")
	ErrSchedulerStopped      = errors.New("scheduler is stopped")
)

type responseRequest struct {
	recordID uuid.UUID
	resp     domain.UserResponse
	errCh    chan error
}

type dispatchResult struct {
	recordID uuid.UUID
	channel  domain.ChannelKind
	err      error
}

// Scheduler owns the reminder lifecycle: it arms the wake-up timer,
// drives each record through its state machine, and feeds user
// responses back into the adaptive policy. A single loop goroutine
// performs every state transition, so at most one record is ever in
// the due or delivering state and no two transitions can race.
type Scheduler struct {
	settingsStore domain.SettingsStore
	activityStore domain.ActivityStore
	reminderStore domain.ReminderStore
	engine        *IntervalEngine
	delivery      *Delivery
	sink          domain.ReportSink
	logger        *zap.Logger

	responseTimeout time.Duration
	activityWindow  time.Duration

	onDue func(domain.ReminderRecord)

	responseCh chan responseRequest
	dispatchCh chan dispatchResult
	stopCh     chan struct{}
	wg         sync.WaitGroup

	// Loop-owned timers; created in Start, touched only by the loop.
	dueTimer  *time.Timer
	respTimer *time.Timer

	mu           sync.RWMutex
	current      *domain.ReminderRecord
	settings     domain.ReminderSettings
	ignoreStreak int
}

func NewScheduler(ss domain.SettingsStore, as domain.ActivityStore, rs domain.ReminderStore,
	engine *IntervalEngine, delivery *Delivery, sink domain.ReportSink, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		settingsStore:   ss,
		activityStore:   as,
		reminderStore:   rs,
		engine:          engine,
		delivery:        delivery,
		sink:            sink,
		logger:          logger,
		responseTimeout: defaultResponseTimeout,
		activityWindow:  defaultActivityWindow,
		responseCh:      make(chan responseRequest),
		dispatchCh:      make(chan dispatchResult, 1),
		stopCh:          make(chan struct{}),
		settings:        domain.DefaultSettings(),
	}
}

func (s *Scheduler) SetResponseTimeout(d time.Duration) {
	if d > 0 {
		s.responseTimeout = d
	}
}

func (s *Scheduler) SetActivityWindow(d time.Duration) {
	if d > 0 {
		s.activityWindow = d
	}
}

// SetOnReminderDue registers the UI binding hook. Must be called
// before Start.
func (s *Scheduler) SetOnReminderDue(fn func(domain.ReminderRecord)) {
	s.onDue = fn
}

// Start loads the settings snapshot, warm-starts the ignore streak
// from recent history, schedules the first reminder, and spawns the
// scheduling loop.
func (s *Scheduler) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	settings := s.freshSettings(ctx)
	streak := s.warmStartStreak(ctx)

	s.mu.Lock()
	s.settings = settings
	s.ignoreStreak = streak
	s.mu.Unlock()

	s.dueTimer = newStoppedTimer()
	s.respTimer = newStoppedTimer()

	s.scheduleNext(ctx)

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("reminder scheduler started",
		zap.Duration("response_timeout", s.responseTimeout),
		zap.Int("warm_ignore_streak", streak))
	return nil
}

// Stop shuts the scheduling loop down. An in-flight delivery runs to
// completion or timeout; it is never cancelled mid-flight.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("reminder scheduler stopped")
}

// Current returns a copy of the outstanding reminder record, or nil.
func (s *Scheduler) Current() *domain.ReminderRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// IgnoreStreak returns the count of consecutive ignored reminders.
func (s *Scheduler) IgnoreStreak() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ignoreStreak
}

// RespondTo is the entry point for dismiss/snooze/ignore actions
// arriving from any channel. The response is applied by the scheduling
// loop; the returned error reflects whether it was accepted.
func (s *Scheduler) RespondTo(ctx context.Context, recordID uuid.UUID, resp domain.UserResponse) error {
	if !domain.ValidResponseKind(string(resp.Kind)) {
		return ErrInvalidResponse
	}
	if resp.Kind == domain.ResponseSnoozed && resp.SnoozeFor <= 0 {
		return ErrInvalidSnooze
	}

	req := responseRequest{recordID: recordID, resp: resp, errCh: make(chan error, 1)}
	select {
	case s.responseCh <- req:
	case <-s.stopCh:
		return ErrSchedulerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	defer s.dueTimer.Stop()
	defer s.respTimer.Stop()

	for {
		select {
		case <-s.dueTimer.C:
			s.handleDue()
		case res := <-s.dispatchCh:
			s.handleDispatchResult(res)
		case req := <-s.responseCh:
			req.errCh <- s.handleResponse(req)
		case <-s.respTimer.C:
			s.handleResponseTimeout()
		case <-s.stopCh:
			return
		}
	}
}

// scheduleNext creates a freshly scheduled record from a new interval
// decision and arms the wake-up timer. Refused while a record is still
// due or delivering.
func (s *Scheduler) scheduleNext(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && !s.current.State.Terminal() {
		s.logger.Warn("refusing to schedule while a reminder is outstanding",
			zap.String("record_id", s.current.ID.String()),
			zap.String("state", string(s.current.State)))
		return
	}

	now := time.Now()
	samples, err := s.activityStore.RecentSamples(ctx, s.activityWindow)
	if err != nil {
		s.logger.Warn("activity history unavailable, scheduling from baseline", zap.Error(err))
		samples = nil
	}

	decision := s.engine.ComputeNextInterval(s.settings, samples, now)
	rec := &domain.ReminderRecord{
		ID:           uuid.New(),
		ScheduledFor: now.Add(decision.Interval),
		State:        domain.StateScheduled,
		DecisionID:   decision.ID,
		CreatedAt:    now,
	}
	s.persist(ctx, rec, true)
	s.current = rec
	resetTimer(s.dueTimer, decision.Interval)

	s.logger.Info("reminder scheduled",
		zap.String("record_id", rec.ID.String()),
		zap.Duration("interval", decision.Interval),
		zap.String("rationale", string(decision.Rationale)))
}

// scheduleSnoozed creates the next record at now + d, bypassing the
// interval engine. Explicit user intent overrides the adaptive policy.
func (s *Scheduler) scheduleSnoozed(ctx context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec := &domain.ReminderRecord{
		ID:           uuid.New(),
		ScheduledFor: now.Add(d),
		State:        domain.StateScheduled,
		CreatedAt:    now,
	}
	s.persist(ctx, rec, true)
	s.current = rec
	resetTimer(s.dueTimer, d)

	s.logger.Info("reminder snooze-scheduled",
		zap.String("record_id", rec.ID.String()),
		zap.Duration("snooze", d))
}

func (s *Scheduler) handleDue() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	s.mu.Lock()
	if s.current == nil || s.current.State != domain.StateScheduled {
		s.mu.Unlock()
		return
	}
	s.settings = s.freshSettings(ctx)
	s.current.State = domain.StateDue
	s.persist(ctx, s.current, false)
	rec := *s.current
	settings := s.settings
	streak := s.ignoreStreak
	s.mu.Unlock()

	s.logger.Info("reminder due", zap.String("record_id", rec.ID.String()))
	if s.onDue != nil {
		go s.onDue(rec)
	}

	go func() {
		deliverCtx, deliverCancel := context.WithTimeout(context.Background(), 3*s.delivery.dispatchTimeout)
		defer deliverCancel()
		kind, err := s.delivery.Deliver(deliverCtx, rec, settings, streak)
		select {
		case s.dispatchCh <- dispatchResult{recordID: rec.ID, channel: kind, err: err}:
		case <-s.stopCh:
		}
	}()
}

func (s *Scheduler) handleDispatchResult(res dispatchResult) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	s.mu.Lock()
	if s.current == nil || s.current.ID != res.recordID || s.current.State != domain.StateDue {
		// The user answered before the dispatch settled, or the record
		// was already replaced. Nothing to do.
		s.mu.Unlock()
		return
	}

	if res.err != nil {
		s.markIgnoredLocked(ctx, nil)
		s.mu.Unlock()

		reportErr := domain.NewSystemIntegrationError("delivery", "delivery-unavailable", res.err,
			"check SIPWELL_NOTIFY_URL and SIPWELL_OVERLAY_URL",
			"verify the UI surface process is running")
		if err := s.sink.ReportRecoverable(ctx, reportErr, reportErr.Hints); err != nil {
			s.logger.Warn("failed to report delivery failure", zap.Error(err))
		}
		s.scheduleNext(ctx)
		return
	}

	s.current.State = domain.StateDelivering
	s.current.Channel = &res.channel
	s.persist(ctx, s.current, false)
	s.mu.Unlock()

	resetTimer(s.respTimer, s.responseTimeout)
	s.logger.Info("reminder delivering",
		zap.String("record_id", res.recordID.String()),
		zap.String("channel", string(res.channel)))
}

func (s *Scheduler) handleResponse(req responseRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	s.mu.Lock()
	cur := s.current
	if cur == nil || (cur.State != domain.StateDue && cur.State != domain.StateDelivering) {
		s.mu.Unlock()
		return ErrNoOutstandingReminder
	}
	if cur.ID != req.recordID {
		s.mu.Unlock()
		return ErrReminderMismatch
	}

	stopTimer(s.respTimer)
	resp := req.resp

	switch resp.Kind {
	case domain.ResponseDismissed:
		cur.State = domain.StateDismissed
		cur.Response = &resp
		s.persist(ctx, cur, false)
		s.ignoreStreak = 0
		s.mu.Unlock()

		// A dismissal is direct engagement; feed it into the history
		// the interval engine reads.
		s.appendSignal(ctx, true)
		s.scheduleNext(ctx)

	case domain.ResponseSnoozed:
		cur.State = domain.StateSnoozed
		cur.Response = &resp
		s.persist(ctx, cur, false)
		s.ignoreStreak = 0
		s.mu.Unlock()

		s.scheduleSnoozed(ctx, resp.SnoozeFor)

	case domain.ResponseIgnored:
		s.markIgnoredLocked(ctx, &resp)
		s.mu.Unlock()

		s.appendSignal(ctx, false)
		s.scheduleNext(ctx)
	}

	s.logger.Info("reminder response applied",
		zap.String("record_id", req.recordID.String()),
		zap.String("response", string(resp.Kind)))
	return nil
}

func (s *Scheduler) handleResponseTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	s.mu.Lock()
	if s.current == nil || s.current.State != domain.StateDelivering {
		s.mu.Unlock()
		return
	}
	id := s.current.ID
	s.markIgnoredLocked(ctx, nil)
	s.mu.Unlock()

	s.logger.Info("reminder ignored, no response before timeout",
		zap.String("record_id", id.String()))

	// No response usually means nobody is at the desk; record the low
	// engagement so the engine can adapt.
	s.appendSignal(ctx, false)
	s.scheduleNext(ctx)
}

// markIgnoredLocked finishes the current record as ignored and bumps
// the escalation streak. Caller holds s.mu.
func (s *Scheduler) markIgnoredLocked(ctx context.Context, resp *domain.UserResponse) {
	if resp == nil {
		resp = &domain.UserResponse{Kind: domain.ResponseIgnored}
	}
	s.current.State = domain.StateIgnored
	s.current.Response = resp
	s.persist(ctx, s.current, false)
	s.ignoreStreak++
}

// persist writes the record, tolerating storage failure: the cycle
// keeps running on the in-memory record and the error is logged.
func (s *Scheduler) persist(ctx context.Context, rec *domain.ReminderRecord, create bool) {
	var err error
	if create {
		err = s.reminderStore.Create(ctx, rec)
	} else {
		err = s.reminderStore.Update(ctx, rec)
	}
	if err != nil {
		s.logger.Warn("failed to persist reminder record",
			zap.String("record_id", rec.ID.String()),
			zap.String("state", string(rec.State)),
			zap.Error(err))
	}
}

func (s *Scheduler) appendSignal(ctx context.Context, active bool) {
	sample := &domain.ActivitySample{Timestamp: time.Now(), Active: active}
	if err := s.activityStore.Append(ctx, sample); err != nil {
		s.logger.Warn("failed to record engagement signal", zap.Error(err))
	}
}

// freshSettings loads the latest snapshot, falling back to the last
// known one when the store is unavailable or the snapshot is invalid.
func (s *Scheduler) freshSettings(ctx context.Context) domain.ReminderSettings {
	loaded, err := s.settingsStore.Load(ctx)
	if err != nil {
		s.logger.Warn("settings unavailable, keeping last known snapshot", zap.Error(err))
		return s.settings
	}
	if err := loaded.Validate(); err != nil {
		s.logger.Warn("stored settings invalid, keeping last known snapshot", zap.Error(err))
		return s.settings
	}
	return *loaded
}

// warmStartStreak counts trailing consecutive ignores in recent
// history so escalation survives a restart.
func (s *Scheduler) warmStartStreak(ctx context.Context) int {
	records, err := s.reminderStore.ListRecent(ctx, warmStartDepth)
	if err != nil {
		s.logger.Warn("reminder history unavailable for warm start", zap.Error(err))
		return 0
	}
	streak := 0
	for _, r := range records {
		if !r.State.Terminal() {
			continue
		}
		if r.State != domain.StateIgnored {
			break
		}
		streak++
	}
	return streak
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}
