package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sipwell/agent/internal/domain"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// mockSettingsStore implements domain.SettingsStore for testing.
type mockSettingsStore struct {
	mu       sync.Mutex
	settings *domain.ReminderSettings
	err      error
}

func (m *mockSettingsStore) Load(ctx context.Context) (*domain.ReminderSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.settings == nil {
		return nil, context.Canceled
	}
	cp := *m.settings
	return &cp, nil
}

func (m *mockSettingsStore) Save(ctx context.Context, s *domain.ReminderSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.settings = &cp
	return m.err
}

// mockActivityStore implements domain.ActivityStore for testing.
type mockActivityStore struct {
	mu      sync.Mutex
	samples []domain.ActivitySample
	err     error
}

func (m *mockActivityStore) Append(ctx context.Context, sample *domain.ActivitySample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	sample.ID = uuid.New()
	m.samples = append(m.samples, *sample)
	return nil
}

func (m *mockActivityStore) RecentSamples(ctx context.Context, window time.Duration) ([]domain.ActivitySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.ActivitySample, len(m.samples))
	copy(out, m.samples)
	return out, nil
}

func (m *mockActivityStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []domain.ActivitySample
	deleted := int64(0)
	for _, s := range m.samples {
		if s.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	m.samples = kept
	return deleted, nil
}

func (m *mockActivityStore) activeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.samples {
		if s.Active {
			n++
		}
	}
	return n
}

// mockReminderStore implements domain.ReminderStore for testing.
type mockReminderStore struct {
	mu      sync.Mutex
	records []domain.ReminderRecord
	err     error
}

func (m *mockReminderStore) Create(ctx context.Context, r *domain.ReminderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	m.records = append(m.records, *r)
	return nil
}

func (m *mockReminderStore) Update(ctx context.Context, r *domain.ReminderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.records {
		if m.records[i].ID == r.ID {
			m.records[i] = *r
			return nil
		}
	}
	m.records = append(m.records, *r)
	return nil
}

func (m *mockReminderStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReminderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			cp := m.records[i]
			return &cp, nil
		}
	}
	return nil, context.Canceled
}

// ListRecent returns records newest first, matching the store contract.
func (m *mockReminderStore) ListRecent(ctx context.Context, limit int) ([]domain.ReminderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.ReminderRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *mockReminderStore) ArchiveTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	archived := int64(0)
	for i := range m.records {
		if !m.records[i].Archived && m.records[i].State.Terminal() && m.records[i].CreatedAt.Before(cutoff) {
			m.records[i].Archived = true
			archived++
		}
	}
	return archived, nil
}

func (m *mockReminderStore) byState(state domain.ReminderState) []domain.ReminderRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ReminderRecord
	for _, r := range m.records {
		if r.State == state {
			out = append(out, r)
		}
	}
	return out
}

// mockSink implements domain.ReportSink and domain.ReportStore.
type mockSink struct {
	mu          sync.Mutex
	recoverable []error
	critical    []error
	dispatches  []domain.ChannelKind
	pruneCutoff time.Time
	err         error
}

func (m *mockSink) ReportRecoverable(ctx context.Context, err error, hints []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recoverable = append(m.recoverable, err)
	return nil
}

func (m *mockSink) ReportCritical(ctx context.Context, err error, fatal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.critical = append(m.critical, err)
	return nil
}

func (m *mockSink) ReportDispatch(ctx context.Context, recordID uuid.UUID, channel domain.ChannelKind, dispatchErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.dispatches = append(m.dispatches, channel)
	return nil
}

func (m *mockSink) DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneCutoff = cutoff
	return 0, nil
}

func (m *mockSink) recoverableCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recoverable)
}

func (m *mockSink) dispatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dispatches)
}
