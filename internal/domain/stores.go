package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SettingsStore interface {
	Load(ctx context.Context) (*ReminderSettings, error)
	Save(ctx context.Context, s *ReminderSettings) error
}

type ActivityStore interface {
	Append(ctx context.Context, sample *ActivitySample) error
	RecentSamples(ctx context.Context, window time.Duration) ([]ActivitySample, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ReminderStore interface {
	Create(ctx context.Context, r *ReminderRecord) error
	Update(ctx context.Context, r *ReminderRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*ReminderRecord, error)
	ListRecent(ctx context.Context, limit int) ([]ReminderRecord, error)
	ArchiveTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeliveryChannel renders a reminder on some surface. Implementations
// dispatch and return; awaiting the user's response is the scheduler's
// job, bounded by the response timeout.
type DeliveryChannel interface {
	Kind() ChannelKind
	Show(ctx context.Context, msg ReminderMessage) error
}

// ReportSink is the durable record of reported errors and dispatch
// telemetry. Failure of the sink itself is the one condition that
// triggers the fallback direct-log path.
type ReportSink interface {
	ReportRecoverable(ctx context.Context, err error, hints []string) error
	ReportCritical(ctx context.Context, err error, fatal bool) error
	ReportDispatch(ctx context.Context, recordID uuid.UUID, channel ChannelKind, dispatchErr error) error
}

// ReportStore is the pruning side of the report sink's storage.
type ReportStore interface {
	DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
