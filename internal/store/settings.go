package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sipwell/agent/internal/domain"
)

// SettingsStore persists the single user settings snapshot.
// Intervals are stored as whole seconds.
type SettingsStore struct {
	db *pgxpool.Pool
}

func NewSettingsStore(db *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Load(ctx context.Context) (*domain.ReminderSettings, error) {
	var (
		minSecs, maxSecs int64
		out              domain.ReminderSettings
	)
	err := s.db.QueryRow(ctx,
		`SELECT min_interval_seconds, max_interval_seconds, quiet_start_minute, quiet_end_minute,
		        disruption_level, start_minimized, retention_days, updated_at
		 FROM reminder_settings WHERE id = 1`,
	).Scan(&minSecs, &maxSecs, &out.QuietHours.StartMinute, &out.QuietHours.EndMinute,
		&out.Disruption, &out.StartMinimized, &out.RetentionDays, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out.MinInterval = time.Duration(minSecs) * time.Second
	out.MaxInterval = time.Duration(maxSecs) * time.Second
	return &out, nil
}

func (s *SettingsStore) Save(ctx context.Context, in *domain.ReminderSettings) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO reminder_settings (id, min_interval_seconds, max_interval_seconds, quiet_start_minute,
		                                quiet_end_minute, disruption_level, start_minimized, retention_days)
		 VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id)
		 DO UPDATE SET min_interval_seconds = EXCLUDED.min_interval_seconds,
		               max_interval_seconds = EXCLUDED.max_interval_seconds,
		               quiet_start_minute = EXCLUDED.quiet_start_minute,
		               quiet_end_minute = EXCLUDED.quiet_end_minute,
		               disruption_level = EXCLUDED.disruption_level,
		               start_minimized = EXCLUDED.start_minimized,
		               retention_days = EXCLUDED.retention_days,
		               updated_at = NOW()
		 RETURNING updated_at`,
		int64(in.MinInterval/time.Second), int64(in.MaxInterval/time.Second),
		in.QuietHours.StartMinute, in.QuietHours.EndMinute,
		in.Disruption, in.StartMinimized, in.RetentionDays,
	).Scan(&in.UpdatedAt)
}
