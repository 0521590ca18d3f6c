package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sipwell/agent/internal/domain"
)

type ReminderStore struct {
	db *pgxpool.Pool
}

func NewReminderStore(db *pgxpool.Pool) *ReminderStore {
	return &ReminderStore{db: db}
}

func (s *ReminderStore) Create(ctx context.Context, r *domain.ReminderRecord) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO reminder_records (id, scheduled_for, state, channel, response_kind, snooze_seconds, decision_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		r.ID, r.ScheduledFor, r.State, r.Channel,
		responseKind(r.Response), snoozeSeconds(r.Response), nullableUUID(r.DecisionID),
	).Scan(&r.CreatedAt)
}

func (s *ReminderStore) Update(ctx context.Context, r *domain.ReminderRecord) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE reminder_records
		 SET state = $2, channel = $3, response_kind = $4, snooze_seconds = $5, archived = $6
		 WHERE id = $1`,
		r.ID, r.State, r.Channel, responseKind(r.Response), snoozeSeconds(r.Response), r.Archived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ReminderStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReminderRecord, error) {
	r, err := scanReminder(s.db.QueryRow(ctx,
		`SELECT id, scheduled_for, state, channel, response_kind, snooze_seconds, decision_id, created_at, archived
		 FROM reminder_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// ListRecent returns the newest records first, unarchived only.
func (s *ReminderStore) ListRecent(ctx context.Context, limit int) ([]domain.ReminderRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, scheduled_for, state, channel, response_kind, snooze_seconds, decision_id, created_at, archived
		 FROM reminder_records
		 WHERE NOT archived
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ReminderRecord
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// ArchiveTerminalBefore archives reminder records whose lifecycle ended
// before the cutoff.
func (s *ReminderStore) ArchiveTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE reminder_records
		 SET archived = TRUE
		 WHERE NOT archived
		   AND state IN ('dismissed', 'snoozed', 'ignored')
		   AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*domain.ReminderRecord, error) {
	var (
		r          domain.ReminderRecord
		respKind   *string
		snoozeSecs *int64
		decisionID *uuid.UUID
	)
	if err := row.Scan(&r.ID, &r.ScheduledFor, &r.State, &r.Channel,
		&respKind, &snoozeSecs, &decisionID, &r.CreatedAt, &r.Archived); err != nil {
		return nil, err
	}
	if respKind != nil {
		resp := domain.UserResponse{Kind: domain.ResponseKind(*respKind)}
		if snoozeSecs != nil {
			resp.SnoozeFor = time.Duration(*snoozeSecs) * time.Second
		}
		r.Response = &resp
	}
	if decisionID != nil {
		r.DecisionID = *decisionID
	}
	return &r, nil
}

func responseKind(resp *domain.UserResponse) *string {
	if resp == nil {
		return nil
	}
	k := string(resp.Kind)
	return &k
}

func snoozeSeconds(resp *domain.UserResponse) *int64 {
	if resp == nil || resp.Kind != domain.ResponseSnoozed {
		return nil
	}
	s := int64(resp.SnoozeFor / time.Second)
	return &s
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
