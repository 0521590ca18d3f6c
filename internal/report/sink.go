// Package report implements the durable error-reporting sink and the
// direct-log fallback used when the sink itself is unavailable.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sipwell/agent/internal/domain"
)

type severity string

const (
	severityRecoverable severity = "recoverable"
	severityCritical    severity = "critical"
	severityDispatch    severity = "dispatch"
)

// PostgresSink writes reports to the error_reports table.
type PostgresSink struct {
	db *pgxpool.Pool
}

func NewPostgresSink(db *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) ReportRecoverable(ctx context.Context, reportErr error, hints []string) error {
	return s.insert(ctx, severityRecoverable, reportErr, hints, false, nil, nil)
}

func (s *PostgresSink) ReportCritical(ctx context.Context, reportErr error, fatal bool) error {
	return s.insert(ctx, severityCritical, reportErr, nil, fatal, nil, nil)
}

// ReportDispatch records one delivery attempt, success or failure.
func (s *PostgresSink) ReportDispatch(ctx context.Context, recordID uuid.UUID, channel domain.ChannelKind, dispatchErr error) error {
	ch := string(channel)
	return s.insert(ctx, severityDispatch, dispatchErr, nil, false, &recordID, &ch)
}

func (s *PostgresSink) insert(ctx context.Context, sev severity, reportErr error, hints []string, fatal bool, recordID *uuid.UUID, channel *string) error {
	kind, code, service := classify(reportErr)
	var msg *string
	if reportErr != nil {
		m := reportErr.Error()
		msg = &m
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO error_reports (severity, kind, code, service, message, hints, fatal, record_id, channel)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sev, kind, code, service, msg, hints, fatal, recordID, channel)
	return err
}

// DeleteReportsBefore prunes reports past the retention horizon.
func (s *PostgresSink) DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM error_reports WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func classify(err error) (kind, code, service string) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return string(derr.Kind), derr.Code, derr.Service
	}
	return "", "", ""
}
