package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sipwell/agent/internal/domain"
)

type ActivityStore struct {
	db *pgxpool.Pool
}

func NewActivityStore(db *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{db: db}
}

func (s *ActivityStore) Append(ctx context.Context, sample *domain.ActivitySample) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO activity_samples (ts, active, app_category)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		sample.Timestamp, sample.Active, sample.AppCategory,
	).Scan(&sample.ID)
}

// RecentSamples returns samples within the trailing window, oldest first.
func (s *ActivityStore) RecentSamples(ctx context.Context, window time.Duration) ([]domain.ActivitySample, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, ts, active, app_category
		 FROM activity_samples
		 WHERE ts >= NOW() - $1::interval
		 ORDER BY ts ASC`,
		window,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.ActivitySample
	for rows.Next() {
		var sample domain.ActivitySample
		if err := rows.Scan(&sample.ID, &sample.Timestamp, &sample.Active, &sample.AppCategory); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func (s *ActivityStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM activity_samples WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
