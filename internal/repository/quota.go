package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuotaRepository is the persistent daily counter store for the quota gate.
type QuotaRepository struct {
	db dbtx
}

func NewQuotaRepository(pool *pgxpool.Pool) *QuotaRepository {
	return &QuotaRepository{db: pool}
}

// Consume atomically adds cost to the identity's counter for the given day,
// but only when the result stays within limit. The increment-and-compare is
// a single statement, so concurrent requests from one identity cannot
// double-spend: the conditional update either applies and returns the new
// counter, or returns no row and writes nothing.
func (r *QuotaRepository) Consume(ctx context.Context, identityKey string, day time.Time, cost, limit int) (int, bool, error) {
	if cost > limit {
		return 0, false, nil
	}

	var used int
	err := r.db.QueryRow(ctx,
		`INSERT INTO agent_quota (identity_key, day, used)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (identity_key, day) DO UPDATE
		 SET used = agent_quota.used + EXCLUDED.used
		 WHERE agent_quota.used + EXCLUDED.used <= $4
		 RETURNING used`,
		identityKey, day, cost, limit,
	).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conditional update declined: over limit, nothing written.
			return 0, false, nil
		}
		return 0, false, err
	}

	return used, true, nil
}
