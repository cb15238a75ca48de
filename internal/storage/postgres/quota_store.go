package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pingmyweb/pingd/internal/ping"
)

// dedupeInsert records a request id exactly once. Zero rows affected means
// the request was already charged.
const dedupeInsert = `
INSERT INTO dispatch_requests (request_id, user_id, requested_at)
VALUES ($1, $2, $3)
ON CONFLICT (request_id) DO NOTHING`

// consumeUpdate is the atomic read-and-increment. It resets the counter when
// the stored reset marker is from an earlier day, and matches no row when the
// cap is already reached for the current day. The rollover arm still requires
// a positive cap so a zero-limit plan never charges the first ping of a day.
const consumeUpdate = `
UPDATE users u SET
	daily_pings_used = CASE WHEN u.daily_pings_reset_at::date < $2::date THEN 1 ELSE u.daily_pings_used + 1 END,
	daily_pings_reset_at = CASE WHEN u.daily_pings_reset_at::date < $2::date THEN $2 ELSE u.daily_pings_reset_at END
FROM subscription_plans p
WHERE u.id = $1
  AND p.id = u.plan_id
  AND ((u.daily_pings_reset_at::date < $2::date AND p.daily_ping_limit > 0) OR u.daily_pings_used < p.daily_ping_limit)
RETURNING p.daily_ping_limit - u.daily_pings_used`

const remainingSelect = `
SELECT GREATEST(p.daily_ping_limit - u.daily_pings_used, 0), p.daily_ping_limit
FROM users u
JOIN subscription_plans p ON p.id = u.plan_id
WHERE u.id = $1`

// QuotaLedger charges daily usage against the users table.
type QuotaLedger struct {
	db DB
}

// NewQuotaLedger constructs a QuotaLedger on an existing pool.
func NewQuotaLedger(db DB) (*QuotaLedger, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &QuotaLedger{db: db}, nil
}

// TryConsume charges one unit for requestID inside a transaction, so the
// dedupe insert and the counter increment commit or roll back together. A
// request id that was already charged consumes nothing and reports ok.
func (l *QuotaLedger) TryConsume(ctx context.Context, userID, requestID string, day time.Time) (ping.QuotaDecision, error) {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return ping.QuotaDecision{}, fmt.Errorf("begin quota tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, dedupeInsert, requestID, userID, day)
	if err != nil {
		return ping.QuotaDecision{}, fmt.Errorf("record request id: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Redelivered job: already charged, just report the remaining quota.
		var remaining, limit int
		if err := tx.QueryRow(ctx, remainingSelect, userID).Scan(&remaining, &limit); err != nil {
			return ping.QuotaDecision{}, fmt.Errorf("select remaining quota: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return ping.QuotaDecision{}, fmt.Errorf("commit quota tx: %w", err)
		}
		return ping.QuotaDecision{OK: true, Remaining: remaining}, nil
	}

	var remaining int
	err = tx.QueryRow(ctx, consumeUpdate, userID, day).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		// Cap reached, or no such user. The rollback discards the dedupe row
		// so a later retry of the same request id is charged normally.
		var unused, limit int
		if err := l.db.QueryRow(ctx, remainingSelect, userID).Scan(&unused, &limit); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ping.QuotaDecision{}, ping.ErrNotFound
			}
			return ping.QuotaDecision{}, fmt.Errorf("select quota limit: %w", err)
		}
		return ping.QuotaDecision{Remaining: 0}, &ping.QuotaExceededError{Limit: limit}
	}
	if err != nil {
		return ping.QuotaDecision{}, fmt.Errorf("consume quota: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ping.QuotaDecision{}, fmt.Errorf("commit quota tx: %w", err)
	}
	return ping.QuotaDecision{OK: true, Remaining: remaining}, nil
}
