package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pingmyweb/pingd/internal/ping"
)

const userColumns = `
	u.id,
	u.email,
	u.verified,
	u.active,
	u.daily_pings_used,
	u.daily_pings_reset_at,
	p.id,
	p.name,
	p.tier,
	p.daily_ping_limit,
	p.allow_api`

// UserStore reads account rows joined with their subscription plan.
type UserStore struct {
	db DB
}

// NewUserStore constructs a UserStore on an existing pool.
func NewUserStore(db DB) (*UserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &UserStore{db: db}, nil
}

// Get fetches a user by id.
func (s *UserStore) Get(ctx context.Context, userID string) (ping.User, error) {
	query := `
SELECT` + userColumns + `
FROM users u
JOIN subscription_plans p ON p.id = u.plan_id
WHERE u.id = $1`
	return s.scanUser(s.db.QueryRow(ctx, query, userID))
}

// GetByAPIKey resolves a user from an active API key.
func (s *UserStore) GetByAPIKey(ctx context.Context, apiKey string) (ping.User, error) {
	query := `
SELECT` + userColumns + `
FROM api_keys k
JOIN users u ON u.id = k.user_id
JOIN subscription_plans p ON p.id = u.plan_id
WHERE k.api_key = $1 AND k.active`
	return s.scanUser(s.db.QueryRow(ctx, query, apiKey))
}

func (s *UserStore) scanUser(row pgx.Row) (ping.User, error) {
	var u ping.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Verified,
		&u.Active,
		&u.DailyPingsUsed,
		&u.DailyPingsResetAt,
		&u.Plan.ID,
		&u.Plan.Name,
		&u.Plan.Tier,
		&u.Plan.DailyPingLimit,
		&u.Plan.AllowAPI,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ping.User{}, ping.ErrNotFound
	}
	if err != nil {
		return ping.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}
