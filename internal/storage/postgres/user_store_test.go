package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingmyweb/pingd/internal/ping"
)

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "verified", "active", "daily_pings_used", "daily_pings_reset_at",
		"plan_id", "plan_name", "tier", "daily_ping_limit", "allow_api",
	})
}

func TestUserStoreGet(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUserStore(mock)
	require.NoError(t, err)

	resetAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM users u").
		WithArgs("user-1").
		WillReturnRows(userRows().
			AddRow("user-1", "owner@example.com", true, true, 7, resetAt,
				"plan-pro", "Pro", "pro", 50, true))

	user, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.True(t, user.Active)
	assert.Equal(t, 7, user.DailyPingsUsed)
	assert.Equal(t, ping.TierPro, user.Plan.Tier)
	assert.Equal(t, 50, user.Plan.DailyPingLimit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStoreGetByAPIKey(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUserStore(mock)
	require.NoError(t, err)

	resetAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM api_keys k").
		WithArgs("pmw_live_key").
		WillReturnRows(userRows().
			AddRow("user-2", "api@example.com", true, true, 0, resetAt,
				"plan-ent", "Enterprise", "enterprise", 500, true))

	user, err := store.GetByAPIKey(context.Background(), "pmw_live_key")
	require.NoError(t, err)
	assert.Equal(t, "user-2", user.ID)
	assert.Equal(t, ping.TierEnterprise, user.Plan.Tier)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStoreNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUserStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("FROM users u").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ping.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
