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

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedIDs struct{ id string }

func (g fixedIDs) NewID() (string, error) { return g.id, nil }

func TestURLStoreUpsertReturnsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := NewURLStore(mock, fixedIDs{id: "url-1"}, fixedClock{now: now})
	require.NoError(t, err)

	mock.ExpectQuery("INSERT INTO urls").
		WithArgs("url-1", "user-1", "https://example.com/blog", "Blog", "https://example.com/feed.xml", now).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "url", "title", "rss_url", "last_content_hash", "last_pinged_at", "created_at", "updated_at",
		}).AddRow("url-1", "user-1", "https://example.com/blog", "Blog", "https://example.com/feed.xml", "", nil, now, now))

	rec, err := store.Upsert(context.Background(), ping.TrackedURL{
		UserID: "user-1",
		URL:    "https://example.com/blog",
		Title:  "Blog",
		RSSURL: "https://example.com/feed.xml",
	})
	require.NoError(t, err)
	assert.Equal(t, "url-1", rec.ID)
	assert.Equal(t, "Blog", rec.Title)
	assert.Nil(t, rec.LastPingedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestURLStoreUpdateAfterDispatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store, err := NewURLStore(mock, fixedIDs{id: "unused"}, fixedClock{now: now})
	require.NoError(t, err)

	mock.ExpectExec("UPDATE urls SET").
		WithArgs("url-1", "abc123", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateAfterDispatch(context.Background(), "url-1", "abc123", now))

	mock.ExpectExec("UPDATE urls SET").
		WithArgs("gone", "abc123", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateAfterDispatch(context.Background(), "gone", "abc123", now)
	assert.ErrorIs(t, err, ping.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestURLStoreGetNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewURLStore(mock, fixedIDs{id: "unused"}, fixedClock{now: time.Now()})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, user_id, url, title").
		WithArgs("url-9", "user-1").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.Get(context.Background(), "user-1", "url-9")
	assert.ErrorIs(t, err, ping.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
