package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pingmyweb/pingd/internal/ping"
)

// URLStore persists tracked URLs.
type URLStore struct {
	db    DB
	ids   ping.IDGenerator
	clock ping.Clock
}

// NewURLStore constructs a URLStore on an existing pool.
func NewURLStore(db DB, ids ping.IDGenerator, clock ping.Clock) (*URLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &URLStore{db: db, ids: ids, clock: clock}, nil
}

// Upsert creates the row on first ping; later pings refresh title/rss only
// when the new values are non-empty.
func (s *URLStore) Upsert(ctx context.Context, url ping.TrackedURL) (ping.TrackedURL, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return ping.TrackedURL{}, fmt.Errorf("generate url id: %w", err)
	}
	now := s.clock.Now()

	query := `
INSERT INTO urls (id, user_id, url, title, rss_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (user_id, url) DO UPDATE SET
	title = COALESCE(NULLIF(EXCLUDED.title, ''), urls.title),
	rss_url = COALESCE(NULLIF(EXCLUDED.rss_url, ''), urls.rss_url),
	updated_at = EXCLUDED.updated_at
RETURNING id, user_id, url, title, rss_url, COALESCE(last_content_hash, ''), last_pinged_at, created_at, updated_at`

	row := s.db.QueryRow(ctx, query, id, url.UserID, url.URL, url.Title, url.RSSURL, now)
	rec, err := scanURL(row)
	if err != nil {
		return ping.TrackedURL{}, fmt.Errorf("upsert url: %w", err)
	}
	return rec, nil
}

// UpdateAfterDispatch records the content hash and last-pinged time. An empty
// hash keeps the stored fingerprint.
func (s *URLStore) UpdateAfterDispatch(ctx context.Context, urlID string, contentHash string, pingedAt time.Time) error {
	query := `
UPDATE urls SET
	last_content_hash = COALESCE(NULLIF($2, ''), last_content_hash),
	last_pinged_at = $3,
	updated_at = $3
WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, urlID, contentHash, pingedAt)
	if err != nil {
		return fmt.Errorf("update url after dispatch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ping.ErrNotFound
	}
	return nil
}

// Get fetches a tracked URL owned by userID.
func (s *URLStore) Get(ctx context.Context, userID, urlID string) (ping.TrackedURL, error) {
	query := `
SELECT id, user_id, url, title, rss_url, COALESCE(last_content_hash, ''), last_pinged_at, created_at, updated_at
FROM urls
WHERE id = $1 AND user_id = $2`
	rec, err := scanURL(s.db.QueryRow(ctx, query, urlID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ping.TrackedURL{}, ping.ErrNotFound
	}
	if err != nil {
		return ping.TrackedURL{}, fmt.Errorf("select url: %w", err)
	}
	return rec, nil
}

func scanURL(row pgx.Row) (ping.TrackedURL, error) {
	var rec ping.TrackedURL
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.URL,
		&rec.Title,
		&rec.RSSURL,
		&rec.LastContentHash,
		&rec.LastPingedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}
