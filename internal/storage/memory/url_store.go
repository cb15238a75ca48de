package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pingmyweb/pingd/internal/ping"
)

type urlKey struct {
	userID string
	url    string
}

// URLStore keeps tracked URLs in a map keyed by (user, url).
type URLStore struct {
	mu    sync.RWMutex
	byKey map[urlKey]*ping.TrackedURL
	byID  map[string]*ping.TrackedURL
	ids   ping.IDGenerator
	clock ping.Clock
}

// NewURLStore constructs a URLStore.
func NewURLStore(ids ping.IDGenerator, clock ping.Clock) *URLStore {
	return &URLStore{
		byKey: make(map[urlKey]*ping.TrackedURL),
		byID:  make(map[string]*ping.TrackedURL),
		ids:   ids,
		clock: clock,
	}
}

// Upsert creates the row on first sight, otherwise refreshes title/rss when
// the new values are non-empty.
func (s *URLStore) Upsert(_ context.Context, url ping.TrackedURL) (ping.TrackedURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	key := urlKey{userID: url.UserID, url: url.URL}
	if existing, ok := s.byKey[key]; ok {
		if url.Title != "" {
			existing.Title = url.Title
		}
		if url.RSSURL != "" {
			existing.RSSURL = url.RSSURL
		}
		existing.UpdatedAt = now
		return *existing, nil
	}

	id, err := s.ids.NewID()
	if err != nil {
		return ping.TrackedURL{}, err
	}
	rec := &ping.TrackedURL{
		ID:        id,
		UserID:    url.UserID,
		URL:       url.URL,
		Title:     url.Title,
		RSSURL:    url.RSSURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byKey[key] = rec
	s.byID[id] = rec
	return *rec, nil
}

// UpdateAfterDispatch records the latest content hash and ping time.
func (s *URLStore) UpdateAfterDispatch(_ context.Context, urlID string, contentHash string, pingedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[urlID]
	if !ok {
		return ErrNotFound
	}
	if contentHash != "" {
		rec.LastContentHash = contentHash
	}
	ts := pingedAt
	rec.LastPingedAt = &ts
	rec.UpdatedAt = pingedAt
	return nil
}

// Get fetches a tracked URL owned by userID.
func (s *URLStore) Get(_ context.Context, userID, urlID string) (ping.TrackedURL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[urlID]
	if !ok || rec.UserID != userID {
		return ping.TrackedURL{}, ErrNotFound
	}
	return *rec, nil
}
