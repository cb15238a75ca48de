package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingmyweb/pingd/internal/ping"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%03d", g.n), nil
}

func TestUserStoreLookup(t *testing.T) {
	t.Parallel()

	store := NewUserStore()
	user := ping.User{
		ID:     "user-1",
		Email:  "owner@example.com",
		Active: true,
		Plan:   ping.Plan{ID: "plan-pro", Tier: ping.TierPro, DailyPingLimit: 50},
	}
	store.Put(user, "pmw_test_key")

	got, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	got, err = store.GetByAPIKey(context.Background(), "pmw_test_key")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetByAPIKey(context.Background(), "pmw_wrong")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestURLStoreUpsert(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewURLStore(&seqIDs{}, clock)
	ctx := context.Background()

	first, err := store.Upsert(ctx, ping.TrackedURL{
		UserID: "user-1",
		URL:    "https://example.com/blog",
		Title:  "Blog",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, clock.Now(), first.CreatedAt)

	clock.advance(time.Hour)

	second, err := store.Upsert(ctx, ping.TrackedURL{
		UserID: "user-1",
		URL:    "https://example.com/blog",
		RSSURL: "https://example.com/feed.xml",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same user+url must reuse the row")
	assert.Equal(t, "Blog", second.Title, "empty title must not clobber")
	assert.Equal(t, "https://example.com/feed.xml", second.RSSURL)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestURLStoreUpdateAfterDispatch(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := NewURLStore(&seqIDs{}, clock)
	ctx := context.Background()

	rec, err := store.Upsert(ctx, ping.TrackedURL{UserID: "user-1", URL: "https://example.com"})
	require.NoError(t, err)

	pingedAt := clock.Now().Add(time.Minute)
	require.NoError(t, store.UpdateAfterDispatch(ctx, rec.ID, "abc123", pingedAt))

	got, err := store.Get(ctx, "user-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.LastContentHash)
	require.NotNil(t, got.LastPingedAt)
	assert.Equal(t, pingedAt, *got.LastPingedAt)

	// An empty hash (content check skipped) keeps the previous fingerprint.
	require.NoError(t, store.UpdateAfterDispatch(ctx, rec.ID, "", pingedAt.Add(time.Minute)))
	got, err = store.Get(ctx, "user-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.LastContentHash)

	_, err = store.Get(ctx, "other-user", rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.UpdateAfterDispatch(ctx, "missing", "x", pingedAt), ErrNotFound)
}

func TestQuotaLedgerConsume(t *testing.T) {
	t.Parallel()

	ledger := NewQuotaLedger()
	ledger.SetLimit("user-1", 2)
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	dec, err := ledger.TryConsume(ctx, "user-1", "req-1", day)
	require.NoError(t, err)
	assert.True(t, dec.OK)
	assert.Equal(t, 1, dec.Remaining)

	dec, err = ledger.TryConsume(ctx, "user-1", "req-2", day)
	require.NoError(t, err)
	assert.True(t, dec.OK)
	assert.Equal(t, 0, dec.Remaining)

	_, err = ledger.TryConsume(ctx, "user-1", "req-3", day)
	require.Error(t, err)
	assert.True(t, ping.IsQuotaExceeded(err))
}

func TestQuotaLedgerIdempotentRequestID(t *testing.T) {
	t.Parallel()

	ledger := NewQuotaLedger()
	ledger.SetLimit("user-1", 1)
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := ledger.TryConsume(ctx, "user-1", "req-1", day)
	require.NoError(t, err)

	// Redelivered job: same request id is free even at the cap.
	dec, err := ledger.TryConsume(ctx, "user-1", "req-1", day)
	require.NoError(t, err)
	assert.True(t, dec.OK)
	assert.Equal(t, 0, dec.Remaining)
}

func TestQuotaLedgerDailyReset(t *testing.T) {
	t.Parallel()

	ledger := NewQuotaLedger()
	ledger.SetLimit("user-1", 1)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	_, err := ledger.TryConsume(ctx, "user-1", "req-1", day1)
	require.NoError(t, err)
	_, err = ledger.TryConsume(ctx, "user-1", "req-2", day1)
	require.Error(t, err)

	day2 := day1.Add(2 * time.Minute)
	dec, err := ledger.TryConsume(ctx, "user-1", "req-3", day2)
	require.NoError(t, err)
	assert.True(t, dec.OK)
	assert.Equal(t, 0, dec.Remaining)
}

func TestQuotaLedgerZeroLimitNeverGrants(t *testing.T) {
	t.Parallel()

	ledger := NewQuotaLedger()
	ledger.SetLimit("user-1", 0)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	_, err := ledger.TryConsume(ctx, "user-1", "req-1", day1)
	require.Error(t, err)
	assert.True(t, ping.IsQuotaExceeded(err))

	// The day rollover resets the counter but must not open the cap.
	day2 := day1.Add(2 * time.Minute)
	dec, err := ledger.TryConsume(ctx, "user-1", "req-2", day2)
	require.Error(t, err)
	assert.True(t, ping.IsQuotaExceeded(err))
	assert.False(t, dec.OK)
}

func TestQuotaLedgerConcurrentConsume(t *testing.T) {
	t.Parallel()

	const limit = 20
	const attempts = 100

	ledger := NewQuotaLedger()
	ledger.SetLimit("user-1", limit)
	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dec, err := ledger.TryConsume(context.Background(), "user-1", fmt.Sprintf("req-%d", i), day)
			if err != nil {
				return
			}
			if dec.OK {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, limit, granted, "exactly the cap must be granted under contention")
}

func TestHistoryStoreQueryOrderAndPaging(t *testing.T) {
	t.Parallel()

	store := NewHistoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, ping.HistoryRecord{
			ID:        fmt.Sprintf("rec-%d", i),
			UserID:    "user-1",
			URL:       "https://example.com/post",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	// Two ties at the same instant keep insertion order.
	for _, id := range []string{"tie-a", "tie-b"} {
		require.NoError(t, store.Record(ctx, ping.HistoryRecord{
			ID:        id,
			UserID:    "user-1",
			URL:       "https://example.com/tie",
			CreatedAt: base.Add(10 * time.Minute),
		}))
	}

	page, err := store.Query(ctx, "user-1", ping.HistoryFilter{}, ping.Page{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Records, 3)
	assert.Equal(t, "tie-a", page.Records[0].ID)
	assert.Equal(t, "tie-b", page.Records[1].ID)
	assert.Equal(t, "rec-4", page.Records[2].ID)

	page, err = store.Query(ctx, "user-1", ping.HistoryFilter{}, ping.Page{Limit: 3, Offset: 6})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "rec-0", page.Records[0].ID)

	page, err = store.Query(ctx, "other-user", ping.HistoryFilter{}, ping.Page{Limit: 3})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Records)
}

func TestHistoryStoreFilters(t *testing.T) {
	t.Parallel()

	store := NewHistoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := []ping.HistoryRecord{
		{ID: "a", UserID: "u", URLID: "url-1", URL: "https://example.com/blog", CreatedAt: base},
		{ID: "b", UserID: "u", URLID: "url-2", URL: "https://example.com/shop", CreatedAt: base.Add(time.Hour)},
		{ID: "c", UserID: "u", URLID: "url-3", URL: "https://other.net/blog", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "d", UserID: "u", URLID: "url-4", URL: "https://example.com/blog-2", CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, r := range rows {
		require.NoError(t, store.Record(ctx, r))
	}

	page, err := store.Query(ctx, "u", ping.HistoryFilter{URLSubstring: "BLOG"}, ping.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	// URLID is an exact match: the newer /blog-2 row must not shadow /blog.
	page, err = store.Query(ctx, "u", ping.HistoryFilter{URLID: "url-1"}, ping.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "a", page.Records[0].ID)

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)
	page, err = store.Query(ctx, "u", ping.HistoryFilter{From: &from, To: &to}, ping.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "b", page.Records[0].ID)
}

func TestHistoryStoreDefaultPageSize(t *testing.T) {
	t.Parallel()

	store := NewHistoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		require.NoError(t, store.Record(ctx, ping.HistoryRecord{
			ID:        fmt.Sprintf("rec-%d", i),
			UserID:    "user-1",
			URL:       "https://example.com/post",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := store.Query(ctx, "user-1", ping.HistoryFilter{}, ping.Page{})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 20, page.Limit)
	assert.Len(t, page.Records, 20)
}
