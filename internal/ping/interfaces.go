package ping

import (
	"context"
	"time"
)

// URLStore persists tracked URLs.
type URLStore interface {
	// Upsert creates the URL row on first ping and refreshes title/rss on
	// later ones, returning the stored record.
	Upsert(ctx context.Context, url TrackedURL) (TrackedURL, error)

	// UpdateAfterDispatch records the content hash and last-pinged time.
	UpdateAfterDispatch(ctx context.Context, urlID string, contentHash string, pingedAt time.Time) error

	Get(ctx context.Context, userID, urlID string) (TrackedURL, error)
}

// HistoryStore persists dispatch reports and serves the audit trail.
type HistoryStore interface {
	Record(ctx context.Context, rec HistoryRecord) error

	// Query returns records newest first, ties broken by surrogate id, with
	// the unpaged total count.
	Query(ctx context.Context, userID string, filter HistoryFilter, page Page) (HistoryPage, error)
}

// QuotaLedger tracks daily ping usage. TryConsume must be atomic with
// respect to concurrent dispatches for the same user: the read-and-increment
// is one conditional update, never read-then-write.
type QuotaLedger interface {
	// TryConsume charges one unit for requestID. A requestID that was
	// already charged consumes nothing and reports ok, which makes retried
	// jobs safe under at-least-once delivery. Returns *QuotaExceededError
	// when the cap is reached.
	TryConsume(ctx context.Context, userID, requestID string, day time.Time) (QuotaDecision, error)
}

// UserStore resolves authenticated identities and their plan rows.
type UserStore interface {
	Get(ctx context.Context, userID string) (User, error)
	GetByAPIKey(ctx context.Context, apiKey string) (User, error)
}

// Queue provides enqueue/dequeue semantics for asynchronous dispatches.
type Queue interface {
	Enqueue(ctx context.Context, cmd DispatchCommand) error
	Dequeue(ctx context.Context) (DispatchCommand, error)
}

// Hasher computes content fingerprints.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces request and record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
