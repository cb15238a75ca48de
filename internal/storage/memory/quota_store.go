package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pingmyweb/pingd/internal/ping"
)

type quotaState struct {
	limit   int
	used    int
	resetAt time.Time
}

// QuotaLedger tracks daily usage per user under a single mutex, so the
// read-and-increment is atomic with respect to concurrent dispatches.
type QuotaLedger struct {
	mu      sync.Mutex
	users   map[string]*quotaState
	charged map[string]struct{}
}

// NewQuotaLedger constructs an empty ledger. Users must be registered with
// SetLimit before they can consume.
func NewQuotaLedger() *QuotaLedger {
	return &QuotaLedger{
		users:   make(map[string]*quotaState),
		charged: make(map[string]struct{}),
	}
}

// SetLimit registers a user's daily cap, resetting any prior usage.
func (l *QuotaLedger) SetLimit(userID string, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[userID] = &quotaState{limit: limit}
}

// TryConsume charges one unit for requestID. Already-charged request IDs
// consume nothing and report ok.
func (l *QuotaLedger) TryConsume(_ context.Context, userID, requestID string, day time.Time) (ping.QuotaDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.users[userID]
	if !ok {
		return ping.QuotaDecision{}, ErrNotFound
	}

	if !sameDay(state.resetAt, day) {
		state.used = 0
		state.resetAt = day
	}

	if _, dup := l.charged[requestID]; dup {
		return ping.QuotaDecision{OK: true, Remaining: state.limit - state.used}, nil
	}

	if state.used >= state.limit {
		return ping.QuotaDecision{Remaining: 0}, &ping.QuotaExceededError{Limit: state.limit}
	}

	state.used++
	l.charged[requestID] = struct{}{}
	return ping.QuotaDecision{OK: true, Remaining: state.limit - state.used}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
