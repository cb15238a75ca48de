package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pingmyweb/pingd/internal/ping"
)

// defaultHistoryPageSize applies when the caller leaves Page.Limit unset,
// matching the postgres store.
const defaultHistoryPageSize = 20

type historyEntry struct {
	rec ping.HistoryRecord
	seq int
}

// HistoryStore keeps dispatch history per user in insertion order.
type HistoryStore struct {
	mu      sync.RWMutex
	byUser  map[string][]historyEntry
	nextSeq int
}

// NewHistoryStore constructs a HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{byUser: make(map[string][]historyEntry)}
}

// Record appends a history row.
func (s *HistoryStore) Record(_ context.Context, rec ping.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[rec.UserID] = append(s.byUser[rec.UserID], historyEntry{rec: rec, seq: s.nextSeq})
	s.nextSeq++
	return nil
}

// Query returns records newest first, ties broken by insertion order, plus
// the total count matching the filter.
func (s *HistoryStore) Query(_ context.Context, userID string, filter ping.HistoryFilter, page ping.Page) (ping.HistoryPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []historyEntry
	for _, e := range s.byUser[userID] {
		if matches(e.rec, filter) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].rec.CreatedAt.Equal(matched[j].rec.CreatedAt) {
			return matched[i].rec.CreatedAt.After(matched[j].rec.CreatedAt)
		}
		return matched[i].seq < matched[j].seq
	})

	if page.Limit <= 0 {
		page.Limit = defaultHistoryPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	out := ping.HistoryPage{
		Total:  len(matched),
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	start := page.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if start+page.Limit < end {
		end = start + page.Limit
	}
	for _, e := range matched[start:end] {
		out.Records = append(out.Records, e.rec)
	}
	return out, nil
}

func matches(rec ping.HistoryRecord, filter ping.HistoryFilter) bool {
	if filter.URLID != "" && rec.URLID != filter.URLID {
		return false
	}
	if filter.URLSubstring != "" &&
		!strings.Contains(strings.ToLower(rec.URL), strings.ToLower(filter.URLSubstring)) {
		return false
	}
	if filter.From != nil && rec.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && rec.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}
