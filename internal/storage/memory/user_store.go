// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sync"

	"github.com/pingmyweb/pingd/internal/ping"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = ping.ErrNotFound

// UserStore holds users keyed by id and API key.
type UserStore struct {
	mu       sync.RWMutex
	users    map[string]ping.User
	byAPIKey map[string]string
}

// NewUserStore constructs a UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		users:    make(map[string]ping.User),
		byAPIKey: make(map[string]string),
	}
}

// Put registers or replaces a user, optionally bound to an API key.
func (s *UserStore) Put(user ping.User, apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	if apiKey != "" {
		s.byAPIKey[apiKey] = user.ID
	}
}

// Get fetches a user by id.
func (s *UserStore) Get(_ context.Context, userID string) (ping.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return ping.User{}, ErrNotFound
	}
	return user, nil
}

// GetByAPIKey resolves a user from an API key.
func (s *UserStore) GetByAPIKey(_ context.Context, apiKey string) (ping.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byAPIKey[apiKey]
	if !ok {
		return ping.User{}, ErrNotFound
	}
	user, ok := s.users[userID]
	if !ok {
		return ping.User{}, ErrNotFound
	}
	return user, nil
}
