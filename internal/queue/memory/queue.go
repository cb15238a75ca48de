// Package memory provides queue implementations for local development.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pingmyweb/pingd/internal/metrics"
	"github.com/pingmyweb/pingd/internal/ping"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan ping.DispatchCommand
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	metrics.Init()
	return &Queue{
		ch: make(chan ping.DispatchCommand, capacity),
	}
}

// Enqueue pushes a dispatch command or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, cmd ping.DispatchCommand) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- cmd:
		metrics.SetQueueDepth(len(q.ch))
		return nil
	}
}

// Dequeue pops the next command, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (ping.DispatchCommand, error) {
	select {
	case <-ctx.Done():
		return ping.DispatchCommand{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case cmd, ok := <-q.ch:
		if !ok {
			return ping.DispatchCommand{}, errors.New("queue closed")
		}
		metrics.SetQueueDepth(len(q.ch))
		return cmd, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
