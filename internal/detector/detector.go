// Package detector decides whether a URL's content changed enough to warrant
// a re-ping.
package detector

import (
	"context"

	"go.uber.org/zap"

	"github.com/pingmyweb/pingd/internal/ping"
)

// ContentFetcher retrieves the current content of a URL.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Decision is the outcome of a change check.
type Decision struct {
	Changed bool
	NewHash string

	// FetchFailed marks a fail-open decision: the content could not be
	// fetched, so the dispatch proceeds as if it had changed.
	FetchFailed bool
}

// Detector computes content fingerprints and compares them against the last
// stored hash.
type Detector struct {
	fetcher ContentFetcher
	hasher  ping.Hasher
	logger  *zap.Logger
}

// New constructs a Detector.
func New(fetcher ContentFetcher, hasher ping.Hasher, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{fetcher: fetcher, hasher: hasher, logger: logger}
}

// ShouldPing fetches the tracked URL, fingerprints the content and compares
// it to the stored hash.
//
// Fetch failures fail open: a transient network error or non-HTML response
// must never suppress a user-initiated ping, so the decision reports changed
// with no new hash. Suppressing on error would break the product's core
// promise for exactly the URLs that need pinging most.
func (d *Detector) ShouldPing(ctx context.Context, tracked ping.TrackedURL) Decision {
	content, err := d.fetcher.Fetch(ctx, tracked.URL)
	if err != nil {
		d.logger.Warn("content fetch failed, failing open",
			zap.String("url", tracked.URL),
			zap.Error(err),
		)
		return Decision{Changed: true, FetchFailed: true}
	}

	newHash, err := d.hasher.Hash(content)
	if err != nil {
		d.logger.Warn("content hash failed, failing open",
			zap.String("url", tracked.URL),
			zap.Error(err),
		)
		return Decision{Changed: true, FetchFailed: true}
	}

	if tracked.LastContentHash != "" && tracked.LastContentHash == newHash {
		return Decision{Changed: false, NewHash: newHash}
	}
	return Decision{Changed: true, NewHash: newHash}
}
