package ping

import (
	"errors"
	"fmt"
)

// Sentinel rejections returned by the orchestrator before any fan-out side
// effect. Everything inside the fan-out itself is captured as attempt
// results, never as errors.
var (
	// ErrInvalidURL rejects input that does not parse as an absolute
	// http(s) URL. No quota is consumed, no network call is made.
	ErrInvalidURL = errors.New("invalid url")

	// ErrUserInactive rejects dispatches for disabled or missing accounts.
	ErrUserInactive = errors.New("user inactive")

	// ErrNoContentChange terminates a content-gated dispatch whose
	// fingerprint matched the stored hash. It is a no-op outcome, not a
	// failure, and consumes no quota.
	ErrNoContentChange = errors.New("no content change detected")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// QuotaExceededError rejects a dispatch once the daily cap is reached.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily ping quota of %d exhausted", e.Limit)
}

// IsQuotaExceeded reports whether err is a quota rejection.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
