// Package urlutil normalizes URLs submitted for pinging.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize parses a raw URL string and returns its normalized form:
// lowercase scheme and host, default ports stripped, fragment removed,
// trailing slash trimmed except on the root path. It rejects anything that is
// not an absolute http or https URL, so malformed input never reaches the
// quota ledger or the network.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("url must be an absolute http or https url")
	}
	if u.Host == "" {
		return "", fmt.Errorf("url host is required")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Hostname()
	}

	u.Fragment = ""

	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}
