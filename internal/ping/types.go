// Package ping defines core types shared across subsystems.
package ping

import (
	"time"
)

// Category groups ping targets by the kind of service they notify.
type Category string

// Category values; the catalog covers exactly these five.
const (
	CategorySearchEngines    Category = "search_engines"
	CategoryContentDiscovery Category = "content_discovery"
	CategoryAggregators      Category = "aggregators"
	CategoryRegionalEngines  Category = "regional_engines"
	CategoryWebSub           Category = "websub"
)

// AllCategories lists every category in catalog order.
func AllCategories() []Category {
	return []Category{
		CategorySearchEngines,
		CategoryContentDiscovery,
		CategoryAggregators,
		CategoryRegionalEngines,
		CategoryWebSub,
	}
}

// Tier is the entitlement level gating category access and daily quota.
type Tier string

// Tier values ordered Free < Pro < Enterprise.
const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Covers reports whether t grants at least the access of min.
func (t Tier) Covers(min Tier) bool {
	return tierRank(t) >= tierRank(min)
}

func tierRank(t Tier) int {
	switch t {
	case TierPro:
		return 1
	case TierEnterprise:
		return 2
	default:
		return 0
	}
}

// Protocol identifies how a target is invoked on the wire.
type Protocol string

// Protocol values supported by the adapters.
const (
	ProtocolGet      Protocol = "get"
	ProtocolPostJSON Protocol = "post_json"
	ProtocolPostForm Protocol = "post_form"
	ProtocolXMLRPC   Protocol = "xmlrpc"
)

// PingTarget is one external service endpoint. Targets are loaded into the
// catalog at process start and never mutated afterwards.
type PingTarget struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Protocol Protocol `json:"protocol"`
	Endpoint string   `json:"endpoint"`

	// Params maps query/body/form field names to value templates. Templates
	// may contain {url}, {title} and {rssUrl} placeholders.
	Params map[string]string `json:"params,omitempty"`

	// XMLRPCMethod is the method name for ProtocolXMLRPC targets, e.g.
	// "weblogUpdates.ping" or "weblogUpdates.extendedPing".
	XMLRPCMethod string `json:"xmlrpc_method,omitempty"`

	// MinTier is the lowest plan tier allowed to use this target.
	MinTier Tier `json:"min_tier"`
}

// AnnotatedTarget is a catalog view entry carrying availability for a tier.
type AnnotatedTarget struct {
	PingTarget
	Available bool `json:"available"`
}

// Plan is a subscription plan row. Referenced by users, never owned.
type Plan struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Tier           Tier   `json:"tier"`
	DailyPingLimit int    `json:"daily_ping_limit"`
	AllowAPI       bool   `json:"allow_api"`
}

// User is an account row joined with its plan. The quota ledger is the sole
// mutator of the daily counters.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Verified         bool      `json:"verified"`
	Active           bool      `json:"active"`
	Plan             Plan      `json:"plan"`
	DailyPingsUsed   int       `json:"daily_pings_used"`
	DailyPingsResetAt time.Time `json:"daily_pings_reset_at"`
}

// TrackedURL is a URL a user has pinged at least once.
type TrackedURL struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	URL             string     `json:"url"`
	Title           string     `json:"title,omitempty"`
	RSSURL          string     `json:"rss_url,omitempty"`
	LastContentHash string     `json:"last_content_hash,omitempty"`
	LastPingedAt    *time.Time `json:"last_pinged_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AttemptCode classifies how a target invocation ended.
type AttemptCode string

// Attempt classification codes.
const (
	AttemptOK             AttemptCode = "ok"
	AttemptHTTPError      AttemptCode = "http_error"
	AttemptTimeout        AttemptCode = "timeout"
	AttemptTransportError AttemptCode = "transport_error"
	AttemptXMLRPCFault    AttemptCode = "xmlrpc_fault"
	AttemptInvalidRequest AttemptCode = "invalid_request"
)

// PingAttemptResult is the outcome of invoking a single target. Attempts are
// never persisted individually; they are always aggregated into a report.
type PingAttemptResult struct {
	Target     string      `json:"target"`
	Success    bool        `json:"success"`
	Code       AttemptCode `json:"code"`
	StatusCode int         `json:"status_code,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// DispatchReport maps category -> target key -> attempt result. Every
// category the entitlement resolver authorized appears as a key, even when
// all its targets failed. Append-only once created.
type DispatchReport map[Category]map[string]PingAttemptResult

// Attempts counts total and successful attempts across all categories.
func (r DispatchReport) Attempts() (total, succeeded int) {
	for _, targets := range r {
		for _, res := range targets {
			total++
			if res.Success {
				succeeded++
			}
		}
	}
	return total, succeeded
}

// SuccessRatePercent is successful/total across the whole report, 0 when the
// report is empty.
func (r DispatchReport) SuccessRatePercent() float64 {
	total, succeeded := r.Attempts()
	if total == 0 {
		return 0
	}
	return float64(succeeded) / float64(total) * 100
}

// DispatchRequest carries everything needed for one dispatch invocation.
type DispatchRequest struct {
	// RequestID dedupes quota consumption under at-least-once redelivery.
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	RSSURL    string `json:"rss_url,omitempty"`

	// Categories restricts the fan-out to a subset of the entitled
	// categories. Empty means all entitled categories.
	Categories []Category `json:"categories,omitempty"`

	// CheckContent gates the dispatch on a content fingerprint change.
	CheckContent bool `json:"check_content,omitempty"`

	// Force bypasses the content gate unconditionally.
	Force bool `json:"force,omitempty"`
}

// DispatchOutcome is what callers of the orchestrator receive on success.
type DispatchOutcome struct {
	Success            bool           `json:"success"`
	URL                string         `json:"url"`
	Report             DispatchReport `json:"report"`
	SuccessRatePercent float64        `json:"success_rate_percent"`
	QuotaRemaining     int            `json:"quota_remaining"`
	Timestamp          time.Time      `json:"timestamp"`
}

// HistoryRecord is the immutable audit row written after each dispatch.
type HistoryRecord struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	URLID       string         `json:"url_id"`
	URL         string         `json:"url"`
	Report      DispatchReport `json:"report"`
	ContentHash string         `json:"content_hash,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// HistoryFilter narrows history queries. URLID is an exact match on the
// tracked URL; URLSubstring is a case-insensitive text search.
type HistoryFilter struct {
	URLID        string
	URLSubstring string
	From         *time.Time
	To           *time.Time
}

// Page is offset/limit pagination for history queries.
type Page struct {
	Limit  int
	Offset int
}

// HistoryPage is one page of history records plus the unpaged total.
type HistoryPage struct {
	Records []HistoryRecord `json:"records"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// QuotaDecision is the result of a consume attempt.
type QuotaDecision struct {
	OK        bool `json:"ok"`
	Remaining int  `json:"remaining"`
}

// DispatchCommand wraps a dispatch request queued for asynchronous execution.
type DispatchCommand struct {
	Request   DispatchRequest
	Attempt   int
	Submitted int64
}
