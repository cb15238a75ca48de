// Package dispatch implements the ping dispatch pipeline: validation,
// entitlement, content gating, quota, fan-out and persistence.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pingmyweb/pingd/internal/adapter"
	"github.com/pingmyweb/pingd/internal/catalog"
	"github.com/pingmyweb/pingd/internal/detector"
	"github.com/pingmyweb/pingd/internal/entitlement"
	"github.com/pingmyweb/pingd/internal/metrics"
	"github.com/pingmyweb/pingd/internal/ping"
	"github.com/pingmyweb/pingd/internal/urlutil"
)

const (
	defaultConcurrency = 8
	defaultTimeout     = 45 * time.Second
)

// ChangeDetector gates dispatches on a content fingerprint change.
type ChangeDetector interface {
	ShouldPing(ctx context.Context, tracked ping.TrackedURL) detector.Decision
}

// RateLimiter throttles outbound calls per target endpoint.
type RateLimiter interface {
	Wait(ctx context.Context, endpoint string) error
}

// Config controls Orchestrator behavior.
type Config struct {
	// Concurrency caps parallel target invocations within one dispatch.
	Concurrency int
	// Timeout bounds the whole fan-out; targets still pending when it
	// expires report as timeouts.
	Timeout time.Duration
}

// Orchestrator runs dispatches end to end. All collaborators are required
// except detector and limiter, which disable their stage when nil.
type Orchestrator struct {
	catalog  *catalog.Catalog
	invoker  adapter.Invoker
	users    ping.UserStore
	urls     ping.URLStore
	history  ping.HistoryStore
	quota    ping.QuotaLedger
	detector ChangeDetector
	limiter  RateLimiter
	clock    ping.Clock
	ids      ping.IDGenerator
	cfg      Config
	logger   *zap.Logger
}

// New constructs an Orchestrator.
func New(
	cat *catalog.Catalog,
	invoker adapter.Invoker,
	users ping.UserStore,
	urls ping.URLStore,
	history ping.HistoryStore,
	quota ping.QuotaLedger,
	det ChangeDetector,
	limiter RateLimiter,
	clock ping.Clock,
	ids ping.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Orchestrator{
		catalog:  cat,
		invoker:  invoker,
		users:    users,
		urls:     urls,
		history:  history,
		quota:    quota,
		detector: det,
		limiter:  limiter,
		clock:    clock,
		ids:      ids,
		cfg:      cfg,
		logger:   logger,
	}
}

// Dispatch runs one ping dispatch. The returned error is one of the sentinel
// rejections (invalid URL, inactive user, unchanged content, quota) or an
// infrastructure failure; once the fan-out starts, per-target failures are
// captured in the report and never surface as errors.
func (o *Orchestrator) Dispatch(ctx context.Context, req ping.DispatchRequest) (ping.DispatchOutcome, error) {
	normalized, err := urlutil.Normalize(req.URL)
	if err != nil {
		return ping.DispatchOutcome{}, fmt.Errorf("%w: %v", ping.ErrInvalidURL, err)
	}
	rssURL := req.RSSURL
	if rssURL != "" {
		rssURL, err = urlutil.Normalize(req.RSSURL)
		if err != nil {
			return ping.DispatchOutcome{}, fmt.Errorf("%w: rss: %v", ping.ErrInvalidURL, err)
		}
	}

	user, err := o.users.Get(ctx, req.UserID)
	if errors.Is(err, ping.ErrNotFound) {
		return ping.DispatchOutcome{}, ping.ErrUserInactive
	}
	if err != nil {
		return ping.DispatchOutcome{}, fmt.Errorf("fetch user: %w", err)
	}
	if !user.Active {
		return ping.DispatchOutcome{}, ping.ErrUserInactive
	}

	ent := entitlement.Resolve(user.Plan)
	categories := ent.Restrict(req.Categories)
	now := o.clock.Now()

	if len(categories) == 0 {
		// Every requested category was outside the plan. Nothing to ping
		// and nothing to charge.
		o.logger.Info("dispatch had no entitled categories",
			zap.String("user_id", user.ID),
			zap.String("url", normalized),
		)
		return ping.DispatchOutcome{
			Success:        true,
			URL:            normalized,
			Report:         ping.DispatchReport{},
			QuotaRemaining: remainingFor(user),
			Timestamp:      now,
		}, nil
	}

	tracked, err := o.urls.Upsert(ctx, ping.TrackedURL{
		UserID: user.ID,
		URL:    normalized,
		Title:  req.Title,
		RSSURL: rssURL,
	})
	if err != nil {
		return ping.DispatchOutcome{}, fmt.Errorf("upsert url: %w", err)
	}

	contentHash := ""
	if req.CheckContent && !req.Force && o.detector != nil {
		decision := o.detector.ShouldPing(ctx, tracked)
		contentHash = decision.NewHash
		if !decision.Changed {
			metrics.ObserveContentGateSkip()
			return ping.DispatchOutcome{}, ping.ErrNoContentChange
		}
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID, err = o.ids.NewID()
		if err != nil {
			return ping.DispatchOutcome{}, fmt.Errorf("generate request id: %w", err)
		}
	}
	decision, err := o.quota.TryConsume(ctx, user.ID, requestID, now)
	if err != nil {
		if ping.IsQuotaExceeded(err) {
			metrics.ObserveQuotaRejection()
			return ping.DispatchOutcome{}, err
		}
		return ping.DispatchOutcome{}, fmt.Errorf("consume quota: %w", err)
	}

	report := o.fanOut(ctx, user, categories, normalized, adapter.Context{
		Title:  req.Title,
		RSSURL: rssURL,
	})

	o.persist(ctx, user.ID, tracked, normalized, report, contentHash, now)

	return ping.DispatchOutcome{
		Success:            true,
		URL:                normalized,
		Report:             report,
		SuccessRatePercent: report.SuccessRatePercent(),
		QuotaRemaining:     decision.Remaining,
		Timestamp:          now,
	}, nil
}

// fanOut invokes every entitled target concurrently and collects a report
// with one entry per attempted target. Every entitled category appears as a
// key even when it contributed no attempts.
func (o *Orchestrator) fanOut(
	ctx context.Context,
	user ping.User,
	categories []ping.Category,
	url string,
	reqCtx adapter.Context,
) ping.DispatchReport {
	fanCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	report := make(ping.DispatchReport, len(categories))
	for _, cat := range categories {
		report[cat] = make(map[string]ping.PingAttemptResult)
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, o.cfg.Concurrency)
	)
	for _, cat := range categories {
		for _, target := range o.catalog.Targets(cat) {
			if !user.Plan.Tier.Covers(target.MinTier) {
				continue
			}
			wg.Add(1)
			go func(cat ping.Category, target ping.PingTarget) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				res := o.invokeTarget(fanCtx, target, url, reqCtx)
				metrics.ObservePingAttempt(string(cat), target.Key, string(res.Code))

				mu.Lock()
				report[cat][target.Key] = res
				mu.Unlock()
			}(cat, target)
		}
	}
	wg.Wait()
	return report
}

func (o *Orchestrator) invokeTarget(ctx context.Context, target ping.PingTarget, url string, reqCtx adapter.Context) ping.PingAttemptResult {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx, target.Endpoint); err != nil {
			return ping.PingAttemptResult{
				Target:  target.Key,
				Code:    ping.AttemptTimeout,
				Message: "rate limit wait aborted: " + err.Error(),
			}
		}
	}
	return o.invoker.Invoke(ctx, target, url, reqCtx)
}

// persist records the dispatch. Persistence failures never fail a dispatch
// the targets already saw; they are logged and counted instead.
func (o *Orchestrator) persist(
	ctx context.Context,
	userID string,
	tracked ping.TrackedURL,
	url string,
	report ping.DispatchReport,
	contentHash string,
	now time.Time,
) {
	recID, err := o.ids.NewID()
	if err != nil {
		o.logger.Error("generate history id failed", zap.Error(err))
		metrics.ObservePersistenceFailure("history")
	} else {
		rec := ping.HistoryRecord{
			ID:          recID,
			UserID:      userID,
			URLID:       tracked.ID,
			URL:         url,
			Report:      report,
			ContentHash: contentHash,
			CreatedAt:   now,
		}
		if err := o.history.Record(ctx, rec); err != nil {
			o.logger.Error("record history failed",
				zap.String("user_id", userID),
				zap.String("url", url),
				zap.Error(err),
			)
			metrics.ObservePersistenceFailure("history")
		}
	}

	if err := o.urls.UpdateAfterDispatch(ctx, tracked.ID, contentHash, now); err != nil {
		o.logger.Error("update url after dispatch failed",
			zap.String("url_id", tracked.ID),
			zap.Error(err),
		)
		metrics.ObservePersistenceFailure("urls")
	}
}

func remainingFor(user ping.User) int {
	remaining := user.Plan.DailyPingLimit - user.DailyPingsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
