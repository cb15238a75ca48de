// Package main wires together the ping service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pingmyweb/pingd/internal/adapter"
	"github.com/pingmyweb/pingd/internal/api"
	"github.com/pingmyweb/pingd/internal/catalog"
	"github.com/pingmyweb/pingd/internal/clock/system"
	"github.com/pingmyweb/pingd/internal/config"
	"github.com/pingmyweb/pingd/internal/detector"
	"github.com/pingmyweb/pingd/internal/dispatch"
	"github.com/pingmyweb/pingd/internal/hash/sha256"
	"github.com/pingmyweb/pingd/internal/id/uuid"
	"github.com/pingmyweb/pingd/internal/logging"
	"github.com/pingmyweb/pingd/internal/metrics"
	"github.com/pingmyweb/pingd/internal/ping"
	queueMemory "github.com/pingmyweb/pingd/internal/queue/memory"
	"github.com/pingmyweb/pingd/internal/ratelimit"
	storageMemory "github.com/pingmyweb/pingd/internal/storage/memory"
	storagePostgres "github.com/pingmyweb/pingd/internal/storage/postgres"
	"github.com/pingmyweb/pingd/internal/worker"
)

type stores struct {
	users   ping.UserStore
	urls    ping.URLStore
	history ping.HistoryStore
	quota   ping.QuotaLedger
	ready   func() error
	close   func()
}

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Default(catalog.Keys{
		IndexNow: cfg.Catalog.IndexNowKey,
		Naver:    cfg.Catalog.NaverKey,
	})
	if err != nil {
		logger.Fatal("build catalog failed", zap.Error(err))
	}

	st, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("build stores failed", zap.Error(err))
	}
	defer st.close()

	hasher := sha256.New()
	clock := system.New()
	idGen := uuid.New()
	queue := queueMemory.NewQueue(cfg.Queue.Depth)

	invoker := adapter.NewClient(adapter.Config{
		Timeout:   cfg.AdapterTimeout(),
		UserAgent: cfg.Adapter.UserAgent,
	}, nil)

	var gate dispatch.ChangeDetector
	if cfg.Detector.Enabled {
		fetcher := detector.NewCollyFetcher(detector.FetcherConfig{
			UserAgent: cfg.Detector.UserAgent,
			Timeout:   time.Duration(cfg.Detector.TimeoutSeconds) * time.Second,
			MaxBody:   cfg.Detector.MaxBodyBytes,
		})
		gate = detector.New(fetcher, hasher, logger.Named("detector"))
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.RateLimit.RequestsPerSecond,
		DefaultBurst: cfg.RateLimit.Burst,
	})

	orchestrator := dispatch.New(
		cat,
		invoker,
		st.users,
		st.urls,
		st.history,
		st.quota,
		gate,
		limiter,
		clock,
		idGen,
		dispatch.Config{
			Concurrency: cfg.Dispatch.Concurrency,
			Timeout:     cfg.DispatchTimeout(),
		},
		logger.Named("dispatch"),
	)

	workerCfg := worker.Config{
		MaxAttempts: cfg.Dispatch.MaxAttempts,
		RetryDelay:  cfg.RetryDelay(),
	}
	for i := 0; i < cfg.Dispatch.Workers; i++ {
		w := worker.New(queue, orchestrator, workerCfg, logger.Named("worker").With(zap.Int("index", i)))
		go w.Run(ctx)
	}

	apiServer := api.NewServer(
		orchestrator,
		queue,
		st.users,
		st.urls,
		st.history,
		cat,
		idGen,
		clock,
		cfg,
		logger.Named("api"),
		st.ready,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}

// buildStores selects Postgres persistence when a DSN is configured and the
// in-memory stores otherwise. The in-memory mode seeds one development user
// so the API is usable immediately.
func buildStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.DB.DSN == "" {
		logger.Warn("db.dsn not set, using in-memory stores (development only)")
		return buildMemoryStores(logger), nil
	}

	pool, err := storagePostgres.Connect(ctx, storagePostgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeMinute) * time.Minute,
	})
	if err != nil {
		return stores{}, err
	}

	users, err := storagePostgres.NewUserStore(pool)
	if err != nil {
		return stores{}, err
	}
	urls, err := storagePostgres.NewURLStore(pool, uuid.New(), system.New())
	if err != nil {
		return stores{}, err
	}
	history, err := storagePostgres.NewHistoryStore(pool)
	if err != nil {
		return stores{}, err
	}
	quota, err := storagePostgres.NewQuotaLedger(pool)
	if err != nil {
		return stores{}, err
	}

	return stores{
		users:   users,
		urls:    urls,
		history: history,
		quota:   quota,
		ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
		close: pool.Close,
	}, nil
}

func buildMemoryStores(logger *zap.Logger) stores {
	const (
		devUserID = "dev-user"
		devAPIKey = "pmw_dev_key"
	)

	users := storageMemory.NewUserStore()
	users.Put(ping.User{
		ID:     devUserID,
		Email:  "dev@localhost",
		Active: true,
		Plan: ping.Plan{
			ID:             "plan-dev",
			Name:           "Development",
			Tier:           ping.TierEnterprise,
			DailyPingLimit: 1000,
			AllowAPI:       true,
		},
	}, devAPIKey)

	quota := storageMemory.NewQuotaLedger()
	quota.SetLimit(devUserID, 1000)

	logger.Info("seeded development user",
		zap.String("user_id", devUserID),
		zap.String("api_key", devAPIKey),
	)

	return stores{
		users:   users,
		urls:    storageMemory.NewURLStore(uuid.New(), system.New()),
		history: storageMemory.NewHistoryStore(),
		quota:   quota,
		ready:   nil,
		close:   func() {},
	}
}
