// Package main wires high-level dependencies, exposes the HTTP router, and
// keeps the server lifecycle small. Business logic lives in internal services.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"probo/internal/events"
	"probo/internal/footprint"
	"probo/internal/ledger"
	ledgermetrics "probo/internal/ledger/metrics"
	ledgerports "probo/internal/ledger/ports"
	coinstore "probo/internal/ledger/store/coin"
	footprintstore "probo/internal/ledger/store/footprint"
	"probo/internal/mint"
	"probo/internal/oracle"
	"probo/internal/platform/config"
	"probo/internal/platform/httpserver"
	"probo/internal/platform/logger"
	"probo/internal/platform/postgres"
	platformredis "probo/internal/platform/redis"
	"probo/internal/recovery"
	recoverymetrics "probo/internal/recovery/metrics"
	recoveryports "probo/internal/recovery/ports"
	queuestore "probo/internal/recovery/store/queue"
	"probo/internal/security"
	securitymetrics "probo/internal/security/metrics"
	httptransport "probo/internal/transport/http"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration invalid", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backing stores. Empty URLs select the in-memory implementations so a
	// bare `go run ./cmd/server` works without infrastructure.
	pool, err := postgres.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connect failed", "error", err.Error())
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	redisCfg, err := cfg.Redis()
	if err != nil {
		log.Error("redis config invalid", "error", err.Error())
		os.Exit(1)
	}
	redisClient, err := platformredis.New(redisCfg)
	if err != nil {
		log.Error("redis connect failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var footprints ledgerports.FootprintStore
	var coins ledgerports.CoinStore
	if pool != nil {
		footprints = footprintstore.NewPostgresStore(pool)
		coins = coinstore.NewPostgresStore(pool)
	} else {
		footprints = footprintstore.NewMemoryStore()
		coins = coinstore.NewMemoryStore()
	}

	var queue recoveryports.Queue
	if redisClient != nil {
		rq := queuestore.NewRedisQueue(redisClient.Client)
		if n, err := rq.RecoverInFlight(ctx); err != nil {
			log.Warn("in-flight recovery tasks not requeued", "error", err.Error())
		} else if n > 0 {
			log.Info("requeued in-flight recovery tasks", "count", n)
		}
		queue = rq
	} else {
		queue = queuestore.NewMemoryQueue()
	}

	// Lifecycle event stream. Nil publisher disables emission.
	publisher, err := events.NewPublisher(ctx, cfg.KafkaSeeds, cfg.EventTopic, log)
	if err != nil {
		log.Error("kafka connect failed", "error", err.Error())
		os.Exit(1)
	}

	lm := ledgermetrics.New()
	rm := recoverymetrics.New()
	sm := securitymetrics.New()

	state := ledger.NewState()
	// Durable stores outlive the in-memory counters; a restart must resume
	// from the persisted supply or the first recovery drives it negative.
	total, recovered, err := coins.SupplyTotals(ctx)
	if err != nil {
		log.Error("supply rehydration failed", "error", err.Error())
		os.Exit(1)
	}
	infoTotal, err := footprints.SumInformationValue(ctx)
	if err != nil {
		log.Error("supply rehydration failed", "error", err.Error())
		os.Exit(1)
	}
	if err := state.Rehydrate(total, recovered, infoTotal); err != nil {
		log.Error("persisted supply violates conservation", "error", err.Error())
		os.Exit(1)
	}
	log.Info("supply counters rehydrated",
		"total", total.String(),
		"recovered", recovered.String(),
	)

	valuation := oracle.New(footprints)
	generator := footprint.New(valuation)

	ledgerSvc := ledger.New(generator, footprints, coins, state,
		ledger.WithEmitter(publisher),
		ledger.WithMetrics(lm),
		ledger.WithLogger(log),
	)
	mintSvc := mint.New(footprints, coins, state, queue,
		mint.WithEmitter(publisher),
		mint.WithMetrics(lm),
		mint.WithLogger(log),
	)

	engine := recovery.New(recovery.Config{
		Interval:       cfg.Recovery.Interval,
		BatchSize:      cfg.Recovery.BatchSize,
		MaxAttempts:    cfg.Recovery.MaxAttempts,
		InitialBackoff: cfg.Recovery.InitialBackoff,
		MaxBackoff:     cfg.Recovery.MaxBackoff,
	}, queue, coins, state, recovery.NewStaticDirectory(nil),
		recovery.WithEmitter(publisher),
		recovery.WithMetrics(rm),
		recovery.WithLogger(log),
	)

	monitor := security.NewMonitor(coins, state, security.StaticNodeHealth{
		Active:   cfg.Security.ActiveNodes,
		Expected: cfg.Security.ExpectedNodes,
	}, cfg.Security.ScanInterval,
		security.WithMetrics(sm),
		security.WithLogger(log),
	)
	refresher := security.NewComplianceRefresher(footprints, coins, state, cfg.ComplianceRefreshInterval,
		security.WithMetrics(sm),
		security.WithLogger(log),
	)

	checks := map[string]httptransport.HealthChecker{}
	if pool != nil {
		checks["postgres"] = pool
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	handler := httptransport.NewHandler(ledgerSvc, mintSvc, engine, monitor, checks, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting probo", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return swallowCancel(engine.Run(ctx)) })
	g.Go(func() error { return swallowCancel(monitor.Run(ctx)) })
	g.Go(func() error { return swallowCancel(refresher.Run(ctx)) })
	if publisher != nil {
		g.Go(func() error { return swallowCancel(publisher.Run(ctx)) })
	}

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// swallowCancel treats context cancellation as a clean exit so a signal does
// not surface as a spurious error from every background loop.
func swallowCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
