// Command milestoneamm serves the milestone prediction market API. It loads
// and validates configuration, opens the database, applies migrations, wires
// telemetry and serves HTTP until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"milestoneamm/amm"
	"milestoneamm/config"
	"milestoneamm/logger"
	"milestoneamm/middleware"
	"milestoneamm/migration"
	_ "milestoneamm/migration/migrations"
	"milestoneamm/server"
	"milestoneamm/service"
	"milestoneamm/store"
	"milestoneamm/telemetry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// marketLockTTL bounds how long a crashed process can hold a market lock.
const marketLockTTL = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		zap.String("program", cfg.ProgramID),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
	)

	db, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	if cfg.Database.RunMigrations {
		if err := migration.Run(db, log); err != nil {
			return err
		}
	}

	// Telemetry fan-out. With Redis, records go through the channel and
	// every instance's hub follows it; otherwise the hub is a direct sink.
	hub := telemetry.NewHub(log)
	defer hub.Close()

	var sinks []telemetry.Sink
	if cfg.Telemetry.LogRecords {
		sinks = append(sinks, telemetry.NewLogSink(log))
	}
	if cfg.Telemetry.PersistEvents {
		sinks = append(sinks, telemetry.NewStoreSink(store.New(db).Events))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = telemetry.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()

		redisSink := telemetry.NewRedisSink(rdb, cfg.Redis.Channel)
		recs, err := redisSink.Subscribe(ctx)
		if err != nil {
			return err
		}
		go hub.Follow(ctx, recs)
		sinks = append(sinks, redisSink)
	} else {
		sinks = append(sinks, hub)
	}

	// Not tied to ctx so Close can drain after a signal.
	emitter := telemetry.NewEmitter(cfg.Telemetry.BufferSize, log, sinks...)
	emitter.Start(context.Background())
	defer emitter.Close()

	var locker service.Locker = service.NewLocalLocker()
	if rdb != nil {
		locker = service.NewRedisLocker(rdb, marketLockTTL)
	}

	maxMint, err := cfg.Collateral.MaxMintFP()
	if err != nil {
		return err
	}
	svc := service.NewMarketService(db, log, service.Options{
		ProgramID:       cfg.ProgramID,
		CollateralAsset: cfg.Collateral.Asset,
		MaxMintFP:       maxMint,
		Clock:           amm.SystemClock{},
		Locker:          locker,
		Emitter:         emitter,
	})

	router := server.NewRouter(server.Deps{
		Service: svc,
		Auth:    middleware.NewAuthenticator(cfg.Server.JWTSecret, cfg.Server.AdminIdentities),
		Limiter: middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		Hub:     hub,
		Log:     log,
	}, cfg.Server.CORSOrigins)
	srv := server.New(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
