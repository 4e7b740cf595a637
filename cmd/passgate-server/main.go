package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"passgate/internal/config"
	"passgate/internal/db"
	"passgate/internal/httpapi"
	"passgate/internal/passgate/qrcodec"
	"passgate/internal/passgate/service"
	"passgate/internal/passgate/store/sqlite"
	"passgate/internal/ratelimit"
)

func main() {
	logger := log.New(os.Stdout, "passgate-server ", log.LstdFlags|log.LUTC)

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB + single-writer worker
	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	writer := db.NewWorker(conn)
	defer writer.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Printf("seed dev data: %v", err)
		}
	}

	// Stores
	credentialStore := sqlite.NewCredentialStore(conn, writer)
	attemptStore := sqlite.NewAccessAttemptStore(conn, writer)

	// QR codec
	codec := qrcodec.New(cfg.Secret, cfg.QRKDFSalt)

	// Rate limiter: Redis when configured, in-process otherwise.
	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		rl, err := ratelimit.NewRedisLimiter(cfg.RedisURL, cfg.RateLimitPerSecond)
		if err != nil {
			logger.Fatalf("redis limiter: %v", err)
		}
		limiter = rl
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitPerSecond)
	}

	// Services
	validationSvc := service.NewValidationService(
		credentialStore, attemptStore, codec, limiter,
		service.ValidationConfig{
			RollingWindowMinutes: cfg.RollingWindowMinutes,
			PersistenceRetries:   uint64(cfg.PersistenceRetries),
			PersistenceTimeout:   time.Duration(cfg.PersistenceTimeoutMS) * time.Millisecond,
		},
		logger,
	)
	credentialSvc := service.NewCredentialService(credentialStore, attemptStore, codec, logger)

	sweeper := service.NewExpirySweeper(credentialStore,
		service.SweeperConfig{IntervalHours: cfg.SweepIntervalHours}, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:            logger,
		Addr:              cfg.HTTPAddr,
		ValidationService: validationSvc,
		CredentialService: credentialSvc,
	})

	go func() {
		logger.Printf("listening on %s (env=%s)", cfg.HTTPAddr, cfg.Env)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
