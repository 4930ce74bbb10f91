package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/hackgods/interview-scheduling/internal/api"
	"github.com/hackgods/interview-scheduling/internal/calendar"
	"github.com/hackgods/interview-scheduling/internal/config"
	"github.com/hackgods/interview-scheduling/internal/db"
	"github.com/hackgods/interview-scheduling/internal/interview"
	redisclient "github.com/hackgods/interview-scheduling/internal/redis"
)

var version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s timezone=%s workday=%s-%s lookahead_days=%d",
		cfg.Env, cfg.HTTPPort, cfg.WorkWindow.Location, cfg.WorkWindow.Start, cfg.WorkWindow.End, cfg.LookaheadDays)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PgMaxConns)
	if err == nil {
		err = db.Migrate(pgCtx, pgPool)
	}
	cancelPg()
	if err != nil {
		log.Fatalf("postgres setup error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	repo := interview.NewPgRepository(pgPool)

	// Connect Redis. Without it commits still go through the conditional
	// update, just without the lock in front.
	var locker redisclient.Locker
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	switch {
	case err != nil && cfg.RedisRequired:
		log.Fatalf("redis connection error: %v", err)
	case err != nil:
		log.Printf("redis unavailable, running without request locks: %v", err)
		rdb = nil
	default:
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		locker = redisclient.NewRedisRequestLocker(rdb, cfg.LockTTL)
		log.Println("connected to Redis")
	}

	var availability interview.AvailabilitySource = repo
	if cfg.GoogleCredentialsFile != "" {
		google, err := calendar.NewGoogleService(rootCtx, cfg.GoogleCredentialsFile)
		if err != nil {
			log.Fatalf("google calendar setup error: %v", err)
		}
		availability = calendar.NewSource(repo, google, cfg.WorkWindow, cfg.LookaheadDays, nil)
		log.Println("google calendar free/busy enabled")
	}

	svc := interview.NewService(repo, availability, locker, cfg)

	router := api.NewRouter(api.RouterConfig{
		Service:         svc,
		PgPool:          pgPool,
		Redis:           rdb,
		Env:             cfg.Env,
		Version:         version,
		PreviewCacheTTL: cfg.PreviewCacheTTL,
		RateLimit:       rate.Limit(cfg.RateLimitPerSec),
		RateBurst:       cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Printf("http server error: %v", err)
		}
	}

	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
