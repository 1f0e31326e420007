package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/kiwari-pos/archiver/internal/config"
	"github.com/kiwari-pos/archiver/internal/database"
	"github.com/kiwari-pos/archiver/internal/lock"
	"github.com/kiwari-pos/archiver/internal/router"
	"github.com/kiwari-pos/archiver/internal/service"
	"github.com/kiwari-pos/archiver/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	locker, closeLocker := newLocker(ctx, cfg)
	defer closeLocker()

	queries := database.New(pool)
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	archiveSvc := service.NewArchiveService(
		pool,
		queries,
		func(db database.DBTX) service.ArchiveStore {
			return database.New(db)
		},
		locker,
		hub,
		service.ArchiveOptions{
			BatchSize: cfg.ArchiveBatchSize,
			LockTTL:   cfg.ArchiveLockTTL,
		},
	)

	if cfg.ArchiveScheduler {
		scheduler := service.NewScheduler(archiveSvc, cfg.ArchiveTick)
		go scheduler.Run(ctx)
	} else {
		log.Println("Archive scheduler disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router.New(cfg, queries, pool, hub, archiveSvc),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.ArchiveLockTTL,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server forced to shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// newLocker returns a redis-backed locker when REDIS_ADDR is set, so that
// several replicas never archive at the same time. Without redis the lock
// only covers this process.
func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, using in-process archive lock")
		return lock.NewLocalLocker(), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Unable to connect to redis at %s: %v", cfg.RedisAddr, err)
	}
	log.Printf("Connected to redis at %s", cfg.RedisAddr)

	return lock.NewRedisLocker(client), func() {
		if err := client.Close(); err != nil {
			log.Printf("ERROR: close redis: %v", err)
		}
	}
}
