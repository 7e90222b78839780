package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AngelCh415/roi-insights/internal/cache"
	"github.com/AngelCh415/roi-insights/internal/config"
	"github.com/AngelCh415/roi-insights/internal/httpx"
	"github.com/AngelCh415/roi-insights/internal/ingest"
	"github.com/AngelCh415/roi-insights/internal/lock"
	"github.com/AngelCh415/roi-insights/internal/metrics"
	"github.com/AngelCh415/roi-insights/internal/store"
	"github.com/AngelCh415/roi-insights/internal/utils"
)

func main() {
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	st, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		cancel()
		logger.Error("store init failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	rdb, err := openRedis(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("redis init failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var (
		lk    lock.Locker = lock.NewLocal()
		chart *cache.Cache
	)
	if rdb != nil {
		lk = lock.NewRedis(rdb, "roi:import", cfg.ImportLockTTL)
		chart = cache.New(rdb, "roi:chart", cfg.CacheTTL)
	}

	p := ingest.NewPipeline(st, lk, chart, logger)
	mSvc := metrics.NewService(st, chart, cfg.SmoothWindow, logger)
	r := httpx.NewRouter(logger, cfg, p, mSvc, st.Ping)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTPTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("port", cfg.Port), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("err", err.Error()))
	}
	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	logger.Info("server stopped")
}

// openStore picks Postgres when DATABASE_URL is set, otherwise memory.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory store")
		return store.NewMemoryStore(), nil, nil
	}
	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	err = utils.NewBackoff(500*time.Millisecond, 5).Do(ctx, func(i int) error {
		err := db.PingContext(ctx)
		if err != nil {
			log.Warn("postgres not ready", slog.Int("attempt", i+1), slog.String("err", err.Error()))
		}
		return err
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	pg := store.NewPostgresStore(db)
	if cfg.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	log.Info("using postgres store")
	return pg, db, nil
}

// openRedis returns nil when REDIS_URL is unset. A bare host:port is accepted.
func openRedis(ctx context.Context, cfg config.Config, log *slog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		log.Info("redis disabled; using in-process import lock, no chart cache")
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.RedisURL}
	}
	rdb := redis.NewClient(opts)
	err = utils.NewBackoff(250*time.Millisecond, 5).Do(ctx, func(i int) error {
		err := rdb.Ping(ctx).Err()
		if err != nil {
			log.Warn("redis not ready", slog.Int("attempt", i+1), slog.String("err", err.Error()))
		}
		return err
	})
	if err != nil {
		rdb.Close()
		return nil, err
	}
	log.Info("using redis", slog.String("addr", opts.Addr))
	return rdb, nil
}
