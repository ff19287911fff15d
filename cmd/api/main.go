// File: cmd/api/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"card-index-pipeline/internal/config"
	"card-index-pipeline/internal/infra/ai"
	"card-index-pipeline/internal/infra/api"
	pg "card-index-pipeline/internal/infra/db/postgres"
	"card-index-pipeline/internal/infra/logging"
	"card-index-pipeline/internal/infra/metrics"
	red "card-index-pipeline/internal/infra/redis"
	"card-index-pipeline/internal/infra/storage"
	"card-index-pipeline/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer func() { _ = redisClient.Close() }()
	stream := red.NewCardStream(redisClient, cfg.Worker.Stream, cfg.Worker.Group, cfg.Worker.Consumer)
	retryGuard := red.NewRetryGuard(redisClient, cfg.API.RetryWindow)

	// ---- Object storage ----
	objStorage, err := storage.NewS3Storage(ctx, &cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("s3 storage")
	}

	// ---- Embedder ----
	embedder, err := ai.NewOpenAIEmbedder(&cfg.AI, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("embedder")
	}
	defer embedder.Release()

	// ---- Use cases ----
	cardRepo := pg.NewCardRepo(pool)
	chunkRepo := pg.NewChunkRepo(pool)
	queueUC := usecase.NewCardQueueUseCase(cardRepo, stream, retryGuard, objStorage, logger)
	contextUC := usecase.NewContextUseCase(chunkRepo, embedder, logger)

	// ---- HTTP server ----
	r := chi.NewRouter()
	api.NewServer(queueUC, contextUC, logger).Register(r)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.API.Port), Handler: r}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
