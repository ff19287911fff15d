// File: cmd/worker/main.go
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"card-index-pipeline/internal/config"
	"card-index-pipeline/internal/infra/ai"
	pg "card-index-pipeline/internal/infra/db/postgres"
	"card-index-pipeline/internal/infra/extract"
	"card-index-pipeline/internal/infra/logging"
	"card-index-pipeline/internal/infra/metrics"
	red "card-index-pipeline/internal/infra/redis"
	"card-index-pipeline/internal/infra/storage"
	"card-index-pipeline/internal/infra/worker"
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

	// ---- Repositories ----
	cardRepo := pg.NewCardRepo(pool)
	chunkRepo := pg.NewChunkRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Adapters ----
	objStorage, err := storage.NewS3Storage(ctx, &cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("s3 storage")
	}
	embedder, err := ai.NewOpenAIEmbedder(&cfg.AI, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("embedder")
	}
	defer embedder.Release()
	transcriber, err := ai.NewWhisperTranscriber(cfg.AI.OpenAIKey, cfg.AI.TranscriptionModel, cfg.AI.EmbeddingBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("transcriber")
	}

	// ---- Extractors ----
	browser := extract.NewBrowser(logger)
	defer browser.Close()
	registry := extract.NewRegistry(extract.Deps{
		Browser:         browser,
		Storage:         objStorage,
		Transcriber:     transcriber,
		ConverterURL:    cfg.Extraction.ConverterURL,
		PageTimeout:     cfg.Extraction.PageTimeout,
		DownloadTimeout: cfg.Extraction.DownloadTimeout,
	})

	// ---- Pipeline ----
	ingestUC := usecase.NewIngestUseCase(
		chunkRepo, cardRepo, txManager, embedder,
		cfg.Extraction.ChunkSize, cfg.Extraction.ChunkOverlap, logger,
	)
	processor := worker.NewCardProcessor(cardRepo, registry, ingestUC, cfg.Worker.RetryAttempts, logger)
	governor := worker.NewGovernor(cfg.Worker.UnitLimit, cfg.Worker.HeavyCost)
	consumer := worker.NewConsumer(stream, governor, processor, cfg.Worker.IdleSleep, logger)

	go func() {
		if err := consumer.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("consumer stopped")
		}
	}()

	// ---- Metrics endpoint ----
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Worker.MetricsPort), Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()
	logger.Info().
		Str("stream", cfg.Worker.Stream).
		Str("group", cfg.Worker.Group).
		Str("consumer", cfg.Worker.Consumer).
		Msg("worker started")

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
	_ = metricsSrv.Close()
}
