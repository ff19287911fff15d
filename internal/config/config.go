// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Region          string        `yaml:"region"`
	Bucket          string        `yaml:"bucket"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	PresignTTL      time.Duration `yaml:"presign_ttl"`
}

type AIConfig struct {
	OpenAIKey          string `yaml:"openai_key"`
	EmbeddingBaseURL   string `yaml:"embedding_base_url"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDim       int    `yaml:"embedding_dim"`
	EmbeddingBatchSize int    `yaml:"embedding_batch_size"`
	TranscriptionModel string `yaml:"transcription_model"`
}

type WorkerConfig struct {
	Stream        string        `yaml:"stream"`
	Group         string        `yaml:"group"`
	Consumer      string        `yaml:"consumer"`
	UnitLimit     int           `yaml:"unit_limit"`
	HeavyCost     int           `yaml:"heavy_cost"`
	IdleSleep     time.Duration `yaml:"idle_sleep"`
	RetryAttempts int           `yaml:"retry_attempts"`
	MetricsPort   int           `yaml:"metrics_port"`
}

type ExtractionConfig struct {
	ChunkSize       int           `yaml:"chunk_size"`
	ChunkOverlap    int           `yaml:"chunk_overlap"`
	PageTimeout     time.Duration `yaml:"page_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	ConverterURL    string        `yaml:"converter_url"` // page-based youtube->mp3 flow
}

type APIConfig struct {
	Port        int           `yaml:"port"`
	RetryWindow time.Duration `yaml:"retry_window"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Storage    StorageConfig    `yaml:"storage"`
	AI         AIConfig         `yaml:"ai"`
	Worker     WorkerConfig     `yaml:"worker"`
	Extraction ExtractionConfig `yaml:"extraction"`
	API        APIConfig        `yaml:"api"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Storage.PresignTTL <= 0 {
		cfg.Storage.PresignTTL = 5 * time.Minute
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.AI.EmbeddingDim <= 0 {
		cfg.AI.EmbeddingDim = 1536
	}
	if cfg.AI.EmbeddingBatchSize <= 0 {
		cfg.AI.EmbeddingBatchSize = 8
	}
	if cfg.AI.TranscriptionModel == "" {
		cfg.AI.TranscriptionModel = "whisper-1"
	}
	if cfg.Worker.Stream == "" {
		cfg.Worker.Stream = "card_created"
	}
	if cfg.Worker.Group == "" {
		cfg.Worker.Group = "card_processor_group"
	}
	if cfg.Worker.Consumer == "" {
		cfg.Worker.Consumer = fmt.Sprintf("consumer-%d", os.Getpid())
	}
	if cfg.Worker.UnitLimit <= 0 {
		cfg.Worker.UnitLimit = 10
	}
	if cfg.Worker.HeavyCost <= 0 {
		cfg.Worker.HeavyCost = 10
	}
	if cfg.Worker.IdleSleep <= 0 {
		cfg.Worker.IdleSleep = 100 * time.Millisecond
	}
	if cfg.Worker.RetryAttempts <= 0 {
		cfg.Worker.RetryAttempts = 3
	}
	if cfg.Worker.MetricsPort == 0 {
		cfg.Worker.MetricsPort = 9090
	}
	if cfg.Extraction.ChunkSize <= 0 {
		cfg.Extraction.ChunkSize = 1000
	}
	if cfg.Extraction.ChunkOverlap <= 0 {
		cfg.Extraction.ChunkOverlap = 150
	}
	if cfg.Extraction.PageTimeout <= 0 {
		cfg.Extraction.PageTimeout = 60 * time.Second
	}
	if cfg.Extraction.DownloadTimeout <= 0 {
		cfg.Extraction.DownloadTimeout = 10 * time.Minute
	}
	if cfg.Extraction.ConverterURL == "" {
		cfg.Extraction.ConverterURL = "https://ytmp3.as/"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.RetryWindow <= 0 {
		cfg.API.RetryWindow = 5 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Storage.Bucket == "" {
		return nil, errors.New("storage.bucket is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
