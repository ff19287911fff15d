package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	tiktoken "github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"card-index-pipeline/internal/config"
	"card-index-pipeline/internal/domain/ports/adapter"
)

var _ adapter.Embedder = (*OpenAIEmbedder)(nil)

// embeddingTokenBudget is the input ceiling of the OpenAI embedding models;
// longer chunks are truncated rather than rejected.
const embeddingTokenBudget = 8191

// OpenAIEmbedder implements adapter.Embedder against an OpenAI-compatible
// embeddings endpoint. Batch calls fan out over a bounded worker pool so one
// card's chunks embed concurrently without flooding the API.
type OpenAIEmbedder struct {
	embedder  embeddings.Embedder
	pool      *ants.Pool
	tokenizer *tiktoken.Tiktoken
	dim       int
	log       *zerolog.Logger
}

func NewOpenAIEmbedder(cfg *config.AIConfig, log *zerolog.Logger) (*OpenAIEmbedder, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.OpenAIKey),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	}
	if cfg.EmbeddingBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.EmbeddingBaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	tokenizer, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}

	pool, err := ants.NewPool(cfg.EmbeddingBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embedding pool: %w", err)
	}

	return &OpenAIEmbedder{
		embedder:  embedder,
		pool:      pool,
		tokenizer: tokenizer,
		dim:       cfg.EmbeddingDim,
		log:       log,
	}, nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dim }

func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, e.truncate(text))
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	return vec, nil
}

// EmbedBatch embeds each text concurrently, order-preserved.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		i, text := i, text
		wg.Add(1)
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			vectors[i], errs[i] = e.EmbedText(ctx, text)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i+1, err)
		}
	}
	return vectors, nil
}

// Release frees the worker pool. Call once at shutdown.
func (e *OpenAIEmbedder) Release() { e.pool.Release() }

func (e *OpenAIEmbedder) truncate(text string) string {
	tokens := e.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= embeddingTokenBudget {
		return text
	}
	e.log.Warn().Int("tokens", len(tokens)).Msg("truncating over-long embedding input")
	return e.tokenizer.Decode(tokens[:embeddingTokenBudget])
}
