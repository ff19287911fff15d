package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"card-index-pipeline/internal/domain"
	"card-index-pipeline/internal/usecase"
)

const handlerTimeout = 15 * time.Second

// Server exposes the producer boundary (enqueue, retry) and the retrieval
// endpoint over HTTP. Card rows themselves are created by the web layer.
type Server struct {
	queueUC   *usecase.CardQueueUseCase
	contextUC *usecase.ContextUseCase
	log       *zerolog.Logger
}

func NewServer(queueUC *usecase.CardQueueUseCase, contextUC *usecase.ContextUseCase, log *zerolog.Logger) *Server {
	return &Server{queueUC: queueUC, contextUC: contextUC, log: log}
}

// Register attaches all routes to the provided router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/v1/cards/{cardID}/enqueue", s.handleEnqueue)
	r.Post("/api/v1/cards/{cardID}/retry", s.handleRetry)
	r.Get("/api/v1/cards/{cardID}/source", s.handleSource)
	r.Get("/api/v1/chats/{chatID}/context", s.handleContext)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	cardID := chi.URLParam(r, "cardID")
	if err := s.queueUC.EnqueueNew(ctx, cardID); err != nil {
		s.writeError(w, cardID, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "card_id": cardID})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	cardID := chi.URLParam(r, "cardID")
	if err := s.queueUC.Retry(ctx, cardID); err != nil {
		s.writeError(w, cardID, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "card_id": cardID})
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	cardID := chi.URLParam(r, "cardID")
	url, err := s.queueUC.SourceURL(ctx, cardID)
	if err != nil {
		s.writeError(w, cardID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	chatID := chi.URLParam(r, "chatID")
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "query parameter q is required"})
		return
	}

	res, err := s.contextUC.Assemble(ctx, chatID, query)
	if err != nil {
		s.writeError(w, chatID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"context":             res.Context,
		"referenced_card_ids": res.ReferencedCardIDs,
	})
}

func (s *Server) writeError(w http.ResponseWriter, id string, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrNotRetryable):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		code = http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code >= http.StatusInternalServerError || code == http.StatusBadRequest {
		s.log.Error().Err(err).Str("id", id).Msg("request failed")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
