package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/internal/searcher/holder"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vsm-search/pkg/middleware"
)

type SearchExecutor interface {
	Execute(ctx context.Context, idx *index.InvertedIndex, text string) (*executor.SearchResult, error)
}

// IndexSource is the served index; *holder.Holder implements it.
type IndexSource interface {
	Current() *index.InvertedIndex
	Stats() holder.Stats
	Reload(ctx context.Context) (*index.InvertedIndex, error)
}

type Handler struct {
	executor SearchExecutor
	source   IndexSource
	logger   *slog.Logger
}

func New(exec SearchExecutor, source IndexSource) *Handler {
	return &Handler{
		executor: exec,
		source:   source,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the search API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/index/reload", h.Reload)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	result, err := h.executor.Execute(ctx, h.source.Current(), query)
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), publicMessage(err))
		return
	}
	if limit > 0 && len(result.Results) > limit {
		result.Results = result.Results[:limit]
	}

	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"latency_ms", time.Since(start).Milliseconds(),
		"request_id", middleware.GetRequestID(ctx),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.source.Stats())
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.source.Reload(r.Context()); err != nil {
		h.logger.Error("index reload failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), publicMessage(err))
		return
	}
	h.writeJSON(w, http.StatusOK, h.source.Stats())
}

func publicMessage(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrIndexNotLoaded):
		return "index not loaded"
	case apperrors.Is(err, apperrors.ErrIndexNotFound):
		return "index not found"
	case apperrors.Is(err, apperrors.ErrIncompatibleIndex):
		return "index is incompatible with this build"
	case apperrors.Is(err, apperrors.ErrTimeout):
		return "search timed out"
	default:
		return "search failed"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
