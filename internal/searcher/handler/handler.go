// Package handler serves the searcher's HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/catalog/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/catalog/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/catalog/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/catalog/pkg/tracing"
)

// SearchExecutor is the part of *executor.Executor the handler needs.
type SearchExecutor interface {
	Index() *index.Index
	Parse(query string) (*parser.QueryPlan, error)
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
}

type Handler struct {
	executor     SearchExecutor
	cache        *cache.QueryCache
	tracker      *analytics.Tracker
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

type searchResponse struct {
	Status    string             `json:"status"`
	Query     string             `json:"query"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TookMs    int64              `json:"took_ms"`
	Cache     string             `json:"cache,omitempty"`
}

// New creates a handler. queryCache, tracker and m may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, tracker *analytics.Tracker, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxResults < defaultLimit {
		maxResults = defaultLimit
	}
	return &Handler{
		executor:     exec,
		cache:        queryCache,
		tracker:      tracker,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register installs the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?query=<text>&k=<n>. q and limit are
// accepted as aliases.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", middleware.GetRequestID(r.Context()))
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(log)
	}()

	params := r.URL.Query()
	query := firstParam(params.Get("query"), params.Get("q"))
	limit, err := h.parseLimit(firstParam(params.Get("k"), params.Get("limit")))
	if err != nil {
		h.countQuery("error")
		h.writeError(w, err)
		return
	}
	span.SetAttr("limit", limit)

	plan, err := h.executor.Parse(query)
	if err != nil {
		h.countQuery("error")
		h.writeError(w, err)
		return
	}
	if plan.Empty() {
		h.countQuery("empty_query")
		h.writeJSON(w, http.StatusOK, searchResponse{
			Status:  "success",
			Query:   query,
			Results: []ranker.ScoredDoc{},
			TookMs:  time.Since(start).Milliseconds(),
		})
		return
	}

	var result *executor.SearchResult
	status := cache.StatusMiss
	if h.cache != nil {
		checksum := h.executor.Index().Meta().Checksum
		result, status, err = h.cache.GetOrCompute(ctx, checksum, plan, limit, func(ctx context.Context) (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit)
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.countQuery("error")
		h.writeError(w, err)
		return
	}

	took := time.Since(start)
	resp := searchResponse{
		Status:    "success",
		Query:     query,
		TotalHits: result.TotalHits,
		Results:   result.Results,
		TookMs:    took.Milliseconds(),
	}
	if h.cache != nil {
		resp.Cache = string(status)
	}
	span.SetAttr("cache", string(status))
	span.SetAttr("total_hits", result.TotalHits)

	log.Info("search completed",
		"query", query,
		"terms", plan.Terms,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache", status,
		"latency_ms", took.Milliseconds(),
	)
	h.observe(result, status, took)
	if h.tracker != nil {
		event := analytics.NewSearchEvent(query, plan.Terms, result.TotalHits, len(result.Results), took)
		event.CacheStatus = string(status)
		event.RequestID = middleware.GetRequestID(ctx)
		if idx := h.executor.Index(); idx != nil {
			event.IndexSum = idx.Meta().Checksum
		}
		h.tracker.TrackSearch(event)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// IndexStats serves GET /api/v1/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	idx := h.executor.Index()
	if idx == nil {
		h.writeError(w, apperrors.ErrIndexUnavailable)
		return
	}
	meta := idx.Meta()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"documents": idx.DocCount(),
		"terms":     idx.TermCount(),
		"postings":  idx.PostingCount(),
		"analyzer":  meta.Analyzer,
		"tf_scheme": meta.TFScheme,
		"checksum":  fmt.Sprintf("%08x", meta.Checksum),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	s := h.cache.Stats()
	hits := s.LocalHits + s.RedisHits
	total := hits + s.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"local_hits":    s.LocalHits,
		"redis_hits":    s.RedisHits,
		"misses":        s.Misses,
		"total":         total,
		"hit_rate":      fmt.Sprintf("%.1f%%", hitRate),
		"local_entries": s.LocalEntries,
		"redis":         s.Redis,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrIndexUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: %v", apperrors.ErrInternal, err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "redis_keys_deleted": deleted})
}

func (h *Handler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.defaultLimit, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "k must be a positive integer, got %q", raw)
	}
	return min(k, h.maxResults), nil
}

func (h *Handler) countQuery(resultType string) {
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}

func (h *Handler) observe(result *executor.SearchResult, status cache.Status, took time.Duration) {
	if h.metrics == nil {
		return
	}
	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(string(status)).Observe(took.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{
		"status": "error",
		"error":  message,
	})
}

func firstParam(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
