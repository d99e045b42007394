// Package handler serves the search front end: an HTML form at / and
// /search, and a JSON API under /api/v1.
package handler

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepstha184/IR-assignment123/internal/analytics"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/cache"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/executor"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/parser"
	"github.com/sandeepstha184/IR-assignment123/internal/searcher/present"
	apperrors "github.com/sandeepstha184/IR-assignment123/pkg/errors"
	"github.com/sandeepstha184/IR-assignment123/pkg/logger"
	"github.com/sandeepstha184/IR-assignment123/pkg/metrics"
	"github.com/sandeepstha184/IR-assignment123/pkg/tracing"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"segments": present.Segments,
	"join":     strings.Join,
}).ParseFS(templateFS, "templates/*.html"))

type SearchExecutor interface {
	Execute(ctx context.Context, q *parser.Query, limit int) (*executor.SearchResult, error)
	Publication(ordinal int) (executor.Hit, error)
}

// Options are the tunables from the search section of the config.
type Options struct {
	DefaultLimit int
	MaxResults   int
	Tracing      bool
}

// Handler holds everything a request needs. It is built once at startup
// and shared by all requests.
type Handler struct {
	executor  SearchExecutor
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	opts      Options
	logger    *slog.Logger
}

// New wires a Handler. queryCache, collector and m may each be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, opts Options) *Handler {
	return &Handler{
		executor:  exec,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		opts:      opts,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Register adds the search routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("POST /search", h.SearchForm)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/publications/{ordinal}", h.Publication)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type pageData struct {
	Query    string
	Searched bool
	CacheHit bool
	Result   *executor.SearchResult
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageData{})
}

// SearchForm handles the HTML form post. Every result is shown.
func (h *Handler) SearchForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	query := r.PostForm.Get("query")
	ctx, _ := tracing.Start(r.Context(), "search")
	result, cacheHit, err := h.run(ctx, query, 0, analytics.SourceWeb)
	if err != nil {
		http.Error(w, "search failed", apperrors.HTTPStatusCode(err))
		return
	}
	h.render(w, http.StatusOK, pageData{Query: query, Searched: true, CacheHit: cacheHit, Result: result})
}

// Search is the JSON API. q may be empty, which yields no results.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := h.opts.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.Invalid("limit must be a positive integer"), "")
			return
		}
		limit = parsed
	}
	if h.opts.MaxResults > 0 && (limit <= 0 || limit > h.opts.MaxResults) {
		limit = h.opts.MaxResults
	}

	ctx, span := tracing.Start(r.Context(), "search")
	result, cacheHit, err := h.run(ctx, query, limit, analytics.SourceAPI)
	if err != nil {
		h.writeError(w, err, "search failed")
		return
	}
	if h.opts.Tracing {
		w.Header().Set("Server-Timing", span.ServerTiming())
	}
	w.Header().Set("X-Cache", cacheStatus(h.cache != nil, cacheHit))
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Publication(w http.ResponseWriter, r *http.Request) {
	ordinal, err := strconv.Atoi(r.PathValue("ordinal"))
	if err != nil {
		h.writeError(w, apperrors.Invalid("ordinal must be an integer"), "")
		return
	}
	hit, err := h.executor.Publication(ordinal)
	if err != nil {
		h.writeError(w, err, "publication lookup failed")
		return
	}
	h.writeJSON(w, http.StatusOK, hit)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"), "")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// run executes one search through the cache, recording metrics, analytics
// and timings on the span the caller opened in ctx.
func (h *Handler) run(ctx context.Context, query string, limit int, source analytics.Source) (*executor.SearchResult, bool, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	requestID := logger.RequestID(ctx)

	span := tracing.FromContext(ctx)
	q := parser.Parse(query)
	span.SetAttr("keywords", len(q.Keywords))

	var (
		result   *executor.SearchResult
		cacheHit bool
		err      error
	)
	if h.cache != nil && !q.Empty() {
		cctx, cacheSpan := tracing.Start(ctx, "cache")
		result, cacheHit, err = h.cache.GetOrCompute(cctx, q, limit, func() (*executor.SearchResult, error) {
			return h.executor.Execute(cctx, q, limit)
		})
		cacheSpan.SetAttr("hit", cacheHit)
		cacheSpan.End()
	} else {
		result, err = h.executor.Execute(ctx, q, limit)
	}
	span.End()
	latency := time.Since(start)

	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.countQuery("error")
		return nil, false, err
	}

	if h.opts.Tracing {
		span.Log(log)
	}
	log.Info("search completed",
		"query", query,
		"source", source,
		"total_hits", result.TotalHits,
		"returned", len(result.Hits),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.metrics != nil {
		resultType := "hit"
		if result.TotalHits == 0 {
			resultType = "zero_result"
		}
		h.countQuery(resultType)
		h.metrics.SearchLatency.WithLabelValues(cacheStatus(h.cache != nil, cacheHit)).Observe(latency.Seconds())
		h.metrics.SearchResultsCount.Observe(float64(result.TotalHits))
	}
	if h.collector != nil && !q.Empty() {
		h.collector.Track(analytics.NewSearchEvent(
			source, query, q.Terms, result.TotalHits, len(result.Hits), latency, cacheHit, requestID,
		))
	}
	return result, cacheHit, nil
}

func (h *Handler) countQuery(resultType string) {
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}

func cacheStatus(enabled, hit bool) string {
	switch {
	case !enabled:
		return "disabled"
	case hit:
		return "hit"
	default:
		return "miss"
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError answers with the coded error body for err. fallback replaces
// the message of server-side failures.
func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	status, body := apperrors.Response(err, fallback)
	h.writeJSON(w, status, body)
}
