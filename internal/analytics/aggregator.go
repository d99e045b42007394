package analytics

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	latencyWindow = 10000
	topLimit      = 10
)

// AggregatedStats is what /api/v1/analytics serves and what the snapshot
// store persists as JSONB.
type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	TopTerms          []QueryCount     `json:"top_terms"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	BySource          map[Source]int64 `json:"by_source"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
	CapturedAt        time.Time        `json:"captured_at"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// latencyRing keeps the most recent latencyWindow samples.
type latencyRing struct {
	samples []int64
	pos     int
}

func (r *latencyRing) add(ms int64) {
	if len(r.samples) < latencyWindow {
		r.samples = append(r.samples, ms)
		return
	}
	r.samples[r.pos] = ms
	r.pos = (r.pos + 1) % latencyWindow
}

func (r *latencyRing) sorted() []int64 {
	out := slices.Clone(r.samples)
	slices.Sort(out)
	return out
}

// Aggregator folds search events into running totals since process start.
type Aggregator struct {
	mu sync.Mutex

	searches, hits, misses, zero int64

	latency latencyRing
	queries map[string]int64
	zeroQ   map[string]int64
	terms   map[string]int64
	sources map[Source]int64

	started time.Time
	now     func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		queries: make(map[string]int64),
		zeroQ:   make(map[string]int64),
		terms:   make(map[string]int64),
		sources: make(map[Source]int64),
		started: time.Now(),
		now:     time.Now,
	}
}

// Record counts one search. Queries are keyed by their parsed terms, so
// "Health" and " health" land on the same entry.
func (a *Aggregator) Record(ev SearchEvent) {
	key := queryKey(ev)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.searches++
	if ev.CacheHit {
		a.hits++
	} else {
		a.misses++
	}
	a.latency.add(ev.LatencyMs)
	a.queries[key]++
	for _, t := range ev.Terms {
		a.terms[t]++
	}
	if ev.TotalHits == 0 {
		a.zero++
		a.zeroQ[key]++
	}
	a.sources[ev.Source]++
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	st := AggregatedStats{
		TotalSearches:     a.searches,
		CacheHits:         a.hits,
		CacheMisses:       a.misses,
		ZeroResultCount:   a.zero,
		TopQueries:        topN(a.queries, topLimit),
		TopTerms:          topN(a.terms, topLimit),
		ZeroResultQueries: topN(a.zeroQ, topLimit),
		BySource:          make(map[Source]int64, len(a.sources)),
		CapturedAt:        now.UTC(),
	}
	for src, n := range a.sources {
		st.BySource[src] = n
	}
	if lat := a.latency.sorted(); len(lat) > 0 {
		var sum int64
		for _, ms := range lat {
			sum += ms
		}
		st.AvgLatencyMs = float64(sum) / float64(len(lat))
		st.P50LatencyMs = nearestRank(lat, 50)
		st.P95LatencyMs = nearestRank(lat, 95)
		st.P99LatencyMs = nearestRank(lat, 99)
	}
	if mins := now.Sub(a.started).Minutes(); mins > 0 {
		st.QueriesPerMinute = float64(a.searches) / mins
	}
	return st
}

func queryKey(ev SearchEvent) string {
	if len(ev.Terms) == 0 {
		return strings.ToLower(strings.TrimSpace(ev.Query))
	}
	return strings.Join(ev.Terms, " ")
}

// nearestRank returns the smallest sample with at least pct percent of
// samples at or below it. sorted must be non-empty.
func nearestRank(sorted []int64, pct float64) int64 {
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	return sorted[min(max(rank, 1), len(sorted))-1]
}

// topN returns the n largest counts, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	out := make([]QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, QueryCount{Query: q, Count: c})
	}
	slices.SortFunc(out, func(x, y QueryCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return strings.Compare(x.Query, y.Query)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
