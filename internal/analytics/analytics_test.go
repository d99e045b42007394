package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepstha184/IR-assignment123/pkg/kafka"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func event(query string, hits int, latency time.Duration, cacheHit bool) SearchEvent {
	return NewSearchEvent(SourceAPI, query, []string{query}, hits, hits, latency, cacheHit, "")
}

func TestNewSearchEventType(t *testing.T) {
	assert.Equal(t, EventSearch, event("health", 3, 0, false).Type)
	assert.Equal(t, EventZeroResult, event("xyz", 0, 0, false).Type)
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(event("health", 2, 10*time.Millisecond, false))
	agg.Record(event("health", 2, 20*time.Millisecond, true))
	agg.Record(event("cancer", 1, 30*time.Millisecond, false))
	agg.Record(event("xyz", 0, 40*time.Millisecond, false))
	web := event("health", 2, 0, true)
	web.Source = SourceWeb
	agg.Record(web)

	s := agg.Stats()
	assert.Equal(t, int64(5), s.TotalSearches)
	assert.Equal(t, int64(2), s.CacheHits)
	assert.Equal(t, int64(3), s.CacheMisses)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.Equal(t, QueryCount{Query: "health", Count: 3}, s.TopQueries[0])
	assert.Equal(t, []QueryCount{{Query: "xyz", Count: 1}}, s.ZeroResultQueries)
	assert.Equal(t, map[Source]int64{SourceAPI: 4, SourceWeb: 1}, s.BySource)
	assert.InDelta(t, 20.0, s.AvgLatencyMs, 0.001)
	assert.Equal(t, int64(20), s.P50LatencyMs)
	assert.Equal(t, int64(40), s.P99LatencyMs)
	assert.Equal(t, QueryCount{Query: "health", Count: 3}, s.TopTerms[0])
}

func TestAggregatorQueryKeyAndRate(t *testing.T) {
	agg := NewAggregator()
	start := agg.started
	agg.now = func() time.Time { return start.Add(2 * time.Minute) }

	agg.Record(SearchEvent{Query: " Health ", Source: SourceCLI})
	agg.Record(SearchEvent{Query: "x", Terms: []string{"health", "policy"}, Source: SourceCLI})
	agg.Record(SearchEvent{Query: "y", Terms: []string{"policy"}, TotalHits: 2, Source: SourceCLI})

	s := agg.Stats()
	assert.Equal(t, []QueryCount{{"health", 1}, {"health policy", 1}, {"policy", 1}}, s.TopQueries)
	assert.Equal(t, []QueryCount{{"policy", 2}, {"health", 1}}, s.TopTerms)
	assert.Equal(t, int64(2), s.ZeroResultCount)
	assert.InDelta(t, 1.5, s.QueriesPerMinute, 0.001)
}

func TestNearestRank(t *testing.T) {
	samples := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, int64(5), nearestRank(samples, 50))
	assert.Equal(t, int64(10), nearestRank(samples, 95))
	assert.Equal(t, int64(1), nearestRank(samples, 0))
	assert.Equal(t, int64(7), nearestRank([]int64{7}, 99))
}

func TestTopNTieBreak(t *testing.T) {
	got := topN(map[string]int64{"b": 1, "a": 1, "c": 2}, 2)
	assert.Equal(t, []QueryCount{{"c", 2}, {"a", 1}}, got)
}

func TestCollectorWithoutPublisher(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(agg, nil, 10)
	c.Start(context.Background())
	c.Track(event("health", 1, 0, false))
	c.Close()
	assert.Equal(t, int64(1), agg.Stats().TotalSearches)
}

func TestCollectorPublishesOnClose(t *testing.T) {
	pub := &fakePublisher{}
	agg := NewAggregator()
	c := NewCollector(agg, pub, 10)
	c.Start(context.Background())
	for i := 0; i < 5; i++ {
		c.Track(event("health", 1, 0, false))
	}
	c.Close()
	assert.Equal(t, 5, pub.count())
	assert.Equal(t, "search", pub.events[0].Key)
	assert.Equal(t, "search", pub.events[0].Headers["event-type"])
	assert.Equal(t, int64(5), agg.Stats().TotalSearches)
}

func TestCollectorFlushesFullBatch(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(nil, pub, 500)
	c.batchSize = 3
	c.flushInterval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	for i := 0; i < 3; i++ {
		c.Track(event("q", 1, 0, false))
	}
	assert.Eventually(t, func() bool { return pub.count() == 3 }, time.Second, 5*time.Millisecond)
	c.Close()
}

type fakeHistory struct {
	snaps []AggregatedStats
	err   error
}

func (f fakeHistory) ListSnapshots(_ context.Context, limit int) ([]AggregatedStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.snaps) {
		return f.snaps[:limit], nil
	}
	return f.snaps, nil
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(event("health", 1, 0, false))
	history := fakeHistory{snaps: []AggregatedStats{{TotalSearches: 9}, {TotalSearches: 4}}}

	tests := []struct {
		name    string
		history SnapshotLister
		url     string
		status  int
		check   func(t *testing.T, body map[string]json.RawMessage)
	}{
		{"live only", nil, "/api/v1/analytics", http.StatusOK, func(t *testing.T, body map[string]json.RawMessage) {
			var live AggregatedStats
			require.NoError(t, json.Unmarshal(body["live"], &live))
			assert.Equal(t, int64(1), live.TotalSearches)
			assert.NotContains(t, body, "history")
		}},
		{"with history", history, "/api/v1/analytics?history=1", http.StatusOK, func(t *testing.T, body map[string]json.RawMessage) {
			var snaps []AggregatedStats
			require.NoError(t, json.Unmarshal(body["history"], &snaps))
			require.Len(t, snaps, 1)
			assert.Equal(t, int64(9), snaps[0].TotalSearches)
		}},
		{"bad history", history, "/api/v1/analytics?history=abc", http.StatusBadRequest, func(t *testing.T, body map[string]json.RawMessage) {
			assert.JSONEq(t, `"invalid_input"`, string(body["code"]))
			assert.JSONEq(t, `"history must be an integer between 1 and 100"`, string(body["error"]))
		}},
		{"history disabled", nil, "/api/v1/analytics?history=2", http.StatusServiceUnavailable, nil},
		{"history error", fakeHistory{err: errors.New("db down")}, "/api/v1/analytics?history=2", http.StatusInternalServerError, func(t *testing.T, body map[string]json.RawMessage) {
			assert.NotContains(t, string(body["error"]), "db down")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(agg, tt.history).Stats(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.check != nil {
				var body map[string]json.RawMessage
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				tt.check(t, body)
			}
		})
	}
}
