package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// Source says which front end issued a search.
type Source string

const (
	SourceWeb Source = "web"
	SourceAPI Source = "api"
	SourceCLI Source = "cli"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Source    Source    `json:"source"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// NewSearchEvent fills in Type from the hit count and stamps the time.
func NewSearchEvent(source Source, query string, terms []string, totalHits, returned int, latency time.Duration, cacheHit bool, requestID string) SearchEvent {
	typ := EventSearch
	if totalHits == 0 {
		typ = EventZeroResult
	}
	return SearchEvent{
		Type:      typ,
		Source:    source,
		Query:     query,
		Terms:     terms,
		TotalHits: totalHits,
		Returned:  returned,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}
