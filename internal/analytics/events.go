// Package analytics describes the events the catalog services emit and keeps
// an in-process summary of recent search traffic.
package analytics

import "time"

type EventType string

const (
	EventSearch        EventType = "search"
	EventZeroResult    EventType = "zero_result"
	EventIndexComplete EventType = "index_complete"
)

// SearchEvent is emitted once per answered search request.
type SearchEvent struct {
	Type        EventType `json:"type"`
	Query       string    `json:"query"`
	Terms       []string  `json:"terms"`
	TotalHits   int       `json:"total_hits"`
	Returned    int       `json:"returned"`
	LatencyMs   int64     `json:"latency_ms"`
	CacheStatus string    `json:"cache_status"`
	IndexSum    uint32    `json:"index_checksum"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
}

// NewSearchEvent fills in the event type from the hit count.
func NewSearchEvent(query string, terms []string, totalHits, returned int, latency time.Duration) SearchEvent {
	t := EventSearch
	if totalHits == 0 {
		t = EventZeroResult
	}
	return SearchEvent{
		Type:      t,
		Query:     query,
		Terms:     terms,
		TotalHits: totalHits,
		Returned:  returned,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
}

// IndexEvent announces a newly published index file.
type IndexEvent struct {
	Type       EventType `json:"type"`
	Path       string    `json:"path"`
	Checksum   uint32    `json:"checksum"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Skipped    int       `json:"skipped"`
	Analyzer   string    `json:"analyzer"`
	TFScheme   string    `json:"tf_scheme"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
