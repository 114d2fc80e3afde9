package analytics

// Sink receives events for delivery elsewhere, typically a Kafka batch
// collector.
type Sink interface {
	Track(key string, value any)
}

// Tracker fans search events out to the local aggregator and an optional
// sink. Either may be nil.
type Tracker struct {
	agg  *Aggregator
	sink Sink
}

func NewTracker(agg *Aggregator, sink Sink) *Tracker {
	return &Tracker{agg: agg, sink: sink}
}

func (t *Tracker) TrackSearch(event SearchEvent) {
	if t == nil {
		return
	}
	if t.agg != nil {
		t.agg.Record(event)
	}
	if t.sink != nil {
		t.sink.Track(string(event.Type), event)
	}
}
