package telemetry

// LatencyBuckets for store-backed reads (memory, redis, sqlite).
var LatencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Change event bus
var (
	// EventsPublishedTotal counts published change events by kind (created, updated, deleted)
	EventsPublishedTotal CounterVec = noopCounterVec{}

	// EventsDeliveredTotal counts events enqueued on a subscriber queue
	EventsDeliveredTotal Counter = NoopStat{}

	// EventsDroppedTotal counts events evicted from a full subscriber queue
	EventsDroppedTotal Counter = NoopStat{}

	// Subscribers tracks currently attached subscribers
	Subscribers Gauge = NoopStat{}
)

// Read path
var (
	// PageRequestsTotal counts page requests by result (ok, invalid_cursor, error)
	PageRequestsTotal CounterVec = noopCounterVec{}

	// PageDurationSeconds measures page assembly latency
	PageDurationSeconds Histogram = NoopStat{}

	// StatsCacheTotal counts statistics cache lookups by result (hit, miss)
	StatsCacheTotal CounterVec = noopCounterVec{}
)

// Write path
var (
	// MutationsTotal counts command layer calls by operation and result
	MutationsTotal CounterVec = noopCounterVec{}
)

func initMetrics() {
	EventsPublishedTotal = newCounterVec("events", "published_total", "Change events published by kind", []string{"kind"})
	EventsDeliveredTotal = newCounter("events", "delivered_total", "Change events enqueued on subscriber queues")
	EventsDroppedTotal = newCounter("events", "dropped_total", "Change events evicted from full subscriber queues")
	Subscribers = newGauge("events", "subscribers", "Currently attached subscribers")

	PageRequestsTotal = newCounterVec("query", "page_requests_total", "Page requests by result", []string{"result"})
	PageDurationSeconds = newHistogram("query", "page_duration_seconds", "Page assembly latency", LatencyBuckets)
	StatsCacheTotal = newCounterVec("stats", "cache_total", "Statistics cache lookups by result", []string{"result"})

	MutationsTotal = newCounterVec("command", "mutations_total", "Mutations by operation and result", []string{"op", "result"})
}
