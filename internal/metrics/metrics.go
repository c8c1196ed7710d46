// Package metrics exposes the Prometheus instrumentation shared by the
// ingestor, blockstore, stream engine, and bus.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database metrics
	dbQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"db", "operation"},
	)

	dbQueryTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dna_db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"db", "operation"},
	)

	dbErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_db_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"db", "error_type"},
	)

	// Ingestion metrics
	HeadBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dna_head_block",
			Help: "The current ChainView head block number",
		},
		[]string{"chain"},
	)

	FinalizedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dna_finalized_block",
			Help: "The current ChainView finalized block number",
		},
		[]string{"chain"},
	)

	BlocksIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_blocks_ingested_total",
			Help: "Total number of blocks appended to the ChainView",
		},
		[]string{"chain"},
	)

	ReorgsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_reorgs_detected_total",
			Help: "Total number of reorgs detected by the ingestor",
		},
		[]string{"chain"},
	)

	BlocksInvalidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_blocks_invalidated_total",
			Help: "Total number of blocks invalidated by reorg recovery",
		},
		[]string{"chain"},
	)

	IngestorState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dna_ingestor_state",
			Help: "Current ingestor state machine state (1=active, 0=inactive) per state label",
		},
		[]string{"chain", "state"},
	)

	BlockProcessingTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dna_block_processing_duration_seconds",
			Help:    "Time taken to process one ingestion loop iteration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	IngestionRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dna_ingestion_rate_blocks_per_second",
			Help: "Current ingestion rate in blocks per second",
		},
		[]string{"chain"},
	)

	// BlockStore metrics
	SegmentCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dna_blockstore_segment_count",
			Help: "Number of segments currently held by the blockstore",
		},
		[]string{"chain"},
	)

	SegmentCompactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_blockstore_segment_compactions_total",
			Help: "Total number of segment compactions performed",
		},
		[]string{"chain"},
	)

	FilterIndexLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_blockstore_filter_index_lookups_total",
			Help: "Total number of filter-key bitmap index lookups",
		},
		[]string{"chain", "result"},
	)

	RetentionPruned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_blockstore_retention_pruned_total",
			Help: "Total number of blocks pruned by retention",
		},
		[]string{"chain"},
	)

	// Stream engine metrics
	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dna_active_streams",
			Help: "Number of currently connected StreamData clients",
		},
		[]string{"chain"},
	)

	StreamStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_stream_state_transitions_total",
			Help: "Total number of per-client stream state transitions",
		},
		[]string{"from", "to"},
	)

	StreamBackpressureEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_stream_backpressure_events_total",
			Help: "Total number of times a stream entered Backpressure",
		},
		[]string{"chain"},
	)

	StreamRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_stream_rate_limited_total",
			Help: "Total number of requests throttled by the per-stream rate limiter",
		},
		[]string{"chain"},
	)

	StreamCancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_stream_cancellations_total",
			Help: "Total number of streams superseded or cancelled",
		},
		[]string{"reason"},
	)

	// Bus metrics
	BusLaggedSubscribers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_bus_lagged_subscribers_total",
			Help: "Total number of times a bus subscriber was detected lagging",
		},
		[]string{"chain"},
	)

	BusPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dna_bus_publish_duration_seconds",
			Help:    "Time taken to fan an IngestionEvent out to all subscribers",
			Buckets: prometheus.DefBuckets,
		},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dna_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dna_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dna_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dna_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dna_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func DBQueryInc(db string, operation string) {
	dbQueries.WithLabelValues(db, operation).Inc()
}

func DBQueryDuration(db string, operation string, duration time.Duration) {
	dbQueryTime.WithLabelValues(db, operation).Observe(duration.Seconds())
}

func DBErrorsInc(db string, errorType string) {
	dbErrors.WithLabelValues(db, errorType).Inc()
}

func BlockProcessingTimeLog(chain string, duration time.Duration) {
	BlockProcessingTime.WithLabelValues(chain).Observe(duration.Seconds())
}

func HeadBlockSet(chain string, blockNum uint64) {
	HeadBlock.WithLabelValues(chain).Set(float64(blockNum))
}

func FinalizedBlockSet(chain string, blockNum uint64) {
	FinalizedBlock.WithLabelValues(chain).Set(float64(blockNum))
}

func BlocksIngestedInc(chain string, count uint64) {
	BlocksIngested.WithLabelValues(chain).Add(float64(count))
}

func ReorgsDetectedInc(chain string) {
	ReorgsDetected.WithLabelValues(chain).Inc()
}

func BlocksInvalidatedInc(chain string, count uint64) {
	BlocksInvalidated.WithLabelValues(chain).Add(float64(count))
}

func IngestorStateSet(chain string, state string) {
	for _, s := range []string{"init", "ingest", "force_head_refresh", "fetch_parent_and_recover", "recover"} {
		v := float64(0)
		if s == state {
			v = 1
		}
		IngestorState.WithLabelValues(chain, s).Set(v)
	}
}

func IngestionRateLog(chain string, rate float64) {
	IngestionRate.WithLabelValues(chain).Set(rate)
}

func FilterIndexLookupInc(chain string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	FilterIndexLookups.WithLabelValues(chain, result).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())

	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
