// Package config defines the on-disk configuration schema for dna-server.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete configuration for the ingestion and
// streaming engine.
type Config struct {
	// Chain contains the chain adapter / RPC configuration.
	Chain ChainConfig `yaml:"chain" json:"chain" toml:"chain"`

	// Ingestor contains the reorg-detection state machine configuration.
	Ingestor IngestorConfig `yaml:"ingestor" json:"ingestor" toml:"ingestor"`

	// BlockStore contains the block archive and filter-index configuration.
	BlockStore BlockStoreConfig `yaml:"blockstore" json:"blockstore" toml:"blockstore"`

	// Bus contains the IngestionBus broadcast configuration.
	Bus BusConfig `yaml:"bus" json:"bus" toml:"bus"`

	// Stream contains the per-client StreamEngine configuration.
	Stream StreamConfig `yaml:"stream" json:"stream" toml:"stream"`

	// GRPC contains the gRPC StreamService listener configuration.
	GRPC GRPCConfig `yaml:"grpc" json:"grpc" toml:"grpc"`

	// StatusAPI contains the HTTP status/health mirror configuration.
	StatusAPI StatusAPIConfig `yaml:"status_api" json:"status_api" toml:"status_api"`

	// Metrics contains the Prometheus metrics server configuration.
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" toml:"metrics"`

	// Logging contains the logger configuration.
	Logging LoggingConfig `yaml:"logging" json:"logging" toml:"logging"`

	// Maintenance contains the blockstore DB upkeep configuration.
	Maintenance MaintenanceConfig `yaml:"maintenance" json:"maintenance" toml:"maintenance"`
}

// ChainConfig configures the chain RPC adapter.
type ChainConfig struct {
	// Name identifies the chain adapter to use (currently only "evm").
	Name string `yaml:"name" json:"name" toml:"name"`

	// RPCURL is the node JSON-RPC endpoint URL.
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// Finality specifies the finality mode: "finalized", "safe", or "latest".
	Finality string `yaml:"finality" json:"finality" toml:"finality"`

	// FinalizedLag is the number of blocks behind head to consider finalized.
	// Only used when Finality is set to "latest".
	FinalizedLag uint64 `yaml:"finalized_lag" json:"finalized_lag" toml:"finalized_lag"`

	// RPCTimeoutMs is defaulted but not applied: ChainRpc does not put a
	// per-call deadline on RPC calls, which are bounded only by the retry
	// policy and the caller's context.
	RPCTimeoutMs int `yaml:"rpc_timeout_ms" json:"rpc_timeout_ms" toml:"rpc_timeout_ms"`

	// Retry configures the backoff policy for transient RPC failures.
	Retry RetryConfig `yaml:"retry" json:"retry" toml:"retry"`

	// WalkbackRetry configures the (typically more patient) backoff policy
	// used for the hop-by-hop ancestor walk-back performed in the
	// ingestor's Recover state.
	WalkbackRetry RetryConfig `yaml:"walkback_retry" json:"walkback_retry" toml:"walkback_retry"`
}

// ApplyDefaults sets default values for optional chain configuration fields.
func (c *ChainConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "evm"
	}
	if c.Finality == "" {
		c.Finality = "finalized"
	}
	if c.RPCTimeoutMs == 0 {
		c.RPCTimeoutMs = 10_000
	}
	c.Retry.ApplyDefaults()
	c.WalkbackRetry.ApplyDefaults()
}

// IngestorConfig configures the reorg-detection ingestion loop.
type IngestorConfig struct {
	// HeadRefreshIntervalMs is the interval between refresh_head /
	// refresh_finalized calls.
	HeadRefreshIntervalMs int `yaml:"head_refresh_interval_ms" json:"head_refresh_interval_ms" toml:"head_refresh_interval_ms"`

	// MaxWalkback is defaulted but not read by the ingestor: the Recover
	// walk-back is bounded only by the finalized height
	// (ErrReorgDepthExceeded), not by a hop count.
	MaxWalkback uint64 `yaml:"max_walkback" json:"max_walkback" toml:"max_walkback"`

	// DB holds the view-seed / checkpoint persistence configuration.
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`
}

// ApplyDefaults sets default values for optional ingestor configuration fields.
func (i *IngestorConfig) ApplyDefaults() {
	if i.HeadRefreshIntervalMs == 0 {
		i.HeadRefreshIntervalMs = 2000
	}
	if i.MaxWalkback == 0 {
		i.MaxWalkback = 256
	}
	i.DB.ApplyDefaults()
}

// BlockStoreConfig configures the block archive and filter index.
type BlockStoreConfig struct {
	// SegmentSize is the number of blocks per filter-index segment.
	SegmentSize uint64 `yaml:"segment_size" json:"segment_size" toml:"segment_size"`

	// RetentionBlocks is accepted but not applied: nothing calls
	// BlockStore.Retain, so orphaned blocks are kept indefinitely.
	RetentionBlocks uint64 `yaml:"retention_blocks" json:"retention_blocks" toml:"retention_blocks"`

	// DB holds the primary block archive persistence configuration.
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`
}

// ApplyDefaults sets default values for optional blockstore configuration fields.
func (b *BlockStoreConfig) ApplyDefaults() {
	if b.SegmentSize == 0 {
		b.SegmentSize = 10_000
	}
	b.DB.ApplyDefaults()
}

// BusConfig configures the IngestionBus's per-subscriber broadcast channel.
type BusConfig struct {
	// SubscriberBufferSize is the number of undelivered IngestionEvents a
	// subscriber may queue before it is considered lagged and detached.
	SubscriberBufferSize int `yaml:"subscriber_buffer_size" json:"subscriber_buffer_size" toml:"subscriber_buffer_size"`
}

// ApplyDefaults sets default values for optional bus configuration fields.
func (b *BusConfig) ApplyDefaults() {
	if b.SubscriberBufferSize == 0 {
		b.SubscriberBufferSize = 256
	}
}

// StreamConfig configures the per-client StreamEngine.
type StreamConfig struct {
	// MaxConcurrentStreams bounds the number of simultaneously admitted
	// clients (the semaphore.Weighted ceiling).
	MaxConcurrentStreams int64 `yaml:"max_concurrent_streams" json:"max_concurrent_streams" toml:"max_concurrent_streams"`

	// OutboundBufferSize is the number of queued messages per client before
	// the stream is considered to be in Backpressure.
	OutboundBufferSize int `yaml:"outbound_buffer_size" json:"outbound_buffer_size" toml:"outbound_buffer_size"`

	// HeartbeatIntervalMs is the interval between Heartbeat messages sent
	// to an idle client.
	HeartbeatIntervalMs int `yaml:"heartbeat_interval_ms" json:"heartbeat_interval_ms" toml:"heartbeat_interval_ms"`

	// RateLimitPerSecond is the sustained token-bucket refill rate per
	// client, in outbound data messages per second.
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second" json:"rate_limit_per_second" toml:"rate_limit_per_second"`

	// RateLimitBurst is the token-bucket burst capacity per client.
	RateLimitBurst int `yaml:"rate_limit_burst" json:"rate_limit_burst" toml:"rate_limit_burst"`

	// BytesPerSecondLimit is the sustained outbound payload-byte budget per
	// client, paced independently of RateLimitPerSecond's per-message rate.
	BytesPerSecondLimit float64 `yaml:"bytes_per_second_limit" json:"bytes_per_second_limit" toml:"bytes_per_second_limit"`

	// BytesPerSecondBurst is the byte token-bucket burst capacity per client.
	BytesPerSecondBurst int `yaml:"bytes_per_second_burst" json:"bytes_per_second_burst" toml:"bytes_per_second_burst"`

	// PendingTailDepth (K) is how close to the view's head historical
	// catch-up must get before a stream switches to live bus following.
	PendingTailDepth uint64 `yaml:"pending_tail_depth" json:"pending_tail_depth" toml:"pending_tail_depth"`

	// HistoricalBatchSize bounds how many blocks a single BlockStore.Scan
	// batch covers during historical catch-up, independent of the
	// client-requested batch_size.
	HistoricalBatchSize uint64 `yaml:"historical_batch_size" json:"historical_batch_size" toml:"historical_batch_size"`

	// MaxLagBlocks is the number of blocks a stream may fall behind the
	// bus before it is cancelled with ResourceExhausted.
	MaxLagBlocks int `yaml:"max_lag_blocks" json:"max_lag_blocks" toml:"max_lag_blocks"`

	// MaxLagBytes is the cumulative outbound payload size a stream may
	// queue before it is cancelled with ResourceExhausted.
	MaxLagBytes int64 `yaml:"max_lag_bytes" json:"max_lag_bytes" toml:"max_lag_bytes"`

	// IdleTimeoutMs is defaulted but not enforced: the StreamEngine does
	// not close a stream for lack of inbound activity.
	IdleTimeoutMs int `yaml:"idle_timeout_ms" json:"idle_timeout_ms" toml:"idle_timeout_ms"`

	// AllowMultiFilter permits a StreamDataRequest to carry more than one
	// component Filter (matched as OR across filters). When false, a
	// request with multiple filters is rejected with InvalidArgument.
	AllowMultiFilter bool `yaml:"allow_multi_filter" json:"allow_multi_filter" toml:"allow_multi_filter"`
}

// ApplyDefaults sets default values for optional stream configuration fields.
func (s *StreamConfig) ApplyDefaults() {
	if s.MaxConcurrentStreams == 0 {
		s.MaxConcurrentStreams = 256
	}
	if s.OutboundBufferSize == 0 {
		s.OutboundBufferSize = 1024
	}
	if s.HeartbeatIntervalMs == 0 {
		s.HeartbeatIntervalMs = 15_000
	}
	if s.RateLimitPerSecond == 0 {
		s.RateLimitPerSecond = 50
	}
	if s.RateLimitBurst == 0 {
		s.RateLimitBurst = 100
	}
	if s.BytesPerSecondLimit == 0 {
		s.BytesPerSecondLimit = 8 << 20
	}
	if s.BytesPerSecondBurst == 0 {
		s.BytesPerSecondBurst = 16 << 20
	}
	if s.PendingTailDepth == 0 {
		s.PendingTailDepth = 12
	}
	if s.HistoricalBatchSize == 0 {
		s.HistoricalBatchSize = 500
	}
	if s.MaxLagBlocks == 0 {
		s.MaxLagBlocks = 10_000
	}
	if s.MaxLagBytes == 0 {
		s.MaxLagBytes = 64 << 20
	}
	if s.IdleTimeoutMs == 0 {
		s.IdleTimeoutMs = 5 * 60 * 1000
	}
}

// GRPCConfig configures the StreamService gRPC listener.
type GRPCConfig struct {
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`
}

// ApplyDefaults sets default values for optional gRPC configuration fields.
func (g *GRPCConfig) ApplyDefaults() {
	if g.ListenAddress == "" {
		g.ListenAddress = ":9090"
	}
}

// StatusAPIConfig configures the optional HTTP status/health mirror.
type StatusAPIConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	ReadTimeoutMs  int `yaml:"read_timeout_ms" json:"read_timeout_ms" toml:"read_timeout_ms"`
	WriteTimeoutMs int `yaml:"write_timeout_ms" json:"write_timeout_ms" toml:"write_timeout_ms"`
	IdleTimeoutMs  int `yaml:"idle_timeout_ms" json:"idle_timeout_ms" toml:"idle_timeout_ms"`

	CORS CORSConfig `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures the status API's CORS middleware.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for optional status API configuration fields.
func (a *StatusAPIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeoutMs == 0 {
		a.ReadTimeoutMs = 5_000
	}
	if a.WriteTimeoutMs == 0 {
		a.WriteTimeoutMs = 10_000
	}
	if a.IdleTimeoutMs == 0 {
		a.IdleTimeoutMs = 60_000
	}
}

// MetricsConfig represents the Prometheus metrics server configuration.
type MetricsConfig struct {
	// Enabled toggles whether the metrics HTTP server is started.
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address the metrics server binds to.
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path Prometheus metrics are served on.
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9100"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// LoggingConfig configures the engine's zap-backed logger.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level" toml:"level"`
	Development bool   `yaml:"development" json:"development" toml:"development"`
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
}

// MaintenanceConfig configures periodic SQLite WAL checkpointing and VACUUM
// for the blockstore database.
type MaintenanceConfig struct {
	Enabled           bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	VacuumOnStartup   bool     `yaml:"vacuumOnStartup" json:"vacuumOnStartup" toml:"vacuumOnStartup"`
	CheckInterval     Duration `yaml:"checkInterval" json:"checkInterval" toml:"checkInterval"`
	WALCheckpointMode string   `yaml:"walCheckpointMode" json:"walCheckpointMode" toml:"walCheckpointMode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = NewDuration(1 * time.Hour)
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "PASSIVE"
	}
}

// DatabaseConfig represents SQLite database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database.
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE").
	// WAL mode is recommended for better concurrency.
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF").
	// NORMAL provides a good balance between safety and performance.
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked.
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages).
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections.
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool.
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement.
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
	// EnableForeignKeys defaults to false (zero value)
}

// ApplyDefaults sets default values for optional configuration fields across
// the whole tree.
func (c *Config) ApplyDefaults() {
	c.Chain.ApplyDefaults()
	c.Ingestor.ApplyDefaults()
	c.BlockStore.ApplyDefaults()
	c.Bus.ApplyDefaults()
	c.Stream.ApplyDefaults()
	c.GRPC.ApplyDefaults()
	c.StatusAPI.ApplyDefaults()
	c.Metrics.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Maintenance.ApplyDefaults()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}

	if c.Chain.Name != "evm" {
		return fmt.Errorf("chain.name must be 'evm'")
	}

	if c.Chain.Finality != "finalized" && c.Chain.Finality != "safe" && c.Chain.Finality != "latest" {
		return fmt.Errorf("chain.finality must be one of: 'finalized', 'safe', or 'latest'")
	}

	if c.Ingestor.DB.Path == "" {
		return fmt.Errorf("ingestor.db.path is required")
	}

	if c.BlockStore.DB.Path == "" {
		return fmt.Errorf("blockstore.db.path is required")
	}

	if err := validateDatabaseConfig("ingestor.db", &c.Ingestor.DB); err != nil {
		return err
	}
	if err := validateDatabaseConfig("blockstore.db", &c.BlockStore.DB); err != nil {
		return err
	}

	if c.Stream.MaxConcurrentStreams <= 0 {
		return fmt.Errorf("stream.max_concurrent_streams must be positive")
	}

	if c.Stream.RateLimitPerSecond <= 0 {
		return fmt.Errorf("stream.rate_limit_per_second must be positive")
	}

	return nil
}

func validateDatabaseConfig(field string, db *DatabaseConfig) error {
	if db.JournalMode != "" && db.JournalMode != "WAL" &&
		db.JournalMode != "DELETE" && db.JournalMode != "TRUNCATE" &&
		db.JournalMode != "PERSIST" && db.JournalMode != "MEMORY" {
		return fmt.Errorf("%s.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY", field)
	}

	if db.Synchronous != "" && db.Synchronous != "FULL" &&
		db.Synchronous != "NORMAL" && db.Synchronous != "OFF" {
		return fmt.Errorf("%s.synchronous must be one of: FULL, NORMAL, OFF", field)
	}

	return nil
}
