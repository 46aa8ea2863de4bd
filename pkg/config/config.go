package config

import "time"

// Config is the root configuration.
type Config struct {
	// Engine controls evaluation defaults and named runners.
	Engine EngineConfig `yaml:"engine"`

	// Definitions locates the condition definition document.
	Definitions DefinitionsConfig `yaml:"definitions"`

	// Journal controls persistence of evaluation runs.
	Journal JournalConfig `yaml:"journal"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets resolves ${secret:name} references in credential fields.
	Secrets SecretsConfig `yaml:"secrets"`
}

// SecretsConfig lists where secret references are looked up. Providers are
// tried in order: files first, then the environment.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased secret name, with hyphens
	// turned into underscores.
	// Default: "CONDITIONAL_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir holds one file per secret, named after it. Empty disables file
	// lookups.
	Dir string `yaml:"dir"`

	// CacheTTL is how long a resolved value is reused.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// EngineConfig contains evaluation settings.
type EngineConfig struct {
	// Mode is the dispatch mode applied to definitions: "declared" keeps
	// each node's own settings, "sequential" and "parallel" rewrite the tree.
	// Default: "declared"
	Mode string `yaml:"mode"`

	// Timeout bounds a whole evaluation. Zero means no bound.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// SettleTimeout is how long to wait for cancelled branches to finish
	// before a run is journaled.
	// Default: 1s
	SettleTimeout time.Duration `yaml:"settle_timeout"`

	// Runners declares named worker pools that definitions can reference.
	Runners map[string]RunnerConfig `yaml:"runners"`
}

// RunnerConfig sizes a named worker pool.
type RunnerConfig struct {
	// Workers is the number of concurrent workers.
	// Default: 4
	Workers int `yaml:"workers"`

	// QueueSize is the pending task capacity.
	// Default: 1024
	QueueSize int `yaml:"queue_size"`
}

// DefinitionsConfig contains definition file settings.
type DefinitionsConfig struct {
	// Path is the definition document.
	// Default: "./conditions.yaml"
	Path string `yaml:"path"`

	// Watch reloads definitions when the file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce coalesces bursts of file events.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// Git loads the document from a Git repository instead of Path.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures a Git-backed definition document. An empty
// Repository disables it.
type GitConfig struct {
	// Repository is the clone URL or a local repository path.
	Repository string `yaml:"repository"`

	// Branch is checked out and pulled.
	// Default: "main"
	Branch string `yaml:"branch"`

	// File is the document path relative to the repository root.
	// Default: "conditions.yaml"
	File string `yaml:"file"`

	// LocalPath is where the repository is cloned.
	// Default: "data/definitions-repo"
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history. 0 clones everything, which rollback
	// after a bad commit relies on.
	// Default: 0
	Depth int `yaml:"depth"`

	// CleanOnStart removes LocalPath before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`

	// PollInterval is the delay between pulls when watching.
	// Default: 30s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds each clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type is token, ssh or none.
	// Default: "none"
	Type string `yaml:"type"`

	// Token is the HTTPS password or personal access token.
	Token string `yaml:"token"`

	// SSHKeyPath is a private key file with 0600 permissions.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted key.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// JournalConfig contains run journal settings.
type JournalConfig struct {
	// Enabled records every evaluation run.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Driver selects the store: "sqlite3" (cgo), "sqlite" (pure Go) or "memory".
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Path is the database file for SQLite drivers.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// WALMode enables SQLite write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the SQLite lock wait.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// MaxOpenConns limits open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// Retention controls pruning of old runs.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains pruning settings.
type RetentionConfig struct {
	// Days is the age after which runs are deleted. Zero keeps runs forever.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a standard cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRuns caps the number of stored runs. Zero means unlimited.
	// Default: 0
	MaxRuns int64 `yaml:"max_runs"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the address the API listens on.
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// TLS serves the API over HTTPS.
	TLS TLSConfig `yaml:"tls"`

	// Auth requires an API key on /v1 routes.
	Auth AuthConfig `yaml:"auth"`

	// Limits throttles /v1 routes per client.
	Limits LimitsConfig `yaml:"limits"`
}

// LimitsConfig throttles API requests per client. Clients are API key
// names when auth is enabled and remote addresses otherwise.
type LimitsConfig struct {
	// Enabled turns on throttling.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the average request rate per client. Zero
	// disables the rate limit.
	// Default: 10 when MaxConcurrent is also unset
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is how many requests may arrive at once.
	// Default: twice RequestsPerSecond
	Burst int `yaml:"burst"`

	// MaxConcurrent caps in-flight requests per client. Zero means no cap.
	MaxConcurrent int `yaml:"max_concurrent"`

	// IdleTimeout drops limiters of clients unseen for this long.
	// Default: 10m
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// TLSConfig contains HTTPS settings for the API server.
type TLSConfig struct {
	// Enabled turns on TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM-encoded certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts TLS 1.2 suites. Empty keeps Go's defaults.
	CipherSuites []string `yaml:"cipher_suites"`

	// ReloadInterval is how often the key pair is checked for changes on
	// disk. Zero disables reloading.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`

	// ClientCAFile enables mutual TLS when set.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuth is "require", "request" or "verify_if_given".
	// Default: "require" when ClientCAFile is set
	ClientAuth string `yaml:"client_auth"`
}

// AuthConfig contains API key authentication settings.
type AuthConfig struct {
	// Enabled turns on API key checks for /v1 routes. Health, version and
	// metrics routes stay open.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sources lists where keys are read from, in order.
	// Default: Authorization Bearer header, then X-API-Key header
	Sources []KeySourceConfig `yaml:"sources"`

	// Keys are the accepted API keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// KeySourceConfig is one place an API key may be presented.
type KeySourceConfig struct {
	// Type is "header" or "query".
	Type string `yaml:"type"`

	// Name is the header or query parameter name.
	Name string `yaml:"name"`

	// Scheme is a required value prefix such as "Bearer".
	Scheme string `yaml:"scheme"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	// Name identifies the client in logs and journaled runs.
	Name string `yaml:"name"`

	// Key is the secret value.
	Key string `yaml:"key"`

	// Disabled rejects the key without removing it.
	Disabled bool `yaml:"disabled"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn or error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is json, text or console.
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "conditional"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "engine"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are histogram buckets for evaluation durations (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing settings. Each condition
// invocation becomes a span.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "conditional"
	ServiceName string `yaml:"service_name"`

	// Sampler is always, never or ratio.
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces kept by the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
