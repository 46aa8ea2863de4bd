package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultEngineMode          = "declared"
	DefaultEngineTimeout       = 30 * time.Second
	DefaultEngineSettleTimeout = time.Second
	DefaultRunnerWorkers       = 4
	DefaultRunnerQueueSize     = 1024

	// Definitions defaults
	DefaultDefinitionsPath     = "./conditions.yaml"
	DefaultDefinitionsWatch    = false
	DefaultDefinitionsDebounce = 100 * time.Millisecond
	DefaultGitBranch           = "main"
	DefaultGitFile             = "conditions.yaml"
	DefaultGitLocalPath        = "data/definitions-repo"
	DefaultGitPollInterval     = 30 * time.Second
	DefaultGitTimeout          = 30 * time.Second
	DefaultGitAuthType         = "none"

	// Journal defaults
	DefaultJournalEnabled      = true
	DefaultJournalDriver       = "sqlite3"
	DefaultJournalPath         = "data/journal.db"
	DefaultJournalWALMode      = true
	DefaultJournalBusyTimeout  = 5 * time.Second
	DefaultJournalMaxOpenConns = 10
	DefaultRetentionDays       = 30
	DefaultRetentionSchedule   = "0 3 * * *"
	DefaultRetentionMaxRuns    = int64(0)

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute
	DefaultTLSClientAuth   = "require"
	DefaultLimitsRate      = 10.0
	DefaultLimitsIdle      = 10 * time.Minute

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "conditional"
	DefaultMetricsSubsystem = "engine"
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingService   = "conditional"
	DefaultTracingSampler   = "always"
	DefaultTracingRatio     = 1.0
	DefaultTracingTimeout   = 10 * time.Second
)

// Secrets defaults
const (
	DefaultSecretsEnvPrefix = "CONDITIONAL_SECRET_"
	DefaultSecretsCacheTTL  = 5 * time.Minute
)

// DefaultKeySources reads a bearer token first, then X-API-Key.
func DefaultKeySources() []KeySourceConfig {
	return []KeySourceConfig{
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
		{Type: "header", Name: "X-API-Key"},
	}
}

// DefaultDurationBuckets covers fast in-process predicates up to slow
// remote lookups.
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}

// NewDefaultConfig returns a configuration with every default applied.
// Boolean defaults that are true are set here, since ApplyDefaults cannot
// tell an unset false from an explicit one.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Journal.Enabled = DefaultJournalEnabled
	cfg.Journal.WALMode = DefaultJournalWALMode
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.Mode == "" {
		cfg.Engine.Mode = DefaultEngineMode
	}
	if cfg.Engine.Timeout == 0 {
		cfg.Engine.Timeout = DefaultEngineTimeout
	}
	if cfg.Engine.SettleTimeout == 0 {
		cfg.Engine.SettleTimeout = DefaultEngineSettleTimeout
	}
	for name, r := range cfg.Engine.Runners {
		if r.Workers == 0 {
			r.Workers = DefaultRunnerWorkers
		}
		if r.QueueSize == 0 {
			r.QueueSize = DefaultRunnerQueueSize
		}
		cfg.Engine.Runners[name] = r
	}

	// Definitions defaults
	if cfg.Definitions.Path == "" {
		cfg.Definitions.Path = DefaultDefinitionsPath
	}
	if cfg.Definitions.Debounce == 0 {
		cfg.Definitions.Debounce = DefaultDefinitionsDebounce
	}
	if git := &cfg.Definitions.Git; git.Repository != "" {
		if git.Branch == "" {
			git.Branch = DefaultGitBranch
		}
		if git.File == "" {
			git.File = DefaultGitFile
		}
		if git.LocalPath == "" {
			git.LocalPath = DefaultGitLocalPath
		}
		if git.PollInterval == 0 {
			git.PollInterval = DefaultGitPollInterval
		}
		if git.Timeout == 0 {
			git.Timeout = DefaultGitTimeout
		}
		if git.Auth.Type == "" {
			git.Auth.Type = DefaultGitAuthType
		}
	}

	// Secrets defaults
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}

	// Journal defaults
	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = DefaultJournalDriver
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Journal.BusyTimeout == 0 {
		cfg.Journal.BusyTimeout = DefaultJournalBusyTimeout
	}
	if cfg.Journal.MaxOpenConns == 0 {
		cfg.Journal.MaxOpenConns = DefaultJournalMaxOpenConns
	}
	if cfg.Journal.Retention.Days == 0 {
		cfg.Journal.Retention.Days = DefaultRetentionDays
	}
	if cfg.Journal.Retention.PruneSchedule == "" {
		cfg.Journal.Retention.PruneSchedule = DefaultRetentionSchedule
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.MinVersion == "" {
			cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
		}
		if cfg.Server.TLS.ReloadInterval == 0 {
			cfg.Server.TLS.ReloadInterval = DefaultTLSReload
		}
		if cfg.Server.TLS.ClientCAFile != "" && cfg.Server.TLS.ClientAuth == "" {
			cfg.Server.TLS.ClientAuth = DefaultTLSClientAuth
		}
	}
	if cfg.Server.Limits.Enabled {
		if cfg.Server.Limits.RequestsPerSecond == 0 && cfg.Server.Limits.MaxConcurrent == 0 {
			cfg.Server.Limits.RequestsPerSecond = DefaultLimitsRate
		}
		if cfg.Server.Limits.IdleTimeout == 0 {
			cfg.Server.Limits.IdleTimeout = DefaultLimitsIdle
		}
	}
	if cfg.Server.Auth.Enabled && len(cfg.Server.Auth.Sources) == 0 {
		cfg.Server.Auth.Sources = DefaultKeySources()
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
		if cfg.Telemetry.Tracing.SampleRatio == 0 {
			cfg.Telemetry.Tracing.SampleRatio = DefaultTracingRatio
		}
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
}
