// Package config provides configuration management for the conditional
// engine.
//
// Configuration is loaded from YAML with environment variable overrides and
// validated before use.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("conditional.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("conditional.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CONDITIONAL_SECTION_FIELD:
//
//   - CONDITIONAL_ENGINE_MODE overrides engine.mode
//   - CONDITIONAL_JOURNAL_PATH overrides journal.path
//   - CONDITIONAL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//   - CONDITIONAL_SERVER_API_KEY enables API key auth with one key named "env"
//
// # Secrets
//
// Credential fields may hold ${secret:name} references. The config package
// leaves them as written; commands resolve them through pkg/security/secrets
// after loading.
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
package config
