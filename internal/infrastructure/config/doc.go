// Package config provides 12-factor configuration management for the engine.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional TOML file named by ENCLAVE_CONFIG is applied first, so the
// environment always wins over the file.
//
// Configuration Sections:
//   - Engine: isolate limits and legacy-mode behavior
//   - Server: debug/inspection HTTP server settings
//   - Logging: log level and output format
//   - Codec: default compression level for the codec collaborator
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("max isolates: %d\n", cfg.Engine.MaxIsolates)
//
// Environment Variables:
//   - ENCLAVE_MAX_ISOLATES
//   - ENCLAVE_HTTP_HOST, ENCLAVE_HTTP_PORT, ENCLAVE_HTTP_ENABLED
//   - ENCLAVE_LOG_LEVEL, ENCLAVE_LOG_DEV
//   - ENCLAVE_CODEC_LEVEL
//   - ENCLAVE_CONFIG (path to an optional TOML file)
package config
