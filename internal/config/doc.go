// Package config loads runtime configuration for baaskit clients.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. JSON by default,
//     YAML when the file ends in .yaml or .yml.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # File schema
//
// Durations use timex.Duration, so they can be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "application_id": "myApp",
//	  "javascript_key": "jsKey",
//	  "server_url": "https://api.example.com/parse",
//	  "version": "0.1.0",
//	  "storage": "sqlite",
//	  "storage_dsn": "baas.db",
//	  "request_timeout": "10s"
//	}
//
// The package does not read environment variables; use a file or flags.
package config
