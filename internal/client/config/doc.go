// Package config loads runtime configuration for the hrctl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file given with --config or $HRKEEPER_CONFIG.
//  3. Command-line flags bound by the CLI, which override earlier values.
//
// # JSON schema
//
// The JSON loader uses timex.Duration, so timeouts can be either strings
// like "10s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "10s",
//	  "session_file": "/home/me/.hrkeeper/session.db"
//	}
package config
