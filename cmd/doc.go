// Package cmd provides CLI commands for the confidential IDO launchpad.
//
// # Commands
//
// launchpadd: The launchpad daemon. Holds the authoritative sale registry,
// exposes the transition API over HTTP, and journals the event log to
// PostgreSQL when configured.
//
//	go run ./cmd/launchpadd --addr=:8080 --admin-token=admin:secret
//	go run ./cmd/launchpadd --config=launchpad.yaml
//
// idoctl: CLI for interacting with a running daemon: key generation, sale
// lifecycle transitions, encrypted contributions and claims, and read-only
// queries.
//
//	go run ./cmd/idoctl create --url=http://localhost:8080 --start=... --end=...
//	go run ./cmd/idoctl contribute --sale=0 --payload=0xdeadbeef
//
// # Configuration
//
// The daemon supports YAML configuration files via the --config flag.
// Command-line flags override config file values.
package cmd
