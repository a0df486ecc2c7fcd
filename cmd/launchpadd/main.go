// Command launchpadd runs the confidential IDO launchpad daemon.
//
// The daemon holds the authoritative sale registry and exposes the
// transition API over HTTP. Contribution, summary and allocation payloads
// are opaque ciphertext produced by the external cryptographic layer; the
// daemon stores and re-emits them without interpretation.
//
// # Configuration File
//
// Create a YAML file with daemon settings:
//
//	http_addr: ":8080"
//	admin_token: "admin:secret"
//	enable_pprof: false
//	log_json: true
//	postgres:
//	  host: localhost
//	  port: 5432
//	  user: launchpad
//	  password: secret
//	  database: launchpad
//
// Without a postgres section the daemon keeps the event journal in memory
// and loses all state on restart.
//
// # Endpoints
//
// Public:
//   - POST /sales - Create a sale (signed)
//   - POST /sales/{id}/active - Pause or resume (signed, owner)
//   - POST /sales/{id}/owner - Transfer ownership (signed, owner)
//   - POST /sales/{id}/contributions - Submit encrypted contribution (signed)
//   - POST /sales/{id}/finalize - Finalize after window close (signed, owner)
//   - POST /sales/{id}/claim - Claim encrypted allocation (signed)
//   - GET /sales, /sales/{id}, /sales/{id}/active, /sales/{id}/aggregates
//   - GET /sales/{id}/positions/{participant}
//   - GET /events?since=N - Append-only event log
//
// Admin (basic auth when admin_token set):
//   - GET /admin/sales, /admin/sales/{id}/positions, /admin/events
//
// # Usage
//
//	go run ./cmd/launchpadd --config=launchpad.yaml
//	go run ./cmd/launchpadd --addr=:8080 --admin-token="admin:secret"
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CabinBranis/fhe-ido-launchpad/api/httpserver"
	"github.com/CabinBranis/fhe-ido-launchpad/cmd/common"
	"github.com/CabinBranis/fhe-ido-launchpad/ledger"
	"github.com/CabinBranis/fhe-ido-launchpad/services"
	"github.com/go-chi/chi/v5"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		addr       = flag.String("addr", "", "HTTP listen address")
		adminToken = flag.String("admin-token", "", "Basic auth token for admin operations (user:pass)")
		pprof      = flag.Bool("pprof", false, "Enable pprof debugging API")
	)
	flag.Parse()

	cfg, err := loadConfiguration(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.HTTPAddr = *addr
	}
	if *adminToken != "" {
		cfg.AdminToken = *adminToken
	}
	if *pprof {
		cfg.EnablePprof = true
	}

	if err := run(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfiguration(configPath string) (*common.Config, error) {
	if configPath != "" {
		return common.LoadConfig(configPath)
	}
	return common.DefaultConfig(), nil
}

func run(cfg *common.Config) error {
	log := common.NewLogger(cfg.LogJSON)

	var journal ledger.Journal
	var loadEvents func() ([]ledger.Event, error)

	if cfg.Postgres != nil {
		store, err := services.NewPostgresStore(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer store.Close()
		journal = store
		loadEvents = store.LoadEvents
		log.Info("using postgres event journal", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	} else {
		memory := services.NewInMemoryJournal()
		journal = memory
		loadEvents = memory.LoadEvents
		log.Warn("no postgres configured, event journal is in-memory only")
	}

	registry := ledger.NewRegistry(ledger.Config{
		Journal: journal,
		Log:     log,
	})

	events, err := loadEvents()
	if err != nil {
		return fmt.Errorf("loading event log: %w", err)
	}
	if len(events) > 0 {
		if err := registry.Replay(events); err != nil {
			return fmt.Errorf("replaying event log: %w", err)
		}
	}

	handler := services.NewHandler(registry, &services.HandlerConfig{
		AdminToken: cfg.AdminToken,
		Log:        log,
	})

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.HTTPAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            5 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              10 * time.Second,
		WriteTimeout:             10 * time.Second,
	}, routeRegistrarFunc(func(r chi.Router) {
		handler.RegisterPublicRoutes(r)
		handler.RegisterAdminRoutes(r)
	}))
	if err != nil {
		return fmt.Errorf("creating HTTP server: %w", err)
	}

	srv.RunInBackground()
	log.Info("launchpad daemon started", "addr", cfg.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	srv.Shutdown()
	return nil
}

// routeRegistrarFunc adapts a function to the httpserver.RouteRegistrar
// interface.
type routeRegistrarFunc func(chi.Router)

func (f routeRegistrarFunc) RegisterRoutes(r chi.Router) {
	f(r)
}
