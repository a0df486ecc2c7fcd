package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/CabinBranis/fhe-ido-launchpad/ledger"
)

// PostgresStore implements ledger.Journal with PostgreSQL persistence.
// Events are append-only; the registry state is reconstructed by replaying
// them on startup.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed journal.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sale_events (
		seq BIGINT PRIMARY KEY,
		event_id VARCHAR(64) NOT NULL,
		kind VARCHAR(64) NOT NULL,
		sale_id BIGINT NOT NULL,
		body JSONB NOT NULL,
		occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sale_events_sale ON sale_events(sale_id);
	CREATE INDEX IF NOT EXISTS idx_sale_events_kind ON sale_events(kind);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append persists one ledger event. The primary key on seq makes duplicate
// appends fail loudly instead of silently forking the log.
func (s *PostgresStore) Append(ev ledger.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("serializing event: %w", err)
	}

	query := `
	INSERT INTO sale_events (seq, event_id, kind, sale_id, body, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.db.ExecContext(ctx, query,
		int64(ev.Seq),
		ev.ID,
		string(ev.Kind),
		int64(ev.SaleID),
		body,
		ev.Time,
	)
	return err
}

// LoadEvents retrieves the full event log ordered by sequence.
func (s *PostgresStore) LoadEvents() ([]ledger.Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT body FROM sale_events ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]ledger.Event, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		var ev ledger.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			return nil, fmt.Errorf("deserializing event: %w", err)
		}
		if !ev.Kind.Valid() {
			return nil, fmt.Errorf("unknown event kind %q at seq %d", ev.Kind, ev.Seq)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InMemoryJournal implements ledger.Journal for testing and journal-less
// runs, keeping events in memory.
type InMemoryJournal struct {
	mu     sync.Mutex
	events []ledger.Event
}

// NewInMemoryJournal creates an empty in-memory journal.
func NewInMemoryJournal() *InMemoryJournal {
	return &InMemoryJournal{
		events: make([]ledger.Event, 0),
	}
}

// Append stores the event in memory.
func (s *InMemoryJournal) Append(ev ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// LoadEvents returns a copy of all stored events.
func (s *InMemoryJournal) LoadEvents() ([]ledger.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}
