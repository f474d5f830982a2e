package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const sampleSchema = `
CREATE TABLE IF NOT EXISTS samples (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	size_kg REAL,
	use_by_date TEXT,
	pack_code TEXT,
	bird_temp_c REAL,
	customer TEXT,
	retailer TEXT NOT NULL,
	supplier TEXT,
	code TEXT,
	sample_number INTEGER NOT NULL,
	price_gbp REAL,
	van_temp_c REAL,
	created_at_local TEXT NOT NULL,
	device_id TEXT,
	driver_id TEXT,
	sync_status TEXT NOT NULL,
	error_msg TEXT
);
CREATE INDEX IF NOT EXISTS idx_samples_status ON samples(sync_status);
CREATE INDEX IF NOT EXISTS idx_samples_created ON samples(created_at_local);
CREATE INDEX IF NOT EXISTS idx_samples_day_number ON samples(DATE(created_at_local), sample_number);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db       *sql.DB
	sb       sq.StatementBuilderType
	defaults Defaults
	now      func() time.Time

	// writeMu serializes writes that read then extend per-day numbering
	// state, so two concurrent creates never observe the same day maximum.
	writeMu sync.Mutex
}

// Option configures store construction.
type Option func(*SQLiteStore)

// WithNow overrides the clock used for creation timestamps and the use-by
// validation window.
func WithNow(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

// NewSQLiteStore wraps an open database handle. The schema must already
// exist; Open is the usual entry point.
func NewSQLiteStore(db *sql.DB, defaults Defaults, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		db:       db,
		sb:       sq.StatementBuilder.PlaceholderFormat(sq.Question),
		defaults: defaults,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens (creating if necessary) the sample database at path and
// bootstraps the schema.
func Open(ctx context.Context, path string, defaults Defaults, opts ...Option) (*SQLiteStore, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sample database %q: %w", path, err)
	}
	// The modernc driver is safe for concurrent use but a single connection
	// avoids SQLITE_BUSY churn between the writer and readers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sample database %q: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sampleSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping sample schema: %w", err)
	}

	return NewSQLiteStore(db, defaults, opts...), nil
}

// Ping checks database availability.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
