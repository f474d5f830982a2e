// Package remote writes sample batches to the central PostgreSQL store.
package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/config"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/model"
)

const upsertConflictClause = `
ON CONFLICT (id) DO UPDATE SET
	description = EXCLUDED.description,
	size_kg = EXCLUDED.size_kg,
	use_by_date = EXCLUDED.use_by_date,
	pack_code = EXCLUDED.pack_code,
	bird_temp_c = EXCLUDED.bird_temp_c,
	customer = EXCLUDED.customer,
	retailer = EXCLUDED.retailer,
	supplier = EXCLUDED.supplier,
	code = EXCLUDED.code,
	sample_number = EXCLUDED.sample_number,
	price_gbp = EXCLUDED.price_gbp,
	van_temp_c = EXCLUDED.van_temp_c,
	created_at_local = EXCLUDED.created_at_local,
	device_id = EXCLUDED.device_id,
	driver_id = EXCLUDED.driver_id`

const remoteSchema = `
CREATE TABLE IF NOT EXISTS samples (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	size_kg NUMERIC(6,3),
	use_by_date DATE,
	pack_code TEXT,
	bird_temp_c NUMERIC(4,1),
	customer TEXT,
	retailer TEXT NOT NULL,
	supplier TEXT,
	code TEXT,
	sample_number INTEGER,
	price_gbp NUMERIC(7,2),
	van_temp_c NUMERIC(4,1),
	created_at_local TIMESTAMP,
	device_id TEXT,
	driver_id TEXT,
	received_at_utc TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_samples_created ON samples(created_at_local);
CREATE INDEX IF NOT EXISTS idx_samples_device ON samples(device_id);
CREATE INDEX IF NOT EXISTS idx_samples_driver ON samples(driver_id);
`

// Upserter writes a batch of samples to the remote store such that
// re-sending the same ID overwrites rather than duplicates.
type Upserter interface {
	// UpsertSamples writes the whole batch as one logical operation and
	// succeeds only if every record is durably stored. On failure the caller
	// must treat the entire batch as unsynced.
	UpsertSamples(ctx context.Context, samples []model.Sample) error

	// Ping verifies that the remote store is reachable with the configured
	// credentials.
	Ping(ctx context.Context) error
}

// PostgresUpserter implements Upserter against PostgreSQL. It performs no
// internal retries; retry scheduling belongs to the caller.
type PostgresUpserter struct {
	db      *sql.DB
	sb      sq.StatementBuilderType
	timeout time.Duration
}

// Connect opens a handle to the remote store. The connection itself is
// established lazily, so a disconnected device can still start up.
func Connect(cfg config.Remote) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening remote store handle: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)
	return db, nil
}

// NewPostgresUpserter wraps a remote database handle. Every call is bounded
// by timeout so a stalled remote endpoint cannot hang the caller.
func NewPostgresUpserter(db *sql.DB, timeout time.Duration) *PostgresUpserter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PostgresUpserter{
		db:      db,
		sb:      sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		timeout: timeout,
	}
}

// UpsertSamples writes the batch in one transaction, keyed on sample ID.
func (u *PostgresUpserter) UpsertSamples(ctx context.Context, samples []model.Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("empty sample batch")
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("connecting to remote store: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, sample := range samples {
		sqlStr, args, buildErr := buildUpsert(u.sb, sample)
		if buildErr != nil {
			return fmt.Errorf("building upsert for sample %q: %w", sample.ID, buildErr)
		}
		if _, execErr := tx.ExecContext(ctx, sqlStr, args...); execErr != nil {
			return fmt.Errorf("upserting sample %q: %w", sample.ID, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sample batch: %w", err)
	}
	return nil
}

// Ping verifies remote reachability within the configured timeout.
func (u *PostgresUpserter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	if err := u.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging remote store: %w", err)
	}
	return nil
}

// EnsureSchema creates the remote samples table and indexes when absent.
func (u *PostgresUpserter) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	if _, err := u.db.ExecContext(ctx, remoteSchema); err != nil {
		return fmt.Errorf("ensuring remote sample schema: %w", err)
	}
	return nil
}

func buildUpsert(sb sq.StatementBuilderType, sample model.Sample) (string, []any, error) {
	return sb.
		Insert("samples").
		Columns(
			"id",
			"description",
			"size_kg",
			"use_by_date",
			"pack_code",
			"bird_temp_c",
			"customer",
			"retailer",
			"supplier",
			"code",
			"sample_number",
			"price_gbp",
			"van_temp_c",
			"created_at_local",
			"device_id",
			"driver_id",
		).
		Values(
			sample.ID,
			sample.Description,
			optionalFloatValue(sample.SizeKG),
			optionalDateValue(sample.UseByDate),
			sample.PackCode,
			optionalFloatValue(sample.BirdTempC),
			sample.Customer,
			sample.Retailer,
			sample.Supplier,
			sample.Code,
			sample.SampleNumber,
			optionalFloatValue(sample.PriceGBP),
			optionalFloatValue(sample.VanTempC),
			sample.CreatedAtLocal.Format(model.TimestampLayout),
			sample.DeviceID,
			sample.DriverID,
		).
		Suffix(upsertConflictClause).
		ToSql()
}

func optionalFloatValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func optionalDateValue(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Format(model.DateLayout)
}
