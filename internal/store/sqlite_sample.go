package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/model"
)

const (
	defaultListLimit = 200
	maxListLimit     = 1000
)

var sampleColumns = []string{
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
	"sync_status",
	"error_msg",
}

// CreateSample validates and persists a candidate record as pending. The
// per-day sample number is read and extended inside one transaction under
// the store write lock, so concurrent creates on the same local day never
// share a number.
func (s *SQLiteStore) CreateSample(ctx context.Context, in model.SampleInput) (model.Sample, error) {
	sample, err := model.ParseSample(in, s.now())
	if err != nil {
		return model.Sample{}, err
	}

	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	if sample.Supplier == "" {
		sample.Supplier = s.defaults.Supplier
	}
	if sample.Code == "" {
		sample.Code = s.defaults.Code
	}
	if sample.DeviceID == "" {
		sample.DeviceID = s.defaults.DeviceID
	}
	if sample.DriverID == "" {
		sample.DriverID = s.defaults.DriverID
	}
	if sample.CreatedAtLocal.IsZero() {
		sample.CreatedAtLocal = s.now()
	}
	sample.SyncStatus = model.StatusPending
	sample.ErrorMsg = ""

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Sample{}, fmt.Errorf("starting create transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if sample.SampleNumber == 0 {
		number, numberErr := s.nextSampleNumberTx(ctx, tx, sample.CreatedAtLocal.Format(model.DateLayout))
		if numberErr != nil {
			return model.Sample{}, numberErr
		}
		sample.SampleNumber = number
	}

	query := s.sb.
		Insert("samples").
		Columns(sampleColumns...).
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
			string(sample.SyncStatus),
			sample.ErrorMsg,
		)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return model.Sample{}, fmt.Errorf("building sample insert query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return model.Sample{}, fmt.Errorf("inserting sample %q: %w", sample.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return model.Sample{}, fmt.Errorf("committing sample insert: %w", err)
	}

	return sample, nil
}

// UpdateSample re-validates and overwrites the mutable fields of an existing
// sample. ID, creation timestamp and sync status are never touched; an
// absent sample number keeps the stored one.
func (s *SQLiteStore) UpdateSample(ctx context.Context, id string, in model.SampleInput) (model.Sample, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Sample{}, ErrNotFound
	}

	sample, err := model.ParseSample(in, s.now())
	if err != nil {
		return model.Sample{}, err
	}
	if sample.Supplier == "" {
		sample.Supplier = s.defaults.Supplier
	}
	if sample.Code == "" {
		sample.Code = s.defaults.Code
	}

	query := s.sb.
		Update("samples").
		Set("description", sample.Description).
		Set("size_kg", optionalFloatValue(sample.SizeKG)).
		Set("use_by_date", optionalDateValue(sample.UseByDate)).
		Set("pack_code", sample.PackCode).
		Set("bird_temp_c", optionalFloatValue(sample.BirdTempC)).
		Set("customer", sample.Customer).
		Set("retailer", sample.Retailer).
		Set("supplier", sample.Supplier).
		Set("code", sample.Code).
		Set("price_gbp", optionalFloatValue(sample.PriceGBP)).
		Set("van_temp_c", optionalFloatValue(sample.VanTempC)).
		Where(sq.Eq{"id": id})
	if sample.SampleNumber > 0 {
		query = query.Set("sample_number", sample.SampleNumber)
	}
	if sample.DeviceID != "" {
		query = query.Set("device_id", sample.DeviceID)
	}
	if sample.DriverID != "" {
		query = query.Set("driver_id", sample.DriverID)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return model.Sample{}, fmt.Errorf("building sample update query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return model.Sample{}, fmt.Errorf("updating sample %q: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Sample{}, fmt.Errorf("checking sample update result: %w", err)
	}
	if affected == 0 {
		return model.Sample{}, ErrNotFound
	}

	return s.GetSample(ctx, id)
}

// DeleteSample removes a sample permanently. Only pending samples may be
// deleted.
func (s *SQLiteStore) DeleteSample(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting delete transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	row := tx.QueryRowContext(ctx, "SELECT sync_status FROM samples WHERE id = ?", id)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("checking sample %q before delete: %w", id, err)
	}
	if model.SyncStatus(status) != model.StatusPending {
		return ErrNotDeletable
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM samples WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting sample %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sample delete: %w", err)
	}
	return nil
}

// GetSample returns one sample by ID.
func (s *SQLiteStore) GetSample(ctx context.Context, id string) (model.Sample, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Sample{}, ErrNotFound
	}

	query := s.sb.
		Select(sampleColumns...).
		From("samples").
		Where(sq.Eq{"id": id})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return model.Sample{}, fmt.Errorf("building sample get query: %w", err)
	}

	sample, err := scanSample(s.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Sample{}, ErrNotFound
		}
		return model.Sample{}, fmt.Errorf("querying sample %q: %w", id, err)
	}
	return sample, nil
}

// ListSamples returns samples newest-first, optionally restricted to one
// status.
func (s *SQLiteStore) ListSamples(ctx context.Context, status model.SyncStatus, limit int) ([]model.Sample, error) {
	limit = normalizeListLimit(limit)

	query := s.sb.
		Select(sampleColumns...).
		From("samples").
		OrderBy("created_at_local DESC", "id DESC").
		Limit(uint64(limit))
	if status != "" {
		query = query.Where(sq.Eq{"sync_status": string(status)})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building sample list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("listing samples: %w", err)
	}
	defer rows.Close()

	samples := make([]model.Sample, 0, limit)
	for rows.Next() {
		sample, scanErr := scanSample(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning sample row: %w", scanErr)
		}
		samples = append(samples, sample)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterating sample rows: %w", rowsErr)
	}
	return samples, nil
}

// MarkSynced transitions the given samples to synced in one statement and
// clears any previous error message. Unknown IDs are ignored.
func (s *SQLiteStore) MarkSynced(ctx context.Context, ids []string) error {
	return s.markStatus(ctx, ids, model.StatusSynced, "")
}

// MarkError transitions the given samples to error with the failure cause.
// Unknown IDs are ignored.
func (s *SQLiteStore) MarkError(ctx context.Context, ids []string, message string) error {
	return s.markStatus(ctx, ids, model.StatusError, message)
}

func (s *SQLiteStore) markStatus(ctx context.Context, ids []string, status model.SyncStatus, message string) error {
	ids = trimmedIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	query := s.sb.
		Update("samples").
		Set("sync_status", string(status)).
		Set("error_msg", message).
		Where(sq.Eq{"id": ids})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("building status update query: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("marking %d samples %s: %w", len(ids), status, err)
	}
	return nil
}

// Counts returns the number of samples per sync status. All three statuses
// are always present.
func (s *SQLiteStore) Counts(ctx context.Context) (model.StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT sync_status, COUNT(*) FROM samples GROUP BY sync_status")
	if err != nil {
		return model.StatusCounts{}, fmt.Errorf("counting samples: %w", err)
	}
	defer rows.Close()

	var counts model.StatusCounts
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return model.StatusCounts{}, fmt.Errorf("scanning sample count: %w", err)
		}
		switch model.SyncStatus(status) {
		case model.StatusPending:
			counts.Pending = count
		case model.StatusSynced:
			counts.Synced = count
		case model.StatusError:
			counts.Error = count
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return model.StatusCounts{}, fmt.Errorf("iterating sample counts: %w", rowsErr)
	}
	return counts, nil
}

// nextSampleNumberTx computes max+1 for the given local day. Numbers are
// never reused within a day even after deletes, because the maximum only
// grows while rows exist and restarts at 1 on a fresh day.
func (s *SQLiteStore) nextSampleNumberTx(ctx context.Context, tx *sql.Tx, day string) (int, error) {
	var dayMax int
	row := tx.QueryRowContext(
		ctx,
		"SELECT COALESCE(MAX(sample_number), 0) FROM samples WHERE DATE(created_at_local) = ?",
		day,
	)
	if err := row.Scan(&dayMax); err != nil {
		return 0, fmt.Errorf("reading day maximum sample number: %w", err)
	}
	return dayMax + 1, nil
}

func scanSample(scanner interface {
	Scan(dest ...any) error
}) (model.Sample, error) {
	var out model.Sample
	var sizeKG, birdTempC, priceGBP, vanTempC sql.NullFloat64
	var useByDate, packCode, customer, supplier, code sql.NullString
	var createdAtLocal, status string
	var deviceID, driverID, errorMsg sql.NullString

	err := scanner.Scan(
		&out.ID,
		&out.Description,
		&sizeKG,
		&useByDate,
		&packCode,
		&birdTempC,
		&customer,
		&out.Retailer,
		&supplier,
		&code,
		&out.SampleNumber,
		&priceGBP,
		&vanTempC,
		&createdAtLocal,
		&deviceID,
		&driverID,
		&status,
		&errorMsg,
	)
	if err != nil {
		return model.Sample{}, err
	}

	out.SizeKG = nullFloatPtr(sizeKG)
	out.BirdTempC = nullFloatPtr(birdTempC)
	out.PriceGBP = nullFloatPtr(priceGBP)
	out.VanTempC = nullFloatPtr(vanTempC)
	out.PackCode = stringOrEmpty(packCode)
	out.Customer = stringOrEmpty(customer)
	out.Supplier = stringOrEmpty(supplier)
	out.Code = stringOrEmpty(code)
	out.DeviceID = stringOrEmpty(deviceID)
	out.DriverID = stringOrEmpty(driverID)
	out.ErrorMsg = stringOrEmpty(errorMsg)
	out.SyncStatus = model.SyncStatus(status)

	if useByDate.Valid && useByDate.String != "" {
		parsed, parseErr := time.ParseInLocation(model.DateLayout, useByDate.String, time.Local)
		if parseErr != nil {
			return model.Sample{}, fmt.Errorf("stored use-by date %q: %w", useByDate.String, parseErr)
		}
		out.UseByDate = &parsed
	}
	createdAt, parseErr := time.ParseInLocation(model.TimestampLayout, createdAtLocal, time.Local)
	if parseErr != nil {
		return model.Sample{}, fmt.Errorf("stored creation timestamp %q: %w", createdAtLocal, parseErr)
	}
	out.CreatedAtLocal = createdAt

	return out, nil
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

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func stringOrEmpty(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func trimmedIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeListLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
