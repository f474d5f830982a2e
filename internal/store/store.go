// Package store defines persistence contracts for captured samples.
package store

import (
	"context"
	"errors"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/model"
)

// ErrNotFound is returned when an operation references a sample that does
// not exist.
var ErrNotFound = errors.New("sample not found")

// ErrNotDeletable is returned when deleting a sample that is no longer
// pending.
var ErrNotDeletable = errors.New("only pending samples can be deleted")

// Store is the durable local sample store with status lifecycle and atomic
// per-day sample numbering.
type Store interface {
	// Ping checks storage availability for readiness probes.
	Ping(ctx context.Context) error

	// CreateSample validates a candidate record, fills identity, defaults,
	// creation timestamp and per-day sample number, and persists it as
	// pending. Validation failures are *model.ValidationError.
	CreateSample(ctx context.Context, in model.SampleInput) (model.Sample, error)

	// UpdateSample re-validates and overwrites the mutable fields of an
	// existing sample. ID, creation timestamp and sync status never change.
	UpdateSample(ctx context.Context, id string, in model.SampleInput) (model.Sample, error)

	// DeleteSample removes a pending sample permanently.
	DeleteSample(ctx context.Context, id string) error

	// GetSample returns one sample by ID.
	GetSample(ctx context.Context, id string) (model.Sample, error)

	// ListSamples returns samples newest-first, optionally restricted to one
	// status. A non-positive limit selects the default page size.
	ListSamples(ctx context.Context, status model.SyncStatus, limit int) ([]model.Sample, error)

	// MarkSynced transitions the given samples to synced and clears any
	// error message. Unknown IDs are ignored.
	MarkSynced(ctx context.Context, ids []string) error

	// MarkError transitions the given samples to error with the failure
	// cause. Unknown IDs are ignored.
	MarkError(ctx context.Context, ids []string, message string) error

	// Counts returns the number of samples per sync status.
	Counts(ctx context.Context) (model.StatusCounts, error)
}

// Defaults are values stamped onto created samples when the candidate record
// leaves them blank.
type Defaults struct {
	Supplier string
	Code     string
	DeviceID string
	DriverID string
}
