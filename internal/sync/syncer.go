// Package syncer coordinates connectivity-gated synchronization of pending
// samples into the remote store.
package syncer

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/connectivity"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/model"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/remote"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/store"
)

// Outcome classifies the result of one sync run.
type Outcome string

const (
	// OutcomeSynced means the selected batch was durably stored remotely.
	OutcomeSynced Outcome = "synced"
	// OutcomeNothing means no pending samples were waiting.
	OutcomeNothing Outcome = "nothing-to-sync"
	// OutcomeBlocked means the connectivity gate denied the run.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeFailed means the remote upsert failed; the batch is marked error.
	OutcomeFailed Outcome = "failed"
)

// Result reports one completed sync run.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
	Count   int     `json:"count"`
}

// Succeeded reports whether the run left no new error-status samples behind.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSynced || r.Outcome == OutcomeNothing
}

// Status is a snapshot of sync-run history.
type Status struct {
	InProgress     bool       `json:"in_progress"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastOutcome    Outcome    `json:"last_outcome,omitempty"`
	LastReason     string     `json:"last_reason,omitempty"`
	LastCount      int        `json:"last_count"`
	SuccessfulRuns int64      `json:"successful_runs"`
	BlockedRuns    int64      `json:"blocked_runs"`
	FailedRuns     int64      `json:"failed_runs"`
}

// Config contains sync-run settings.
type Config struct {
	BatchLimit int
	// Interval enables the periodic loop in Run when positive.
	Interval time.Duration
}

// Syncer runs one gate-checked batch synchronization at a time.
type Syncer struct {
	store    store.Store
	upserter remote.Upserter
	gate     *connectivity.Gate
	provider connectivity.Provider
	log      zerolog.Logger

	batchLimit int
	interval   time.Duration

	runMu   stdsync.Mutex
	stateMu stdsync.RWMutex
	status  Status
}

// New creates a syncer.
func New(
	st store.Store,
	up remote.Upserter,
	gate *connectivity.Gate,
	provider connectivity.Provider,
	cfg Config,
	logger zerolog.Logger,
) *Syncer {
	batchLimit := cfg.BatchLimit
	if batchLimit <= 0 {
		batchLimit = 200
	}
	return &Syncer{
		store:      st,
		upserter:   up,
		gate:       gate,
		provider:   provider,
		log:        logger,
		batchLimit: batchLimit,
		interval:   cfg.Interval,
	}
}

// Run invokes SyncOnce on the configured interval until ctx is canceled.
// With no interval configured it blocks until cancellation; sync then runs
// only on explicit SyncOnce calls.
func (s *Syncer) Run(ctx context.Context) {
	if s.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := s.SyncOnce(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("periodic sync run failed")
				continue
			}
			s.log.Info().
				Str("outcome", string(result.Outcome)).
				Str("reason", result.Reason).
				Int("count", result.Count).
				Msg("periodic sync run finished")
		}
	}
}

// Status returns the latest run snapshot.
func (s *Syncer) Status() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	statusCopy := s.status
	statusCopy.LastAttemptAt = cloneTimePtr(s.status.LastAttemptAt)
	statusCopy.LastSyncAt = cloneTimePtr(s.status.LastSyncAt)
	return statusCopy
}

// SyncOnce executes one run: gate check, fetch unsynced batch, remote upsert,
// then reconcile statuses. Runs are serialized; a second caller blocks until
// the in-flight run reaches its end. The returned error is reserved for
// local storage faults; gate denial and remote failure are normal results.
func (s *Syncer) SyncOnce(ctx context.Context) (Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	startedAt := time.Now().UTC()
	s.updateStatus(func(st *Status) {
		st.InProgress = true
		st.LastAttemptAt = &startedAt
	})
	defer s.updateStatus(func(st *Status) {
		st.InProgress = false
	})

	snapshot, err := s.provider.Snapshot(ctx)
	if err != nil {
		// An unreadable platform snapshot is treated as no attachment; the
		// gate then reports its generic denial.
		s.log.Warn().Err(err).Msg("connectivity snapshot unavailable")
		snapshot = connectivity.Snapshot{}
	}

	decision := s.gate.Evaluate(snapshot)
	if !decision.Allowed {
		s.log.Info().Str("reason", decision.Reason).Msg("sync blocked by connectivity gate")
		return s.finish(Result{Outcome: OutcomeBlocked, Reason: decision.Reason}), nil
	}

	batch, err := s.store.ListSamples(ctx, model.StatusPending, s.batchLimit)
	if err != nil {
		s.recordFailure("fetching pending samples: " + err.Error())
		return Result{}, err
	}
	// Samples from earlier failed runs stay eligible until they make it across.
	if room := s.batchLimit - len(batch); room > 0 {
		retries, retryErr := s.store.ListSamples(ctx, model.StatusError, room)
		if retryErr != nil {
			s.recordFailure("fetching errored samples: " + retryErr.Error())
			return Result{}, retryErr
		}
		batch = append(batch, retries...)
	}
	if len(batch) == 0 {
		return s.finish(Result{Outcome: OutcomeNothing, Reason: "nothing to sync"}), nil
	}

	ids := make([]string, 0, len(batch))
	for _, sample := range batch {
		ids = append(ids, sample.ID)
	}

	if upsertErr := s.upserter.UpsertSamples(ctx, batch); upsertErr != nil {
		cause := upsertErr.Error()
		s.log.Error().Err(upsertErr).Int("count", len(batch)).Msg("remote upsert failed")
		if markErr := s.store.MarkError(ctx, ids, cause); markErr != nil {
			s.recordFailure("marking failed batch: " + markErr.Error())
			return Result{}, markErr
		}
		return s.finish(Result{Outcome: OutcomeFailed, Reason: cause, Count: len(batch)}), nil
	}

	if markErr := s.store.MarkSynced(ctx, ids); markErr != nil {
		// The batch is durable remotely; surface the local fault so the next
		// run can re-send (the upsert is idempotent by key).
		s.recordFailure("marking synced batch: " + markErr.Error())
		return Result{}, markErr
	}

	s.log.Info().Int("count", len(batch)).Str("via", decision.Reason).Msg("samples synced")
	return s.finish(Result{Outcome: OutcomeSynced, Reason: decision.Reason, Count: len(batch)}), nil
}

func (s *Syncer) finish(result Result) Result {
	completedAt := time.Now().UTC()
	s.updateStatus(func(st *Status) {
		st.LastOutcome = result.Outcome
		st.LastReason = result.Reason
		st.LastCount = result.Count
		switch result.Outcome {
		case OutcomeSynced, OutcomeNothing:
			st.LastSyncAt = &completedAt
			st.SuccessfulRuns++
		case OutcomeBlocked:
			st.BlockedRuns++
		default:
			st.FailedRuns++
		}
	})
	return result
}

func (s *Syncer) recordFailure(reason string) {
	s.updateStatus(func(st *Status) {
		st.LastOutcome = OutcomeFailed
		st.LastReason = reason
		st.LastCount = 0
		st.FailedRuns++
	})
}

func (s *Syncer) updateStatus(update func(*Status)) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	update(&s.status)
}

func cloneTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
