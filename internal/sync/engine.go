package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tillsync/tillsync/internal/pos"
	"github.com/tillsync/tillsync/internal/remote"
	"github.com/tillsync/tillsync/internal/store"
)

// Engine pushes pending local records to the remote store. One engine
// per local database; SyncPending is safe to call concurrently but
// cycles are expected to run one at a time (the Monitor serializes
// them on its own goroutine).
type Engine struct {
	st      *store.Store
	rem     remote.Remote
	reg     Registry
	retry   Policy
	storeID string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p Policy) Option {
	return func(e *Engine) { e.retry = p }
}

// WithRegistry overrides the default mapper registry.
func WithRegistry(r Registry) Option {
	return func(e *Engine) { e.reg = r }
}

// NewEngine wires a sync engine for one store location.
func NewEngine(st *store.Store, rem remote.Remote, storeID string, opts ...Option) *Engine {
	e := &Engine{
		st:      st,
		rem:     rem,
		retry:   DefaultPolicy(),
		storeID: storeID,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.reg == nil {
		e.reg = NewRegistry(storeID)
	}
	return e
}

// Report summarizes one sync cycle. Uploaded counts records flipped to
// synced; Conflicts counts records parked after a remote key rejection;
// Failed records the terminal error per collection that could not be
// uploaded this cycle.
type Report struct {
	Uploaded  map[pos.Collection]int
	Conflicts map[pos.Collection]int
	Failed    map[pos.Collection]error
}

func newReport() Report {
	return Report{
		Uploaded:  make(map[pos.Collection]int),
		Conflicts: make(map[pos.Collection]int),
		Failed:    make(map[pos.Collection]error),
	}
}

// Clean reports whether every batch in the cycle uploaded.
func (r Report) Clean() bool {
	return len(r.Failed) == 0 && len(r.Conflicts) == 0
}

// TotalUploaded sums uploads across collections.
func (r Report) TotalUploaded() int {
	n := 0
	for _, c := range r.Uploaded {
		n += c
	}
	return n
}

// SyncPending runs one upload cycle: snapshot the pending queue once,
// then per collection map, upsert, and mark exactly the snapshotted
// (id, version) tokens. A collection that fails is logged and skipped;
// the rest of the cycle proceeds. The returned error is non-nil only
// when the cycle could not run at all (snapshot failure or cancelled
// context), never for individual batch failures.
func (e *Engine) SyncPending(ctx context.Context) (Report, error) {
	report := newReport()

	batches, err := e.st.PendingSync(ctx)
	if err != nil {
		return report, fmt.Errorf("snapshot pending records: %w", err)
	}
	if len(batches) == 0 {
		slog.Debug("sync cycle: nothing pending")
		return report, nil
	}

	for _, batch := range batches {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		e.uploadBatch(ctx, batch, &report)
	}

	slog.Info("sync cycle finished",
		"uploaded", report.TotalUploaded(),
		"failed_collections", len(report.Failed),
		"conflict_collections", len(report.Conflicts))
	return report, nil
}

func (e *Engine) uploadBatch(ctx context.Context, batch store.PendingBatch, report *Report) {
	log := slog.With("collection", batch.Collection, "records", len(batch.Tokens))

	mapper, ok := e.reg[batch.Collection]
	if !ok {
		report.Failed[batch.Collection] = fmt.Errorf("no mapper registered for %q", batch.Collection)
		log.Error("sync: unmapped collection left pending")
		return
	}

	rows, err := mapper.MapBatch(batch.Records)
	if err != nil {
		report.Failed[batch.Collection] = err
		log.Error("sync: mapping failed", "error", err)
		return
	}

	err = e.retry.Do(ctx, func(ctx context.Context) error {
		return e.rem.Upsert(ctx, mapper.Table, rows, mapper.ConflictKey)
	})
	switch {
	case err == nil:
		marked, merr := e.st.MarkSynced(ctx, batch.Collection, batch.Tokens)
		if merr != nil {
			report.Failed[batch.Collection] = merr
			log.Error("sync: mark synced failed", "error", merr)
			return
		}
		report.Uploaded[batch.Collection] = marked
		if marked < len(batch.Tokens) {
			// Edited since the snapshot, still pending with new content.
			log.Info("sync: batch uploaded, some records re-pending",
				"marked", marked)
		}

	case remote.IsConflict(err):
		parked, merr := e.st.MarkConflict(ctx, batch.Collection, batch.Tokens)
		if merr != nil {
			report.Failed[batch.Collection] = merr
			log.Error("sync: mark conflict failed", "error", merr)
			return
		}
		report.Conflicts[batch.Collection] = parked
		log.Warn("sync: batch rejected on conflict key, parked for review",
			"error", err)

	default:
		report.Failed[batch.Collection] = err
		log.Warn("sync: batch upload failed, will retry next cycle",
			"error", err)
	}
}
