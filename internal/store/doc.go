// Package store provides the durable local database for tillsync.
//
// It is an embedded, schema-versioned document store backed by SQLite:
// typed collections of JSON records, each carrying the sync metadata
// that makes it enumerable by the sync engine. One physical table
// holds every collection; secondary and expression indexes keep the
// pending-sync scan, date-bounded sale history, and low-stock
// detection off linear scans.
//
// Concurrency discipline: multi-step operations (checkout's
// sale+items+stock decrement, sync's mark-synced pass) run inside a
// single SQLite transaction via WithTx, so interleaved async callers
// never observe a partial commit. MarkSynced flips a record only when
// its version still matches the snapshot the sync engine read at the
// start of the cycle, preventing the lost-update race against
// concurrent local edits.
package store
