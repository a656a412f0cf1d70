package pos

import "time"

// SyncStatus is the upload lifecycle state of a local record.
type SyncStatus string

const (
	// StatusPending marks a record awaiting upload. Records are created
	// pending; local edits flip them back to pending.
	StatusPending SyncStatus = "pending"

	// StatusSynced marks a record acknowledged by the remote store.
	// Upload success is the only legal transition to synced.
	StatusSynced SyncStatus = "synced"

	// StatusConflict marks a record whose upload was rejected on its
	// conflict key. Surfaced for operator attention, never retried
	// automatically.
	StatusConflict SyncStatus = "conflict"
)

// SyncMeta is the cross-cutting sync bookkeeping embedded in every
// syncable record. The local store owns these fields: Add assigns the
// ID and timestamps, Update bumps LastModified and resets the status
// to pending.
type SyncMeta struct {
	ID           string     `json:"id"`
	SyncStatus   SyncStatus `json:"sync_status"`
	CreatedAt    time.Time  `json:"created_at"`
	LastModified time.Time  `json:"last_modified"`
}

// Meta returns the embedded sync metadata for store bookkeeping.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// Record is any domain type that participates in the sync metadata
// convention. Satisfied by embedding SyncMeta.
type Record interface {
	Meta() *SyncMeta
}
