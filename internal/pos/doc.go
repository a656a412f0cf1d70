// Package pos defines the domain records shared by every tillsync
// component: the product catalog mirror, per-store inventory rows,
// sales with their line items, and stock movement records.
//
// All monetary amounts are integer cents (int64). Quantities are
// float64 because weighted products sell by continuous measure
// (e.g. 0.85 kg) rather than discrete unit count.
//
// Every syncable record embeds SyncMeta, which carries the upload
// lifecycle state (pending → synced) plus the timestamps the sync
// engine uses for conflict ordering. Records are created pending and
// only the sync engine's mark-synced path flips them to synced.
package pos
