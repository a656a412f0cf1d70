// Package sync uploads pending local records to the remote backend and
// refreshes the local catalog from it. The engine is pull-driven: each
// SyncPending call takes one snapshot of the pending queue, pushes it
// collection by collection in dependency order, and marks exactly the
// snapshotted versions as synced. A Monitor watches connectivity and
// triggers a cycle on every offline to online transition.
package sync
