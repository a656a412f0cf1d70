package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tillsync/tillsync/internal/pos"
)

// SyncToken identifies one record at the version the sync engine read
// it. MarkSynced flips only records whose version is still the
// snapshot version.
type SyncToken struct {
	ID      string
	Version int64
}

// PendingBatch groups every pending record of one collection, in
// insertion order, together with the snapshot tokens to mark on
// upload success.
type PendingBatch struct {
	Collection pos.Collection
	Tokens     []SyncToken
	Records    []json.RawMessage
}

// Get reads a record into dest. Returns false if no record exists for
// the key.
func (s *Store) Get(ctx context.Context, col pos.Collection, id string, dest any) (bool, error) {
	return getRecord(ctx, s.db, col, id, dest)
}

func getRecord(ctx context.Context, q dbtx, col pos.Collection, id string, dest any) (bool, error) {
	var body string
	err := q.QueryRowContext(ctx, `
		SELECT body FROM records WHERE collection = ? AND id = ?
	`, string(col), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "get", Collection: col, Err: err}
	}
	if err := json.Unmarshal([]byte(body), dest); err != nil {
		return false, &StorageError{Op: "get", Collection: col, Err: err}
	}
	return true, nil
}

// Query filters a List call. Zero values mean "no constraint".
type Query struct {
	SyncStatus  pos.SyncStatus
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
}

// List returns raw records of a collection in insertion order,
// filtered on indexed columns only.
func (s *Store) List(ctx context.Context, col pos.Collection, q Query) ([]json.RawMessage, error) {
	query := `SELECT body FROM records WHERE collection = ?`
	args := []any{string(col)}

	if q.SyncStatus != "" {
		query += ` AND sync_status = ?`
		args = append(args, string(q.SyncStatus))
	}
	if !q.CreatedFrom.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, q.CreatedFrom.UTC().Format(timeLayout))
	}
	if !q.CreatedTo.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, q.CreatedTo.UTC().Format(timeLayout))
	}
	query += ` ORDER BY rowid ASC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "list", Collection: col, Err: err}
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, &StorageError{Op: "list", Collection: col, Err: err}
		}
		out = append(out, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list", Collection: col, Err: err}
	}
	return out, nil
}

// DecodeAll unmarshals raw records into typed values.
func DecodeAll[T any](raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LowStockProducts returns active products at or below their reorder
// threshold, lowest stock first. Served by the products stock
// expression index.
func (s *Store) LowStockProducts(ctx context.Context) ([]pos.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM records
		WHERE collection = 'products'
		  AND json_extract(body, '$.is_active')
		  AND CAST(json_extract(body, '$.stock_quantity') AS REAL)
		      <= CAST(json_extract(body, '$.min_stock_level') AS REAL)
		ORDER BY CAST(json_extract(body, '$.stock_quantity') AS REAL) ASC
	`)
	if err != nil {
		return nil, &StorageError{Op: "low stock", Collection: pos.Products, Err: err}
	}
	defer rows.Close()

	return scanBodies[pos.Product](rows, pos.Products)
}

// SalesBetween returns sales created in [from, to), oldest first.
func (s *Store) SalesBetween(ctx context.Context, from, to time.Time) ([]pos.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM records
		WHERE collection = 'sales' AND created_at >= ? AND created_at < ?
		ORDER BY created_at ASC
	`, from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return nil, &StorageError{Op: "sales between", Collection: pos.Sales, Err: err}
	}
	defer rows.Close()

	return scanBodies[pos.Sale](rows, pos.Sales)
}

// PendingSync aggregates every pending record across every syncable
// collection, grouped by collection in upload order, insertion order
// within each group. Collections with nothing pending are omitted so
// the sync engine skips them without a network call.
func (s *Store) PendingSync(ctx context.Context) ([]PendingBatch, error) {
	var batches []PendingBatch
	for _, col := range pos.SyncableCollections() {
		batch, err := s.pendingForCollection(ctx, col)
		if err != nil {
			return nil, err
		}
		if len(batch.Tokens) > 0 {
			batches = append(batches, batch)
		}
	}
	return batches, nil
}

func (s *Store) pendingForCollection(ctx context.Context, col pos.Collection) (PendingBatch, error) {
	batch := PendingBatch{Collection: col}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, body FROM records
		WHERE collection = ? AND sync_status = 'pending'
		ORDER BY rowid ASC
	`, string(col))
	if err != nil {
		return batch, &StorageError{Op: "pending sync", Collection: col, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var tok SyncToken
		var body string
		if err := rows.Scan(&tok.ID, &tok.Version, &body); err != nil {
			return batch, &StorageError{Op: "pending sync", Collection: col, Err: err}
		}
		batch.Tokens = append(batch.Tokens, tok)
		batch.Records = append(batch.Records, json.RawMessage(body))
	}
	if err := rows.Err(); err != nil {
		return batch, &StorageError{Op: "pending sync", Collection: col, Err: err}
	}
	return batch, nil
}

// PendingCounts returns the number of pending records per syncable
// collection. Zero-count collections are included so operators see the
// full picture.
func (s *Store) PendingCounts(ctx context.Context) (map[pos.Collection]int, error) {
	counts := make(map[pos.Collection]int, len(pos.SyncableCollections()))
	for _, col := range pos.SyncableCollections() {
		counts[col] = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, COUNT(*) FROM records
		WHERE sync_status = 'pending'
		GROUP BY collection
	`)
	if err != nil {
		return nil, &StorageError{Op: "pending counts", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		var n int
		if err := rows.Scan(&col, &n); err != nil {
			return nil, &StorageError{Op: "pending counts", Err: err}
		}
		counts[pos.Collection(col)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "pending counts", Err: err}
	}
	return counts, nil
}

// scanBodies decodes a single-column body result set into typed records.
func scanBodies[T any](rows *sql.Rows, col pos.Collection) ([]T, error) {
	var out []T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, &StorageError{Op: "scan", Collection: col, Err: err}
		}
		var v T
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, &StorageError{Op: "scan", Collection: col, Err: err}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "scan", Collection: col, Err: err}
	}
	return out, nil
}
