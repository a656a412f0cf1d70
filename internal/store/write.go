package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/tillsync/tillsync/internal/pos"
)

// Add inserts a record with an auto-assigned local identity (UUIDv7,
// so ids sort by creation time). The record is validated first and
// written with sync_status pending unless the caller pre-set a status
// (the catalog refresh inserts already-synced mirrors).
func (s *Store) Add(ctx context.Context, col pos.Collection, rec pos.Record) (string, error) {
	id, err := addRecord(ctx, s.db, col, rec)
	if err != nil {
		return "", err
	}
	s.notify(Event{Collection: col, ID: id, Kind: ChangeAdded})
	return id, nil
}

// Update merges the given fields into an existing record, bumps
// last_modified and the version counter, and flips the record back to
// pending. Bookkeeping fields (id, created_at, sync metadata) cannot
// be overwritten through this path; the sync engine uses MarkSynced.
func (s *Store) Update(ctx context.Context, col pos.Collection, id string, fields map[string]any) error {
	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.Update(ctx, col, id, fields)
	})
	return err
}

// BulkAdd inserts multiple records in one transaction, failing the
// whole batch on any key collision.
func (s *Store) BulkAdd(ctx context.Context, col pos.Collection, recs []pos.Record) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		for _, rec := range recs {
			if _, err := tx.Add(ctx, col, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// BulkPut upserts multiple records by primary key in one transaction.
// Existing rows keep their created_at; the version counter advances so
// an in-flight sync snapshot cannot mark the overwrite as synced.
func (s *Store) BulkPut(ctx context.Context, col pos.Collection, recs []pos.Record) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		for _, rec := range recs {
			if err := putRecord(ctx, tx.tx, col, rec); err != nil {
				return err
			}
			tx.events = append(tx.events, Event{Collection: col, ID: rec.Meta().ID, Kind: ChangeUpdated})
		}
		return nil
	})
}

// ReplaceCollection clears a collection and bulk-inserts the given
// records as one atomic operation. Used by the catalog refresh, where
// local data is a cache of authoritative remote state and clobbering
// is correct. Other collections are untouched.
func (s *Store) ReplaceCollection(ctx context.Context, col pos.Collection, recs []pos.Record) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.Replace(ctx, col, recs)
	})
}

// MarkSynced flips sync_status to synced for exactly the snapshotted
// (id, version) pairs, in one transaction. A record edited after the
// sync engine read it carries a newer version and is left pending -
// the newer local edit is uploaded on the next cycle instead of being
// silently lost as "already synced".
//
// Returns the number of records actually flipped.
func (s *Store) MarkSynced(ctx context.Context, col pos.Collection, tokens []SyncToken) (int, error) {
	return s.markStatus(ctx, col, tokens, pos.StatusSynced)
}

// MarkConflict parks the snapshotted records in the conflict state so
// a permanently rejected batch stops consuming sync cycles. Same
// version-guard rule as MarkSynced: a record edited since the snapshot
// stays pending and re-uploads with its new content.
func (s *Store) MarkConflict(ctx context.Context, col pos.Collection, tokens []SyncToken) (int, error) {
	return s.markStatus(ctx, col, tokens, pos.StatusConflict)
}

func (s *Store) markStatus(ctx context.Context, col pos.Collection, tokens []SyncToken, status pos.SyncStatus) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	marked := 0
	err := s.WithTx(ctx, func(tx *Tx) error {
		for _, tok := range tokens {
			res, err := tx.tx.ExecContext(ctx, `
				UPDATE records
				SET sync_status = ?,
				    body = json_set(body, '$.sync_status', ?)
				WHERE collection = ? AND id = ? AND version = ? AND sync_status = 'pending'
			`, string(status), string(status), string(col), tok.ID, tok.Version)
			if err != nil {
				return &StorageError{Op: "mark " + string(status), Collection: col, Err: err}
			}
			n, err := res.RowsAffected()
			if err != nil {
				return &StorageError{Op: "mark " + string(status), Collection: col, Err: err}
			}
			marked += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// Tx is a transactional view of the store. All writes made through a
// Tx commit or roll back together; change notifications fire only
// after a successful commit.
type Tx struct {
	tx     *sql.Tx
	store  *Store
	events []Event
}

// WithTx runs fn inside a single SQLite transaction. If fn returns an
// error the transaction rolls back and nothing is persisted.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin tx", Err: err}
	}
	t := &Tx{tx: sqlTx, store: s}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(t); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &StorageError{Op: "commit tx", Err: err}
	}

	for _, ev := range t.events {
		s.notify(ev)
	}
	return nil
}

// Add inserts a record within the transaction.
func (t *Tx) Add(ctx context.Context, col pos.Collection, rec pos.Record) (string, error) {
	id, err := addRecord(ctx, t.tx, col, rec)
	if err != nil {
		return "", err
	}
	t.events = append(t.events, Event{Collection: col, ID: id, Kind: ChangeAdded})
	return id, nil
}

// Get reads a record within the transaction. Returns false if no
// record exists for the key.
func (t *Tx) Get(ctx context.Context, col pos.Collection, id string, dest any) (bool, error) {
	return getRecord(ctx, t.tx, col, id, dest)
}

// Update merges fields into a record within the transaction.
func (t *Tx) Update(ctx context.Context, col pos.Collection, id string, fields map[string]any) error {
	if err := updateRecord(ctx, t.tx, col, id, fields); err != nil {
		return err
	}
	t.events = append(t.events, Event{Collection: col, ID: id, Kind: ChangeUpdated})
	return nil
}

// Replace clears a collection and re-inserts the given records within
// the transaction. The catalog refresh replaces the product and
// inventory mirrors in one transaction this way.
func (t *Tx) Replace(ctx context.Context, col pos.Collection, recs []pos.Record) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, string(col)); err != nil {
		return &StorageError{Op: "replace", Collection: col, Err: err}
	}
	for _, rec := range recs {
		if _, err := addRecord(ctx, t.tx, col, rec); err != nil {
			return err
		}
	}
	t.events = append(t.events, Event{Collection: col, Kind: ChangeReplaced})
	return nil
}

// addRecord validates, stamps, and inserts a record.
func addRecord(ctx context.Context, q dbtx, col pos.Collection, rec pos.Record) (string, error) {
	if err := validateRecord(col, rec); err != nil {
		return "", err
	}

	meta := rec.Meta()
	if meta.ID == "" {
		meta.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.LastModified = now
	if meta.SyncStatus == "" {
		meta.SyncStatus = pos.StatusPending
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return "", &StorageError{Op: "marshal", Collection: col, Err: err}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO records (collection, id, body, sync_status, version, created_at, last_modified)
		VALUES (?, ?, ?, ?, 1, ?, ?)
	`,
		string(col),
		meta.ID,
		string(body),
		string(meta.SyncStatus),
		meta.CreatedAt.Format(timeLayout),
		meta.LastModified.Format(timeLayout),
	)
	if err != nil {
		if isConstraintErr(err) {
			return "", fmt.Errorf("add %s/%s: %w", col, meta.ID, ErrDuplicateID)
		}
		return "", &StorageError{Op: "add", Collection: col, Err: err}
	}

	return meta.ID, nil
}

// putRecord validates, stamps, and upserts a record by primary key.
func putRecord(ctx context.Context, q dbtx, col pos.Collection, rec pos.Record) error {
	if err := validateRecord(col, rec); err != nil {
		return err
	}

	meta := rec.Meta()
	if meta.ID == "" {
		meta.ID = uuid.Must(uuid.NewV7()).String()
	}
	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.LastModified = now
	if meta.SyncStatus == "" {
		meta.SyncStatus = pos.StatusPending
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return &StorageError{Op: "marshal", Collection: col, Err: err}
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO records (collection, id, body, sync_status, version, created_at, last_modified)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			body = excluded.body,
			sync_status = excluded.sync_status,
			version = version + 1,
			last_modified = excluded.last_modified
	`,
		string(col),
		meta.ID,
		string(body),
		string(meta.SyncStatus),
		meta.CreatedAt.Format(timeLayout),
		meta.LastModified.Format(timeLayout),
	)
	if err != nil {
		return &StorageError{Op: "put", Collection: col, Err: err}
	}
	return nil
}

// updateRecord merges fields into the stored JSON body and advances
// the version counter. Bookkeeping keys are never merged from fields.
func updateRecord(ctx context.Context, q dbtx, col pos.Collection, id string, fields map[string]any) error {
	var body string
	err := q.QueryRowContext(ctx, `
		SELECT body FROM records WHERE collection = ? AND id = ?
	`, string(col), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update %s/%s: %w", col, id, ErrNotFound)
	}
	if err != nil {
		return &StorageError{Op: "update", Collection: col, Err: err}
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return &StorageError{Op: "update", Collection: col, Err: err}
	}

	for k, v := range fields {
		switch k {
		case "id", "created_at", "sync_status", "last_modified":
			continue
		}
		doc[k] = v
	}

	now := time.Now().UTC()
	doc["sync_status"] = string(pos.StatusPending)
	doc["last_modified"] = now

	merged, err := json.Marshal(doc)
	if err != nil {
		return &StorageError{Op: "update", Collection: col, Err: err}
	}

	_, err = q.ExecContext(ctx, `
		UPDATE records
		SET body = ?, sync_status = 'pending', version = version + 1, last_modified = ?
		WHERE collection = ? AND id = ?
	`, string(merged), now.Format(timeLayout), string(col), id)
	if err != nil {
		return &StorageError{Op: "update", Collection: col, Err: err}
	}
	return nil
}

// isConstraintErr reports whether err is a SQLite constraint
// violation (primary key collision on insert).
func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint
	}
	return false
}
