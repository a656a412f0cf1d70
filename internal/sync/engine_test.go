package sync

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillsync/tillsync/internal/pos"
	"github.com/tillsync/tillsync/internal/remote"
	"github.com/tillsync/tillsync/internal/store"
)

// fakeRemote is an in-memory Remote that records calls and fails on
// demand per table.
type fakeRemote struct {
	mu      sync.Mutex
	upserts []upsertCall
	fail    map[string]error
	// onUpsert runs before each upsert is recorded; used to mutate
	// local state mid-cycle.
	onUpsert func(table string)
	selects  map[string][]remote.Row
}

type upsertCall struct {
	table string
	key   string
	rows  []remote.Row
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{fail: make(map[string]error), selects: make(map[string][]remote.Row)}
}

func (f *fakeRemote) Upsert(ctx context.Context, table string, rows []remote.Row, conflictKey string) error {
	if f.onUpsert != nil {
		f.onUpsert(table)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[table]; ok {
		return err
	}
	f.upserts = append(f.upserts, upsertCall{table: table, key: conflictKey, rows: rows})
	return nil
}

func (f *fakeRemote) Select(ctx context.Context, table string, filter remote.Filter) ([]remote.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[table]; ok {
		return nil, err
	}
	return f.selects[table], nil
}

func (f *fakeRemote) calls() []upsertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]upsertCall, len(f.upserts))
	copy(out, f.upserts)
	return out
}

func newSyncTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// fastPolicy retries nothing and sleeps never, keeping cycles instant.
func fastPolicy() Policy {
	return Policy{MaxAttempts: 1, BackoffFactor: 1}
}

func seedPending(t *testing.T, st *store.Store) (productID, saleID string) {
	t.Helper()
	ctx := context.Background()

	p := &pos.Product{SKU: "SKU-1", Name: "Widget", PriceCents: 500, StockQuantity: 9, IsActive: true}
	productID, err := st.Add(ctx, pos.Products, p)
	require.NoError(t, err)

	s := &pos.Sale{
		TransactionID: "tx-1", StoreID: "store-1", UserID: "user-1",
		TotalCents: 500, NetCents: 500, PaymentMethod: "cash", Status: pos.SaleStatusCompleted,
	}
	saleID, err = st.Add(ctx, pos.Sales, s)
	require.NoError(t, err)
	return productID, saleID
}

func TestSyncPending_UploadsAndMarks(t *testing.T) {
	st := newSyncTestStore(t)
	rem := newFakeRemote()
	eng := NewEngine(st, rem, "store-1", WithRetryPolicy(fastPolicy()))
	ctx := context.Background()

	productID, saleID := seedPending(t, st)

	report, err := eng.SyncPending(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 1, report.Uploaded[pos.Products])
	assert.Equal(t, 1, report.Uploaded[pos.Sales])
	assert.Equal(t, 2, report.TotalUploaded())

	// Upload order: the product stock update reaches the inventory
	// table before the sale lands.
	calls := rem.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "inventory", calls[0].table)
	assert.Equal(t, "product_id,store_id", calls[0].key)
	assert.Equal(t, "sales", calls[1].table)
	assert.Equal(t, "transaction_id", calls[1].key)
	assert.Equal(t, "tx-1", calls[1].rows[0]["transaction_id"])

	var p pos.Product
	_, err = st.Get(ctx, pos.Products, productID, &p)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusSynced, p.SyncStatus)

	var s pos.Sale
	_, err = st.Get(ctx, pos.Sales, saleID, &s)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusSynced, s.SyncStatus)
}

func TestSyncPending_SecondCycleMakesNoCalls(t *testing.T) {
	st := newSyncTestStore(t)
	rem := newFakeRemote()
	eng := NewEngine(st, rem, "store-1", WithRetryPolicy(fastPolicy()))
	ctx := context.Background()

	seedPending(t, st)

	_, err := eng.SyncPending(ctx)
	require.NoError(t, err)
	first := len(rem.calls())

	report, err := eng.SyncPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.TotalUploaded())
	assert.Len(t, rem.calls(), first, "nothing pending means no network calls")
}

func TestSyncPending_EmptyStoreNoCalls(t *testing.T) {
	st := newSyncTestStore(t)
	rem := newFakeRemote()
	eng := NewEngine(st, rem, "store-1", WithRetryPolicy(fastPolicy()))

	report, err := eng.SyncPending(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Empty(t, rem.calls())
}

func TestSyncPending_EditDuringUploadStaysPending(t *testing.T) {
	st := newSyncTestStore(t)
	rem := newFakeRemote()
	eng := NewEngine(st, rem, "store-1", WithRetryPolicy(fastPolicy()))
	ctx := context.Background()

	productID, _ := seedPending(t, st)

	// The product is edited while its batch is in flight: the snapshot
	// version is stale, so the mark must not flip the new content.
	rem.onUpsert = func(table string) {
		if table == "inventory" {
			err := st.Update(ctx, pos.Products, productID, map[string]any{"stock_quantity": 3.0})
			require.NoError(t, err)
		}
	}

	report, err := eng.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Uploaded[pos.Products], "stale snapshot marks nothing")
	assert.Equal(t, 1, report.Uploaded[pos.Sales])

	var p pos.Product
	_, err = st.Get(ctx, pos.Products, productID, &p)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusPending, p.SyncStatus, "edited record re-uploads next cycle")
	assert.Equal(t, 3.0, p.StockQuantity)
}

func TestSyncPending_FailedCollectionDoesNotBlockOthers(t *testing.T) {
	st := newSyncTestStore(t)
	rem := newFakeRemote()
	rem.fail["inventory"] = &remote.RemoteError{Status: 503, Message: "unavailable", Retryable: true}
	eng := NewEngine(st, rem, "store-1", WithRetryPolicy(fastPolicy()))
	ctx := context.Background()

	productID, saleID := seedPending(t, st)

	report, err := eng.SyncPending(ctx)
	require.NoError(t, err, "batch failures never fail the cycle")
	assert.False(t, report.Clean())
	assert.Error(t, report.Failed[pos.Products])
	assert.Equal(t, 1, report.Uploaded[pos.Sales])

	var p pos.Product
	_, err = st.Get(ctx, pos.Products, productID, &p)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusPending, p.SyncStatus, "failed batch stays queued")

	var s pos.Sale
	_, err = st.Get(ctx, pos.Sales, saleID, &s)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusSynced, s.SyncStatus)
}

func TestSyncPending_ConflictParksBatch(t *testing.T) {
	st := newSyncTestStore(t)
	rem := newFakeRemote()
	rem.fail["sales"] = &remote.ConflictError{Table: "sales", Key: "transaction_id", Message: "duplicate"}
	eng := NewEngine(st, rem, "store-1", WithRetryPolicy(fastPolicy()))
	ctx := context.Background()

	_, saleID := seedPending(t, st)

	report, err := eng.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Conflicts[pos.Sales])
	assert.Empty(t, report.Failed)

	var s pos.Sale
	_, err = st.Get(ctx, pos.Sales, saleID, &s)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusConflict, s.SyncStatus)

	// Parked records stop consuming cycles.
	report, err = eng.SyncPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Conflicts[pos.Sales])
}

func TestSyncPending_RetryableFailureRecoversNextCycle(t *testing.T) {
	st := newSyncTestStore(t)
	rem := newFakeRemote()
	rem.fail["sales"] = &remote.RemoteError{Status: 500, Message: "boom", Retryable: true}
	eng := NewEngine(st, rem, "store-1", WithRetryPolicy(fastPolicy()))
	ctx := context.Background()

	_, saleID := seedPending(t, st)

	report, err := eng.SyncPending(ctx)
	require.NoError(t, err)
	assert.Error(t, report.Failed[pos.Sales])

	// Connectivity returns.
	delete(rem.fail, "sales")

	report, err = eng.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Uploaded[pos.Sales])

	var s pos.Sale
	_, err = st.Get(ctx, pos.Sales, saleID, &s)
	require.NoError(t, err)
	assert.Equal(t, pos.StatusSynced, s.SyncStatus)
}
