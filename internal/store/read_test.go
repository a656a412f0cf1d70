package store

import (
	"context"
	"testing"
	"time"

	"github.com/tillsync/tillsync/internal/pos"
)

func TestList_FiltersBySyncStatus(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	idA, err := s.Add(ctx, pos.Products, testProduct("SKU-A"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, pos.Products, testProduct("SKU-B")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.MarkSynced(ctx, pos.Products, []SyncToken{{ID: idA, Version: 1}}); err != nil {
		t.Fatal(err)
	}

	pending, err := s.List(ctx, pos.Products, Query{SyncStatus: pos.StatusPending})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("got %d pending, want 1", len(pending))
	}

	all, err := s.List(ctx, pos.Products, Query{})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d records, want 2", len(all))
	}
}

func TestList_Limit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, sku := range []string{"A", "B", "C"} {
		if _, err := s.Add(ctx, pos.Products, testProduct(sku)); err != nil {
			t.Fatal(err)
		}
	}

	raws, err := s.List(ctx, pos.Products, Query{Limit: 2})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(raws) != 2 {
		t.Errorf("got %d records, want 2", len(raws))
	}

	// Insertion order: A before B
	typed, err := DecodeAll[pos.Product](raws)
	if err != nil {
		t.Fatal(err)
	}
	if typed[0].SKU != "A" || typed[1].SKU != "B" {
		t.Errorf("order = %q, %q; want A, B", typed[0].SKU, typed[1].SKU)
	}
}

func TestPendingSync_GroupsInUploadOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Insert out of upload order on purpose
	if _, err := s.Add(ctx, pos.Sales, testSale("tx-1")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, pos.Products, testProduct("SKU-1")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, pos.Sales, testSale("tx-2")); err != nil {
		t.Fatal(err)
	}

	batches, err := s.PendingSync(ctx)
	if err != nil {
		t.Fatalf("PendingSync() failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if batches[0].Collection != pos.Products {
		t.Errorf("first batch = %q, want products", batches[0].Collection)
	}
	if batches[1].Collection != pos.Sales {
		t.Errorf("second batch = %q, want sales", batches[1].Collection)
	}

	// Insertion order within a batch
	sales, err := DecodeAll[pos.Sale](batches[1].Records)
	if err != nil {
		t.Fatal(err)
	}
	if sales[0].TransactionID != "tx-1" || sales[1].TransactionID != "tx-2" {
		t.Errorf("sale order = %q, %q; want tx-1, tx-2", sales[0].TransactionID, sales[1].TransactionID)
	}

	// Tokens align with records
	if len(batches[1].Tokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(batches[1].Tokens))
	}
	if batches[1].Tokens[0].ID != sales[0].ID {
		t.Error("token order does not match record order")
	}
}

func TestPendingSync_OmitsEmptyAndSynced(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.Add(ctx, pos.Products, testProduct("SKU-1"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.MarkSynced(ctx, pos.Products, []SyncToken{{ID: id, Version: 1}}); err != nil {
		t.Fatal(err)
	}

	batches, err := s.PendingSync(ctx)
	if err != nil {
		t.Fatalf("PendingSync() failed: %v", err)
	}
	if len(batches) != 0 {
		t.Errorf("got %d batches, want 0", len(batches))
	}
}

func TestPendingCounts_ZeroFilled(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, pos.Sales, testSale("tx-1")); err != nil {
		t.Fatal(err)
	}

	counts, err := s.PendingCounts(ctx)
	if err != nil {
		t.Fatalf("PendingCounts() failed: %v", err)
	}
	if len(counts) != len(pos.SyncableCollections()) {
		t.Errorf("got %d collections, want %d", len(counts), len(pos.SyncableCollections()))
	}
	if counts[pos.Sales] != 1 {
		t.Errorf("sales = %d, want 1", counts[pos.Sales])
	}
	if counts[pos.Products] != 0 {
		t.Errorf("products = %d, want 0", counts[pos.Products])
	}
}

func TestLowStockProducts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	low := testProduct("LOW")
	low.StockQuantity = 1
	low.MinStockLevel = 5

	lower := testProduct("LOWER")
	lower.StockQuantity = 0
	lower.MinStockLevel = 5

	ok := testProduct("OK")
	ok.StockQuantity = 50
	ok.MinStockLevel = 5

	inactive := testProduct("INACTIVE")
	inactive.StockQuantity = 0
	inactive.MinStockLevel = 5
	inactive.IsActive = false

	for _, p := range []*pos.Product{low, lower, ok, inactive} {
		if _, err := s.Add(ctx, pos.Products, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.LowStockProducts(ctx)
	if err != nil {
		t.Fatalf("LowStockProducts() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2", len(got))
	}
	// Lowest stock first
	if got[0].SKU != "LOWER" || got[1].SKU != "LOW" {
		t.Errorf("order = %q, %q; want LOWER, LOW", got[0].SKU, got[1].SKU)
	}
}

func TestSalesBetween_HalfOpenRange(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, txid := range []string{"tx-0", "tx-1", "tx-2"} {
		sale := testSale(txid)
		sale.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if _, err := s.Add(ctx, pos.Sales, sale); err != nil {
			t.Fatal(err)
		}
	}

	// [base, base+2h) excludes tx-2
	got, err := s.SalesBetween(ctx, base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("SalesBetween() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sales, want 2", len(got))
	}
	if got[0].TransactionID != "tx-0" || got[1].TransactionID != "tx-1" {
		t.Errorf("order = %q, %q; want tx-0, tx-1", got[0].TransactionID, got[1].TransactionID)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	var p pos.Product
	found, err := s.Get(context.Background(), pos.Products, "missing", &p)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if found {
		t.Error("found = true for missing record")
	}
}
