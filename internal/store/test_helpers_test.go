package store

import (
	"path/filepath"
	"testing"

	"github.com/tillsync/tillsync/internal/pos"
)

// createTestStore creates a fresh on-disk store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testProduct creates a valid product with minimal required fields.
func testProduct(sku string) *pos.Product {
	return &pos.Product{
		SKU:           sku,
		Name:          "Product " + sku,
		PriceCents:    1000,
		CostCents:     600,
		StockQuantity: 10,
		MinStockLevel: 2,
		IsActive:      true,
	}
}

// testSale creates a valid completed sale.
func testSale(txid string) *pos.Sale {
	return &pos.Sale{
		TransactionID: txid,
		StoreID:       "store-1",
		UserID:        "user-1",
		TotalCents:    1100,
		TaxCents:      100,
		NetCents:      1000,
		PaymentMethod: "cash",
		Status:        pos.SaleStatusCompleted,
	}
}
