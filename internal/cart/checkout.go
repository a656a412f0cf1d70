package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tillsync/tillsync/internal/pos"
	"github.com/tillsync/tillsync/internal/store"
)

// Result is a committed checkout: the persisted sale and its items.
type Result struct {
	Sale  pos.Sale
	Items []pos.SaleItem
}

// Checkout commits the cart as one sale in a single local transaction:
// the sale, one item per line, and a stock decrement per line's
// product all land together or not at all.
//
// Returns (nil, nil) for an empty cart - a no-op, not an error.
//
// Stock decrements floor at zero: oversells are permitted at the POS
// layer but local stock bookkeeping never goes negative.
//
// On failure nothing is persisted and the cart is left intact for
// retry; on success the cart and its transient notes are cleared.
func (c *Cart) Checkout(ctx context.Context, paymentMethod string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.lines) == 0 {
		return nil, nil
	}

	totals := c.totalsLocked()
	sale := pos.Sale{
		TransactionID: c.ids.Generate(),
		StoreID:       c.storeID,
		UserID:        c.userID,
		TotalCents:    totals.Total,
		TaxCents:      totals.Tax,
		DiscountCents: totals.Discount,
		NetCents:      totals.Subtotal,
		PaymentMethod: paymentMethod,
		Status:        pos.SaleStatusCompleted,
		Notes:         c.notes,
	}

	var items []pos.SaleItem

	err := c.st.WithTx(ctx, func(tx *store.Tx) error {
		saleID, err := tx.Add(ctx, pos.Sales, &sale)
		if err != nil {
			return fmt.Errorf("persist sale: %w", err)
		}

		for _, line := range c.lines {
			item := pos.SaleItem{
				SaleID:            saleID,
				SaleTransactionID: sale.TransactionID,
				ProductID:         line.Product.ID,
				ProductSKU:        line.Product.SKU,
				ProductName:       line.Product.Name,
				Quantity:          line.Quantity,
				UnitPriceCents:    line.UnitPrice,
				TotalPriceCents:   line.Subtotal,
			}
			if _, err := tx.Add(ctx, pos.SaleItems, &item); err != nil {
				return fmt.Errorf("persist sale item %s: %w", line.Product.SKU, err)
			}
			items = append(items, item)

			if err := decrementStock(ctx, tx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Cart stays intact for retry.
		return nil, fmt.Errorf("checkout: %w", err)
	}

	c.clearLocked()
	return &Result{Sale: sale, Items: items}, nil
}

// decrementStock reduces the line's product stock, floored at zero,
// and leaves the product pending for the next sync cycle.
func decrementStock(ctx context.Context, tx *store.Tx, line Line) error {
	var p pos.Product
	found, err := tx.Get(ctx, pos.Products, line.Product.ID, &p)
	if err != nil {
		return fmt.Errorf("read product %s: %w", line.Product.SKU, err)
	}
	if !found {
		// Product vanished from the local mirror (catalog refresh mid
		// session). The sale still records the snapshot; there is no
		// stock row left to decrement.
		slog.Warn("checkout: product missing from local mirror, skipping stock decrement",
			"product_id", line.Product.ID,
			"sku", line.Product.SKU,
		)
		return nil
	}

	newStock := p.StockQuantity - line.Quantity
	if newStock < 0 {
		newStock = 0
	}
	if err := tx.Update(ctx, pos.Products, p.ID, map[string]any{"stock_quantity": newStock}); err != nil {
		return fmt.Errorf("decrement stock for %s: %w", p.SKU, err)
	}
	return nil
}
