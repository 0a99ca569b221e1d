package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"tokoservis/backend/internal/domain"
)

func TestCreateSaleDecrementsStoreStock(t *testing.T) {
	databaseURL := os.Getenv("TOKOSERVIS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set TOKOSERVIS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-sale-it-%d", stamp)
	saleID := fmt.Sprintf("sale-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, category, cost_cents, price_cents,
			max_discount_percent, store_qty, warehouse_qty, min_stock_level, item_seq, active, created_at, updated_at)
		VALUES ($1, 'LCD Integration', null, 'sparepart', 30000, 45000, 5, 10, 4, 3, 0, true, now(), now())
	`, productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	sale := domain.Sale{
		ID:            saleID,
		SubtotalCents: 135000,
		TotalCents:    135000,
		PaymentMethod: "cash",
		CreatedBy:     "admin",
		Items: []domain.SaleItem{
			{ProductID: productID, Qty: 3, UnitPriceCents: 45000, LineTotalCents: 135000},
		},
	}
	created, err := s.CreateSale(ctx, sale)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if created.InvoiceNumber == "" {
		t.Fatalf("expected an invoice number to be allocated")
	}

	var storeQty int
	if err := s.db.QueryRowContext(ctx, `
		SELECT store_qty FROM products WHERE id = $1
	`, productID).Scan(&storeQty); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if storeQty != 7 {
		t.Fatalf("expected store stock 7 after sale, got %d", storeQty)
	}
}
