package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"tokoservis/backend/internal/analytics"
	"tokoservis/backend/internal/cache"
	"tokoservis/backend/internal/domain"
	"tokoservis/backend/internal/store"
	"tokoservis/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	reports := analytics.New(repo, cache.NoopReportCache{}, time.Minute)
	return New(repo, reports, 5, 30), repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "kasir", Role: domain.RoleStaff})
}

func saleRequestFor(productID string, qty int, unitPrice int64) domain.SaleCreateRequest {
	subtotal := unitPrice * int64(qty)
	return domain.SaleCreateRequest{
		PaymentMethod: "cash",
		SubtotalCents: subtotal,
		DiscountCents: 0,
		TaxCents:      0,
		TotalCents:    subtotal,
		Items: []domain.SaleItemRequest{
			{ProductID: productID, Qty: qty, UnitPriceCents: unitPrice, LineTotalCents: subtotal},
		},
	}
}

func TestCreateSaleDecrementsStockAndAllocatesInvoice(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	// Charger Type-C is seeded with 10 in store.
	sale, err := svc.CreateSale(ctx, saleRequestFor("prod-cas-typec", 3, 9000000))
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	expected := fmt.Sprintf("INV-%s-0001", time.Now().UTC().Format("20060102"))
	if sale.InvoiceNumber != expected {
		t.Fatalf("expected invoice %s, got %s", expected, sale.InvoiceNumber)
	}

	product, err := svc.GetProduct(ctx, "prod-cas-typec")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StoreQty != 7 {
		t.Fatalf("expected store stock 7 after selling 3 of 10, got %d", product.StoreQty)
	}

	second, err := svc.CreateSale(ctx, saleRequestFor("prod-cas-typec", 1, 9000000))
	if err != nil {
		t.Fatalf("second sale failed: %v", err)
	}
	if second.InvoiceNumber <= sale.InvoiceNumber {
		t.Fatalf("expected invoice numbers to increase, got %s then %s", sale.InvoiceNumber, second.InvoiceNumber)
	}
}

func TestCreateSaleRejectsOversell(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	_, err := svc.CreateSale(ctx, saleRequestFor("prod-cas-typec", 11, 9000000))
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	product, err := svc.GetProduct(ctx, "prod-cas-typec")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StoreQty != 10 {
		t.Fatalf("expected stock untouched after rejected sale, got %d", product.StoreQty)
	}
}

func TestCreateSaleIsAtomic(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	req := domain.SaleCreateRequest{
		PaymentMethod: "cash",
		SubtotalCents: 9000000 + 5000000,
		TotalCents:    9000000 + 5000000,
		Items: []domain.SaleItemRequest{
			{ProductID: "prod-cas-typec", Qty: 1, UnitPriceCents: 9000000, LineTotalCents: 9000000},
			{ProductID: "prod-missing", Qty: 1, UnitPriceCents: 5000000, LineTotalCents: 5000000},
		},
	}
	if _, err := svc.CreateSale(ctx, req); err == nil {
		t.Fatalf("expected sale with unknown product to fail")
	}

	product, err := svc.GetProduct(ctx, "prod-cas-typec")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StoreQty != 10 {
		t.Fatalf("expected no stock change after failed sale, got %d", product.StoreQty)
	}

	sales, err := svc.RecentSales(ctx, 10)
	if err != nil {
		t.Fatalf("recent sales failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no persisted sales, got %d", len(sales))
	}
}

func TestCreateSaleVerifiesTotals(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	req := saleRequestFor("prod-cas-typec", 1, 9000000)
	req.TotalCents = 1
	if _, err := svc.CreateSale(ctx, req); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected total mismatch to be rejected, got %v", err)
	}

	req = saleRequestFor("prod-cas-typec", 1, 9000000)
	req.Items[0].LineTotalCents = 123
	if _, err := svc.CreateSale(ctx, req); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected line total mismatch to be rejected, got %v", err)
	}
}

func TestCreateSaleCapsDiscountPerProduct(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	// Charger allows at most 10% discount.
	req := domain.SaleCreateRequest{
		PaymentMethod: "cash",
		SubtotalCents: 9000000,
		DiscountCents: 2250000,
		TotalCents:    6750000,
		Items: []domain.SaleItemRequest{
			{ProductID: "prod-cas-typec", Qty: 1, UnitPriceCents: 9000000, DiscountPercent: 25, LineTotalCents: 6750000},
		},
	}
	if _, err := svc.CreateSale(ctx, req); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected discount above product limit to be rejected, got %v", err)
	}

	req.Items[0].DiscountPercent = 10
	req.Items[0].LineTotalCents = 8100000
	req.DiscountCents = 900000
	req.TotalCents = 8100000
	if _, err := svc.CreateSale(ctx, req); err != nil {
		t.Fatalf("expected discount within limit to pass, got %v", err)
	}
}

func TestMoveToStoreCreatesSerializedItems(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	items, err := svc.MoveToStore(ctx, "prod-bat-ip11", 2)
	if err != nil {
		t.Fatalf("move to store failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 serialized items, got %d", len(items))
	}
	for _, item := range items {
		if !strings.HasPrefix(item.Code, "Pprod-bat-ip11I") {
			t.Fatalf("unexpected item code %s", item.Code)
		}
		if item.Status != domain.ItemStatusInStore {
			t.Fatalf("expected item in store, got %s", item.Status)
		}
	}

	product, err := svc.GetProduct(ctx, "prod-bat-ip11")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StoreQty != 8 || product.WarehouseQty != 10 {
		t.Fatalf("expected 8 in store and 10 in warehouse, got %d/%d", product.StoreQty, product.WarehouseQty)
	}

	if _, err := svc.MoveToStore(ctx, "prod-bat-ip11", 100); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected warehouse oversell to be rejected, got %v", err)
	}
}

func TestProductItemSellsExactlyOnce(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	items, err := svc.MoveToStore(ctx, "prod-bat-ip11", 1)
	if err != nil {
		t.Fatalf("move to store failed: %v", err)
	}
	code := items[0].Code

	req := saleRequestFor("prod-bat-ip11", 1, 27500000)
	req.Items[0].ProductItemCode = code
	if _, err := svc.CreateSale(ctx, req); err != nil {
		t.Fatalf("sale with item code failed: %v", err)
	}

	unit, err := svc.GetProductItem(ctx, code)
	if err != nil {
		t.Fatalf("get product item failed: %v", err)
	}
	if unit.Status != domain.ItemStatusSold || unit.SoldAt == nil {
		t.Fatalf("expected item sold with timestamp, got %s", unit.Status)
	}

	again := saleRequestFor("prod-bat-ip11", 1, 27500000)
	again.Items[0].ProductItemCode = code
	if _, err := svc.CreateSale(ctx, again); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected double sell of item code to conflict, got %v", err)
	}
}

func TestCreateSaleRejectsRepeatedItemCode(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	items, err := svc.MoveToStore(ctx, "prod-bat-ip11", 1)
	if err != nil {
		t.Fatalf("move to store failed: %v", err)
	}
	code := items[0].Code

	req := domain.SaleCreateRequest{
		PaymentMethod: "cash",
		SubtotalCents: 55000000,
		TotalCents:    55000000,
		Items: []domain.SaleItemRequest{
			{ProductID: "prod-bat-ip11", ProductItemCode: code, Qty: 1, UnitPriceCents: 27500000, LineTotalCents: 27500000},
			{ProductID: "prod-bat-ip11", ProductItemCode: code, Qty: 1, UnitPriceCents: 27500000, LineTotalCents: 27500000},
		},
	}
	if _, err := svc.CreateSale(ctx, req); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected repeated item code in one sale to conflict, got %v", err)
	}

	unit, err := svc.GetProductItem(ctx, code)
	if err != nil {
		t.Fatalf("get product item failed: %v", err)
	}
	if unit.Status != domain.ItemStatusInStore || unit.SoldAt != nil {
		t.Fatalf("expected item still in store after rejected sale, got %s", unit.Status)
	}

	product, err := svc.GetProduct(ctx, "prod-bat-ip11")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StoreQty != 7 {
		t.Fatalf("expected store stock untouched at 7, got %d", product.StoreQty)
	}
}

func TestUpdateQuantitiesRejectsNegative(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.UpdateQuantities(adminCtx(), "prod-cas-typec", -1, 5); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected negative store qty to be rejected, got %v", err)
	}

	product, err := svc.UpdateQuantities(adminCtx(), "prod-cas-typec", 12, 28)
	if err != nil {
		t.Fatalf("update quantities failed: %v", err)
	}
	if product.StoreQty != 12 || product.WarehouseQty != 28 {
		t.Fatalf("expected 12/28, got %d/%d", product.StoreQty, product.WarehouseQty)
	}
}

func TestUpdateQuantitiesRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.UpdateQuantities(staffCtx(), "prod-cas-typec", 1, 1); err == nil {
		t.Fatalf("expected staff to be denied")
	}
}

func newRepairJob(t *testing.T, svc *Service, ctx context.Context) domain.RepairJob {
	t.Helper()
	job, err := svc.CreateRepairJob(ctx, domain.RepairJobCreateRequest{
		CustomerID: "cust-budi",
		Device:     "Samsung A52",
		Issue:      "LCD pecah",
		Technician: "Andi",
		Parts: []domain.RepairPartRequest{
			{ProductID: "prod-lcd-a52", Qty: 1, UnitPriceCents: 20000},
			{ProductID: "prod-tg-uni", Qty: 2, UnitPriceCents: 5000},
		},
	})
	if err != nil {
		t.Fatalf("create repair job failed: %v", err)
	}
	return job
}

func TestCompleteRepairFreezesCosts(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	job := newRepairJob(t, svc, ctx)
	if job.Status != domain.StatusPending {
		t.Fatalf("expected new job pending, got %s", job.Status)
	}

	completed, err := svc.CompleteRepair(ctx, job.ID, domain.RepairCompletionRequest{
		ServiceChargeCents: 15000,
		Notes:              "ganti LCD dan tempered glass",
	})
	if err != nil {
		t.Fatalf("complete repair failed: %v", err)
	}
	if completed.Status != domain.StatusCompleted {
		t.Fatalf("expected completed status, got %s", completed.Status)
	}
	if completed.PartsCostCents == nil || *completed.PartsCostCents != 30000 {
		t.Fatalf("expected parts cost 30000, got %v", completed.PartsCostCents)
	}
	if completed.FinalCostCents == nil || *completed.FinalCostCents != 45000 {
		t.Fatalf("expected final cost 45000, got %v", completed.FinalCostCents)
	}
	if completed.CompletedAt == nil {
		t.Fatalf("expected completed_at to be stamped")
	}
	if completed.Notes != "ganti LCD dan tempered glass" {
		t.Fatalf("expected notes to be saved, got %q", completed.Notes)
	}
}

func TestPartEditsAfterCompletionDoNotRecomputeFinalCost(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	job := newRepairJob(t, svc, ctx)
	completed, err := svc.CompleteRepair(ctx, job.ID, domain.RepairCompletionRequest{ServiceChargeCents: 15000})
	if err != nil {
		t.Fatalf("complete repair failed: %v", err)
	}

	updated, err := svc.UpdateRepairJob(ctx, job.ID, domain.RepairJobUpdateRequest{
		Parts: []domain.RepairPartRequest{
			{ProductID: "prod-lcd-a52", Qty: 3, UnitPriceCents: 99999},
		},
	})
	if err != nil {
		t.Fatalf("update repair job failed: %v", err)
	}
	if updated.FinalCostCents == nil || *updated.FinalCostCents != *completed.FinalCostCents {
		t.Fatalf("expected final cost to stay frozen at %d, got %v", *completed.FinalCostCents, updated.FinalCostCents)
	}
	if len(updated.Parts) != 1 {
		t.Fatalf("expected part list replaced by diff, got %d lines", len(updated.Parts))
	}
}

func TestRepairStatusTransitions(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	job := newRepairJob(t, svc, ctx)

	inProgress, err := svc.UpdateRepairStatus(ctx, job.ID, domain.StatusInProgress)
	if err != nil {
		t.Fatalf("set in_progress failed: %v", err)
	}
	if inProgress.Status != domain.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", inProgress.Status)
	}

	// Same status again is a no-op, not an error.
	again, err := svc.UpdateRepairStatus(ctx, job.ID, domain.StatusInProgress)
	if err != nil {
		t.Fatalf("idempotent status set failed: %v", err)
	}
	if again.Status != domain.StatusInProgress {
		t.Fatalf("expected in_progress after repeat, got %s", again.Status)
	}

	if _, err := svc.UpdateRepairStatus(ctx, job.ID, domain.StatusPending); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected backward transition to conflict, got %v", err)
	}

	if _, err := svc.UpdateRepairStatus(ctx, job.ID, "archived"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected unknown status to be rejected, got %v", err)
	}
}

func TestPendingRepairJobsQueue(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	first := newRepairJob(t, svc, ctx)
	second := newRepairJob(t, svc, ctx)

	if _, err := svc.UpdateRepairStatus(ctx, second.ID, domain.StatusInProgress); err != nil {
		t.Fatalf("set in_progress failed: %v", err)
	}
	if _, err := svc.CompleteRepair(ctx, first.ID, domain.RepairCompletionRequest{ServiceChargeCents: 10000}); err != nil {
		t.Fatalf("complete repair failed: %v", err)
	}

	queue, err := svc.PendingRepairJobs(ctx)
	if err != nil {
		t.Fatalf("pending queue failed: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != second.ID {
		t.Fatalf("expected only the in_progress job in the queue")
	}
}

func TestCostReportsRequireAdmin(t *testing.T) {
	svc, _ := newTestService()
	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)

	if _, err := svc.ProfitAnalysis(staffCtx(), from, to); err == nil {
		t.Fatalf("expected staff to be denied profit analysis")
	}
	if _, err := svc.SalesByCategory(staffCtx(), from, to); err == nil {
		t.Fatalf("expected staff to be denied category margins")
	}
	if _, err := svc.InventoryValueByCategory(staffCtx()); err == nil {
		t.Fatalf("expected staff to be denied inventory value")
	}

	if _, err := svc.ProfitAnalysis(adminCtx(), from, to); err != nil {
		t.Fatalf("expected admin to read profit analysis, got %v", err)
	}
}

func TestRecordExpenseRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()

	req := domain.ExpenseCreateRequest{Category: "listrik", AmountCents: 50000}
	if _, err := svc.RecordExpense(staffCtx(), req); err == nil {
		t.Fatalf("expected staff to be denied expense recording")
	}

	created, err := svc.RecordExpense(adminCtx(), req)
	if err != nil {
		t.Fatalf("record expense failed: %v", err)
	}
	if created.CreatedBy != "admin" {
		t.Fatalf("expected created_by admin, got %s", created.CreatedBy)
	}
}

func TestStaffAccountManagement(t *testing.T) {
	svc, _ := newTestService()

	created, err := svc.CreateStaffAccount(adminCtx(), domain.StaffAccount{
		Username: "Teknisi1",
		Password: "$2a$10$prehashedvaluehere",
		Role:     domain.RoleStaff,
	})
	if err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
	if created.Username != "teknisi1" {
		t.Fatalf("expected lowered username, got %s", created.Username)
	}

	if err := svc.UpdateStaffPassword(adminCtx(), "teknisi1", "$2a$10$anotherhash"); err != nil {
		t.Fatalf("update password failed: %v", err)
	}
	if err := svc.UpdateStaffPassword(adminCtx(), "nobody", "$2a$10$hash"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected unknown user to be not found, got %v", err)
	}

	if _, err := svc.CreateStaffAccount(staffCtx(), domain.StaffAccount{Username: "x", Password: "y"}); err == nil {
		t.Fatalf("expected staff to be denied account creation")
	}
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	svc, _ := newTestService()
	ctx := staffCtx()

	if _, err := svc.CreateSale(ctx, saleRequestFor("prod-cas-typec", 1, 9000000)); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(adminCtx(), 10)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	found := false
	for _, entry := range logs {
		if entry.Action == "sale_create" && entry.ActorUsername == "kasir" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a sale_create audit entry by kasir")
	}
}
