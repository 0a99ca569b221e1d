package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"tokoservis/backend/internal/cache"
	"tokoservis/backend/internal/domain"
	"tokoservis/backend/internal/store/memory"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	return New(repo, cache.NoopReportCache{}, time.Minute), repo
}

func mustCreateSale(t *testing.T, repo *memory.Store, method string, items []domain.SaleItem) domain.Sale {
	t.Helper()
	total := int64(0)
	for _, item := range items {
		total += item.LineTotalCents
	}
	sale, err := repo.CreateSale(context.Background(), domain.Sale{
		PaymentMethod: method,
		SubtotalCents: total,
		TotalCents:    total,
		CreatedBy:     "admin",
		Items:         items,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return sale
}

func dayRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	return now.Add(-time.Hour), now.Add(time.Hour)
}

func TestPaymentMethodPercentagesSumToHundred(t *testing.T) {
	engine, repo := newTestEngine(t)

	mustCreateSale(t, repo, "cash", []domain.SaleItem{
		{ProductID: "prod-tg-uni", Qty: 2, UnitPriceCents: 2000000, LineTotalCents: 4000000},
	})
	mustCreateSale(t, repo, "transfer", []domain.SaleItem{
		{ProductID: "prod-cas-typec", Qty: 1, UnitPriceCents: 9000000, LineTotalCents: 9000000},
	})
	mustCreateSale(t, repo, "", []domain.SaleItem{
		{ProductID: "prod-case-a52", Qty: 1, UnitPriceCents: 3500000, LineTotalCents: 3500000},
	})

	from, to := dayRange()
	rows, err := engine.SalesByPaymentMethod(context.Background(), from, to)
	if err != nil {
		t.Fatalf("sales by payment method: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 payment buckets, got %d", len(rows))
	}

	sum := 0.0
	foundOther := false
	for _, row := range rows {
		sum += row.Percent
		if row.Method == "Other" {
			foundOther = true
		}
	}
	if math.Abs(sum-100) > 0.001 {
		t.Fatalf("expected percentages to sum to 100, got %f", sum)
	}
	if !foundOther {
		t.Fatalf("expected empty payment method to be reported as Other")
	}
}

func TestSalesByCategoryMarginsAndPercentages(t *testing.T) {
	engine, repo := newTestEngine(t)

	// One sale spanning both categories, a second in accessories only.
	mustCreateSale(t, repo, "cash", []domain.SaleItem{
		{ProductID: "prod-tg-uni", Qty: 2, UnitPriceCents: 2000000, LineTotalCents: 4000000},
		{ProductID: "prod-lcd-a52", Qty: 1, UnitPriceCents: 45000000, LineTotalCents: 45000000},
	})
	mustCreateSale(t, repo, "cash", []domain.SaleItem{
		{ProductID: "prod-tg-uni", Qty: 1, UnitPriceCents: 2000000, LineTotalCents: 2000000},
	})

	from, to := dayRange()
	rows, err := engine.SalesByCategory(context.Background(), from, to)
	if err != nil {
		t.Fatalf("sales by category: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(rows))
	}

	byCategory := map[string]domain.CategorySales{}
	sum := 0.0
	for _, row := range rows {
		byCategory[row.Category] = row
		sum += row.Percent
	}
	if math.Abs(sum-100) > 0.001 {
		t.Fatalf("expected percentages to sum to 100, got %f", sum)
	}

	accessory := byCategory["accessory"]
	if accessory.QtySold != 3 || accessory.SaleCount != 2 {
		t.Fatalf("expected accessory qty 3 across 2 sales, got qty %d in %d sales", accessory.QtySold, accessory.SaleCount)
	}
	if accessory.RevenueCents != 6000000 || accessory.CostCents != 1500000 || accessory.MarginCents != 4500000 {
		t.Fatalf("unexpected accessory figures: revenue %d cost %d margin %d",
			accessory.RevenueCents, accessory.CostCents, accessory.MarginCents)
	}

	sparepart := byCategory["sparepart"]
	if sparepart.QtySold != 1 || sparepart.SaleCount != 1 {
		t.Fatalf("expected sparepart qty 1 in 1 sale, got qty %d in %d sales", sparepart.QtySold, sparepart.SaleCount)
	}
	if sparepart.RevenueCents != 45000000 || sparepart.CostCents != 32000000 || sparepart.MarginCents != 13000000 {
		t.Fatalf("unexpected sparepart figures: revenue %d cost %d margin %d",
			sparepart.RevenueCents, sparepart.CostCents, sparepart.MarginCents)
	}
	if rows[0].Category != "sparepart" {
		t.Fatalf("expected highest revenue category first, got %s", rows[0].Category)
	}
}

func TestSalesByCategoryEmptyWindow(t *testing.T) {
	engine, _ := newTestEngine(t)

	from, to := dayRange()
	rows, err := engine.SalesByCategory(context.Background(), from, to)
	if err != nil {
		t.Fatalf("sales by category: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows with no sales, got %d", len(rows))
	}
}

func TestProfitAnalysisZeroRevenueYieldsZeroMargins(t *testing.T) {
	engine, _ := newTestEngine(t)

	from, to := dayRange()
	report, err := engine.ProfitAnalysis(context.Background(), from, to)
	if err != nil {
		t.Fatalf("profit analysis: %v", err)
	}
	if report.RevenueCents != 0 {
		t.Fatalf("expected zero revenue, got %d", report.RevenueCents)
	}
	if report.GrossMarginPercent != 0 || report.NetMarginPercent != 0 {
		t.Fatalf("expected zero margins on zero revenue, got %f / %f",
			report.GrossMarginPercent, report.NetMarginPercent)
	}
}

func TestProfitAnalysisSubtractsCostAndExpenses(t *testing.T) {
	engine, repo := newTestEngine(t)

	// Tempered glass: cost 500000, price 2000000 per unit.
	mustCreateSale(t, repo, "cash", []domain.SaleItem{
		{ProductID: "prod-tg-uni", Qty: 2, UnitPriceCents: 2000000, LineTotalCents: 4000000},
	})
	if _, err := repo.CreateExpense(context.Background(), domain.Expense{
		Category:    "listrik",
		AmountCents: 1000000,
		CreatedBy:   "admin",
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	from, to := dayRange()
	report, err := engine.ProfitAnalysis(context.Background(), from, to)
	if err != nil {
		t.Fatalf("profit analysis: %v", err)
	}
	if report.RevenueCents != 4000000 {
		t.Fatalf("expected revenue 4000000, got %d", report.RevenueCents)
	}
	if report.CostCents != 1000000 {
		t.Fatalf("expected cost 1000000, got %d", report.CostCents)
	}
	if report.GrossProfitCents != 3000000 {
		t.Fatalf("expected gross profit 3000000, got %d", report.GrossProfitCents)
	}
	if report.NetProfitCents != 2000000 {
		t.Fatalf("expected net profit 2000000, got %d", report.NetProfitCents)
	}
	if math.Abs(report.GrossMarginPercent-75) > 0.001 {
		t.Fatalf("expected gross margin 75%%, got %f", report.GrossMarginPercent)
	}
}

func TestTopSellingProductsOrdersByQty(t *testing.T) {
	engine, repo := newTestEngine(t)

	mustCreateSale(t, repo, "cash", []domain.SaleItem{
		{ProductID: "prod-tg-uni", Qty: 5, UnitPriceCents: 2000000, LineTotalCents: 10000000},
		{ProductID: "prod-cas-typec", Qty: 2, UnitPriceCents: 9000000, LineTotalCents: 18000000},
	})
	mustCreateSale(t, repo, "cash", []domain.SaleItem{
		{ProductID: "prod-tg-uni", Qty: 3, UnitPriceCents: 2000000, LineTotalCents: 6000000},
	})

	from, to := dayRange()
	rows, err := engine.TopSellingProducts(context.Background(), from, to, 10)
	if err != nil {
		t.Fatalf("top selling products: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 products, got %d", len(rows))
	}
	if rows[0].ProductID != "prod-tg-uni" || rows[0].QtySold != 8 {
		t.Fatalf("expected tempered glass first with qty 8, got %s qty %d", rows[0].ProductID, rows[0].QtySold)
	}
	if rows[0].RevenueCents != 16000000 {
		t.Fatalf("expected revenue 16000000, got %d", rows[0].RevenueCents)
	}
}

func TestSalesByPeriodBucketsByDay(t *testing.T) {
	engine, repo := newTestEngine(t)

	mustCreateSale(t, repo, "cash", []domain.SaleItem{
		{ProductID: "prod-tg-uni", Qty: 1, UnitPriceCents: 2000000, LineTotalCents: 2000000},
	})
	mustCreateSale(t, repo, "cash", []domain.SaleItem{
		{ProductID: "prod-tg-uni", Qty: 1, UnitPriceCents: 2000000, LineTotalCents: 2000000},
	})

	from, to := dayRange()
	rows, err := engine.SalesByPeriod(context.Background(), GranularityDay, from, to)
	if err != nil {
		t.Fatalf("sales by period: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single day bucket, got %d", len(rows))
	}
	if rows[0].SaleCount != 2 {
		t.Fatalf("expected 2 sales in the bucket, got %d", rows[0].SaleCount)
	}
	if rows[0].Period != time.Now().UTC().Format("2006-01-02") {
		t.Fatalf("unexpected bucket label %s", rows[0].Period)
	}
	if rows[0].AverageTicketCents != 2000000 {
		t.Fatalf("expected average ticket 2000000, got %d", rows[0].AverageTicketCents)
	}

	if _, err := engine.SalesByPeriod(context.Background(), "hour", from, to); err == nil {
		t.Fatalf("expected unknown granularity to be rejected")
	}
}

func TestInventoryValuePercentages(t *testing.T) {
	engine, _ := newTestEngine(t)

	rows, err := engine.InventoryValueByCategory(context.Background())
	if err != nil {
		t.Fatalf("inventory value: %v", err)
	}
	if len(rows) == 0 {
		t.Fatalf("expected seeded categories")
	}
	sum := 0.0
	for _, row := range rows {
		if row.TotalValueCents != row.StoreValueCents+row.WarehouseValueCents {
			t.Fatalf("category %s total mismatch", row.Category)
		}
		sum += row.Percent
	}
	if math.Abs(sum-100) > 0.001 {
		t.Fatalf("expected inventory percentages to sum to 100, got %f", sum)
	}
}
