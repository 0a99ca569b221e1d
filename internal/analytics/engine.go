package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"time"

	"tokoservis/backend/internal/cache"
	"tokoservis/backend/internal/domain"
)

const (
	GranularityDay   = "day"
	GranularityWeek  = "week"
	GranularityMonth = "month"
)

// Reader is the slice of the repository the engine needs. It only reads.
type Reader interface {
	SalesInRange(ctx context.Context, from, to time.Time) ([]domain.Sale, error)
	SaleFactsInRange(ctx context.Context, from, to time.Time) ([]domain.SaleFact, error)
	ExpensesInRange(ctx context.Context, from, to time.Time) ([]domain.Expense, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Engine computes read-side reports from flat repository rows. Responses
// pass through the report cache; cache failures fall back to recompute.
type Engine struct {
	reader Reader
	cache  cache.ReportCache
	ttl    time.Duration
}

func New(reader Reader, reportCache cache.ReportCache, ttl time.Duration) *Engine {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	return &Engine{reader: reader, cache: reportCache, ttl: ttl}
}

func reportKey(name string, from, to time.Time, extra string) string {
	key := fmt.Sprintf("report:%s:%d:%d", name, from.UTC().Unix(), to.UTC().Unix())
	if extra != "" {
		key += ":" + extra
	}
	return key
}

func (e *Engine) cachedGet(ctx context.Context, key string, out any) bool {
	payload, ok, err := e.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(payload, out) == nil
}

func (e *Engine) cachedSet(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, payload, e.ttl); err != nil {
		log.Printf("[analytics] WARN: report cache write failed: %v", err)
	}
}

func (e *Engine) SalesByPeriod(ctx context.Context, granularity string, from, to time.Time) ([]domain.PeriodSales, error) {
	if granularity != GranularityDay && granularity != GranularityWeek && granularity != GranularityMonth {
		return nil, fmt.Errorf("unknown granularity %q", granularity)
	}

	key := reportKey("sales_by_period", from, to, granularity)
	var cached []domain.PeriodSales
	if e.cachedGet(ctx, key, &cached) {
		return cached, nil
	}

	sales, err := e.reader.SalesInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byPeriod := map[string]*domain.PeriodSales{}
	for _, sale := range sales {
		period := bucketFor(sale.CreatedAt, granularity)
		entry := byPeriod[period]
		if entry == nil {
			entry = &domain.PeriodSales{Period: period}
			byPeriod[period] = entry
		}
		entry.SaleCount++
		entry.GrossCents += sale.SubtotalCents
		entry.DiscountCents += sale.DiscountCents
		entry.NetCents += sale.TotalCents
	}

	result := make([]domain.PeriodSales, 0, len(byPeriod))
	for _, entry := range byPeriod {
		if entry.SaleCount > 0 {
			entry.AverageTicketCents = entry.NetCents / int64(entry.SaleCount)
		}
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.PeriodSales) int {
		return cmpString(a.Period, b.Period)
	})

	e.cachedSet(ctx, key, result)
	return result, nil
}

func bucketFor(t time.Time, granularity string) string {
	t = t.UTC()
	switch granularity {
	case GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case GranularityMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

func (e *Engine) TopSellingProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.TopProduct, error) {
	if limit < 1 {
		limit = 10
	}

	key := reportKey("top_selling", from, to, fmt.Sprintf("%d", limit))
	var cached []domain.TopProduct
	if e.cachedGet(ctx, key, &cached) {
		return cached, nil
	}

	facts, err := e.reader.SaleFactsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byProduct := map[string]*domain.TopProduct{}
	for _, fact := range facts {
		entry := byProduct[fact.ProductID]
		if entry == nil {
			entry = &domain.TopProduct{ProductID: fact.ProductID, ProductName: fact.ProductName}
			byProduct[fact.ProductID] = entry
		}
		entry.QtySold += fact.Qty
		entry.RevenueCents += fact.LineTotalCents
	}

	result := make([]domain.TopProduct, 0, len(byProduct))
	for _, entry := range byProduct {
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.TopProduct) int {
		if a.QtySold != b.QtySold {
			return b.QtySold - a.QtySold
		}
		if a.RevenueCents != b.RevenueCents {
			if a.RevenueCents > b.RevenueCents {
				return -1
			}
			return 1
		}
		return cmpString(a.ProductName, b.ProductName)
	})
	if len(result) > limit {
		result = result[:limit]
	}

	e.cachedSet(ctx, key, result)
	return result, nil
}

func (e *Engine) SalesByCategory(ctx context.Context, from, to time.Time) ([]domain.CategorySales, error) {
	key := reportKey("sales_by_category", from, to, "")
	var cached []domain.CategorySales
	if e.cachedGet(ctx, key, &cached) {
		return cached, nil
	}

	facts, err := e.reader.SaleFactsInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byCategory := map[string]*domain.CategorySales{}
	salesSeen := map[string]map[string]struct{}{}
	totalRevenue := int64(0)
	for _, fact := range facts {
		category := fact.Category
		if category == "" {
			category = "Other"
		}
		entry := byCategory[category]
		if entry == nil {
			entry = &domain.CategorySales{Category: category}
			byCategory[category] = entry
			salesSeen[category] = map[string]struct{}{}
		}
		entry.QtySold += fact.Qty
		entry.RevenueCents += fact.LineTotalCents
		entry.CostCents += fact.UnitCostCents * int64(fact.Qty)
		if _, seen := salesSeen[category][fact.SaleID]; !seen {
			salesSeen[category][fact.SaleID] = struct{}{}
			entry.SaleCount++
		}
		totalRevenue += fact.LineTotalCents
	}

	result := make([]domain.CategorySales, 0, len(byCategory))
	for _, entry := range byCategory {
		entry.MarginCents = entry.RevenueCents - entry.CostCents
		entry.Percent = percentOf(entry.RevenueCents, totalRevenue)
		result = append(result, *entry)
	}
	sortByRevenueDesc(result)

	e.cachedSet(ctx, key, result)
	return result, nil
}

func (e *Engine) SalesByPaymentMethod(ctx context.Context, from, to time.Time) ([]domain.PaymentMethodSales, error) {
	key := reportKey("sales_by_payment", from, to, "")
	var cached []domain.PaymentMethodSales
	if e.cachedGet(ctx, key, &cached) {
		return cached, nil
	}

	sales, err := e.reader.SalesInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byMethod := map[string]*domain.PaymentMethodSales{}
	total := int64(0)
	for _, sale := range sales {
		method := sale.PaymentMethod
		if method == "" {
			method = "Other"
		}
		entry := byMethod[method]
		if entry == nil {
			entry = &domain.PaymentMethodSales{Method: method}
			byMethod[method] = entry
		}
		entry.SaleCount++
		entry.TotalCents += sale.TotalCents
		total += sale.TotalCents
	}

	result := make([]domain.PaymentMethodSales, 0, len(byMethod))
	for _, entry := range byMethod {
		entry.Percent = percentOf(entry.TotalCents, total)
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.PaymentMethodSales) int {
		if a.TotalCents != b.TotalCents {
			if a.TotalCents > b.TotalCents {
				return -1
			}
			return 1
		}
		return cmpString(a.Method, b.Method)
	})

	e.cachedSet(ctx, key, result)
	return result, nil
}

func (e *Engine) ExpensesByCategory(ctx context.Context, from, to time.Time) ([]domain.ExpenseCategorySummary, error) {
	key := reportKey("expenses_by_category", from, to, "")
	var cached []domain.ExpenseCategorySummary
	if e.cachedGet(ctx, key, &cached) {
		return cached, nil
	}

	expenses, err := e.reader.ExpensesInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byCategory := map[string]*domain.ExpenseCategorySummary{}
	total := int64(0)
	for _, expense := range expenses {
		entry := byCategory[expense.Category]
		if entry == nil {
			entry = &domain.ExpenseCategorySummary{Category: expense.Category}
			byCategory[expense.Category] = entry
		}
		entry.Count++
		entry.AmountCents += expense.AmountCents
		total += expense.AmountCents
	}

	result := make([]domain.ExpenseCategorySummary, 0, len(byCategory))
	for _, entry := range byCategory {
		entry.Percent = percentOf(entry.AmountCents, total)
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.ExpenseCategorySummary) int {
		if a.AmountCents != b.AmountCents {
			if a.AmountCents > b.AmountCents {
				return -1
			}
			return 1
		}
		return cmpString(a.Category, b.Category)
	})

	e.cachedSet(ctx, key, result)
	return result, nil
}

func (e *Engine) InventoryValueByCategory(ctx context.Context) ([]domain.InventoryCategoryValue, error) {
	products, err := e.reader.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := map[string]*domain.InventoryCategoryValue{}
	grandTotal := int64(0)
	for _, p := range products {
		entry := byCategory[p.Category]
		if entry == nil {
			entry = &domain.InventoryCategoryValue{Category: p.Category}
			byCategory[p.Category] = entry
		}
		storeValue := p.CostCents * int64(p.StoreQty)
		warehouseValue := p.CostCents * int64(p.WarehouseQty)
		entry.StoreValueCents += storeValue
		entry.WarehouseValueCents += warehouseValue
		entry.TotalValueCents += storeValue + warehouseValue
		grandTotal += storeValue + warehouseValue
	}

	result := make([]domain.InventoryCategoryValue, 0, len(byCategory))
	for _, entry := range byCategory {
		entry.Percent = percentOf(entry.TotalValueCents, grandTotal)
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.InventoryCategoryValue) int {
		if a.TotalValueCents != b.TotalValueCents {
			if a.TotalValueCents > b.TotalValueCents {
				return -1
			}
			return 1
		}
		return cmpString(a.Category, b.Category)
	})
	return result, nil
}

func (e *Engine) ProfitAnalysis(ctx context.Context, from, to time.Time) (domain.ProfitReport, error) {
	key := reportKey("profit_analysis", from, to, "")
	var cached domain.ProfitReport
	if e.cachedGet(ctx, key, &cached) {
		return cached, nil
	}

	facts, err := e.reader.SaleFactsInRange(ctx, from, to)
	if err != nil {
		return domain.ProfitReport{}, err
	}
	expenses, err := e.reader.ExpensesInRange(ctx, from, to)
	if err != nil {
		return domain.ProfitReport{}, err
	}

	var report domain.ProfitReport
	for _, fact := range facts {
		report.RevenueCents += fact.LineTotalCents
		report.CostCents += fact.UnitCostCents * int64(fact.Qty)
	}
	for _, expense := range expenses {
		report.ExpenseCents += expense.AmountCents
	}
	report.GrossProfitCents = report.RevenueCents - report.CostCents
	report.NetProfitCents = report.GrossProfitCents - report.ExpenseCents
	report.GrossMarginPercent = percentOf(report.GrossProfitCents, report.RevenueCents)
	report.NetMarginPercent = percentOf(report.NetProfitCents, report.RevenueCents)

	e.cachedSet(ctx, key, report)
	return report, nil
}

// percentOf never divides by zero: a zero denominator yields 0, not NaN.
func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func sortByRevenueDesc(rows []domain.CategorySales) {
	slices.SortFunc(rows, func(a, b domain.CategorySales) int {
		if a.RevenueCents != b.RevenueCents {
			if a.RevenueCents > b.RevenueCents {
				return -1
			}
			return 1
		}
		return cmpString(a.Category, b.Category)
	})
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
