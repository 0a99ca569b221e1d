package domain

// Report rows produced by the analytics engine. Percent fields are always
// 0 when the denominator is 0.

type PeriodSales struct {
	Period             string `json:"period"`
	SaleCount          int    `json:"sale_count"`
	GrossCents         int64  `json:"gross_cents"`
	DiscountCents      int64  `json:"discount_cents"`
	NetCents           int64  `json:"net_cents"`
	AverageTicketCents int64  `json:"average_ticket_cents"`
}

type TopProduct struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	QtySold      int    `json:"qty_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

type CategorySales struct {
	Category     string  `json:"category"`
	QtySold      int     `json:"qty_sold"`
	SaleCount    int     `json:"sale_count"`
	RevenueCents int64   `json:"revenue_cents"`
	CostCents    int64   `json:"cost_cents"`
	MarginCents  int64   `json:"margin_cents"`
	Percent      float64 `json:"percent"`
}

type PaymentMethodSales struct {
	Method     string  `json:"method"`
	SaleCount  int     `json:"sale_count"`
	TotalCents int64   `json:"total_cents"`
	Percent    float64 `json:"percent"`
}

type ExpenseCategorySummary struct {
	Category    string  `json:"category"`
	Count       int     `json:"count"`
	AmountCents int64   `json:"amount_cents"`
	Percent     float64 `json:"percent"`
}

type InventoryCategoryValue struct {
	Category            string  `json:"category"`
	StoreValueCents     int64   `json:"store_value_cents"`
	WarehouseValueCents int64   `json:"warehouse_value_cents"`
	TotalValueCents     int64   `json:"total_value_cents"`
	Percent             float64 `json:"percent"`
}

type ProfitReport struct {
	RevenueCents       int64   `json:"revenue_cents"`
	CostCents          int64   `json:"cost_cents"`
	ExpenseCents       int64   `json:"expense_cents"`
	GrossProfitCents   int64   `json:"gross_profit_cents"`
	NetProfitCents     int64   `json:"net_profit_cents"`
	GrossMarginPercent float64 `json:"gross_margin_percent"`
	NetMarginPercent   float64 `json:"net_margin_percent"`
}
