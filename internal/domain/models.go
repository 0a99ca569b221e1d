package domain

import "time"

type Product struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Category           string    `json:"category"`
	CostCents          int64     `json:"cost_cents"`
	PriceCents         int64     `json:"price_cents"`
	MaxDiscountPercent float64   `json:"max_discount_percent"`
	StoreQty           int       `json:"store_qty"`
	WarehouseQty       int       `json:"warehouse_qty"`
	MinStockLevel      int       `json:"min_stock_level"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Category           string  `json:"category"`
	CostCents          int64   `json:"cost_cents"`
	PriceCents         int64   `json:"price_cents"`
	MaxDiscountPercent float64 `json:"max_discount_percent"`
	StoreQty           int     `json:"store_qty"`
	WarehouseQty       int     `json:"warehouse_qty"`
	MinStockLevel      int     `json:"min_stock_level"`
}

type ProductUpdateRequest struct {
	Name               *string  `json:"name,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Category           *string  `json:"category,omitempty"`
	CostCents          *int64   `json:"cost_cents,omitempty"`
	PriceCents         *int64   `json:"price_cents,omitempty"`
	MaxDiscountPercent *float64 `json:"max_discount_percent,omitempty"`
	MinStockLevel      *int     `json:"min_stock_level,omitempty"`
	Active             *bool    `json:"active,omitempty"`
}

const (
	ItemStatusInStore     = "in_store"
	ItemStatusInWarehouse = "in_warehouse"
	ItemStatusSold        = "sold"
)

// ProductItem is a single serialized unit of a Product, tracked by its
// unique external code. It flips to sold exactly once, when a sale
// consumes it.
type ProductItem struct {
	Code      string     `json:"code"`
	ProductID string     `json:"product_id"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SoldAt    *time.Time `json:"sold_at,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	TaxID     string    `json:"tax_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
}

type Sale struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	SubtotalCents int64      `json:"subtotal_cents"`
	DiscountCents int64      `json:"discount_cents"`
	TaxCents      int64      `json:"tax_cents"`
	TotalCents    int64      `json:"total_cents"`
	PaymentMethod string     `json:"payment_method"`
	InvoiceNumber string     `json:"invoice_number"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	Items         []SaleItem `json:"items,omitempty"`
}

type SaleItem struct {
	ID              int64   `json:"id"`
	SaleID          string  `json:"sale_id"`
	ProductID       string  `json:"product_id"`
	ProductItemCode string  `json:"product_item_code,omitempty"`
	Qty             int     `json:"qty"`
	UnitPriceCents  int64   `json:"unit_price_cents"`
	DiscountPercent float64 `json:"discount_percent"`
	LineTotalCents  int64   `json:"line_total_cents"`
	ProductName     string  `json:"product_name,omitempty"`
	Category        string  `json:"category,omitempty"`
}

type SaleItemRequest struct {
	ProductID       string  `json:"product_id"`
	ProductItemCode string  `json:"product_item_code,omitempty"`
	Qty             int     `json:"qty"`
	UnitPriceCents  int64   `json:"unit_price_cents"`
	DiscountPercent float64 `json:"discount_percent"`
	LineTotalCents  int64   `json:"line_total_cents"`
}

type SaleCreateRequest struct {
	CustomerID    string            `json:"customer_id,omitempty"`
	PaymentMethod string            `json:"payment_method"`
	SubtotalCents int64             `json:"subtotal_cents"`
	DiscountCents int64             `json:"discount_cents"`
	TaxCents      int64             `json:"tax_cents"`
	TotalCents    int64             `json:"total_cents"`
	Items         []SaleItemRequest `json:"items"`
}

type RepairJob struct {
	ID                 string       `json:"id"`
	CustomerID         string       `json:"customer_id"`
	CustomerName       string       `json:"customer_name,omitempty"`
	Device             string       `json:"device"`
	Issue              string       `json:"issue"`
	SerialNumber       string       `json:"serial_number,omitempty"`
	Status             RepairStatus `json:"status"`
	EstimatedCents     int64        `json:"estimated_cents"`
	ServiceChargeCents *int64       `json:"service_charge_cents,omitempty"`
	PartsCostCents     *int64       `json:"parts_cost_cents,omitempty"`
	FinalCostCents     *int64       `json:"final_cost_cents,omitempty"`
	Technician         string       `json:"technician,omitempty"`
	ReceivedAt         time.Time    `json:"received_at"`
	EstimatedDone      *time.Time   `json:"estimated_done,omitempty"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
	Notes              string       `json:"notes,omitempty"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Parts              []RepairPart `json:"parts,omitempty"`
}

type RepairPart struct {
	ID             string `json:"id"`
	RepairID       string `json:"repair_id"`
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
	ProductName    string `json:"product_name,omitempty"`
}

// RepairPartRequest is one part line on a create or edit. An empty ID
// means a new line; a known ID updates that line in place.
type RepairPartRequest struct {
	ID             string `json:"id,omitempty"`
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type RepairJobCreateRequest struct {
	CustomerID     string              `json:"customer_id"`
	Device         string              `json:"device"`
	Issue          string              `json:"issue"`
	SerialNumber   string              `json:"serial_number"`
	EstimatedCents int64               `json:"estimated_cents"`
	Technician     string              `json:"technician"`
	EstimatedDone  string              `json:"estimated_done,omitempty"`
	Notes          string              `json:"notes"`
	Parts          []RepairPartRequest `json:"parts"`
}

type RepairJobUpdateRequest struct {
	Device         *string             `json:"device,omitempty"`
	Issue          *string             `json:"issue,omitempty"`
	SerialNumber   *string             `json:"serial_number,omitempty"`
	EstimatedCents *int64              `json:"estimated_cents,omitempty"`
	Technician     *string             `json:"technician,omitempty"`
	EstimatedDone  *string             `json:"estimated_done,omitempty"`
	Notes          *string             `json:"notes,omitempty"`
	Parts          []RepairPartRequest `json:"parts"`
}

// RepairCompletionRequest folds the completion status change, the service
// charge, and the final notes into one atomic operation.
type RepairCompletionRequest struct {
	ServiceChargeCents int64  `json:"service_charge_cents"`
	Notes              string `json:"notes,omitempty"`
}

type Expense struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	SpentOn     time.Time `json:"spent_on"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	SpentOn     string `json:"spent_on"`
}

type Actor struct {
	Username string
	Role     string
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// StaffAccount is an internal persistence model for login credentials.
// Passwords arrive already hashed; this core never hashes or verifies.
type StaffAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// SaleFact is one sold line joined with its sale header and product,
// the raw input for the analytics aggregations.
type SaleFact struct {
	SaleID         string
	CreatedAt      time.Time
	PaymentMethod  string
	ProductID      string
	ProductName    string
	Category       string
	Qty            int
	LineTotalCents int64
	UnitCostCents  int64
}
