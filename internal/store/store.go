package store

import (
	"context"
	"errors"
	"time"

	"tokoservis/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
)

// Repository is the persistence boundary. Postgres backs production,
// the memory implementation backs tests and local runs.
type Repository interface {
	// Catalog and stock.
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	// UpdateQuantities overwrites the two stock pools. Negative values
	// fail with ErrInvalidInput.
	UpdateQuantities(ctx context.Context, productID string, storeQty, warehouseQty int) (domain.Product, error)
	LowStock(ctx context.Context) ([]domain.Product, error)
	CriticalStock(ctx context.Context) ([]domain.Product, error)
	NeedingAssembly(ctx context.Context, threshold int) ([]domain.Product, error)
	NonSelling(ctx context.Context, since time.Time, limit int) ([]domain.Product, error)

	// Serialized units.
	MoveToStore(ctx context.Context, productID string, qty int) ([]domain.ProductItem, error)
	GetProductItem(ctx context.Context, code string) (domain.ProductItem, error)
	ListProductItems(ctx context.Context, productID string) ([]domain.ProductItem, error)

	// Sales.
	NextInvoiceNumber(ctx context.Context, date time.Time) (string, error)
	CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error)
	GetSale(ctx context.Context, id string) (domain.Sale, error)
	RecentSales(ctx context.Context, limit int) ([]domain.Sale, error)
	SaleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error)

	// Repairs.
	CreateRepairJob(ctx context.Context, job domain.RepairJob, parts []domain.RepairPart) (domain.RepairJob, error)
	GetRepairJob(ctx context.Context, id string) (domain.RepairJob, error)
	ListRepairJobs(ctx context.Context) ([]domain.RepairJob, error)
	RepairJobsByStatus(ctx context.Context, statuses ...domain.RepairStatus) ([]domain.RepairJob, error)
	UpdateRepairJob(ctx context.Context, job domain.RepairJob, parts []domain.RepairPart) (domain.RepairJob, error)
	// UpdateRepairStatus persists a status change. When the new status is
	// completed it also freezes the costs and stamps completed_at, all in
	// one transaction.
	UpdateRepairStatus(ctx context.Context, id string, status domain.RepairStatus, serviceCharge *int64, notes *string, at time.Time) (domain.RepairJob, error)
	RepairParts(ctx context.Context, repairID string) ([]domain.RepairPart, error)

	// Customers.
	CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)

	// Expenses.
	CreateExpense(ctx context.Context, e domain.Expense) (domain.Expense, error)
	ExpensesInRange(ctx context.Context, from, to time.Time) ([]domain.Expense, error)

	// Analytics inputs.
	SalesInRange(ctx context.Context, from, to time.Time) ([]domain.Sale, error)
	SaleFactsInRange(ctx context.Context, from, to time.Time) ([]domain.SaleFact, error)

	// Staff accounts. Passwords are stored as received.
	CreateStaffAccount(ctx context.Context, a domain.StaffAccount) (domain.StaffAccount, error)
	ListStaffAccounts(ctx context.Context) ([]domain.StaffAccount, error)
	UpdateStaffPassword(ctx context.Context, username, hashed string) error

	// Audit trail.
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
}
