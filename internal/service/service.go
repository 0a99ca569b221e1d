package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"tokoservis/backend/internal/analytics"
	"tokoservis/backend/internal/domain"
	"tokoservis/backend/internal/store"
	"tokoservis/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo              store.Repository
	reports           *analytics.Engine
	assemblyThreshold int
	nonSellingDays    int
}

func New(repo store.Repository, reports *analytics.Engine, assemblyThreshold, nonSellingDays int) *Service {
	if assemblyThreshold < 0 {
		assemblyThreshold = 5
	}
	if nonSellingDays < 1 {
		nonSellingDays = 30
	}
	return &Service{
		repo:              repo,
		reports:           reports,
		assemblyThreshold: assemblyThreshold,
		nonSellingDays:    nonSellingDays,
	}
}

func (s *Service) requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("actor required")
	}
	return actor, nil
}

func (s *Service) requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, fmt.Errorf("admin role required")
	}
	return actor, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.PriceCents < 1 || req.CostCents < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.MaxDiscountPercent < 0 || req.MaxDiscountPercent > 100 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.StoreQty < 0 || req.WarehouseQty < 0 || req.MinStockLevel < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:               req.Name,
		Description:        strings.TrimSpace(req.Description),
		Category:           req.Category,
		CostCents:          req.CostCents,
		PriceCents:         req.PriceCents,
		MaxDiscountPercent: req.MaxDiscountPercent,
		StoreQty:           req.StoreQty,
		WarehouseQty:       req.WarehouseQty,
		MinStockLevel:      req.MinStockLevel,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d", created.Name, created.PriceCents))
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}

	updated := existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*req.Category))
		if category == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.Category = category
	}
	if req.CostCents != nil {
		if *req.CostCents < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.CostCents = *req.CostCents
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.MaxDiscountPercent != nil {
		if *req.MaxDiscountPercent < 0 || *req.MaxDiscountPercent > 100 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.MaxDiscountPercent = *req.MaxDiscountPercent
	}
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			return domain.Product{}, store.ErrInvalidInput
		}
		updated.MinStockLevel = *req.MinStockLevel
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,price=%d", saved.Active, saved.PriceCents))
	return saved, nil
}

func (s *Service) UpdateQuantities(ctx context.Context, productID string, storeQty, warehouseQty int) (domain.Product, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if storeQty < 0 || warehouseQty < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	saved, err := s.repo.UpdateQuantities(ctx, strings.TrimSpace(productID), storeQty, warehouseQty)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "stock_update", "product", saved.ID, fmt.Sprintf("store=%d,warehouse=%d", storeQty, warehouseQty))
	return saved, nil
}

func (s *Service) MoveToStore(ctx context.Context, productID string, qty int) ([]domain.ProductItem, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}

	items, err := s.repo.MoveToStore(ctx, strings.TrimSpace(productID), qty)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "stock_move", "product", productID, fmt.Sprintf("qty=%d", qty))
	return items, nil
}

func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) CriticalStock(ctx context.Context) ([]domain.Product, error) {
	return s.repo.CriticalStock(ctx)
}

func (s *Service) NeedingAssembly(ctx context.Context) ([]domain.Product, error) {
	return s.repo.NeedingAssembly(ctx, s.assemblyThreshold)
}

func (s *Service) NonSelling(ctx context.Context, limit int) ([]domain.Product, error) {
	since := time.Now().UTC().AddDate(0, 0, -s.nonSellingDays)
	return s.repo.NonSelling(ctx, since, limit)
}

func (s *Service) GetProductItem(ctx context.Context, code string) (domain.ProductItem, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ProductItem{}, store.ErrInvalidInput
	}
	return s.repo.GetProductItem(ctx, code)
}

func (s *Service) ListProductItems(ctx context.Context, productID string) ([]domain.ProductItem, error) {
	return s.repo.ListProductItems(ctx, strings.TrimSpace(productID))
}

// CreateSale recomputes every line total and the header totals from the
// request and rejects the sale when the caller's figures disagree. Stock
// checks and the actual decrement happen inside the repository
// transaction.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, err := s.requireActor(ctx)
	if err != nil {
		return domain.Sale{}, err
	}
	if len(req.Items) == 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}
	if req.TaxCents < 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	subtotal := int64(0)
	lineTotalSum := int64(0)
	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, line := range req.Items {
		if line.Qty < 1 || line.UnitPriceCents < 0 {
			return domain.Sale{}, store.ErrInvalidInput
		}
		// The product is read outside the sale transaction: the store
		// rechecks stock under lock, the discount cap and price are as of
		// this read.
		product, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			return domain.Sale{}, err
		}
		if !product.Active {
			return domain.Sale{}, store.ErrInvalidInput
		}
		if line.DiscountPercent < 0 || line.DiscountPercent > product.MaxDiscountPercent {
			return domain.Sale{}, fmt.Errorf("%w: discount %.1f%% exceeds limit for %s",
				store.ErrInvalidInput, line.DiscountPercent, product.Name)
		}

		lineTotal := lineTotalCents(line.UnitPriceCents, line.Qty, line.DiscountPercent)
		if line.LineTotalCents != lineTotal {
			return domain.Sale{}, fmt.Errorf("%w: line total mismatch for %s", store.ErrInvalidInput, product.Name)
		}
		subtotal += line.UnitPriceCents * int64(line.Qty)
		lineTotalSum += lineTotal

		items = append(items, domain.SaleItem{
			ProductID:       line.ProductID,
			ProductItemCode: strings.TrimSpace(line.ProductItemCode),
			Qty:             line.Qty,
			UnitPriceCents:  line.UnitPriceCents,
			DiscountPercent: line.DiscountPercent,
			LineTotalCents:  lineTotal,
		})
	}

	discount := subtotal - lineTotalSum
	total := subtotal - discount + req.TaxCents
	if req.SubtotalCents != subtotal || req.DiscountCents != discount || req.TotalCents != total {
		return domain.Sale{}, fmt.Errorf("%w: sale totals mismatch", store.ErrInvalidInput)
	}

	sale := domain.Sale{
		CustomerID:    strings.TrimSpace(req.CustomerID),
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TaxCents:      req.TaxCents,
		TotalCents:    total,
		PaymentMethod: strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
		CreatedBy:     actor.Username,
		Items:         items,
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	s.logAudit(ctx, "sale_create", "sale", created.ID, fmt.Sprintf("invoice=%s,total=%d", created.InvoiceNumber, created.TotalCents))
	return created, nil
}

func lineTotalCents(unitPrice int64, qty int, discountPercent float64) int64 {
	gross := float64(unitPrice) * float64(qty)
	return int64(math.Round(gross * (1 - discountPercent/100)))
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Sale{}, store.ErrInvalidInput
	}
	return s.repo.GetSale(ctx, id)
}

func (s *Service) RecentSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	return s.repo.RecentSales(ctx, limit)
}

func (s *Service) SaleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	return s.repo.SaleItems(ctx, strings.TrimSpace(saleID))
}

func (s *Service) CreateRepairJob(ctx context.Context, req domain.RepairJobCreateRequest) (domain.RepairJob, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.RepairJob{}, err
	}

	req.Device = strings.TrimSpace(req.Device)
	req.Issue = strings.TrimSpace(req.Issue)
	if req.CustomerID == "" || req.Device == "" || req.Issue == "" {
		return domain.RepairJob{}, store.ErrInvalidInput
	}
	if req.EstimatedCents < 0 {
		return domain.RepairJob{}, store.ErrInvalidInput
	}

	job := domain.RepairJob{
		CustomerID:     strings.TrimSpace(req.CustomerID),
		Device:         req.Device,
		Issue:          req.Issue,
		SerialNumber:   strings.TrimSpace(req.SerialNumber),
		Status:         domain.StatusPending,
		EstimatedCents: req.EstimatedCents,
		Technician:     strings.TrimSpace(req.Technician),
		Notes:          strings.TrimSpace(req.Notes),
	}
	if req.EstimatedDone != "" {
		done, err := time.Parse("2006-01-02", req.EstimatedDone)
		if err != nil {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
		job.EstimatedDone = &done
	}

	parts, err := buildParts(req.Parts)
	if err != nil {
		return domain.RepairJob{}, err
	}

	created, err := s.repo.CreateRepairJob(ctx, job, parts)
	if err != nil {
		return domain.RepairJob{}, err
	}

	s.logAudit(ctx, "repair_create", "repair", created.ID, fmt.Sprintf("device=%s,parts=%d", created.Device, len(parts)))
	return created, nil
}

func buildParts(reqs []domain.RepairPartRequest) ([]domain.RepairPart, error) {
	parts := make([]domain.RepairPart, 0, len(reqs))
	for _, line := range reqs {
		if line.ProductID == "" || line.Qty < 1 || line.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
		parts = append(parts, domain.RepairPart{
			ID:             strings.TrimSpace(line.ID),
			ProductID:      strings.TrimSpace(line.ProductID),
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: int64(line.Qty) * line.UnitPriceCents,
		})
	}
	return parts, nil
}

func (s *Service) UpdateRepairJob(ctx context.Context, id string, req domain.RepairJobUpdateRequest) (domain.RepairJob, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.RepairJob{}, err
	}

	existing, err := s.repo.GetRepairJob(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.RepairJob{}, err
	}

	updated := existing
	if req.Device != nil {
		device := strings.TrimSpace(*req.Device)
		if device == "" {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
		updated.Device = device
	}
	if req.Issue != nil {
		issue := strings.TrimSpace(*req.Issue)
		if issue == "" {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
		updated.Issue = issue
	}
	if req.SerialNumber != nil {
		updated.SerialNumber = strings.TrimSpace(*req.SerialNumber)
	}
	if req.EstimatedCents != nil {
		if *req.EstimatedCents < 0 {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
		updated.EstimatedCents = *req.EstimatedCents
	}
	if req.Technician != nil {
		updated.Technician = strings.TrimSpace(*req.Technician)
	}
	if req.EstimatedDone != nil {
		if *req.EstimatedDone == "" {
			updated.EstimatedDone = nil
		} else {
			done, err := time.Parse("2006-01-02", *req.EstimatedDone)
			if err != nil {
				return domain.RepairJob{}, store.ErrInvalidInput
			}
			updated.EstimatedDone = &done
		}
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}

	// A nil part list keeps the stored lines untouched.
	parts := existingPartsAsRequests(existing.Parts)
	if req.Parts != nil {
		parts = req.Parts
	}
	built, err := buildParts(parts)
	if err != nil {
		return domain.RepairJob{}, err
	}

	saved, err := s.repo.UpdateRepairJob(ctx, updated, built)
	if err != nil {
		return domain.RepairJob{}, err
	}

	s.logAudit(ctx, "repair_update", "repair", saved.ID, fmt.Sprintf("parts=%d", len(built)))
	return saved, nil
}

func existingPartsAsRequests(parts []domain.RepairPart) []domain.RepairPartRequest {
	reqs := make([]domain.RepairPartRequest, 0, len(parts))
	for _, part := range parts {
		reqs = append(reqs, domain.RepairPartRequest{
			ID:             part.ID,
			ProductID:      part.ProductID,
			Qty:            part.Qty,
			UnitPriceCents: part.UnitPriceCents,
		})
	}
	return reqs
}

// UpdateRepairStatus moves a job to a non-completion status. Completion
// goes through CompleteRepair so the service charge always arrives with
// it.
func (s *Service) UpdateRepairStatus(ctx context.Context, id string, status domain.RepairStatus) (domain.RepairJob, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.RepairJob{}, err
	}
	if !status.Valid() {
		return domain.RepairJob{}, store.ErrInvalidInput
	}

	saved, err := s.repo.UpdateRepairStatus(ctx, strings.TrimSpace(id), status, nil, nil, time.Now().UTC())
	if err != nil {
		return domain.RepairJob{}, err
	}

	s.logAudit(ctx, "repair_status", "repair", saved.ID, string(status))
	return saved, nil
}

// CompleteRepair folds the completion status change, the cost freeze, and
// the final notes into one repository transaction. The frozen final cost
// is the service charge plus the part line totals at this moment; later
// part edits do not recompute it.
func (s *Service) CompleteRepair(ctx context.Context, id string, req domain.RepairCompletionRequest) (domain.RepairJob, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.RepairJob{}, err
	}
	if req.ServiceChargeCents < 0 {
		return domain.RepairJob{}, store.ErrInvalidInput
	}

	charge := req.ServiceChargeCents
	var notes *string
	if trimmed := strings.TrimSpace(req.Notes); trimmed != "" {
		notes = &trimmed
	}

	saved, err := s.repo.UpdateRepairStatus(ctx, strings.TrimSpace(id), domain.StatusCompleted, &charge, notes, time.Now().UTC())
	if err != nil {
		return domain.RepairJob{}, err
	}

	s.logAudit(ctx, "repair_complete", "repair", saved.ID, fmt.Sprintf("final=%d", derefInt64(saved.FinalCostCents)))
	return saved, nil
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func (s *Service) GetRepairJob(ctx context.Context, id string) (domain.RepairJob, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.RepairJob{}, store.ErrInvalidInput
	}
	return s.repo.GetRepairJob(ctx, id)
}

func (s *Service) ListRepairJobs(ctx context.Context) ([]domain.RepairJob, error) {
	return s.repo.ListRepairJobs(ctx)
}

func (s *Service) RepairJobsByStatus(ctx context.Context, status domain.RepairStatus) ([]domain.RepairJob, error) {
	if !status.Valid() {
		return nil, store.ErrInvalidInput
	}
	return s.repo.RepairJobsByStatus(ctx, status)
}

// PendingRepairJobs returns the open queue: jobs still pending or being
// worked on.
func (s *Service) PendingRepairJobs(ctx context.Context) ([]domain.RepairJob, error) {
	return s.repo.RepairJobsByStatus(ctx, domain.StatusPending, domain.StatusInProgress)
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.Customer{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		Name:    req.Name,
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
		Address: strings.TrimSpace(req.Address),
		TaxID:   strings.TrimSpace(req.TaxID),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, "customer_create", "customer", created.ID, created.Name)
	return created, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) RecordExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	actor, err := s.requireAdmin(ctx)
	if err != nil {
		return domain.Expense{}, err
	}

	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.Category == "" || req.AmountCents < 1 {
		return domain.Expense{}, store.ErrInvalidInput
	}

	expense := domain.Expense{
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		AmountCents: req.AmountCents,
		CreatedBy:   actor.Username,
	}
	if req.SpentOn != "" {
		spentOn, err := time.Parse("2006-01-02", req.SpentOn)
		if err != nil {
			return domain.Expense{}, store.ErrInvalidInput
		}
		expense.SpentOn = spentOn
	}

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return domain.Expense{}, err
	}

	s.logAudit(ctx, "expense_create", "expense", created.ID, fmt.Sprintf("category=%s,amount=%d", created.Category, created.AmountCents))
	return created, nil
}

func (s *Service) ListExpenses(ctx context.Context, from, to time.Time) ([]domain.Expense, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ExpensesInRange(ctx, from, to)
}

func (s *Service) CreateStaffAccount(ctx context.Context, account domain.StaffAccount) (domain.StaffAccount, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.StaffAccount{}, err
	}
	if account.Role != domain.RoleAdmin && account.Role != domain.RoleStaff && account.Role != "" {
		return domain.StaffAccount{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateStaffAccount(ctx, account)
	if err != nil {
		return domain.StaffAccount{}, err
	}

	s.logAudit(ctx, "staff_create", "staff", created.Username, created.Role)
	return created, nil
}

func (s *Service) ListStaffAccounts(ctx context.Context) ([]domain.StaffAccount, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListStaffAccounts(ctx)
}

func (s *Service) UpdateStaffPassword(ctx context.Context, username, hashed string) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.UpdateStaffPassword(ctx, username, hashed); err != nil {
		return err
	}
	s.logAudit(ctx, "staff_password", "staff", username, "")
	return nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

func (s *Service) SalesByPeriod(ctx context.Context, granularity string, from, to time.Time) ([]domain.PeriodSales, error) {
	return s.reports.SalesByPeriod(ctx, granularity, from, to)
}

func (s *Service) TopSellingProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.TopProduct, error) {
	return s.reports.TopSellingProducts(ctx, from, to, limit)
}

func (s *Service) SalesByPaymentMethod(ctx context.Context, from, to time.Time) ([]domain.PaymentMethodSales, error) {
	return s.reports.SalesByPaymentMethod(ctx, from, to)
}

func (s *Service) SalesByCategory(ctx context.Context, from, to time.Time) ([]domain.CategorySales, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.reports.SalesByCategory(ctx, from, to)
}

func (s *Service) ExpensesByCategory(ctx context.Context, from, to time.Time) ([]domain.ExpenseCategorySummary, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.reports.ExpensesByCategory(ctx, from, to)
}

func (s *Service) InventoryValueByCategory(ctx context.Context) ([]domain.InventoryCategoryValue, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.reports.InventoryValueByCategory(ctx)
}

func (s *Service) ProfitAnalysis(ctx context.Context, from, to time.Time) (domain.ProfitReport, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return domain.ProfitReport{}, err
	}
	return s.reports.ProfitAnalysis(ctx, from, to)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}
