package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokoservis/backend/internal/domain"
	"tokoservis/backend/internal/store"
	"tokoservis/backend/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	products         map[string]domain.Product
	itemsByCode      map[string]domain.ProductItem
	itemSeqByProduct map[string]int
	customersByID    map[string]domain.Customer
	salesByID        map[string]*domain.Sale
	saleItemSeq      int64
	repairsByID      map[string]domain.RepairJob
	partsByRepair    map[string][]domain.RepairPart
	expensesByID     map[string]domain.Expense
	invoiceSeqByDay  map[string]int
	staffByUsername  map[string]domain.StaffAccount
	auditLogs        []domain.AuditLog
}

// seedStaff builds the initial in-memory staff accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. These accounts
// never reach production (postgres is used when DATABASE_URL is set).
func seedStaff() map[string]domain.StaffAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	accounts := map[string]domain.StaffAccount{}
	for _, a := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"kasir", staffPwd, domain.RoleStaff},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", a.username, err)
		}
		accounts[a.username] = domain.StaffAccount{
			Username:  a.username,
			Password:  string(hash),
			Role:      a.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return accounts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "prod-lcd-a52", Name: "LCD Samsung A52", Category: "sparepart", CostCents: 32000000, PriceCents: 45000000, MaxDiscountPercent: 5, StoreQty: 4, WarehouseQty: 10, MinStockLevel: 3},
		{ID: "prod-bat-ip11", Name: "Baterai iPhone 11", Category: "sparepart", CostCents: 18000000, PriceCents: 27500000, MaxDiscountPercent: 5, StoreQty: 6, WarehouseQty: 12, MinStockLevel: 4},
		{ID: "prod-cas-typec", Name: "Charger Type-C 25W", Category: "accessory", CostCents: 4500000, PriceCents: 9000000, MaxDiscountPercent: 10, StoreQty: 10, WarehouseQty: 30, MinStockLevel: 5},
		{ID: "prod-tg-uni", Name: "Tempered Glass Universal", Category: "accessory", CostCents: 500000, PriceCents: 2000000, MaxDiscountPercent: 20, StoreQty: 25, WarehouseQty: 60, MinStockLevel: 10},
		{ID: "prod-case-a52", Name: "Softcase Samsung A52", Category: "accessory", CostCents: 1200000, PriceCents: 3500000, MaxDiscountPercent: 15, StoreQty: 8, WarehouseQty: 20, MinStockLevel: 5},
		{ID: "prod-flex-ip11", Name: "Flexible Charger iPhone 11", Category: "sparepart", CostCents: 6000000, PriceCents: 11000000, MaxDiscountPercent: 5, StoreQty: 2, WarehouseQty: 3, MinStockLevel: 3},
		{ID: "prod-spk-uni", Name: "Speaker Universal", Category: "sparepart", CostCents: 2500000, PriceCents: 5500000, MaxDiscountPercent: 10, StoreQty: 5, WarehouseQty: 0, MinStockLevel: 3},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.Active = true
		p.CreatedAt = now
		p.UpdatedAt = now
		productMap[p.ID] = p
	}

	customers := []domain.Customer{
		{ID: "cust-walkin", Name: "Pelanggan Umum", CreatedAt: now},
		{ID: "cust-budi", Name: "Budi Santoso", Phone: "081234567890", CreatedAt: now},
	}
	customerMap := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		customerMap[c.ID] = c
	}

	return &Store{
		products:         productMap,
		itemsByCode:      make(map[string]domain.ProductItem),
		itemSeqByProduct: make(map[string]int),
		customersByID:    customerMap,
		salesByID:        make(map[string]*domain.Sale),
		repairsByID:      make(map[string]domain.RepairJob),
		partsByRepair:    make(map[string][]domain.RepairPart),
		expensesByID:     make(map[string]domain.Expense),
		invoiceSeqByDay:  make(map[string]int),
		staffByUsername:  seedStaff(),
		auditLogs:        make([]domain.AuditLog, 0, 128),
	}
}

func (s *Store) CreateProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Name == "" || p.Category == "" || p.PriceCents < 1 || p.CostCents < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.StoreQty < 0 || p.WarehouseQty < 0 || p.MinStockLevel < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.ID == "" {
		p.ID = xid.New("prod")
	}
	if _, exists := s.products[p.ID]; exists {
		return domain.Product{}, store.ErrConflict
	}
	now := time.Now().UTC()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return domain.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) UpdateProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[p.ID]
	if !exists {
		return domain.Product{}, store.ErrNotFound
	}
	if p.Name == "" || p.Category == "" || p.PriceCents < 1 || p.CostCents < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	p.StoreQty = existing.StoreQty
	p.WarehouseQty = existing.WarehouseQty
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) UpdateQuantities(_ context.Context, productID string, storeQty, warehouseQty int) (domain.Product, error) {
	if storeQty < 0 || warehouseQty < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[productID]
	if !exists {
		return domain.Product{}, store.ErrNotFound
	}
	p.StoreQty = storeQty
	p.WarehouseQty = warehouseQty
	p.UpdatedAt = time.Now().UTC()
	s.products[productID] = p
	return p, nil
}

func (s *Store) LowStock(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, 16)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if p.StoreQty < p.MinStockLevel || p.WarehouseQty < p.MinStockLevel {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		return (a.StoreQty + a.WarehouseQty) - (b.StoreQty + b.WarehouseQty)
	})
	return result, nil
}

func (s *Store) CriticalStock(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, 8)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if p.StoreQty <= 2 && p.WarehouseQty <= 3 {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		return (a.StoreQty + a.WarehouseQty) - (b.StoreQty + b.WarehouseQty)
	})
	return result, nil
}

func (s *Store) NeedingAssembly(_ context.Context, threshold int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, 8)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if p.StoreQty < threshold && p.WarehouseQty > 0 {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		return a.StoreQty - b.StoreQty
	})
	return result, nil
}

func (s *Store) NonSelling(_ context.Context, since time.Time, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	soldRecently := make(map[string]struct{})
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(since) {
			continue
		}
		for _, item := range sale.Items {
			soldRecently[item.ProductID] = struct{}{}
		}
	}

	result := make([]domain.Product, 0, 16)
	for _, p := range s.products {
		if !p.Active || p.StoreQty < 1 {
			continue
		}
		if _, sold := soldRecently[p.ID]; sold {
			continue
		}
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b domain.Product) int {
		if a.UpdatedAt.Equal(b.UpdatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.UpdatedAt.Before(b.UpdatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) MoveToStore(_ context.Context, productID string, qty int) ([]domain.ProductItem, error) {
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if p.WarehouseQty < qty {
		return nil, store.ErrInsufficientStock
	}

	now := time.Now().UTC()
	created := make([]domain.ProductItem, 0, qty)
	for i := 0; i < qty; i++ {
		s.itemSeqByProduct[productID]++
		item := domain.ProductItem{
			Code:      xid.ItemCode(productID, s.itemSeqByProduct[productID]),
			ProductID: productID,
			Status:    domain.ItemStatusInStore,
			CreatedAt: now,
		}
		s.itemsByCode[item.Code] = item
		created = append(created, item)
	}

	p.WarehouseQty -= qty
	p.StoreQty += qty
	p.UpdatedAt = now
	s.products[productID] = p
	return created, nil
}

func (s *Store) GetProductItem(_ context.Context, code string) (domain.ProductItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.itemsByCode[code]
	if !exists {
		return domain.ProductItem{}, store.ErrNotFound
	}
	return item, nil
}

func (s *Store) ListProductItems(_ context.Context, productID string) ([]domain.ProductItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.ProductItem, 0, 16)
	for _, item := range s.itemsByCode {
		if item.ProductID != productID {
			continue
		}
		result = append(result, item)
	}
	slices.SortFunc(result, func(a, b domain.ProductItem) int {
		return cmpString(a.Code, b.Code)
	})
	return result, nil
}

func (s *Store) NextInvoiceNumber(_ context.Context, date time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nextInvoiceLocked(date), nil
}

// nextInvoiceLocked assumes the write lock is held.
func (s *Store) nextInvoiceLocked(date time.Time) string {
	day := date.UTC().Format("20060102")
	s.invoiceSeqByDay[day]++
	return fmt.Sprintf("INV-%s-%04d", day, s.invoiceSeqByDay[day])
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}
	if sale.CustomerID != "" {
		if _, exists := s.customersByID[sale.CustomerID]; !exists {
			return domain.Sale{}, store.ErrNotFound
		}
	}

	// Validate everything before touching stock so a failure leaves no
	// partial effects.
	neededByProduct := make(map[string]int, len(sale.Items))
	seenCodes := make(map[string]struct{}, len(sale.Items))
	for _, item := range sale.Items {
		if item.Qty < 1 {
			return domain.Sale{}, store.ErrInvalidInput
		}
		p, exists := s.products[item.ProductID]
		if !exists || !p.Active {
			return domain.Sale{}, store.ErrInvalidInput
		}
		neededByProduct[item.ProductID] += item.Qty
		if item.ProductItemCode != "" {
			// A serialized unit sells exactly once, even within one sale.
			if _, dup := seenCodes[item.ProductItemCode]; dup {
				return domain.Sale{}, store.ErrConflict
			}
			seenCodes[item.ProductItemCode] = struct{}{}
			unit, exists := s.itemsByCode[item.ProductItemCode]
			if !exists || unit.ProductID != item.ProductID {
				return domain.Sale{}, store.ErrInvalidInput
			}
			if unit.Status != domain.ItemStatusInStore {
				return domain.Sale{}, store.ErrConflict
			}
		}
	}
	for productID, needed := range neededByProduct {
		if s.products[productID].StoreQty < needed {
			return domain.Sale{}, store.ErrInsufficientStock
		}
	}

	now := time.Now().UTC()
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	if sale.InvoiceNumber == "" {
		sale.InvoiceNumber = s.nextInvoiceLocked(sale.CreatedAt)
	}

	for i := range sale.Items {
		s.saleItemSeq++
		sale.Items[i].ID = s.saleItemSeq
		sale.Items[i].SaleID = sale.ID
		if p, ok := s.products[sale.Items[i].ProductID]; ok {
			sale.Items[i].ProductName = p.Name
			sale.Items[i].Category = p.Category
		}
		if code := sale.Items[i].ProductItemCode; code != "" {
			unit := s.itemsByCode[code]
			unit.Status = domain.ItemStatusSold
			soldAt := sale.CreatedAt
			unit.SoldAt = &soldAt
			s.itemsByCode[code] = unit
		}
	}
	for productID, needed := range neededByProduct {
		p := s.products[productID]
		p.StoreQty -= needed
		p.UpdatedAt = now
		s.products[productID] = p
	}

	saved := cloneSale(&sale)
	s.salesByID[sale.ID] = saved
	return *cloneSale(saved), nil
}

func (s *Store) GetSale(_ context.Context, id string) (domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return domain.Sale{}, store.ErrNotFound
	}
	result := *cloneSale(sale)
	if result.CustomerID != "" {
		if c, ok := s.customersByID[result.CustomerID]; ok {
			result.CustomerName = c.Name
		}
	}
	return result, nil
}

func (s *Store) RecentSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		result = append(result, *cloneSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.InvoiceNumber, a.InvoiceNumber)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) SaleItems(_ context.Context, saleID string) ([]domain.SaleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	items := make([]domain.SaleItem, len(sale.Items))
	copy(items, sale.Items)
	return items, nil
}

func (s *Store) CreateRepairJob(_ context.Context, job domain.RepairJob, parts []domain.RepairPart) (domain.RepairJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.CustomerID == "" || job.Device == "" || job.Issue == "" {
		return domain.RepairJob{}, store.ErrInvalidInput
	}
	if _, exists := s.customersByID[job.CustomerID]; !exists {
		return domain.RepairJob{}, store.ErrNotFound
	}
	for _, part := range parts {
		if part.Qty < 1 || part.UnitPriceCents < 0 {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
		if _, exists := s.products[part.ProductID]; !exists {
			return domain.RepairJob{}, store.ErrNotFound
		}
	}

	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = xid.New("rep")
	}
	if job.Status == "" {
		job.Status = domain.StatusPending
	}
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = now
	}
	job.UpdatedAt = now

	saved := make([]domain.RepairPart, 0, len(parts))
	for _, part := range parts {
		if part.ID == "" {
			part.ID = xid.New("rp")
		}
		part.RepairID = job.ID
		part.LineTotalCents = int64(part.Qty) * part.UnitPriceCents
		saved = append(saved, part)
	}

	s.repairsByID[job.ID] = job
	s.partsByRepair[job.ID] = saved
	return s.joinRepairLocked(job), nil
}

func (s *Store) GetRepairJob(_ context.Context, id string) (domain.RepairJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.repairsByID[id]
	if !exists {
		return domain.RepairJob{}, store.ErrNotFound
	}
	return s.joinRepairLocked(job), nil
}

func (s *Store) ListRepairJobs(_ context.Context) ([]domain.RepairJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listRepairsLocked(nil), nil
}

func (s *Store) RepairJobsByStatus(_ context.Context, statuses ...domain.RepairStatus) ([]domain.RepairJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[domain.RepairStatus]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}
	return s.listRepairsLocked(wanted), nil
}

// listRepairsLocked assumes at least the read lock is held. A nil filter
// means all statuses.
func (s *Store) listRepairsLocked(wanted map[domain.RepairStatus]struct{}) []domain.RepairJob {
	result := make([]domain.RepairJob, 0, len(s.repairsByID))
	for _, job := range s.repairsByID {
		if wanted != nil {
			if _, ok := wanted[job.Status]; !ok {
				continue
			}
		}
		result = append(result, s.joinRepairLocked(job))
	}
	slices.SortFunc(result, func(a, b domain.RepairJob) int {
		if a.ReceivedAt.Equal(b.ReceivedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.ReceivedAt.After(b.ReceivedAt) {
			return -1
		}
		return 1
	})
	return result
}

func (s *Store) joinRepairLocked(job domain.RepairJob) domain.RepairJob {
	if c, ok := s.customersByID[job.CustomerID]; ok {
		job.CustomerName = c.Name
	}
	parts := s.partsByRepair[job.ID]
	joined := make([]domain.RepairPart, len(parts))
	copy(joined, parts)
	for i := range joined {
		if p, ok := s.products[joined[i].ProductID]; ok {
			joined[i].ProductName = p.Name
		}
	}
	job.Parts = joined
	return job
}

func (s *Store) UpdateRepairJob(_ context.Context, job domain.RepairJob, parts []domain.RepairPart) (domain.RepairJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.repairsByID[job.ID]
	if !exists {
		return domain.RepairJob{}, store.ErrNotFound
	}
	if job.Device == "" || job.Issue == "" {
		return domain.RepairJob{}, store.ErrInvalidInput
	}

	current := s.partsByRepair[job.ID]
	currentByID := make(map[string]domain.RepairPart, len(current))
	for _, part := range current {
		currentByID[part.ID] = part
	}

	// Diff against the desired set: known IDs update in place, empty IDs
	// insert, anything left over is deleted.
	next := make([]domain.RepairPart, 0, len(parts))
	for _, part := range parts {
		if part.Qty < 1 || part.UnitPriceCents < 0 {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
		if _, exists := s.products[part.ProductID]; !exists {
			return domain.RepairJob{}, store.ErrNotFound
		}
		if part.ID != "" {
			if _, known := currentByID[part.ID]; !known {
				return domain.RepairJob{}, store.ErrNotFound
			}
			delete(currentByID, part.ID)
		} else {
			part.ID = xid.New("rp")
		}
		part.RepairID = job.ID
		part.LineTotalCents = int64(part.Qty) * part.UnitPriceCents
		next = append(next, part)
	}

	// Cost fields and lifecycle state stay under the status operation.
	job.Status = existing.Status
	job.ServiceChargeCents = existing.ServiceChargeCents
	job.PartsCostCents = existing.PartsCostCents
	job.FinalCostCents = existing.FinalCostCents
	job.CompletedAt = existing.CompletedAt
	job.ReceivedAt = existing.ReceivedAt
	job.CustomerID = existing.CustomerID
	job.UpdatedAt = time.Now().UTC()

	s.repairsByID[job.ID] = job
	s.partsByRepair[job.ID] = next
	return s.joinRepairLocked(job), nil
}

func (s *Store) UpdateRepairStatus(_ context.Context, id string, status domain.RepairStatus, serviceCharge *int64, notes *string, at time.Time) (domain.RepairJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.repairsByID[id]
	if !exists {
		return domain.RepairJob{}, store.ErrNotFound
	}
	if !status.Valid() {
		return domain.RepairJob{}, store.ErrInvalidInput
	}
	if !job.Status.CanTransitionTo(status) {
		return domain.RepairJob{}, store.ErrConflict
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	if status == domain.StatusCompleted && job.Status != domain.StatusCompleted {
		if serviceCharge == nil || *serviceCharge < 0 {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
		partsCost := int64(0)
		for _, part := range s.partsByRepair[id] {
			partsCost += part.LineTotalCents
		}
		finalCost := *serviceCharge + partsCost
		charge := *serviceCharge
		job.ServiceChargeCents = &charge
		job.PartsCostCents = &partsCost
		job.FinalCostCents = &finalCost
		completedAt := at
		job.CompletedAt = &completedAt
	}
	if notes != nil {
		job.Notes = *notes
	}
	job.Status = status
	job.UpdatedAt = at
	s.repairsByID[id] = job
	return s.joinRepairLocked(job), nil
}

func (s *Store) RepairParts(_ context.Context, repairID string) ([]domain.RepairPart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.repairsByID[repairID]; !exists {
		return nil, store.ErrNotFound
	}
	parts := s.partsByRepair[repairID]
	result := make([]domain.RepairPart, len(parts))
	copy(result, parts)
	for i := range result {
		if p, ok := s.products[result[i].ProductID]; ok {
			result[i].ProductName = p.Name
		}
	}
	return result, nil
}

func (s *Store) CreateCustomer(_ context.Context, c domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(c.Name) == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	if c.ID == "" {
		c.ID = xid.New("cust")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.customersByID[c.ID] = c
	return c, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.customersByID[id]
	if !exists {
		return domain.Customer{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) CreateExpense(_ context.Context, e domain.Expense) (domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Category == "" || e.AmountCents < 1 {
		return domain.Expense{}, store.ErrInvalidInput
	}
	if e.ID == "" {
		e.ID = xid.New("exp")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.SpentOn.IsZero() {
		e.SpentOn = nowDateUTC(e.CreatedAt)
	}
	s.expensesByID[e.ID] = e
	return e, nil
}

func (s *Store) ExpensesInRange(_ context.Context, from, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Expense, 0, 32)
	for _, e := range s.expensesByID {
		if e.SpentOn.Before(from) || e.SpentOn.After(to) {
			continue
		}
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b domain.Expense) int {
		if a.SpentOn.Equal(b.SpentOn) {
			return cmpString(a.ID, b.ID)
		}
		if a.SpentOn.Before(b.SpentOn) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) SalesInRange(_ context.Context, from, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, 64)
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		result = append(result, *cloneSale(sale))
	}
	slices.SortFunc(result, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) SaleFactsInRange(_ context.Context, from, to time.Time) ([]domain.SaleFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts := make([]domain.SaleFact, 0, 128)
	for _, sale := range s.salesByID {
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		for _, item := range sale.Items {
			fact := domain.SaleFact{
				SaleID:         sale.ID,
				CreatedAt:      sale.CreatedAt,
				PaymentMethod:  sale.PaymentMethod,
				ProductID:      item.ProductID,
				Qty:            item.Qty,
				LineTotalCents: item.LineTotalCents,
			}
			if p, ok := s.products[item.ProductID]; ok {
				fact.ProductName = p.Name
				fact.Category = p.Category
				fact.UnitCostCents = p.CostCents
			}
			facts = append(facts, fact)
		}
	}
	slices.SortFunc(facts, func(a, b domain.SaleFact) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.SaleID, b.SaleID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return facts, nil
}

func (s *Store) CreateStaffAccount(_ context.Context, a domain.StaffAccount) (domain.StaffAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(a.Username))
	if username == "" || strings.TrimSpace(a.Password) == "" {
		return domain.StaffAccount{}, store.ErrInvalidInput
	}
	if _, exists := s.staffByUsername[username]; exists {
		return domain.StaffAccount{}, store.ErrConflict
	}
	a.Username = username
	if a.Role == "" {
		a.Role = domain.RoleStaff
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Active = true
	s.staffByUsername[username] = a
	return a, nil
}

func (s *Store) ListStaffAccounts(_ context.Context) ([]domain.StaffAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.StaffAccount, 0, len(s.staffByUsername))
	for _, a := range s.staffByUsername {
		accounts = append(accounts, a)
	}
	slices.SortFunc(accounts, func(a, b domain.StaffAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return accounts, nil
}

func (s *Store) UpdateStaffPassword(_ context.Context, username, hashed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(hashed) == "" {
		return store.ErrInvalidInput
	}
	a, exists := s.staffByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	a.Password = hashed
	s.staffByUsername[username] = a
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, len(s.auditLogs))
	copy(result, s.auditLogs)
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
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

func cloneSale(src *domain.Sale) *domain.Sale {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.SaleItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return &dup
}
