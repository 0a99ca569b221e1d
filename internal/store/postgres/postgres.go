package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokoservis/backend/internal/domain"
	"tokoservis/backend/internal/store"
	"tokoservis/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const productColumns = `id, name, description, category, cost_cents, price_cents,
	max_discount_percent, store_qty, warehouse_qty, min_stock_level, active, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	var description sql.NullString
	err := row.Scan(&p.ID, &p.Name, &description, &p.Category, &p.CostCents, &p.PriceCents,
		&p.MaxDiscountPercent, &p.StoreQty, &p.WarehouseQty, &p.MinStockLevel, &p.Active,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.Description = description.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.Name == "" || p.Category == "" || p.PriceCents < 1 || p.CostCents < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.StoreQty < 0 || p.WarehouseQty < 0 || p.MinStockLevel < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if p.ID == "" {
		p.ID = xid.New("prod")
	}

	p.Active = true
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, category, cost_cents, price_cents,
			max_discount_percent, store_qty, warehouse_qty, min_stock_level, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, p.ID, p.Name, nullIfEmpty(p.Description), p.Category, p.CostCents, p.PriceCents,
		p.MaxDiscountPercent, p.StoreQty, p.WarehouseQty, p.MinStockLevel, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, store.ErrConflict
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, store.ErrNotFound
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.Name == "" || p.Category == "" || p.PriceCents < 1 || p.CostCents < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, category = $4, cost_cents = $5, price_cents = $6,
			max_discount_percent = $7, min_stock_level = $8, active = $9, updated_at = now()
		WHERE id = $1
	`, p.ID, p.Name, nullIfEmpty(p.Description), p.Category, p.CostCents, p.PriceCents,
		p.MaxDiscountPercent, p.MinStockLevel, p.Active)
	if err != nil {
		return domain.Product{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Product{}, err
	}
	if affected == 0 {
		return domain.Product{}, store.ErrNotFound
	}
	return s.GetProduct(ctx, p.ID)
}

func (s *Store) UpdateQuantities(ctx context.Context, productID string, storeQty, warehouseQty int) (domain.Product, error) {
	if storeQty < 0 || warehouseQty < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET store_qty = $2, warehouse_qty = $3, updated_at = now()
		WHERE id = $1
	`, productID, storeQty, warehouseQty)
	if err != nil {
		return domain.Product{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Product{}, err
	}
	if affected == 0 {
		return domain.Product{}, store.ErrNotFound
	}
	return s.GetProduct(ctx, productID)
}

func (s *Store) LowStock(ctx context.Context) ([]domain.Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND (store_qty < min_stock_level OR warehouse_qty < min_stock_level)
		ORDER BY store_qty + warehouse_qty ASC, name
	`)
}

func (s *Store) CriticalStock(ctx context.Context) ([]domain.Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND store_qty <= 2 AND warehouse_qty <= 3
		ORDER BY store_qty + warehouse_qty ASC, name
	`)
}

func (s *Store) NeedingAssembly(ctx context.Context, threshold int) ([]domain.Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND store_qty < $1 AND warehouse_qty > 0
		ORDER BY store_qty ASC, name
	`, threshold)
}

func (s *Store) NonSelling(ctx context.Context, since time.Time, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = 50
	}
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products p
		WHERE p.active = true AND p.store_qty > 0
			AND NOT EXISTS (
				SELECT 1
				FROM sale_items si
				JOIN sales sl ON sl.id = si.sale_id
				WHERE si.product_id = p.id AND sl.created_at >= $1
			)
		ORDER BY p.updated_at ASC
		LIMIT $2
	`, since, limit)
}

func (s *Store) MoveToStore(ctx context.Context, productID string, qty int) ([]domain.ProductItem, error) {
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var warehouseQty, itemSeq int
	err = tx.QueryRowContext(ctx, `
		SELECT warehouse_qty, item_seq
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(&warehouseQty, &itemSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if warehouseQty < qty {
		return nil, store.ErrInsufficientStock
	}

	now := time.Now().UTC()
	created := make([]domain.ProductItem, 0, qty)
	for i := 1; i <= qty; i++ {
		item := domain.ProductItem{
			Code:      xid.ItemCode(productID, itemSeq+i),
			ProductID: productID,
			Status:    domain.ItemStatusInStore,
			CreatedAt: now,
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_items (code, product_id, status, created_at)
			VALUES ($1,$2,$3,$4)
		`, item.Code, item.ProductID, item.Status, item.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrConflict
			}
			return nil, err
		}
		created = append(created, item)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET warehouse_qty = warehouse_qty - $2, store_qty = store_qty + $2, item_seq = $3, updated_at = now()
		WHERE id = $1
	`, productID, qty, itemSeq+qty)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) GetProductItem(ctx context.Context, code string) (domain.ProductItem, error) {
	var item domain.ProductItem
	var soldAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT code, product_id, status, created_at, sold_at
		FROM product_items
		WHERE code = $1
	`, code).Scan(&item.Code, &item.ProductID, &item.Status, &item.CreatedAt, &soldAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductItem{}, store.ErrNotFound
		}
		return domain.ProductItem{}, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	if soldAt.Valid {
		t := soldAt.Time.UTC()
		item.SoldAt = &t
	}
	return item, nil
}

func (s *Store) ListProductItems(ctx context.Context, productID string) ([]domain.ProductItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, product_id, status, created_at, sold_at
		FROM product_items
		WHERE product_id = $1
		ORDER BY code
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ProductItem, 0, 32)
	for rows.Next() {
		var item domain.ProductItem
		var soldAt sql.NullTime
		if err := rows.Scan(&item.Code, &item.ProductID, &item.Status, &item.CreatedAt, &soldAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		if soldAt.Valid {
			t := soldAt.Time.UTC()
			item.SoldAt = &t
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) NextInvoiceNumber(ctx context.Context, date time.Time) (string, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	number, err := nextInvoiceNumberTx(ctx, tx, date)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return number, nil
}

// nextInvoiceNumberTx bumps the per-day counter atomically inside the
// caller's transaction and formats INV-YYYYMMDD-NNNN.
func nextInvoiceNumberTx(ctx context.Context, tx *sql.Tx, date time.Time) (string, error) {
	day := nowDateUTC(date)
	var seq int
	err := tx.QueryRowContext(ctx, `
		INSERT INTO invoice_counters (day, last_seq)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_seq = invoice_counters.last_seq + 1
		RETURNING last_seq
	`, day).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%s-%04d", day.Format("20060102"), seq), nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	if len(sale.Items) == 0 {
		return domain.Sale{}, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.Sale{}, err
	}
	defer func() { _ = tx.Rollback() }()

	productIDs := uniqueProductIDs(sale.Items)
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, category, store_qty
		FROM products
		WHERE active = true AND id = ANY($1)
		FOR UPDATE
	`, productIDs)
	if err != nil {
		return domain.Sale{}, err
	}
	type lockedProduct struct {
		name     string
		category string
		storeQty int
	}
	productMap := make(map[string]lockedProduct, len(productIDs))
	for rows.Next() {
		var id string
		var p lockedProduct
		if err := rows.Scan(&id, &p.name, &p.category, &p.storeQty); err != nil {
			_ = rows.Close()
			return domain.Sale{}, err
		}
		productMap[id] = p
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return domain.Sale{}, err
	}
	_ = rows.Close()

	neededByProduct := make(map[string]int, len(productIDs))
	seenCodes := make(map[string]struct{}, len(sale.Items))
	for i := range sale.Items {
		item := &sale.Items[i]
		if item.Qty < 1 {
			return domain.Sale{}, store.ErrInvalidInput
		}
		p, exists := productMap[item.ProductID]
		if !exists {
			return domain.Sale{}, store.ErrInvalidInput
		}
		item.ProductName = p.name
		item.Category = p.category
		neededByProduct[item.ProductID] += item.Qty

		if item.ProductItemCode != "" {
			// A serialized unit sells exactly once, even within one sale.
			if _, dup := seenCodes[item.ProductItemCode]; dup {
				return domain.Sale{}, store.ErrConflict
			}
			seenCodes[item.ProductItemCode] = struct{}{}
			var unitProductID, unitStatus string
			err := tx.QueryRowContext(ctx, `
				SELECT product_id, status
				FROM product_items
				WHERE code = $1
				FOR UPDATE
			`, item.ProductItemCode).Scan(&unitProductID, &unitStatus)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return domain.Sale{}, store.ErrInvalidInput
				}
				return domain.Sale{}, err
			}
			if unitProductID != item.ProductID {
				return domain.Sale{}, store.ErrInvalidInput
			}
			if unitStatus != domain.ItemStatusInStore {
				return domain.Sale{}, store.ErrConflict
			}
		}
	}
	for productID, needed := range neededByProduct {
		if productMap[productID].storeQty < needed {
			return domain.Sale{}, store.ErrInsufficientStock
		}
	}

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.InvoiceNumber == "" {
		number, err := nextInvoiceNumberTx(ctx, tx, sale.CreatedAt)
		if err != nil {
			return domain.Sale{}, err
		}
		sale.InvoiceNumber = number
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, customer_id, subtotal_cents, discount_cents, tax_cents, total_cents,
			payment_method, invoice_number, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, sale.ID, nullIfEmpty(sale.CustomerID), sale.SubtotalCents, sale.DiscountCents, sale.TaxCents,
		sale.TotalCents, sale.PaymentMethod, sale.InvoiceNumber, sale.CreatedBy, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Sale{}, store.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return domain.Sale{}, store.ErrNotFound
		}
		return domain.Sale{}, err
	}

	for i := range sale.Items {
		item := &sale.Items[i]
		item.SaleID = sale.ID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sale_items (sale_id, product_id, product_item_code, qty, unit_price_cents,
				discount_percent, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id
		`, sale.ID, item.ProductID, nullIfEmpty(item.ProductItemCode), item.Qty, item.UnitPriceCents,
			item.DiscountPercent, item.LineTotalCents).Scan(&item.ID)
		if err != nil {
			return domain.Sale{}, err
		}
		if item.ProductItemCode != "" {
			_, err := tx.ExecContext(ctx, `
				UPDATE product_items
				SET status = $2, sold_at = $3
				WHERE code = $1
			`, item.ProductItemCode, domain.ItemStatusSold, sale.CreatedAt)
			if err != nil {
				return domain.Sale{}, err
			}
		}
	}

	for productID, needed := range neededByProduct {
		_, err := tx.ExecContext(ctx, `
			UPDATE products
			SET store_qty = store_qty - $2, updated_at = now()
			WHERE id = $1
		`, productID, needed)
		if err != nil {
			return domain.Sale{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	var sale domain.Sale
	var customerID, customerName sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT sl.id, sl.customer_id, c.name, sl.subtotal_cents, sl.discount_cents, sl.tax_cents,
			sl.total_cents, sl.payment_method, sl.invoice_number, sl.created_by, sl.created_at
		FROM sales sl
		LEFT JOIN customers c ON c.id = sl.customer_id
		WHERE sl.id = $1
	`, id).Scan(&sale.ID, &customerID, &customerName, &sale.SubtotalCents, &sale.DiscountCents,
		&sale.TaxCents, &sale.TotalCents, &sale.PaymentMethod, &sale.InvoiceNumber, &sale.CreatedBy, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sale{}, store.ErrNotFound
		}
		return domain.Sale{}, err
	}
	sale.CustomerID = customerID.String
	sale.CustomerName = customerName.String
	sale.CreatedAt = sale.CreatedAt.UTC()

	items, err := s.SaleItems(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Sale{}, err
	}
	sale.Items = items
	return sale, nil
}

func (s *Store) RecentSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}
	return s.querySales(ctx, `
		SELECT sl.id, sl.customer_id, c.name, sl.subtotal_cents, sl.discount_cents, sl.tax_cents,
			sl.total_cents, sl.payment_method, sl.invoice_number, sl.created_by, sl.created_at
		FROM sales sl
		LEFT JOIN customers c ON c.id = sl.customer_id
		ORDER BY sl.created_at DESC, sl.invoice_number DESC
		LIMIT $1
	`, limit)
}

func (s *Store) querySales(ctx context.Context, query string, args ...any) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		var customerID, customerName sql.NullString
		if err := rows.Scan(&sale.ID, &customerID, &customerName, &sale.SubtotalCents, &sale.DiscountCents,
			&sale.TaxCents, &sale.TotalCents, &sale.PaymentMethod, &sale.InvoiceNumber, &sale.CreatedBy, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CustomerID = customerID.String
		sale.CustomerName = customerName.String
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) SaleItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT si.id, si.sale_id, si.product_id, si.product_item_code, si.qty, si.unit_price_cents,
			si.discount_percent, si.line_total_cents, p.name, p.category
		FROM sale_items si
		LEFT JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = $1
		ORDER BY si.id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		var itemCode, productName, category sql.NullString
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &itemCode, &item.Qty,
			&item.UnitPriceCents, &item.DiscountPercent, &item.LineTotalCents, &productName, &category); err != nil {
			return nil, err
		}
		item.ProductItemCode = itemCode.String
		item.ProductName = productName.String
		item.Category = category.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateRepairJob(ctx context.Context, job domain.RepairJob, parts []domain.RepairPart) (domain.RepairJob, error) {
	if job.CustomerID == "" || job.Device == "" || job.Issue == "" {
		return domain.RepairJob{}, store.ErrInvalidInput
	}
	for _, part := range parts {
		if part.Qty < 1 || part.UnitPriceCents < 0 {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return domain.RepairJob{}, err
	}
	defer func() { _ = tx.Rollback() }()

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

	_, err = tx.ExecContext(ctx, `
		INSERT INTO repair_jobs (id, customer_id, device, issue, serial_number, status,
			estimated_cents, technician, received_at, estimated_done, notes, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, job.ID, job.CustomerID, job.Device, job.Issue, nullIfEmpty(job.SerialNumber), job.Status,
		job.EstimatedCents, nullIfEmpty(job.Technician), job.ReceivedAt, nullTime(job.EstimatedDone),
		nullIfEmpty(job.Notes), job.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.RepairJob{}, store.ErrNotFound
		}
		return domain.RepairJob{}, err
	}

	for i := range parts {
		if parts[i].ID == "" {
			parts[i].ID = xid.New("rp")
		}
		parts[i].RepairID = job.ID
		parts[i].LineTotalCents = int64(parts[i].Qty) * parts[i].UnitPriceCents
		_, err := tx.ExecContext(ctx, `
			INSERT INTO repair_parts (id, repair_id, product_id, qty, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, parts[i].ID, parts[i].RepairID, parts[i].ProductID, parts[i].Qty, parts[i].UnitPriceCents, parts[i].LineTotalCents)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.RepairJob{}, store.ErrNotFound
			}
			return domain.RepairJob{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.RepairJob{}, err
	}
	return s.GetRepairJob(ctx, job.ID)
}

const repairColumns = `r.id, r.customer_id, c.name, r.device, r.issue, r.serial_number, r.status,
	r.estimated_cents, r.service_charge_cents, r.parts_cost_cents, r.final_cost_cents, r.technician,
	r.received_at, r.estimated_done, r.completed_at, r.notes, r.updated_at`

func scanRepair(row interface{ Scan(...any) error }) (domain.RepairJob, error) {
	var job domain.RepairJob
	var customerName, serialNumber, technician, notes sql.NullString
	var serviceCharge, partsCost, finalCost sql.NullInt64
	var estimatedDone, completedAt sql.NullTime
	err := row.Scan(&job.ID, &job.CustomerID, &customerName, &job.Device, &job.Issue, &serialNumber,
		&job.Status, &job.EstimatedCents, &serviceCharge, &partsCost, &finalCost, &technician,
		&job.ReceivedAt, &estimatedDone, &completedAt, &notes, &job.UpdatedAt)
	if err != nil {
		return domain.RepairJob{}, err
	}
	job.CustomerName = customerName.String
	job.SerialNumber = serialNumber.String
	job.Technician = technician.String
	job.Notes = notes.String
	if serviceCharge.Valid {
		v := serviceCharge.Int64
		job.ServiceChargeCents = &v
	}
	if partsCost.Valid {
		v := partsCost.Int64
		job.PartsCostCents = &v
	}
	if finalCost.Valid {
		v := finalCost.Int64
		job.FinalCostCents = &v
	}
	if estimatedDone.Valid {
		t := estimatedDone.Time.UTC()
		job.EstimatedDone = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}
	job.ReceivedAt = job.ReceivedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return job, nil
}

func (s *Store) GetRepairJob(ctx context.Context, id string) (domain.RepairJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+repairColumns+`
		FROM repair_jobs r
		LEFT JOIN customers c ON c.id = r.customer_id
		WHERE r.id = $1
	`, id)
	job, err := scanRepair(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RepairJob{}, store.ErrNotFound
		}
		return domain.RepairJob{}, err
	}
	parts, err := s.RepairParts(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.RepairJob{}, err
	}
	job.Parts = parts
	return job, nil
}

func (s *Store) ListRepairJobs(ctx context.Context) ([]domain.RepairJob, error) {
	return s.queryRepairs(ctx, `
		SELECT `+repairColumns+`
		FROM repair_jobs r
		LEFT JOIN customers c ON c.id = r.customer_id
		ORDER BY r.received_at DESC, r.id DESC
	`)
}

func (s *Store) RepairJobsByStatus(ctx context.Context, statuses ...domain.RepairStatus) ([]domain.RepairJob, error) {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	return s.queryRepairs(ctx, `
		SELECT `+repairColumns+`
		FROM repair_jobs r
		LEFT JOIN customers c ON c.id = r.customer_id
		WHERE r.status = ANY($1)
		ORDER BY r.received_at DESC, r.id DESC
	`, values)
}

func (s *Store) queryRepairs(ctx context.Context, query string, args ...any) ([]domain.RepairJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]domain.RepairJob, 0, 32)
	for rows.Next() {
		job, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *Store) UpdateRepairJob(ctx context.Context, job domain.RepairJob, parts []domain.RepairPart) (domain.RepairJob, error) {
	if job.Device == "" || job.Issue == "" {
		return domain.RepairJob{}, store.ErrInvalidInput
	}
	for _, part := range parts {
		if part.Qty < 1 || part.UnitPriceCents < 0 {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.RepairJob{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var existingID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM repair_jobs WHERE id = $1 FOR UPDATE
	`, job.ID).Scan(&existingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RepairJob{}, store.ErrNotFound
		}
		return domain.RepairJob{}, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE repair_jobs
		SET device = $2, issue = $3, serial_number = $4, estimated_cents = $5, technician = $6,
			estimated_done = $7, notes = $8, updated_at = now()
		WHERE id = $1
	`, job.ID, job.Device, job.Issue, nullIfEmpty(job.SerialNumber), job.EstimatedCents,
		nullIfEmpty(job.Technician), nullTime(job.EstimatedDone), nullIfEmpty(job.Notes))
	if err != nil {
		return domain.RepairJob{}, err
	}

	// Diff the desired part set against what is stored: known IDs update in
	// place, empty IDs insert, leftovers are deleted.
	partRows, err := tx.QueryContext(ctx, `
		SELECT id FROM repair_parts WHERE repair_id = $1 FOR UPDATE
	`, job.ID)
	if err != nil {
		return domain.RepairJob{}, err
	}
	currentIDs := make(map[string]struct{}, 8)
	for partRows.Next() {
		var id string
		if err := partRows.Scan(&id); err != nil {
			_ = partRows.Close()
			return domain.RepairJob{}, err
		}
		currentIDs[id] = struct{}{}
	}
	if err := partRows.Err(); err != nil {
		_ = partRows.Close()
		return domain.RepairJob{}, err
	}
	_ = partRows.Close()

	for i := range parts {
		part := &parts[i]
		part.RepairID = job.ID
		part.LineTotalCents = int64(part.Qty) * part.UnitPriceCents
		if part.ID != "" {
			if _, known := currentIDs[part.ID]; !known {
				return domain.RepairJob{}, store.ErrNotFound
			}
			delete(currentIDs, part.ID)
			_, err := tx.ExecContext(ctx, `
				UPDATE repair_parts
				SET product_id = $2, qty = $3, unit_price_cents = $4, line_total_cents = $5
				WHERE id = $1
			`, part.ID, part.ProductID, part.Qty, part.UnitPriceCents, part.LineTotalCents)
			if err != nil {
				if isForeignKeyViolation(err) {
					return domain.RepairJob{}, store.ErrNotFound
				}
				return domain.RepairJob{}, err
			}
			continue
		}
		part.ID = xid.New("rp")
		_, err := tx.ExecContext(ctx, `
			INSERT INTO repair_parts (id, repair_id, product_id, qty, unit_price_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, part.ID, part.RepairID, part.ProductID, part.Qty, part.UnitPriceCents, part.LineTotalCents)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.RepairJob{}, store.ErrNotFound
			}
			return domain.RepairJob{}, err
		}
	}
	if len(currentIDs) > 0 {
		stale := make([]string, 0, len(currentIDs))
		for id := range currentIDs {
			stale = append(stale, id)
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM repair_parts WHERE id = ANY($1)
		`, stale)
		if err != nil {
			return domain.RepairJob{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.RepairJob{}, err
	}
	return s.GetRepairJob(ctx, job.ID)
}

func (s *Store) UpdateRepairStatus(ctx context.Context, id string, status domain.RepairStatus, serviceCharge *int64, notes *string, at time.Time) (domain.RepairJob, error) {
	if !status.Valid() {
		return domain.RepairJob{}, store.ErrInvalidInput
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return domain.RepairJob{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.RepairStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM repair_jobs WHERE id = $1 FOR UPDATE
	`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RepairJob{}, store.ErrNotFound
		}
		return domain.RepairJob{}, err
	}
	if !current.CanTransitionTo(status) {
		return domain.RepairJob{}, store.ErrConflict
	}

	if status == domain.StatusCompleted && current != domain.StatusCompleted {
		if serviceCharge == nil || *serviceCharge < 0 {
			return domain.RepairJob{}, store.ErrInvalidInput
		}
		var partsCost int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(line_total_cents), 0) FROM repair_parts WHERE repair_id = $1
		`, id).Scan(&partsCost)
		if err != nil {
			return domain.RepairJob{}, err
		}
		finalCost := *serviceCharge + partsCost
		_, err = tx.ExecContext(ctx, `
			UPDATE repair_jobs
			SET status = $2, service_charge_cents = $3, parts_cost_cents = $4, final_cost_cents = $5,
				completed_at = $6, notes = COALESCE($7, notes), updated_at = $6
			WHERE id = $1
		`, id, status, *serviceCharge, partsCost, finalCost, at, nullStringPtr(notes))
		if err != nil {
			return domain.RepairJob{}, err
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE repair_jobs
			SET status = $2, notes = COALESCE($3, notes), updated_at = $4
			WHERE id = $1
		`, id, status, nullStringPtr(notes), at)
		if err != nil {
			return domain.RepairJob{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.RepairJob{}, err
	}
	return s.GetRepairJob(ctx, id)
}

func (s *Store) RepairParts(ctx context.Context, repairID string) ([]domain.RepairPart, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rp.id, rp.repair_id, rp.product_id, rp.qty, rp.unit_price_cents, rp.line_total_cents, p.name
		FROM repair_parts rp
		LEFT JOIN products p ON p.id = rp.product_id
		WHERE rp.repair_id = $1
		ORDER BY rp.id
	`, repairID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parts := make([]domain.RepairPart, 0, 8)
	for rows.Next() {
		var part domain.RepairPart
		var productName sql.NullString
		if err := rows.Scan(&part.ID, &part.RepairID, &part.ProductID, &part.Qty,
			&part.UnitPriceCents, &part.LineTotalCents, &productName); err != nil {
			return nil, err
		}
		part.ProductName = productName.String
		parts = append(parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return parts, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.Customer{}, store.ErrInvalidInput
	}
	if c.ID == "" {
		c.ID = xid.New("cust")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, address, tax_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, c.ID, c.Name, nullIfEmpty(c.Phone), nullIfEmpty(c.Email), nullIfEmpty(c.Address),
		nullIfEmpty(c.TaxID), c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, store.ErrConflict
		}
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	var phone, email, address, taxID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, address, tax_id, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &phone, &email, &address, &taxID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, store.ErrNotFound
		}
		return domain.Customer{}, err
	}
	c.Phone = phone.String
	c.Email = email.String
	c.Address = address.String
	c.TaxID = taxID.String
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email, address, tax_id, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		var phone, email, address, taxID sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &phone, &email, &address, &taxID, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Phone = phone.String
		c.Email = email.String
		c.Address = address.String
		c.TaxID = taxID.String
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) CreateExpense(ctx context.Context, e domain.Expense) (domain.Expense, error) {
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
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, category, description, amount_cents, spent_on, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.Category, nullIfEmpty(e.Description), e.AmountCents, nowDateUTC(e.SpentOn), e.CreatedBy, e.CreatedAt)
	if err != nil {
		return domain.Expense{}, err
	}
	return e, nil
}

func (s *Store) ExpensesInRange(ctx context.Context, from, to time.Time) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, description, amount_cents, spent_on, created_by, created_at
		FROM expenses
		WHERE spent_on >= $1 AND spent_on <= $2
		ORDER BY spent_on, id
	`, nowDateUTC(from), nowDateUTC(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var e domain.Expense
		var description sql.NullString
		if err := rows.Scan(&e.ID, &e.Category, &description, &e.AmountCents, &e.SpentOn, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Description = description.String
		e.SpentOn = e.SpentOn.UTC()
		e.CreatedAt = e.CreatedAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) SalesInRange(ctx context.Context, from, to time.Time) ([]domain.Sale, error) {
	return s.querySales(ctx, `
		SELECT sl.id, sl.customer_id, c.name, sl.subtotal_cents, sl.discount_cents, sl.tax_cents,
			sl.total_cents, sl.payment_method, sl.invoice_number, sl.created_by, sl.created_at
		FROM sales sl
		LEFT JOIN customers c ON c.id = sl.customer_id
		WHERE sl.created_at >= $1 AND sl.created_at <= $2
		ORDER BY sl.created_at, sl.id
	`, from, to)
}

func (s *Store) SaleFactsInRange(ctx context.Context, from, to time.Time) ([]domain.SaleFact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sl.id, sl.created_at, sl.payment_method, si.product_id, p.name, p.category,
			si.qty, si.line_total_cents, COALESCE(p.cost_cents, 0)
		FROM sale_items si
		JOIN sales sl ON sl.id = si.sale_id
		LEFT JOIN products p ON p.id = si.product_id
		WHERE sl.created_at >= $1 AND sl.created_at <= $2
		ORDER BY sl.created_at, sl.id, si.id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facts := make([]domain.SaleFact, 0, 128)
	for rows.Next() {
		var fact domain.SaleFact
		var productName, category sql.NullString
		if err := rows.Scan(&fact.SaleID, &fact.CreatedAt, &fact.PaymentMethod, &fact.ProductID,
			&productName, &category, &fact.Qty, &fact.LineTotalCents, &fact.UnitCostCents); err != nil {
			return nil, err
		}
		fact.ProductName = productName.String
		fact.Category = category.String
		fact.CreatedAt = fact.CreatedAt.UTC()
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return facts, nil
}

func (s *Store) CreateStaffAccount(ctx context.Context, a domain.StaffAccount) (domain.StaffAccount, error) {
	a.Username = strings.ToLower(strings.TrimSpace(a.Username))
	if a.Username == "" || strings.TrimSpace(a.Password) == "" {
		return domain.StaffAccount{}, store.ErrInvalidInput
	}
	if a.Role == "" {
		a.Role = domain.RoleStaff
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Active = true
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff_accounts (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$5)
	`, a.Username, a.Password, a.Role, a.Active, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.StaffAccount{}, store.ErrConflict
		}
		return domain.StaffAccount{}, err
	}
	return a, nil
}

func (s *Store) ListStaffAccounts(ctx context.Context) ([]domain.StaffAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM staff_accounts
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]domain.StaffAccount, 0, 16)
	for rows.Next() {
		var a domain.StaffAccount
		if err := rows.Scan(&a.Username, &a.Password, &a.Role, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.CreatedAt = a.CreatedAt.UTC()
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *Store) UpdateStaffPassword(ctx context.Context, username, hashed string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(hashed) == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE staff_accounts
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, hashed)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType,
		nullIfEmpty(entry.EntityID), nullIfEmpty(entry.Detail), entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		var entityID, detail sql.NullString
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entityID, &detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.EntityID = entityID.String
		entry.Detail = detail.String
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func uniqueProductIDs(items []domain.SaleItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullStringPtr(val *string) any {
	if val == nil {
		return nil
	}
	return *val
}
