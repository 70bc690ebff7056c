package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, company_id, warehouse_id, name, closing_balance,
	unit_price, barcode, reorder_level, supplier_name, created_at, updated_at`

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

func (r *ItemRepo) scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	var barcode, supplier *string
	err := row.Scan(
		&it.ID, &it.CompanyID, &it.WarehouseID, &it.Name, &it.ClosingBalance,
		&it.UnitPrice, &barcode, &it.ReorderLevel, &supplier, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if barcode != nil {
		it.Barcode = *barcode
	}
	if supplier != nil {
		it.SupplierName = *supplier
	}
	return &it, nil
}

// GetByID obtiene un artículo por ID dentro de la empresa.
func (r *ItemRepo) GetByID(companyID string, id int64) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE company_id = $1 AND id = $2`
	it, err := r.scanItem(r.q.QueryRow(context.Background(), query, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// GetByName obtiene un artículo por nombre dentro de una bodega.
func (r *ItemRepo) GetByName(companyID string, warehouseID int64, name string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM items WHERE company_id = $1 AND warehouse_id = $2 AND name = $3`
	it, err := r.scanItem(r.q.QueryRow(context.Background(), query, companyID, warehouseID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item by name: %w", err)
	}
	return it, nil
}

// FindByName busca el nombre en todas las bodegas de la empresa.
func (r *ItemRepo) FindByName(companyID, name string) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM items WHERE company_id = $1 AND name = $2 ORDER BY warehouse_id`
	rows, err := r.q.Query(context.Background(), query, companyID, name)
	if err != nil {
		return nil, fmt.Errorf("find items by name: %w", err)
	}
	defer rows.Close()
	var list []*entity.Item
	for rows.Next() {
		it, err := r.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// Ensure crea una fila con saldo cero si el nombre no existe en la bodega y
// la devuelve. El upsert por (company_id, warehouse_id, name) la hace
// idempotente bajo concurrencia.
func (r *ItemRepo) Ensure(companyID string, warehouseID int64, name string) (*entity.Item, error) {
	query := `
		INSERT INTO items (company_id, warehouse_id, name, closing_balance, unit_price, reorder_level, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, now(), now())
		ON CONFLICT (company_id, warehouse_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING ` + itemColumns
	it, err := r.scanItem(r.q.QueryRow(context.Background(), query, companyID, warehouseID, name))
	if err != nil {
		return nil, fmt.Errorf("ensure item: %w", err)
	}
	return it, nil
}

// Create persiste un artículo nuevo y asigna su ID.
func (r *ItemRepo) Create(item *entity.Item) error {
	query := `
		INSERT INTO items (company_id, warehouse_id, name, closing_balance, unit_price, barcode, reorder_level, supplier_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10)
		RETURNING id`
	err := r.q.QueryRow(context.Background(), query,
		item.CompanyID, item.WarehouseID, item.Name, item.ClosingBalance,
		item.UnitPrice, item.Barcode, item.ReorderLevel, item.SupplierName,
		item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, item.Name)
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// ListByWarehouse lista los artículos de una bodega ordenados por nombre.
func (r *ItemRepo) ListByWarehouse(companyID string, warehouseID int64) ([]*entity.Item, error) {
	query := `SELECT ` + itemColumns + `
		FROM items WHERE company_id = $1 AND warehouse_id = $2 ORDER BY name`
	rows, err := r.q.Query(context.Background(), query, companyID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	var list []*entity.Item
	for rows.Next() {
		it, err := r.scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// GetForUpdate obtiene el artículo y bloquea la fila (SELECT FOR UPDATE).
// Solo tiene sentido dentro de una transacción del TxRunner.
func (r *ItemRepo) GetForUpdate(id int64) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE`
	it, err := r.scanItem(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item for update: %w", err)
	}
	return it, nil
}

// ApplyDelta suma delta al saldo y devuelve el saldo resultante. El predicado
// closing_balance + delta >= 0 es la última línea de defensa del invariante de
// saldos no negativos; con el re-chequeo bajo bloqueo no debería dispararse.
func (r *ItemRepo) ApplyDelta(id int64, delta int64) (int64, error) {
	query := `
		UPDATE items
		SET closing_balance = closing_balance + $2, updated_at = now()
		WHERE id = $1 AND closing_balance + $2 >= 0
		RETURNING closing_balance`
	var balance int64
	err := r.q.QueryRow(context.Background(), query, id, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: artículo %d", domain.ErrInsufficientStock, id)
		}
		return 0, fmt.Errorf("apply delta: %w", err)
	}
	return balance, nil
}

// UpdatePrice actualiza precio unitario y opcionalmente barcode. Devuelve
// false si el artículo no existe. Sin efecto sobre el libro.
func (r *ItemRepo) UpdatePrice(companyID string, itemID int64, price decimal.Decimal, barcode string) (bool, error) {
	query := `
		UPDATE items
		SET unit_price = $3, barcode = COALESCE(NULLIF($4, ''), barcode), updated_at = now()
		WHERE company_id = $1 AND id = $2`
	cmd, err := r.q.Exec(context.Background(), query, companyID, itemID, price, barcode)
	if err != nil {
		return false, fmt.Errorf("update price: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}
