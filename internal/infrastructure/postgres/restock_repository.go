package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

var _ repository.RestockRepository = (*RestockRepo)(nil)

const restockColumns = `id, company_id, item_id, item_name, warehouse_id, warehouse_name,
	COALESCE(supplier_name, ''), COALESCE(supplier_phone, ''), quantity, unit_price,
	total_cost, payment_status, payment_method, total_paid, amount_balance, due_date,
	purchase_date, COALESCE(notes, ''), COALESCE(employee_name, ''), status, created_at,
	COALESCE(created_by, '')`

// RestockRepo implementación de RestockRepository sobre PostgreSQL
// (usable con pool o tx).
type RestockRepo struct {
	q Querier
}

// NewRestockRepository construye el adaptador de compras de restock.
func NewRestockRepository(q Querier) *RestockRepo {
	return &RestockRepo{q: q}
}

// Create persiste una compra y asigna su ID.
func (r *RestockRepo) Create(p *entity.Restock) error {
	query := `
		INSERT INTO restocks (company_id, item_id, item_name, warehouse_id, warehouse_name,
			supplier_name, supplier_phone, quantity, unit_price, total_cost, payment_status,
			payment_method, total_paid, amount_balance, due_date, purchase_date, notes,
			employee_name, status, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11,
			$12, $13, $14, $15, $16, NULLIF($17, ''), NULLIF($18, ''), $19, $20, NULLIF($21, ''))
		RETURNING id`
	err := r.q.QueryRow(context.Background(), query,
		p.CompanyID, p.ItemID, p.ItemName, p.WarehouseID, p.WarehouseName,
		p.SupplierName, p.SupplierPhone, p.Quantity, p.UnitPrice, p.TotalCost, p.PaymentStatus,
		p.PaymentMethod, p.TotalPaid, p.AmountBalance, p.DueDate, p.PurchaseDate, p.Notes,
		p.EmployeeName, p.Status, p.CreatedAt, p.CreatedBy,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create restock: %w", err)
	}
	return nil
}

// GetByIDAndDate obtiene una compra por id y fecha de compra. La fecha actúa
// como segunda llave para que una reversa no caiga en la compra equivocada.
func (r *RestockRepo) GetByIDAndDate(companyID string, id int64, purchaseDate time.Time) (*entity.Restock, error) {
	query := `SELECT ` + restockColumns + `
		FROM restocks WHERE company_id = $1 AND id = $2 AND purchase_date = $3`
	p, err := r.scanRestock(r.q.QueryRow(context.Background(), query, companyID, id, purchaseDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get restock: %w", err)
	}
	return p, nil
}

// MarkReversed marca la compra activa como revertida sin borrar la fila. La
// condición sobre status hace de re-chequeo bajo la transacción: de dos
// reversas concurrentes la segunda no afecta filas y recibe ErrConflict.
func (r *RestockRepo) MarkReversed(companyID string, id int64) error {
	query := `UPDATE restocks SET status = 'reversed'
		WHERE company_id = $1 AND id = $2 AND status = 'active'`
	cmd, err := r.q.Exec(context.Background(), query, companyID, id)
	if err != nil {
		return fmt.Errorf("mark restock reversed: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: la compra %d ya fue revertida", domain.ErrConflict, id)
	}
	return nil
}

// ListRange lista compras con purchase_date dentro de [from, to], ordenadas
// por fecha descendente con desempate por id.
func (r *RestockRepo) ListRange(companyID string, from, to time.Time, itemName string) ([]*entity.Restock, error) {
	query := `SELECT ` + restockColumns + `
		FROM restocks WHERE company_id = $1 AND purchase_date BETWEEN $2 AND $3`
	args := []any{companyID, from, to}
	if itemName != "" {
		args = append(args, "%"+itemName+"%")
		query += fmt.Sprintf(" AND item_name ILIKE $%d", len(args))
	}
	query += " ORDER BY purchase_date DESC, id ASC"

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list restocks: %w", err)
	}
	defer rows.Close()
	var list []*entity.Restock
	for rows.Next() {
		p, err := r.scanRestock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan restock: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *RestockRepo) scanRestock(row pgx.Row) (*entity.Restock, error) {
	var p entity.Restock
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.ItemID, &p.ItemName, &p.WarehouseID, &p.WarehouseName,
		&p.SupplierName, &p.SupplierPhone, &p.Quantity, &p.UnitPrice,
		&p.TotalCost, &p.PaymentStatus, &p.PaymentMethod, &p.TotalPaid, &p.AmountBalance, &p.DueDate,
		&p.PurchaseDate, &p.Notes, &p.EmployeeName, &p.Status, &p.CreatedAt,
		&p.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
