package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL
// (usable con pool o tx).
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para bodegas.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// GetByID obtiene una bodega por ID dentro de la empresa.
func (r *WarehouseRepo) GetByID(companyID string, id int64) (*entity.Warehouse, error) {
	query := `
		SELECT id, company_id, name, created_at
		FROM warehouses WHERE company_id = $1 AND id = $2`
	var w entity.Warehouse
	err := r.q.QueryRow(context.Background(), query, companyID, id).Scan(
		&w.ID, &w.CompanyID, &w.Name, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return &w, nil
}

// GetByName obtiene una bodega por nombre dentro de la empresa.
func (r *WarehouseRepo) GetByName(companyID, name string) (*entity.Warehouse, error) {
	query := `
		SELECT id, company_id, name, created_at
		FROM warehouses WHERE company_id = $1 AND name = $2`
	var w entity.Warehouse
	err := r.q.QueryRow(context.Background(), query, companyID, name).Scan(
		&w.ID, &w.CompanyID, &w.Name, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse by name: %w", err)
	}
	return &w, nil
}

// Ensure crea la bodega si no existe y la devuelve. El upsert por
// (company_id, name) hace la operación idempotente bajo concurrencia.
func (r *WarehouseRepo) Ensure(companyID, name string) (*entity.Warehouse, error) {
	query := `
		INSERT INTO warehouses (company_id, name, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (company_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, company_id, name, created_at`
	var w entity.Warehouse
	err := r.q.QueryRow(context.Background(), query, companyID, name).Scan(
		&w.ID, &w.CompanyID, &w.Name, &w.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure warehouse: %w", err)
	}
	return &w, nil
}

// ListNames lista los nombres de bodega de la empresa, ordenados.
func (r *WarehouseRepo) ListNames(companyID string) ([]string, error) {
	query := `SELECT name FROM warehouses WHERE company_id = $1 ORDER BY name`
	rows, err := r.q.Query(context.Background(), query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
