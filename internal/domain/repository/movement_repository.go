package repository

import (
	"time"

	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
)

// MovementFilter acota listados y agregados del libro de movimientos.
type MovementFilter struct {
	Type      string // warehouse_transfer | customer_sale | stockout | vacío = todos
	Warehouse string // nombre; coincide con origen o destino
	From      *time.Time
	To        *time.Time
	Keyword   string // busca en artículo, bodega y emisor
}

// MovementRepository define el puerto del libro de movimientos: journal
// append-only de movimientos confirmados o fallidos. Un movimiento nunca se
// edita después de persistido.
type MovementRepository interface {
	// Create persiste el movimiento con sus líneas y asigna un ID monótono.
	// Una referencia duplicada produce un error de unicidad que el orquestador
	// resuelve devolviendo el movimiento original (idempotencia).
	Create(m *entity.Movement) error
	GetByID(companyID string, id int64) (*entity.Movement, error)
	GetByReference(companyID, reference string) (*entity.Movement, error)
	// List devuelve movimientos ordenados por movement_date descendente con
	// desempate por id ascendente: paginación estable aunque se sigan
	// añadiendo movimientos.
	List(companyID string, f MovementFilter, limit, offset int) ([]*entity.Movement, error)
	// CountByType cuenta movimientos completados por tipo sobre el filtro.
	CountByType(companyID string, f MovementFilter) (map[string]int64, error)
}
