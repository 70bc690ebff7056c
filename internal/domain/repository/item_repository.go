package repository

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
)

// ItemRepository define el puerto del almacén de inventario: saldo actual por
// (bodega, artículo). Los métodos de mutación se usan únicamente dentro de
// transacciones del orquestador; ningún otro componente escribe saldos.
type ItemRepository interface {
	GetByID(companyID string, id int64) (*entity.Item, error)
	GetByName(companyID string, warehouseID int64, name string) (*entity.Item, error)
	// FindByName busca un artículo por nombre en todas las bodegas de la
	// empresa (resolución de restock cuando el nombre es único).
	FindByName(companyID, name string) ([]*entity.Item, error)
	// Ensure crea una fila con saldo cero si el nombre no existe en la bodega
	// (artículo destino nunca visto) y la devuelve. Idempotente.
	Ensure(companyID string, warehouseID int64, name string) (*entity.Item, error)
	Create(item *entity.Item) error
	ListByWarehouse(companyID string, warehouseID int64) ([]*entity.Item, error)
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) para el re-chequeo y la
	// aplicación de deltas dentro de la transacción.
	GetForUpdate(id int64) (*entity.Item, error)
	// ApplyDelta suma delta al saldo y devuelve el saldo resultante. Falla con
	// ErrInsufficientStock si el resultado sería negativo.
	ApplyDelta(id int64, delta int64) (int64, error)
	// UpdatePrice actualiza precio unitario y opcionalmente barcode. Devuelve
	// false si el artículo no existe. Sin efecto sobre el libro.
	UpdatePrice(companyID string, itemID int64, price decimal.Decimal, barcode string) (bool, error)
}
