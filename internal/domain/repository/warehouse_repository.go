package repository

import "github.com/jhoicas/StockLedger-api/internal/domain/entity"

// WarehouseRepository define el puerto de persistencia del directorio de
// bodegas (DIP). El directorio es efectivamente append-only: las bodegas se
// crean pero nunca se renombran ni se eliminan, lo que permite lecturas sin
// bloqueo.
type WarehouseRepository interface {
	GetByID(companyID string, id int64) (*entity.Warehouse, error)
	GetByName(companyID, name string) (*entity.Warehouse, error)
	// Ensure crea la bodega si no existe y la devuelve. Idempotente.
	Ensure(companyID, name string) (*entity.Warehouse, error)
	ListNames(companyID string) ([]string, error)
}
