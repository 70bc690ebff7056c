package repository

import (
	"time"

	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
)

// RestockRepository define el puerto de persistencia de compras de restock.
type RestockRepository interface {
	Create(r *entity.Restock) error
	GetByIDAndDate(companyID string, id int64, purchaseDate time.Time) (*entity.Restock, error)
	// MarkReversed marca la compra activa como revertida sin borrar la fila.
	// Si la compra ya estaba revertida devuelve ErrConflict, de modo que dos
	// reversas concurrentes dentro de sus transacciones no pasen ambas.
	MarkReversed(companyID string, id int64) error
	// ListRange lista compras con purchase_date dentro de [from, to],
	// opcionalmente filtradas por nombre de artículo.
	ListRange(companyID string, from, to time.Time, itemName string) ([]*entity.Restock, error)
}
