package entity

import "time"

// Warehouse representa una bodega donde se almacena inventario (multi-bodega).
// Es una entidad del directorio: se crea implícitamente la primera vez que un
// restock o un traslado la referencia y nunca se renombra ni se elimina.
type Warehouse struct {
	ID        int64
	CompanyID string
	Name      string
	CreatedAt time.Time
}
