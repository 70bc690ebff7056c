package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item representa un artículo de inventario dentro de una bodega concreta.
// El mismo producto lógico puede existir como filas Item distintas en bodegas
// distintas, incluso con nombres distintos (remapeo de destino en traslados).
//
// ClosingBalance es la cantidad disponible actual; solo el orquestador de
// movimientos la muta, siempre bajo bloqueo de fila.
type Item struct {
	ID             int64
	CompanyID      string
	WarehouseID    int64
	Name           string
	ClosingBalance int64
	UnitPrice      decimal.Decimal
	Barcode        string
	ReorderLevel   int64 // informativo: no bloquea movimientos
	SupplierName   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
