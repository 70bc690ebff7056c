package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de pago de una compra de restock. Son términos descriptivos de la
// compra; la liquidación de pagos vive en otro subsistema.
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusCredit  = "credit"
	PaymentStatusPartial = "partial"
)

// Métodos de pago aceptados en restock.
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCheque   = "cheque"
)

// Estados de un registro de restock.
const (
	RestockStatusActive   = "active"
	RestockStatusReversed = "reversed"
)

// Restock registra una compra que incrementó el stock de un artículo.
// La reversa no borra la fila: la marca reversed y descuenta el saldo, para
// que la historia de compras siga siendo auditable.
type Restock struct {
	ID            int64
	CompanyID     string
	ItemID        int64
	ItemName      string
	WarehouseID   int64
	WarehouseName string
	SupplierName  string
	SupplierPhone string
	Quantity      int64
	UnitPrice     decimal.Decimal
	TotalCost     decimal.Decimal
	PaymentStatus string
	PaymentMethod string
	TotalPaid     decimal.Decimal
	AmountBalance decimal.Decimal
	DueDate       *time.Time
	PurchaseDate  time.Time
	Notes         string
	EmployeeName  string
	Status        string
	CreatedAt     time.Time
	CreatedBy     string
}
