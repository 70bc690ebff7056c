package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// NewItemRequest body para POST /restock/new-item: crea el artículo con su
// stock inicial. WarehouseName referencia una bodega existente;
// NewWarehouseName crea una bodega nueva en el mismo paso.
type NewItemRequest struct {
	ItemName         string          `json:"item_name" validate:"required,min=1,max=200"`
	Barcode          string          `json:"barcode,omitempty"`
	SuppliedQuantity int64           `json:"supplied_quantity" validate:"min=0"`
	ReorderLevel     int64           `json:"reorder_level" validate:"min=0"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	SupplierName     string          `json:"supplier_name,omitempty"`
	SupplierPhone    string          `json:"supplier_phone,omitempty"`
	PurchaseDate     string          `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	PaymentStatus    string          `json:"payment_status" validate:"omitempty,oneof=paid credit partial"`
	PaymentMethod    string          `json:"payment_method" validate:"omitempty,oneof=cash card transfer cheque"`
	DueDate          string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TotalPricePaid   decimal.Decimal `json:"total_price_paid,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	WarehouseName    string          `json:"warehouse_name,omitempty"`
	NewWarehouseName string          `json:"new_warehouse_name,omitempty"`
	EmployeeName     string          `json:"employee_name,omitempty"`
}

// RestockItemRequest línea de un restock por lote: artículo existente
// direccionado por id o por nombre (único dentro de la bodega del lote).
type RestockItemRequest struct {
	ItemID        int64           `json:"item_id,omitempty"`
	ItemName      string          `json:"item_name,omitempty"`
	WarehouseName string          `json:"warehouse_name,omitempty"`
	Quantity      int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// BatchRestockRequest body para POST /restock/batch: incrementa stock de
// artículos existentes, sin lado destino.
type BatchRestockRequest struct {
	SupplierName   string               `json:"supplier_name" validate:"required"`
	SupplierPhone  string               `json:"supplier_phone,omitempty"`
	PurchaseDate   string               `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	WarehouseName  string               `json:"warehouse_name" validate:"required"`
	PaymentStatus  string               `json:"payment_status" validate:"omitempty,oneof=paid credit partial"`
	PaymentMethod  string               `json:"payment_method" validate:"omitempty,oneof=cash card transfer cheque"`
	DueDate        string               `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes          string               `json:"notes,omitempty"`
	Items          []RestockItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalPricePaid decimal.Decimal      `json:"total_price_paid,omitempty"`
	EmployeeName   string               `json:"employee_name,omitempty"`
}

// PriceUpdate actualización de precio/barcode de un artículo.
type PriceUpdate struct {
	ItemID     int64           `json:"item_id" validate:"required"`
	NewPrice   decimal.Decimal `json:"new_price"`
	NewBarcode string          `json:"new_barcode,omitempty"`
}

// BulkPriceUpdateRequest body para POST /restock/price-bulk-update.
type BulkPriceUpdateRequest struct {
	WarehouseName string        `json:"warehouse_name,omitempty"`
	Updates       []PriceUpdate `json:"updates" validate:"required,min=1,dive"`
}

// BulkPriceUpdateResponse resultado de la actualización masiva.
type BulkPriceUpdateResponse struct {
	Updated int      `json:"updated"`
	Errors  []string `json:"errors,omitempty"`
}

// RestockResponse salida de una compra de restock.
type RestockResponse struct {
	PurchaseID    int64           `json:"purchase_id"`
	ItemID        int64           `json:"item_id"`
	ItemName      string          `json:"item_name"`
	WarehouseName string          `json:"warehouse_name"`
	SupplierName  string          `json:"supplier_name,omitempty"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	PaymentStatus string          `json:"payment_status"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	AmountBalance decimal.Decimal `json:"amount_balance"`
	PurchaseDate  string          `json:"purchase_date"`
	Status        string          `json:"status"`
	EmployeeName  string          `json:"employee_name,omitempty"`
	NewBalance    int64           `json:"new_balance"`
}

// BatchRestockResponse resultado de un restock por lote.
type BatchRestockResponse struct {
	PurchaseIDs   []int64         `json:"purchase_ids"`
	ItemsCount    int             `json:"items_count"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	TotalPaid     decimal.Decimal `json:"total_price_paid"`
	AmountBalance decimal.Decimal `json:"amount_balance"`
}

// RestockHistoryRow fila del feed de exportación de historial de compras.
// Las claves del CSV exportado siguen el contrato fijo de columnas:
// Item, Supplier, Quantity, Unit Price, Total Cost, Total Paid, Date, Status,
// Warehouse, Employee.
type RestockHistoryRow struct {
	Item      string          `json:"item"`
	Supplier  string          `json:"supplier"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TotalCost decimal.Decimal `json:"total_cost"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Date      string          `json:"date"`
	Status    string          `json:"status"`
	Warehouse string          `json:"warehouse"`
	Employee  string          `json:"employee"`
}

// ParseDate interpreta una fecha de negocio de la API (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
