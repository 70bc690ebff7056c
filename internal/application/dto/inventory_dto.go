package dto

import "github.com/shopspring/decimal"

// InventoryItemResponse artículo con su saldo actual dentro de una bodega.
type InventoryItemResponse struct {
	ItemID         int64           `json:"item_id"`
	ItemName       string          `json:"item_name"`
	UnitPrice      decimal.Decimal `json:"price"`
	ClosingBalance int64           `json:"closing_balance"`
	ReorderLevel   int64           `json:"reorder_level"`
	Barcode        string          `json:"barcode,omitempty"`
}
