package dto

import (
	"time"

	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
)

// MovementLineRequest línea de un lote de movimiento. El artículo origen se
// direcciona por id o por nombre dentro de la bodega origen. ItemNameTo y
// QuantityTo solo aplican a traslados: permiten recibir el stock bajo otro
// nombre y otra cantidad en destino (transformación al trasladar).
type MovementLineRequest struct {
	ItemID     int64  `json:"item_id,omitempty"`
	ItemName   string `json:"item_name" validate:"required_without=ItemID"`
	ItemNameTo string `json:"item_name_to,omitempty"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0"`
	QuantityTo int64  `json:"quantity_to,omitempty" validate:"omitempty,gt=0"`
}

// WarehouseTransferRequest body para POST /b2b/transfer/warehouse.
type WarehouseTransferRequest struct {
	Reference            string                `json:"reference,omitempty"`
	SourceWarehouse      string                `json:"source_warehouse" validate:"required"`
	DestinationWarehouse string                `json:"destination_warehouse" validate:"required,nefield=SourceWarehouse"`
	Items                []MovementLineRequest `json:"items" validate:"required,min=1,dive"`
	IssuedBy             string                `json:"issued_by" validate:"required"`
	ReceivedBy           string                `json:"received_by" validate:"required"`
	Notes                string                `json:"notes,omitempty"`
	MovementDate         string                `json:"movement_date" validate:"required,datetime=2006-01-02"`
}

// CustomerSaleRequest body para POST /b2b/transfer/customer.
type CustomerSaleRequest struct {
	Reference       string                `json:"reference,omitempty"`
	SourceWarehouse string                `json:"source_warehouse" validate:"required"`
	Items           []MovementLineRequest `json:"items" validate:"required,min=1,dive"`
	IssuedBy        string                `json:"issued_by" validate:"required"`
	CustomerName    string                `json:"customer_name,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	MovementDate    string                `json:"movement_date" validate:"required,datetime=2006-01-02"`
}

// StockoutRequest body para POST /b2b/transfer/stockout. Notes es obligatorio:
// toda baja de stock debe quedar justificada.
type StockoutRequest struct {
	Reference       string                `json:"reference,omitempty"`
	SourceWarehouse string                `json:"source_warehouse" validate:"required"`
	Items           []MovementLineRequest `json:"items" validate:"required,min=1,dive"`
	IssuedBy        string                `json:"issued_by" validate:"required"`
	Notes           string                `json:"notes" validate:"required,min=5"`
	MovementDate    string                `json:"movement_date" validate:"required,datetime=2006-01-02"`
}

// MovementLineResponse línea de movimiento en respuestas.
type MovementLineResponse struct {
	LineNo              int    `json:"line_no"`
	SourceItemID        int64  `json:"source_item_id"`
	SourceItemName      string `json:"source_item_name"`
	Quantity            int64  `json:"quantity"`
	DestinationItemID   *int64 `json:"destination_item_id,omitempty"`
	DestinationItemName string `json:"destination_item_name,omitempty"`
	DestinationQuantity int64  `json:"destination_quantity,omitempty"`
	Reason              string `json:"reason,omitempty"`
}

// MovementResponse salida de un movimiento del libro.
type MovementResponse struct {
	ID                   int64                  `json:"movement_id"`
	Reference            string                 `json:"reference"`
	Type                 string                 `json:"transfer_type"`
	SourceWarehouse      string                 `json:"source_warehouse"`
	DestinationWarehouse string                 `json:"destination_warehouse,omitempty"`
	Lines                []MovementLineResponse `json:"items"`
	IssuedBy             string                 `json:"issued_by"`
	ReceivedBy           string                 `json:"received_by,omitempty"`
	CustomerName         string                 `json:"customer_name,omitempty"`
	Notes                string                 `json:"notes,omitempty"`
	MovementDate         string                 `json:"movement_date"`
	Status               string                 `json:"status"`
	CreatedAt            time.Time              `json:"created_at"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// MovementSummaryResponse contadores agregados por tipo sobre el filtro.
type MovementSummaryResponse struct {
	TotalTransfers int64 `json:"total_transfers"`
	TotalSales     int64 `json:"total_sales"`
	TotalWriteoffs int64 `json:"total_writeoffs"`
}

// ToMovementResponse mapea la entidad de movimiento a su representación API.
func ToMovementResponse(m *entity.Movement) MovementResponse {
	resp := MovementResponse{
		ID:                   m.ID,
		Reference:            m.Reference,
		Type:                 m.Type,
		SourceWarehouse:      m.SourceWarehouse,
		DestinationWarehouse: m.DestinationWarehouse,
		IssuedBy:             m.IssuedBy,
		ReceivedBy:           m.ReceivedBy,
		CustomerName:         m.CustomerName,
		Notes:                m.Notes,
		MovementDate:         m.MovementDate.Format(DateLayout),
		Status:               m.Status,
		CreatedAt:            m.CreatedAt,
	}
	resp.Lines = make([]MovementLineResponse, 0, len(m.Lines))
	for _, l := range m.Lines {
		resp.Lines = append(resp.Lines, MovementLineResponse{
			LineNo:              l.LineNo,
			SourceItemID:        l.SourceItemID,
			SourceItemName:      l.SourceItemName,
			Quantity:            l.Quantity,
			DestinationItemID:   l.DestinationItemID,
			DestinationItemName: l.DestinationItemName,
			DestinationQuantity: l.DestinationQuantity,
			Reason:              l.Reason,
		})
	}
	return resp
}
