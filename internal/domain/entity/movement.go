package entity

import "time"

// Tipos de movimiento del libro de inventario.
const (
	MovementTypeWarehouseTransfer = "warehouse_transfer" // traslado entre bodegas
	MovementTypeCustomerSale      = "customer_sale"      // venta a cliente
	MovementTypeStockout          = "stockout"           // baja / write-off
)

// Estados terminales de un movimiento. No existe estado parcial: el lote se
// aplica completo o no se aplica nada.
const (
	MovementStatusCompleted = "completed"
	MovementStatusFailed    = "failed"
)

// Movement es la unidad de historia del libro: un lote de líneas aplicado (o
// rechazado) de forma atómica. Una vez persistido es inmutable; las
// correcciones se hacen con un movimiento nuevo en dirección opuesta, nunca
// editando la historia.
type Movement struct {
	ID                     int64
	CompanyID              string
	Reference              string // token de idempotencia, único por empresa
	Type                   string
	SourceWarehouseID      int64
	SourceWarehouse        string
	DestinationWarehouseID *int64 // solo warehouse_transfer
	DestinationWarehouse   string
	Lines                  []MovementLine
	IssuedBy               string
	ReceivedBy             string // obligatorio en warehouse_transfer
	CustomerName           string // opcional, customer_sale
	Notes                  string // obligatorio (>= 5 caracteres) en stockout
	MovementDate           time.Time // fecha de negocio indicada por el caller
	Status                 string
	CreatedAt              time.Time // timestamp del servidor
	CreatedBy              string    // UserID
}

// MovementLine es una línea de un movimiento. En traslados la línea origen y
// la línea destino direccionan filas Item independientes: la cantidad recibida
// (DestinationQuantity) puede diferir de la enviada cuando el caller remapea
// unidades (ej. granel -> reempacado).
type MovementLine struct {
	MovementID          int64
	LineNo              int
	SourceItemID        int64
	SourceItemName      string
	Quantity            int64 // > 0 siempre
	DestinationItemID   *int64
	DestinationItemName string
	DestinationQuantity int64  // autoritativa para lo recibido en destino
	Reason              string // motivo de rechazo cuando el movimiento falla
}

// IsTransfer indica si el movimiento tiene lado destino.
func (m *Movement) IsTransfer() bool {
	return m.Type == MovementTypeWarehouseTransfer
}
