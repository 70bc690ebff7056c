// Package ledger contiene la lógica pura del libro de movimientos: validación
// de lotes, orden global de bloqueo y cálculo de deltas por artículo. No tiene
// dependencias de infraestructura para poder probarse de forma aislada.
package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
)

// MinStockoutNotes es la longitud mínima del motivo de una baja de stock.
const MinStockoutNotes = 5

// Códigos de rechazo por línea.
const (
	CodeValidation        = "VALIDATION"
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
)

// Line es una línea de lote ya resuelta contra el directorio: artículos
// materializados, cantidades enteras positivas.
type Line struct {
	SourceItem   *entity.Item
	DestItem     *entity.Item // solo warehouse_transfer
	Quantity     int64
	DestQuantity int64 // cantidad recibida en destino (autoritativa)
}

// Batch es un lote resuelto listo para validar y aplicar.
type Batch struct {
	Type            string
	SourceWarehouse *entity.Warehouse
	DestWarehouse   *entity.Warehouse // solo warehouse_transfer
	Lines           []Line
	IssuedBy        string
	ReceivedBy      string
	Notes           string
}

// Validate comprueba el lote completo sin mutar nada. Devuelve nil si todas
// las líneas son válidas; si no, un BatchError con el detalle por línea para
// que el operador corrija cantidades o nombres sin reenviar a ciegas.
func Validate(b Batch) *domain.BatchError {
	var lines []domain.LineError
	insufficient := false

	switch b.Type {
	case entity.MovementTypeWarehouseTransfer, entity.MovementTypeCustomerSale, entity.MovementTypeStockout:
	default:
		return domain.NewBatchError(domain.ErrInvalidInput,
			domain.LineError{Line: -1, Code: CodeValidation, Message: "tipo de movimiento desconocido"})
	}

	if b.SourceWarehouse == nil {
		return domain.NewBatchError(domain.ErrNotFound,
			domain.LineError{Line: -1, Code: CodeNotFound, Message: "bodega origen no encontrada"})
	}
	if len(b.Lines) == 0 {
		return domain.NewBatchError(domain.ErrInvalidInput,
			domain.LineError{Line: -1, Code: CodeValidation, Message: "el lote no tiene líneas"})
	}
	if strings.TrimSpace(b.IssuedBy) == "" {
		lines = append(lines, domain.LineError{Line: -1, Code: CodeValidation, Message: "issued_by es requerido"})
	}

	switch b.Type {
	case entity.MovementTypeWarehouseTransfer:
		if b.DestWarehouse == nil {
			return domain.NewBatchError(domain.ErrNotFound,
				domain.LineError{Line: -1, Code: CodeNotFound, Message: "bodega destino no encontrada"})
		}
		if b.DestWarehouse.ID == b.SourceWarehouse.ID {
			lines = append(lines, domain.LineError{Line: -1, Code: CodeValidation,
				Message: "bodega origen y destino deben ser distintas"})
		}
		if strings.TrimSpace(b.ReceivedBy) == "" {
			lines = append(lines, domain.LineError{Line: -1, Code: CodeValidation, Message: "received_by es requerido"})
		}
	case entity.MovementTypeStockout:
		if len(strings.TrimSpace(b.Notes)) < MinStockoutNotes {
			lines = append(lines, domain.LineError{Line: -1, Code: CodeValidation,
				Message: fmt.Sprintf("notes debe explicar el motivo (mínimo %d caracteres)", MinStockoutNotes)})
		}
	}

	for i, l := range b.Lines {
		switch {
		case l.SourceItem == nil:
			lines = append(lines, domain.LineError{Line: i, Code: CodeNotFound,
				Message: "artículo no encontrado en la bodega origen"})
			continue
		case l.SourceItem.WarehouseID != b.SourceWarehouse.ID:
			lines = append(lines, domain.LineError{Line: i, Code: CodeValidation,
				Message: "el artículo no pertenece a la bodega origen"})
			continue
		case l.Quantity <= 0:
			lines = append(lines, domain.LineError{Line: i, Code: CodeValidation,
				Message: "quantity debe ser mayor que cero"})
			continue
		}

		if b.Type == entity.MovementTypeWarehouseTransfer {
			switch {
			case l.DestItem == nil:
				lines = append(lines, domain.LineError{Line: i, Code: CodeNotFound,
					Message: "artículo destino no resuelto"})
				continue
			case l.DestItem.ID == l.SourceItem.ID:
				lines = append(lines, domain.LineError{Line: i, Code: CodeValidation,
					Message: "origen y destino direccionan el mismo artículo"})
				continue
			case b.DestWarehouse != nil && l.DestItem.WarehouseID != b.DestWarehouse.ID:
				lines = append(lines, domain.LineError{Line: i, Code: CodeValidation,
					Message: "el artículo destino no pertenece a la bodega destino"})
				continue
			case l.DestQuantity <= 0:
				lines = append(lines, domain.LineError{Line: i, Code: CodeValidation,
					Message: "la cantidad recibida en destino debe ser mayor que cero"})
				continue
			}
		}

		// Pre-chequeo de saldo: el chequeo definitivo se repite bajo bloqueo
		// de fila antes de aplicar.
		if l.Quantity > l.SourceItem.ClosingBalance {
			insufficient = true
			lines = append(lines, domain.LineError{Line: i, Code: CodeInsufficientStock,
				Message: fmt.Sprintf("stock insuficiente: disponible %d, solicitado %d",
					l.SourceItem.ClosingBalance, l.Quantity)})
		}
	}

	if len(lines) == 0 {
		return nil
	}
	sentinel := domain.ErrInvalidInput
	if insufficient {
		sentinel = domain.ErrInsufficientStock
	}
	return domain.NewBatchError(sentinel, lines...)
}

// LockKey identifica una fila de stock a bloquear.
type LockKey struct {
	WarehouseID int64
	ItemID      int64
}

// Deltas agrega el efecto neto del lote por artículo: negativo en origen,
// positivo en destino. Un mismo artículo puede aparecer en varias líneas.
func Deltas(b Batch) map[LockKey]int64 {
	deltas := make(map[LockKey]int64, len(b.Lines)*2)
	for _, l := range b.Lines {
		src := LockKey{WarehouseID: l.SourceItem.WarehouseID, ItemID: l.SourceItem.ID}
		deltas[src] -= l.Quantity
		if b.Type == entity.MovementTypeWarehouseTransfer && l.DestItem != nil {
			dst := LockKey{WarehouseID: l.DestItem.WarehouseID, ItemID: l.DestItem.ID}
			deltas[dst] += l.DestQuantity
		}
	}
	return deltas
}

// LockOrder devuelve las claves ordenadas ascendentemente por
// (warehouse_id, item_id). Todo lote adquiere sus bloqueos en este orden
// global, lo que elimina los deadlocks entre lotes concurrentes que comparten
// más de un artículo en órdenes distintos.
func LockOrder(deltas map[LockKey]int64) []LockKey {
	keys := make([]LockKey, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].WarehouseID != keys[j].WarehouseID {
			return keys[i].WarehouseID < keys[j].WarehouseID
		}
		return keys[i].ItemID < keys[j].ItemID
	})
	return keys
}
