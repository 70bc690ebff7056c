// Package movements implementa el caso de uso central del libro de
// inventario: recepción de lotes de movimiento (traslados, ventas, bajas),
// su aplicación atómica sobre los saldos y la consulta/exportación del
// historial resultante.
package movements

import (
	"time"

	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// RetryPolicy acota los reintentos ante conflictos transitorios de la BD
// (serialización, deadlock detectado, lock_timeout). Agotados los intentos
// el lote se rechaza con ErrConcurrentModification y el cliente decide.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy reintenta dos veces con backoff exponencial y jitter.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

// UseCase orquesta los movimientos del libro.
type UseCase struct {
	warehouses repository.WarehouseRepository
	items      repository.ItemRepository
	movements  repository.MovementRepository
	tx         TxRunner
	exporter   TableExporter
	pdf        ReportPDFGenerator
	retry      RetryPolicy
}

// NewUseCase construye el caso de uso con sus dependencias (DIP).
func NewUseCase(
	warehouses repository.WarehouseRepository,
	items repository.ItemRepository,
	movs repository.MovementRepository,
	tx TxRunner,
	exporter TableExporter,
	pdf ReportPDFGenerator,
	retry RetryPolicy,
) *UseCase {
	if retry.Attempts <= 0 {
		retry = DefaultRetryPolicy
	}
	return &UseCase{
		warehouses: warehouses,
		items:      items,
		movements:  movs,
		tx:         tx,
		exporter:   exporter,
		pdf:        pdf,
		retry:      retry,
	}
}
