package movements

import (
	"context"

	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza la atomicidad del motor del libro:
// bloqueos, re-chequeos, deltas y el append del movimiento comparten
// Commit/Rollback, y los bloqueos solo se liberan cuando el movimiento quedó
// persistido.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		items repository.ItemRepository,
		movements repository.MovementRepository,
		restocks repository.RestockRepository,
	) error) error
}

// TableExporter serializa una tabla (cabecera + filas) a bytes descargables.
type TableExporter interface {
	CSV(header []string, rows [][]string) ([]byte, error)
	XLSX(sheet string, header []string, rows [][]string) ([]byte, error)
}

// ReportPDFGenerator genera la representación PDF del historial de
// movimientos filtrado.
type ReportPDFGenerator interface {
	GenerateMovementReport(ctx context.Context, title string, header []string, rows [][]string) ([]byte, error)
}
