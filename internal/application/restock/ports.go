package restock

import (
	"context"

	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD. Las compras
// de restock usan la misma disciplina transaccional del orquestador: alta de
// artículo, incremento de saldo y fila de compra comparten Commit/Rollback.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		items repository.ItemRepository,
		movements repository.MovementRepository,
		restocks repository.RestockRepository,
	) error) error
}

// TableExporter serializa el historial de compras a CSV descargable.
type TableExporter interface {
	CSV(header []string, rows [][]string) ([]byte, error)
	XLSX(sheet string, header []string, rows [][]string) ([]byte, error)
}
