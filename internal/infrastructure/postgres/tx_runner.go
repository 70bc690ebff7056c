package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/StockLedger-api/internal/application/movements"
	"github.com/jhoicas/StockLedger-api/internal/application/restock"
	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// Ensure TxRunner implements movements.TxRunner and restock.TxRunner.
var _ movements.TxRunner = (*TxRunner)(nil)
var _ restock.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback. Los fallos transitorios (serialización, deadlock,
// lock_timeout) se traducen a ErrConcurrentModification para que el
// orquestador decida el reintento.
func (r *TxRunner) Run(ctx context.Context, fn func(
	items repository.ItemRepository,
	movs repository.MovementRepository,
	restocks repository.RestockRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", domain.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	itemRepo := NewItemRepository(tx)
	movRepo := NewMovementRepository(tx)
	restockRepo := NewRestockRepository(tx)

	if err := fn(itemRepo, movRepo, restockRepo); err != nil {
		return translateTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateTxError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// translateTxError mapea errores de PostgreSQL a sentinels de dominio sin
// perder el error original en el mensaje.
func translateTxError(err error) error {
	if isRetryableTxError(err) {
		return fmt.Errorf("%w: %v", domain.ErrConcurrentModification, err)
	}
	return err
}
