package movements

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	dledger "github.com/jhoicas/StockLedger-api/internal/domain/ledger"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// LineInput es una línea de lote tal como llega de la API: el artículo origen
// se direcciona por id o por nombre; ItemNameTo/QuantityTo permiten recibir el
// stock transformado en destino (otro nombre, otra cantidad).
type LineInput struct {
	ItemID     int64
	ItemName   string
	ItemNameTo string
	Quantity   int64
	QuantityTo int64
}

// BatchInput es un lote de movimiento sin resolver. Reference vacío genera
// una referencia nueva; un Reference repetido devuelve el movimiento original
// sin re-ejecutar nada (idempotencia de reenvíos).
type BatchInput struct {
	Reference            string
	Type                 string
	SourceWarehouse      string
	DestinationWarehouse string
	Lines                []LineInput
	IssuedBy             string
	ReceivedBy           string
	CustomerName         string
	Notes                string
	MovementDate         time.Time
}

// Submit procesa un lote de movimiento de principio a fin: idempotencia por
// referencia, resolución contra el directorio, validación completa del lote y
// aplicación atómica (todo o nada) bajo bloqueo de filas. Los lotes
// rechazados también quedan en el libro con status failed y consumen la
// referencia.
func (uc *UseCase) Submit(ctx context.Context, companyID, userID string, in BatchInput) (*entity.Movement, error) {
	reference := strings.TrimSpace(in.Reference)
	if reference != "" {
		prev, err := uc.movements.GetByReference(companyID, reference)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			return prev, nil
		}
	} else {
		reference = uuid.New().String()
	}

	batch, err := uc.resolve(companyID, in)
	if err != nil {
		return nil, err
	}
	mov := buildMovement(companyID, userID, reference, in, batch)

	if verr := dledger.Validate(*batch); verr != nil {
		uc.recordFailed(mov, verr)
		return nil, verr
	}

	deltas := dledger.Deltas(*batch)
	order := dledger.LockOrder(deltas)

	var lastErr error
	for attempt := 1; attempt <= uc.retry.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffJitter(uc.retry.Backoff, attempt-1)):
			}
		}

		err := uc.tx.Run(ctx, func(items repository.ItemRepository, movs repository.MovementRepository, _ repository.RestockRepository) error {
			return applyBatch(items, movs, batch, mov, deltas, order)
		})
		switch {
		case err == nil:
			return mov, nil
		case errors.Is(err, domain.ErrDuplicate):
			// Carrera de idempotencia: otro envío con la misma referencia
			// confirmó primero. Se devuelve su resultado.
			prev, gerr := uc.movements.GetByReference(companyID, reference)
			if gerr != nil {
				return nil, gerr
			}
			if prev != nil {
				return prev, nil
			}
			return nil, err
		case errors.Is(err, domain.ErrConcurrentModification), errors.Is(err, domain.ErrPersistence):
			lastErr = err
			continue
		default:
			var berr *domain.BatchError
			if errors.As(err, &berr) {
				uc.recordFailed(mov, berr)
			}
			return nil, err
		}
	}
	return nil, lastErr
}

// resolve materializa bodegas y artículos del lote contra el directorio. La
// bodega y los artículos destino de un traslado se crean implícitamente la
// primera vez que se referencian; los artículos origen nunca.
func (uc *UseCase) resolve(companyID string, in BatchInput) (*dledger.Batch, error) {
	src, err := uc.warehouses.GetByName(companyID, in.SourceWarehouse)
	if err != nil {
		return nil, err
	}
	b := &dledger.Batch{
		Type:            in.Type,
		SourceWarehouse: src,
		IssuedBy:        in.IssuedBy,
		ReceivedBy:      in.ReceivedBy,
		Notes:           in.Notes,
	}

	var dst *entity.Warehouse
	if in.Type == entity.MovementTypeWarehouseTransfer && strings.TrimSpace(in.DestinationWarehouse) != "" {
		dst, err = uc.warehouses.Ensure(companyID, in.DestinationWarehouse)
		if err != nil {
			return nil, err
		}
		b.DestWarehouse = dst
	}

	for _, li := range in.Lines {
		line := dledger.Line{Quantity: li.Quantity}

		if src != nil {
			var it *entity.Item
			if li.ItemID > 0 {
				it, err = uc.items.GetByID(companyID, li.ItemID)
			} else {
				it, err = uc.items.GetByName(companyID, src.ID, li.ItemName)
			}
			if err != nil {
				return nil, err
			}
			line.SourceItem = it
		}

		if dst != nil {
			destName := strings.TrimSpace(li.ItemNameTo)
			if destName == "" {
				if line.SourceItem != nil {
					destName = line.SourceItem.Name
				} else {
					destName = strings.TrimSpace(li.ItemName)
				}
			}
			if destName != "" {
				di, derr := uc.items.Ensure(companyID, dst.ID, destName)
				if derr != nil {
					return nil, derr
				}
				line.DestItem = di
			}
			line.DestQuantity = li.QuantityTo
			if line.DestQuantity == 0 {
				line.DestQuantity = li.Quantity
			}
		}
		b.Lines = append(b.Lines, line)
	}
	return b, nil
}

// applyBatch ejecuta la fase de aplicación dentro de la transacción: bloquea
// cada fila de stock en el orden global, repite el chequeo de saldo con los
// valores ya bloqueados, aplica los deltas y agrega el movimiento al libro.
func applyBatch(
	items repository.ItemRepository,
	movs repository.MovementRepository,
	b *dledger.Batch,
	mov *entity.Movement,
	deltas map[dledger.LockKey]int64,
	order []dledger.LockKey,
) error {
	var lines []domain.LineError
	for _, k := range order {
		it, err := items.GetForUpdate(k.ItemID)
		if err != nil {
			return err
		}
		if it == nil {
			return domain.NewBatchError(domain.ErrNotFound, domain.LineError{
				Line: lineFor(b, k.ItemID), Code: dledger.CodeNotFound,
				Message: "artículo no encontrado"})
		}
		if it.ClosingBalance+deltas[k] < 0 {
			lines = append(lines, domain.LineError{
				Line: lineFor(b, k.ItemID), Code: dledger.CodeInsufficientStock,
				Message: fmt.Sprintf("stock insuficiente: disponible %d, solicitado %d",
					it.ClosingBalance, -deltas[k]),
			})
		}
	}
	if len(lines) > 0 {
		return domain.NewBatchError(domain.ErrInsufficientStock, lines...)
	}

	for _, k := range order {
		if _, err := items.ApplyDelta(k.ItemID, deltas[k]); err != nil {
			return err
		}
	}
	return movs.Create(mov)
}

// lineFor devuelve el índice de la primera línea cuyo artículo origen es
// itemID, para señalar la línea culpable en el rechazo.
func lineFor(b *dledger.Batch, itemID int64) int {
	for i, l := range b.Lines {
		if l.SourceItem != nil && l.SourceItem.ID == itemID {
			return i
		}
	}
	return -1
}

// buildMovement arma la entidad de movimiento (status completed) a partir del
// lote resuelto. Si algo no resolvió se conservan los nombres crudos de la
// petición para que el registro fallido siga siendo legible.
func buildMovement(companyID, userID, reference string, in BatchInput, b *dledger.Batch) *entity.Movement {
	mov := &entity.Movement{
		CompanyID:       companyID,
		Reference:       reference,
		Type:            in.Type,
		SourceWarehouse: strings.TrimSpace(in.SourceWarehouse),
		IssuedBy:        in.IssuedBy,
		ReceivedBy:      in.ReceivedBy,
		CustomerName:    in.CustomerName,
		Notes:           in.Notes,
		MovementDate:    in.MovementDate,
		Status:          entity.MovementStatusCompleted,
		CreatedAt:       time.Now().UTC(),
		CreatedBy:       userID,
	}
	if b.SourceWarehouse != nil {
		mov.SourceWarehouseID = b.SourceWarehouse.ID
		mov.SourceWarehouse = b.SourceWarehouse.Name
	}
	if b.DestWarehouse != nil {
		id := b.DestWarehouse.ID
		mov.DestinationWarehouseID = &id
		mov.DestinationWarehouse = b.DestWarehouse.Name
	}
	for i, l := range b.Lines {
		ml := entity.MovementLine{LineNo: i, Quantity: in.Lines[i].Quantity}
		if l.SourceItem != nil {
			ml.SourceItemID = l.SourceItem.ID
			ml.SourceItemName = l.SourceItem.Name
		} else {
			ml.SourceItemName = in.Lines[i].ItemName
		}
		if l.DestItem != nil {
			id := l.DestItem.ID
			ml.DestinationItemID = &id
			ml.DestinationItemName = l.DestItem.Name
			ml.DestinationQuantity = l.DestQuantity
		}
		mov.Lines = append(mov.Lines, ml)
	}
	return mov
}

// recordFailed persiste el lote rechazado con status failed y el motivo por
// línea. El registro fallido consume la referencia: reenviar el mismo lote
// devuelve este rechazo en lugar de re-ejecutarlo. Best-effort: si la
// escritura falla, el rechazo igual llega al cliente, pero la referencia
// queda sin consumir y se deja constancia en el log.
func (uc *UseCase) recordFailed(mov *entity.Movement, berr *domain.BatchError) {
	mov.Status = entity.MovementStatusFailed
	for _, le := range berr.Lines {
		if le.Line >= 0 && le.Line < len(mov.Lines) {
			mov.Lines[le.Line].Reason = le.Message
		}
	}
	if err := uc.movements.Create(mov); err != nil {
		log.Warn().
			Err(err).
			Str("reference", mov.Reference).
			Str("company_id", mov.CompanyID).
			Msg("no se pudo persistir el movimiento rechazado; la referencia queda sin consumir")
	}
}

// backoffJitter devuelve el backoff exponencial del intento n con jitter
// uniforme, para desincronizar lotes que colisionan repetidamente.
func backoffJitter(base time.Duration, attempt int) time.Duration {
	d := base << uint(attempt-1)
	return d + time.Duration(rand.Int63n(int64(d)+1))
}
