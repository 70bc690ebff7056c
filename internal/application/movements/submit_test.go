package movements_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/StockLedger-api/internal/application/movements"
	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
)

const (
	testCompany = "co-1"
	testUser    = "user-1"
)

var testDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func ventaInput(reference, warehouse, item string, qty int64) movements.BatchInput {
	return movements.BatchInput{
		Reference:       reference,
		Type:            entity.MovementTypeCustomerSale,
		SourceWarehouse: warehouse,
		Lines:           []movements.LineInput{{ItemName: item, Quantity: qty}},
		IssuedBy:        "maria",
		MovementDate:    testDate,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Camino feliz
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_VentaDescuentaSaldo(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "Central")
	it := f.db.addItem(testCompany, 1, "Arroz", 50)

	mov, err := f.uc.Submit(context.Background(), testCompany, testUser, ventaInput("ref-1", "Central", "Arroz", 30))
	require.NoError(t, err)
	require.NotNil(t, mov)

	assert.Equal(t, entity.MovementStatusCompleted, mov.Status)
	assert.Equal(t, "ref-1", mov.Reference)
	assert.Equal(t, testUser, mov.CreatedBy)
	require.Len(t, mov.Lines, 1)
	assert.Equal(t, it.ID, mov.Lines[0].SourceItemID)
	assert.Equal(t, int64(30), mov.Lines[0].Quantity)
	assert.Equal(t, int64(20), f.db.balance(it.ID), "50 - 30 = 20")
}

func TestSubmit_SinReferenciaGeneraUna(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "Central")
	f.db.addItem(testCompany, 1, "Arroz", 50)

	mov, err := f.uc.Submit(context.Background(), testCompany, testUser, ventaInput("", "Central", "Arroz", 10))
	require.NoError(t, err)
	assert.NotEmpty(t, mov.Reference, "sin referencia del caller se genera una")
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotencia por referencia
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_ReenvioDevuelveElOriginalSinReaplicar(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "Central")
	it := f.db.addItem(testCompany, 1, "Arroz", 50)

	in := ventaInput("ref-dup", "Central", "Arroz", 30)
	first, err := f.uc.Submit(context.Background(), testCompany, testUser, in)
	require.NoError(t, err)

	second, err := f.uc.Submit(context.Background(), testCompany, testUser, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "el reenvío devuelve el movimiento original")
	assert.Equal(t, int64(20), f.db.balance(it.ID), "el saldo solo cambia una vez")
	assert.Len(t, f.db.movementsByStatus(entity.MovementStatusCompleted), 1)
}

func TestSubmit_ReenvioDeRechazoDevuelveElRechazo(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "Central")
	it := f.db.addItem(testCompany, 1, "Arroz", 10)

	in := ventaInput("ref-corto", "Central", "Arroz", 99)
	_, err := f.uc.Submit(context.Background(), testCompany, testUser, in)
	require.Error(t, err, "el primer envío se rechaza por stock insuficiente")

	// El reenvío con la misma referencia devuelve el registro fallido, sin
	// volver a intentar el lote.
	replay, err := f.uc.Submit(context.Background(), testCompany, testUser, in)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusFailed, replay.Status)
	assert.Equal(t, int64(10), f.db.balance(it.ID))
}

func TestSubmit_CarreraDeDuplicadosDevuelveElGanador(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "Central")
	f.db.addItem(testCompany, 1, "Arroz", 50)

	// El hook simula al rival: confirma un movimiento con la misma referencia
	// entre el pre-chequeo de idempotencia y la transacción, y la tx devuelve
	// la violación de unicidad que produciría el índice.
	rival := &entity.Movement{
		CompanyID: testCompany, Reference: "ref-race",
		Type: entity.MovementTypeCustomerSale, SourceWarehouseID: 1,
		SourceWarehouse: "Central", IssuedBy: "rival",
		MovementDate: testDate, Status: entity.MovementStatusCompleted,
	}
	f.tx.hooks = []func() error{func() error {
		repo := &memMovementRepo{db: f.db}
		if err := repo.Create(rival); err != nil {
			return err
		}
		return fmt.Errorf("%w: referencia ref-race", domain.ErrDuplicate)
	}}

	mov, err := f.uc.Submit(context.Background(), testCompany, testUser, ventaInput("ref-race", "Central", "Arroz", 30))
	require.NoError(t, err)
	assert.Equal(t, rival.ID, mov.ID, "la carrera se resuelve devolviendo el movimiento del ganador")
	assert.Equal(t, "rival", mov.IssuedBy)
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados con remapeo
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_TrasladoConRemapeoDeNombre(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "A")
	f.db.addWarehouse(testCompany, "B")
	src := f.db.addItem(testCompany, 1, "Rice", 20)
	dst := f.db.addItem(testCompany, 2, "White Rice", 5)

	mov, err := f.uc.Submit(context.Background(), testCompany, testUser, movements.BatchInput{
		Reference:            "ref-remap",
		Type:                 entity.MovementTypeWarehouseTransfer,
		SourceWarehouse:      "A",
		DestinationWarehouse: "B",
		Lines:                []movements.LineInput{{ItemName: "Rice", ItemNameTo: "White Rice", Quantity: 20}},
		IssuedBy:             "maria",
		ReceivedBy:           "pedro",
		MovementDate:         testDate,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.db.balance(src.ID), "origen queda en cero")
	assert.Equal(t, int64(25), f.db.balance(dst.ID), "destino acumula bajo el nombre remapeado")
	require.Len(t, mov.Lines, 1)
	assert.Equal(t, "White Rice", mov.Lines[0].DestinationItemName)
	assert.Equal(t, int64(20), mov.Lines[0].DestinationQuantity)
}

func TestSubmit_TrasladoCreaBodegaYArticuloDestino(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "A")
	src := f.db.addItem(testCompany, 1, "Rice", 20)

	_, err := f.uc.Submit(context.Background(), testCompany, testUser, movements.BatchInput{
		Type:                 entity.MovementTypeWarehouseTransfer,
		SourceWarehouse:      "A",
		DestinationWarehouse: "Norte", // no existe todavía
		Lines:                []movements.LineInput{{ItemName: "Rice", Quantity: 8}},
		IssuedBy:             "maria",
		ReceivedBy:           "pedro",
		MovementDate:         testDate,
	})
	require.NoError(t, err)

	wh, _ := (&memWarehouseRepo{db: f.db}).GetByName(testCompany, "Norte")
	require.NotNil(t, wh, "la bodega destino se crea implícitamente")
	created, _ := (&memItemRepo{db: f.db}).GetByName(testCompany, wh.ID, "Rice")
	require.NotNil(t, created, "el artículo destino hereda el nombre del origen")
	assert.Equal(t, int64(8), created.ClosingBalance)
	assert.Equal(t, int64(12), f.db.balance(src.ID))
}

func TestSubmit_TrasladoConCantidadDestinoDistinta(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "A")
	f.db.addWarehouse(testCompany, "B")
	src := f.db.addItem(testCompany, 1, "Bulto Arroz 25kg", 4)
	dst := f.db.addItem(testCompany, 2, "Arroz 1kg", 0)

	// Un bulto de origen se recibe reempacado: 2 bultos -> 50 unidades.
	_, err := f.uc.Submit(context.Background(), testCompany, testUser, movements.BatchInput{
		Type:                 entity.MovementTypeWarehouseTransfer,
		SourceWarehouse:      "A",
		DestinationWarehouse: "B",
		Lines: []movements.LineInput{{
			ItemName: "Bulto Arroz 25kg", ItemNameTo: "Arroz 1kg",
			Quantity: 2, QuantityTo: 50,
		}},
		IssuedBy:     "maria",
		ReceivedBy:   "pedro",
		MovementDate: testDate,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.db.balance(src.ID))
	assert.Equal(t, int64(50), f.db.balance(dst.ID))
}

// ──────────────────────────────────────────────────────────────────────────────
// Rechazos y registro de fallidos
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_BajaConNotasCortasRechazada(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "Central")
	it := f.db.addItem(testCompany, 1, "Arroz", 50)

	in := ventaInput("ref-baja", "Central", "Arroz", 5)
	in.Type = entity.MovementTypeStockout
	in.Notes = "bad"

	_, err := f.uc.Submit(context.Background(), testCompany, testUser, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Equal(t, int64(50), f.db.balance(it.ID), "el rechazo no toca el saldo")

	failed := f.db.movementsByStatus(entity.MovementStatusFailed)
	require.Len(t, failed, 1, "el rechazo queda en el libro con status failed")
	assert.Equal(t, "ref-baja", failed[0].Reference)
}

// failedWriteRepo deja caer las escrituras de movimientos rechazados,
// simulando una base que falla justo al registrar el rechazo.
type failedWriteRepo struct {
	*memMovementRepo
}

func (r *failedWriteRepo) Create(m *entity.Movement) error {
	if m.Status == entity.MovementStatusFailed {
		return fmt.Errorf("%w: escritura de rechazo", domain.ErrPersistence)
	}
	return r.memMovementRepo.Create(m)
}

func TestSubmit_FalloAlPersistirElRechazoQuedaEnElLog(t *testing.T) {
	db := newMemDB()
	db.addWarehouse(testCompany, "Central")
	it := db.addItem(testCompany, 1, "Arroz", 10)

	var buf bytes.Buffer
	prev := zlog.Logger
	zlog.Logger = zerolog.New(&buf)
	defer func() { zlog.Logger = prev }()

	uc := movements.NewUseCase(
		&memWarehouseRepo{db: db},
		&memItemRepo{db: db},
		&failedWriteRepo{memMovementRepo: &memMovementRepo{db: db}},
		&memTxRunner{db: db},
		&memExporter{},
		&memPDF{},
		movements.RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
	)

	_, err := uc.Submit(context.Background(), testCompany, testUser, ventaInput("ref-caida", "Central", "Arroz", 30))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock), "el cliente recibe el rechazo original")
	assert.Equal(t, int64(10), db.balance(it.ID))

	// El rechazo no quedó persistido: la referencia sigue libre y el log lo avisa.
	assert.Empty(t, db.movementsByStatus(entity.MovementStatusFailed))
	assert.Contains(t, buf.String(), "no se pudo persistir el movimiento rechazado")
	assert.Contains(t, buf.String(), "ref-caida")
}

func TestSubmit_BodegaOrigenInexistente(t *testing.T) {
	f := newFixture()

	_, err := f.uc.Submit(context.Background(), testCompany, testUser, ventaInput("ref-x", "Fantasma", "Arroz", 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSubmit_LoteAtomicoTodoONada(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "Central")
	ok := f.db.addItem(testCompany, 1, "Arroz", 100)
	corto := f.db.addItem(testCompany, 1, "Frijol", 3)

	in := ventaInput("ref-atomic", "Central", "Arroz", 10)
	in.Lines = append(in.Lines, movements.LineInput{ItemName: "Frijol", Quantity: 5})

	_, err := f.uc.Submit(context.Background(), testCompany, testUser, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	assert.Equal(t, int64(100), f.db.balance(ok.ID), "la línea buena tampoco se aplica")
	assert.Equal(t, int64(3), f.db.balance(corto.ID))

	failed := f.db.movementsByStatus(entity.MovementStatusFailed)
	require.Len(t, failed, 1)
	require.Len(t, failed[0].Lines, 2)
	assert.Empty(t, failed[0].Lines[0].Reason)
	assert.Contains(t, failed[0].Lines[1].Reason, "stock insuficiente",
		"la línea culpable lleva el motivo del rechazo")
}

func TestSubmit_RechequeoBajoBloqueoDetectaSaldoCambiado(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "Central")
	it := f.db.addItem(testCompany, 1, "Arroz", 50)

	// Entre la validación y la transacción otro lote consume el saldo: el
	// re-chequeo bajo bloqueo debe atraparlo y no dejar el saldo negativo.
	f.tx.hooks = []func() error{func() error {
		repo := &memItemRepo{db: f.db}
		_, err := repo.ApplyDelta(it.ID, -45)
		return err
	}}

	_, err := f.uc.Submit(context.Background(), testCompany, testUser, ventaInput("ref-carrera", "Central", "Arroz", 30))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, int64(5), f.db.balance(it.ID), "solo se aplicó el consumo del rival")
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia y reintentos
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_ConcurrenciaSoloUnoGana(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "Central")
	it := f.db.addItem(testCompany, 1, "Arroz", 50)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("ref-conc-%d", i)
			_, errs[i] = f.uc.Submit(context.Background(), testCompany, testUser, ventaInput(ref, "Central", "Arroz", 30))
		}(i)
	}
	wg.Wait()

	exitos := 0
	for _, err := range errs {
		if err == nil {
			exitos++
		} else {
			assert.True(t, errors.Is(err, domain.ErrInsufficientStock),
				"el perdedor debe recibir stock insuficiente, no otra cosa: %v", err)
		}
	}
	assert.Equal(t, 1, exitos, "exactamente uno de los dos lotes gana")
	assert.Equal(t, int64(20), f.db.balance(it.ID), "50 - 30 = 20, nunca negativo")
	assert.Len(t, f.db.movementsByStatus(entity.MovementStatusCompleted), 1)
}

func TestSubmit_ConflictoTransitorioSeReintenta(t *testing.T) {
	conflicto := func() error {
		return fmt.Errorf("%w: deadlock detectado", domain.ErrConcurrentModification)
	}
	f := newFixture(conflicto, nil) // primer intento falla, segundo delega
	f.db.addWarehouse(testCompany, "Central")
	it := f.db.addItem(testCompany, 1, "Arroz", 50)

	mov, err := f.uc.Submit(context.Background(), testCompany, testUser, ventaInput("ref-retry", "Central", "Arroz", 30))
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusCompleted, mov.Status)
	assert.Equal(t, int64(20), f.db.balance(it.ID))
	assert.Equal(t, 2, f.tx.callCount())
}

func TestSubmit_ReintentosAgotados(t *testing.T) {
	conflicto := func() error {
		return fmt.Errorf("%w: deadlock detectado", domain.ErrConcurrentModification)
	}
	f := newFixture(conflicto, conflicto, conflicto)
	f.db.addWarehouse(testCompany, "Central")
	it := f.db.addItem(testCompany, 1, "Arroz", 50)

	_, err := f.uc.Submit(context.Background(), testCompany, testUser, ventaInput("ref-agotado", "Central", "Arroz", 30))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConcurrentModification))
	assert.Equal(t, 3, f.tx.callCount(), "se agotan exactamente los intentos configurados")
	assert.Equal(t, int64(50), f.db.balance(it.ID))
}

func TestSubmit_ContextoCanceladoCortaLosReintentos(t *testing.T) {
	conflicto := func() error {
		return fmt.Errorf("%w: deadlock detectado", domain.ErrConcurrentModification)
	}
	f := newFixture(conflicto, conflicto, conflicto)
	f.db.addWarehouse(testCompany, "Central")
	f.db.addItem(testCompany, 1, "Arroz", 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.uc.Submit(ctx, testCompany, testUser, ventaInput("ref-cancel", "Central", "Arroz", 30))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, f.tx.callCount(), 3, "no se agota el presupuesto con el contexto cancelado")
}

// ──────────────────────────────────────────────────────────────────────────────
// Conservación
// ──────────────────────────────────────────────────────────────────────────────

// TestSubmit_ConservacionEnTraslados verifica que un traslado sin remapeo de
// cantidades mueve stock sin crearlo ni destruirlo: la suma total antes y
// después es la misma.
func TestSubmit_ConservacionEnTraslados(t *testing.T) {
	f := newFixture()
	f.db.addWarehouse(testCompany, "A")
	f.db.addWarehouse(testCompany, "B")
	src := f.db.addItem(testCompany, 1, "Arroz", 40)
	dst := f.db.addItem(testCompany, 2, "Arroz", 10)

	for i, qty := range []int64{5, 15, 7} {
		_, err := f.uc.Submit(context.Background(), testCompany, testUser, movements.BatchInput{
			Reference:            fmt.Sprintf("ref-cons-%d", i),
			Type:                 entity.MovementTypeWarehouseTransfer,
			SourceWarehouse:      "A",
			DestinationWarehouse: "B",
			Lines:                []movements.LineInput{{ItemName: "Arroz", Quantity: qty}},
			IssuedBy:             "maria",
			ReceivedBy:           "pedro",
			MovementDate:         testDate,
		})
		require.NoError(t, err)
	}

	total := f.db.balance(src.ID) + f.db.balance(dst.ID)
	assert.Equal(t, int64(50), total, "el traslado conserva el stock total")
	assert.Equal(t, int64(13), f.db.balance(src.ID))
	assert.Equal(t, int64(37), f.db.balance(dst.ID))
}
