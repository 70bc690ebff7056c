package movements_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockLedger-api/internal/application/movements"
	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// memDB es una base en memoria compartida por los repos fake. Protege todo
// con un único mutex: suficiente para los tests y fiel al aislamiento que da
// Postgres a nivel de fila.
type memDB struct {
	mu         sync.Mutex
	warehouses []*entity.Warehouse
	items      []*entity.Item
	movements  []*entity.Movement
	restocks   []*entity.Restock
	nextWh     int64
	nextItem   int64
	nextMov    int64
}

func newMemDB() *memDB {
	return &memDB{nextWh: 1, nextItem: 1, nextMov: 1}
}

// ── seeding ───────────────────────────────────────────────────────────────────

func (db *memDB) addWarehouse(companyID, name string) *entity.Warehouse {
	db.mu.Lock()
	defer db.mu.Unlock()
	w := &entity.Warehouse{ID: db.nextWh, CompanyID: companyID, Name: name, CreatedAt: time.Now()}
	db.nextWh++
	db.warehouses = append(db.warehouses, w)
	return w
}

func (db *memDB) addItem(companyID string, warehouseID int64, name string, balance int64) *entity.Item {
	db.mu.Lock()
	defer db.mu.Unlock()
	it := &entity.Item{
		ID: db.nextItem, CompanyID: companyID, WarehouseID: warehouseID,
		Name: name, ClosingBalance: balance,
	}
	db.nextItem++
	db.items = append(db.items, it)
	return it
}

func (db *memDB) balance(itemID int64) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, it := range db.items {
		if it.ID == itemID {
			return it.ClosingBalance
		}
	}
	return -1
}

func (db *memDB) movementsByStatus(status string) []*entity.Movement {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*entity.Movement
	for _, m := range db.movements {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out
}

// snapshot/restore dan el Rollback del tx runner fake.
type memSnapshot struct {
	balances  map[int64]int64
	movements int
	restocks  int
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	s := memSnapshot{
		balances:  make(map[int64]int64, len(db.items)),
		movements: len(db.movements),
		restocks:  len(db.restocks),
	}
	for _, it := range db.items {
		s.balances[it.ID] = it.ClosingBalance
	}
	return s
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, it := range db.items {
		if bal, ok := s.balances[it.ID]; ok {
			it.ClosingBalance = bal
		}
	}
	db.movements = db.movements[:s.movements]
	db.restocks = db.restocks[:s.restocks]
}

func copyItem(it *entity.Item) *entity.Item {
	c := *it
	return &c
}

func copyMovement(m *entity.Movement) *entity.Movement {
	c := *m
	c.Lines = append([]entity.MovementLine(nil), m.Lines...)
	return &c
}

// ── repos fake ────────────────────────────────────────────────────────────────

type memWarehouseRepo struct{ db *memDB }

var _ repository.WarehouseRepository = (*memWarehouseRepo)(nil)

func (r *memWarehouseRepo) GetByID(companyID string, id int64) (*entity.Warehouse, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, w := range r.db.warehouses {
		if w.CompanyID == companyID && w.ID == id {
			c := *w
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memWarehouseRepo) GetByName(companyID, name string) (*entity.Warehouse, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, w := range r.db.warehouses {
		if w.CompanyID == companyID && w.Name == strings.TrimSpace(name) {
			c := *w
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memWarehouseRepo) Ensure(companyID, name string) (*entity.Warehouse, error) {
	if w, _ := r.GetByName(companyID, name); w != nil {
		return w, nil
	}
	return r.db.addWarehouse(companyID, strings.TrimSpace(name)), nil
}

func (r *memWarehouseRepo) ListNames(companyID string) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var names []string
	for _, w := range r.db.warehouses {
		if w.CompanyID == companyID {
			names = append(names, w.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

type memItemRepo struct{ db *memDB }

var _ repository.ItemRepository = (*memItemRepo)(nil)

func (r *memItemRepo) GetByID(companyID string, id int64) (*entity.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, it := range r.db.items {
		if it.CompanyID == companyID && it.ID == id {
			return copyItem(it), nil
		}
	}
	return nil, nil
}

func (r *memItemRepo) GetByName(companyID string, warehouseID int64, name string) (*entity.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, it := range r.db.items {
		if it.CompanyID == companyID && it.WarehouseID == warehouseID && it.Name == strings.TrimSpace(name) {
			return copyItem(it), nil
		}
	}
	return nil, nil
}

func (r *memItemRepo) FindByName(companyID, name string) ([]*entity.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Item
	for _, it := range r.db.items {
		if it.CompanyID == companyID && it.Name == strings.TrimSpace(name) {
			out = append(out, copyItem(it))
		}
	}
	return out, nil
}

func (r *memItemRepo) Ensure(companyID string, warehouseID int64, name string) (*entity.Item, error) {
	if it, _ := r.GetByName(companyID, warehouseID, name); it != nil {
		return it, nil
	}
	return r.db.addItem(companyID, warehouseID, strings.TrimSpace(name), 0), nil
}

func (r *memItemRepo) Create(item *entity.Item) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, it := range r.db.items {
		if it.CompanyID == item.CompanyID && it.WarehouseID == item.WarehouseID && it.Name == item.Name {
			return fmt.Errorf("%w: artículo %s", domain.ErrDuplicate, item.Name)
		}
	}
	item.ID = r.db.nextItem
	r.db.nextItem++
	r.db.items = append(r.db.items, copyItem(item))
	return nil
}

func (r *memItemRepo) ListByWarehouse(companyID string, warehouseID int64) ([]*entity.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Item
	for _, it := range r.db.items {
		if it.CompanyID == companyID && it.WarehouseID == warehouseID {
			out = append(out, copyItem(it))
		}
	}
	return out, nil
}

func (r *memItemRepo) GetForUpdate(id int64) (*entity.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, it := range r.db.items {
		if it.ID == id {
			return copyItem(it), nil
		}
	}
	return nil, nil
}

func (r *memItemRepo) ApplyDelta(id int64, delta int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, it := range r.db.items {
		if it.ID == id {
			if it.ClosingBalance+delta < 0 {
				return 0, fmt.Errorf("%w: artículo %d", domain.ErrInsufficientStock, id)
			}
			it.ClosingBalance += delta
			return it.ClosingBalance, nil
		}
	}
	return 0, fmt.Errorf("%w: artículo %d", domain.ErrNotFound, id)
}

func (r *memItemRepo) UpdatePrice(companyID string, itemID int64, price decimal.Decimal, barcode string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, it := range r.db.items {
		if it.CompanyID == companyID && it.ID == itemID {
			it.UnitPrice = price
			if barcode != "" {
				it.Barcode = barcode
			}
			return true, nil
		}
	}
	return false, nil
}

type memMovementRepo struct{ db *memDB }

var _ repository.MovementRepository = (*memMovementRepo)(nil)

func (r *memMovementRepo) Create(m *entity.Movement) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, prev := range r.db.movements {
		if prev.CompanyID == m.CompanyID && prev.Reference == m.Reference {
			return fmt.Errorf("%w: referencia %s", domain.ErrDuplicate, m.Reference)
		}
	}
	m.ID = r.db.nextMov
	r.db.nextMov++
	stored := copyMovement(m)
	for i := range stored.Lines {
		stored.Lines[i].MovementID = stored.ID
	}
	r.db.movements = append(r.db.movements, stored)
	return nil
}

func (r *memMovementRepo) GetByID(companyID string, id int64) (*entity.Movement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.movements {
		if m.CompanyID == companyID && m.ID == id {
			return copyMovement(m), nil
		}
	}
	return nil, nil
}

func (r *memMovementRepo) GetByReference(companyID, reference string) (*entity.Movement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, m := range r.db.movements {
		if m.CompanyID == companyID && m.Reference == reference {
			return copyMovement(m), nil
		}
	}
	return nil, nil
}

// matchesFilter replica el filtrado SQL del repositorio real: tipo y bodega
// por igualdad (origen o destino), fechas inclusivas y keyword como substring
// sin distinguir mayúsculas sobre emisor, bodegas, cliente y artículos de las
// líneas.
func matchesFilter(m *entity.Movement, f repository.MovementFilter) bool {
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.Warehouse != "" && m.SourceWarehouse != f.Warehouse && m.DestinationWarehouse != f.Warehouse {
		return false
	}
	if f.From != nil && m.MovementDate.Before(*f.From) {
		return false
	}
	if f.To != nil && m.MovementDate.After(*f.To) {
		return false
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		hit := strings.Contains(strings.ToLower(m.IssuedBy), kw) ||
			strings.Contains(strings.ToLower(m.SourceWarehouse), kw) ||
			strings.Contains(strings.ToLower(m.DestinationWarehouse), kw) ||
			strings.Contains(strings.ToLower(m.CustomerName), kw)
		for _, l := range m.Lines {
			hit = hit ||
				strings.Contains(strings.ToLower(l.SourceItemName), kw) ||
				strings.Contains(strings.ToLower(l.DestinationItemName), kw)
		}
		if !hit {
			return false
		}
	}
	return true
}

func (r *memMovementRepo) List(companyID string, f repository.MovementFilter, limit, offset int) ([]*entity.Movement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*entity.Movement
	for _, m := range r.db.movements {
		if m.CompanyID != companyID || !matchesFilter(m, f) {
			continue
		}
		all = append(all, copyMovement(m))
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].MovementDate.Equal(all[j].MovementDate) {
			return all[i].MovementDate.After(all[j].MovementDate)
		}
		return all[i].ID < all[j].ID
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *memMovementRepo) CountByType(companyID string, f repository.MovementFilter) (map[string]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := make(map[string]int64)
	for _, m := range r.db.movements {
		if m.CompanyID == companyID && m.Status == entity.MovementStatusCompleted && matchesFilter(m, f) {
			counts[m.Type]++
		}
	}
	return counts, nil
}

type memRestockRepo struct{ db *memDB }

var _ repository.RestockRepository = (*memRestockRepo)(nil)

func (r *memRestockRepo) Create(re *entity.Restock) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	re.ID = int64(len(r.db.restocks) + 1)
	c := *re
	r.db.restocks = append(r.db.restocks, &c)
	return nil
}

func (r *memRestockRepo) GetByIDAndDate(companyID string, id int64, purchaseDate time.Time) (*entity.Restock, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, re := range r.db.restocks {
		if re.CompanyID == companyID && re.ID == id && re.PurchaseDate.Equal(purchaseDate) {
			c := *re
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memRestockRepo) MarkReversed(companyID string, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, re := range r.db.restocks {
		if re.CompanyID == companyID && re.ID == id {
			re.Status = entity.RestockStatusReversed
			return nil
		}
	}
	return fmt.Errorf("%w: compra %d", domain.ErrNotFound, id)
}

func (r *memRestockRepo) ListRange(companyID string, from, to time.Time, itemName string) ([]*entity.Restock, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*entity.Restock
	for _, re := range r.db.restocks {
		if re.CompanyID != companyID || re.PurchaseDate.Before(from) || re.PurchaseDate.After(to) {
			continue
		}
		if itemName != "" && !strings.Contains(strings.ToLower(re.ItemName), strings.ToLower(itemName)) {
			continue
		}
		c := *re
		out = append(out, &c)
	}
	return out, nil
}

// ── tx runner fake ────────────────────────────────────────────────────────────

// memTxRunner serializa las transacciones con un mutex propio y restaura el
// estado de la base si fn falla (Rollback). Las fn de transacciones
// concurrentes se ejecutan estrictamente una tras otra, igual que con los
// bloqueos FOR UPDATE reales sobre las mismas filas.
type memTxRunner struct {
	db   *memDB
	txMu sync.Mutex
}

var _ movements.TxRunner = (*memTxRunner)(nil)

func (r *memTxRunner) Run(ctx context.Context, fn func(
	items repository.ItemRepository,
	movs repository.MovementRepository,
	restocks repository.RestockRepository,
) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	snap := r.db.snapshot()
	err := fn(&memItemRepo{db: r.db}, &memMovementRepo{db: r.db}, &memRestockRepo{db: r.db})
	if err != nil {
		r.db.restore(snap)
	}
	return err
}

// hookTxRunner intercala un hook antes de cada Run: si el hook devuelve error
// la transacción "falla" sin ejecutarse (simula conflictos de serialización);
// si devuelve nil, delega en el runner real. Los hooks se consumen en orden.
type hookTxRunner struct {
	inner movements.TxRunner
	mu    sync.Mutex
	hooks []func() error
	calls int
}

var _ movements.TxRunner = (*hookTxRunner)(nil)

func (r *hookTxRunner) Run(ctx context.Context, fn func(
	items repository.ItemRepository,
	movs repository.MovementRepository,
	restocks repository.RestockRepository,
) error) error {
	r.mu.Lock()
	idx := r.calls
	r.calls++
	var hook func() error
	if idx < len(r.hooks) {
		hook = r.hooks[idx]
	}
	r.mu.Unlock()

	if hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}
	return r.inner.Run(ctx, fn)
}

func (r *hookTxRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// ── exporter y pdf fake ───────────────────────────────────────────────────────

type memExporter struct {
	lastFormat string
	lastSheet  string
	lastHeader []string
	lastRows   [][]string
}

var _ movements.TableExporter = (*memExporter)(nil)

func (e *memExporter) CSV(header []string, rows [][]string) ([]byte, error) {
	e.lastFormat, e.lastHeader, e.lastRows = "csv", header, rows
	return []byte("csv-bytes"), nil
}

func (e *memExporter) XLSX(sheet string, header []string, rows [][]string) ([]byte, error) {
	e.lastFormat, e.lastSheet, e.lastHeader, e.lastRows = "xlsx", sheet, header, rows
	return []byte("xlsx-bytes"), nil
}

type memPDF struct {
	lastTitle  string
	lastHeader []string
	lastRows   [][]string
}

var _ movements.ReportPDFGenerator = (*memPDF)(nil)

func (p *memPDF) GenerateMovementReport(_ context.Context, title string, header []string, rows [][]string) ([]byte, error) {
	p.lastTitle, p.lastHeader, p.lastRows = title, header, rows
	return []byte("%PDF-fake"), nil
}

// ── fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	db       *memDB
	tx       *hookTxRunner
	exporter *memExporter
	pdf      *memPDF
	uc       *movements.UseCase
}

// newFixture arma un caso de uso completo sobre la base en memoria, con
// reintentos rápidos para que los tests de conflicto no duerman de verdad.
func newFixture(hooks ...func() error) *fixture {
	db := newMemDB()
	tx := &hookTxRunner{inner: &memTxRunner{db: db}, hooks: hooks}
	exporter := &memExporter{}
	pdf := &memPDF{}
	uc := movements.NewUseCase(
		&memWarehouseRepo{db: db},
		&memItemRepo{db: db},
		&memMovementRepo{db: db},
		tx,
		exporter,
		pdf,
		movements.RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
	)
	return &fixture{db: db, tx: tx, exporter: exporter, pdf: pdf, uc: uc}
}
