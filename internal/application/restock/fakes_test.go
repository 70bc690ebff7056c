package restock_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockLedger-api/internal/application/restock"
	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// fakeStore es la base en memoria de los repos fake del paquete.
type fakeStore struct {
	mu         sync.Mutex
	warehouses []*entity.Warehouse
	items      []*entity.Item
	restocks   []*entity.Restock
	nextWh     int64
	nextItem   int64
	nextRe     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextWh: 1, nextItem: 1, nextRe: 1}
}

func (s *fakeStore) addWarehouse(companyID, name string) *entity.Warehouse {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &entity.Warehouse{ID: s.nextWh, CompanyID: companyID, Name: name}
	s.nextWh++
	s.warehouses = append(s.warehouses, w)
	return w
}

func (s *fakeStore) addItem(companyID string, warehouseID int64, name string, balance int64, price decimal.Decimal) *entity.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := &entity.Item{
		ID: s.nextItem, CompanyID: companyID, WarehouseID: warehouseID,
		Name: name, ClosingBalance: balance, UnitPrice: price,
	}
	s.nextItem++
	s.items = append(s.items, it)
	return it
}

func (s *fakeStore) balance(itemID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == itemID {
			return it.ClosingBalance
		}
	}
	return -1
}

func (s *fakeStore) purchase(id int64) *entity.Restock {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, re := range s.restocks {
		if re.ID == id {
			c := *re
			return &c
		}
	}
	return nil
}

// ── repos ─────────────────────────────────────────────────────────────────────

type fakeWarehouses struct{ s *fakeStore }

var _ repository.WarehouseRepository = (*fakeWarehouses)(nil)

func (r *fakeWarehouses) GetByID(companyID string, id int64) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.warehouses {
		if w.CompanyID == companyID && w.ID == id {
			c := *w
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeWarehouses) GetByName(companyID, name string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.warehouses {
		if w.CompanyID == companyID && w.Name == strings.TrimSpace(name) {
			c := *w
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeWarehouses) Ensure(companyID, name string) (*entity.Warehouse, error) {
	if w, _ := r.GetByName(companyID, name); w != nil {
		return w, nil
	}
	return r.s.addWarehouse(companyID, strings.TrimSpace(name)), nil
}

func (r *fakeWarehouses) ListNames(companyID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var names []string
	for _, w := range r.s.warehouses {
		if w.CompanyID == companyID {
			names = append(names, w.Name)
		}
	}
	return names, nil
}

type fakeItems struct{ s *fakeStore }

var _ repository.ItemRepository = (*fakeItems)(nil)

func (r *fakeItems) GetByID(companyID string, id int64) (*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
		if it.CompanyID == companyID && it.ID == id {
			c := *it
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeItems) GetByName(companyID string, warehouseID int64, name string) (*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
		if it.CompanyID == companyID && it.WarehouseID == warehouseID && it.Name == strings.TrimSpace(name) {
			c := *it
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeItems) FindByName(companyID, name string) ([]*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Item
	for _, it := range r.s.items {
		if it.CompanyID == companyID && it.Name == strings.TrimSpace(name) {
			c := *it
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeItems) Ensure(companyID string, warehouseID int64, name string) (*entity.Item, error) {
	if it, _ := r.GetByName(companyID, warehouseID, name); it != nil {
		return it, nil
	}
	return r.s.addItem(companyID, warehouseID, strings.TrimSpace(name), 0, decimal.Zero), nil
}

func (r *fakeItems) Create(item *entity.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
		if it.CompanyID == item.CompanyID && it.WarehouseID == item.WarehouseID && it.Name == item.Name {
			return fmt.Errorf("%w: artículo %s", domain.ErrDuplicate, item.Name)
		}
	}
	item.ID = r.s.nextItem
	r.s.nextItem++
	c := *item
	r.s.items = append(r.s.items, &c)
	return nil
}

func (r *fakeItems) ListByWarehouse(companyID string, warehouseID int64) ([]*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Item
	for _, it := range r.s.items {
		if it.CompanyID == companyID && it.WarehouseID == warehouseID {
			c := *it
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeItems) GetForUpdate(id int64) (*entity.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
		if it.ID == id {
			c := *it
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeItems) ApplyDelta(id int64, delta int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
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

func (r *fakeItems) UpdatePrice(companyID string, itemID int64, price decimal.Decimal, barcode string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
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

type fakeRestocks struct{ s *fakeStore }

var _ repository.RestockRepository = (*fakeRestocks)(nil)

func (r *fakeRestocks) Create(re *entity.Restock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	re.ID = r.s.nextRe
	r.s.nextRe++
	c := *re
	r.s.restocks = append(r.s.restocks, &c)
	return nil
}

func (r *fakeRestocks) GetByIDAndDate(companyID string, id int64, purchaseDate time.Time) (*entity.Restock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, re := range r.s.restocks {
		if re.CompanyID == companyID && re.ID == id && re.PurchaseDate.Equal(purchaseDate) {
			c := *re
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeRestocks) MarkReversed(companyID string, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, re := range r.s.restocks {
		if re.CompanyID == companyID && re.ID == id {
			if re.Status != entity.RestockStatusActive {
				return fmt.Errorf("%w: la compra %d ya fue revertida", domain.ErrConflict, id)
			}
			re.Status = entity.RestockStatusReversed
			return nil
		}
	}
	return fmt.Errorf("%w: compra %d", domain.ErrNotFound, id)
}

func (r *fakeRestocks) ListRange(companyID string, from, to time.Time, itemName string) ([]*entity.Restock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Restock
	for _, re := range r.s.restocks {
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

// ── tx runner y exporter ──────────────────────────────────────────────────────

// fakeTx serializa transacciones y restaura saldos, estados y compras si fn
// falla. gate, si se asigna, corre al entrar a Run antes de serializar: sirve
// para retener varias transacciones hasta que todas pasaron sus pre-chequeos.
type fakeTx struct {
	s    *fakeStore
	txMu sync.Mutex
	gate func()
}

var _ restock.TxRunner = (*fakeTx)(nil)

func (r *fakeTx) Run(ctx context.Context, fn func(
	items repository.ItemRepository,
	movs repository.MovementRepository,
	restocks repository.RestockRepository,
) error) error {
	if r.gate != nil {
		r.gate()
	}
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.s.mu.Lock()
	balances := make(map[int64]int64, len(r.s.items))
	for _, it := range r.s.items {
		balances[it.ID] = it.ClosingBalance
	}
	statuses := make(map[int64]string, len(r.s.restocks))
	for _, re := range r.s.restocks {
		statuses[re.ID] = re.Status
	}
	nItems, nRestocks := len(r.s.items), len(r.s.restocks)
	r.s.mu.Unlock()

	err := fn(&fakeItems{s: r.s}, nil, &fakeRestocks{s: r.s})
	if err != nil {
		r.s.mu.Lock()
		r.s.items = r.s.items[:nItems]
		r.s.restocks = r.s.restocks[:nRestocks]
		for _, it := range r.s.items {
			if bal, ok := balances[it.ID]; ok {
				it.ClosingBalance = bal
			}
		}
		for _, re := range r.s.restocks {
			if st, ok := statuses[re.ID]; ok {
				re.Status = st
			}
		}
		r.s.mu.Unlock()
	}
	return err
}

type fakeExporter struct {
	lastHeader []string
	lastRows   [][]string
}

var _ restock.TableExporter = (*fakeExporter)(nil)

func (e *fakeExporter) CSV(header []string, rows [][]string) ([]byte, error) {
	e.lastHeader, e.lastRows = header, rows
	return []byte("csv-bytes"), nil
}

func (e *fakeExporter) XLSX(sheet string, header []string, rows [][]string) ([]byte, error) {
	e.lastHeader, e.lastRows = header, rows
	return []byte("xlsx-bytes"), nil
}

// ── fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	s        *fakeStore
	tx       *fakeTx
	exporter *fakeExporter
	uc       *restock.UseCase
}

func newFixture() *fixture {
	s := newFakeStore()
	tx := &fakeTx{s: s}
	exporter := &fakeExporter{}
	uc := restock.NewUseCase(
		&fakeWarehouses{s: s},
		&fakeItems{s: s},
		&fakeRestocks{s: s},
		tx,
		exporter,
	)
	return &fixture{s: s, tx: tx, exporter: exporter, uc: uc}
}
