// Package restock implementa las compras de inventario: alta de artículos con
// stock inicial, reposición por lote, mantenimiento de precios y la reversa
// auditable de una compra. Toda escritura de saldo pasa por la misma
// disciplina transaccional del libro de movimientos.
package restock

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/StockLedger-api/internal/application/dto"
	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// historyHeader son las columnas fijas del export de historial de compras.
var historyHeader = []string{
	"Item", "Supplier", "Quantity", "Unit Price", "Total Cost", "Total Paid",
	"Date", "Status", "Warehouse", "Employee",
}

// UseCase orquesta las compras de restock.
type UseCase struct {
	warehouses repository.WarehouseRepository
	items      repository.ItemRepository
	restocks   repository.RestockRepository
	tx         TxRunner
	exporter   TableExporter
}

// NewUseCase construye el caso de uso con sus dependencias (DIP).
func NewUseCase(
	warehouses repository.WarehouseRepository,
	items repository.ItemRepository,
	restocks repository.RestockRepository,
	tx TxRunner,
	exporter TableExporter,
) *UseCase {
	return &UseCase{warehouses: warehouses, items: items, restocks: restocks, tx: tx, exporter: exporter}
}

// CreateItem da de alta un artículo nuevo con su stock inicial y registra la
// compra correspondiente, todo en una transacción. NewWarehouseName crea la
// bodega en el mismo paso; WarehouseName exige que exista.
func (uc *UseCase) CreateItem(ctx context.Context, companyID, userID string, req dto.NewItemRequest) (*dto.RestockResponse, error) {
	wh, err := uc.resolveWarehouse(companyID, req.WarehouseName, req.NewWarehouseName)
	if err != nil {
		return nil, err
	}

	existing, err := uc.items.GetByName(companyID, wh.ID, req.ItemName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: el artículo ya existe en la bodega %s", domain.ErrDuplicate, wh.Name)
	}

	purchaseDate, err := dto.ParseDate(req.PurchaseDate)
	if err != nil {
		return nil, fmt.Errorf("%w: purchase_date inválida", domain.ErrInvalidInput)
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: due_date inválida", domain.ErrInvalidInput)
	}

	totalCost := req.UnitPrice.Mul(decimal.NewFromInt(req.SuppliedQuantity))
	pay, err := resolvePayment(req.PaymentStatus, req.PaymentMethod, totalCost, req.TotalPricePaid, dueDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &entity.Item{
		CompanyID:      companyID,
		WarehouseID:    wh.ID,
		Name:           strings.TrimSpace(req.ItemName),
		ClosingBalance: req.SuppliedQuantity,
		UnitPrice:      req.UnitPrice,
		Barcode:        req.Barcode,
		ReorderLevel:   req.ReorderLevel,
		SupplierName:   req.SupplierName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	purchase := &entity.Restock{
		CompanyID:     companyID,
		ItemName:      item.Name,
		WarehouseID:   wh.ID,
		WarehouseName: wh.Name,
		SupplierName:  req.SupplierName,
		SupplierPhone: req.SupplierPhone,
		Quantity:      req.SuppliedQuantity,
		UnitPrice:     req.UnitPrice,
		TotalCost:     totalCost,
		PaymentStatus: pay.status,
		PaymentMethod: pay.method,
		TotalPaid:     pay.paid,
		AmountBalance: pay.balance,
		DueDate:       dueDate,
		PurchaseDate:  purchaseDate,
		Notes:         req.Notes,
		EmployeeName:  req.EmployeeName,
		Status:        entity.RestockStatusActive,
		CreatedAt:     now,
		CreatedBy:     userID,
	}

	err = uc.tx.Run(ctx, func(items repository.ItemRepository, _ repository.MovementRepository, restocks repository.RestockRepository) error {
		if err := items.Create(item); err != nil {
			return err
		}
		purchase.ItemID = item.ID
		return restocks.Create(purchase)
	})
	if err != nil {
		return nil, err
	}
	return toRestockResponse(purchase, item.ClosingBalance), nil
}

// BatchRestock incrementa el stock de artículos existentes y registra una
// fila de compra por línea. Los incrementos se aplican en orden global de
// bloqueo, igual que los lotes de movimiento.
func (uc *UseCase) BatchRestock(ctx context.Context, companyID, userID string, req dto.BatchRestockRequest) (*dto.BatchRestockResponse, error) {
	wh, err := uc.warehouses.GetByName(companyID, req.WarehouseName)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, req.WarehouseName)
	}

	purchaseDate, err := dto.ParseDate(req.PurchaseDate)
	if err != nil {
		return nil, fmt.Errorf("%w: purchase_date inválida", domain.ErrInvalidInput)
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: due_date inválida", domain.ErrInvalidInput)
	}

	rows, berr := uc.resolveLines(companyID, wh, req.Items)
	if berr != nil {
		return nil, berr
	}

	grandTotal := decimal.Zero
	for _, r := range rows {
		grandTotal = grandTotal.Add(r.total)
	}
	pay, err := resolvePayment(req.PaymentStatus, req.PaymentMethod, grandTotal, req.TotalPricePaid, dueDate)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	purchases := make([]*entity.Restock, len(rows))
	remaining := pay.paid
	for i, r := range rows {
		rowPaid := decimal.Min(remaining, r.total)
		remaining = remaining.Sub(rowPaid)
		purchases[i] = &entity.Restock{
			CompanyID:     companyID,
			ItemID:        r.item.ID,
			ItemName:      r.item.Name,
			WarehouseID:   r.item.WarehouseID,
			WarehouseName: r.warehouseName,
			SupplierName:  req.SupplierName,
			SupplierPhone: req.SupplierPhone,
			Quantity:      r.quantity,
			UnitPrice:     r.unitPrice,
			TotalCost:     r.total,
			PaymentStatus: pay.status,
			PaymentMethod: pay.method,
			TotalPaid:     rowPaid,
			AmountBalance: r.total.Sub(rowPaid),
			DueDate:       dueDate,
			PurchaseDate:  purchaseDate,
			Notes:         req.Notes,
			EmployeeName:  req.EmployeeName,
			Status:        entity.RestockStatusActive,
			CreatedAt:     now,
			CreatedBy:     userID,
		}
	}

	// Incrementos en orden global (warehouse_id, item_id) ascendente.
	order := make([]resolvedLine, len(rows))
	copy(order, rows)
	sort.Slice(order, func(i, j int) bool {
		if order[i].item.WarehouseID != order[j].item.WarehouseID {
			return order[i].item.WarehouseID < order[j].item.WarehouseID
		}
		return order[i].item.ID < order[j].item.ID
	})

	err = uc.tx.Run(ctx, func(items repository.ItemRepository, _ repository.MovementRepository, restocks repository.RestockRepository) error {
		for _, r := range order {
			if _, err := items.ApplyDelta(r.item.ID, r.quantity); err != nil {
				return err
			}
		}
		for _, p := range purchases {
			if err := restocks.Create(p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &dto.BatchRestockResponse{
		PurchaseIDs:   make([]int64, 0, len(purchases)),
		ItemsCount:    len(purchases),
		GrandTotal:    grandTotal,
		TotalPaid:     pay.paid,
		AmountBalance: grandTotal.Sub(pay.paid),
	}
	for _, p := range purchases {
		out.PurchaseIDs = append(out.PurchaseIDs, p.ID)
	}
	return out, nil
}

// BulkUpdatePrices actualiza precio y barcode de varios artículos. No toca el
// libro ni los saldos. Devuelve cuántos se actualizaron y los errores por
// artículo; no es transaccional entre artículos a propósito: un precio
// inválido no debe descartar los demás.
func (uc *UseCase) BulkUpdatePrices(companyID string, req dto.BulkPriceUpdateRequest) (*dto.BulkPriceUpdateResponse, error) {
	var wh *entity.Warehouse
	if req.WarehouseName != "" {
		var err error
		wh, err = uc.warehouses.GetByName(companyID, req.WarehouseName)
		if err != nil {
			return nil, err
		}
		if wh == nil {
			return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, req.WarehouseName)
		}
	}

	resp := &dto.BulkPriceUpdateResponse{}
	for _, u := range req.Updates {
		if u.NewPrice.IsNegative() {
			resp.Errors = append(resp.Errors, fmt.Sprintf("artículo %d: precio negativo", u.ItemID))
			continue
		}
		if wh != nil {
			it, err := uc.items.GetByID(companyID, u.ItemID)
			if err != nil {
				return nil, err
			}
			if it == nil || it.WarehouseID != wh.ID {
				resp.Errors = append(resp.Errors, fmt.Sprintf("artículo %d: no pertenece a la bodega %s", u.ItemID, wh.Name))
				continue
			}
		}
		ok, err := uc.items.UpdatePrice(companyID, u.ItemID, u.NewPrice, u.NewBarcode)
		if err != nil {
			return nil, err
		}
		if !ok {
			resp.Errors = append(resp.Errors, fmt.Sprintf("artículo %d: no encontrado", u.ItemID))
			continue
		}
		resp.Updated++
	}
	return resp, nil
}

// Reverse revierte una compra identificada por id y fecha: marca la fila
// reversed y descuenta el stock que aportó. Falla con ErrInsufficientStock si
// ese stock ya fue consumido por movimientos posteriores, y con ErrConflict
// si la compra ya fue revertida (el estado se re-chequea bajo la transacción).
func (uc *UseCase) Reverse(ctx context.Context, companyID string, id int64, dateStr string) (*dto.RestockResponse, error) {
	date, err := dto.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("%w: fecha inválida", domain.ErrInvalidInput)
	}
	purchase, err := uc.restocks.GetByIDAndDate(companyID, id, date)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, fmt.Errorf("%w: compra %d en %s", domain.ErrNotFound, id, dateStr)
	}
	if purchase.Status == entity.RestockStatusReversed {
		return nil, fmt.Errorf("%w: la compra ya fue revertida", domain.ErrConflict)
	}

	var newBalance int64
	err = uc.tx.Run(ctx, func(items repository.ItemRepository, _ repository.MovementRepository, restocks repository.RestockRepository) error {
		it, err := items.GetForUpdate(purchase.ItemID)
		if err != nil {
			return err
		}
		if it == nil {
			return domain.ErrNotFound
		}
		if it.ClosingBalance < purchase.Quantity {
			return fmt.Errorf("%w: el stock de la compra ya fue consumido (disponible %d, compra %d)",
				domain.ErrInsufficientStock, it.ClosingBalance, purchase.Quantity)
		}
		// Reclama la compra antes de tocar el saldo: si otra reversa entró
		// entre el pre-chequeo y el bloqueo de la fila, MarkReversed devuelve
		// ErrConflict y el saldo no se descuenta dos veces.
		if err := restocks.MarkReversed(companyID, purchase.ID); err != nil {
			return err
		}
		newBalance, err = items.ApplyDelta(it.ID, -purchase.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	purchase.Status = entity.RestockStatusReversed
	return toRestockResponse(purchase, newBalance), nil
}

// HistoryRange lista las compras con purchase_date dentro de [from, to],
// opcionalmente filtradas por artículo.
func (uc *UseCase) HistoryRange(companyID, fromStr, toStr, itemName string) ([]dto.RestockHistoryRow, error) {
	from, to, err := parseRange(fromStr, toStr)
	if err != nil {
		return nil, err
	}
	purchases, err := uc.restocks.ListRange(companyID, from, to, itemName)
	if err != nil {
		return nil, err
	}
	rows := make([]dto.RestockHistoryRow, 0, len(purchases))
	for _, p := range purchases {
		rows = append(rows, dto.RestockHistoryRow{
			Item:      p.ItemName,
			Supplier:  p.SupplierName,
			Quantity:  p.Quantity,
			UnitPrice: p.UnitPrice,
			TotalCost: p.TotalCost,
			TotalPaid: p.TotalPaid,
			Date:      p.PurchaseDate.Format(dto.DateLayout),
			Status:    p.Status,
			Warehouse: p.WarehouseName,
			Employee:  p.EmployeeName,
		})
	}
	return rows, nil
}

// HistoryCSV vuelca el historial de compras del rango a CSV con las columnas
// fijas del contrato.
func (uc *UseCase) HistoryCSV(companyID, fromStr, toStr, itemName string) ([]byte, error) {
	rows, err := uc.HistoryRange(companyID, fromStr, toStr, itemName)
	if err != nil {
		return nil, err
	}
	grid := make([][]string, 0, len(rows))
	for _, r := range rows {
		grid = append(grid, []string{
			r.Item, r.Supplier,
			strconv.FormatInt(r.Quantity, 10),
			r.UnitPrice.String(), r.TotalCost.String(), r.TotalPaid.String(),
			r.Date, r.Status, r.Warehouse, r.Employee,
		})
	}
	return uc.exporter.CSV(historyHeader, grid)
}

// resolvedLine es una línea de restock resuelta contra el directorio.
type resolvedLine struct {
	item          *entity.Item
	warehouseName string
	quantity      int64
	unitPrice     decimal.Decimal
	total         decimal.Decimal
}

func (uc *UseCase) resolveWarehouse(companyID, name, newName string) (*entity.Warehouse, error) {
	switch {
	case strings.TrimSpace(newName) != "":
		return uc.warehouses.Ensure(companyID, newName)
	case strings.TrimSpace(name) != "":
		wh, err := uc.warehouses.GetByName(companyID, name)
		if err != nil {
			return nil, err
		}
		if wh == nil {
			return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, name)
		}
		return wh, nil
	default:
		return nil, fmt.Errorf("%w: warehouse_name o new_warehouse_name es requerido", domain.ErrInvalidInput)
	}
}

// resolveLines materializa cada línea contra el directorio: por id, por
// nombre dentro de la bodega, o por nombre único en toda la empresa.
func (uc *UseCase) resolveLines(companyID string, wh *entity.Warehouse, reqs []dto.RestockItemRequest) ([]resolvedLine, *domain.BatchError) {
	rows := make([]resolvedLine, 0, len(reqs))
	var errs []domain.LineError
	notFound := false

	for i, li := range reqs {
		lineWh := wh
		if strings.TrimSpace(li.WarehouseName) != "" && li.WarehouseName != wh.Name {
			other, err := uc.warehouses.GetByName(companyID, li.WarehouseName)
			if err != nil {
				return nil, domain.NewBatchError(domain.ErrPersistence)
			}
			if other == nil {
				notFound = true
				errs = append(errs, domain.LineError{Line: i, Code: "NOT_FOUND",
					Message: fmt.Sprintf("bodega %s no encontrada", li.WarehouseName)})
				continue
			}
			lineWh = other
		}

		var it *entity.Item
		var err error
		switch {
		case li.ItemID > 0:
			it, err = uc.items.GetByID(companyID, li.ItemID)
		case strings.TrimSpace(li.ItemName) != "":
			it, err = uc.items.GetByName(companyID, lineWh.ID, li.ItemName)
			if err == nil && it == nil {
				// Último recurso: nombre único en toda la empresa.
				var matches []*entity.Item
				matches, err = uc.items.FindByName(companyID, li.ItemName)
				if err == nil {
					switch len(matches) {
					case 1:
						it = matches[0]
					case 0:
					default:
						errs = append(errs, domain.LineError{Line: i, Code: "VALIDATION",
							Message: fmt.Sprintf("nombre ambiguo: %s existe en varias bodegas, indique item_id", li.ItemName)})
						continue
					}
				}
			}
		default:
			errs = append(errs, domain.LineError{Line: i, Code: "VALIDATION",
				Message: "item_id o item_name es requerido"})
			continue
		}
		if err != nil {
			return nil, domain.NewBatchError(domain.ErrPersistence)
		}
		if it == nil {
			notFound = true
			errs = append(errs, domain.LineError{Line: i, Code: "NOT_FOUND",
				Message: "artículo no encontrado"})
			continue
		}

		price := li.UnitPrice
		if price.IsZero() {
			price = it.UnitPrice
		}
		whName := lineWh.Name
		if it.WarehouseID != lineWh.ID {
			// Resuelto por id o por nombre único fuera de la bodega del lote.
			iwh, werr := uc.warehouses.GetByID(companyID, it.WarehouseID)
			if werr != nil {
				return nil, domain.NewBatchError(domain.ErrPersistence)
			}
			if iwh != nil {
				whName = iwh.Name
			}
		}
		rows = append(rows, resolvedLine{
			item:          it,
			warehouseName: whName,
			quantity:      li.Quantity,
			unitPrice:     price,
			total:         price.Mul(decimal.NewFromInt(li.Quantity)),
		})
	}

	if len(errs) > 0 {
		sentinel := domain.ErrInvalidInput
		if notFound {
			sentinel = domain.ErrNotFound
		}
		return nil, domain.NewBatchError(sentinel, errs...)
	}
	return rows, nil
}

// payment es el desglose resuelto de una compra.
type payment struct {
	status  string
	method  string
	paid    decimal.Decimal
	balance decimal.Decimal
}

// resolvePayment normaliza estado y método de pago y deriva pagado/saldo.
// paid liquida el total; credit exige due_date y deja todo pendiente; partial
// exige un abono mayor que cero y no mayor que el total.
func resolvePayment(status, method string, totalCost, totalPaid decimal.Decimal, dueDate *time.Time) (payment, error) {
	if status == "" {
		status = entity.PaymentStatusPaid
	}
	if method == "" {
		method = entity.PaymentMethodCash
	}
	p := payment{status: status, method: method}

	switch status {
	case entity.PaymentStatusPaid:
		p.paid = totalCost
		p.balance = decimal.Zero
	case entity.PaymentStatusCredit:
		if dueDate == nil {
			return payment{}, fmt.Errorf("%w: una compra a crédito requiere due_date", domain.ErrInvalidInput)
		}
		p.paid = decimal.Zero
		p.balance = totalCost
	case entity.PaymentStatusPartial:
		if !totalPaid.IsPositive() || totalPaid.GreaterThan(totalCost) {
			return payment{}, fmt.Errorf("%w: un pago parcial requiere 0 < total_price_paid <= total", domain.ErrInvalidInput)
		}
		p.paid = totalPaid
		p.balance = totalCost.Sub(totalPaid)
	default:
		return payment{}, fmt.Errorf("%w: payment_status desconocido: %s", domain.ErrInvalidInput, status)
	}
	return p, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := dto.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := dto.ParseDate(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from inválido", domain.ErrInvalidInput)
	}
	to, err := dto.ParseDate(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to inválido", domain.ErrInvalidInput)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to es anterior a from", domain.ErrInvalidInput)
	}
	return from, to, nil
}

func toRestockResponse(p *entity.Restock, newBalance int64) *dto.RestockResponse {
	return &dto.RestockResponse{
		PurchaseID:    p.ID,
		ItemID:        p.ItemID,
		ItemName:      p.ItemName,
		WarehouseName: p.WarehouseName,
		SupplierName:  p.SupplierName,
		Quantity:      p.Quantity,
		UnitPrice:     p.UnitPrice,
		TotalCost:     p.TotalCost,
		PaymentStatus: p.PaymentStatus,
		TotalPaid:     p.TotalPaid,
		AmountBalance: p.AmountBalance,
		PurchaseDate:  p.PurchaseDate.Format(dto.DateLayout),
		Status:        p.Status,
		EmployeeName:  p.EmployeeName,
		NewBalance:    newBalance,
	}
}
