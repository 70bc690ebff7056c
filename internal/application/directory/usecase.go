// Package directory sirve las lecturas del directorio de bodegas y del
// inventario por bodega. Son lecturas sin bloqueo: el directorio de bodegas
// es append-only y los saldos solo mutan dentro de las transacciones del
// orquestador.
package directory

import (
	"github.com/jhoicas/StockLedger-api/internal/application/dto"
	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// UseCase lecturas del directorio.
type UseCase struct {
	warehouses repository.WarehouseRepository
	items      repository.ItemRepository
}

// NewUseCase construye el caso de uso con sus dependencias (DIP).
func NewUseCase(warehouses repository.WarehouseRepository, items repository.ItemRepository) *UseCase {
	return &UseCase{warehouses: warehouses, items: items}
}

// ListWarehouses devuelve los nombres de bodega de la empresa, ordenados.
func (uc *UseCase) ListWarehouses(companyID string) ([]string, error) {
	return uc.warehouses.ListNames(companyID)
}

// ListInventory devuelve los artículos de una bodega con su saldo actual.
// Falla con ErrNotFound si la bodega no existe.
func (uc *UseCase) ListInventory(companyID, warehouseName string) ([]dto.InventoryItemResponse, error) {
	wh, err := uc.warehouses.GetByName(companyID, warehouseName)
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return nil, domain.ErrNotFound
	}
	items, err := uc.items.ListByWarehouse(companyID, wh.ID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InventoryItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.InventoryItemResponse{
			ItemID:         it.ID,
			ItemName:       it.Name,
			UnitPrice:      it.UnitPrice,
			ClosingBalance: it.ClosingBalance,
			ReorderLevel:   it.ReorderLevel,
			Barcode:        it.Barcode,
		})
	}
	return out, nil
}
