package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockLedger-api/internal/application/dto"
	"github.com/jhoicas/StockLedger-api/internal/application/restock"
)

// RestockHandler maneja las peticiones de compras de inventario (protegido).
type RestockHandler struct {
	uc *restock.UseCase
}

// NewRestockHandler construye el handler.
func NewRestockHandler(uc *restock.UseCase) *RestockHandler {
	return &RestockHandler{uc: uc}
}

// NewItem godoc
// @Summary      Crear un artículo con stock inicial
// @Description  Alta de artículo + compra + saldo de apertura en una sola
//               transacción. new_warehouse_name crea la bodega en el mismo paso.
// @Tags         restock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.NewItemRequest  true  "Artículo nuevo"
// @Success      201   {object}  dto.RestockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /restock/new-item [post]
func (h *RestockHandler) NewItem(c *fiber.Ctx) error {
	var in dto.NewItemRequest
	if !parseBody(c, &in) {
		return nil
	}
	resp, err := h.uc.CreateItem(c.Context(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Batch godoc
// @Summary      Reposición por lote de artículos existentes
// @Description  Solo incrementos, sin lado destino. Una fila de compra por
//               línea; el pago se resuelve sobre el total del lote.
// @Tags         restock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchRestockRequest  true  "Lote de reposición"
// @Success      201   {object}  dto.BatchRestockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /restock/batch [post]
func (h *RestockHandler) Batch(c *fiber.Ctx) error {
	var in dto.BatchRestockRequest
	if !parseBody(c, &in) {
		return nil
	}
	resp, err := h.uc.BatchRestock(c.Context(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// BulkUpdatePrices godoc
// @Summary      Actualización masiva de precios y barcodes (solo md)
// @Description  Sin efecto sobre el libro ni los saldos.
// @Tags         restock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkPriceUpdateRequest  true  "Actualizaciones"
// @Success      200   {object}  dto.BulkPriceUpdateResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /restock/price-bulk-update [post]
func (h *RestockHandler) BulkUpdatePrices(c *fiber.Ctx) error {
	var in dto.BulkPriceUpdateRequest
	if !parseBody(c, &in) {
		return nil
	}
	resp, err := h.uc.BulkUpdatePrices(GetCompanyID(c), in)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// DeleteByIDAndDate godoc
// @Summary      Revertir una compra de restock (solo md)
// @Description  Marca la compra reversed y descuenta el stock que aportó.
//               Falla si ese stock ya fue consumido.
// @Tags         restock
// @Security     Bearer
// @Produce      json
// @Param        purchase_id    query  int     true  "ID de la compra"
// @Param        purchase_date  query  string  true  "YYYY-MM-DD"
// @Success      200  {object}  dto.RestockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /restock/delete-by-id-date [delete]
func (h *RestockHandler) DeleteByIDAndDate(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Query("purchase_id"), 10, 64)
	if err != nil {
		return writeValidation(c, "purchase_id inválido")
	}
	resp, err := h.uc.Reverse(c.Context(), GetCompanyID(c), id, c.Query("purchase_date"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// HistoryRange godoc
// @Summary      Historial de compras en un rango de fechas
// @Description  Columnas fijas: Item, Supplier, Quantity, Unit Price,
//               Total Cost, Total Paid, Date, Status, Warehouse, Employee.
//               format=csv devuelve el CSV descargable.
// @Tags         restock
// @Security     Bearer
// @Produce      json
// @Param        start_date  query  string  true   "YYYY-MM-DD"
// @Param        end_date    query  string  true   "YYYY-MM-DD"
// @Param        item        query  string  false  "Filtrar por nombre de artículo"
// @Param        format      query  string  false  "csv para descarga"
// @Success      200  {array}  dto.RestockHistoryRow
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /restock/history/range [get]
func (h *RestockHandler) HistoryRange(c *fiber.Ctx) error {
	from := c.Query("start_date")
	to := c.Query("end_date")
	item := c.Query("item")

	if c.Query("format") == "csv" {
		data, err := h.uc.HistoryCSV(GetCompanyID(c), from, to, item)
		if err != nil {
			return writeDomainError(c, err)
		}
		c.Set(fiber.HeaderContentType, "text/csv")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="restock_history.csv"`)
		return c.Send(data)
	}

	rows, err := h.uc.HistoryRange(GetCompanyID(c), from, to, item)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(rows), "purchases": rows})
}
