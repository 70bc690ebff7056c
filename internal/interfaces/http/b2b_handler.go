package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/StockLedger-api/internal/application/directory"
	"github.com/jhoicas/StockLedger-api/internal/application/dto"
	"github.com/jhoicas/StockLedger-api/internal/application/movements"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// B2BHandler maneja las peticiones del libro de movimientos y el directorio
// (protegido).
type B2BHandler struct {
	movementUC  *movements.UseCase
	directoryUC *directory.UseCase
}

// NewB2BHandler construye el handler.
func NewB2BHandler(movementUC *movements.UseCase, directoryUC *directory.UseCase) *B2BHandler {
	return &B2BHandler{movementUC: movementUC, directoryUC: directoryUC}
}

// ListWarehouses godoc
// @Summary      Listar nombres de bodega
// @Tags         b2b
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string][]string
// @Router       /b2b/warehouses [get]
func (h *B2BHandler) ListWarehouses(c *fiber.Ctx) error {
	names, err := h.directoryUC.ListWarehouses(GetCompanyID(c))
	if err != nil {
		return writeDomainError(c, err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(fiber.Map{"warehouses": names})
}

// ListInventory godoc
// @Summary      Inventario de una bodega con saldos actuales
// @Tags         b2b
// @Security     Bearer
// @Produce      json
// @Param        warehouse  path  string  true  "Nombre de la bodega"
// @Success      200  {object}  map[string]any
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /b2b/inventory/{warehouse} [get]
func (h *B2BHandler) ListInventory(c *fiber.Ctx) error {
	warehouse, err := urlParam(c, "warehouse")
	if err != nil {
		return writeDomainError(c, err)
	}
	items, err := h.directoryUC.ListInventory(GetCompanyID(c), warehouse)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(fiber.Map{"warehouse": warehouse, "items": items})
}

// WarehouseTransfer godoc
// @Summary      Registrar un traslado entre bodegas
// @Description  Lote atómico: o todas las líneas se aplican o ninguna. El
//               stock puede recibirse en destino bajo otro nombre y otra
//               cantidad (item_name_to / quantity_to).
// @Tags         b2b
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.WarehouseTransferRequest  true  "Lote de traslado"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /b2b/transfer/warehouse [post]
func (h *B2BHandler) WarehouseTransfer(c *fiber.Ctx) error {
	var in dto.WarehouseTransferRequest
	if !parseBody(c, &in) {
		return nil
	}
	movementDate, err := dto.ParseDate(in.MovementDate)
	if err != nil {
		return badDate(c)
	}
	return h.submit(c, movements.BatchInput{
		Reference:            in.Reference,
		Type:                 entity.MovementTypeWarehouseTransfer,
		SourceWarehouse:      in.SourceWarehouse,
		DestinationWarehouse: in.DestinationWarehouse,
		Lines:                toLineInputs(in.Items),
		IssuedBy:             in.IssuedBy,
		ReceivedBy:           in.ReceivedBy,
		Notes:                in.Notes,
		MovementDate:         movementDate,
	})
}

// CustomerSale godoc
// @Summary      Registrar una venta a cliente
// @Tags         b2b
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CustomerSaleRequest  true  "Lote de venta"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /b2b/transfer/customer [post]
func (h *B2BHandler) CustomerSale(c *fiber.Ctx) error {
	var in dto.CustomerSaleRequest
	if !parseBody(c, &in) {
		return nil
	}
	movementDate, err := dto.ParseDate(in.MovementDate)
	if err != nil {
		return badDate(c)
	}
	return h.submit(c, movements.BatchInput{
		Reference:       in.Reference,
		Type:            entity.MovementTypeCustomerSale,
		SourceWarehouse: in.SourceWarehouse,
		Lines:           toLineInputs(in.Items),
		IssuedBy:        in.IssuedBy,
		CustomerName:    in.CustomerName,
		Notes:           in.Notes,
		MovementDate:    movementDate,
	})
}

// Stockout godoc
// @Summary      Registrar una baja de stock (merma, daño, ajuste)
// @Description  Requiere rol md y un motivo en notes. Las bajas sin
//               justificación se rechazan.
// @Tags         b2b
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockoutRequest  true  "Lote de baja"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /b2b/transfer/stockout [post]
func (h *B2BHandler) Stockout(c *fiber.Ctx) error {
	var in dto.StockoutRequest
	if !parseBody(c, &in) {
		return nil
	}
	movementDate, err := dto.ParseDate(in.MovementDate)
	if err != nil {
		return badDate(c)
	}
	return h.submit(c, movements.BatchInput{
		Reference:       in.Reference,
		Type:            entity.MovementTypeStockout,
		SourceWarehouse: in.SourceWarehouse,
		Lines:           toLineInputs(in.Items),
		IssuedBy:        in.IssuedBy,
		Notes:           in.Notes,
		MovementDate:    movementDate,
	})
}

// submit ejecuta el lote y serializa el resultado. Un reenvío que cae en un
// movimiento fallido ya registrado devuelve 200 con status failed; el primer
// registro exitoso devuelve 201.
func (h *B2BHandler) submit(c *fiber.Ctx, in movements.BatchInput) error {
	mov, err := h.movementUC.Submit(c.Context(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return writeDomainError(c, err)
	}
	status := fiber.StatusCreated
	if mov.Status == entity.MovementStatusFailed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.ToMovementResponse(mov))
}

// ListMovements godoc
// @Summary      Historial de movimientos filtrado
// @Tags         b2b
// @Security     Bearer
// @Produce      json
// @Param        transfer_type  query  string  false  "warehouse_transfer | customer_sale | stockout"
// @Param        warehouse      query  string  false  "Nombre de bodega (origen o destino)"
// @Param        start_date     query  string  false  "YYYY-MM-DD"
// @Param        end_date       query  string  false  "YYYY-MM-DD"
// @Param        search         query  string  false  "Busca en artículo, bodega y emisor"
// @Param        limit          query  int     false  "Tamaño de página (máx 500)"
// @Param        offset         query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /b2b/movements [get]
func (h *B2BHandler) ListMovements(c *fiber.Ctx) error {
	filter, err := movementFilterFromQuery(c)
	if err != nil {
		return badDate(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return writeValidation(c, "parámetros de paginación inválidos")
	}
	resp, err := h.movementUC.ListMovements(GetCompanyID(c), filter, page)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// GetMovement godoc
// @Summary      Obtener un movimiento por id
// @Tags         b2b
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /b2b/movements/{id} [get]
func (h *B2BHandler) GetMovement(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return writeValidation(c, "id inválido")
	}
	resp, err := h.movementUC.GetMovement(GetCompanyID(c), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// Summary godoc
// @Summary      Contadores de movimientos completados por tipo
// @Tags         b2b
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.MovementSummaryResponse
// @Router       /b2b/movements/summary [get]
func (h *B2BHandler) Summary(c *fiber.Ctx) error {
	filter, err := movementFilterFromQuery(c)
	if err != nil {
		return badDate(c)
	}
	resp, err := h.movementUC.Summary(GetCompanyID(c), filter)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(resp)
}

// Export godoc
// @Summary      Exportar el historial filtrado (csv, xlsx o pdf)
// @Tags         b2b
// @Security     Bearer
// @Produce      octet-stream
// @Param        format  query  string  false  "csv (defecto) | xlsx | pdf"
// @Success      200  {file}  file
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /b2b/movements/export [get]
func (h *B2BHandler) Export(c *fiber.Ctx) error {
	filter, err := movementFilterFromQuery(c)
	if err != nil {
		return badDate(c)
	}
	filename, contentType, data, err := h.movementUC.Export(c.Context(), GetCompanyID(c), filter, c.Query("format"))
	if err != nil {
		return writeDomainError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}

// movementFilterFromQuery arma el filtro desde los query params.
func movementFilterFromQuery(c *fiber.Ctx) (repository.MovementFilter, error) {
	f := repository.MovementFilter{
		Type:      c.Query("transfer_type"),
		Warehouse: c.Query("warehouse"),
		Keyword:   c.Query("search"),
	}
	var err error
	f.From, err = optionalDate(c.Query("start_date"))
	if err != nil {
		return f, err
	}
	f.To, err = optionalDate(c.Query("end_date"))
	return f, err
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := dto.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toLineInputs(items []dto.MovementLineRequest) []movements.LineInput {
	out := make([]movements.LineInput, 0, len(items))
	for _, it := range items {
		out = append(out, movements.LineInput{
			ItemID:     it.ItemID,
			ItemName:   it.ItemName,
			ItemNameTo: it.ItemNameTo,
			Quantity:   it.Quantity,
			QuantityTo: it.QuantityTo,
		})
	}
	return out
}
