package movements

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jhoicas/StockLedger-api/internal/application/dto"
	"github.com/jhoicas/StockLedger-api/internal/domain"
	"github.com/jhoicas/StockLedger-api/internal/domain/entity"
	"github.com/jhoicas/StockLedger-api/internal/domain/repository"
)

// exportLimit acota cuántos movimientos entran en un export. Suficiente para
// el historial de un periodo; para volcados mayores se pagina por fechas.
const exportLimit = 10000

// Formatos de export soportados.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// exportHeader son las columnas fijas del export, una fila por línea de
// movimiento. El orden es parte del contrato con los consumidores.
var exportHeader = []string{
	"Date", "Reference", "Type", "Source Warehouse", "Destination Warehouse",
	"Item", "Quantity", "Destination Item", "Destination Quantity",
	"Issued By", "Received By", "Customer", "Notes", "Status",
}

// ListMovements devuelve una página del historial, siempre en el mismo orden:
// movement_date descendente con desempate por id ascendente.
func (uc *UseCase) ListMovements(companyID string, f repository.MovementFilter, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.DefaultPage()
	movs, err := uc.movements.List(companyID, f, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.MovementListResponse{
		Items: make([]dto.MovementResponse, 0, len(movs)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, m := range movs {
		out.Items = append(out.Items, dto.ToMovementResponse(m))
	}
	return out, nil
}

// GetMovement devuelve un movimiento por id.
func (uc *UseCase) GetMovement(companyID string, id int64) (*dto.MovementResponse, error) {
	m, err := uc.movements.GetByID(companyID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	resp := dto.ToMovementResponse(m)
	return &resp, nil
}

// Summary agrega los movimientos completados por tipo sobre el filtro.
func (uc *UseCase) Summary(companyID string, f repository.MovementFilter) (*dto.MovementSummaryResponse, error) {
	counts, err := uc.movements.CountByType(companyID, f)
	if err != nil {
		return nil, err
	}
	return &dto.MovementSummaryResponse{
		TotalTransfers: counts[entity.MovementTypeWarehouseTransfer],
		TotalSales:     counts[entity.MovementTypeCustomerSale],
		TotalWriteoffs: counts[entity.MovementTypeStockout],
	}, nil
}

// Export vuelca el historial filtrado al formato pedido y devuelve nombre de
// archivo, content type y bytes.
func (uc *UseCase) Export(ctx context.Context, companyID string, f repository.MovementFilter, format string) (string, string, []byte, error) {
	movs, err := uc.movements.List(companyID, f, exportLimit, 0)
	if err != nil {
		return "", "", nil, err
	}
	rows := exportRows(movs)

	switch format {
	case FormatCSV, "":
		data, err := uc.exporter.CSV(exportHeader, rows)
		if err != nil {
			return "", "", nil, err
		}
		return "movements.csv", "text/csv", data, nil
	case FormatXLSX:
		data, err := uc.exporter.XLSX("Movimientos", exportHeader, rows)
		if err != nil {
			return "", "", nil, err
		}
		return "movements.xlsx",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data, nil
	case FormatPDF:
		// El PDF usa un juego de columnas condensado que cabe en la página.
		data, err := uc.pdf.GenerateMovementReport(ctx, "Historial de Movimientos", pdfHeader, pdfRows(rows))
		if err != nil {
			return "", "", nil, err
		}
		return "movements.pdf", "application/pdf", data, nil
	default:
		return "", "", nil, fmt.Errorf("%w: formato de export desconocido: %s", domain.ErrInvalidInput, format)
	}
}

// pdfHeader son las columnas del reporte PDF (índices sobre exportHeader).
var pdfHeader = []string{
	"Date", "Reference", "Type", "Source Warehouse", "Destination Warehouse",
	"Item", "Quantity", "Status",
}

var pdfColumnIdx = []int{0, 1, 2, 3, 4, 5, 6, 13}

func pdfRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, 0, len(pdfColumnIdx))
		for _, i := range pdfColumnIdx {
			row = append(row, r[i])
		}
		out = append(out, row)
	}
	return out
}

// exportRows aplana los movimientos a una fila por línea. Un movimiento sin
// líneas (no debería ocurrir) produce igualmente una fila para no perderlo
// del volcado.
func exportRows(movs []*entity.Movement) [][]string {
	rows := make([][]string, 0, len(movs))
	for _, m := range movs {
		if len(m.Lines) == 0 {
			rows = append(rows, exportRow(m, nil))
			continue
		}
		for i := range m.Lines {
			rows = append(rows, exportRow(m, &m.Lines[i]))
		}
	}
	return rows
}

func exportRow(m *entity.Movement, l *entity.MovementLine) []string {
	row := []string{
		m.MovementDate.Format(dto.DateLayout),
		m.Reference,
		m.Type,
		m.SourceWarehouse,
		m.DestinationWarehouse,
		"", "", "", "",
		m.IssuedBy,
		m.ReceivedBy,
		m.CustomerName,
		m.Notes,
		m.Status,
	}
	if l != nil {
		row[5] = l.SourceItemName
		row[6] = strconv.FormatInt(l.Quantity, 10)
		if l.DestinationItemID != nil {
			row[7] = l.DestinationItemName
			row[8] = strconv.FormatInt(l.DestinationQuantity, 10)
		}
	}
	return row
}
