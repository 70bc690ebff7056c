// Package pdf genera la representación PDF del historial de movimientos.
//
// Layout de la página A4 apaisada:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título del reporte + fecha de generación            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: una fila por línea de movimiento                     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/StockLedger-api/internal/application/movements"
)

// Ensure MarotoReportGenerator implements movements.ReportPDFGenerator.
var _ movements.ReportPDFGenerator = (*MarotoReportGenerator)(nil)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// MarotoReportGenerator implementa movements.ReportPDFGenerator usando Maroto v2.
type MarotoReportGenerator struct{}

// NewMarotoReportGenerator construye el generador.
func NewMarotoReportGenerator() *MarotoReportGenerator { return &MarotoReportGenerator{} }

// GenerateMovementReport genera el PDF tabular y devuelve sus bytes.
func (g *MarotoReportGenerator) GenerateMovementReport(
	_ context.Context,
	title string,
	header []string,
	rows [][]string,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(8).WithRightMargin(8).
		WithTopMargin(8).WithBottomMargin(8).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 7}).
		WithTitle(title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(titleRow(title))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(headerRow(header))
	for _, r := range rows {
		m.AddRows(dataRow(r, len(header)))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// titleRow: título (izq) + fecha de generación (der).
func titleRow(title string) core.Row {
	return row.New(10).Add(
		col.New(8).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
		),
		col.New(4).Add(
			text.New("Generado: "+time.Now().Format("02/01/2006 15:04"), props.Text{
				Size: 8, Top: 3, Align: align.Right, Color: colorGray,
			}),
		),
	)
}

func headerRow(header []string) core.Row {
	cols := make([]core.Col, 0, len(header))
	for _, h := range header {
		cols = append(cols, col.New().Add(
			text.New(h, props.Text{Style: fontstyle.Bold, Size: 7, Color: colorPrimary}),
		))
	}
	return row.New(6).Add(cols...)
}

func dataRow(values []string, width int) core.Row {
	cols := make([]core.Col, 0, width)
	for i := 0; i < width; i++ {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		cols = append(cols, col.New().Add(text.New(v, props.Text{Size: 7})))
	}
	return row.New(5).Add(cols...)
}
