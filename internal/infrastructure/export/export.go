// Package export serializa tablas (cabecera + filas) a los formatos
// descargables de la API: CSV y XLSX.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/StockLedger-api/internal/application/movements"
	"github.com/jhoicas/StockLedger-api/internal/application/restock"
)

// Ensure Exporter implements movements.TableExporter and restock.TableExporter.
var _ movements.TableExporter = (*Exporter)(nil)
var _ restock.TableExporter = (*Exporter)(nil)

// Exporter implementación de los puertos TableExporter.
type Exporter struct{}

// NewExporter construye el exportador.
func NewExporter() *Exporter { return &Exporter{} }

// CSV serializa la tabla con encoding/csv (RFC 4180, UTF-8).
func (e *Exporter) CSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("csv: escribir cabecera: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("csv: escribir filas: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSX serializa la tabla en una hoja con la cabecera en negrita.
func (e *Exporter) XLSX(sheet string, header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: crear hoja: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo cabecera: %w", err)
	}

	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("xlsx: celda cabecera: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx: escribir cabecera: %w", err)
		}
		_ = f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
	for r, rowVals := range rows {
		for c, val := range rowVals {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("xlsx: celda: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, fmt.Errorf("xlsx: escribir fila %d: %w", r, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx: serializar: %w", err)
	}
	return buf.Bytes(), nil
}
