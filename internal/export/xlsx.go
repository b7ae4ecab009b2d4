package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	stepsSheet  = "Steps"
	phasesSheet = "Phases"
)

var columnWidths = []float64{8, 24, 36, 14, 10, 22, 11, 50}

// RenderXLSX writes a workbook with a Steps sheet and a Phases sheet.
func RenderXLSX(w io.Writer, report Report) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", stepsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := file.NewSheet(phasesSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	header, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(file, stepsSheet, 1, toAny(Columns)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := file.SetCellStyle(stepsSheet, "A1", last, header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	for i, r := range report.Rows {
		cells := []interface{}{r.Number, string(r.Phase), r.Title, r.Status, r.Percent, r.Cells()[5], r.Reminders, r.Notes}
		if err := writeRow(file, stepsSheet, i+2, cells); err != nil {
			return err
		}
	}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := file.SetColWidth(stepsSheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := file.SetPanes(stepsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := writeRow(file, phasesSheet, 1, []interface{}{"Phase", "Percent"}); err != nil {
		return err
	}
	if err := file.SetCellStyle(phasesSheet, "A1", "B1", header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	for i, p := range report.Phases {
		if err := writeRow(file, phasesSheet, i+2, []interface{}{string(p.Phase), p.Percent}); err != nil {
			return err
		}
	}
	if err := writeRow(file, phasesSheet, len(report.Phases)+2, []interface{}{"Overall", report.Overall}); err != nil {
		return err
	}
	if err := file.SetColWidth(phasesSheet, "A", "A", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(file *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := file.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
