package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// RenderCSV writes the step table, a blank line, then the phase summary and
// the overall percent.
func RenderCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range report.Rows {
		if err := writer.Write(row.Cells()); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row.Number, err)
		}
	}

	records := [][]string{{}, {"Phase", "Percent"}}
	for _, p := range report.Phases {
		records = append(records, []string{string(p.Phase), fmt.Sprint(p.Percent)})
	}
	records = append(records, []string{"Overall", fmt.Sprint(report.Overall)})
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
