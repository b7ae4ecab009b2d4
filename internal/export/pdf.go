package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfFont    = "Arial"
	pdfMargin  = 12.0
	pdfRowH    = 7.0
	notesLimit = 60
)

var pdfWidths = []float64{12, 38, 60, 26, 18, 40, 20, 59}

// RenderPDF writes a landscape A4 report: title, step table, phase summary.
func RenderPDF(w io.Writer, report Report) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin+6, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(report.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont(pdfFont, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(pdfFont, "B", 16)
	pdf.CellFormat(0, 10, tr(report.Title), "", 1, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, fmt.Sprintf("Overall progress %d%%  |  Generated %s",
		report.Overall, report.GeneratedAt.Format("2006-01-02 15:04 MST")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	tableHeader(pdf, Columns, pdfWidths)
	pdf.SetFont(pdfFont, "", 8)
	pdf.SetTextColor(0, 0, 0)
	_, pageH := pdf.GetPageSize()
	for i, row := range report.Rows {
		if pdf.GetY()+pdfRowH > pageH-pdfMargin-6 {
			pdf.AddPage()
			tableHeader(pdf, Columns, pdfWidths)
			pdf.SetFont(pdfFont, "", 8)
			pdf.SetTextColor(0, 0, 0)
		}
		fill := i%2 == 1
		pdf.SetFillColor(242, 242, 242)
		cells := row.Cells()
		cells[7] = truncate(cells[7], notesLimit)
		for j, cell := range cells {
			align := "L"
			if j == 0 || j == 4 || j == 6 {
				align = "C"
			}
			pdf.CellFormat(pdfWidths[j], pdfRowH, tr(cell), "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	tableHeader(pdf, []string{"Phase", "Percent"}, []float64{70, 25})
	pdf.SetFont(pdfFont, "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, p := range report.Phases {
		pdf.CellFormat(70, pdfRowH, tr(string(p.Phase)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, pdfRowH, fmt.Sprintf("%d%%", p.Percent), "1", 1, "C", false, 0, "")
	}
	pdf.SetFont(pdfFont, "B", 9)
	pdf.CellFormat(70, pdfRowH, "Overall", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, pdfRowH, fmt.Sprintf("%d%%", report.Overall), "1", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func tableHeader(pdf *gofpdf.Fpdf, labels []string, widths []float64) {
	pdf.SetFont(pdfFont, "B", 9)
	pdf.SetFillColor(68, 114, 196)
	pdf.SetTextColor(255, 255, 255)
	for i, label := range labels {
		pdf.CellFormat(widths[i], 8, label, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
