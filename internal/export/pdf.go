package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/raven-rwho/rem-expenses/internal/core"
)

// PDFRenderer prints the sheet on landscape A4 followed by the meal
// allowance breakdown.
type PDFRenderer struct{}

func (PDFRenderer) Format() string      { return "pdf" }
func (PDFRenderer) ContentType() string { return "application/pdf" }

const pageWidth = 277.0

func (PDFRenderer) Render(w io.Writer, r core.ExpenseReport) error {
	sheet := BuildSheet(r)

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(Filename(r, "pdf")), false)
	pdf.AddPage()

	widths := scaledWidths(sheet.ColumnWidths)
	lineColor := [3]int{200, 200, 200}
	pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])

	for _, row := range sheet.Rows {
		switch row.Kind {
		case RowBlank:
			pdf.Ln(3)
		case RowTitle:
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 9, tr(CellText(row.Cells[0])), "", 1, "L", false, 0, "")
		case RowPeriod:
			pdf.SetFont("Arial", "", 11)
			pdf.CellFormat(0, 7, tr(CellText(row.Cells[0])), "", 1, "L", false, 0, "")
		case RowHeader:
			pdf.SetFont("Arial", "B", 7)
			pdf.SetFillColor(40, 40, 40)
			pdf.SetTextColor(255, 255, 255)
			for i, c := range row.Cells {
				label := strings.ReplaceAll(CellText(c), "\n", " ")
				pdf.CellFormat(widths[i], 10, tr(label), "1", 0, "C", true, 0, "")
			}
			pdf.Ln(-1)
			pdf.SetTextColor(50, 50, 50)
		case RowData, RowSubtotal, RowTotal:
			style, fill := "", false
			switch row.Kind {
			case RowSubtotal:
				style, fill = "B", true
				pdf.SetFillColor(240, 240, 240)
			case RowTotal:
				style, fill = "B", true
				pdf.SetFillColor(208, 208, 208)
			}
			pdf.SetFont("Arial", style, 8)
			for i, c := range row.Cells {
				text, align := pdfCell(c, i)
				pdf.CellFormat(widths[i], 7, tr(text), "1", 0, align, fill, 0, "")
			}
			pdf.Ln(-1)
		case RowNote:
			pdf.SetFont("Arial", "", 7)
			if len(row.Cells) == 1 {
				pdf.MultiCell(pageWidth, 4, tr(CellText(row.Cells[0])), "", "L", false)
				continue
			}
			pdf.CellFormat(widths[0], 4, tr(CellText(row.Cells[0])), "", 0, "L", false, 0, "")
			pdf.MultiCell(pageWidth-widths[0], 4, tr(CellText(row.Cells[1])), "", "L", false)
		}
	}

	writeBreakdown(pdf, tr, r.Expenses.MealAllowanceBreakdown, r.Summary.MealAllowance)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error writing PDF: %w", err)
	}
	return nil
}

func writeBreakdown(pdf *gofpdf.Fpdf, tr func(string) string, segments []core.DaySegment, total float64) {
	if len(segments) == 0 {
		return
	}
	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, tr("Verpflegungsmehraufwand je Tag"), "", 1, "L", false, 0, "")

	cols := []float64{35, 45, 40, 40, 40}
	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range []string{"Datum", "Art", "Pauschale", "Frühstück", "Betrag"} {
		pdf.CellFormat(cols[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, seg := range segments {
		pdf.CellFormat(cols[0], 6, seg.Date, "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 6, tr(seg.Kind.Label()), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[2], 6, tr(core.FormatEuro(seg.BaseAmount)), "1", 0, "R", false, 0, "")
		deduction := ""
		if seg.BreakfastDeduction > 0 {
			deduction = "-" + core.FormatEuro(seg.BreakfastDeduction)
		}
		pdf.CellFormat(cols[3], 6, tr(deduction), "1", 0, "R", false, 0, "")
		pdf.CellFormat(cols[4], 6, tr(core.FormatEuro(seg.FinalAmount)), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(cols[0]+cols[1]+cols[2]+cols[3], 7, tr("Summe"), "1", 0, "R", false, 0, "")
	pdf.CellFormat(cols[4], 7, tr(core.FormatEuro(total)), "1", 1, "R", false, 0, "")
}

// pdfCell formats money columns in euros. The kilometer column (index 8)
// is printed as a plain number.
func pdfCell(c any, col int) (string, string) {
	v, ok := c.(float64)
	if !ok {
		return CellText(c), "L"
	}
	if col == 8 {
		return core.FormatDecimal(v, 1, ".", ",") + " km", "R"
	}
	return core.FormatEuro(v), "R"
}

func scaledWidths(widths []float64) []float64 {
	var sum float64
	for _, w := range widths {
		sum += w
	}
	out := make([]float64, len(widths))
	for i, w := range widths {
		out[i] = w * pageWidth / sum
	}
	return out
}
