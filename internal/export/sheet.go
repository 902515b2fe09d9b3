// Package export renders expense reports into downloadable documents.
//
// BuildSheet produces the row layout every format shares: title, billing
// period, column headers, the data row, subtotals, the grand total and the
// explanatory notes. The CSV, PDF and Google Sheets writers only differ in how
// they print those rows.
package export

import (
	"fmt"
	"strings"

	"github.com/raven-rwho/rem-expenses/internal/core"
)

// SheetName is the tab name of the report layout.
const SheetName = "Deutsch"

// RowKind tells renderers how to style a row.
type RowKind int

const (
	RowBlank RowKind = iota
	RowTitle
	RowPeriod
	RowHeader
	RowData
	RowSubtotal
	RowTotal
	RowNote
)

// Row is one line of the layout. Cells hold strings or float64 values.
type Row struct {
	Kind  RowKind
	Cells []any
}

// Sheet is the renderer independent report layout.
type Sheet struct {
	Name         string
	Rows         []Row
	ColumnWidths []float64
}

// Headers are the eleven report columns. The asterisks refer to the notes
// printed below the totals.
var Headers = []string{
	"Reisebeginn /\n-ende (Datum)",
	"Abwesenheit von /bis (Uhrzeit) \n*",
	"Reiseanlass\n**",
	"Fahrt (von/bis)\n***",
	"öffentliche Verkehrsmittel",
	"Hotel/Übernachtung (mit Frühstück)",
	"Hotel/Übernachtung (ohne Frühstück)",
	"Verpflegungs-mehraufwand ****",
	"gefahrene km / Privatfahr- zeug",
	"Fahrzeug- kosten \n*****",
	"sonstige Kosten \n******",
}

var columnWidths = []float64{20, 20, 30, 30, 15, 20, 20, 20, 15, 15, 15}

const generalNote = "Allgemeines\n" +
	" - Die Belege zu den Reisekosten und Spesen sind digital einzureichen und der Abrechnung beizufügen\n" +
	" - Alle Belege sind auf den Arbeitgeber auszustellen\n" +
	" - Reisekosten und Spesen in einer anderen Währung als in € sind mit dem Tageskurs bei der Erstellung der Abrechnung umzurechnen"

const domesticNote = "INLAND\n" +
	" - Bei einer Abwesenheitsdauer von mindestens 24 Stunden je Kalendertag (=24h): € 40.00\n" +
	" - Für den An- und Abreisetag sowie bei einer Abwesenheitsdauer von mehr als 8 Stunden aber weniger als 24 Stunden: € 20.00"

const foreignNote = "AUSLAND\n" +
	" - Bei der Anreise vom Inland in das Ausland oder vom Ausland in das Inland ist der Pauschbetrag des Ortes maßgebend, der vor 24 Uhr Ortszeit erreicht wird\n" +
	" - Bei der Abreise vom Ausland in das Inland ist der Pauschbetrag des letzten Tätigkeitsortes maßgebend\n" +
	" - Für die Zwischentage ist der Pauschbetrag des Ortes maßgebend, der vor 24 Uhr Ortszeit erreicht wird\n" +
	" - Die Verpflegungsmehraufwendungen sind um € 5,60 zu kürzen, wenn der Arbeitgeber das Frühstück bezahlt"

// BuildSheet lays out a report. The report is only read.
func BuildSheet(r core.ExpenseReport) Sheet {
	td := r.TravelDetails
	s := r.Summary

	name := strings.TrimSpace(td.EmployeeName)
	if name == "" {
		name = "Mitarbeiter"
	}

	rows := []Row{
		{Kind: RowTitle, Cells: []any{"Reisekosten und Spesen  " + name}},
		{Kind: RowPeriod, Cells: []any{"Abrechnungszeitraum  " + period(td.DepartureDate)}},
		{Kind: RowBlank},
		{Kind: RowHeader, Cells: headerCells()},
		{Kind: RowBlank},
		{Kind: RowData, Cells: []any{
			td.DepartureDate + "-" + td.ReturnDate,
			td.DepartureTime + " -" + td.ReturnTime,
			td.TravelReason,
			td.Route(),
			s.PublicTransportTotal,
			s.HotelWithBreakfastTotal,
			s.HotelWithoutBreakfastTotal,
			s.MealAllowance,
			core.TotalKilometers(r.Expenses.VehicleKilometers),
			s.VehicleCosts,
			s.OtherCostsTotal,
		}},
		{Kind: RowBlank},
		{Kind: RowSubtotal, Cells: []any{
			"Zwischensummen", "", "", "",
			s.PublicTransportTotal,
			s.HotelWithBreakfastTotal,
			s.HotelWithoutBreakfastTotal,
			s.MealAllowance,
			"",
			s.VehicleCosts,
			s.OtherCostsTotal,
		}},
		{Kind: RowTotal, Cells: []any{"Gesamt", "", "", "", "", "", "", "", "", "", r.Total}},
		{Kind: RowBlank},
		{Kind: RowNote, Cells: []any{generalNote}},
		{Kind: RowNote, Cells: []any{"Erläuterungen"}},
		{Kind: RowNote, Cells: []any{"*", "Abwesenheit von/bis (Uhrzeit)"}},
		{Kind: RowNote, Cells: []any{"**", "Bsp. Besprechung, Meeting, Workshop, Kundentermin"}},
		{Kind: RowNote, Cells: []any{"***", "Bsp. München - Zürich - München"}},
		{Kind: RowNote, Cells: []any{"****", domesticNote}},
		{Kind: RowNote, Cells: []any{"", foreignNote}},
		{Kind: RowNote, Cells: []any{"*****", fmt.Sprintf("Die insgesamt gefahrenen Kilometer sind mit € %s zu multiplizieren",
			core.FormatDecimal(core.VehicleCostPerKM, 2, ".", ","))}},
		{Kind: RowNote, Cells: []any{"******", "Bsp. Kosten für Taxi, Parken, Maut, Gepäckbeförderung/-aufbewahrung"}},
	}

	return Sheet{
		Name:         SheetName,
		Rows:         rows,
		ColumnWidths: append([]float64(nil), columnWidths...),
	}
}

// Find returns the first row of the given kind.
func (s Sheet) Find(kind RowKind) (Row, bool) {
	for _, row := range s.Rows {
		if row.Kind == kind {
			return row, true
		}
	}
	return Row{}, false
}

// Strings returns every row as text. Numbers use two decimals and a dot so
// spreadsheet imports read them as numbers.
func (s Sheet) Strings() [][]string {
	out := make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = CellText(c)
		}
		out[i] = cells
	}
	return out
}

// CellText formats a single cell.
func CellText(c any) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.2f", core.RoundCents(v))
	default:
		return fmt.Sprint(v)
	}
}

// BaseName returns Reisekosten_DD-MM-YYYY_DD-MM-YYYY for the trip dates.
func BaseName(r core.ExpenseReport) string {
	dep := strings.ReplaceAll(strings.TrimSpace(r.TravelDetails.DepartureDate), ".", "-")
	ret := strings.ReplaceAll(strings.TrimSpace(r.TravelDetails.ReturnDate), ".", "-")
	return fmt.Sprintf("Reisekosten_%s_%s", dep, ret)
}

// Filename appends the extension to BaseName.
func Filename(r core.ExpenseReport, ext string) string {
	return BaseName(r) + "." + strings.TrimPrefix(ext, ".")
}

func headerCells() []any {
	cells := make([]any, len(Headers))
	for i, h := range Headers {
		cells[i] = h
	}
	return cells
}

// period renders "[MM, YYYY]" from a DD.MM.YYYY date. Unparsable dates are
// printed as given.
func period(date string) string {
	parts := strings.Split(strings.TrimSpace(date), ".")
	if len(parts) != 3 {
		return "[" + date + "]"
	}
	return fmt.Sprintf("[%s, %s]", parts[1], parts[2])
}
