package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/currency"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	color.NoColor = true
	pterm.DisableColor()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func TestCalcCommand(t *testing.T) {
	out := run(t, "calc",
		"--departure", "01.03.2026 08:00",
		"--return", "03.03.2026 16:00",
		"--country", "Deutschland")

	assert.Contains(t, out, "Land: Deutschland")
	assert.Contains(t, out, "Abreisetag")
	assert.Contains(t, out, "Voller Tag")
	assert.Contains(t, out, "Rückreisetag")
	assert.Contains(t, out, "Verpflegungsmehraufwand")
}

func TestCalcCommandUnknownCountry(t *testing.T) {
	out := run(t, "calc",
		"--departure", "01.03.2026 08:00",
		"--return", "01.03.2026 20:00",
		"--country", "Schweitz")

	assert.Contains(t, out, "Inlandspauschale")
	assert.Contains(t, out, "Schweiz")
}

func TestCalcCommandRejectsBadInput(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"calc", "--departure", "2026-03-01 08:00", "--return", "01.03.2026 20:00"})
	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestRatesCommand(t *testing.T) {
	out := run(t, "rates", "Schweiz", "Atlantis")
	assert.Contains(t, out, "Schweiz")
	assert.Contains(t, out, "(Inland, unbekannt)")
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	eur, one := 120.0, 1.0
	input := reportInput{
		TravelDetails: core.TravelDetails{
			EmployeeName:       "Erika Mustermann",
			StartLocation:      "Berlin",
			Destination:        "Zürich",
			DepartureDate:      "01.03.2026",
			DepartureTime:      "08:00",
			ReturnDate:         "03.03.2026",
			ReturnTime:         "16:00",
			DestinationCountry: "Schweiz",
		},
		Expenses: core.ExpenseItems{
			PublicTransport: []core.LineItem{{Description: "Bahn", Amount: 120, Currency: "EUR", AmountEUR: &eur, ExchangeRate: &one}},
		},
	}
	data, err := json.Marshal(input)
	require.NoError(t, err)
	inPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(inPath, data, 0o644))

	outDir := filepath.Join(dir, "out")
	out := run(t, "export", "--input", inPath, "--format", "csv,pdf", "--out", outDir)
	assert.Contains(t, out, "Gesamt:")

	csvBody, err := os.ReadFile(filepath.Join(outDir, "Reisekosten_01-03-2026_03-03-2026.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csvBody), "Erika Mustermann")

	pdfBody, err := os.ReadFile(filepath.Join(outDir, "Reisekosten_01-03-2026_03-03-2026.pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBody, []byte("%PDF-")))
}

type fakeBatch struct {
	got []currency.BatchItem
}

func (f *fakeBatch) ConvertBatch(_ context.Context, items []currency.BatchItem) ([]currency.Conversion, error) {
	f.got = items
	out := make([]currency.Conversion, len(items))
	for i, it := range items {
		out[i] = currency.Conversion{From: it.Currency, Amount: it.Amount * 2, Rate: 2}
	}
	return out, nil
}

func TestConvertItems(t *testing.T) {
	done := 10.0
	items := core.ExpenseItems{
		OtherCosts: []core.LineItem{
			{Description: "Taxi", Amount: 30, Currency: "CHF"},
			{Description: "Already", Amount: 5, Currency: "USD", AmountEUR: &done},
		},
		VehicleKilometers: []core.LineItem{{Amount: 100, Currency: "USD"}},
	}
	conv := &fakeBatch{}
	require.NoError(t, convertItems(context.Background(), conv, &items))

	require.Len(t, conv.got, 1)
	assert.Equal(t, "CHF", conv.got[0].Currency)
	require.NotNil(t, items.OtherCosts[0].AmountEUR)
	assert.Equal(t, 60.0, *items.OtherCosts[0].AmountEUR)
	assert.Equal(t, 10.0, *items.OtherCosts[1].AmountEUR)
	assert.Nil(t, items.VehicleKilometers[0].AmountEUR)
}
