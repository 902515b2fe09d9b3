package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/currency"
	"github.com/raven-rwho/rem-expenses/internal/export"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/services"
	"github.com/raven-rwho/rem-expenses/internal/storage"
)

// reportInput is the JSON document read by export: the same shape the web
// form posts to /api/calculate.
type reportInput struct {
	TravelDetails core.TravelDetails `json:"travelDetails"`
	Expenses      core.ExpenseItems  `json:"expenses"`
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a report file as CSV or PDF",
		RunE:  runExport,
	}
	cmd.Flags().StringP("input", "i", "", "Report JSON ({travelDetails, expenses})")
	cmd.Flags().StringSliceP("format", "f", []string{"csv"}, "Output formats: csv, pdf")
	cmd.Flags().StringP("out", "o", ".", "Output directory")
	cmd.Flags().Bool("convert", false, "Convert foreign currency amounts without an EUR value")
	cmd.Flags().String("frankfurter-url", "", "Exchange rate API base URL")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	inPath, _ := cmd.Flags().GetString("input")
	formats, _ := cmd.Flags().GetStringSlice("format")
	outDir, _ := cmd.Flags().GetString("out")
	convert, _ := cmd.Flags().GetBool("convert")

	in, err := readInput(inPath)
	if err != nil {
		return err
	}
	if convert {
		baseURL, _ := cmd.Flags().GetString("frankfurter-url")
		if err := convertItems(ctx, currency.NewClient(baseURL,
			currency.WithConcurrency(4),
			currency.WithLogger(log.Discard())), &in.Expenses); err != nil {
			return err
		}
	}

	calc, err := newCalculator(cmd)
	if err != nil {
		return err
	}
	reports := services.NewReportService(calc, storage.NewMemoryStore(), log.Discard())
	result, err := reports.Calculate(ctx, in.TravelDetails, in.Expenses)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, f := range formats {
		path, err := writeExport(outDir, f, result.Report)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s geschrieben\n", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Gesamt: %s\n", totalColor(core.FormatEuro(result.Report.Total)))
	return nil
}

func readInput(path string) (reportInput, error) {
	var in reportInput
	data, err := os.ReadFile(path)
	if err != nil {
		return in, err
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("parsing %s: %w", path, err)
	}
	return in, nil
}

func writeExport(dir, format string, r core.ExpenseReport) (string, error) {
	rd, err := export.RendererFor(format)
	if err != nil {
		return "", err
	}
	doc, err := export.Render(rd, r)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type batchConverter interface {
	ConvertBatch(ctx context.Context, items []currency.BatchItem) ([]currency.Conversion, error)
}

// convertItems fills in the EUR value of every foreign item that has none.
// Kilometers are left alone.
func convertItems(ctx context.Context, conv batchConverter, items *core.ExpenseItems) error {
	type ref struct {
		category core.Category
		index    int
	}
	var (
		refs  []ref
		batch []currency.BatchItem
	)
	for _, c := range core.Categories() {
		if c == core.VehicleKilometers {
			continue
		}
		for i, it := range items.Items(c) {
			if it.NeedsConversion() && it.AmountEUR == nil {
				refs = append(refs, ref{c, i})
				batch = append(batch, currency.BatchItem{Amount: it.Amount, Currency: it.CurrencyCode()})
			}
		}
	}
	if len(batch) == 0 {
		return nil
	}

	results, err := conv.ConvertBatch(ctx, batch)
	if err != nil {
		return fmt.Errorf("converting amounts: %w", err)
	}
	for i, r := range refs {
		list := items.Items(r.category)
		list[r.index] = list[r.index].WithConversion(results[i].Amount, results[i].Rate)
	}
	return nil
}
