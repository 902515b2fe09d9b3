package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/perdiem"
	"github.com/raven-rwho/rem-expenses/internal/rates"
)

var (
	warnColor  = color.New(color.FgYellow, color.Bold).SprintFunc()
	totalColor = color.New(color.FgGreen, color.Bold).SprintFunc()
)

func newCalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate the meal allowance of a trip",
		Example: `  perdiem calc --departure "01.03.2026 08:00" --return "03.03.2026 16:00" --country Schweiz
  perdiem calc --departure "01.03.2026 08:00" --return "01.03.2026 19:30" --country Deutschland --breakfast`,
		RunE: runCalc,
	}
	cmd.Flags().String("departure", "", `Departure as "DD.MM.YYYY HH:MM"`)
	cmd.Flags().String("return", "", `Return as "DD.MM.YYYY HH:MM"`)
	cmd.Flags().String("country", "Deutschland", "Destination jurisdiction")
	cmd.Flags().Bool("breakfast", false, "Breakfast was included in the hotel price")
	_ = cmd.MarkFlagRequired("departure")
	_ = cmd.MarkFlagRequired("return")
	return cmd
}

func runCalc(cmd *cobra.Command, _ []string) error {
	depArg, _ := cmd.Flags().GetString("departure")
	retArg, _ := cmd.Flags().GetString("return")
	country, _ := cmd.Flags().GetString("country")
	breakfast, _ := cmd.Flags().GetBool("breakfast")

	dep, err := core.ParseDateTime(depArg)
	if err != nil {
		return fmt.Errorf("departure: %w", err)
	}
	ret, err := core.ParseDateTime(retArg)
	if err != nil {
		return fmt.Errorf("return: %w", err)
	}

	calc, err := newCalculator(cmd)
	if err != nil {
		return err
	}
	res, err := calc.Calculate(cmd.Context(), perdiem.Trip{
		Departure:         dep,
		Return:            ret,
		Jurisdiction:      country,
		BreakfastIncluded: breakfast,
	})
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

// newCalculator builds a calculator from the persistent --rates and
// --timezone flags.
func newCalculator(cmd *cobra.Command) (*perdiem.Calculator, error) {
	table, err := loadTable(cmd)
	if err != nil {
		return nil, err
	}
	tz, _ := cmd.Flags().GetString("timezone")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", tz, err)
	}
	return perdiem.New(table, perdiem.WithLocation(loc), perdiem.WithLogger(log.Discard())), nil
}

func loadTable(cmd *cobra.Command) (*rates.Table, error) {
	path, _ := cmd.Flags().GetString("rates")
	table, err := rates.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("loading rates: %w", err)
	}
	return table, nil
}

func breakdownTable(segments []core.DaySegment) pterm.TableData {
	data := pterm.TableData{{"Datum", "Art", "Pauschale", "Frühstück", "Betrag"}}
	for _, s := range segments {
		deduction := ""
		if s.BreakfastDeduction > 0 {
			deduction = "-" + core.FormatEuro(s.BreakfastDeduction)
		}
		data = append(data, []string{
			s.Date,
			s.Kind.Label(),
			core.FormatEuro(s.BaseAmount),
			deduction,
			core.FormatEuro(s.FinalAmount),
		})
	}
	return data
}

func printResult(w io.Writer, res perdiem.Result) error {
	rendered, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(breakdownTable(res.Breakdown)).Srender()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Land: %s (voll %s, teilweise %s)\n",
		res.Rate.Jurisdiction, core.FormatEuro(res.Rate.FullDay), core.FormatEuro(res.Rate.PartialDay))
	fmt.Fprintf(w, "Dauer: %s Stunden\n", core.FormatDecimal(res.DurationHours, 2, ".", ","))
	fmt.Fprintln(w, rendered)
	fmt.Fprintf(w, "Verpflegungsmehraufwand: %s\n", totalColor(core.FormatEuro(res.Total)))
	fmt.Fprintf(w, "Formel: %s\n", core.FormatEuro(res.FormulaTotal))

	if res.Diverges() {
		fmt.Fprintln(w, warnColor("Warnung: die Formel weicht von der Tagesaufstellung ab"))
	}
	if res.Rate.Fallback {
		msg := "Unbekanntes Land, Inlandspauschale verwendet"
		if len(res.Suggestions) > 0 {
			msg += fmt.Sprintf(" (meinten Sie %v?)", res.Suggestions)
		}
		fmt.Fprintln(w, warnColor(msg))
	}
	return nil
}
