package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/rates"
)

func newRatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rates [jurisdiction...]",
		Short: "List the per-diem rate table",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(cmd)
			if err != nil {
				return err
			}
			return printRates(cmd.OutOrStdout(), table, args)
		},
	}
}

// ratesTable lists names in order; unknown names show the domestic fallback.
func ratesTable(table *rates.Table, names []string) pterm.TableData {
	data := pterm.TableData{{"Land", "Voller Tag", "Teilweise", "Gruppe"}}
	for _, name := range names {
		r := table.Resolve(name)
		group := r.Group
		if r.Fallback {
			group = "(Inland, unbekannt)"
		}
		data = append(data, []string{
			name,
			core.FormatEuro(r.FullDay),
			core.FormatEuro(r.PartialDay),
			group,
		})
	}
	return data
}

func printRates(w io.Writer, table *rates.Table, filter []string) error {
	names := filter
	if len(names) == 0 {
		names = table.Names()
	}
	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(ratesTable(table, names)).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, rendered)

	for _, name := range filter {
		if _, ok := table.Lookup(name); !ok {
			if s := table.Suggest(name, 3); len(s) > 0 {
				fmt.Fprintln(w, warnColor(fmt.Sprintf("%s: meinten Sie %s?", name, strings.Join(s, ", "))))
			}
		}
	}
	return nil
}
