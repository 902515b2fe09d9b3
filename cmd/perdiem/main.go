// Command perdiem calculates meal allowances and renders expense reports
// from the terminal.
package main

import (
	"os"
	_ "time/tzdata"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "perdiem",
		Short:         "Per-diem calculator and expense report exporter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("rates", "", "Rate table file (YAML, TOML or JSON); built-in table when empty")
	root.PersistentFlags().String("timezone", "Europe/Berlin", "Timezone the travel times are given in")

	root.AddCommand(newCalcCmd(), newRatesCmd(), newExportCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
