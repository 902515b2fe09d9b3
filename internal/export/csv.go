package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/raven-rwho/rem-expenses/internal/core"
)

// CSVRenderer writes the sheet layout as comma separated values, one line per
// layout row. Blank rows are kept so the file mirrors the spreadsheet.
type CSVRenderer struct{}

func (CSVRenderer) Format() string      { return "csv" }
func (CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVRenderer) Render(w io.Writer, r core.ExpenseReport) error {
	writer := csv.NewWriter(w)
	for _, record := range BuildSheet(r).Strings() {
		if len(record) == 0 {
			record = []string{""}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
