package sheets

import (
	"context"
	"errors"

	"github.com/raven-rwho/rem-expenses/internal/core"
)

// ErrNotConfigured is returned when no spreadsheet backend was set up.
var ErrNotConfigured = errors.New("sheets export not configured")

// Ports for outbound adapters.
type (
	// ReportWriter writes the report layout into a spreadsheet tab named
	// after the export file and returns a reference to the written range.
	ReportWriter interface {
		WriteReport(ctx context.Context, r core.ExpenseReport) (ref string, err error)
	}
)

// Disabled is the writer used when the Google Sheets export is switched off.
type Disabled struct{}

func (Disabled) WriteReport(context.Context, core.ExpenseReport) (string, error) {
	return "", ErrNotConfigured
}
