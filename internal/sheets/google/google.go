package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/export"
	"github.com/raven-rwho/rem-expenses/internal/log"
	ports "github.com/raven-rwho/rem-expenses/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.ReportWriter = (*Client)(nil)

// Config selects the spreadsheet and the service account credentials.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID and the service account from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:      strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		ServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		ServiceAccountFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" {
		cfg.ServiceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return cfg
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credentialsJSON, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg.SpreadsheetID, logger,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
}

// NewWithOptions creates a client with explicit API options, e.g. a custom
// endpoint.
func NewWithOptions(ctx context.Context, spreadsheetID string, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = log.Default("sheets")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, logger: logger}, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// WriteReport writes the report layout into the tab named after the export
// file. An existing tab of that name is cleared and overwritten.
func (c *Client) WriteReport(ctx context.Context, r core.ExpenseReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := export.BuildSheet(r)
	tab := export.BaseName(r)

	exists, err := c.hasTab(ctx, tab)
	if err != nil {
		return "", err
	}
	if exists {
		clearRange := quoteTab(tab)
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("failed to clear sheet %s: %w", tab, err)
		}
	} else if err := c.addTab(ctx, tab); err != nil {
		return "", err
	}

	values := toValues(sheet)
	rng := fmt.Sprintf("%s!A1:%s%d", quoteTab(tab), columnLetter(len(export.Headers)), len(values))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", tab, err)
	}

	c.logger.InfoContext(ctx, "Report written to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"range", rng,
		"rows", len(values))
	return rng, nil
}

func (c *Client) hasTab(ctx context.Context, tab string) (bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && strings.EqualFold(s.Properties.Title, tab) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) addTab(ctx context.Context, tab string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", tab, err)
	}
	return nil
}

// toValues converts the layout into API values. Amounts are rounded to cents
// and stay numeric so the spreadsheet can sum them.
func toValues(sheet export.Sheet) [][]any {
	out := make([][]any, len(sheet.Rows))
	for i, row := range sheet.Rows {
		cells := make([]any, len(row.Cells))
		for j, cell := range row.Cells {
			if v, ok := cell.(float64); ok {
				cells[j] = core.RoundCents(v)
				continue
			}
			cells[j] = cell
		}
		out[i] = cells
	}
	return out
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// columnLetter maps 1 to A, 11 to K. Only single letters are needed.
func columnLetter(n int) string {
	if n < 1 || n > 26 {
		return "Z"
	}
	return string(rune('A' + n - 1))
}
