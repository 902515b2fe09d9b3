package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/log"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{ServiceAccountJSON: "{}"}, log.Discard())
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"}, log.Discard())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestCredentialsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	data, err := credentials(Config{ServiceAccountFile: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "service_account") {
		t.Errorf("unexpected credentials: %s", data)
	}

	if _, err := credentials(Config{ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", " sheet-1 ")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/adc.json")

	cfg := ConfigFromEnv()
	if cfg.SpreadsheetID != "sheet-1" {
		t.Errorf("SpreadsheetID = %q", cfg.SpreadsheetID)
	}
	if cfg.ServiceAccountFile != "/tmp/adc.json" {
		t.Errorf("ServiceAccountFile = %q", cfg.ServiceAccountFile)
	}
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{1: "A", 11: "K", 26: "Z"}
	for n, want := range tests {
		if got := columnLetter(n); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestQuoteTab(t *testing.T) {
	if got := quoteTab("It's"); got != "'It''s'" {
		t.Errorf("quoteTab = %q", got)
	}
}

// fakeSheetsAPI records the calls the client makes against the REST API.
type fakeSheetsAPI struct {
	mu       sync.Mutex
	tabs     []string
	calls    []string
	lastBody map[string]any
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-1"):
		sheets := make([]map[string]any, 0, len(f.tabs))
		for _, tab := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": tab}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		body, _ := io.ReadAll(r.Body)
		var parsed map[string]any
		_ = json.Unmarshal(body, &parsed)
		f.lastBody = parsed
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func (f *fakeSheetsAPI) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(), "sheet-1", log.Discard(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c
}

func testReport() core.ExpenseReport {
	details := core.TravelDetails{
		EmployeeName:  "Jo",
		StartLocation: "Berlin",
		Destination:   "Hamburg",
		DepartureDate: "05.02.2026",
		DepartureTime: "07:00",
		ReturnDate:    "05.02.2026",
		ReturnTime:    "19:00",
	}
	items := core.ExpenseItems{PublicTransport: []core.LineItem{core.NewLineItem().WithConversion(89.9, 1)}}
	return core.Aggregate(details, items, core.Allowance{Total: 20})
}

func TestWriteReport_CreatesTab(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)

	ref, err := c.WriteReport(context.Background(), testReport())
	if err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if !strings.HasPrefix(ref, "'Reisekosten_05-02-2026_05-02-2026'!A1:K") {
		t.Errorf("unexpected ref %q", ref)
	}
	if !api.called("POST") {
		t.Error("expected a batchUpdate call to add the tab")
	}
	if api.lastBody == nil {
		t.Fatal("expected values to be written")
	}
	values, ok := api.lastBody["values"].([]any)
	if !ok || len(values) == 0 {
		t.Fatalf("unexpected values payload: %v", api.lastBody)
	}
	first := values[0].([]any)
	if first[0] != "Reisekosten und Spesen  Jo" {
		t.Errorf("unexpected title cell %v", first[0])
	}
}

func TestWriteReport_ClearsExistingTab(t *testing.T) {
	api := &fakeSheetsAPI{tabs: []string{"Reisekosten_05-02-2026_05-02-2026"}}
	c := newTestClient(t, api)

	if _, err := c.WriteReport(context.Background(), testReport()); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	var cleared, added bool
	for _, call := range api.calls {
		if strings.HasSuffix(call, ":clear") {
			cleared = true
		}
		if strings.HasSuffix(call, ":batchUpdate") {
			added = true
		}
	}
	if !cleared {
		t.Error("expected existing tab to be cleared")
	}
	if added {
		t.Error("did not expect a new tab")
	}
}

func TestWriteReport_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.WriteReport(context.Background(), testReport()); err == nil {
		t.Fatal("expected error with nil service")
	}
}
