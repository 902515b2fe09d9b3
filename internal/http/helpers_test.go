package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/currency"
	"github.com/raven-rwho/rem-expenses/internal/export"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/perdiem"
	"github.com/raven-rwho/rem-expenses/internal/sheets"
	"github.com/raven-rwho/rem-expenses/internal/storage"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: eof", errBadRequest), http.StatusBadRequest},
		{storage.ErrDraftNotFound, http.StatusNotFound},
		{storage.ErrDraftCorrupt, http.StatusNotFound},
		{fmt.Errorf("%w: x", core.ErrItemNotFound), http.StatusNotFound},
		{export.ErrUnknownFormat, http.StatusNotFound},
		{storage.ErrDraftExists, http.StatusConflict},
		{fmt.Errorf("departure: %w", core.ErrInvalidDate), http.StatusUnprocessableEntity},
		{core.ErrInvalidTime, http.StatusUnprocessableEntity},
		{fmt.Errorf("otherCosts[0]: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity},
		{core.ErrUnknownCategory, http.StatusUnprocessableEntity},
		{core.ErrDescriptionLimit, http.StatusUnprocessableEntity},
		{perdiem.ErrInvalidTravelWindow, http.StatusUnprocessableEntity},
		{currency.ErrUnsupported, http.StatusUnprocessableEntity},
		{sheets.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{core.ErrInvalidAmount, log.ErrorTypeValidation},
		{storage.ErrDraftExists, log.ErrorTypeValidation},
		{storage.ErrDraftNotFound, log.ErrorTypeNotFound},
		{sheets.ErrNotConfigured, log.ErrorTypeConfiguration},
		{fmt.Errorf("%w: status 502", currency.ErrUpstream), log.ErrorTypeNetwork},
		{errors.New("disk on fire"), log.ErrorTypeInternal},
	}
	for _, tt := range tests {
		if got := errorType(tt.err, errorStatus(tt.err)); got != tt.want {
			t.Errorf("errorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/drafts/x", nil)
	writeError(rr, req, "test", errors.New("database path /secret is broken"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "/secret") {
		t.Errorf("internal error leaked: %s", rr.Body.String())
	}
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":1}{"amount":2}`))
	var item core.LineItem
	if err := decodeJSON(rr, req, &item); !errors.Is(err, errBadRequest) {
		t.Fatalf("decodeJSON() error = %v, want errBadRequest", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Berlin  ", "Berlin"},
		{"Ta\x00xi", "Taxi"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
		{"\x1b[31mred", "[31mred"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeItemsDoesNotAliasInput(t *testing.T) {
	items := core.ExpenseItems{OtherCosts: []core.LineItem{{Description: " Taxi\x00"}}}
	clean := sanitizeItems(items)
	if clean.OtherCosts[0].Description != "Taxi" {
		t.Errorf("Description = %q", clean.OtherCosts[0].Description)
	}
	if items.OtherCosts[0].Description != " Taxi\x00" {
		t.Error("input was modified")
	}
}
