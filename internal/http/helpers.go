package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/currency"
	"github.com/raven-rwho/rem-expenses/internal/export"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/perdiem"
	"github.com/raven-rwho/rem-expenses/internal/sheets"
	"github.com/raven-rwho/rem-expenses/internal/storage"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("invalid request body")

// decodeJSON reads a single JSON value from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrDraftNotFound),
		errors.Is(err, core.ErrItemNotFound),
		errors.Is(err, export.ErrUnknownFormat):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDraftExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidTime),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrDescriptionLimit),
		errors.Is(err, perdiem.ErrInvalidTravelWindow),
		errors.Is(err, currency.ErrUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sheets.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorType classifies err for the error_type log field.
func errorType(err error, status int) string {
	switch {
	case status == http.StatusNotFound:
		return log.ErrorTypeNotFound
	case status == http.StatusServiceUnavailable:
		return log.ErrorTypeConfiguration
	case status < http.StatusInternalServerError:
		return log.ErrorTypeValidation
	case errors.Is(err, currency.ErrUpstream):
		return log.ErrorTypeNetwork
	default:
		return log.ErrorTypeInternal
	}
}

// writeError logs err and writes it as {"error": ...}. Server errors get a
// generic message.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	logger := log.FromContext(r.Context())

	msg := err.Error()
	fields := log.NewFields().WithErrorType(errorType(err, status))
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, fields)
		if status == http.StatusInternalServerError {
			msg = "Interner Serverfehler"
		}
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			fields.WithOperation(op).WithError(err).ToSlice()...)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizeDetails(td core.TravelDetails) core.TravelDetails {
	td.EmployeeName = sanitizeInput(td.EmployeeName)
	td.StartLocation = sanitizeInput(td.StartLocation)
	td.Destination = sanitizeInput(td.Destination)
	td.DepartureDate = sanitizeInput(td.DepartureDate)
	td.DepartureTime = sanitizeInput(td.DepartureTime)
	td.ReturnDate = sanitizeInput(td.ReturnDate)
	td.ReturnTime = sanitizeInput(td.ReturnTime)
	td.DestinationCountry = sanitizeInput(td.DestinationCountry)
	td.TravelReason = sanitizeInput(td.TravelReason)
	return td
}

func sanitizeItems(items core.ExpenseItems) core.ExpenseItems {
	items = items.Clone()
	for _, c := range core.Categories() {
		list := items.Items(c)
		for i := range list {
			list[i].Description = sanitizeInput(list[i].Description)
		}
	}
	return items
}
