package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raven-rwho/rem-expenses/internal/core"
	"github.com/raven-rwho/rem-expenses/internal/currency"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/storage"
)

// reportRequest is the body of calculate requests.
type reportRequest struct {
	TravelDetails core.TravelDetails `json:"travelDetails"`
	Expenses      core.ExpenseItems  `json:"expenses"`
}

// detailsRequest is the body of draft save requests. Items are edited
// through the item routes only.
type detailsRequest struct {
	TravelDetails core.TravelDetails `json:"travelDetails"`
}

func (s *Server) handleRates(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Rates == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ungrouped": []string{}, "groups": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Rates.Grouped())
}

func (s *Server) handleCurrencies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, currency.Supported())
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCalculate, err)
		return
	}
	calc, err := s.deps.Reports.Calculate(r.Context(), sanitizeDetails(req.TravelDetails), sanitizeItems(req.Expenses))
	if err != nil {
		writeError(w, r, log.OpCalculate, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Reports.LoadOrDefault(r.Context(), "")
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Draft created", log.FieldDraftID, d.ID)
	writeJSON(w, http.StatusCreated, d)
}

// handleGetDraft returns the stored draft. Unknown or unreadable drafts are
// replaced with a fresh default under the same ID.
func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Reports.LoadOrDefault(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	d, err := s.deps.Reports.SaveDetails(r.Context(), chi.URLParam(r, "id"), sanitizeDetails(req.TravelDetails))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Drafts.Delete(r.Context(), id); err != nil && !errors.Is(err, storage.ErrDraftNotFound) {
		writeError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Draft cleared", log.FieldDraftID, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetItem(w http.ResponseWriter, r *http.Request) {
	category, err := core.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, r, "set_item", err)
		return
	}
	var item core.LineItem
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, r, "set_item", err)
		return
	}
	item.Description = sanitizeInput(item.Description)

	saved, err := s.deps.Conversions.SetItem(r.Context(), chi.URLParam(r, "id"), category, item)
	if err != nil {
		writeError(w, r, "set_item", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	category, err := core.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, r, "remove_item", err)
		return
	}
	if err := s.deps.Conversions.RemoveItem(r.Context(), chi.URLParam(r, "id"), category, chi.URLParam(r, "itemID")); err != nil {
		writeError(w, r, "remove_item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDraftReport(w http.ResponseWriter, r *http.Request) {
	calc, err := s.deps.Reports.CalculateDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "draft_report", err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}
