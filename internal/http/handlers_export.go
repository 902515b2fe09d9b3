package http

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/raven-rwho/rem-expenses/internal/export"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/storage"
)

const formatSheets = "sheets"

// handleExport renders the draft report as a download. When an archiver is
// configured the document is also uploaded; upload failures are logged and
// do not fail the download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	rd, err := export.RendererFor(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	calc, err := s.deps.Reports.CalculateDraft(ctx, id)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	doc, err := export.Render(rd, calc.Report)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}

	logger := log.FromContext(ctx)
	fields := log.NewFields().WithOperation(log.OpExport)
	fields[log.FieldDraftID] = id
	fields[log.FieldExportFormat] = rd.Format()

	if s.deps.Archiver != nil {
		ref, err := s.deps.Archiver.Archive(ctx, id, doc)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to archive export", append(fields.ToSlice(), log.FieldError, err)...)
		} else {
			fields[log.FieldExportRef] = ref
			if err := s.deps.Drafts.RecordExport(ctx, id, rd.Format(), ref); err != nil {
				logger.WarnContext(ctx, "Failed to record export", append(fields.ToSlice(), log.FieldError, err)...)
			}
		}
	}
	logger.InfoContext(ctx, "Report exported", fields.ToSlice()...)

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	calc, err := s.deps.Reports.CalculateDraft(ctx, id)
	if err != nil {
		writeError(w, r, "export_sheets", err)
		return
	}
	ref, err := s.deps.Sheets.WriteReport(ctx, calc.Report)
	if err != nil {
		writeError(w, r, "export_sheets", err)
		return
	}
	if err := s.deps.Drafts.RecordExport(ctx, id, formatSheets, ref); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to record export",
			log.FieldDraftID, id, log.FieldExportRef, ref, log.FieldError, err)
	}
	log.FromContext(ctx).InfoContext(ctx, "Report written to Google Sheets",
		log.FieldDraftID, id, log.FieldExportRef, ref)
	writeJSON(w, http.StatusOK, map[string]string{"range": ref})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.Drafts.ListExports(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "list_exports", err)
		return
	}
	if records == nil {
		records = []storage.ExportRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
