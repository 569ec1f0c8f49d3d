package api

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"

	"randevu/internal/audit"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport streams the workbook for one month.
// GET /api/v1/export?month=YYYY-MM
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "month is required")
		return
	}
	month, err := audit.ParseMonth(raw, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Headers are written only after a successful render.
	var buf bytes.Buffer
	if err := s.exporter.ExportMonth(r.Context(), month, &buf); err != nil {
		s.logger.Error().Err(err).Str("month", raw).Msg("export failed")
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "export temporarily unavailable, please retry")
		return
	}

	name := audit.GenerateFilename(month)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
