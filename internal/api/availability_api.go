package api

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"randevu/internal/model"
)

// VersionResponse carries the current data version.
type VersionResponse struct {
	DataVersion int64 `json:"data_version"`
}

// ShiftSlotsResponse lists the hours of a shift.
type ShiftSlotsResponse struct {
	Shift string `json:"shift"`
	Slots []int  `json:"slots"`
}

// handleAvailability returns the advisory view of one day.
// GET /api/v1/availability?date=YYYY-MM-DD&profile=g&type=delivery
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	out, err := s.svc.ComputeDayAvailability(r.Context(), date, q.Get("profile"), q.Get("type"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/v1/version
func (s *HTTPServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.DataVersion(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VersionResponse{DataVersion: v})
}

// handleProfiles lists the active profile settings ordered by code.
// GET /api/v1/profiles
func (s *HTTPServer) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	all := s.svc.Profiles()
	out := make([]model.ProfileSettings, 0, len(all))
	for code, p := range all {
		p.Code = code
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	writeJSON(w, http.StatusOK, out)
}

// GET /api/v1/shifts/{shift}/slots
func (s *HTTPServer) handleShiftSlots(w http.ResponseWriter, r *http.Request) {
	shift := mux.Vars(r)["shift"]
	writeJSON(w, http.StatusOK, ShiftSlotsResponse{
		Shift: shift,
		Slots: s.svc.SlotsForShift(shift),
	})
}
