package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"randevu/internal/model"
	"randevu/internal/reservation"
)

const maxBodyBytes = 1 << 20

// AssignStaffRequest is the body of PUT /api/v1/reservations/{id}/staff.
type AssignStaffRequest struct {
	StaffID string `json:"staff_id"`
}

// DeleteResponse is returned after a reservation is removed.
type DeleteResponse struct {
	Deleted     bool  `json:"deleted"`
	DataVersion int64 `json:"data_version"`
}

// ListResponse wraps the reservations of one day.
type ListResponse struct {
	Date         string              `json:"date"`
	Reservations []model.Reservation `json:"reservations"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// writeResult answers a validated write. Rejections are 409 with the reason in the body.
func writeResult(w http.ResponseWriter, okStatus int, res model.ReservationResult) {
	if !res.Valid {
		writeJSON(w, http.StatusConflict, res)
		return
	}
	writeJSON(w, okStatus, res)
}

// GET /api/v1/reservations?date=YYYY-MM-DD
func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	list, err := s.svc.List(r.Context(), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Date: date, Reservations: list})
}

// GET /api/v1/reservations/{id}
func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/v1/reservations
func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservation.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.ValidateAndReserve(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

// PUT /api/v1/reservations/{id}
func (s *HTTPServer) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservation.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.ValidateAndUpdate(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

// PUT /api/v1/reservations/{id}/staff
func (s *HTTPServer) handleAssignStaff(w http.ResponseWriter, r *http.Request) {
	var req AssignStaffRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.AssignStaff(r.Context(), mux.Vars(r)["id"], req.StaffID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

// DELETE /api/v1/reservations/{id}
func (s *HTTPServer) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: true, DataVersion: v})
}
