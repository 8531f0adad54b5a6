package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/booking-engine/internal/booking"
)

const dateParamFormat = "2006-01-02"

func getSlotsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctorId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorId must be a valid UUID")
			return
		}

		day, err := time.ParseInLocation(dateParamFormat, r.URL.Query().Get("date"), time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted as YYYY-MM-DD")
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), doctorID, day)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}

		var typeID *uuid.UUID
		if req.AppointmentTypeID != nil {
			parsed, err := uuid.Parse(*req.AppointmentTypeID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_type_id", "appointment_type_id must be a valid UUID")
				return
			}
			typeID = &parsed
		}

		appt, err := svc.Book(r.Context(), principal, slotID, typeID, req.Notes)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			ID:        appt.ID,
			SlotID:    appt.SlotID,
			DoctorID:  appt.DoctorID,
			Status:    string(appt.Status),
			CreatedAt: appt.CreatedAt,
		})
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		list, err := svc.ListForPrincipal(r.Context(), principal)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func updateAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Update(r.Context(), principal, id, booking.AppointmentStatus(req.Status), req.CancellationReason)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, BookingResponse{
			ID:        appt.ID,
			SlotID:    appt.SlotID,
			DoctorID:  appt.DoctorID,
			Status:    string(appt.Status),
			CreatedAt: appt.CreatedAt,
		})
	}
}

func doctorTodayHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		list, err := svc.Today(r.Context(), principal)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func doctorCalendarHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		var from, to time.Time
		if v := r.URL.Query().Get("from"); v != "" {
			parsed, err := time.ParseInLocation(dateParamFormat, v, time.Local)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "from must be formatted as YYYY-MM-DD")
				return
			}
			from = parsed
		}
		if v := r.URL.Query().Get("to"); v != "" {
			parsed, err := time.ParseInLocation(dateParamFormat, v, time.Local)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "to must be formatted as YYYY-MM-DD")
				return
			}
			to = parsed
		}

		list, err := svc.Calendar(r.Context(), principal, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func createBlockHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		var req CreateBlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, err := time.ParseInLocation(dateParamFormat, req.StartDate, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "start_date must be formatted as YYYY-MM-DD")
			return
		}
		end, err := time.ParseInLocation(dateParamFormat, req.EndDate, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "end_date must be formatted as YYYY-MM-DD")
			return
		}

		block, err := svc.AddBlock(r.Context(), principal, start, end, req.Reason)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBlockResponse(*block))
	}
}

func listBlocksHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipal(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no principal on request")
			return
		}

		blocks, err := svc.ListBlocks(r.Context(), principal)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]BlockResponse, 0, len(blocks))
		for _, b := range blocks {
			resp = append(resp, toBlockResponse(b))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func toAppointmentResponses(list []booking.AppointmentDetail) []AppointmentResponse {
	resp := make([]AppointmentResponse, 0, len(list))
	for _, det := range list {
		resp = append(resp, toAppointmentResponse(det))
	}
	return resp
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot is not available")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
