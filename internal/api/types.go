package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medibook/booking-engine/internal/booking"
)

type SlotResponse struct {
	ID                uuid.UUID  `json:"id"`
	DoctorID          uuid.UUID  `json:"doctor_id"`
	AppointmentTypeID *uuid.UUID `json:"appointment_type_id,omitempty"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
}

func toSlotResponse(s booking.Slot) SlotResponse {
	return SlotResponse{
		ID:                s.ID,
		DoctorID:          s.DoctorID,
		AppointmentTypeID: s.AppointmentTypeID,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
	}
}

type BookAppointmentRequest struct {
	SlotID            string  `json:"slot_id"`
	AppointmentTypeID *string `json:"appointment_type_id,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

type BookingResponse struct {
	ID        uuid.UUID `json:"id"`
	SlotID    uuid.UUID `json:"slot_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateAppointmentRequest struct {
	Status             string  `json:"status"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
}

type AppointmentResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Status              string     `json:"status"`
	Notes               *string    `json:"notes,omitempty"`
	CancellationReason  *string    `json:"cancellation_reason,omitempty"`
	StartTime           time.Time  `json:"start_time"`
	EndTime             time.Time  `json:"end_time"`
	PatientName         string     `json:"patient_name,omitempty"`
	DoctorName          string     `json:"doctor_name,omitempty"`
	AppointmentTypeName *string    `json:"appointment_type_name,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func toAppointmentResponse(det booking.AppointmentDetail) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                 det.ID,
		Status:             string(det.Status),
		Notes:              det.Notes,
		CancellationReason: det.CancellationReason,
		CancelledAt:        det.CancelledAt,
		CreatedAt:          det.CreatedAt,
	}
	if det.Slot != nil {
		resp.StartTime = det.Slot.StartTime
		resp.EndTime = det.Slot.EndTime
	}
	if det.Patient != nil {
		resp.PatientName = det.Patient.FullName()
	}
	if det.Doctor != nil {
		resp.DoctorName = det.Doctor.DisplayName()
	}
	if det.Type != nil {
		name := det.Type.Name
		resp.AppointmentTypeName = &name
	}
	return resp
}

type CreateBlockRequest struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Reason    *string `json:"reason,omitempty"`
}

type BlockResponse struct {
	ID        uuid.UUID `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Reason    *string   `json:"reason,omitempty"`
}

func toBlockResponse(b booking.AvailabilityBlock) BlockResponse {
	return BlockResponse{
		ID:        b.ID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Reason:    b.Reason,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
