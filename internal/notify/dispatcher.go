// Package notify carries booking and cancellation notices out of the
// engine. Dispatch is best effort: the engine fires payloads after a
// transition commits and only ever logs failures, it never rolls the
// transition back.
package notify

import "context"

const (
	KindBookingConfirmed     = "booking_confirmed"
	KindAppointmentCancelled = "appointment_cancelled"
)

type BookingPayload struct {
	To              string `json:"to"`
	PatientName     string `json:"patient_name"`
	DoctorName      string `json:"doctor_name"`
	AppointmentType string `json:"appointment_type"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type CancellationPayload struct {
	To          string `json:"to"`
	PatientName string `json:"patient_name"`
	DoctorName  string `json:"doctor_name"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Reason      string `json:"reason"`
}

// Envelope is the wire form queued between the API process and the
// notify worker.
type Envelope struct {
	Kind         string               `json:"kind"`
	Booking      *BookingPayload      `json:"booking,omitempty"`
	Cancellation *CancellationPayload `json:"cancellation,omitempty"`
}

type Dispatcher interface {
	BookingConfirmed(ctx context.Context, p BookingPayload) error
	AppointmentCancelled(ctx context.Context, p CancellationPayload) error
}
