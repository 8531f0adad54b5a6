package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound         = errors.New("patient not found")
	ErrDoctorNotFound          = errors.New("doctor not found")
	ErrAppointmentTypeNotFound = errors.New("appointment type not found")
	ErrSlotNotFound            = errors.New("slot not found")
	ErrAppointmentNotFound     = errors.New("appointment not found")

	// ErrSlotUnavailable is the definitive conflict result of a failed
	// claim: the slot is already booked or never existed.
	ErrSlotUnavailable = errors.New("slot is not available")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Directory reads, used for enrichment and notification payloads only.
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetAppointmentTypeByID(ctx context.Context, id uuid.UUID) (*AppointmentType, error)

	// Slot inventory.
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error)
	// ClaimSlot flips is_available true -> false as one conditional write.
	// Exactly one of N concurrent claims on the same slot succeeds; the
	// rest get ErrSlotUnavailable.
	ClaimSlot(ctx context.Context, id uuid.UUID) error
	// ReleaseSlot sets is_available back to true. Idempotent: releasing an
	// already-available slot is a no-op, so retried cancellations are safe.
	ReleaseSlot(ctx context.Context, id uuid.UUID) error

	// Availability blocks, append-only.
	InsertBlock(ctx context.Context, block AvailabilityBlock) (*AvailabilityBlock, error)
	ListBlocksByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityBlock, error)

	// Appointments.
	InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// UpdateAppointmentStatus transitions from -> to conditionally on the
	// current status, returning ErrAppointmentNotFound if the row is no
	// longer in the from status.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	// CancelAppointment is the cancel-specific conditional transition; it
	// also records the reason and cancellation timestamp.
	CancelAppointment(ctx context.Context, id uuid.UUID, from AppointmentStatus, reason *string, cancelledAt time.Time) (*Appointment, error)

	// Read paths.
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error)
	ListDoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]AppointmentDetail, error)
	ListDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error)
}
