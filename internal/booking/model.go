package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Principal is the authenticated actor an operation runs on behalf of.
// ID is the domain row id (patients.id or doctors.id), resolved once by
// the identity layer upstream; the engine never re-queries it.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusNoShow, StatusCancelled:
		return true
	}
	return false
}

type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Doctor struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Title     *string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName renders "Dr. Sarah Johnson" style names for responses and
// notification payloads.
func (d *Doctor) DisplayName() string {
	title := ""
	if d.Title != nil {
		title = *d.Title
	}
	return strings.TrimSpace(strings.TrimSpace(title+" "+d.FirstName) + " " + d.LastName)
}

type AppointmentType struct {
	ID              uuid.UUID
	Name            string
	DurationMinutes int
}

// Slot is one bookable interval on a doctor's calendar. IsAvailable means
// "not yet booked"; whether the slot is currently offerable is decided at
// query time against the doctor's availability blocks.
type Slot struct {
	ID                uuid.UUID
	DoctorID          uuid.UUID
	AppointmentTypeID *uuid.UUID
	StartTime         time.Time
	EndTime           time.Time
	IsAvailable       bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AvailabilityBlock is a doctor-declared exclusion window. Blocks are
// append-only and advisory: they hide slots from availability queries
// without touching the slot rows.
type AvailabilityBlock struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Reason    *string
	CreatedAt time.Time
}

type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	DoctorID           uuid.UUID
	SlotID             uuid.UUID
	AppointmentTypeID  *uuid.UUID
	Status             AppointmentStatus
	Notes              *string
	CancellationReason *string
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AppointmentDetail is an appointment hydrated with the rows the read
// paths join against.
type AppointmentDetail struct {
	Appointment
	Slot    *Slot
	Patient *Patient
	Doctor  *Doctor
	Type    *AppointmentType
}
