package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-process Repository. It honors
// the same claim contract as the Postgres implementation (check and flip
// under one lock acquisition), which is what the concurrency tests lean
// on. Not meant for production use.
type MemoryRepository struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]Patient
	doctors      map[uuid.UUID]Doctor
	types        map[uuid.UUID]AppointmentType
	slots        map[uuid.UUID]Slot
	blocks       []AvailabilityBlock
	appointments map[uuid.UUID]Appointment

	// ReleaseErr, when set, makes ReleaseSlot fail; tests use it to
	// exercise the retry path.
	ReleaseErr error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[uuid.UUID]Patient),
		doctors:      make(map[uuid.UUID]Doctor),
		types:        make(map[uuid.UUID]AppointmentType),
		slots:        make(map[uuid.UUID]Slot),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

// Seeding helpers

func (r *MemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

func (r *MemoryRepository) AddDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors[d.ID] = d
}

func (r *MemoryRepository) AddAppointmentType(at AppointmentType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[at.ID] = at
}

func (r *MemoryRepository) AddSlot(s Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[s.ID] = s
}

// SlotAvailable reports the stored flag, bypassing block filtering.
func (r *MemoryRepository) SlotAvailable(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	return ok && s.IsAvailable
}

// Repository implementation

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) GetAppointmentTypeByID(_ context.Context, id uuid.UUID) (*AppointmentType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.types[id]
	if !ok {
		return nil, ErrAppointmentTypeNotFound
	}
	return &at, nil
}

func (r *MemoryRepository) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) ListAvailableSlots(_ context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Slot
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.IsAvailable &&
			!s.StartTime.Before(dayStart) && s.StartTime.Before(dayEnd) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (r *MemoryRepository) ClaimSlot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok || !s.IsAvailable {
		return ErrSlotUnavailable
	}
	s.IsAvailable = false
	s.UpdatedAt = time.Now()
	r.slots[id] = s
	return nil
}

func (r *MemoryRepository) ReleaseSlot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ReleaseErr != nil {
		return r.ReleaseErr
	}

	s, ok := r.slots[id]
	if !ok {
		return nil
	}
	s.IsAvailable = true
	s.UpdatedAt = time.Now()
	r.slots[id] = s
	return nil
}

func (r *MemoryRepository) InsertBlock(_ context.Context, block AvailabilityBlock) (*AvailabilityBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, block)
	return &block, nil
}

func (r *MemoryRepository) ListBlocksByDoctor(_ context.Context, doctorID uuid.UUID) ([]AvailabilityBlock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []AvailabilityBlock
	for _, b := range r.blocks {
		if b.DoctorID == doctorID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[j].StartTime.Before(result[i].StartTime)
	})
	return result, nil
}

func (r *MemoryRepository) InsertAppointment(_ context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt.UpdatedAt = appt.CreatedAt
	r.appointments[appt.ID] = appt
	return &appt, nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) CancelAppointment(_ context.Context, id uuid.UUID, from AppointmentStatus, reason *string, cancelledAt time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusCancelled
	a.CancellationReason = reason
	a.CancelledAt = &cancelledAt
	a.UpdatedAt = cancelledAt
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	return r.listDetails(func(a Appointment) bool {
		return a.PatientID == patientID
	}, false), nil
}

func (r *MemoryRepository) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	return r.listDetails(func(a Appointment) bool {
		return a.DoctorID == doctorID
	}, false), nil
}

func (r *MemoryRepository) ListDoctorDay(_ context.Context, doctorID uuid.UUID, day time.Time) ([]AppointmentDetail, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	return r.listDetails(func(a Appointment) bool {
		if a.DoctorID != doctorID || a.Status != StatusConfirmed {
			return false
		}
		start := r.slots[a.SlotID].StartTime
		return !start.Before(dayStart) && start.Before(dayEnd)
	}, true), nil
}

func (r *MemoryRepository) ListDoctorRange(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error) {
	return r.listDetails(func(a Appointment) bool {
		if a.DoctorID != doctorID {
			return false
		}
		start := r.slots[a.SlotID].StartTime
		return !start.Before(from) && !start.After(to)
	}, true), nil
}

func (r *MemoryRepository) listDetails(match func(Appointment) bool, asc bool) []AppointmentDetail {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []AppointmentDetail
	for _, a := range r.appointments {
		if !match(a) {
			continue
		}
		det := AppointmentDetail{Appointment: a}
		if s, ok := r.slots[a.SlotID]; ok {
			slot := s
			det.Slot = &slot
		}
		if p, ok := r.patients[a.PatientID]; ok {
			patient := p
			det.Patient = &patient
		}
		if d, ok := r.doctors[a.DoctorID]; ok {
			doctor := d
			det.Doctor = &doctor
		}
		if a.AppointmentTypeID != nil {
			if at, ok := r.types[*a.AppointmentTypeID]; ok {
				typ := at
				det.Type = &typ
			}
		}
		result = append(result, det)
	}

	sort.Slice(result, func(i, j int) bool {
		si, sj := result[i].Slot.StartTime, result[j].Slot.StartTime
		if asc {
			return si.Before(sj)
		}
		return sj.Before(si)
	})
	return result
}
