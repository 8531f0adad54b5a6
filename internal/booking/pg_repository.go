package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.FirstName,
		&d.LastName,
		&d.Title,
		&d.Specialty,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.AppointmentTypeID,
		&s.StartTime,
		&s.EndTime,
		&s.IsAvailable,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanBlock(row pgx.Row) (*AvailabilityBlock, error) {
	var b AvailabilityBlock

	err := row.Scan(
		&b.ID,
		&b.DoctorID,
		&b.StartTime,
		&b.EndTime,
		&b.Reason,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.SlotID,
		&a.AppointmentTypeID,
		&a.Status,
		&a.Notes,
		&a.CancellationReason,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

const appointmentColumns = `
	id, patient_id, doctor_id, slot_id, appointment_type_id,
	status, notes, cancellation_reason, cancelled_at, created_at, updated_at`

// Directory reads

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, title, specialty, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetAppointmentTypeByID(ctx context.Context, id uuid.UUID) (*AppointmentType, error) {
	var at AppointmentType
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes
		FROM appointment_types
		WHERE id = $1
	`, id).Scan(&at.ID, &at.Name, &at.DurationMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentTypeNotFound
		}
		return nil, err
	}
	return &at, nil
}

// Slot inventory

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, appointment_type_id, start_time, end_time, is_available, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListAvailableSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, appointment_type_id, start_time, end_time, is_available, created_at, updated_at
		FROM slots
		WHERE doctor_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		  AND is_available = true
		ORDER BY start_time
	`, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ClaimSlot is the single conditional write that makes concurrent
// bookings race-free: the WHERE clause checks and the SET flips the flag
// in one statement, so exactly one of N simultaneous claims reports a
// changed row. A claim on a slot that never existed fails the same way.
func (r *PgRepository) ClaimSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE slots
		SET is_available = false,
		    updated_at = now()
		WHERE id = $1
		  AND is_available = true
	`, id)
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

// ReleaseSlot is unconditional and therefore idempotent: releasing an
// already-available slot changes nothing and is not an error.
func (r *PgRepository) ReleaseSlot(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE slots
		SET is_available = true,
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

// Availability blocks

func (r *PgRepository) InsertBlock(ctx context.Context, block AvailabilityBlock) (*AvailabilityBlock, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_blocks (id, doctor_id, start_time, end_time, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, doctor_id, start_time, end_time, reason, created_at
	`, block.ID, block.DoctorID, block.StartTime, block.EndTime, block.Reason)
	return scanBlock(row)
}

func (r *PgRepository) ListBlocksByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AvailabilityBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, start_time, end_time, reason, created_at
		FROM availability_blocks
		WHERE doctor_id = $1
		ORDER BY start_time DESC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Appointments

func (r *PgRepository) InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, slot_id, appointment_type_id, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING`+appointmentColumns+`
	`, appt.ID, appt.PatientID, appt.DoctorID, appt.SlotID, appt.AppointmentTypeID, appt.Status, appt.Notes)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING`+appointmentColumns+`
	`, id, to, from)
	return scanAppointment(row)
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID, from AppointmentStatus, reason *string, cancelledAt time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    cancellation_reason = $2,
		    cancelled_at = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $4
		RETURNING`+appointmentColumns+`
	`, id, reason, cancelledAt, from)
	return scanAppointment(row)
}

// Read paths

const detailQuery = `
	SELECT a.id, a.patient_id, a.doctor_id, a.slot_id, a.appointment_type_id,
	       a.status, a.notes, a.cancellation_reason, a.cancelled_at, a.created_at, a.updated_at,
	       s.id, s.doctor_id, s.appointment_type_id, s.start_time, s.end_time, s.is_available, s.created_at, s.updated_at,
	       p.id, p.first_name, p.last_name, p.email, p.created_at, p.updated_at,
	       d.id, d.first_name, d.last_name, d.title, d.specialty, d.created_at, d.updated_at,
	       at.id, at.name, at.duration_minutes
	FROM appointments a
	JOIN slots s ON a.slot_id = s.id
	JOIN patients p ON a.patient_id = p.id
	JOIN doctors d ON a.doctor_id = d.id
	LEFT JOIN appointment_types at ON a.appointment_type_id = at.id`

func scanDetail(rows pgx.Rows) (*AppointmentDetail, error) {
	var det AppointmentDetail
	var slot Slot
	var patient Patient
	var doctor Doctor
	var typeID *uuid.UUID
	var typeName *string
	var typeDuration *int

	err := rows.Scan(
		&det.ID, &det.PatientID, &det.DoctorID, &det.SlotID, &det.AppointmentTypeID,
		&det.Status, &det.Notes, &det.CancellationReason, &det.CancelledAt, &det.CreatedAt, &det.UpdatedAt,
		&slot.ID, &slot.DoctorID, &slot.AppointmentTypeID, &slot.StartTime, &slot.EndTime, &slot.IsAvailable, &slot.CreatedAt, &slot.UpdatedAt,
		&patient.ID, &patient.FirstName, &patient.LastName, &patient.Email, &patient.CreatedAt, &patient.UpdatedAt,
		&doctor.ID, &doctor.FirstName, &doctor.LastName, &doctor.Title, &doctor.Specialty, &doctor.CreatedAt, &doctor.UpdatedAt,
		&typeID, &typeName, &typeDuration,
	)
	if err != nil {
		return nil, err
	}

	det.Slot = &slot
	det.Patient = &patient
	det.Doctor = &doctor
	if typeID != nil && typeName != nil {
		duration := 0
		if typeDuration != nil {
			duration = *typeDuration
		}
		det.Type = &AppointmentType{ID: *typeID, Name: *typeName, DurationMinutes: duration}
	}

	return &det, nil
}

func (r *PgRepository) queryDetails(ctx context.Context, where string, args ...any) ([]AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		det, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *det)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]AppointmentDetail, error) {
	return r.queryDetails(ctx, `
		WHERE a.patient_id = $1
		ORDER BY s.start_time DESC
	`, patientID)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	return r.queryDetails(ctx, `
		WHERE a.doctor_id = $1
		ORDER BY s.start_time DESC
	`, doctorID)
}

func (r *PgRepository) ListDoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]AppointmentDetail, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	return r.queryDetails(ctx, `
		WHERE a.doctor_id = $1
		  AND s.start_time >= $2
		  AND s.start_time < $3
		  AND a.status = 'confirmed'
		ORDER BY s.start_time
	`, doctorID, dayStart, dayEnd)
}

func (r *PgRepository) ListDoctorRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AppointmentDetail, error) {
	return r.queryDetails(ctx, `
		WHERE a.doctor_id = $1
		  AND s.start_time >= $2
		  AND s.start_time <= $3
		ORDER BY s.start_time
	`, doctorID, from, to)
}
