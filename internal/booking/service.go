package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/booking-engine/internal/notify"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("operation not permitted for this principal")
	ErrInvalidTransition = errors.New("invalid status transition")
)

const (
	mailDateFormat = "Monday, Jan 2 2006"
	mailTimeFormat = "3:04 PM"

	defaultTypeName        = "Appointment"
	defaultDurationMinutes = 30

	releaseAttempts = 5
	releaseBackoff  = 100 * time.Millisecond
)

// Service is the appointment lifecycle manager. It is the sole writer of
// appointment status and of slot availability; every flip of a slot's
// flag goes through the repository's atomic claim/release primitives.
type Service struct {
	repo       Repository
	dispatcher notify.Dispatcher
	logger     zerolog.Logger
}

func NewService(repo Repository, dispatcher notify.Dispatcher, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// AvailableSlots returns the doctor's open slots for one day with the
// doctor's availability blocks applied. Blocked slots stay available in
// storage; they are only hidden from the response.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error) {
	if doctorID == uuid.Nil || day.IsZero() {
		return nil, fmt.Errorf("%w: doctorId and date are required", ErrValidation)
	}

	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	slots, err := s.repo.ListAvailableSlots(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}

	blocks, err := s.repo.ListBlocksByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list availability blocks: %w", err)
	}

	return FilterBlockedSlots(blocks, slots), nil
}

// Book reserves a slot for the calling patient. The claim is a single
// conditional write at the storage layer, so simultaneous bookings on
// one slot resolve to exactly one winner; losers get ErrSlotUnavailable.
func (s *Service) Book(ctx context.Context, principal Principal, slotID uuid.UUID, appointmentTypeID *uuid.UUID, notes *string) (*Appointment, error) {
	if principal.Role != RolePatient {
		return nil, ErrForbidden
	}
	if slotID == uuid.Nil {
		return nil, fmt.Errorf("%w: slotId is required", ErrValidation)
	}

	patient, err := s.repo.GetPatientByID(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			// A slot that never existed and a slot someone else holds are
			// the same definitive conflict to the caller.
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("load slot: %w", err)
	}

	if err := s.repo.ClaimSlot(ctx, slotID); err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("claim slot: %w", err)
	}

	appt := Appointment{
		ID:                uuid.New(),
		PatientID:         patient.ID,
		DoctorID:          slot.DoctorID,
		SlotID:            slot.ID,
		AppointmentTypeID: appointmentTypeID,
		Status:            StatusConfirmed,
		Notes:             notes,
		CreatedAt:         time.Now(),
	}

	created, err := s.repo.InsertAppointment(ctx, appt)
	if err != nil {
		// The claim succeeded but no appointment exists, so the slot must
		// not stay consumed.
		s.releaseWithRetry(context.WithoutCancel(ctx), slot.ID)
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("slot_id", slot.ID.String()).
		Str("patient_id", patient.ID.String()).
		Msg("appointment booked")

	go s.sendBookingNotice(context.WithoutCancel(ctx), created, patient, slot)

	return created, nil
}

// Update applies one status transition on behalf of the principal:
// cancellation by the owning patient, owning doctor, or an admin, or an
// outcome (confirmed, completed, no_show) by the owning doctor.
func (s *Service) Update(ctx context.Context, principal Principal, appointmentID uuid.UUID, status AppointmentStatus, reason *string) (*Appointment, error) {
	switch status {
	case StatusConfirmed, StatusCompleted, StatusNoShow, StatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unsupported status %q", ErrValidation, status)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if status == StatusCancelled {
		return s.cancel(ctx, principal, appt, reason)
	}
	return s.markOutcome(ctx, principal, appt, status)
}

func (s *Service) cancel(ctx context.Context, principal Principal, appt *Appointment, reason *string) (*Appointment, error) {
	isPatientOwner := principal.Role == RolePatient && principal.ID == appt.PatientID
	isDoctorOwner := principal.Role == RoleDoctor && principal.ID == appt.DoctorID
	if !isPatientOwner && !isDoctorOwner && principal.Role != RoleAdmin {
		return nil, ErrForbidden
	}

	if appt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.CancelAppointment(ctx, appt.ID, StatusConfirmed, reason, time.Now())
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row left confirmed under us; a concurrent transition won.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	// The status write is committed, now give the slot back. Release must
	// not be skipped on error: a stuck-unavailable slot only loses
	// inventory, but a slot freed without a cancelled appointment would
	// invite a double booking, hence this ordering.
	s.releaseWithRetry(context.WithoutCancel(ctx), appt.SlotID)

	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("slot_id", appt.SlotID.String()).
		Str("cancelled_by", string(principal.Role)).
		Msg("appointment cancelled")

	if isDoctorOwner && reason != nil && strings.TrimSpace(*reason) != "" {
		go s.sendCancellationNotice(context.WithoutCancel(ctx), updated)
	}

	return updated, nil
}

func (s *Service) markOutcome(ctx context.Context, principal Principal, appt *Appointment, status AppointmentStatus) (*Appointment, error) {
	if principal.Role != RoleDoctor || principal.ID != appt.DoctorID {
		return nil, ErrForbidden
	}

	if appt.Status == status {
		// Re-affirming the current status is a no-op.
		return appt, nil
	}
	if appt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	// The slot was consumed at booking time and is not recycled for
	// completed or no_show appointments.
	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusConfirmed, status)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logger.Info().
		Str("appointment_id", updated.ID.String()).
		Str("status", string(updated.Status)).
		Msg("appointment outcome recorded")

	return updated, nil
}

// ListForPrincipal returns the caller's own appointments, most recent
// slot first. Admins have no bookings of their own.
func (s *Service) ListForPrincipal(ctx context.Context, principal Principal) ([]AppointmentDetail, error) {
	switch principal.Role {
	case RolePatient:
		list, err := s.repo.ListAppointmentsByPatient(ctx, principal.ID)
		if err != nil {
			return nil, fmt.Errorf("list patient appointments: %w", err)
		}
		return list, nil
	case RoleDoctor:
		list, err := s.repo.ListAppointmentsByDoctor(ctx, principal.ID)
		if err != nil {
			return nil, fmt.Errorf("list doctor appointments: %w", err)
		}
		return list, nil
	default:
		return []AppointmentDetail{}, nil
	}
}

// Today returns the calling doctor's confirmed appointments for the
// current date, earliest first.
func (s *Service) Today(ctx context.Context, principal Principal) ([]AppointmentDetail, error) {
	if principal.Role != RoleDoctor {
		return nil, ErrForbidden
	}

	list, err := s.repo.ListDoctorDay(ctx, principal.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("list today appointments: %w", err)
	}
	return list, nil
}

// Calendar returns the calling doctor's appointments in [from, to] with
// no status restriction. Zero bounds default to today and today+30d.
func (s *Service) Calendar(ctx context.Context, principal Principal, from, to time.Time) ([]AppointmentDetail, error) {
	if principal.Role != RoleDoctor {
		return nil, ErrForbidden
	}

	now := time.Now()
	if from.IsZero() {
		from = now
	}
	if to.IsZero() {
		to = now.AddDate(0, 0, 30)
	}
	from, to = NormalizeBlockRange(from, to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: from must not be after to", ErrValidation)
	}

	list, err := s.repo.ListDoctorRange(ctx, principal.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list calendar appointments: %w", err)
	}
	return list, nil
}

// AddBlock appends a full-day exclusion window for the calling doctor.
// Overlapping blocks are permitted and kept as declared.
func (s *Service) AddBlock(ctx context.Context, principal Principal, start, end time.Time, reason *string) (*AvailabilityBlock, error) {
	if principal.Role != RoleDoctor {
		return nil, ErrForbidden
	}
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: startDate and endDate are required", ErrValidation)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: endDate must not be before startDate", ErrValidation)
	}

	start, end = NormalizeBlockRange(start, end)

	block, err := s.repo.InsertBlock(ctx, AvailabilityBlock{
		ID:        uuid.New(),
		DoctorID:  principal.ID,
		StartTime: start,
		EndTime:   end,
		Reason:    reason,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("insert availability block: %w", err)
	}

	s.logger.Info().
		Str("block_id", block.ID.String()).
		Str("doctor_id", principal.ID.String()).
		Time("start", block.StartTime).
		Time("end", block.EndTime).
		Msg("availability block added")

	return block, nil
}

func (s *Service) ListBlocks(ctx context.Context, principal Principal) ([]AvailabilityBlock, error) {
	if principal.Role != RoleDoctor {
		return nil, ErrForbidden
	}

	blocks, err := s.repo.ListBlocksByDoctor(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("list availability blocks: %w", err)
	}
	return blocks, nil
}

// releaseWithRetry keeps trying to free the slot. The caller has already
// committed the state that makes the slot free, so giving up leaves the
// slot stuck unavailable, which is logged loudly but never corrupts the
// booking invariant.
func (s *Service) releaseWithRetry(ctx context.Context, slotID uuid.UUID) {
	var err error
	for attempt := 1; attempt <= releaseAttempts; attempt++ {
		if err = s.repo.ReleaseSlot(ctx, slotID); err == nil {
			return
		}
		s.logger.Warn().
			Err(err).
			Str("slot_id", slotID.String()).
			Int("attempt", attempt).
			Msg("slot release failed, retrying")
		time.Sleep(releaseBackoff * time.Duration(attempt))
	}

	s.logger.Error().
		Err(err).
		Str("slot_id", slotID.String()).
		Msg("slot release exhausted retries, slot remains unavailable")
}

func (s *Service) sendBookingNotice(ctx context.Context, appt *Appointment, patient *Patient, slot *Slot) {
	if patient.Email == nil || *patient.Email == "" {
		return
	}

	doctorName := "Doctor"
	if doctor, err := s.repo.GetDoctorByID(ctx, appt.DoctorID); err == nil {
		doctorName = doctor.DisplayName()
	}

	typeName := defaultTypeName
	duration := defaultDurationMinutes
	if appt.AppointmentTypeID != nil {
		if at, err := s.repo.GetAppointmentTypeByID(ctx, *appt.AppointmentTypeID); err == nil {
			typeName = at.Name
			duration = at.DurationMinutes
		}
	}

	payload := notify.BookingPayload{
		To:              *patient.Email,
		PatientName:     patient.FullName(),
		DoctorName:      doctorName,
		AppointmentType: typeName,
		Date:            slot.StartTime.Format(mailDateFormat),
		Time:            slot.StartTime.Format(mailTimeFormat),
		DurationMinutes: duration,
	}

	if err := s.dispatcher.BookingConfirmed(ctx, payload); err != nil {
		s.logger.Error().
			Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("booking notification dispatch failed")
	}
}

func (s *Service) sendCancellationNotice(ctx context.Context, appt *Appointment) {
	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("cancellation notification skipped, patient lookup failed")
		return
	}
	if patient.Email == nil || *patient.Email == "" {
		return
	}

	doctorName := "Doctor"
	if doctor, err := s.repo.GetDoctorByID(ctx, appt.DoctorID); err == nil {
		doctorName = doctor.DisplayName()
	}

	slot, err := s.repo.GetSlotByID(ctx, appt.SlotID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("cancellation notification skipped, slot lookup failed")
		return
	}

	reason := ""
	if appt.CancellationReason != nil {
		reason = *appt.CancellationReason
	}

	payload := notify.CancellationPayload{
		To:          *patient.Email,
		PatientName: patient.FullName(),
		DoctorName:  doctorName,
		Date:        slot.StartTime.Format(mailDateFormat),
		Time:        slot.StartTime.Format(mailTimeFormat),
		Reason:      reason,
	}

	if err := s.dispatcher.AppointmentCancelled(ctx, payload); err != nil {
		s.logger.Error().
			Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("cancellation notification dispatch failed")
	}
}
