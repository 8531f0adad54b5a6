package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/booking-engine/internal/booking"
	"github.com/medibook/booking-engine/internal/notify"
)

type nopDispatcher struct{}

func (nopDispatcher) BookingConfirmed(context.Context, notify.BookingPayload) error { return nil }
func (nopDispatcher) AppointmentCancelled(context.Context, notify.CancellationPayload) error {
	return nil
}

type testEnv struct {
	repo    *booking.MemoryRepository
	server  *httptest.Server
	doctor  booking.Doctor
	patient booking.Patient
	slot    booking.Slot
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := booking.NewMemoryRepository()
	svc := booking.NewService(repo, nopDispatcher{}, zerolog.Nop())

	env := &testEnv{
		repo: repo,
		doctor: booking.Doctor{
			ID:        uuid.New(),
			FirstName: "Sarah",
			LastName:  "Johnson",
		},
		patient: booking.Patient{
			ID:        uuid.New(),
			FirstName: "Alice",
			LastName:  "Anders",
		},
	}
	env.slot = booking.Slot{
		ID:          uuid.New(),
		DoctorID:    env.doctor.ID,
		StartTime:   time.Date(2024, time.June, 1, 9, 0, 0, 0, time.Local),
		EndTime:     time.Date(2024, time.June, 1, 9, 30, 0, 0, time.Local),
		IsAvailable: true,
	}

	repo.AddDoctor(env.doctor)
	repo.AddPatient(env.patient)
	repo.AddSlot(env.slot)

	// Health handlers are not exercised here, so the pg and redis
	// handles can stay nil.
	router := NewRouter(RouterConfig{
		Service: svc,
		Logger:  zerolog.Nop(),
		Env:     "test",
		Version: "test",
	})
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, principal *booking.Principal, body any) *http.Response {
	t.Helper()

	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if principal != nil {
		req.Header.Set("X-User-ID", principal.ID.String())
		req.Header.Set("X-User-Role", string(principal.Role))
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRequestsWithoutPrincipalAreRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/appointments", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/slots", nil, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLiveness(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	live := decodeBody[LivenessResponse](t, resp)
	assert.Equal(t, "ok", live.Status)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	patientP := &booking.Principal{ID: env.patient.ID, Role: booking.RolePatient}
	doctorP := &booking.Principal{ID: env.doctor.ID, Role: booking.RoleDoctor}

	slotsPath := fmt.Sprintf("/slots?doctorId=%s&date=2024-06-01", env.doctor.ID)

	// The slot is visible before booking.
	resp := env.do(t, http.MethodGet, slotsPath, patientP, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots := decodeBody[[]SlotResponse](t, resp)
	require.Len(t, slots, 1)

	// Book it.
	resp = env.do(t, http.MethodPost, "/appointments", patientP, BookAppointmentRequest{
		SlotID: env.slot.ID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[BookingResponse](t, resp)
	assert.Equal(t, env.slot.ID, created.SlotID)
	assert.Equal(t, "confirmed", created.Status)

	// A second booker gets a definitive conflict.
	other := booking.Patient{ID: uuid.New(), FirstName: "Ben", LastName: "Okafor"}
	env.repo.AddPatient(other)
	resp = env.do(t, http.MethodPost, "/appointments", &booking.Principal{ID: other.ID, Role: booking.RolePatient}, BookAppointmentRequest{
		SlotID: env.slot.ID.String(),
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	conflict := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "slot_unavailable", conflict.Error)

	// The booked slot disappears from availability.
	resp = env.do(t, http.MethodGet, slotsPath, patientP, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots = decodeBody[[]SlotResponse](t, resp)
	assert.Empty(t, slots)

	// The doctor cancels with a reason, freeing the slot.
	resp = env.do(t, http.MethodPatch, "/appointments/"+created.ID.String(), doctorP, UpdateAppointmentRequest{
		Status:             "cancelled",
		CancellationReason: strPtr("Emergency"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decodeBody[BookingResponse](t, resp)
	assert.Equal(t, "cancelled", cancelled.Status)

	resp = env.do(t, http.MethodGet, slotsPath, patientP, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots = decodeBody[[]SlotResponse](t, resp)
	require.Len(t, slots, 1)

	// Cancelling again is an invalid transition, not a silent success.
	resp = env.do(t, http.MethodPatch, "/appointments/"+created.ID.String(), doctorP, UpdateAppointmentRequest{
		Status: "cancelled",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOutcomeForbiddenForPatient(t *testing.T) {
	env := newTestEnv(t)
	patientP := &booking.Principal{ID: env.patient.ID, Role: booking.RolePatient}

	resp := env.do(t, http.MethodPost, "/appointments", patientP, BookAppointmentRequest{
		SlotID: env.slot.ID.String(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[BookingResponse](t, resp)

	resp = env.do(t, http.MethodPatch, "/appointments/"+created.ID.String(), patientP, UpdateAppointmentRequest{
		Status: "completed",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBlockEndpoints(t *testing.T) {
	env := newTestEnv(t)
	patientP := &booking.Principal{ID: env.patient.ID, Role: booking.RolePatient}
	doctorP := &booking.Principal{ID: env.doctor.ID, Role: booking.RoleDoctor}

	// Patients may not declare blocks.
	resp := env.do(t, http.MethodPost, "/doctor/blocks", patientP, CreateBlockRequest{
		StartDate: "2024-06-01",
		EndDate:   "2024-06-02",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/doctor/blocks", doctorP, CreateBlockRequest{
		StartDate: "2024-06-01",
		EndDate:   "2024-06-02",
		Reason:    strPtr("On leave"),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	block := decodeBody[BlockResponse](t, resp)
	require.NotNil(t, block.Reason)
	assert.Equal(t, "On leave", *block.Reason)

	// The blocked day hides its slots but their stored flag is untouched.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/slots?doctorId=%s&date=2024-06-01", env.doctor.ID), patientP, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots := decodeBody[[]SlotResponse](t, resp)
	assert.Empty(t, slots)
	assert.True(t, env.repo.SlotAvailable(env.slot.ID))

	resp = env.do(t, http.MethodGet, "/doctor/blocks", doctorP, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	blocks := decodeBody[[]BlockResponse](t, resp)
	assert.Len(t, blocks, 1)
}

func TestBadInputs(t *testing.T) {
	env := newTestEnv(t)
	patientP := &booking.Principal{ID: env.patient.ID, Role: booking.RolePatient}

	resp := env.do(t, http.MethodGet, "/slots?doctorId=nope&date=2024-06-01", patientP, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/slots?doctorId=%s&date=June1st", env.doctor.ID), patientP, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/appointments", patientP, BookAppointmentRequest{SlotID: "not-a-uuid"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown doctor is a 404, not an empty list.
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/slots?doctorId=%s&date=2024-06-01", uuid.New()), patientP, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func strPtr(s string) *string { return &s }
