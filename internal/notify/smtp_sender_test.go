package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBookingMail(t *testing.T) {
	subject, body := FormatBookingMail(BookingPayload{
		To:              "alice@example.com",
		PatientName:     "Alice Anders",
		DoctorName:      "Dr. Sarah Johnson",
		AppointmentType: "General Consultation",
		Date:            "Saturday, Jun 1 2024",
		Time:            "9:00 AM",
		DurationMinutes: 30,
	})

	assert.Equal(t, "Appointment Confirmed - General Consultation with Dr. Sarah Johnson", subject)
	assert.Contains(t, body, "Dear Alice Anders,")
	assert.Contains(t, body, "Dr. Sarah Johnson")
	assert.Contains(t, body, "Saturday, Jun 1 2024")
	assert.Contains(t, body, "9:00 AM")
	assert.Contains(t, body, "30 minutes")
}

func TestFormatCancellationMail(t *testing.T) {
	subject, body := FormatCancellationMail(CancellationPayload{
		To:          "alice@example.com",
		PatientName: "Alice Anders",
		DoctorName:  "Dr. Sarah Johnson",
		Date:        "Saturday, Jun 1 2024",
		Time:        "9:00 AM",
		Reason:      "Emergency",
	})

	assert.Contains(t, subject, "Appointment Cancelled")
	assert.Contains(t, body, "Dear Alice Anders,")
	assert.Contains(t, body, "Dr. Sarah Johnson")
	assert.Contains(t, body, "Reason: Emergency")
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope{
		Kind: KindAppointmentCancelled,
		Cancellation: &CancellationPayload{
			To:     "alice@example.com",
			Reason: "Emergency",
		},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Cancellation)
	assert.Equal(t, KindAppointmentCancelled, decoded.Kind)
	assert.Equal(t, "Emergency", decoded.Cancellation.Reason)
	assert.Nil(t, decoded.Booking)
}

func TestSenderRejectsMalformedEnvelopes(t *testing.T) {
	s := NewSMTPSender("localhost", 587, "", "", "noreply@medibook.example")

	assert.Error(t, s.Send([]byte("not json")))

	missing, err := json.Marshal(Envelope{Kind: KindBookingConfirmed})
	require.NoError(t, err)
	assert.Error(t, s.Send(missing))

	unknown, err := json.Marshal(Envelope{Kind: "unknown_kind"})
	require.NoError(t, err)
	assert.Error(t, s.Send(unknown))
}
