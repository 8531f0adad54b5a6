package notify

import (
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender turns queued envelopes into mail. Runs in the notify
// worker, never in a request path.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

func (s *SMTPSender) Send(raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	var to, subject, body string
	switch env.Kind {
	case KindBookingConfirmed:
		if env.Booking == nil {
			return fmt.Errorf("envelope kind %s has no booking payload", env.Kind)
		}
		to = env.Booking.To
		subject, body = FormatBookingMail(*env.Booking)
	case KindAppointmentCancelled:
		if env.Cancellation == nil {
			return fmt.Errorf("envelope kind %s has no cancellation payload", env.Kind)
		}
		to = env.Cancellation.To
		subject, body = FormatCancellationMail(*env.Cancellation)
	default:
		return fmt.Errorf("unknown envelope kind %q", env.Kind)
	}

	msg := buildMessage(s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func FormatBookingMail(p BookingPayload) (subject, body string) {
	subject = fmt.Sprintf("Appointment Confirmed - %s with %s", p.AppointmentType, p.DoctorName)

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\r\n\r\n", p.PatientName)
	b.WriteString("Your appointment has been successfully booked. Here are the details:\r\n\r\n")
	fmt.Fprintf(&b, "  Doctor:   %s\r\n", p.DoctorName)
	fmt.Fprintf(&b, "  Type:     %s\r\n", p.AppointmentType)
	fmt.Fprintf(&b, "  Date:     %s\r\n", p.Date)
	fmt.Fprintf(&b, "  Time:     %s\r\n", p.Time)
	fmt.Fprintf(&b, "  Duration: %d minutes\r\n\r\n", p.DurationMinutes)
	b.WriteString("Please arrive a few minutes early. If you need to reschedule or cancel, please do so through the app.\r\n")
	return subject, b.String()
}

func FormatCancellationMail(p CancellationPayload) (subject, body string) {
	subject = fmt.Sprintf("Appointment Cancelled - %s", p.Date)

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\r\n\r\n", p.PatientName)
	fmt.Fprintf(&b, "Your appointment with %s on %s at %s has been cancelled.\r\n\r\n", p.DoctorName, p.Date, p.Time)
	fmt.Fprintf(&b, "Reason: %s\r\n\r\n", p.Reason)
	b.WriteString("Please book a new appointment through the app at your convenience.\r\n")
	return subject, b.String()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
