package notify

import (
	"context"

	redisclient "github.com/medibook/booking-engine/internal/redis"
)

// QueueDispatcher hands payloads to the notify worker through a Redis
// list. Enqueue errors bubble up so the caller can log them; nothing
// here blocks on actual delivery.
type QueueDispatcher struct {
	queue *redisclient.Queue
}

func NewQueueDispatcher(queue *redisclient.Queue) *QueueDispatcher {
	return &QueueDispatcher{queue: queue}
}

func (d *QueueDispatcher) BookingConfirmed(ctx context.Context, p BookingPayload) error {
	return d.queue.Push(ctx, Envelope{
		Kind:    KindBookingConfirmed,
		Booking: &p,
	})
}

func (d *QueueDispatcher) AppointmentCancelled(ctx context.Context, p CancellationPayload) error {
	return d.queue.Push(ctx, Envelope{
		Kind:         KindAppointmentCancelled,
		Cancellation: &p,
	})
}
