package notification

import (
	"context"
	"fmt"

	bookingdomain "github.com/atelierlabs/studiobook/internal/booking/domain"
	"go.uber.org/zap"
)

// Notifier wraps the email provider with booking-shaped messages. All
// sends are best-effort: errors are logged, never returned.
type Notifier struct {
	log      *zap.Logger
	provider Provider
}

func NewNotifier(log *zap.Logger, provider Provider) *Notifier {
	return &Notifier{
		log:      log.Named("notification"),
		provider: provider,
	}
}

func (n *Notifier) BookingPaid(ctx context.Context, booking *bookingdomain.Booking, email string) {
	if email == "" {
		return
	}
	subject := "Your studio booking is confirmed"
	body := fmt.Sprintf(
		"<p>Your booking from %s to %s is paid and confirmed.</p>",
		booking.StartTime.Format("2006-01-02 15:04"),
		booking.EndTime.Format("2006-01-02 15:04"),
	)
	if err := n.provider.Send(ctx, []string{email}, subject, body); err != nil {
		n.log.Warn("booking confirmation email failed",
			zap.String("booking_id", booking.ID.String()),
			zap.Error(err),
		)
	}
}
