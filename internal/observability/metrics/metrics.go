// Package metrics exposes prometheus instruments for the booking and
// settlement pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	BookingsCreated       prometheus.Counter
	AvailabilityConflicts prometheus.Counter
	PaymentEvents         *prometheus.CounterVec
	CreditMinutesGranted  prometheus.Counter
	CreditMinutesConsumed prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		BookingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "studiobook_bookings_created_total",
			Help: "Bookings successfully committed.",
		}),
		AvailabilityConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "studiobook_booking_conflicts_total",
			Help: "Booking attempts rejected because the slot was taken.",
		}),
		PaymentEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "studiobook_payment_events_total",
			Help: "Payment processor events applied, by provider and type.",
		}, []string{"provider", "type"}),
		CreditMinutesGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "studiobook_credit_minutes_granted_total",
			Help: "Prepaid minutes granted to user ledgers.",
		}),
		CreditMinutesConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "studiobook_credit_minutes_consumed_total",
			Help: "Prepaid minutes consumed by bookings.",
		}),
	}
}

func (m *Metrics) RecordPaymentEvent(provider, eventType string) {
	if m == nil {
		return
	}
	m.PaymentEvents.WithLabelValues(provider, eventType).Inc()
}
