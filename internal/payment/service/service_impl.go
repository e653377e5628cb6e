package service

import (
	"context"
	"errors"
	"fmt"

	bookingdomain "github.com/atelierlabs/studiobook/internal/booking/domain"
	"github.com/atelierlabs/studiobook/internal/clock"
	creditsdomain "github.com/atelierlabs/studiobook/internal/credits/domain"
	invoicedomain "github.com/atelierlabs/studiobook/internal/invoice/domain"
	"github.com/atelierlabs/studiobook/internal/notification"
	obsmetrics "github.com/atelierlabs/studiobook/internal/observability/metrics"
	"github.com/atelierlabs/studiobook/internal/payment/domain"
	subscriptiondomain "github.com/atelierlabs/studiobook/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Clock            clock.Clock
	Repo             domain.Repository
	BookingSvc       bookingdomain.Service
	BookingRepo      bookingdomain.Repository
	SubscriptionSvc  subscriptiondomain.Service
	SubscriptionRepo subscriptiondomain.Repository
	CreditSvc        creditsdomain.Service
	InvoiceRepo      invoicedomain.Repository
	Notifier         *notification.Notifier `optional:"true"`
	ObsMetrics       *obsmetrics.Metrics    `optional:"true"`
}

// Service applies canonical payment events. The event record insert and
// every side effect of the event commit in one transaction, so a redelivery
// either sees the record and stops, or sees none of the effects.
type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	clock            clock.Clock
	repo             domain.Repository
	bookingSvc       bookingdomain.Service
	bookingRepo      bookingdomain.Repository
	subscriptionSvc  subscriptiondomain.Service
	subscriptionRepo subscriptiondomain.Repository
	creditSvc        creditsdomain.Service
	invoiceRepo      invoicedomain.Repository
	notifier         *notification.Notifier
	obsMetrics       *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("payment.service"),
		genID:            p.GenID,
		clock:            p.Clock,
		repo:             p.Repo,
		bookingSvc:       p.BookingSvc,
		bookingRepo:      p.BookingRepo,
		subscriptionSvc:  p.SubscriptionSvc,
		subscriptionRepo: p.SubscriptionRepo,
		creditSvc:        p.CreditSvc,
		invoiceRepo:      p.InvoiceRepo,
		notifier:         p.Notifier,
		obsMetrics:       p.ObsMetrics,
	}
}

func (s *Service) ProcessEvent(ctx context.Context, event *domain.Event) error {
	if event == nil || event.ProviderEventID == "" {
		return domain.ErrInvalidEvent
	}

	now := s.clock.Now()
	record := &domain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		BookingID:       event.BookingID,
		UserID:          event.UserID,
		Payload:         datatypes.JSON(event.RawPayload),
		ReceivedAt:      now,
		ProcessedAt:     now,
	}

	var paidBooking *bookingdomain.Booking
	err := s.db.Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertEvent(ctx, tx, record)
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrEventAlreadyProcessed
		}

		switch event.Type {
		case domain.EventTypePaymentSucceeded:
			paidBooking, err = s.applyPaymentSucceeded(ctx, tx, event)
			return err
		case domain.EventTypeSubscriptionUpdated:
			return s.applySubscriptionUpdated(ctx, tx, event)
		case domain.EventTypeSubscriptionDeleted:
			return s.applySubscriptionDeleted(ctx, tx, event)
		case domain.EventTypeSubscriptionInvoicePaid:
			return s.applySubscriptionInvoicePaid(ctx, tx, event)
		case domain.EventTypeSubscriptionInvoiceFailed:
			return s.applySubscriptionInvoiceFailed(ctx, tx, event)
		default:
			// Unknown types are recorded and acknowledged so the
			// processor stops redelivering them.
			s.log.Info("payment event type unhandled",
				zap.String("provider", event.Provider),
				zap.String("type", event.Type),
				zap.String("provider_event_id", event.ProviderEventID),
			)
			return nil
		}
	})
	if err != nil {
		if errors.Is(err, domain.ErrEventAlreadyProcessed) {
			s.log.Info("payment event redelivered",
				zap.String("provider", event.Provider),
				zap.String("provider_event_id", event.ProviderEventID),
			)
		}
		return err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPaymentEvent(event.Provider, event.Type)
	}
	if paidBooking != nil && s.notifier != nil {
		s.notifier.BookingPaid(ctx, paidBooking, event.CustomerEmail)
	}
	return nil
}

// applyPaymentSucceeded settles a booking checkout: the booking transitions
// to PAID and its invoice is issued. Events that reference no known booking
// are logged and acknowledged; failing them would make the processor retry a
// payload that can never apply.
func (s *Service) applyPaymentSucceeded(ctx context.Context, tx *gorm.DB, event *domain.Event) (*bookingdomain.Booking, error) {
	if event.BookingID == nil {
		s.log.Warn("payment succeeded without booking reference",
			zap.String("provider_event_id", event.ProviderEventID),
		)
		return nil, nil
	}

	err := s.bookingSvc.MarkPaidTx(ctx, tx, *event.BookingID, event.PaymentReference)
	if err != nil {
		if errors.Is(err, bookingdomain.ErrBookingNotFound) {
			s.log.Warn("payment succeeded for unknown booking",
				zap.String("booking_id", event.BookingID.String()),
				zap.String("provider_event_id", event.ProviderEventID),
			)
			return nil, nil
		}
		if errors.Is(err, bookingdomain.ErrInvalidTransition) {
			s.log.Warn("payment succeeded for non-payable booking",
				zap.String("booking_id", event.BookingID.String()),
				zap.String("provider_event_id", event.ProviderEventID),
			)
			return nil, nil
		}
		return nil, err
	}

	booking, err := s.bookingRepo.FindByID(ctx, tx, *event.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, bookingdomain.ErrBookingNotFound
	}

	invoice := &invoicedomain.Invoice{
		ID:          s.genID.Generate(),
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		AmountMinor: booking.TotalPriceMinor,
		Currency:    event.Currency,
		IssuedAt:    s.clock.Now(),
	}
	if _, err := s.invoiceRepo.Insert(ctx, tx, invoice); err != nil {
		return nil, err
	}

	s.log.Info("booking settled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("payment_reference", event.PaymentReference),
		zap.Int64("amount_minor", booking.TotalPriceMinor),
	)
	return booking, nil
}

func (s *Service) applySubscriptionUpdated(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
	if event.UserID == nil {
		s.log.Warn("subscription event without user reference",
			zap.String("provider_event_id", event.ProviderEventID),
		)
		return nil
	}

	_, err := s.subscriptionSvc.UpsertFromProvider(ctx, tx, subscriptiondomain.UpsertRequest{
		UserID:                 *event.UserID,
		ProviderSubscriptionID: event.ProviderSubscriptionID,
		ProviderPriceID:        event.ProviderPriceID,
		ProviderStatus:         event.ProviderStatus,
		CurrentPeriodStart:     event.PeriodStart,
		CurrentPeriodEnd:       event.PeriodEnd,
	})
	if errors.Is(err, subscriptiondomain.ErrPlanNotFound) {
		s.log.Warn("subscription references unknown plan",
			zap.String("provider_price_id", event.ProviderPriceID),
			zap.String("provider_event_id", event.ProviderEventID),
		)
		return nil
	}
	return err
}

func (s *Service) applySubscriptionDeleted(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
	err := s.subscriptionSvc.MarkCanceled(ctx, tx, event.ProviderSubscriptionID)
	if errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
		s.log.Warn("cancellation for unknown subscription",
			zap.String("provider_subscription_id", event.ProviderSubscriptionID),
		)
		return nil
	}
	return err
}

// applySubscriptionInvoicePaid grants the plan's included hours to the
// user's ledger. The grant rides the event record's transaction, so a
// redelivered invoice event can never double-grant.
func (s *Service) applySubscriptionInvoicePaid(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
	sub, err := s.subscriptionRepo.FindByProviderID(ctx, tx, event.ProviderSubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		s.log.Warn("invoice paid for unknown subscription",
			zap.String("provider_subscription_id", event.ProviderSubscriptionID),
		)
		return nil
	}

	plan, err := s.subscriptionSvc.PlanFor(ctx, tx, sub)
	if err != nil {
		return err
	}

	minutes := plan.IncludedCreditHours * 60
	if minutes <= 0 {
		return nil
	}
	reason := fmt.Sprintf("subscription_grant:%s", event.ProviderEventID)
	return s.creditSvc.Grant(ctx, tx, sub.UserID, minutes, reason)
}

func (s *Service) applySubscriptionInvoiceFailed(ctx context.Context, tx *gorm.DB, event *domain.Event) error {
	err := s.subscriptionSvc.MarkPastDue(ctx, tx, event.ProviderSubscriptionID)
	if errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) {
		s.log.Warn("invoice failure for unknown subscription",
			zap.String("provider_subscription_id", event.ProviderSubscriptionID),
		)
		return nil
	}
	return err
}
