package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/atelierlabs/studiobook/internal/booking/domain"
	catalogdomain "github.com/atelierlabs/studiobook/internal/catalog/domain"
	"github.com/atelierlabs/studiobook/internal/clock"
	creditsdomain "github.com/atelierlabs/studiobook/internal/credits/domain"
	obsmetrics "github.com/atelierlabs/studiobook/internal/observability/metrics"
	"github.com/atelierlabs/studiobook/internal/pricing"
	subscriptiondomain "github.com/atelierlabs/studiobook/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
	CreditsSvc  creditsdomain.Service
	SubSvc      subscriptiondomain.Service
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
	creditsSvc  creditsdomain.Service
	subSvc      subscriptiondomain.Service
	obsMetrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("booking.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		creditsSvc:  p.CreditsSvc,
		subSvc:      p.SubSvc,
		obsMetrics:  p.ObsMetrics,
	}
}

// CreateBooking reserves a slot, prices the package and add-on services,
// decides credit coverage and persists everything as one transaction. Any
// failure rolls the whole unit back; no partial state is ever visible.
func (s *Service) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error) {
	if req.StartTime.IsZero() {
		return nil, domain.ErrInvalidStartTime
	}

	var created *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.createBookingTx(ctx, tx, req)
		if err != nil {
			return err
		}
		created = booking
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAvailabilityConflict) && s.obsMetrics != nil {
			s.obsMetrics.AvailabilityConflicts.Inc()
		}
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.BookingsCreated.Inc()
	}
	s.log.Info("booking created",
		zap.String("booking_id", created.ID.String()),
		zap.String("room_id", created.RoomID.String()),
		zap.Int64("total_price_minor", created.TotalPriceMinor),
		zap.Int64("used_credit_minutes", created.UsedCreditMinutes),
	)
	return created, nil
}

func (s *Service) createBookingTx(ctx context.Context, tx *gorm.DB, req domain.CreateBookingRequest) (*domain.Booking, error) {
	pkg, err := s.catalogRepo.FindPackage(ctx, tx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if pkg == nil || !pkg.Active {
		return nil, domain.ErrUnknownPackage
	}
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	if err := pkg.ValidateQuantity(req.PackageQuantity); err != nil {
		return nil, domain.ErrInvalidQuantity
	}
	if pkg.RoomID != nil && *pkg.RoomID != req.RoomID {
		return nil, domain.ErrRoomNotAllowed
	}

	room, err := s.catalogRepo.FindRoom(ctx, tx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil || !room.Active {
		return nil, domain.ErrUnknownRoom
	}

	start := req.StartTime.UTC()
	end, err := pricing.EndTime(start, pkg, req.PackageQuantity)
	if err != nil {
		return nil, err
	}

	// Serialize concurrent creators on this room before reading overlap
	// state, then re-read inside the lock.
	if err := s.repo.LockRoom(ctx, tx, req.RoomID); err != nil {
		return nil, err
	}
	taken, err := s.repo.HasOverlap(ctx, tx, req.RoomID, start, end)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrAvailabilityConflict
	}

	pkgQuote, err := pricing.PackagePrice(pkg, req.PackageQuantity)
	if err != nil {
		return nil, err
	}

	serviceItems, servicesTotal, err := s.priceServices(ctx, tx, req, pkg)
	if err != nil {
		return nil, err
	}

	creditCovered := false
	var usedMinutes int64
	sub, err := s.subSvc.ActiveForUser(ctx, tx, req.UserID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		// Serialize per-user credit decisions before reading the balance.
		if err := s.subSvc.LockForUpdate(ctx, tx, sub.ID); err != nil {
			return nil, err
		}
		required, err := pricing.RequiredCreditMinutes(pkg, pkgQuote.Quantity)
		if err != nil {
			return nil, err
		}
		balance, err := s.creditsSvc.Balance(ctx, tx, req.UserID)
		if err != nil {
			return nil, err
		}
		// A subscriber never falls back to cash: either the ledger covers
		// the package or the booking is rejected.
		if balance < required {
			return nil, domain.ErrInsufficientCredits
		}
		creditCovered = true
		usedMinutes = required
	}

	total := servicesTotal
	if !creditCovered {
		total += pkgQuote.TotalPriceMinor
	}

	now := s.clock.Now()
	booking := &domain.Booking{
		ID:                s.genID.Generate(),
		RoomID:            req.RoomID,
		UserID:            req.UserID,
		StartTime:         start,
		EndTime:           end,
		TimeZone:          strings.TrimSpace(req.TimeZone),
		Status:            domain.StatusConfirmed,
		TotalPriceMinor:   total,
		UsedCreditMinutes: usedMinutes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.InsertBooking(ctx, tx, booking); err != nil {
		return nil, err
	}

	pkgItem := domain.BookingLineItem{
		ID:              s.genID.Generate(),
		BookingID:       booking.ID,
		Kind:            domain.LineItemKindPackage,
		RefID:           pkg.ID,
		Name:            pkg.Name,
		UnitPriceMinor:  pkgQuote.UnitPriceMinor,
		Quantity:        pkgQuote.Quantity,
		TotalPriceMinor: pkgQuote.TotalPriceMinor,
		CreditCovered:   creditCovered,
		CreatedAt:       now,
	}
	if creditCovered {
		pkgItem.TotalPriceMinor = 0
	}
	if err := s.repo.InsertLineItem(ctx, tx, &pkgItem); err != nil {
		return nil, err
	}
	for i := range serviceItems {
		serviceItems[i].ID = s.genID.Generate()
		serviceItems[i].BookingID = booking.ID
		serviceItems[i].CreatedAt = now
		if err := s.repo.InsertLineItem(ctx, tx, &serviceItems[i]); err != nil {
			return nil, err
		}
	}

	if creditCovered && usedMinutes > 0 {
		if err := s.creditsSvc.Consume(ctx, tx, req.UserID, usedMinutes, booking.ID); err != nil {
			return nil, err
		}
	}

	return booking, nil
}

func (s *Service) priceServices(ctx context.Context, tx *gorm.DB, req domain.CreateBookingRequest, pkg *catalogdomain.Package) ([]domain.BookingLineItem, int64, error) {
	// Deterministic order keeps line item rows stable across retries.
	ids := make([]snowflake.ID, 0, len(req.ServiceQuantities))
	for id := range req.ServiceQuantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make([]domain.BookingLineItem, 0, len(ids))
	var total int64
	for _, id := range ids {
		quantity := req.ServiceQuantities[id]
		svc, err := s.catalogRepo.FindService(ctx, tx, id)
		if err != nil {
			return nil, 0, err
		}
		if svc == nil || !svc.Active {
			return nil, 0, domain.ErrUnknownService
		}
		if err := svc.ValidateQuantity(quantity); err != nil {
			return nil, 0, domain.ErrInvalidQuantity
		}
		quote, err := pricing.ServicePrice(svc, quantity, pkg, req.PackageQuantity)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, domain.BookingLineItem{
			Kind:            domain.LineItemKindService,
			RefID:           svc.ID,
			Name:            svc.Name,
			UnitPriceMinor:  quote.UnitPriceMinor,
			Quantity:        quote.Quantity,
			TotalPriceMinor: quote.TotalPriceMinor,
		})
		total += quote.TotalPriceMinor
	}
	return items, total, nil
}

// MarkPaid transitions CONFIRMED to PAID. Repeated calls for an already
// paid booking are a no-op so webhook retries stay cheap.
func (s *Service) MarkPaid(ctx context.Context, bookingID snowflake.ID, paymentReference string) error {
	return s.markPaidTx(ctx, s.db, bookingID, paymentReference)
}

// MarkPaidTx is MarkPaid running on the caller's transaction; the payment
// reconciler uses it so the transition commits atomically with the event
// record.
func (s *Service) MarkPaidTx(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID, paymentReference string) error {
	return s.markPaidTx(ctx, tx, bookingID, paymentReference)
}

func (s *Service) markPaidTx(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID, paymentReference string) error {
	ref := strings.TrimSpace(paymentReference)
	var refPtr *string
	if ref != "" {
		refPtr = &ref
	}
	changed, err := s.repo.UpdateStatus(ctx, tx, bookingID, domain.StatusConfirmed, domain.StatusPaid, refPtr, s.clock.Now())
	if err != nil {
		return err
	}
	if changed {
		return nil
	}

	existing, err := s.repo.FindByID(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	switch {
	case existing == nil:
		return domain.ErrBookingNotFound
	case existing.Status == domain.StatusPaid:
		return nil
	default:
		return domain.ErrInvalidTransition
	}
}

// Cancel transitions CONFIRMED to CANCELLED. Consumed credits are not
// restored; support can append a compensating grant when warranted.
func (s *Service) Cancel(ctx context.Context, bookingID snowflake.ID) error {
	changed, err := s.repo.UpdateStatus(ctx, s.db, bookingID, domain.StatusConfirmed, domain.StatusCancelled, nil, s.clock.Now())
	if err != nil {
		return err
	}
	if changed {
		return nil
	}

	existing, err := s.repo.FindByID(ctx, s.db, bookingID)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrBookingNotFound
	}
	return domain.ErrInvalidTransition
}

func (s *Service) Get(ctx context.Context, bookingID snowflake.ID) (*domain.Booking, []domain.BookingLineItem, error) {
	booking, err := s.repo.FindByID(ctx, s.db, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking == nil {
		return nil, nil, domain.ErrBookingNotFound
	}
	items, err := s.repo.ListLineItems(ctx, s.db, bookingID)
	if err != nil {
		return nil, nil, err
	}
	return booking, items, nil
}

func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.Booking, error) {
	return s.repo.ListForUser(ctx, s.db, userID)
}

// AttachCheckoutSession stores the processor session id on first call and
// returns the stored id afterwards, so a user retrying checkout reuses
// the same hosted session.
func (s *Service) AttachCheckoutSession(ctx context.Context, bookingID snowflake.ID, sessionID string) (string, error) {
	existing, err := s.repo.FindByID(ctx, s.db, bookingID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", domain.ErrBookingNotFound
	}
	if existing.CheckoutSessionID != nil && *existing.CheckoutSessionID != "" {
		return *existing.CheckoutSessionID, nil
	}
	if err := s.repo.SetCheckoutSession(ctx, s.db, bookingID, sessionID, s.clock.Now()); err != nil {
		return "", err
	}
	return sessionID, nil
}
