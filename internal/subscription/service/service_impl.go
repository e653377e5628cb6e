package service

import (
	"context"
	"strings"

	"github.com/atelierlabs/studiobook/internal/clock"
	"github.com/atelierlabs/studiobook/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) ActiveForUser(ctx context.Context, tx *gorm.DB, userID snowflake.ID) (*domain.Subscription, error) {
	return s.repo.FindActiveForUser(ctx, tx, userID)
}

func (s *Service) LockForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	return s.repo.TouchForUpdate(ctx, tx, id)
}

func (s *Service) UpsertFromProvider(ctx context.Context, tx *gorm.DB, req domain.UpsertRequest) (*domain.Subscription, error) {
	providerSubID := strings.TrimSpace(req.ProviderSubscriptionID)
	if providerSubID == "" || req.UserID == 0 {
		return nil, domain.ErrInvalidSubscription
	}

	plan, err := s.repo.FindPlanByProviderPriceID(ctx, tx, strings.TrimSpace(req.ProviderPriceID))
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	status := domain.MapProviderStatus(req.ProviderStatus)
	now := s.clock.Now()

	existing, err := s.repo.FindByProviderID(ctx, tx, providerSubID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		sub := &domain.Subscription{
			ID:                     s.genID.Generate(),
			UserID:                 req.UserID,
			PlanID:                 plan.ID,
			ProviderSubscriptionID: providerSubID,
			Status:                 status,
			CurrentPeriodStart:     req.CurrentPeriodStart,
			CurrentPeriodEnd:       req.CurrentPeriodEnd,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if err := s.repo.Insert(ctx, tx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}

	existing.PlanID = plan.ID
	existing.Status = status
	existing.CurrentPeriodStart = req.CurrentPeriodStart
	existing.CurrentPeriodEnd = req.CurrentPeriodEnd
	existing.UpdatedAt = now
	if err := s.repo.Update(ctx, tx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) MarkCanceled(ctx context.Context, tx *gorm.DB, providerSubscriptionID string) error {
	return s.setStatus(ctx, tx, providerSubscriptionID, domain.StatusCanceled)
}

func (s *Service) MarkPastDue(ctx context.Context, tx *gorm.DB, providerSubscriptionID string) error {
	return s.setStatus(ctx, tx, providerSubscriptionID, domain.StatusPastDue)
}

func (s *Service) setStatus(ctx context.Context, tx *gorm.DB, providerSubscriptionID string, status domain.Status) error {
	existing, err := s.repo.FindByProviderID(ctx, tx, strings.TrimSpace(providerSubscriptionID))
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrSubscriptionNotFound
	}
	existing.Status = status
	existing.UpdatedAt = s.clock.Now()
	return s.repo.Update(ctx, tx, existing)
}

func (s *Service) PlanFor(ctx context.Context, tx *gorm.DB, sub *domain.Subscription) (*domain.Plan, error) {
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	plan, err := s.repo.FindPlan(ctx, tx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}
