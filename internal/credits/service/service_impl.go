package service

import (
	"context"
	"strings"

	"github.com/atelierlabs/studiobook/internal/clock"
	"github.com/atelierlabs/studiobook/internal/credits/domain"
	obsmetrics "github.com/atelierlabs/studiobook/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("credits.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Balance(ctx context.Context, tx *gorm.DB, userID snowflake.ID) (int64, error) {
	return s.repo.SumForUser(ctx, tx, userID)
}

func (s *Service) Grant(ctx context.Context, tx *gorm.DB, userID snowflake.ID, minutes int64, reason string) error {
	if minutes <= 0 {
		return domain.ErrInvalidMinutes
	}
	entry := domain.CreditLedgerEntry{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Minutes:   minutes,
		Type:      domain.EntryTypeGrant,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		return err
	}
	if s.obsMetrics != nil {
		s.obsMetrics.CreditMinutesGranted.Add(float64(minutes))
	}
	s.log.Info("credit grant",
		zap.String("user_id", userID.String()),
		zap.Int64("minutes", minutes),
		zap.String("reason", entry.Reason),
	)
	return nil
}

// Consume appends a negative entry. The caller must have verified the
// balance covers the amount inside the same transaction.
func (s *Service) Consume(ctx context.Context, tx *gorm.DB, userID snowflake.ID, minutes int64, bookingID snowflake.ID) error {
	if minutes <= 0 {
		return domain.ErrInvalidMinutes
	}
	entry := domain.CreditLedgerEntry{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Minutes:   -minutes,
		Type:      domain.EntryTypeBooking,
		BookingID: &bookingID,
		Reason:    "booking",
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		return err
	}
	if s.obsMetrics != nil {
		s.obsMetrics.CreditMinutesConsumed.Add(float64(minutes))
	}
	return nil
}
