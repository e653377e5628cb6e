// Package domain contains subscription plans and per-user subscription
// state, kept in sync with the external payment processor.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Status is the internal subscription lifecycle vocabulary. Processor
// statuses are mapped onto it on ingest.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPastDue  Status = "PAST_DUE"
	StatusCanceled Status = "CANCELED"
)

var (
	ErrPlanNotFound         = errors.New("plan_not_found")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
)

// Plan is a purchasable recurring plan. IncludedCreditHours is granted to
// the user's credit ledger each time a subscription invoice is paid.
type Plan struct {
	ID                 snowflake.ID `json:"id" gorm:"primaryKey"`
	Name               string       `json:"name" gorm:"type:text;not null"`
	IncludedCreditHours int64       `json:"included_credit_hours" gorm:"not null"`
	PriceMinor         int64        `json:"price_minor" gorm:"not null"`
	Interval           string       `json:"interval" gorm:"type:text;not null;default:'month'"`
	ProviderPriceID    string       `json:"provider_price_id" gorm:"type:text;not null;uniqueIndex"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Plan) TableName() string { return "plans" }

// Subscription is a user's recurring agreement, keyed by the processor's
// subscription id for webhook upserts.
type Subscription struct {
	ID                     snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID                 snowflake.ID `json:"user_id" gorm:"not null;index"`
	PlanID                 snowflake.ID `json:"plan_id" gorm:"not null;index"`
	ProviderSubscriptionID string       `json:"provider_subscription_id" gorm:"type:text;not null;uniqueIndex"`
	Status                 Status       `json:"status" gorm:"type:text;not null"`
	CurrentPeriodStart     time.Time    `json:"current_period_start" gorm:"not null"`
	CurrentPeriodEnd       time.Time    `json:"current_period_end" gorm:"not null"`
	CreatedAt              time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Subscription) TableName() string { return "subscriptions" }

// MapProviderStatus folds the processor's status vocabulary onto ours.
// Unknown values are treated as canceled rather than rejected so a new
// upstream status never wedges the reconciler.
func MapProviderStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "trialing":
		return StatusActive
	case "past_due", "unpaid", "incomplete":
		return StatusPastDue
	default:
		return StatusCanceled
	}
}

// UpsertRequest carries processor-side subscription state into the store.
type UpsertRequest struct {
	UserID                 snowflake.ID
	ProviderSubscriptionID string
	ProviderPriceID        string
	ProviderStatus         string
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	Update(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByProviderID(ctx context.Context, db *gorm.DB, providerSubscriptionID string) (*Subscription, error)
	FindActiveForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Subscription, error)
	TouchForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindPlan(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	FindPlanByProviderPriceID(ctx context.Context, db *gorm.DB, providerPriceID string) (*Plan, error)
}

type Service interface {
	ActiveForUser(ctx context.Context, tx *gorm.DB, userID snowflake.ID) (*Subscription, error)
	// LockForUpdate serializes concurrent credit decisions for the
	// subscription's user within the caller's transaction.
	LockForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) error
	UpsertFromProvider(ctx context.Context, tx *gorm.DB, req UpsertRequest) (*Subscription, error)
	MarkCanceled(ctx context.Context, tx *gorm.DB, providerSubscriptionID string) error
	MarkPastDue(ctx context.Context, tx *gorm.DB, providerSubscriptionID string) error
	PlanFor(ctx context.Context, tx *gorm.DB, sub *Subscription) (*Plan, error)
}
