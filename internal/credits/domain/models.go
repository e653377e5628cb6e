// Package domain contains the prepaid-minute ledger. The ledger is
// append-only: a user's balance is the running sum of signed entries, and
// corrections are made with compensating entries, never updates.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type EntryType string

const (
	EntryTypeGrant   EntryType = "GRANT"
	EntryTypeBooking EntryType = "BOOKING"
)

var (
	ErrInvalidMinutes      = errors.New("invalid_minutes")
	ErrInsufficientCredits = errors.New("insufficient_credits")
)

// CreditLedgerEntry is one signed movement of prepaid minutes. Grants are
// positive, consumptions negative. Rows are never updated or deleted.
type CreditLedgerEntry struct {
	ID        snowflake.ID  `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID  `json:"user_id" gorm:"not null;index"`
	Minutes   int64         `json:"minutes" gorm:"not null"`
	Type      EntryType     `json:"type" gorm:"type:text;not null"`
	BookingID *snowflake.ID `json:"booking_id" gorm:"index"`
	Reason    string        `json:"reason" gorm:"type:text;not null;default:''"`
	CreatedAt time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CreditLedgerEntry) TableName() string { return "credit_ledger_entries" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *CreditLedgerEntry) error
	SumForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
}

// Service appends to and sums the ledger. All methods operate on the
// caller's transaction handle so a consumption decision and the entries it
// reads stay in one atomic unit.
type Service interface {
	Balance(ctx context.Context, tx *gorm.DB, userID snowflake.ID) (int64, error)
	Grant(ctx context.Context, tx *gorm.DB, userID snowflake.ID, minutes int64, reason string) error
	Consume(ctx context.Context, tx *gorm.DB, userID snowflake.ID, minutes int64, bookingID snowflake.ID) error
}
