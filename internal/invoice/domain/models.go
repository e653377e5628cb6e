// Package domain contains the invoice issued once per paid booking.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Invoice is generated exactly once per booking; the unique constraint on
// BookingID makes a second issue attempt a no-op.
type Invoice struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	BookingID   snowflake.ID `json:"booking_id" gorm:"not null;uniqueIndex"`
	UserID      snowflake.ID `json:"user_id" gorm:"not null;index"`
	AmountMinor int64        `json:"amount_minor" gorm:"not null"`
	Currency    string       `json:"currency" gorm:"type:text;not null"`
	IssuedAt    time.Time    `json:"issued_at" gorm:"not null"`
}

func (Invoice) TableName() string { return "invoices" }

type Repository interface {
	// Insert issues the invoice; a duplicate booking id is swallowed and
	// reported as inserted=false.
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) (bool, error)
	FindByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Invoice, error)
}
