package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// LockRoom writes the room row without changing it so concurrent
	// booking attempts for the same room serialize at the store.
	LockRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID) error
	HasOverlap(ctx context.Context, db *gorm.DB, roomID snowflake.ID, start, end time.Time) (bool, error)
	InsertBooking(ctx context.Context, db *gorm.DB, booking *Booking) error
	InsertLineItem(ctx context.Context, db *gorm.DB, item *BookingLineItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	ListLineItems(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]BookingLineItem, error)
	ListForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Booking, error)
	// UpdateStatus transitions only from the expected status and reports
	// whether a row changed, so state machine checks stay race-free.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, paymentReference *string, now time.Time) (bool, error)
	SetCheckoutSession(ctx context.Context, db *gorm.DB, id snowflake.ID, sessionID string, now time.Time) error
}
