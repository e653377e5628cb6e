package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CreateBookingRequest is the booking creation contract consumed from the
// routing layer. ServiceQuantities maps service id to requested quantity.
type CreateBookingRequest struct {
	UserID            snowflake.ID
	RoomID            snowflake.ID
	PackageID         snowflake.ID
	PackageQuantity   int64
	ServiceQuantities map[snowflake.ID]int64
	StartTime         time.Time
	TimeZone          string
}

type Service interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error)
	MarkPaid(ctx context.Context, bookingID snowflake.ID, paymentReference string) error
	// MarkPaidTx runs the transition on the caller's transaction so the
	// payment reconciler can commit it atomically with its event record.
	MarkPaidTx(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID, paymentReference string) error
	Cancel(ctx context.Context, bookingID snowflake.ID) error
	Get(ctx context.Context, bookingID snowflake.ID) (*Booking, []BookingLineItem, error)
	ListForUser(ctx context.Context, userID snowflake.ID) ([]Booking, error)
	AttachCheckoutSession(ctx context.Context, bookingID snowflake.ID, sessionID string) (string, error)
}
