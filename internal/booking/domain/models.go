// Package domain contains bookings and their immutable line items.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

type LineItemKind string

const (
	LineItemKindPackage LineItemKind = "PACKAGE"
	LineItemKindService LineItemKind = "SERVICE"
)

var (
	ErrUnknownPackage       = errors.New("unknown_package")
	ErrUnknownService       = errors.New("unknown_service")
	ErrUnknownRoom          = errors.New("unknown_room")
	ErrRoomNotAllowed       = errors.New("room_not_allowed")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidStartTime     = errors.New("invalid_start_time")
	ErrAvailabilityConflict = errors.New("availability_conflict")
	ErrInsufficientCredits  = errors.New("insufficient_credits")
	ErrBookingNotFound      = errors.New("booking_not_found")
	ErrInvalidTransition    = errors.New("invalid_transition")
)

// Booking is one reservation of a room over a half-open time interval.
// TotalPriceMinor and UsedCreditMinutes are frozen at creation; later
// catalog edits never change a committed booking.
type Booking struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	RoomID            snowflake.ID  `json:"room_id" gorm:"not null;index"`
	UserID            snowflake.ID  `json:"user_id" gorm:"not null;index"`
	StartTime         time.Time     `json:"start_time" gorm:"not null;index"`
	EndTime           time.Time     `json:"end_time" gorm:"not null"`
	TimeZone          string        `json:"time_zone" gorm:"type:text;not null;default:''"`
	Status            Status        `json:"status" gorm:"type:text;not null"`
	TotalPriceMinor   int64         `json:"total_price_minor" gorm:"not null"`
	UsedCreditMinutes int64         `json:"used_credit_minutes" gorm:"not null;default:0"`
	CheckoutSessionID *string       `json:"checkout_session_id" gorm:"type:text"`
	PaymentReference  *string       `json:"payment_reference" gorm:"type:text"`
	CreatedAt         time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Booking) TableName() string { return "bookings" }

// BookingLineItem is a priced component of a booking, snapshotted at
// creation time. Name and prices are copies, not live references.
type BookingLineItem struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	BookingID       snowflake.ID `json:"booking_id" gorm:"not null;index"`
	Kind            LineItemKind `json:"kind" gorm:"type:text;not null"`
	RefID           snowflake.ID `json:"ref_id" gorm:"not null"`
	Name            string       `json:"name" gorm:"type:text;not null"`
	UnitPriceMinor  int64        `json:"unit_price_minor" gorm:"not null"`
	Quantity        int64        `json:"quantity" gorm:"not null"`
	TotalPriceMinor int64        `json:"total_price_minor" gorm:"not null"`
	CreditCovered   bool         `json:"credit_covered" gorm:"not null;default:false"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BookingLineItem) TableName() string { return "booking_line_items" }
