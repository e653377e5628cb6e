// Package domain defines the canonical payment event vocabulary and the
// processed-event record that makes webhook delivery idempotent.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidConfig         = errors.New("invalid_config")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)

// EventRecord is the dedup row for processor events. The unique index on
// (provider, provider_event_id) is what turns at-least-once delivery into
// exactly-once application: the record insert and every side effect of the
// event commit in the same transaction.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:idx_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:idx_payment_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	BookingID       *snowflake.ID  `json:"booking_id" gorm:"index"`
	UserID          *snowflake.ID  `json:"user_id" gorm:"index"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     time.Time      `json:"processed_at" gorm:"not null"`
}

func (EventRecord) TableName() string { return "payment_events" }

const (
	EventTypePaymentSucceeded          = "payment_succeeded"
	EventTypeSubscriptionUpdated       = "subscription_updated"
	EventTypeSubscriptionDeleted       = "subscription_deleted"
	EventTypeSubscriptionInvoicePaid   = "subscription_invoice_paid"
	EventTypeSubscriptionInvoiceFailed = "subscription_invoice_failed"
)

// Event is the canonical payment event parsed by adapters. Which fields
// are populated depends on Type: booking payments carry BookingID and
// UserID, subscription events carry the provider subscription fields.
type Event struct {
	Provider               string
	ProviderEventID        string
	Type                   string
	BookingID              *snowflake.ID
	UserID                 *snowflake.ID
	PaymentReference       string
	CustomerEmail          string
	ProviderSubscriptionID string
	ProviderPriceID        string
	ProviderStatus         string
	PeriodStart            time.Time
	PeriodEnd              time.Time
	AmountMinor            int64
	Currency               string
	OccurredAt             time.Time
	RawPayload             []byte
}

// AdapterConfig carries processor credentials into an adapter.
type AdapterConfig struct {
	Provider      string
	WebhookSecret string
}

// PaymentAdapter verifies and parses a processor's webhook payloads into
// canonical events.
type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}

type Repository interface {
	// InsertEvent records the event id; a duplicate is swallowed and
	// reported as inserted=false.
	InsertEvent(ctx context.Context, db *gorm.DB, record *EventRecord) (bool, error)
}

// Service ingests raw webhooks from the transport layer.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}
