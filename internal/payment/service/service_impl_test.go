package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	bookingdomain "github.com/atelierlabs/studiobook/internal/booking/domain"
	bookingrepo "github.com/atelierlabs/studiobook/internal/booking/repository"
	bookingservice "github.com/atelierlabs/studiobook/internal/booking/service"
	catalogrepo "github.com/atelierlabs/studiobook/internal/catalog/repository"
	"github.com/atelierlabs/studiobook/internal/clock"
	"github.com/atelierlabs/studiobook/internal/config"
	creditsdomain "github.com/atelierlabs/studiobook/internal/credits/domain"
	creditsrepo "github.com/atelierlabs/studiobook/internal/credits/repository"
	creditsservice "github.com/atelierlabs/studiobook/internal/credits/service"
	invoicedomain "github.com/atelierlabs/studiobook/internal/invoice/domain"
	invoicerepo "github.com/atelierlabs/studiobook/internal/invoice/repository"
	"github.com/atelierlabs/studiobook/internal/payment/adapters"
	"github.com/atelierlabs/studiobook/internal/payment/adapters/stripe"
	paymentdomain "github.com/atelierlabs/studiobook/internal/payment/domain"
	paymentrepo "github.com/atelierlabs/studiobook/internal/payment/repository"
	paymentservice "github.com/atelierlabs/studiobook/internal/payment/service"
	"github.com/atelierlabs/studiobook/internal/payment/webhook"
	subscriptiondomain "github.com/atelierlabs/studiobook/internal/subscription/domain"
	subscriptionrepo "github.com/atelierlabs/studiobook/internal/subscription/repository"
	subscriptionservice "github.com/atelierlabs/studiobook/internal/subscription/service"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

type fixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	clock       *clock.FakeClock
	bookingSvc  bookingdomain.Service
	creditsSvc  creditsdomain.Service
	subRepo     subscriptiondomain.Repository
	invoiceRepo invoicedomain.Repository
	webhookSvc  paymentdomain.Service
}

func newFixture(t *testing.T, nodeNum int64) *fixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(nodeNum)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	creditsSvc := creditsservice.NewService(creditsservice.Params{
		Log:   log,
		GenID: node,
		Clock: fakeClock,
		Repo:  creditsrepo.Provide(),
	})
	subRepo := subscriptionrepo.Provide()
	subSvc := subscriptionservice.NewService(subscriptionservice.Params{
		Log:   log,
		GenID: node,
		Clock: fakeClock,
		Repo:  subRepo,
	})
	bookingRepo := bookingrepo.Provide()
	bookingSvc := bookingservice.NewService(bookingservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fakeClock,
		Repo:        bookingRepo,
		CatalogRepo: catalogrepo.Provide(),
		CreditsSvc:  creditsSvc,
		SubSvc:      subSvc,
	})
	invoiceRepo := invoicerepo.Provide()
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:               db,
		Log:              log,
		GenID:            node,
		Clock:            fakeClock,
		Repo:             paymentrepo.Provide(),
		BookingSvc:       bookingSvc,
		BookingRepo:      bookingRepo,
		SubscriptionSvc:  subSvc,
		SubscriptionRepo: subRepo,
		CreditSvc:        creditsSvc,
		InvoiceRepo:      invoiceRepo,
	})
	webhookSvc := webhook.NewService(webhook.Params{
		Log:        log,
		PaymentSvc: paymentSvc,
		Adapters:   adapters.NewRegistry(stripe.NewFactory()),
		Cfg: config.Config{
			Payment: config.PaymentConfig{
				Provider:      "stripe",
				WebhookSecret: testWebhookSecret,
			},
		},
	})

	return &fixture{
		db:          db,
		node:        node,
		clock:       fakeClock,
		bookingSvc:  bookingSvc,
		creditsSvc:  creditsSvc,
		subRepo:     subRepo,
		invoiceRepo: invoiceRepo,
		webhookSvc:  webhookSvc,
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE rooms (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			hourly_rate_minor BIGINT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE packages (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			unit TEXT NOT NULL,
			price_per_unit_minor BIGINT NOT NULL,
			duration_minutes BIGINT NOT NULL DEFAULT 0,
			min_quantity BIGINT NOT NULL DEFAULT 1,
			max_quantity BIGINT NOT NULL DEFAULT 1,
			step_quantity BIGINT NOT NULL DEFAULT 1,
			room_id BIGINT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE services (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			unit TEXT NOT NULL,
			price_minor BIGINT NOT NULL,
			min_quantity BIGINT NOT NULL DEFAULT 1,
			max_quantity BIGINT NOT NULL DEFAULT 1,
			step_quantity BIGINT NOT NULL DEFAULT 1,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE bookings (
			id BIGINT PRIMARY KEY,
			room_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			time_zone TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			total_price_minor BIGINT NOT NULL,
			used_credit_minutes BIGINT NOT NULL DEFAULT 0,
			checkout_session_id TEXT,
			payment_reference TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE booking_line_items (
			id BIGINT PRIMARY KEY,
			booking_id BIGINT NOT NULL,
			kind TEXT NOT NULL,
			ref_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			unit_price_minor BIGINT NOT NULL,
			quantity BIGINT NOT NULL,
			total_price_minor BIGINT NOT NULL,
			credit_covered BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE credit_ledger_entries (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			minutes BIGINT NOT NULL,
			type TEXT NOT NULL,
			booking_id BIGINT,
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE plans (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			included_credit_hours BIGINT NOT NULL,
			price_minor BIGINT NOT NULL,
			interval TEXT NOT NULL DEFAULT 'month',
			provider_price_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_plans_provider_price_id ON plans(provider_price_id)`,
		`CREATE TABLE subscriptions (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			plan_id BIGINT NOT NULL,
			provider_subscription_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_period_start TIMESTAMPTZ NOT NULL,
			current_period_end TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_subscriptions_provider_id ON subscriptions(provider_subscription_id)`,
		`CREATE TABLE payment_events (
			id BIGINT PRIMARY KEY,
			provider TEXT NOT NULL,
			provider_event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			booking_id BIGINT,
			user_id BIGINT,
			payload TEXT,
			received_at TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_payment_events_provider_event ON payment_events(provider, provider_event_id)`,
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			booking_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			amount_minor BIGINT NOT NULL,
			currency TEXT NOT NULL,
			issued_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_invoices_booking_id ON invoices(booking_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func (f *fixture) createBooking(t *testing.T) *bookingdomain.Booking {
	t.Helper()

	roomID := f.node.Generate()
	packageID := f.node.Generate()
	now := f.clock.Now()
	if err := f.db.Exec(
		`INSERT INTO rooms (id, name, hourly_rate_minor, active, created_at, updated_at)
		 VALUES (?, 'Studio A', 0, TRUE, ?, ?)`,
		roomID, now, now,
	).Error; err != nil {
		t.Fatalf("seed room: %v", err)
	}
	if err := f.db.Exec(
		`INSERT INTO packages (id, name, unit, price_per_unit_minor, duration_minutes,
			min_quantity, max_quantity, step_quantity, room_id, active, created_at, updated_at)
		 VALUES (?, 'Hourly Session', 'HOUR', 10000, 0, 1, 12, 1, NULL, TRUE, ?, ?)`,
		packageID, now, now,
	).Error; err != nil {
		t.Fatalf("seed package: %v", err)
	}

	booking, err := f.bookingSvc.CreateBooking(context.Background(), bookingdomain.CreateBookingRequest{
		UserID:          f.node.Generate(),
		RoomID:          roomID,
		PackageID:       packageID,
		PackageQuantity: 2,
		StartTime:       time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return booking
}

func (f *fixture) seedPlan(t *testing.T, providerPriceID string, includedHours int64) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	if err := f.db.Exec(
		`INSERT INTO plans (id, name, included_credit_hours, price_minor, interval, provider_price_id, created_at)
		 VALUES (?, 'Studio Member', ?, 49900, 'month', ?, ?)`,
		id, includedHours, providerPriceID, f.clock.Now(),
	).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return id
}

func signedHeaders(payload []byte) http.Header {
	return signedHeadersWithSecret(testWebhookSecret, payload)
}

func signedHeadersWithSecret(secret string, payload []byte) http.Header {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func checkoutCompletedPayload(eventID string, bookingID, userID snowflake.ID, amountMinor int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"created": 1772000000,
		"data": {
			"object": {
				"id": "cs_%s",
				"payment_intent": "pi_%s",
				"amount_total": %d,
				"currency": "aed",
				"metadata": {"booking_id": %q, "user_id": %q},
				"customer_details": {"email": "drummer@example.com"}
			}
		}
	}`, eventID, eventID, eventID, amountMinor, bookingID.String(), userID.String()))
}

func subscriptionPayload(eventID, eventType, providerSubID, priceID, status string, userID snowflake.ID) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": %q,
		"created": 1772000000,
		"data": {
			"object": {
				"id": %q,
				"status": %q,
				"current_period_start": 1772000000,
				"current_period_end": 1774678400,
				"metadata": {"user_id": %q},
				"items": {"data": [{"price": {"id": %q}}]}
			}
		}
	}`, eventID, eventType, providerSubID, status, userID.String(), priceID))
}

func invoicePayload(eventID, eventType, providerSubID string, amountPaid int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": %q,
		"created": 1772000000,
		"data": {
			"object": {
				"id": "in_%s",
				"subscription": %q,
				"amount_paid": %d,
				"currency": "aed"
			}
		}
	}`, eventID, eventType, eventID, providerSubID, amountPaid))
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	if err := db.Raw("SELECT COUNT(1) FROM " + table).Scan(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func TestCheckoutCompletedSettlesBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50)

	booking := f.createBooking(t)
	payload := checkoutCompletedPayload("evt_settle_1", booking.ID, booking.UserID, booking.TotalPriceMinor)

	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("ingest webhook: %v", err)
	}

	got, _, err := f.bookingSvc.Get(ctx, booking.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if got.Status != bookingdomain.StatusPaid {
		t.Fatalf("expected status PAID, got %s", got.Status)
	}
	if got.PaymentReference == nil || *got.PaymentReference != "pi_evt_settle_1" {
		t.Fatalf("expected payment reference pi_evt_settle_1, got %v", got.PaymentReference)
	}

	invoice, err := f.invoiceRepo.FindByBookingID(ctx, f.db, booking.ID)
	if err != nil {
		t.Fatalf("find invoice: %v", err)
	}
	if invoice == nil {
		t.Fatalf("expected invoice to be issued")
	}
	if invoice.AmountMinor != booking.TotalPriceMinor {
		t.Fatalf("expected invoice amount %d, got %d", booking.TotalPriceMinor, invoice.AmountMinor)
	}
	if invoice.Currency != "AED" {
		t.Fatalf("expected currency AED, got %s", invoice.Currency)
	}
}

func TestRedeliveredEventAppliesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 51)

	booking := f.createBooking(t)
	payload := checkoutCompletedPayload("evt_dup_1", booking.ID, booking.UserID, booking.TotalPriceMinor)

	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	err := f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload))
	if !errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected ErrEventAlreadyProcessed, got %v", err)
	}

	if got := countRows(t, f.db, "payment_events"); got != 1 {
		t.Fatalf("expected 1 event record, got %d", got)
	}
	if got := countRows(t, f.db, "invoices"); got != 1 {
		t.Fatalf("expected 1 invoice, got %d", got)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 52)

	booking := f.createBooking(t)
	payload := checkoutCompletedPayload("evt_bad_sig", booking.ID, booking.UserID, booking.TotalPriceMinor)

	err := f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeadersWithSecret("whsec_wrong", payload))
	if !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", payload, http.Header{}); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing header, got %v", err)
	}

	if got := countRows(t, f.db, "payment_events"); got != 0 {
		t.Fatalf("expected no event records, got %d", got)
	}

	got, _, err := f.bookingSvc.Get(ctx, booking.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if got.Status != bookingdomain.StatusConfirmed {
		t.Fatalf("expected booking untouched, got %s", got.Status)
	}
}

func TestWebhookIgnoresUnhandledType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 53)

	payload := []byte(`{"id": "evt_refund_1", "type": "charge.refunded", "data": {"object": {}}}`)
	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("expected ignored event to ack, got %v", err)
	}
	if got := countRows(t, f.db, "payment_events"); got != 0 {
		t.Fatalf("expected no event records, got %d", got)
	}
}

func TestWebhookUnknownProvider(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 54)

	payload := []byte(`{"id": "evt_x"}`)
	err := f.webhookSvc.IngestWebhook(ctx, "paypal", payload, signedHeaders(payload))
	if !errors.Is(err, paymentdomain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestPaymentForUnknownBookingAcked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 55)

	ghost := f.node.Generate()
	payload := checkoutCompletedPayload("evt_ghost_1", ghost, f.node.Generate(), 5000)

	// Acknowledged so the processor stops retrying, but recorded for audit.
	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("ingest webhook: %v", err)
	}
	if got := countRows(t, f.db, "payment_events"); got != 1 {
		t.Fatalf("expected 1 event record, got %d", got)
	}
	if got := countRows(t, f.db, "invoices"); got != 0 {
		t.Fatalf("expected no invoices, got %d", got)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 56)

	f.seedPlan(t, "price_member", 10)
	userID := f.node.Generate()
	const subID = "sub_lifecycle_1"

	created := subscriptionPayload("evt_sub_created", "customer.subscription.created", subID, "price_member", "active", userID)
	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", created, signedHeaders(created)); err != nil {
		t.Fatalf("subscription created: %v", err)
	}

	sub, err := f.subRepo.FindByProviderID(ctx, f.db, subID)
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if sub == nil || sub.Status != subscriptiondomain.StatusActive {
		t.Fatalf("expected ACTIVE subscription, got %+v", sub)
	}
	if sub.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, sub.UserID)
	}

	// A paid period invoice grants the plan's included hours.
	paid := invoicePayload("evt_inv_paid_1", "invoice.paid", subID, 49900)
	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", paid, signedHeaders(paid)); err != nil {
		t.Fatalf("invoice paid: %v", err)
	}
	balance, err := f.creditsSvc.Balance(ctx, f.db, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 600 {
		t.Fatalf("expected 600 minutes granted, got %d", balance)
	}

	// Redelivering the same invoice event never double-grants.
	err = f.webhookSvc.IngestWebhook(ctx, "stripe", paid, signedHeaders(paid))
	if !errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected ErrEventAlreadyProcessed, got %v", err)
	}
	balance, err = f.creditsSvc.Balance(ctx, f.db, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 600 {
		t.Fatalf("expected balance to stay 600, got %d", balance)
	}

	// A failed renewal flips the subscription to PAST_DUE.
	failed := invoicePayload("evt_inv_failed_1", "invoice.payment_failed", subID, 0)
	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", failed, signedHeaders(failed)); err != nil {
		t.Fatalf("invoice failed: %v", err)
	}
	sub, err = f.subRepo.FindByProviderID(ctx, f.db, subID)
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if sub.Status != subscriptiondomain.StatusPastDue {
		t.Fatalf("expected PAST_DUE, got %s", sub.Status)
	}

	deleted := subscriptionPayload("evt_sub_deleted", "customer.subscription.deleted", subID, "price_member", "canceled", userID)
	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", deleted, signedHeaders(deleted)); err != nil {
		t.Fatalf("subscription deleted: %v", err)
	}
	sub, err = f.subRepo.FindByProviderID(ctx, f.db, subID)
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if sub.Status != subscriptiondomain.StatusCanceled {
		t.Fatalf("expected CANCELED, got %s", sub.Status)
	}
}

func TestSubscriptionUnknownPlanAcked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 57)

	payload := subscriptionPayload("evt_no_plan", "customer.subscription.created", "sub_no_plan", "price_missing", "active", f.node.Generate())
	if err := f.webhookSvc.IngestWebhook(ctx, "stripe", payload, signedHeaders(payload)); err != nil {
		t.Fatalf("expected unknown plan to ack, got %v", err)
	}
	if got := countRows(t, f.db, "subscriptions"); got != 0 {
		t.Fatalf("expected no subscriptions, got %d", got)
	}
	if got := countRows(t, f.db, "payment_events"); got != 1 {
		t.Fatalf("expected 1 event record, got %d", got)
	}
}
