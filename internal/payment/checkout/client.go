// Package checkout creates hosted checkout sessions for unpaid bookings.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	bookingdomain "github.com/atelierlabs/studiobook/internal/booking/domain"
	"github.com/atelierlabs/studiobook/internal/config"
	"github.com/atelierlabs/studiobook/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrNothingToPay  = errors.New("nothing_to_pay")
	ErrNotPayable    = errors.New("not_payable")
	ErrRequestFailed = errors.New("checkout_request_failed")
)

// Session is a hosted checkout session the user is redirected to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Params struct {
	fx.In

	Log        *zap.Logger
	BookingSvc bookingdomain.Service
	Cfg        config.Config
}

type Client struct {
	log        *zap.Logger
	bookingSvc bookingdomain.Service
	cfg        config.PaymentConfig
	http       *http.Client
}

func NewClient(p Params) *Client {
	return &Client{
		log:        p.Log.Named("payment.checkout"),
		bookingSvc: p.BookingSvc,
		cfg:        p.Cfg.Payment,
		http:       &http.Client{Timeout: 12 * time.Second},
	}
}

// CreateSession opens a checkout session for a confirmed booking with an
// outstanding cash amount. The session id is pinned to the booking so
// repeated calls return the original session instead of opening a second
// payment path for the same reservation.
func (c *Client) CreateSession(ctx context.Context, bookingID snowflake.ID) (*Session, error) {
	booking, _, err := c.bookingSvc.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != bookingdomain.StatusConfirmed {
		return nil, ErrNotPayable
	}
	if booking.TotalPriceMinor <= 0 {
		return nil, ErrNothingToPay
	}
	if booking.CheckoutSessionID != nil && *booking.CheckoutSessionID != "" {
		return &Session{ID: *booking.CheckoutSessionID}, nil
	}

	session, err := c.createProviderSession(ctx, booking)
	if err != nil {
		return nil, err
	}

	pinned, err := c.bookingSvc.AttachCheckoutSession(ctx, booking.ID, session.ID)
	if err != nil {
		return nil, err
	}
	if pinned != session.ID {
		// A concurrent request won the pin; hand back its session.
		return &Session{ID: pinned}, nil
	}
	return session, nil
}

func (c *Client) createProviderSession(ctx context.Context, booking *bookingdomain.Booking) (*Session, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, domain.ErrInvalidConfig
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", c.cfg.SuccessURL)
	values.Set("cancel_url", c.cfg.CancelURL)
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(c.cfg.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(booking.TotalPriceMinor, 10))
	values.Set("line_items[0][price_data][product_data][name]", "Studio booking "+booking.ID.String())
	values.Set("metadata[booking_id]", booking.ID.String())
	values.Set("metadata[user_id]", booking.UserID.String())

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		strings.TrimRight(c.cfg.CheckoutBaseURL, "/")+"/v1/checkout/sessions",
		strings.NewReader(values.Encode()),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", "booking:"+booking.ID.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var providerErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&providerErr); err != nil {
			return nil, ErrRequestFailed
		}
		message := strings.TrimSpace(providerErr.Error.Message)
		if message == "" {
			return nil, ErrRequestFailed
		}
		c.log.Warn("checkout session rejected",
			zap.String("booking_id", booking.ID.String()),
			zap.String("message", message),
		)
		return nil, ErrRequestFailed
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, ErrRequestFailed
	}
	return &session, nil
}
