package repository

import (
	"context"
	"time"

	"github.com/atelierlabs/studiobook/internal/booking/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) LockRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID) error {
	// A no-op write takes a row lock on postgres/mysql and the write lock
	// on sqlite, which is what serializes concurrent creators. FOR UPDATE
	// is not portable to sqlite.
	return db.WithContext(ctx).Exec(
		`UPDATE rooms SET updated_at = updated_at WHERE id = ?`,
		roomID,
	).Error
}

func (r *repo) HasOverlap(ctx context.Context, db *gorm.DB, roomID snowflake.ID, start, end time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM bookings
		 WHERE room_id = ?
		   AND status <> ?
		   AND start_time < ?
		   AND end_time > ?`,
		roomID,
		domain.StatusCancelled,
		end,
		start,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertBooking(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (
			id, room_id, user_id, start_time, end_time, time_zone, status,
			total_price_minor, used_credit_minutes, checkout_session_id,
			payment_reference, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.RoomID,
		booking.UserID,
		booking.StartTime,
		booking.EndTime,
		booking.TimeZone,
		booking.Status,
		booking.TotalPriceMinor,
		booking.UsedCreditMinutes,
		booking.CheckoutSessionID,
		booking.PaymentReference,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Error
}

func (r *repo) InsertLineItem(ctx context.Context, db *gorm.DB, item *domain.BookingLineItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO booking_line_items (
			id, booking_id, kind, ref_id, name, unit_price_minor, quantity,
			total_price_minor, credit_covered, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.BookingID,
		item.Kind,
		item.RefID,
		item.Name,
		item.UnitPriceMinor,
		item.Quantity,
		item.TotalPriceMinor,
		item.CreditCovered,
		item.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var item domain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT id, room_id, user_id, start_time, end_time, time_zone, status,
			total_price_minor, used_credit_minutes, checkout_session_id,
			payment_reference, created_at, updated_at
		 FROM bookings
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]domain.BookingLineItem, error) {
	var items []domain.BookingLineItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, kind, ref_id, name, unit_price_minor,
			quantity, total_price_minor, credit_covered, created_at
		 FROM booking_line_items
		 WHERE booking_id = ?
		 ORDER BY id`,
		bookingID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Booking, error) {
	var items []domain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT id, room_id, user_id, start_time, end_time, time_zone, status,
			total_price_minor, used_credit_minutes, checkout_session_id,
			payment_reference, created_at, updated_at
		 FROM bookings
		 WHERE user_id = ?
		 ORDER BY start_time DESC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, paymentReference *string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET status = ?,
			payment_reference = COALESCE(?, payment_reference),
			updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		paymentReference,
		now,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SetCheckoutSession(ctx context.Context, db *gorm.DB, id snowflake.ID, sessionID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings
		 SET checkout_session_id = ?, updated_at = ?
		 WHERE id = ? AND checkout_session_id IS NULL`,
		sessionID,
		now,
		id,
	).Error
}
