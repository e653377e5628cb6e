package repository

import (
	"context"

	"github.com/atelierlabs/studiobook/internal/invoice/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, booking_id, user_id, amount_minor, currency, issued_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (booking_id) DO NOTHING`,
		invoice.ID,
		invoice.BookingID,
		invoice.UserID,
		invoice.AmountMinor,
		invoice.Currency,
		invoice.IssuedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*domain.Invoice, error) {
	var item domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, user_id, amount_minor, currency, issued_at
		 FROM invoices
		 WHERE booking_id = ?
		 LIMIT 1`,
		bookingID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
