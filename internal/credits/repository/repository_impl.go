package repository

import (
	"context"

	"github.com/atelierlabs/studiobook/internal/credits/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.CreditLedgerEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_ledger_entries (
			id, user_id, minutes, type, booking_id, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.Minutes,
		entry.Type,
		entry.BookingID,
		entry.Reason,
		entry.CreatedAt,
	).Error
}

func (r *repo) SumForUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var balance int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(minutes), 0)
		 FROM credit_ledger_entries
		 WHERE user_id = ?`,
		userID,
	).Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}
