package repository

import (
	"context"

	"github.com/atelierlabs/studiobook/internal/catalog/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindRoom(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Room, error) {
	var item domain.Room
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, hourly_rate_minor, active, created_at, updated_at
		 FROM rooms
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

func (r *repo) FindPackage(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Package, error) {
	var item domain.Package
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, unit, price_per_unit_minor, duration_minutes,
			min_quantity, max_quantity, step_quantity, room_id, active,
			created_at, updated_at
		 FROM packages
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

func (r *repo) FindService(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Service, error) {
	var item domain.Service
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, unit, price_minor, min_quantity, max_quantity,
			step_quantity, active, created_at, updated_at
		 FROM services
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

func (r *repo) ListRooms(ctx context.Context, db *gorm.DB) ([]domain.Room, error) {
	var items []domain.Room
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, hourly_rate_minor, active, created_at, updated_at
		 FROM rooms
		 WHERE active = TRUE
		 ORDER BY name`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListPackages(ctx context.Context, db *gorm.DB) ([]domain.Package, error) {
	var items []domain.Package
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, unit, price_per_unit_minor, duration_minutes,
			min_quantity, max_quantity, step_quantity, room_id, active,
			created_at, updated_at
		 FROM packages
		 WHERE active = TRUE
		 ORDER BY name`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListServices(ctx context.Context, db *gorm.DB) ([]domain.Service, error) {
	var items []domain.Service
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, unit, price_minor, min_quantity, max_quantity,
			step_quantity, active, created_at, updated_at
		 FROM services
		 WHERE active = TRUE
		 ORDER BY name`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
