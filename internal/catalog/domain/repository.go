package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindRoom(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Room, error)
	FindPackage(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Package, error)
	FindService(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Service, error)
	ListRooms(ctx context.Context, db *gorm.DB) ([]Room, error)
	ListPackages(ctx context.Context, db *gorm.DB) ([]Package, error)
	ListServices(ctx context.Context, db *gorm.DB) ([]Service, error)
}
