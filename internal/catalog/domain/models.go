// Package domain contains the bookable catalog: rooms, time packages and
// add-on services. Prices are integer minor currency units throughout.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PackageUnit is the billing unit of a studio time package. It is a closed
// set; every consumer switches exhaustively and rejects unknown values.
type PackageUnit string

const (
	PackageUnitHour         PackageUnit = "HOUR"
	PackageUnitDay          PackageUnit = "DAY"
	PackageUnitFixedMinutes PackageUnit = "FIXED_MINUTES"
)

// ServiceUnit is the billing unit of an add-on service.
type ServiceUnit string

const (
	ServiceUnitPerBooking ServiceUnit = "PER_BOOKING"
	ServiceUnitPerHour    ServiceUnit = "PER_HOUR"
	ServiceUnitPerDay     ServiceUnit = "PER_DAY"
	ServiceUnitFixed      ServiceUnit = "FIXED"
)

var (
	ErrRoomNotFound    = errors.New("room_not_found")
	ErrPackageNotFound = errors.New("package_not_found")
	ErrServiceNotFound = errors.New("service_not_found")
	ErrInvalidPackage  = errors.New("invalid_package")
	ErrInvalidService  = errors.New("invalid_service")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidUnit     = errors.New("invalid_unit")
)

// Room is a bookable physical resource. HourlyRateMinor is a legacy field
// kept for display; pricing always goes through packages.
type Room struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	Name            string       `json:"name" gorm:"type:text;not null"`
	HourlyRateMinor int64        `json:"hourly_rate_minor" gorm:"not null;default:0"`
	Active          bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Room) TableName() string { return "rooms" }

// Package is a purchasable unit of studio time. RoomID nil means the
// package can be used with any room.
type Package struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	Name              string        `json:"name" gorm:"type:text;not null"`
	Unit              PackageUnit   `json:"unit" gorm:"type:text;not null"`
	PricePerUnitMinor int64         `json:"price_per_unit_minor" gorm:"not null"`
	DurationMinutes   int64         `json:"duration_minutes" gorm:"not null;default:0"`
	MinQuantity       int64         `json:"min_quantity" gorm:"not null;default:1"`
	MaxQuantity       int64         `json:"max_quantity" gorm:"not null;default:1"`
	StepQuantity      int64         `json:"step_quantity" gorm:"not null;default:1"`
	RoomID            *snowflake.ID `json:"room_id" gorm:"index"`
	Active            bool          `json:"active" gorm:"not null;default:true"`
	CreatedAt         time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Package) TableName() string { return "packages" }

// Validate checks internal consistency of the catalog row. A fixed-minutes
// package is always sold as a single block.
func (p *Package) Validate() error {
	switch p.Unit {
	case PackageUnitHour, PackageUnitDay:
		if p.MinQuantity < 1 || p.MaxQuantity < p.MinQuantity || p.StepQuantity < 1 {
			return ErrInvalidPackage
		}
	case PackageUnitFixedMinutes:
		if p.DurationMinutes <= 0 {
			return ErrInvalidPackage
		}
		if p.MinQuantity != 1 || p.MaxQuantity != 1 || p.StepQuantity != 1 {
			return ErrInvalidPackage
		}
	default:
		return ErrInvalidUnit
	}
	return nil
}

// ValidateQuantity checks min/max/step conformance: quantity must equal
// MinQuantity + k*StepQuantity for some integer k >= 0 and not exceed
// MaxQuantity. Fixed-minutes packages only ever accept 1.
func (p *Package) ValidateQuantity(quantity int64) error {
	if p.Unit == PackageUnitFixedMinutes {
		if quantity != 1 {
			return ErrInvalidQuantity
		}
		return nil
	}
	return validateQuantity(quantity, p.MinQuantity, p.MaxQuantity, p.StepQuantity)
}

// Service is an add-on priced per booking, per hour, per day or fixed.
type Service struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	Unit         ServiceUnit  `json:"unit" gorm:"type:text;not null"`
	PriceMinor   int64        `json:"price_minor" gorm:"not null"`
	MinQuantity  int64        `json:"min_quantity" gorm:"not null;default:1"`
	MaxQuantity  int64        `json:"max_quantity" gorm:"not null;default:1"`
	StepQuantity int64        `json:"step_quantity" gorm:"not null;default:1"`
	Active       bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Service) TableName() string { return "services" }

func (s *Service) Validate() error {
	switch s.Unit {
	case ServiceUnitPerBooking, ServiceUnitPerHour, ServiceUnitPerDay, ServiceUnitFixed:
	default:
		return ErrInvalidUnit
	}
	if s.MinQuantity < 1 || s.MaxQuantity < s.MinQuantity || s.StepQuantity < 1 {
		return ErrInvalidService
	}
	return nil
}

func (s *Service) ValidateQuantity(quantity int64) error {
	return validateQuantity(quantity, s.MinQuantity, s.MaxQuantity, s.StepQuantity)
}

func validateQuantity(quantity, min, max, step int64) error {
	if quantity < min || quantity > max {
		return ErrInvalidQuantity
	}
	if (quantity-min)%step != 0 {
		return ErrInvalidQuantity
	}
	return nil
}
