// Package pricing computes booking prices and end times. It is pure: no
// I/O, no side effects, and strictly integer arithmetic on minor currency
// units and whole minutes, so repeated computation can never drift.
//
// Rounding policy: partial billing units are always rounded up. A
// 90-minute fixed package billed against a per-hour service pays for two
// hours; a 60-minute one pays for one.
package pricing

import (
	"errors"
	"time"

	catalogdomain "github.com/atelierlabs/studiobook/internal/catalog/domain"
)

var ErrUnsupportedUnit = errors.New("unsupported_unit")

// Quote is the priced outcome for one line item.
type Quote struct {
	UnitPriceMinor  int64
	Quantity        int64
	TotalPriceMinor int64
}

// PackagePrice prices a package purchase. For fixed-minutes packages the
// quantity is normalized to 1 regardless of input.
func PackagePrice(pkg *catalogdomain.Package, quantity int64) (Quote, error) {
	switch pkg.Unit {
	case catalogdomain.PackageUnitHour, catalogdomain.PackageUnitDay:
		return Quote{
			UnitPriceMinor:  pkg.PricePerUnitMinor,
			Quantity:        quantity,
			TotalPriceMinor: pkg.PricePerUnitMinor * quantity,
		}, nil
	case catalogdomain.PackageUnitFixedMinutes:
		return Quote{
			UnitPriceMinor:  pkg.PricePerUnitMinor,
			Quantity:        1,
			TotalPriceMinor: pkg.PricePerUnitMinor,
		}, nil
	default:
		return Quote{}, ErrUnsupportedUnit
	}
}

// ServicePrice prices an add-on service in the context of the booked
// package. Duration-based services derive the booking length from the
// package unit and quantity.
func ServicePrice(svc *catalogdomain.Service, quantity int64, pkg *catalogdomain.Package, pkgQuantity int64) (Quote, error) {
	switch svc.Unit {
	case catalogdomain.ServiceUnitPerBooking, catalogdomain.ServiceUnitFixed:
		return Quote{
			UnitPriceMinor:  svc.PriceMinor,
			Quantity:        quantity,
			TotalPriceMinor: svc.PriceMinor * quantity,
		}, nil
	case catalogdomain.ServiceUnitPerHour:
		hours, err := BookingHours(pkg, pkgQuantity)
		if err != nil {
			return Quote{}, err
		}
		return Quote{
			UnitPriceMinor:  svc.PriceMinor,
			Quantity:        quantity,
			TotalPriceMinor: svc.PriceMinor * hours * quantity,
		}, nil
	case catalogdomain.ServiceUnitPerDay:
		days, err := BookingDays(pkg, pkgQuantity)
		if err != nil {
			return Quote{}, err
		}
		return Quote{
			UnitPriceMinor:  svc.PriceMinor,
			Quantity:        quantity,
			TotalPriceMinor: svc.PriceMinor * days * quantity,
		}, nil
	default:
		return Quote{}, ErrUnsupportedUnit
	}
}

// EndTime computes the half-open booking interval end. Quantity is ignored
// for fixed-minutes packages.
func EndTime(start time.Time, pkg *catalogdomain.Package, quantity int64) (time.Time, error) {
	switch pkg.Unit {
	case catalogdomain.PackageUnitHour:
		return start.Add(time.Duration(quantity) * time.Hour), nil
	case catalogdomain.PackageUnitDay:
		return start.Add(time.Duration(quantity) * 24 * time.Hour), nil
	case catalogdomain.PackageUnitFixedMinutes:
		return start.Add(time.Duration(pkg.DurationMinutes) * time.Minute), nil
	default:
		return time.Time{}, ErrUnsupportedUnit
	}
}

// RequiredCreditMinutes is the prepaid-minute cost of covering the package
// portion of a booking from a subscription ledger.
func RequiredCreditMinutes(pkg *catalogdomain.Package, quantity int64) (int64, error) {
	switch pkg.Unit {
	case catalogdomain.PackageUnitHour:
		return quantity * 60, nil
	case catalogdomain.PackageUnitDay:
		return quantity * 1440, nil
	case catalogdomain.PackageUnitFixedMinutes:
		return pkg.DurationMinutes, nil
	default:
		return 0, ErrUnsupportedUnit
	}
}

// BookingHours is the billable hour count of the booking, rounded up.
func BookingHours(pkg *catalogdomain.Package, quantity int64) (int64, error) {
	switch pkg.Unit {
	case catalogdomain.PackageUnitHour:
		return quantity, nil
	case catalogdomain.PackageUnitDay:
		return quantity * 24, nil
	case catalogdomain.PackageUnitFixedMinutes:
		return ceilDiv(pkg.DurationMinutes, 60), nil
	default:
		return 0, ErrUnsupportedUnit
	}
}

// BookingDays is the billable day count of the booking, rounded up.
func BookingDays(pkg *catalogdomain.Package, quantity int64) (int64, error) {
	switch pkg.Unit {
	case catalogdomain.PackageUnitHour:
		return ceilDiv(quantity, 24), nil
	case catalogdomain.PackageUnitDay:
		return quantity, nil
	case catalogdomain.PackageUnitFixedMinutes:
		return ceilDiv(pkg.DurationMinutes, 1440), nil
	default:
		return 0, ErrUnsupportedUnit
	}
}

func ceilDiv(value, divisor int64) int64 {
	return (value + divisor - 1) / divisor
}
