package pricing_test

import (
	"errors"
	"testing"
	"time"

	catalogdomain "github.com/atelierlabs/studiobook/internal/catalog/domain"
	"github.com/atelierlabs/studiobook/internal/pricing"
)

func hourPackage(priceMinor int64) *catalogdomain.Package {
	return &catalogdomain.Package{
		Unit:              catalogdomain.PackageUnitHour,
		PricePerUnitMinor: priceMinor,
		MinQuantity:       1,
		MaxQuantity:       12,
		StepQuantity:      1,
	}
}

func fixedPackage(priceMinor, minutes int64) *catalogdomain.Package {
	return &catalogdomain.Package{
		Unit:              catalogdomain.PackageUnitFixedMinutes,
		PricePerUnitMinor: priceMinor,
		DurationMinutes:   minutes,
		MinQuantity:       1,
		MaxQuantity:       1,
		StepQuantity:      1,
	}
}

func TestPackagePriceHourly(t *testing.T) {
	quote, err := pricing.PackagePrice(hourPackage(10000), 2)
	if err != nil {
		t.Fatalf("package price: %v", err)
	}
	if quote.TotalPriceMinor != 20000 {
		t.Fatalf("expected total 20000, got %d", quote.TotalPriceMinor)
	}
	if quote.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", quote.Quantity)
	}
}

func TestPackagePriceFixedMinutesNormalizesQuantity(t *testing.T) {
	quote, err := pricing.PackagePrice(fixedPackage(15000, 90), 5)
	if err != nil {
		t.Fatalf("package price: %v", err)
	}
	if quote.Quantity != 1 {
		t.Fatalf("expected quantity normalized to 1, got %d", quote.Quantity)
	}
	if quote.TotalPriceMinor != 15000 {
		t.Fatalf("expected total 15000, got %d", quote.TotalPriceMinor)
	}
}

func TestServicePricePerHourFromHourlyPackage(t *testing.T) {
	svc := &catalogdomain.Service{
		Unit:       catalogdomain.ServiceUnitPerHour,
		PriceMinor: 50,
	}
	quote, err := pricing.ServicePrice(svc, 1, hourPackage(10000), 3)
	if err != nil {
		t.Fatalf("service price: %v", err)
	}
	if quote.TotalPriceMinor != 150 {
		t.Fatalf("expected total 150, got %d", quote.TotalPriceMinor)
	}
}

func TestServicePricePerHourRoundsPartialHourUp(t *testing.T) {
	svc := &catalogdomain.Service{
		Unit:       catalogdomain.ServiceUnitPerHour,
		PriceMinor: 50,
	}

	// 90 minutes bills as 2 hours, 60 minutes as exactly 1.
	quote, err := pricing.ServicePrice(svc, 1, fixedPackage(15000, 90), 1)
	if err != nil {
		t.Fatalf("service price: %v", err)
	}
	if quote.TotalPriceMinor != 100 {
		t.Fatalf("expected 90 minutes to bill 2 hours (100), got %d", quote.TotalPriceMinor)
	}

	quote, err = pricing.ServicePrice(svc, 1, fixedPackage(15000, 60), 1)
	if err != nil {
		t.Fatalf("service price: %v", err)
	}
	if quote.TotalPriceMinor != 50 {
		t.Fatalf("expected 60 minutes to bill 1 hour (50), got %d", quote.TotalPriceMinor)
	}
}

func TestServicePricePerDayRoundsUp(t *testing.T) {
	svc := &catalogdomain.Service{
		Unit:       catalogdomain.ServiceUnitPerDay,
		PriceMinor: 700,
	}
	quote, err := pricing.ServicePrice(svc, 1, hourPackage(10000), 25)
	if err != nil {
		t.Fatalf("service price: %v", err)
	}
	if quote.TotalPriceMinor != 1400 {
		t.Fatalf("expected 25 hours to bill 2 days (1400), got %d", quote.TotalPriceMinor)
	}
}

func TestServicePricePerBooking(t *testing.T) {
	svc := &catalogdomain.Service{
		Unit:       catalogdomain.ServiceUnitPerBooking,
		PriceMinor: 2000,
	}
	quote, err := pricing.ServicePrice(svc, 1, hourPackage(10000), 2)
	if err != nil {
		t.Fatalf("service price: %v", err)
	}
	if quote.TotalPriceMinor != 2000 {
		t.Fatalf("expected total 2000, got %d", quote.TotalPriceMinor)
	}
}

func TestEndTime(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	end, err := pricing.EndTime(start, hourPackage(10000), 2)
	if err != nil {
		t.Fatalf("end time: %v", err)
	}
	if !end.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected start+2h, got %s", end)
	}

	end, err = pricing.EndTime(start, fixedPackage(15000, 90), 1)
	if err != nil {
		t.Fatalf("end time: %v", err)
	}
	if !end.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("expected start+90m, got %s", end)
	}

	dayPkg := &catalogdomain.Package{Unit: catalogdomain.PackageUnitDay, PricePerUnitMinor: 50000}
	end, err = pricing.EndTime(start, dayPkg, 1)
	if err != nil {
		t.Fatalf("end time: %v", err)
	}
	if !end.Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("expected start+24h, got %s", end)
	}
}

func TestRequiredCreditMinutes(t *testing.T) {
	minutes, err := pricing.RequiredCreditMinutes(hourPackage(10000), 2)
	if err != nil {
		t.Fatalf("required minutes: %v", err)
	}
	if minutes != 120 {
		t.Fatalf("expected 120 minutes, got %d", minutes)
	}

	minutes, err = pricing.RequiredCreditMinutes(fixedPackage(15000, 90), 1)
	if err != nil {
		t.Fatalf("required minutes: %v", err)
	}
	if minutes != 90 {
		t.Fatalf("expected 90 minutes, got %d", minutes)
	}

	dayPkg := &catalogdomain.Package{Unit: catalogdomain.PackageUnitDay}
	minutes, err = pricing.RequiredCreditMinutes(dayPkg, 1)
	if err != nil {
		t.Fatalf("required minutes: %v", err)
	}
	if minutes != 1440 {
		t.Fatalf("expected 1440 minutes, got %d", minutes)
	}
}

func TestUnsupportedUnit(t *testing.T) {
	bad := &catalogdomain.Package{Unit: catalogdomain.PackageUnit("WEEK")}
	if _, err := pricing.PackagePrice(bad, 1); !errors.Is(err, pricing.ErrUnsupportedUnit) {
		t.Fatalf("expected ErrUnsupportedUnit, got %v", err)
	}
	if _, err := pricing.EndTime(time.Now(), bad, 1); !errors.Is(err, pricing.ErrUnsupportedUnit) {
		t.Fatalf("expected ErrUnsupportedUnit, got %v", err)
	}
}
