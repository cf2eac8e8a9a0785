package commerce

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestProratedSeatCharge_TenDaysAtOnePerDay(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	yearly := decimal.RequireFromString("365.00")

	charge := ProratedSeatCharge(yearly, now.Add(10*24*time.Hour), now)
	if !charge.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected 10.00, got %s", charge)
	}
}

func TestProratedSeatCharge_PartialDayRoundsUp(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	yearly := decimal.RequireFromString("365")

	charge := ProratedSeatCharge(yearly, now.Add(2*24*time.Hour+time.Minute), now)
	if !charge.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected 3 billable days, got %s", charge)
	}
}

func TestProratedSeatCharge_Bounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	yearly := decimal.RequireFromString("120.00")

	for _, past := range []time.Duration{time.Hour, 24 * time.Hour, 400 * 24 * time.Hour} {
		charge := ProratedSeatCharge(yearly, now.Add(-past), now)
		if !charge.IsZero() {
			t.Fatalf("expiry %s in the past: expected zero charge, got %s", past, charge)
		}
	}

	for _, future := range []time.Duration{366 * 24 * time.Hour, 3 * 365 * 24 * time.Hour} {
		charge := ProratedSeatCharge(yearly, now.Add(future), now)
		if got := domain.LineTotal(1, charge, 2); !got.Equal(yearly) {
			t.Fatalf("expiry %s ahead: expected full yearly rate, got %s", future, got)
		}
		if RemainingBillableDays(now.Add(future), now) != 365 {
			t.Fatalf("expected remaining days clamped to 365")
		}
	}
}

func TestProratedSeatCharge_RoundingHappensAfterQuantity(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	yearly := decimal.RequireFromString("100.00")

	// 100 / 365 = 0.27397...; одно место округлилось бы до 0.27, три места: 0.82.
	charge := ProratedSeatCharge(yearly, now.Add(24*time.Hour), now)
	if got := domain.LineTotal(3, charge, 2); !got.Equal(decimal.RequireFromString("0.82")) {
		t.Fatalf("expected 0.82, got %s", got)
	}
}
