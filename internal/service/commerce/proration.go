package commerce

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const daysInBillingYear = 365

var billingYear = decimal.NewFromInt(daysInBillingYear)

// RemainingBillableDays возвращает число оставшихся дней до expiry, округлённое
// вверх и ограниченное диапазоном [0, 365].
func RemainingBillableDays(expiry, now time.Time) int64 {
	days := math.Ceil(expiry.Sub(now).Hours() / 24)
	switch {
	case days < 0:
		return 0
	case days > daysInBillingYear:
		return daysInBillingYear
	default:
		return int64(days)
	}
}

// ProratedSeatCharge считает стоимость места до конца срока подписки:
// yearly / 365 × remainingDays. Результат не округляется; округление выполняет
// domain.LineTotal после умножения на количество мест.
func ProratedSeatCharge(yearly decimal.Decimal, expiry, now time.Time) decimal.Decimal {
	days := decimal.NewFromInt(RemainingBillableDays(expiry, now))
	return yearly.Mul(days).Div(billingYear)
}
