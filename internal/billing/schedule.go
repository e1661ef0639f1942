// Package billing generates payment schedules and derives ledger totals.
package billing

import (
	"errors"
	"fmt"
	"time"

	"paytrack/internal/model"
)

var ErrInvalidInstallmentCount = errors.New("installment count must be positive")

// GenerateSchedule returns the monthly payments owed by p. Projects that are
// not recurring get an empty schedule. now anchors the schedule when p has no
// payment date. The result is not persisted and carries no ids.
func GenerateSchedule(p model.Project, now time.Time) ([]model.Payment, error) {
	if !p.IsRecurring {
		return nil, nil
	}

	n := p.Installments()
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidInstallmentCount, n)
	}
	amount := p.TotalValue / float64(n)

	anchor := model.TruncateDate(now)
	if p.PaymentDate != nil {
		anchor = model.TruncateDate(*p.PaymentDate)
	}

	payments := make([]model.Payment, 0, n)
	for i := range n {
		payments = append(payments, model.Payment{
			ProjectID:   p.ID,
			Amount:      amount,
			DueDate:     AddMonths(anchor, i),
			Status:      model.PaymentPending,
			Description: fmt.Sprintf("Payment %d of %d - %s", i+1, n, p.Name),
		})
	}
	return payments, nil
}

// AddMonths moves d forward by months calendar months, clamping the day to
// the last day of the target month (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, d.Location())
	ty, tm, _ := first.Date()
	return time.Date(ty, tm, min(day, daysIn(ty, tm)), d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), d.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
