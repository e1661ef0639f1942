package billing

import (
	"slices"

	"paytrack/internal/model"
)

// Aggregate derives the ledger of a project from its payments. Only paid
// payments count; remaining is not clamped, so overpayment shows as negative.
func Aggregate(totalValue float64, payments []model.Payment) model.Ledger {
	// summed in sorted order so the float result does not depend on input order
	amounts := make([]float64, 0, len(payments))
	for _, p := range payments {
		if p.Status == model.PaymentPaid {
			amounts = append(amounts, p.Amount)
		}
	}
	slices.Sort(amounts)

	var paid float64
	for _, a := range amounts {
		paid += a
	}
	return model.Ledger{
		TotalValue:      totalValue,
		PaidAmount:      paid,
		RemainingAmount: totalValue - paid,
	}
}
