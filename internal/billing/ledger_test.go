package billing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"paytrack/internal/model"
)

func TestAggregate_CountsOnlyPaid(t *testing.T) {
	payments := []model.Payment{
		{Amount: 1000, Status: model.PaymentPaid},
		{Amount: 500, Status: model.PaymentPending},
		{Amount: 250, Status: model.PaymentOverdue},
		{Amount: 100, Status: model.PaymentCancelled},
		{Amount: 300, Status: model.PaymentPaid},
	}

	l := Aggregate(5000, payments)
	assert.Equal(t, 1300.0, l.PaidAmount)
	assert.Equal(t, 3700.0, l.RemainingAmount)
	assert.Equal(t, 5000.0, l.TotalValue)
}

func TestAggregate_OverpaymentIsNegative(t *testing.T) {
	l := Aggregate(100, []model.Payment{{Amount: 150, Status: model.PaymentPaid}})
	assert.Equal(t, -50.0, l.RemainingAmount)
}

func TestAggregate_Empty(t *testing.T) {
	l := Aggregate(800, nil)
	assert.Zero(t, l.PaidAmount)
	assert.Equal(t, 800.0, l.RemainingAmount)
}

func TestAggregate_InvariantsUnderReordering(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	statuses := []model.PaymentStatus{model.PaymentPaid, model.PaymentPending, model.PaymentOverdue}

	for round := 0; round < 50; round++ {
		total := rng.Float64() * 100000
		payments := make([]model.Payment, rng.Intn(30))
		for i := range payments {
			payments[i] = model.Payment{
				Amount: rng.Float64() * 5000,
				Status: statuses[rng.Intn(len(statuses))],
			}
		}

		base := Aggregate(total, payments)
		assert.InDelta(t, total, base.PaidAmount+base.RemainingAmount, 1e-6)

		shuffled := append([]model.Payment(nil), payments...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, base, Aggregate(total, shuffled))
	}
}
