package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paytrack/internal/model"
	"paytrack/internal/repository"
)

func activate(t *testing.T, f *fixture, p model.Project) []model.Payment {
	t.Helper()
	res, err := f.projects.ChangeStatus(context.Background(), p.ID, "active")
	require.NoError(t, err)
	return res.Payments
}

func TestActivationGeneratesMonthlySchedule(t *testing.T) {
	f, _ := newFixture(t)
	p := recurringProject(t, f, 12000, "2024-01-10")

	payments := activate(t, f, p)
	require.Len(t, payments, 12)
	for i, pay := range payments {
		assert.Equal(t, 1000.0, pay.Amount)
		assert.Equal(t, model.PaymentPending, pay.Status)
		assert.Equal(t, 2024, pay.DueDate.Year())
		assert.Equal(t, i+1, int(pay.DueDate.Month()))
		assert.Equal(t, 10, pay.DueDate.Day())
	}

	pp, err := f.payments.ListByProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, pp.Payments, 12)
	assert.Equal(t, model.Ledger{TotalValue: 12000, PaidAmount: 0, RemainingAmount: 12000}, pp.Ledger)
}

func TestMarkPaidThenDeletePending(t *testing.T) {
	f, _ := newFixture(t)
	ctx := context.Background()
	p := recurringProject(t, f, 12000, "2024-01-10")
	payments := activate(t, f, p)

	change, err := f.payments.MarkPaid(ctx, payments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, change.Payment.Status)
	require.NotNil(t, change.Payment.PaidDate)
	assert.Equal(t, "2024-03-05", model.FormatDate(*change.Payment.PaidDate))
	assert.Equal(t, 1000.0, change.Ledger.PaidAmount)
	assert.Equal(t, 11000.0, change.Ledger.RemainingAmount)

	deleted, err := f.payments.Delete(ctx, payments[5].ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, deleted.Ledger.PaidAmount)
	assert.Equal(t, 11000.0, deleted.Ledger.RemainingAmount)

	pp, err := f.payments.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, pp.Payments, 11)
}

func TestReactivationDuplicatesSchedule(t *testing.T) {
	f, _ := newFixture(t)
	ctx := context.Background()
	p := recurringProject(t, f, 1200, "2024-01-10")
	activate(t, f, p)

	_, err := f.projects.ChangeStatus(ctx, p.ID, "in_production")
	require.NoError(t, err)
	activate(t, f, p)

	pp, err := f.payments.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, pp.Payments, 24)
}

func TestPaymentService_Create(t *testing.T) {
	f, _ := newFixture(t)
	ctx := context.Background()
	p := recurringProject(t, f, 500, "2024-01-10")

	pay := model.Payment{ProjectID: p.ID, Amount: 200, DueDate: mustDate(t, "2024-02-01")}
	change, err := f.payments.Create(ctx, &pay)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, change.Payment.Status)
	assert.Equal(t, 500.0, change.Ledger.RemainingAmount)

	paidOn := mustDate(t, "2024-02-02")
	paid := model.Payment{ProjectID: p.ID, Amount: 300, DueDate: mustDate(t, "2024-02-01"), Status: model.PaymentPaid, PaidDate: &paidOn}
	change, err = f.payments.Create(ctx, &paid)
	require.NoError(t, err)
	assert.Equal(t, 300.0, change.Ledger.PaidAmount)
	assert.Equal(t, 200.0, change.Ledger.RemainingAmount)
}

func TestPaymentService_CreateValidation(t *testing.T) {
	f, _ := newFixture(t)
	ctx := context.Background()
	p := recurringProject(t, f, 500, "2024-01-10")

	zero := model.Payment{ProjectID: p.ID, Amount: 0, DueDate: mustDate(t, "2024-02-01")}
	_, err := f.payments.Create(ctx, &zero)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)

	orphan := model.Payment{ProjectID: "ghost", Amount: 10, DueDate: mustDate(t, "2024-02-01")}
	_, err = f.payments.Create(ctx, &orphan)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPaymentService_Unknown(t *testing.T) {
	f, _ := newFixture(t)
	ctx := context.Background()

	_, err := f.payments.MarkPaid(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.payments.Delete(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.payments.ListByProject(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
