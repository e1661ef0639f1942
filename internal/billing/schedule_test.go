package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paytrack/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func recurring(total float64, anchor *time.Time) model.Project {
	return model.Project{
		ID:          "p1",
		Name:        "Website",
		TotalValue:  total,
		IsRecurring: true,
		PaymentDate: anchor,
	}
}

func TestGenerateSchedule_MonthlyFallback(t *testing.T) {
	p := recurring(12000, ptr(date(2024, 1, 10)))

	payments, err := GenerateSchedule(p, time.Now())
	require.NoError(t, err)
	require.Len(t, payments, 12)

	for i, pay := range payments {
		assert.InDelta(t, 1000, pay.Amount, 1e-9)
		assert.Equal(t, date(2024, time.Month(i+1), 10), pay.DueDate)
		assert.Equal(t, model.PaymentPending, pay.Status)
		assert.Equal(t, "p1", pay.ProjectID)
		assert.Nil(t, pay.PaidDate)
	}
	assert.Equal(t, "Payment 1 of 12 - Website", payments[0].Description)
	assert.Equal(t, "Payment 12 of 12 - Website", payments[11].Description)
	assert.Equal(t, date(2024, 12, 10), payments[11].DueDate)
}

func TestGenerateSchedule_Installments(t *testing.T) {
	p := recurring(9000, ptr(date(2024, 5, 31)))
	p.IsInstallment = true
	p.InstallmentCount = ptr(3)

	payments, err := GenerateSchedule(p, time.Now())
	require.NoError(t, err)
	require.Len(t, payments, 3)

	want := []time.Time{date(2024, 5, 31), date(2024, 6, 30), date(2024, 7, 31)}
	var sum float64
	for i, pay := range payments {
		assert.InDelta(t, 3000, pay.Amount, 1e-9)
		assert.Equal(t, want[i], pay.DueDate)
		sum += pay.Amount
	}
	assert.InDelta(t, 9000, sum, 1e-6)
	assert.Equal(t, "Payment 3 of 3 - Website", payments[2].Description)
}

func TestGenerateSchedule_InstallmentsSumToTotal(t *testing.T) {
	for k := 1; k <= 36; k++ {
		p := recurring(1000, ptr(date(2024, 1, 1)))
		p.IsInstallment = true
		p.InstallmentCount = ptr(k)

		payments, err := GenerateSchedule(p, time.Now())
		require.NoError(t, err)
		require.Len(t, payments, k)

		var sum float64
		for _, pay := range payments {
			assert.InDelta(t, 1000/float64(k), pay.Amount, 1e-9)
			sum += pay.Amount
		}
		assert.InDelta(t, 1000, sum, 1e-6, "k=%d", k)
	}
}

func TestGenerateSchedule_UnsetCountFallsBackToTwelve(t *testing.T) {
	p := recurring(2400, ptr(date(2024, 1, 1)))
	p.IsInstallment = true

	payments, err := GenerateSchedule(p, time.Now())
	require.NoError(t, err)
	require.Len(t, payments, 12)
	assert.InDelta(t, 200, payments[0].Amount, 1e-9)
}

func TestGenerateSchedule_InvalidCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		p := recurring(1000, nil)
		p.IsInstallment = true
		p.InstallmentCount = ptr(n)

		payments, err := GenerateSchedule(p, time.Now())
		assert.True(t, errors.Is(err, ErrInvalidInstallmentCount), "n=%d", n)
		assert.Empty(t, payments)
	}
}

func TestGenerateSchedule_CountIgnoredWithoutInstallmentFlag(t *testing.T) {
	p := recurring(1200, ptr(date(2024, 1, 1)))
	p.InstallmentCount = ptr(0)

	payments, err := GenerateSchedule(p, time.Now())
	require.NoError(t, err)
	assert.Len(t, payments, 12)
}

func TestGenerateSchedule_NotRecurring(t *testing.T) {
	p := recurring(1000, ptr(date(2024, 1, 1)))
	p.IsRecurring = false

	payments, err := GenerateSchedule(p, time.Now())
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestGenerateSchedule_AnchorsOnNow(t *testing.T) {
	now := time.Date(2023, 10, 31, 17, 45, 0, 0, time.UTC)

	payments, err := GenerateSchedule(recurring(1200, nil), now)
	require.NoError(t, err)
	require.Len(t, payments, 12)
	assert.Equal(t, date(2023, 10, 31), payments[0].DueDate)
	assert.Equal(t, date(2023, 11, 30), payments[1].DueDate)
	assert.Equal(t, date(2024, 2, 29), payments[4].DueDate)
	assert.Equal(t, date(2024, 9, 30), payments[11].DueDate)
}

func TestGenerateSchedule_ZeroTotal(t *testing.T) {
	payments, err := GenerateSchedule(recurring(0, ptr(date(2024, 1, 1))), time.Now())
	require.NoError(t, err)
	require.Len(t, payments, 12)
	for _, pay := range payments {
		assert.Zero(t, pay.Amount)
	}
}

func TestGenerateSchedule_RepeatedCallsDuplicate(t *testing.T) {
	p := recurring(12000, ptr(date(2024, 1, 10)))

	first, err := GenerateSchedule(p, time.Now())
	require.NoError(t, err)
	second, err := GenerateSchedule(p, time.Now())
	require.NoError(t, err)

	assert.Len(t, append(first, second...), 24)
	assert.Equal(t, first, second)
}

func TestAddMonths_Clamps(t *testing.T) {
	cases := []struct {
		from   time.Time
		months int
		want   time.Time
	}{
		{date(2024, 1, 31), 1, date(2024, 2, 29)},
		{date(2023, 1, 31), 1, date(2023, 2, 28)},
		{date(2024, 1, 31), 2, date(2024, 3, 31)},
		{date(2024, 1, 31), 3, date(2024, 4, 30)},
		{date(2024, 3, 31), 11, date(2025, 2, 28)},
		{date(2024, 12, 15), 1, date(2025, 1, 15)},
		{date(2024, 2, 29), 12, date(2025, 2, 28)},
		{date(2024, 1, 10), 0, date(2024, 1, 10)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AddMonths(tc.from, tc.months), "%s + %d", tc.from.Format("2006-01-02"), tc.months)
	}
}
