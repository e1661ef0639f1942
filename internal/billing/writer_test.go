package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paytrack/internal/model"
)

type memWriter struct {
	failAt  map[int]bool
	calls   int
	stored  map[string]model.Payment
	deleted []string
}

func newMemWriter(failAt ...int) *memWriter {
	w := &memWriter{failAt: map[int]bool{}, stored: map[string]model.Payment{}}
	for _, i := range failAt {
		w.failAt[i] = true
	}
	return w
}

func (w *memWriter) InsertPayment(_ context.Context, p *model.Payment) error {
	i := w.calls
	w.calls++
	if w.failAt[i] {
		return errors.New("write failed")
	}
	p.ID = fmt.Sprintf("pay-%d", i)
	w.stored[p.ID] = *p
	return nil
}

func (w *memWriter) DeletePayment(_ context.Context, id string) error {
	delete(w.stored, id)
	w.deleted = append(w.deleted, id)
	return nil
}

func schedule(n int) []model.Payment {
	payments, _ := GenerateSchedule(model.Project{
		ID: "p1", Name: "App", TotalValue: float64(n * 100), IsRecurring: true,
		IsInstallment: true, InstallmentCount: ptr(n),
	}, date(2024, 1, 1))
	return payments
}

func TestBestEffort_PartialFailureSucceeds(t *testing.T) {
	w := newMemWriter(4)
	s := &BestEffort{Logger: zap.NewNop()}

	res, err := s.Write(context.Background(), w, schedule(12))
	require.NoError(t, err)
	assert.Len(t, res.Written, 11)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, w.stored, 11)
	for _, p := range res.Written {
		assert.NotEmpty(t, p.ID)
	}
}

func TestBestEffort_AllFailed(t *testing.T) {
	w := newMemWriter(0, 1, 2)
	s := &BestEffort{Logger: zap.NewNop()}

	res, err := s.Write(context.Background(), w, schedule(3))
	assert.ErrorIs(t, err, ErrNothingWritten)
	assert.Empty(t, res.Written)
	assert.Equal(t, 3, res.Failed)
}

func TestAllOrNothing_CompensatesOnFailure(t *testing.T) {
	w := newMemWriter(4)
	s := &AllOrNothing{Logger: zap.NewNop(), WriteTimeout: time.Second}

	res, err := s.Write(context.Background(), w, schedule(12))
	assert.ErrorIs(t, err, ErrNothingWritten)
	assert.Empty(t, res.Written)
	assert.Empty(t, w.stored)
	assert.Equal(t, []string{"pay-0", "pay-1", "pay-2", "pay-3"}, w.deleted)
	assert.Equal(t, 5, w.calls, "stops at the first failure")
}

func TestAllOrNothing_Success(t *testing.T) {
	w := newMemWriter()
	s := &AllOrNothing{Logger: zap.NewNop()}

	res, err := s.Write(context.Background(), w, schedule(3))
	require.NoError(t, err)
	assert.Len(t, res.Written, 3)
	assert.Empty(t, w.deleted)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("", 0, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "best_effort", s.Name())

	s, err = ParseStrategy("all_or_nothing", time.Second, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "all_or_nothing", s.Name())

	_, err = ParseStrategy("parallel", 0, zap.NewNop())
	assert.Error(t, err)
}

func TestScheduler_Run(t *testing.T) {
	w := newMemWriter()
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	s := NewScheduler(w, &BestEffort{Logger: zap.NewNop()}, zap.NewNop()).
		WithClock(func() time.Time { return now })

	res, err := s.Run(context.Background(), model.Project{ID: "p1", Name: "Ops", TotalValue: 1200, IsRecurring: true})
	require.NoError(t, err)
	require.Len(t, res.Written, 12)
	assert.Equal(t, date(2024, 3, 15), res.Written[0].DueDate)

	res, err = s.Run(context.Background(), model.Project{ID: "p2", Name: "One-off", TotalValue: 500})
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	assert.Equal(t, 12, w.calls)
}
