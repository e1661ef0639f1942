package service

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	contractmq "paytrack/contracts/mq"
	"paytrack/internal/billing"
	"paytrack/internal/changefeed"
	"paytrack/internal/model"
	"paytrack/internal/repository"
)

// Summary is the dashboard overview. Cancelled projects are left out of
// the contracted, paid and remaining totals.
type Summary struct {
	ProjectCount     int            `json:"projectCount"`
	ProjectsByStatus map[string]int `json:"projectsByStatus"`
	ContractedValue  float64        `json:"contractedValue"`
	PaidAmount       float64        `json:"paidAmount"`
	RemainingAmount  float64        `json:"remainingAmount"`
	OverdueAmount    float64        `json:"overdueAmount"`
	OverdueCount     int            `json:"overdueCount"`
}

type MonthRevenue struct {
	Month  int     `json:"month"`
	Amount float64 `json:"amount"`
}

// Revenue is the paid amount per month of a year, by paid date.
type Revenue struct {
	Year   int            `json:"year"`
	Months []MonthRevenue `json:"months"`
	Total  float64        `json:"total"`
}

// DeveloperPayout is a developer's share of the paid amounts of their projects.
type DeveloperPayout struct {
	DeveloperID string  `json:"developerId"`
	Amount      float64 `json:"amount"`
	Projects    int     `json:"projects"`
}

type ReportService struct {
	projects ProjectStore
	payments PaymentStore
	cache    ReportCache
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService creates the report service. cache may be nil.
func NewReportService(projects ProjectStore, payments PaymentStore, cache ReportCache, ttl time.Duration, logger *zap.Logger) *ReportService {
	return &ReportService{
		projects: projects,
		payments: payments,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

func (s *ReportService) Summary(ctx context.Context) (*Summary, error) {
	key := "summary:" + model.FormatDate(model.TruncateDate(s.now()))
	return cached(ctx, s, key, func(ctx context.Context) (*Summary, error) {
		projects, byProject, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		today := model.TruncateDate(s.now())

		sum := &Summary{ProjectsByStatus: make(map[string]int, len(model.ProjectStatuses))}
		for _, st := range model.ProjectStatuses {
			sum.ProjectsByStatus[string(st)] = 0
		}
		for _, p := range projects {
			sum.ProjectCount++
			sum.ProjectsByStatus[string(p.Status)]++

			payments := byProject[p.ID]
			for _, pay := range payments {
				if isOverdue(pay, today) {
					sum.OverdueCount++
					sum.OverdueAmount += pay.Amount
				}
			}
			if p.Status == model.StatusCancelled {
				continue
			}
			ledger := billing.Aggregate(p.TotalValue, payments)
			sum.ContractedValue += ledger.TotalValue
			sum.PaidAmount += ledger.PaidAmount
			sum.RemainingAmount += ledger.RemainingAmount
		}
		return sum, nil
	})
}

// Revenue groups paid payments of year by the month they were paid.
func (s *ReportService) Revenue(ctx context.Context, year int) (*Revenue, error) {
	if year < 1970 || year > 9999 {
		return nil, model.NewValidationError("year", model.CodeOutOfRange, "year is out of range")
	}
	return cached(ctx, s, fmt.Sprintf("revenue:%d", year), func(ctx context.Context) (*Revenue, error) {
		payments, err := s.payments.ListPayments(ctx)
		if err != nil {
			return nil, err
		}

		rev := &Revenue{Year: year, Months: make([]MonthRevenue, 12)}
		for i := range rev.Months {
			rev.Months[i].Month = i + 1
		}
		for _, p := range payments {
			if p.Status != model.PaymentPaid || p.PaidDate == nil || p.PaidDate.Year() != year {
				continue
			}
			rev.Months[p.PaidDate.Month()-1].Amount += p.Amount
			rev.Total += p.Amount
		}
		return rev, nil
	})
}

// Payouts splits every project's paid amount by its developer shares,
// read as percentages.
func (s *ReportService) Payouts(ctx context.Context) ([]DeveloperPayout, error) {
	return cached(ctx, s, "payouts", func(ctx context.Context) ([]DeveloperPayout, error) {
		projects, byProject, err := s.load(ctx)
		if err != nil {
			return nil, err
		}

		totals := make(map[string]*DeveloperPayout)
		for _, p := range projects {
			paid := billing.Aggregate(p.TotalValue, byProject[p.ID]).PaidAmount
			for dev, share := range p.DeveloperShares {
				d, ok := totals[dev]
				if !ok {
					d = &DeveloperPayout{DeveloperID: dev}
					totals[dev] = d
				}
				d.Amount += paid * share / 100
				d.Projects++
			}
		}

		out := make([]DeveloperPayout, 0, len(totals))
		for _, d := range totals {
			out = append(out, *d)
		}
		slices.SortFunc(out, func(a, b DeveloperPayout) int { return cmp.Compare(a.DeveloperID, b.DeveloperID) })
		return out, nil
	})
}

// Invalidate drops cached reports.
func (s *ReportService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

// Watch drops cached reports on every project or payment change until ctx
// is done.
func (s *ReportService) Watch(ctx context.Context, feed changefeed.Feed) error {
	changes, err := feed.Subscribe(ctx, contractmq.CollectionProjects, contractmq.CollectionPayments)
	if err != nil {
		return err
	}

	for change := range changes {
		if err := s.Invalidate(ctx); err != nil {
			s.logger.Error("Failed to invalidate report cache",
				zap.String("collection", change.Collection),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *ReportService) load(ctx context.Context) ([]model.Project, map[string][]model.Payment, error) {
	projects, err := s.projects.FindProjects(ctx, repository.ProjectFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("list projects: %w", err)
	}
	payments, err := s.payments.ListPayments(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list payments: %w", err)
	}
	byProject := make(map[string][]model.Payment, len(projects))
	for _, p := range payments {
		byProject[p.ProjectID] = append(byProject[p.ProjectID], p)
	}
	return projects, byProject, nil
}

func isOverdue(p model.Payment, today time.Time) bool {
	switch p.Status {
	case model.PaymentOverdue:
		return true
	case model.PaymentPending:
		return p.DueDate.Before(today)
	}
	return false
}

// cached serves key from the report cache, computing and storing it on a
// miss. Cache errors are logged and bypassed.
func cached[T any](ctx context.Context, s *ReportService, key string, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				return v, nil
			}
			s.logger.Warn("Discarding undecodable cached report", zap.String("key", key))
		case !errors.Is(err, ErrCacheMiss):
			s.logger.Warn("Report cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	if s.cache != nil {
		data, err := json.Marshal(v)
		if err == nil {
			err = s.cache.Set(ctx, key, data, s.ttl)
		}
		if err != nil {
			s.logger.Warn("Report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}
