package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbcontract "paytrack/contracts/db"
	contractmq "paytrack/contracts/mq"
	"paytrack/internal/changefeed"
	"paytrack/internal/model"
)

// Memory keeps every collection as snake_case records in process memory
// and signals a change feed after each mutation. It backs tests and the
// "memory" storage driver.
type Memory struct {
	mu     sync.RWMutex
	feed   changefeed.Feed
	logger *zap.Logger
	now    func() time.Time

	seq      int64
	projects map[string]stored[dbcontract.ProjectRecord]
	payments map[string]stored[dbcontract.PaymentRecord]
	tasks    map[string]stored[dbcontract.TaskRecord]
	clients  map[string]stored[dbcontract.ClientRecord]
	users    map[string]stored[dbcontract.UserRecord]
}

type stored[R any] struct {
	seq int64
	rec R
}

// NewMemory creates an empty store. feed may be nil.
func NewMemory(feed changefeed.Feed, logger *zap.Logger) *Memory {
	return &Memory{
		feed:     feed,
		logger:   logger,
		now:      time.Now,
		projects: make(map[string]stored[dbcontract.ProjectRecord]),
		payments: make(map[string]stored[dbcontract.PaymentRecord]),
		tasks:    make(map[string]stored[dbcontract.TaskRecord]),
		clients:  make(map[string]stored[dbcontract.ClientRecord]),
		users:    make(map[string]stored[dbcontract.UserRecord]),
	}
}

func (m *Memory) Projects() *MemoryProjects { return &MemoryProjects{m} }
func (m *Memory) Payments() *MemoryPayments { return &MemoryPayments{m} }
func (m *Memory) Tasks() *MemoryTasks       { return &MemoryTasks{m} }
func (m *Memory) Clients() *MemoryClients   { return &MemoryClients{m} }
func (m *Memory) Users() *MemoryUsers       { return &MemoryUsers{m} }

// next must be called with mu held.
func (m *Memory) next() int64 {
	m.seq++
	return m.seq
}

func (m *Memory) notify(ctx context.Context, collections ...string) {
	if m.feed == nil {
		return
	}
	for _, c := range collections {
		if err := m.feed.Publish(ctx, c); err != nil {
			m.logger.Warn("Failed to publish change", zap.String("collection", c), zap.Error(err))
		}
	}
}

// ordered returns the records in insertion order.
func ordered[R any](rows map[string]stored[R]) []R {
	entries := slices.Collect(maps.Values(rows))
	slices.SortFunc(entries, func(a, b stored[R]) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]R, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// MemoryProjects is the projects collection of a Memory store.
type MemoryProjects struct{ m *Memory }

func (r *MemoryProjects) CreateProject(ctx context.Context, p *model.Project) error {
	p.ID = uuid.NewString()
	p.CreatedAt = r.m.now().UTC()
	if p.Status == "" {
		p.Status = model.StatusNew
	}
	p.Normalize()

	r.m.mu.Lock()
	r.m.projects[p.ID] = stored[dbcontract.ProjectRecord]{seq: r.m.next(), rec: p.ToRecord()}
	r.m.mu.Unlock()

	r.m.notify(ctx, contractmq.CollectionProjects)
	return nil
}

func (r *MemoryProjects) GetProject(_ context.Context, id string) (*model.Project, error) {
	r.m.mu.RLock()
	s, ok := r.m.projects[id]
	r.m.mu.RUnlock()
	if !ok {
		return nil, notFound("project", id)
	}
	p, err := model.ProjectFromRecord(s.rec)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MemoryProjects) ListProjects(ctx context.Context) ([]model.Project, error) {
	return r.FindProjects(ctx, ProjectFilter{})
}

func (r *MemoryProjects) FindProjects(_ context.Context, f ProjectFilter) ([]model.Project, error) {
	r.m.mu.RLock()
	recs := ordered(r.m.projects)
	r.m.mu.RUnlock()

	var out []model.Project
	for _, rec := range recs {
		p, err := model.ProjectFromRecord(rec)
		if err != nil {
			return nil, err
		}
		if f.matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryProjects) UpdateProject(ctx context.Context, p *model.Project) error {
	p.Normalize()

	r.m.mu.Lock()
	s, ok := r.m.projects[p.ID]
	if !ok {
		r.m.mu.Unlock()
		return notFound("project", p.ID)
	}
	rec := p.ToRecord()
	rec.Status = s.rec.Status
	rec.CreatedAt = s.rec.CreatedAt
	s.rec = rec
	r.m.projects[p.ID] = s
	r.m.mu.Unlock()

	p.Status = model.ProjectStatus(rec.Status)
	if createdAt, err := time.Parse(time.RFC3339Nano, rec.CreatedAt); err == nil {
		p.CreatedAt = createdAt
	}
	r.m.notify(ctx, contractmq.CollectionProjects)
	return nil
}

func (r *MemoryProjects) UpdateStatus(ctx context.Context, id string, _, to model.ProjectStatus) error {
	r.m.mu.Lock()
	s, ok := r.m.projects[id]
	if !ok {
		r.m.mu.Unlock()
		return notFound("project", id)
	}
	s.rec.Status = string(to)
	r.m.projects[id] = s
	r.m.mu.Unlock()

	r.m.notify(ctx, contractmq.CollectionProjects)
	return nil
}

// DeleteProject removes the project with its payments and tasks.
func (r *MemoryProjects) DeleteProject(ctx context.Context, id string) error {
	r.m.mu.Lock()
	if _, ok := r.m.projects[id]; !ok {
		r.m.mu.Unlock()
		return notFound("project", id)
	}
	delete(r.m.projects, id)
	maps.DeleteFunc(r.m.payments, func(_ string, s stored[dbcontract.PaymentRecord]) bool {
		return s.rec.ProjectID == id
	})
	maps.DeleteFunc(r.m.tasks, func(_ string, s stored[dbcontract.TaskRecord]) bool {
		return s.rec.ProjectID == id
	})
	r.m.mu.Unlock()

	r.m.notify(ctx, contractmq.CollectionProjects, contractmq.CollectionPayments, contractmq.CollectionTasks)
	return nil
}

// MemoryPayments is the payments collection of a Memory store.
type MemoryPayments struct{ m *Memory }

func (r *MemoryPayments) InsertPayment(ctx context.Context, p *model.Payment) error {
	p.ID = uuid.NewString()
	p.CreatedAt = r.m.now().UTC()
	if p.Status == "" {
		p.Status = model.PaymentPending
	}

	r.m.mu.Lock()
	if _, ok := r.m.projects[p.ProjectID]; !ok {
		r.m.mu.Unlock()
		return notFound("project", p.ProjectID)
	}
	r.m.payments[p.ID] = stored[dbcontract.PaymentRecord]{seq: r.m.next(), rec: p.ToRecord()}
	r.m.mu.Unlock()

	r.m.notify(ctx, contractmq.CollectionPayments)
	return nil
}

func (r *MemoryPayments) GetPayment(_ context.Context, id string) (*model.Payment, error) {
	r.m.mu.RLock()
	s, ok := r.m.payments[id]
	r.m.mu.RUnlock()
	if !ok {
		return nil, notFound("payment", id)
	}
	p, err := model.PaymentFromRecord(s.rec)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MemoryPayments) ListByProject(_ context.Context, projectID string) ([]model.Payment, error) {
	return r.list(func(rec dbcontract.PaymentRecord) bool { return rec.ProjectID == projectID })
}

func (r *MemoryPayments) ListPayments(context.Context) ([]model.Payment, error) {
	return r.list(func(dbcontract.PaymentRecord) bool { return true })
}

// list returns matching payments ordered by due date, then insertion.
func (r *MemoryPayments) list(keep func(dbcontract.PaymentRecord) bool) ([]model.Payment, error) {
	r.m.mu.RLock()
	recs := ordered(r.m.payments)
	r.m.mu.RUnlock()

	recs = slices.DeleteFunc(recs, func(rec dbcontract.PaymentRecord) bool { return !keep(rec) })
	slices.SortStableFunc(recs, func(a, b dbcontract.PaymentRecord) int { return strings.Compare(a.DueDate, b.DueDate) })

	out := make([]model.Payment, 0, len(recs))
	for _, rec := range recs {
		p, err := model.PaymentFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *MemoryPayments) CountByProject(_ context.Context, projectID string) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	n := 0
	for _, s := range r.m.payments {
		if s.rec.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryPayments) MarkPaid(ctx context.Context, id string, paidAt time.Time) (*model.Payment, error) {
	paid := model.FormatDate(model.TruncateDate(paidAt))

	r.m.mu.Lock()
	s, ok := r.m.payments[id]
	if !ok {
		r.m.mu.Unlock()
		return nil, notFound("payment", id)
	}
	switch model.PaymentStatus(s.rec.Status) {
	case model.PaymentPaid:
		r.m.mu.Unlock()
		p, err := model.PaymentFromRecord(s.rec)
		if err != nil {
			return nil, err
		}
		return &p, nil
	case model.PaymentCancelled:
		r.m.mu.Unlock()
		return nil, fmt.Errorf("payment %s is cancelled: %w", id, ErrConflict)
	}
	s.rec.Status = string(model.PaymentPaid)
	s.rec.PaidDate = &paid
	r.m.payments[id] = s
	r.m.mu.Unlock()

	p, err := model.PaymentFromRecord(s.rec)
	if err != nil {
		return nil, err
	}
	r.m.notify(ctx, contractmq.CollectionPayments)
	return &p, nil
}

func (r *MemoryPayments) DeletePayment(ctx context.Context, id string) error {
	r.m.mu.Lock()
	if _, ok := r.m.payments[id]; !ok {
		r.m.mu.Unlock()
		return notFound("payment", id)
	}
	delete(r.m.payments, id)
	r.m.mu.Unlock()

	r.m.notify(ctx, contractmq.CollectionPayments)
	return nil
}

func (r *MemoryPayments) MarkOverdue(ctx context.Context, today time.Time) ([]model.Payment, error) {
	cutoff := model.FormatDate(model.TruncateDate(today))

	var changed []dbcontract.PaymentRecord
	r.m.mu.Lock()
	for id, s := range r.m.payments {
		if s.rec.Status == string(model.PaymentPending) && s.rec.DueDate < cutoff {
			s.rec.Status = string(model.PaymentOverdue)
			r.m.payments[id] = s
			changed = append(changed, s.rec)
		}
	}
	r.m.mu.Unlock()

	if len(changed) == 0 {
		return nil, nil
	}
	slices.SortFunc(changed, func(a, b dbcontract.PaymentRecord) int {
		return cmp.Or(strings.Compare(a.DueDate, b.DueDate), strings.Compare(a.ID, b.ID))
	})

	out := make([]model.Payment, 0, len(changed))
	for _, rec := range changed {
		p, err := model.PaymentFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	r.m.notify(ctx, contractmq.CollectionPayments)
	return out, nil
}

// MemoryTasks is the tasks collection of a Memory store.
type MemoryTasks struct{ m *Memory }

func (r *MemoryTasks) CreateTask(ctx context.Context, t *model.Task) error {
	t.ID = uuid.NewString()
	t.CreatedAt = r.m.now().UTC()

	r.m.mu.Lock()
	if _, ok := r.m.projects[t.ProjectID]; !ok {
		r.m.mu.Unlock()
		return notFound("project", t.ProjectID)
	}
	r.m.tasks[t.ID] = stored[dbcontract.TaskRecord]{seq: r.m.next(), rec: t.ToRecord()}
	r.m.mu.Unlock()

	r.m.notify(ctx, contractmq.CollectionTasks)
	return nil
}

func (r *MemoryTasks) GetTask(_ context.Context, id string) (*model.Task, error) {
	r.m.mu.RLock()
	s, ok := r.m.tasks[id]
	r.m.mu.RUnlock()
	if !ok {
		return nil, notFound("task", id)
	}
	t, err := model.TaskFromRecord(s.rec)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *MemoryTasks) ListByProject(_ context.Context, projectID string) ([]model.Task, error) {
	r.m.mu.RLock()
	recs := ordered(r.m.tasks)
	r.m.mu.RUnlock()

	var out []model.Task
	for _, rec := range recs {
		if rec.ProjectID != projectID {
			continue
		}
		t, err := model.TaskFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *MemoryTasks) UpdateTask(ctx context.Context, t *model.Task) error {
	r.m.mu.Lock()
	s, ok := r.m.tasks[t.ID]
	if !ok {
		r.m.mu.Unlock()
		return notFound("task", t.ID)
	}
	rec := t.ToRecord()
	rec.ProjectID = s.rec.ProjectID
	rec.CreatedAt = s.rec.CreatedAt
	s.rec = rec
	r.m.tasks[t.ID] = s
	r.m.mu.Unlock()

	t.ProjectID = rec.ProjectID
	r.m.notify(ctx, contractmq.CollectionTasks)
	return nil
}

func (r *MemoryTasks) SetCompleted(ctx context.Context, id string, completed bool) (*model.Task, error) {
	r.m.mu.Lock()
	s, ok := r.m.tasks[id]
	if !ok {
		r.m.mu.Unlock()
		return nil, notFound("task", id)
	}
	s.rec.Completed = completed
	r.m.tasks[id] = s
	r.m.mu.Unlock()

	t, err := model.TaskFromRecord(s.rec)
	if err != nil {
		return nil, err
	}
	r.m.notify(ctx, contractmq.CollectionTasks)
	return &t, nil
}

func (r *MemoryTasks) DeleteTask(ctx context.Context, id string) error {
	r.m.mu.Lock()
	if _, ok := r.m.tasks[id]; !ok {
		r.m.mu.Unlock()
		return notFound("task", id)
	}
	delete(r.m.tasks, id)
	r.m.mu.Unlock()

	r.m.notify(ctx, contractmq.CollectionTasks)
	return nil
}

// MemoryClients is the clients collection of a Memory store.
type MemoryClients struct{ m *Memory }

func (r *MemoryClients) CreateClient(ctx context.Context, c *model.Client) error {
	c.ID = uuid.NewString()
	c.CreatedAt = r.m.now().UTC()

	r.m.mu.Lock()
	r.m.clients[c.ID] = stored[dbcontract.ClientRecord]{seq: r.m.next(), rec: c.ToRecord()}
	r.m.mu.Unlock()

	r.m.notify(ctx, contractmq.CollectionClients)
	return nil
}

func (r *MemoryClients) GetClient(_ context.Context, id string) (*model.Client, error) {
	r.m.mu.RLock()
	s, ok := r.m.clients[id]
	r.m.mu.RUnlock()
	if !ok {
		return nil, notFound("client", id)
	}
	c, err := model.ClientFromRecord(s.rec)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *MemoryClients) ListClients(context.Context) ([]model.Client, error) {
	r.m.mu.RLock()
	recs := ordered(r.m.clients)
	r.m.mu.RUnlock()

	slices.SortStableFunc(recs, func(a, b dbcontract.ClientRecord) int { return strings.Compare(a.Name, b.Name) })
	out := make([]model.Client, 0, len(recs))
	for _, rec := range recs {
		c, err := model.ClientFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryClients) UpdateClient(ctx context.Context, c *model.Client) error {
	r.m.mu.Lock()
	s, ok := r.m.clients[c.ID]
	if !ok {
		r.m.mu.Unlock()
		return notFound("client", c.ID)
	}
	rec := c.ToRecord()
	rec.CreatedAt = s.rec.CreatedAt
	s.rec = rec
	r.m.clients[c.ID] = s
	r.m.mu.Unlock()

	r.m.notify(ctx, contractmq.CollectionClients)
	return nil
}

// DeleteClient removes the client and clears client_id on its projects.
func (r *MemoryClients) DeleteClient(ctx context.Context, id string) error {
	r.m.mu.Lock()
	if _, ok := r.m.clients[id]; !ok {
		r.m.mu.Unlock()
		return notFound("client", id)
	}
	delete(r.m.clients, id)
	touched := false
	for pid, s := range r.m.projects {
		if s.rec.ClientID != nil && *s.rec.ClientID == id {
			s.rec.ClientID = nil
			r.m.projects[pid] = s
			touched = true
		}
	}
	r.m.mu.Unlock()

	if touched {
		r.m.notify(ctx, contractmq.CollectionClients, contractmq.CollectionProjects)
	} else {
		r.m.notify(ctx, contractmq.CollectionClients)
	}
	return nil
}

// MemoryUsers is the users collection of a Memory store.
type MemoryUsers struct{ m *Memory }

func (r *MemoryUsers) CreateUser(_ context.Context, u *model.User) error {
	u.ID = uuid.NewString()
	u.CreatedAt = r.m.now().UTC()
	u.Email = strings.ToLower(u.Email)

	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.users {
		if s.rec.Email == u.Email {
			return fmt.Errorf("%w: users_email_key", ErrDuplicate)
		}
	}
	r.m.users[u.ID] = stored[dbcontract.UserRecord]{seq: r.m.next(), rec: u.ToRecord()}
	return nil
}

func (r *MemoryUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(email)

	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, s := range r.m.users {
		if s.rec.Email == email {
			u, err := model.UserFromRecord(s.rec)
			if err != nil {
				return nil, err
			}
			return &u, nil
		}
	}
	return nil, notFound("user", email)
}
