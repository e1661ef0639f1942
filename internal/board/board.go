// Package board keeps the kanban read model of projects grouped by status.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	contractmq "paytrack/contracts/mq"
	"paytrack/internal/changefeed"
	"paytrack/internal/lifecycle"
	"paytrack/internal/model"
	"paytrack/internal/repository"
)

var ErrUnknownProject = errors.New("project is not on the board")

type ProjectLister interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
}

type Transitioner interface {
	Transition(ctx context.Context, projectID string, to model.ProjectStatus) (*lifecycle.Result, error)
}

// MoveError is returned when a move failed; Reverted is the project as it
// is shown again after rollback.
type MoveError struct {
	Reverted model.Project
	Err      error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move project %s: %v", e.Reverted.ID, e.Err)
}

func (e *MoveError) Unwrap() error { return e.Err }

// Column is one status lane.
type Column struct {
	Status   model.ProjectStatus `json:"status"`
	Projects []model.Project     `json:"projects"`
}

type Board struct {
	mu       sync.RWMutex
	projects map[string]model.Project

	lister  ProjectLister
	machine Transitioner
	logger  *zap.Logger
}

func New(lister ProjectLister, machine Transitioner, logger *zap.Logger) *Board {
	return &Board{
		projects: make(map[string]model.Project),
		lister:   lister,
		machine:  machine,
		logger:   logger,
	}
}

// Reload replaces the board with the persisted projects.
func (b *Board) Reload(ctx context.Context) error {
	projects, err := b.lister.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("reload board: %w", err)
	}

	next := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		next[p.ID] = p
	}

	b.mu.Lock()
	b.projects = next
	b.mu.Unlock()

	b.logger.Debug("Board reloaded", zap.Int("projects", len(projects)))
	return nil
}

// Columns returns every status lane in lifecycle order, oldest project first.
func (b *Board) Columns() []Column {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lanes := make(map[model.ProjectStatus][]model.Project, len(model.ProjectStatuses))
	for _, p := range b.projects {
		lanes[p.Status] = append(lanes[p.Status], p)
	}

	cols := make([]Column, 0, len(model.ProjectStatuses))
	for _, st := range model.ProjectStatuses {
		ps := lanes[st]
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
				return ps[i].ID < ps[j].ID
			}
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		})
		if ps == nil {
			ps = []model.Project{}
		}
		cols = append(cols, Column{Status: st, Projects: ps})
	}
	return cols
}

// Project returns the board's view of id.
func (b *Board) Project(id string) (model.Project, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.projects[id]
	return p, ok
}

// Move shows the project under the new status right away, asks the machine
// to persist the transition and restores the previous snapshot on failure.
func (b *Board) Move(ctx context.Context, id string, to model.ProjectStatus) (*lifecycle.Result, error) {
	snapshot, ok := b.Project(id)
	if !ok {
		if err := b.Reload(ctx); err != nil {
			return nil, err
		}
		if snapshot, ok = b.Project(id); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProject, id)
		}
	}

	tentative := snapshot
	tentative.Status = to
	b.mu.Lock()
	b.projects[id] = tentative
	b.mu.Unlock()

	res, err := b.machine.Transition(ctx, id, to)

	b.mu.Lock()
	defer b.mu.Unlock()
	if errors.Is(err, repository.ErrNotFound) {
		delete(b.projects, id)
		b.logger.Warn("Move target no longer exists, card dropped",
			zap.String("project_id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrUnknownProject, err)
	}
	if err != nil {
		b.projects[id] = snapshot
		b.logger.Warn("Move failed, board reverted",
			zap.String("project_id", id),
			zap.String("status", string(snapshot.Status)),
			zap.String("attempted", string(to)),
			zap.Error(err),
		)
		return nil, &MoveError{Reverted: snapshot, Err: err}
	}
	b.projects[id] = res.Project
	return res, nil
}

// Watch reloads the board on every project or payment change until ctx is done.
func (b *Board) Watch(ctx context.Context, feed changefeed.Feed) error {
	changes, err := feed.Subscribe(ctx, contractmq.CollectionProjects, contractmq.CollectionPayments)
	if err != nil {
		return err
	}

	for change := range changes {
		if err := b.Reload(ctx); err != nil {
			b.logger.Error("Failed to reload board after change",
				zap.String("collection", change.Collection),
				zap.Error(err),
			)
		}
	}
	return nil
}
