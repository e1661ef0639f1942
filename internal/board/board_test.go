package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paytrack/internal/changefeed"
	"paytrack/internal/lifecycle"
	"paytrack/internal/model"
	"paytrack/internal/repository"
)

type fakeLister struct {
	mu       sync.Mutex
	projects []model.Project
	calls    int
}

func (f *fakeLister) ListProjects(context.Context) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return append([]model.Project(nil), f.projects...), nil
}

func (f *fakeLister) reloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMachine struct {
	board *Board
	err   error
	seen  model.ProjectStatus
}

func (m *fakeMachine) Transition(_ context.Context, id string, to model.ProjectStatus) (*lifecycle.Result, error) {
	p, _ := m.board.Project(id)
	m.seen = p.Status
	if m.err != nil {
		return nil, m.err
	}
	p.Status = to
	return &lifecycle.Result{Project: p, To: string(to)}, nil
}

func newBoard(t *testing.T, projects ...model.Project) (*Board, *fakeLister, *fakeMachine) {
	t.Helper()
	lister := &fakeLister{projects: projects}
	machine := &fakeMachine{}
	b := New(lister, machine, zap.NewNop())
	machine.board = b
	require.NoError(t, b.Reload(context.Background()))
	return b, lister, machine
}

func TestBoard_Columns(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b, _, _ := newBoard(t,
		model.Project{ID: "b", Status: model.StatusNew, CreatedAt: t0.Add(time.Hour)},
		model.Project{ID: "a", Status: model.StatusNew, CreatedAt: t0},
		model.Project{ID: "c", Status: model.StatusActive, CreatedAt: t0},
	)

	cols := b.Columns()
	require.Len(t, cols, 6)
	assert.Equal(t, model.StatusNew, cols[0].Status)
	assert.Equal(t, []string{"a", "b"}, []string{cols[0].Projects[0].ID, cols[0].Projects[1].ID})
	assert.Equal(t, model.StatusActive, cols[3].Status)
	assert.Len(t, cols[3].Projects, 1)
	assert.NotNil(t, cols[5].Projects)
}

func TestBoard_MoveAppliesTentativeState(t *testing.T) {
	b, _, machine := newBoard(t, model.Project{ID: "p1", Status: model.StatusInProduction})

	res, err := b.Move(context.Background(), "p1", model.StatusActive)
	require.NoError(t, err)

	assert.Equal(t, model.StatusActive, machine.seen, "board shows the new status while the write is in flight")
	assert.Equal(t, model.StatusActive, res.Project.Status)
	p, _ := b.Project("p1")
	assert.Equal(t, model.StatusActive, p.Status)
}

func TestBoard_MoveFailureRestoresSnapshot(t *testing.T) {
	b, _, machine := newBoard(t, model.Project{ID: "p1", Name: "Site", Status: model.StatusInProgress})
	machine.err = lifecycle.ErrStatusWrite

	_, err := b.Move(context.Background(), "p1", model.StatusActive)

	var me *MoveError
	require.True(t, errors.As(err, &me))
	assert.ErrorIs(t, err, lifecycle.ErrStatusWrite)
	assert.Equal(t, model.StatusInProgress, me.Reverted.Status)

	p, _ := b.Project("p1")
	assert.Equal(t, model.StatusInProgress, p.Status)
	assert.Equal(t, "Site", p.Name)
}

func TestBoard_MoveDeletedProjectDropsCard(t *testing.T) {
	b, _, machine := newBoard(t, model.Project{ID: "p1", Status: model.StatusNew})
	machine.err = fmt.Errorf("load project p1: %w", repository.ErrNotFound)

	_, err := b.Move(context.Background(), "p1", model.StatusActive)
	assert.ErrorIs(t, err, ErrUnknownProject)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var me *MoveError
	assert.False(t, errors.As(err, &me))
	_, ok := b.Project("p1")
	assert.False(t, ok)
	assert.Empty(t, b.Columns()[0].Projects)
}

func TestBoard_MoveUnknownProject(t *testing.T) {
	b, lister, _ := newBoard(t)

	_, err := b.Move(context.Background(), "missing", model.StatusActive)
	assert.ErrorIs(t, err, ErrUnknownProject)
	assert.Equal(t, 2, lister.reloads())
}

func TestBoard_WatchReloadsOnChange(t *testing.T) {
	b, lister, _ := newBoard(t)
	feed := changefeed.NewMemoryFeed()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Watch(ctx, feed) }()

	lister.mu.Lock()
	lister.projects = []model.Project{{ID: "new", Status: model.StatusNew}}
	lister.mu.Unlock()

	assert.Eventually(t, func() bool {
		_ = feed.Publish(context.Background(), "projects")
		_, ok := b.Project("new")
		return ok
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
