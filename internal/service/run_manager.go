package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stock-backtest/internal/dto"
)

// Run is the handle for one in-flight or finished backtest run. Progress is
// counted in completed combinations, since cancellation is only checked
// between combinations, never mid-simulation.
type Run struct {
	ID        string
	Mode      dto.RunMode
	StartedAt time.Time

	mu        sync.RWMutex
	state     dto.RunState
	completed int
	total     int
	cancel    context.CancelFunc
	result    *dto.RunResult
}

func (r *Run) State() dto.RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Run) setState(s dto.RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *Run) incrementCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *Run) progress() dto.RunProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return dto.RunProgress{
		RunID:     r.ID,
		State:     r.state,
		Completed: r.completed,
		Total:     r.total,
	}
}

// RunManager tracks run handles and exposes progress and cooperative
// cancellation to the surrounding application.
type RunManager struct {
	mu   sync.RWMutex
	runs map[string]*Run
	seq  int
}

func NewRunManager() *RunManager {
	return &RunManager{runs: make(map[string]*Run)}
}

// Register creates a new run handle with a deterministic identifier built
// from the launch timestamp and a sequence number.
func (m *RunManager) Register(mode dto.RunMode, total int, cancel context.CancelFunc) *Run {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	now := time.Now().UTC()
	run := &Run{
		ID:        fmt.Sprintf("run-%s-%04d", now.Format("20060102-150405"), m.seq),
		Mode:      mode,
		StartedAt: now,
		state:     dto.RunStateInitializing,
		total:     total,
		cancel:    cancel,
	}
	m.runs[run.ID] = run
	return run
}

func (m *RunManager) get(id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("unknown run %q", id)
	}
	return run, nil
}

// Progress reports completed/total combinations for a run.
func (m *RunManager) Progress(id string) (dto.RunProgress, error) {
	run, err := m.get(id)
	if err != nil {
		return dto.RunProgress{}, err
	}
	return run.progress(), nil
}

// Cancel requests cooperative cancellation. Combinations already simulating
// finish; pending ones are skipped.
func (m *RunManager) Cancel(id string) error {
	run, err := m.get(id)
	if err != nil {
		return err
	}
	run.mu.Lock()
	defer run.mu.Unlock()
	if run.state == dto.RunStateCompleted || run.state == dto.RunStateFailed {
		return fmt.Errorf("run %s already finished", id)
	}
	run.state = dto.RunStateCancelled
	if run.cancel != nil {
		run.cancel()
	}
	return nil
}

// Result returns the terminal report, nil while the run is still going.
func (m *RunManager) Result(id string) (*dto.RunResult, error) {
	run, err := m.get(id)
	if err != nil {
		return nil, err
	}
	run.mu.RLock()
	defer run.mu.RUnlock()
	return run.result, nil
}

func (r *Run) finish(result *dto.RunResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != dto.RunStateCancelled {
		r.state = result.State
	}
	result.State = r.state
	r.result = result
}
