// Package scheduler runs delayed, cancellable callbacks on an injectable clock.
// Production code uses the wall clock; tests drive a clock.Mock.
package scheduler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebookgo/clock"

	"restaurant-automation/internal/common/logger"
)

type SchedulerInterface interface {
	Now() time.Time
	After(d time.Duration, name string, fn func()) *Task
}

type Scheduler struct {
	clk clock.Clock
	log *logger.Logger
}

func New(clk clock.Clock, log *logger.Logger) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{clk: clk, log: log}
}

func (s *Scheduler) Now() time.Time { return s.clk.Now() }

func (s *Scheduler) Clock() clock.Clock { return s.clk }

// Task is a single pending callback. Cancel is safe from any goroutine and
// may be called any number of times.
type Task struct {
	name      string
	cancelled atomic.Bool
	fired     atomic.Bool

	mu    sync.Mutex
	timer *clock.Timer
}

// After arms fn to run once after d. A negative d is treated as zero.
func (s *Scheduler) After(d time.Duration, name string, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	t := &Task{name: name}
	t.mu.Lock()
	t.timer = s.clk.AfterFunc(d, func() { s.fire(t, fn) })
	t.mu.Unlock()
	return t
}

func (s *Scheduler) fire(t *Task, fn func()) {
	if t.cancelled.Load() {
		return
	}
	t.fired.Store(true)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled_task_panic", fmt.Errorf("panic: %v", r), map[string]any{"task": t.name})
		}
	}()
	fn()
}

// Cancel prevents a task that has not fired yet from running.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.cancelled.Store(true)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *Task) Cancelled() bool { return t != nil && t.cancelled.Load() }

func (t *Task) Fired() bool { return t != nil && t.fired.Load() }

func (t *Task) Name() string { return t.name }
