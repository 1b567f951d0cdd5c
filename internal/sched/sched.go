// Package sched runs a fixed set of periodic tasks off a single base tick.
//
// Each task owns an elapsed-time accumulator. On every tick all accumulators
// advance by the base period; then, in registration order, every task whose
// accumulator has reached its period runs to completion and has its
// accumulator reset to zero. Registration order is therefore priority order
// within a tick. There is no preemption between tasks, no catch-up after a
// slow tick, and no deadline enforcement.
package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/thermostat/internal/tick"
)

// ErrPeriod is returned by New when a task period is not a positive multiple
// of the base period.
var ErrPeriod = errors.New("sched: period must be a positive multiple of the base period")

// Task is one periodic behaviour.
type Task struct {
	Name   string
	Period time.Duration
	Run    func()
}

// Accumulator tracks time elapsed since a task last fired.
type Accumulator struct {
	Period  time.Duration
	Elapsed time.Duration
}

// Advance adds one base period.
func (a *Accumulator) Advance(d time.Duration) { a.Elapsed += d }

// Due reports whether the task should fire on this tick.
func (a *Accumulator) Due() bool { return a.Elapsed >= a.Period }

// Reset is called after the owning task fires.
func (a *Accumulator) Reset() { a.Elapsed = 0 }

type entry struct {
	task  Task
	acc   Accumulator
	fired uint64
}

// Scheduler owns the accumulators. It is not safe for concurrent use: Step
// and Run must be called from the one execution context that owns the
// task bodies' state.
type Scheduler struct {
	base    time.Duration
	entries []*entry
	ticks   uint64
}

// New creates a scheduler. Tasks fire in the order given. Every accumulator
// starts at its own period, so every task fires on the first tick.
func New(base time.Duration, tasks ...Task) (*Scheduler, error) {
	if base <= 0 {
		return nil, fmt.Errorf("%w: base %v", ErrPeriod, base)
	}
	s := &Scheduler{base: base}
	for _, t := range tasks {
		if t.Period <= 0 || t.Period%base != 0 {
			return nil, fmt.Errorf("%w: task %q period %v, base %v", ErrPeriod, t.Name, t.Period, base)
		}
		if t.Run == nil {
			return nil, fmt.Errorf("sched: task %q has no body", t.Name)
		}
		s.entries = append(s.entries, &entry{
			task: t,
			acc:  Accumulator{Period: t.Period, Elapsed: t.Period},
		})
	}
	return s, nil
}

// Base returns the base tick period.
func (s *Scheduler) Base() time.Duration {
	return s.base
}

// Step processes one tick: advance every accumulator, then fire due tasks
// in priority order. It returns the names of the tasks that fired.
func (s *Scheduler) Step() []string {
	s.ticks++
	for _, e := range s.entries {
		e.acc.Advance(s.base)
	}

	var fired []string
	for _, e := range s.entries {
		if !e.acc.Due() {
			continue
		}
		e.task.Run()
		e.acc.Reset()
		e.fired++
		fired = append(fired, e.task.Name)
	}
	return fired
}

// Run waits for each tick from src and steps the scheduler. Before every
// wait it consults until; a nil until runs forever. Run returns nil when
// until reports true, or the error from src (including ctx cancellation).
func (s *Scheduler) Run(ctx context.Context, src tick.Source, until func() bool) error {
	for {
		if until != nil && until() {
			return nil
		}
		if err := src.Await(ctx); err != nil {
			return err
		}
		s.Step()
	}
}

// Ticks returns the number of ticks processed.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}

// Fired returns how many times the named task has run.
func (s *Scheduler) Fired(name string) uint64 {
	for _, e := range s.entries {
		if e.task.Name == name {
			return e.fired
		}
	}
	return 0
}

// Accumulator returns a copy of the named task's accumulator.
func (s *Scheduler) Accumulator(name string) (Accumulator, bool) {
	for _, e := range s.entries {
		if e.task.Name == name {
			return e.acc, true
		}
	}
	return Accumulator{}, false
}

// AfterTicks returns an until predicate that stops the loop once the
// scheduler has processed n ticks.
func (s *Scheduler) AfterTicks(n uint64) func() bool {
	return func() bool { return s.ticks >= n }
}
