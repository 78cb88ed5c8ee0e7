// Package scheduler runs cooperative tasks round-robin on one goroutine.
//
// A task step always runs to completion before the next task starts, so
// state shared between tasks needs no locking as long as it is only touched
// inside steps.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StepFunc runs one iteration of a task. It reports whether it did any work.
type StepFunc func(ctx context.Context) (bool, error)

type task struct {
	name   string
	step   StepFunc
	errors uint64
}

// Scheduler interleaves tasks. It is not safe to add tasks while running.
type Scheduler struct {
	tasks []*task
	idle  time.Duration
}

// New creates a scheduler that sleeps for idle after a round in which no
// task made progress.
func New(idle time.Duration) *Scheduler {
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}
	return &Scheduler{idle: idle}
}

// Add registers a task. Tasks run in the order they were added.
func (s *Scheduler) Add(name string, step StepFunc) {
	s.tasks = append(s.tasks, &task{name: name, step: step})
}

// Run loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Debug().Int("tasks", len(s.tasks)).Dur("idle", s.idle).Msg("Scheduler started")
	defer log.Debug().Msg("Scheduler stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.round(ctx) {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.idle):
		}
	}
}

// RunRounds runs n rounds without idling between them.
func (s *Scheduler) RunRounds(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.round(ctx)
	}
	return nil
}

func (s *Scheduler) round(ctx context.Context) bool {
	progress := false
	for _, t := range s.tasks {
		did, err := t.step(ctx)
		if err != nil {
			t.errors++
			log.Warn().Err(err).Str("task", t.name).Uint64("errors", t.errors).Msg("Task step failed")
		}
		progress = progress || did
	}
	return progress
}

// Errors returns the number of failed steps of the named task.
func (s *Scheduler) Errors(name string) uint64 {
	for _, t := range s.tasks {
		if t.name == name {
			return t.errors
		}
	}
	return 0
}
