package flow

import (
	"log"
	"time"

	"github.com/pkg/errors"
)

// Task is one unit of work in a Flow. Retries and RetryDelay are
// declarative: when Run fails, the runner re-invokes it from scratch after
// the fixed delay, up to Retries additional attempts. Tasks are not assumed
// to be idempotent, so a retried task may duplicate side effects.
type Task struct {
	Name       string
	Tags       []string
	Retries    int
	RetryDelay time.Duration
	Run        func() error
}

// Flow runs tasks strictly sequentially in the order they were added. A
// task only starts after its predecessor completed; when a task exhausts
// its attempts the flow aborts and the error propagates unmodified.
type Flow struct {
	Name        string
	Description string

	tasks []Task
}

// New creates an empty flow.
func New(name, description string) *Flow {
	return &Flow{Name: name, Description: description}
}

// Add appends a task to the flow.
func (f *Flow) Add(t Task) {
	f.tasks = append(f.tasks, t)
}

// Validate checks that the flow is correct.
func (f *Flow) Validate() error {
	if len(f.Name) == 0 {
		return errors.Errorf("flow name cannot be empty")
	}

	names := make(map[string]struct{})
	for i, t := range f.tasks {
		if len(t.Name) == 0 {
			return errors.Errorf("task %d has no name", i)
		}
		if t.Run == nil {
			return errors.Errorf("task %s has no run function", t.Name)
		}
		if _, found := names[t.Name]; found {
			return errors.Errorf("duplicate name for task: %s", t.Name)
		}
		names[t.Name] = struct{}{}
	}
	return nil
}

// Run validates the flow and executes its tasks in order.
func (f *Flow) Run() error {
	if err := f.Validate(); err != nil {
		return err
	}

	log.Printf("Starting flow %s", f.Name)
	for _, t := range f.tasks {
		if err := f.runTask(t); err != nil {
			return errors.Wrapf(err, "task %s failed", t.Name)
		}
		log.Printf("Task %s completed.", t.Name)
	}
	return nil
}

func (f *Flow) runTask(t Task) error {
	var err error
	for attempt := 0; attempt <= t.Retries; attempt++ {
		if attempt > 0 {
			log.Printf("Task %s failed (%v), retrying in %v (retry %d of %d)",
				t.Name, err, t.RetryDelay, attempt, t.Retries)
			time.Sleep(t.RetryDelay)
		}
		if err = t.Run(); err == nil {
			return nil
		}
	}
	return err
}
