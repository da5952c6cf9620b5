// Package cycle defines the in-memory model of a cycle.
//
// A [Cycle] is a named, ordered sequence of [Step] values. Each step is an
// ordered sequence of [Activity] values that run together when the step is
// triggered. The model carries no logic beyond structural access and
// validation; step selection lives in the stepper package.
//
// Key types:
//   - [Activity] - A single parameterized action (template name + kwargs)
//   - [Step] - Activities executed together as a unit
//   - [Cycle] - Named sequence of steps with an optional reset-on-timeout flag
package cycle

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for cycle validation.
var (
	// ErrEmptyCycle indicates a cycle was defined without any steps.
	ErrEmptyCycle = errors.New("cycle has no steps")

	// ErrEmptyStep indicates a step was defined without any activities.
	ErrEmptyStep = errors.New("step has no activities")

	// ErrMissingAction indicates an activity does not name an action.
	ErrMissingAction = errors.New("activity has no action")

	// ErrNegativeResetTimeout indicates a cycle's reset timeout is below zero.
	ErrNegativeResetTimeout = errors.New("reset timeout must not be negative")
)

// Activity is a single parameterized action.
//
// Action is a key into the configured action templates. Kwargs supplies the
// values substituted into the template's placeholders.
type Activity struct {
	// Action names the command template to run.
	Action string

	// Kwargs maps placeholder names to their values.
	Kwargs map[string]string
}

// Step is an ordered set of activities executed together.
type Step struct {
	Activities []Activity
}

// Len returns the number of activities in the step.
func (s Step) Len() int {
	return len(s.Activities)
}

// Cycle is a named sequence of steps advanced one step per trigger.
//
// Create cycles through the config package, which calls [Cycle.Validate]
// so that every cycle handed to the stepper has at least one step.
type Cycle struct {
	// Name identifies the cycle and matches the CLI argument.
	Name string

	// Reset restarts the cycle at step 0 when the previous trigger happened
	// longer ago than the reset timeout.
	Reset bool

	// ResetTimeout overrides the global reset timeout for this cycle.
	// Zero means use the global default.
	ResetTimeout time.Duration

	// Steps are the steps of the cycle in trigger order.
	Steps []Step
}

// Len returns the number of steps in the cycle.
func (c Cycle) Len() int {
	return len(c.Steps)
}

// Validate checks the structural invariants of the cycle.
//
// A valid cycle has at least one step, and every step has at least one
// activity naming an action.
func (c Cycle) Validate() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("cycle %q: %w", c.Name, ErrEmptyCycle)
	}
	for i, step := range c.Steps {
		if len(step.Activities) == 0 {
			return fmt.Errorf("cycle %q step %d: %w", c.Name, i, ErrEmptyStep)
		}
		for j, a := range step.Activities {
			if a.Action == "" {
				return fmt.Errorf("cycle %q step %d activity %d: %w", c.Name, i, j, ErrMissingAction)
			}
		}
	}
	if c.ResetTimeout < 0 {
		return fmt.Errorf("cycle %q: %s: %w", c.Name, c.ResetTimeout, ErrNegativeResetTimeout)
	}
	return nil
}
