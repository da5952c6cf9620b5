// Package trigger runs one step of a named cycle.
//
// [Trigger] ties the pieces together for a single invocation: it looks up
// the cycle, checks that every step resolves to a command, advances the
// cycle's persisted state and hands the selected step's commands to the
// executor in order.
//
// Every check that can fail because of configuration happens before the
// state is touched, so an unknown cycle or a broken template never consumes
// a step.
package trigger

import (
	"context"
	"fmt"

	"aioniser/internal/action"
	"aioniser/internal/cycle"
	"aioniser/internal/executor"
)

// CycleSource looks up cycles by name.
//
// The [config.Config] type implements this interface.
type CycleSource interface {
	Cycle(name string) (cycle.Cycle, error)
}

// StepAdvancer selects, and optionally persists, the next step of a cycle.
//
// The [stepper.Stepper] type implements this interface.
type StepAdvancer interface {
	Advance(c cycle.Cycle) (int, error)
	Peek(c cycle.Cycle) (int, error)
}

// StepCallback is invoked once the next step has been selected and
// persisted, before any of its commands run. step is zero-based.
type StepCallback func(cycleName string, step, stepCount int)

// ProgressCallback is invoked before each command of the selected step runs.
//
// index is 1-based within the step.
type ProgressCallback func(index, total int, command string)

// Result describes a completed trigger.
type Result struct {
	// Cycle is the name of the triggered cycle.
	Cycle string

	// Step is the zero-based index of the step that ran.
	Step int

	// StepCount is the number of steps in the cycle.
	StepCount int

	// Commands are the resolved commands of the step, in run order.
	Commands []string

	// DryRun reports that nothing was persisted or executed.
	DryRun bool
}

// Trigger runs single steps of cycles.
//
// Create with [New]. Use [Trigger.SetDryRun] to preview the next step
// without persisting state or running commands.
type Trigger struct {
	cycles   CycleSource
	stepper  StepAdvancer
	resolver *action.Resolver
	executor executor.Executor

	dryRun           bool
	stepCallback     StepCallback
	progressCallback ProgressCallback
}

// New creates a [Trigger] with the required dependencies.
func New(cycles CycleSource, stepper StepAdvancer, resolver *action.Resolver, exec executor.Executor) *Trigger {
	return &Trigger{
		cycles:   cycles,
		stepper:  stepper,
		resolver: resolver,
		executor: exec,
	}
}

// SetDryRun enables or disables dry-run mode.
func (t *Trigger) SetDryRun(dryRun bool) {
	t.dryRun = dryRun
}

// SetStepCallback configures an optional callback invoked after the step is
// selected and before its commands run.
func (t *Trigger) SetStepCallback(cb StepCallback) {
	t.stepCallback = cb
}

// SetProgressCallback configures an optional callback invoked before each
// command runs.
func (t *Trigger) SetProgressCallback(cb ProgressCallback) {
	t.progressCallback = cb
}

// Plan resolves the named cycle and returns the step that would run next,
// without changing any state.
func (t *Trigger) Plan(name string) (Result, error) {
	c, resolved, err := t.prepare(name)
	if err != nil {
		return Result{}, err
	}
	step, err := t.stepper.Peek(c)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Cycle:     c.Name,
		Step:      step,
		StepCount: c.Len(),
		Commands:  resolved[step],
		DryRun:    true,
	}, nil
}

// Run advances the named cycle by one step and executes that step.
//
// Errors from the cycle lookup, template resolution and the state store are
// returned unchanged (wrapped) so callers can match them with errors.As.
// Commands run in order; execution stops at the first command the executor
// cannot run.
func (t *Trigger) Run(ctx context.Context, name string) (Result, error) {
	if t.dryRun {
		return t.Plan(name)
	}

	c, resolved, err := t.prepare(name)
	if err != nil {
		return Result{}, err
	}

	step, err := t.stepper.Advance(c)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Cycle:     c.Name,
		Step:      step,
		StepCount: c.Len(),
		Commands:  resolved[step],
	}

	if t.stepCallback != nil {
		t.stepCallback(c.Name, step, c.Len())
	}

	for i, cmd := range result.Commands {
		if t.progressCallback != nil {
			t.progressCallback(i+1, len(result.Commands), cmd)
		}
		if err := t.executor.Execute(ctx, cmd); err != nil {
			return result, fmt.Errorf("cycle %q step %d: %w", c.Name, step, err)
		}
	}

	return result, nil
}

func (t *Trigger) prepare(name string) (cycle.Cycle, [][]string, error) {
	c, err := t.cycles.Cycle(name)
	if err != nil {
		return cycle.Cycle{}, nil, err
	}
	resolved, err := t.resolver.ResolveCycle(c)
	if err != nil {
		return cycle.Cycle{}, nil, err
	}
	return c, resolved, nil
}
