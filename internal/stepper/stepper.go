// Package stepper decides which step of a cycle runs next.
//
// [ComputeNextStep] is the pure state machine: given a cycle, what is known
// about its previous trigger and the current instant, it returns the step
// index to run and the record to persist. The decision order is:
//
//  1. Never triggered: step 0.
//  2. Reset enabled and the previous trigger is older than the reset
//     timeout (strictly greater): step 0.
//  3. Otherwise: the step after the previous one, wrapping to 0 after the
//     last step.
//
// [Stepper] wraps the state machine with a [state.Store]: it loads the
// persisted mapping, computes the next step and saves the whole mapping
// before reporting the step to run.
package stepper

import (
	"fmt"
	"time"

	"aioniser/internal/cycle"
	"aioniser/internal/state"
)

// DefaultResetTimeout is how long after a trigger a resetting cycle keeps
// advancing instead of starting over.
const DefaultResetTimeout = 1000 * time.Millisecond

// Clock returns the current instant.
type Clock func() time.Time

// ComputeNextStep returns the index of the step to run and the record to
// persist for it.
//
// The timeout applies only when c.Reset is set; c.ResetTimeout, when non-zero,
// takes precedence over the timeout argument. now must be captured once by
// the caller and is stored as the new record's timestamp.
//
// The returned index always satisfies 0 <= index < c.Len(). c must have at
// least one step (see [cycle.Cycle.Validate]).
func ComputeNextStep(c cycle.Cycle, prior state.Prior, now time.Time, timeout time.Duration) (int, state.CycleState) {
	var next int

	switch p := prior.(type) {
	case state.PriorState:
		if c.Reset && now.Sub(p.LastSteppedAt) > effectiveTimeout(c, timeout) {
			next = 0
		} else {
			next = wrap(p.LastStep+1, c.Len())
		}
	case state.NoPriorState, nil:
		next = 0
	default:
		panic(fmt.Sprintf("stepper: unhandled prior state %T", prior))
	}

	return next, state.NewCycleState(next, now)
}

func effectiveTimeout(c cycle.Cycle, timeout time.Duration) time.Duration {
	if c.ResetTimeout > 0 {
		return c.ResetTimeout
	}
	return timeout
}

// wrap maps i into [0, n). A stale record from a cycle that has since
// shrunk, or a hand-edited negative index, still lands on a valid step.
func wrap(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}

// Stepper advances cycles against a persistent [state.Store].
//
// Create with [New]. The clock defaults to time.Now and the reset timeout to
// [DefaultResetTimeout]; override them with [Stepper.SetClock] and
// [Stepper.SetResetTimeout].
type Stepper struct {
	store        state.Store
	clock        Clock
	resetTimeout time.Duration
}

// New creates a [Stepper] backed by the given store.
func New(store state.Store) *Stepper {
	return &Stepper{
		store:        store,
		clock:        time.Now,
		resetTimeout: DefaultResetTimeout,
	}
}

// SetClock replaces the clock used to timestamp triggers.
func (s *Stepper) SetClock(clock Clock) {
	s.clock = clock
}

// SetResetTimeout sets the global reset timeout. Non-positive values restore
// [DefaultResetTimeout].
func (s *Stepper) SetResetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultResetTimeout
	}
	s.resetTimeout = d
}

// ResetTimeout returns the global reset timeout.
func (s *Stepper) ResetTimeout() time.Duration {
	return s.resetTimeout
}

// Advance selects the next step of c and persists it.
//
// The new record is saved, together with every other cycle's untouched
// record, before Advance returns. If loading or saving fails the error is
// returned and no step should be run.
func (s *Stepper) Advance(c cycle.Cycle) (int, error) {
	now := s.clock()

	states, err := s.store.Load()
	if err != nil {
		return 0, err
	}

	next, record := ComputeNextStep(c, state.Lookup(states, c.Name), now, s.resetTimeout)
	states[c.Name] = record

	if err := s.store.Save(states); err != nil {
		return 0, err
	}
	return next, nil
}

// Peek returns the step Advance would select without persisting anything.
func (s *Stepper) Peek(c cycle.Cycle) (int, error) {
	states, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	next, _ := ComputeNextStep(c, state.Lookup(states, c.Name), s.clock(), s.resetTimeout)
	return next, nil
}

// Forget removes the named cycle's record so its next trigger runs step 0.
//
// Returns false without writing if the cycle has no record.
func (s *Stepper) Forget(name string) (bool, error) {
	states, err := s.store.Load()
	if err != nil {
		return false, err
	}
	if _, ok := states[name]; !ok {
		return false, nil
	}
	delete(states, name)
	if err := s.store.Save(states); err != nil {
		return false, err
	}
	return true, nil
}

// States returns the persisted records of all cycles.
func (s *Stepper) States() (state.States, error) {
	return s.store.Load()
}
