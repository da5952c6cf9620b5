// Package state persists the last step run for each cycle.
//
// The persisted record for one cycle is a [CycleState]: the index of the last
// step run and the instant it ran. All records live together in a [States]
// mapping that a [Store] loads and saves as a whole; saving never writes a
// partial mapping.
//
// Lookups go through [Lookup], which returns a [Prior] sum type so callers
// branch explicitly on [NoPriorState] versus [PriorState] instead of relying
// on missing map keys.
//
// Key types:
//   - [Store] - Load/save contract, implemented by [FileStore] and [MemoryStore]
//   - [CycleState] - The persisted record for one cycle
//   - [CorruptStateError] - State file exists but cannot be parsed
//   - [PersistenceError] - State file cannot be written
package state

import (
	"fmt"
	"time"
)

// TimestampLayout is the on-disk format of [CycleState.LastStepped]:
// ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000-07:00"

// CycleState is the persisted record for a single cycle.
type CycleState struct {
	// LastStep is the index of the step that ran most recently.
	LastStep int

	// LastStepped is when LastStep ran, in UTC with millisecond precision.
	LastStepped time.Time
}

// NewCycleState returns a record for step run at the given instant.
// The instant is normalized to UTC and truncated to milliseconds, which is
// the precision the state file keeps.
func NewCycleState(step int, at time.Time) CycleState {
	return CycleState{
		LastStep:    step,
		LastStepped: at.UTC().Truncate(time.Millisecond),
	}
}

// Equal reports whether two records hold the same step and instant.
func (s CycleState) Equal(other CycleState) bool {
	return s.LastStep == other.LastStep && s.LastStepped.Equal(other.LastStepped)
}

// States maps cycle names to their persisted records.
type States map[string]CycleState

// Clone returns a copy of the mapping.
func (s States) Clone() States {
	out := make(States, len(s))
	for name, cs := range s {
		out[name] = cs
	}
	return out
}

// Prior is what is known about a cycle before it is triggered.
// It is either [NoPriorState] or [PriorState].
type Prior interface {
	isPrior()
}

// NoPriorState means the cycle has never been triggered.
type NoPriorState struct{}

// PriorState holds the record of the cycle's previous trigger.
type PriorState struct {
	LastStep      int
	LastSteppedAt time.Time
}

func (NoPriorState) isPrior() {}
func (PriorState) isPrior()   {}

// Lookup returns the [Prior] for the named cycle.
func Lookup(s States, name string) Prior {
	cs, ok := s[name]
	if !ok {
		return NoPriorState{}
	}
	return PriorState{LastStep: cs.LastStep, LastSteppedAt: cs.LastStepped}
}

// CorruptStateError indicates the state file exists but is not valid
// structured data.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt state file %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// PersistenceError indicates the state file could not be read or written
// for reasons other than corruption (permissions, disk full).
type PersistenceError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s state file %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
