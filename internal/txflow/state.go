package txflow

import (
	"errors"
	"fmt"
)

// State is a lifecycle stage of one transaction flow.
type State string

const (
	StateIdle       State = "idle"
	StateBuilding   State = "building"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// Busy reports whether an operation is in flight.
func (s State) Busy() bool {
	return s == StateBuilding || s == StateSubmitting
}

// ErrIllegalState is matched by every IllegalStateError.
var ErrIllegalState = errors.New("operation not allowed in current state")

// IllegalStateError is returned when an operation is invoked from a state
// that does not permit it. Nothing is sent anywhere when it is returned.
type IllegalStateError struct {
	Op    string
	State State
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.State)
}

func (e *IllegalStateError) Unwrap() error { return ErrIllegalState }

// Scope names a family of cached data that a confirmed transaction makes stale.
type Scope string

const (
	ScopeBelts      Scope = "belts"
	ScopePromotions Scope = "promotions"
	ScopeProfiles   Scope = "profiles"
)
