// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates the operation requires a loaded, signed-in session.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrEmptyUpdate indicates a profile patch with no fields set.
	ErrEmptyUpdate = errors.New("empty update")
)

// MainSwitchPhase names the remote write that failed during a main-location switch.
type MainSwitchPhase string

const (
	PhaseMarkTarget    MainSwitchPhase = "mark_target"
	PhaseUnmarkPrev    MainSwitchPhase = "unmark_previous"
	PhaseUpdatePointer MainSwitchPhase = "update_profile_pointer"
)

// MainSwitchError reports a partially applied main-location switch: some remote
// writes of the two-phase update succeeded and compensation could not fully
// restore the previous state. Callers should treat the remote state as suspect
// and reload.
type MainSwitchError struct {
	TargetID   int64
	PreviousID int64 // 0 when there was no previous main
	Phase      MainSwitchPhase
	Err        error
}

func (e *MainSwitchError) Error() string {
	return fmt.Sprintf("main location switch to %d partially applied (phase %s): %v",
		e.TargetID, e.Phase, e.Err)
}

func (e *MainSwitchError) Unwrap() error { return e.Err }
