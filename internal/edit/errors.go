package edit

import (
	"errors"
	"fmt"
)

// Sentinel errors for the reconstruction failure taxonomy. Every typed error
// below unwraps to exactly one of these, so callers can use errors.Is.
var (
	ErrMatchNotFound     = errors.New("search block not found")
	ErrOutOfOrderMatch   = errors.New("search block matched before cursor")
	ErrMalformedBlock    = errors.New("malformed SEARCH/REPLACE block")
	ErrIncompleteStream  = errors.New("diff stream ended mid-block")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// MatchError reports a search block that no matching tier could locate.
type MatchError struct {
	Search string
	Cursor int
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("%v at or after offset %d\nsearch: %s",
		ErrMatchNotFound, e.Cursor, truncateForError(e.Search, 200))
}

func (e *MatchError) Unwrap() error { return ErrMatchNotFound }

// OrderError reports a match that starts before already-emitted output.
type OrderError struct {
	Search string
	Start  int
	Cursor int
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%v: match starts at %d, cursor is at %d (blocks must be in file order)\nsearch: %s",
		ErrOutOfOrderMatch, e.Start, e.Cursor, truncateForError(e.Search, 200))
}

func (e *OrderError) Unwrap() error { return ErrOutOfOrderMatch }

// MalformedBlockError reports a marker seen in the wrong state that could not
// be repaired from the buffered lines.
type MalformedBlockError struct {
	Expected Marker // marker that was needed but not found
	Got      Marker // marker that triggered recovery
	State    State
}

func (e *MalformedBlockError) Error() string {
	return fmt.Sprintf("%v: saw %q while %s, could not find a preceding %q",
		ErrMalformedBlock, e.Got.Canonical(), e.State, e.Expected.Canonical())
}

func (e *MalformedBlockError) Unwrap() error { return ErrMalformedBlock }

// IncompleteStreamError reports finalization while a block was still open.
type IncompleteStreamError struct {
	State State
}

func (e *IncompleteStreamError) Error() string {
	return fmt.Sprintf("%v (state: %s)", ErrIncompleteStream, e.State)
}

func (e *IncompleteStreamError) Unwrap() error { return ErrIncompleteStream }

// TransitionError reports a state change outside Idle→Searching→Replacing→Idle.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func truncateForError(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
