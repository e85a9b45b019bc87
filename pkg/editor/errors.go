package editor

import (
	"errors"
	"fmt"
)

// Error conditions surfaced by the editor core. Commands compare with
// errors.Is and translate to user-facing text; none of these ever
// leaves session state mutated.
var (
	ErrInvalidRange     = errors.New("invalid range")
	ErrRangeNotFound    = fmt.Errorf("range not found: %w", ErrInvalidRange)
	ErrNothingLoaded    = errors.New("no verb loaded")
	ErrPendingSession   = errors.New("verb already loaded; compile or abort it first")
	ErrNoSuchVerb       = errors.New("no such verb")
	ErrNoVerbWithSig    = errors.New("no verb with that name and signature")
	ErrPermissionDenied = errors.New("permission denied")
)

// ParseError reports reference text that could not be understood,
// carrying the exact residue for the user.
type ParseError struct {
	Residue string
}

func (e *ParseError) Error() string {
	if e.Residue == "" {
		return "could not parse verb reference"
	}
	return "could not parse verb reference: " + e.Residue
}
