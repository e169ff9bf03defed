package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidID          = errors.New("id must be a positive integer")
	ErrInvalidEntityKind  = errors.New("invalid entity kind: must be investor, project, or startup")
	ErrInvalidDecision    = errors.New("invalid moderation decision: must be approve or decline")
	ErrIndustryUnresolved = errors.New("project has no industry; set one before raising events")
	ErrProjectInactive    = errors.New("project is not active")
	ErrInvalidTicket      = errors.New("moderation link is invalid or expired")
	ErrQueueFull          = errors.New("dispatch buffer is full")
	ErrTaskNotReplayable  = errors.New("only dead-lettered tasks can be replayed")
	ErrLeaseLost          = errors.New("task lease lost to another worker")

	// ErrPermanent marks a failure that retrying cannot fix (bad address,
	// malformed payload). Tasks failing with it are dead-lettered at once.
	ErrPermanent = errors.New("permanent failure")
)

// Permanentf builds an error wrapping ErrPermanent.
func Permanentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermanent, fmt.Sprintf(format, args...))
}
