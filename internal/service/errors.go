package service

import (
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/seat-inventory/internal/model"
)

// Sentinel errors.  Handlers map them to HTTP statuses; see handler.writeError.
var (
    ErrNotFound          = errors.New("not found")
    ErrForbidden         = errors.New("forbidden")
    ErrInvalidInput      = errors.New("invalid input")
    ErrSeatUnavailable   = errors.New("seat unavailable")
    ErrWindowClosed      = errors.New("booking window closed")
    ErrInconsistentState = errors.New("inconsistent inventory state")
    ErrInvalidTransition = model.ErrInvalidTransition
)

// NotFoundError names the missing entity.  errors.Is(err, ErrNotFound)
// holds for it.
type NotFoundError struct {
    Entity string
    ID     any
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %v not found", e.Entity, e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(entity string, id any) error { return &NotFoundError{Entity: entity, ID: id} }

// ConflictError reports seats that are held or booked by someone else.
// Alternatives lists free seats of the same schedule so the client can
// retry with another selection.
type ConflictError struct {
    SeatIDs      []uint64
    Labels       []string
    Alternatives []model.Seat
}

func (e *ConflictError) Error() string {
    if len(e.Labels) > 0 {
        return fmt.Sprintf("seats no longer available: %v", e.Labels)
    }
    return fmt.Sprintf("seats no longer available: %v", e.SeatIDs)
}

func (e *ConflictError) Is(target error) bool { return target == ErrSeatUnavailable }

// WindowClosedError is returned when a booking or cancellation arrives after
// the cutoff of its schedule.
type WindowClosedError struct {
    MinutesLate int
    Rule        string
    StartsAt    time.Time
    Cutoff      time.Time
}

func (e *WindowClosedError) Error() string {
    return fmt.Sprintf("booking window closed %d minute(s) ago: %s", e.MinutesLate, e.Rule)
}

func (e *WindowClosedError) Is(target error) bool { return target == ErrWindowClosed }

func invalid(format string, args ...any) error {
    return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
