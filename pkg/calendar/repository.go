package calendar

import (
	"context"
	"errors"
)

var ErrEventNotFound = errors.New("event not found")

// Repository persists the slot board. Every method is atomic on its own; WithTransaction groups
// several calls so that either all of them become visible or none does.
type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	GetBoard(ctx context.Context) (Board, error)
	// GetEvent returns one record carrying eventId.
	GetEvent(ctx context.Context, eventId string) (Event, error)
	// GetEventAt returns the record at position index of the bucket stored under key.
	GetEventAt(ctx context.Context, key string, index int) (Event, error)
	// StoreEvents appends each event to the end of its bucket, in the given order.
	StoreEvents(ctx context.Context, events []SlotEvent) error
	// UpdateEvents applies update to every record carrying eventId and returns how many were changed.
	UpdateEvents(ctx context.Context, eventId string, update func(Event) Event) (int, error)
	UpdateEventAt(ctx context.Context, key string, index int, update func(Event) Event) error
	// DeleteEvents removes every record carrying eventId and returns how many were removed.
	DeleteEvents(ctx context.Context, eventId string) (int, error)
	DeleteEventAt(ctx context.Context, key string, index int) error
}
