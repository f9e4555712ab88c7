package store

import (
	"context"

	"github.com/splee/ribbit/internal/event"
)

// EventFilter narrows ListEvents results. Zero values mean "any".
type EventFilter struct {
	Type  string
	Owner string
	Limit int
}

// Store is the persistence contract the pipeline and the export
// command consume.
type Store interface {
	// SaveEvents persists the events parsed from one message.
	SaveEvents(ctx context.Context, messageID string, events []event.Destruction) error

	// ListEvents returns stored events matching the filter, oldest first.
	ListEvents(ctx context.Context, filter EventFilter) ([]event.Destruction, error)

	// IsProcessed reports whether a Message-ID was handled before.
	IsProcessed(ctx context.Context, messageID string) (bool, error)

	// MarkProcessed records a Message-ID as handled.
	MarkProcessed(ctx context.Context, messageID string) error

	// Close releases the underlying database.
	Close() error
}
