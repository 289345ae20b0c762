package event

import "context"

// Store is the append-only journal of room events.
type Store interface {
	// Append persists one or more events atomically. A duplicate
	// (aggregate id, version) pair fails the whole batch.
	Append(ctx context.Context, events ...Event) error
	// Load returns all events for an aggregate, ordered by version.
	Load(ctx context.Context, aggregateID string) ([]Event, error)
	// LoadByType returns events filtered by type.
	LoadByType(ctx context.Context, eventType Type) ([]Event, error)
}
