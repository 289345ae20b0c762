// Package memory provides the in-process store.Driver. Nothing outlives the
// process; it is the default when no database is configured.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/jensholdgaard/auction-room/internal/clock"
	"github.com/jensholdgaard/auction-room/internal/config"
	"github.com/jensholdgaard/auction-room/internal/event"
	"github.com/jensholdgaard/auction-room/internal/roster"
	"github.com/jensholdgaard/auction-room/internal/store"
)

func init() {
	store.Register("memory", open)
}

func open(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	return &store.Repositories{
		Catalog: NewCatalog(),
		Events:  NewEventStore(clk),
		Ping:    func(context.Context) error { return nil },
	}, nil
}

// Catalog implements store.CatalogRepository in memory.
type Catalog struct {
	mu   sync.RWMutex
	seed *roster.Seed
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

func (c *Catalog) Load(_ context.Context) (*roster.Seed, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.seed == nil {
		return nil, store.ErrEmptyCatalog
	}
	return cloneSeed(c.seed), nil
}

func (c *Catalog) Save(_ context.Context, seed *roster.Seed) error {
	if seed == nil {
		return fmt.Errorf("saving catalog: nil seed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seed = cloneSeed(seed)
	return nil
}

func cloneSeed(s *roster.Seed) *roster.Seed {
	return &roster.Seed{
		Players: slices.Clone(s.Players),
		Teams:   slices.Clone(s.Teams),
	}
}

// EventStore implements event.Store in memory.
type EventStore struct {
	mu     sync.RWMutex
	clock  clock.Clock
	events []event.Event
	seen   map[string]map[int]struct{}
}

// NewEventStore returns an empty EventStore.
func NewEventStore(clk clock.Clock) *EventStore {
	return &EventStore{clock: clk, seen: make(map[string]map[int]struct{})}
}

func (s *EventStore) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]map[int]struct{})
	for _, e := range events {
		_, dup := s.seen[e.AggregateID][e.Version]
		_, dupInBatch := batch[e.AggregateID][e.Version]
		if dup || dupInBatch {
			return fmt.Errorf("inserting event (aggregate=%s, version=%d): duplicate version", e.AggregateID, e.Version)
		}
		if batch[e.AggregateID] == nil {
			batch[e.AggregateID] = make(map[int]struct{})
		}
		batch[e.AggregateID][e.Version] = struct{}{}
	}

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.clock.Now().UTC()
		}
		if s.seen[e.AggregateID] == nil {
			s.seen[e.AggregateID] = make(map[int]struct{})
		}
		s.seen[e.AggregateID][e.Version] = struct{}{}
		s.events = append(s.events, e)
	}
	return nil
}

func (s *EventStore) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.Event
	for _, e := range s.events {
		if e.AggregateID == aggregateID {
			result = append(result, e)
		}
	}
	slices.SortStableFunc(result, func(a, b event.Event) int { return a.Version - b.Version })
	return result, nil
}

func (s *EventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.Event
	for _, e := range s.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result, nil
}
