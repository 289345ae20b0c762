package store

import (
	"context"
	"errors"

	"github.com/jensholdgaard/auction-room/internal/roster"
)

// ErrEmptyCatalog is returned by CatalogRepository.Load when nothing has
// been saved yet.
var ErrEmptyCatalog = errors.New("catalog is empty")

// CatalogRepository persists the auction seed: the ordered player pool and
// the franchises.
type CatalogRepository interface {
	// Load returns the saved seed with players and teams in saved order.
	Load(ctx context.Context) (*roster.Seed, error)
	// Save replaces the stored catalog with seed.
	Save(ctx context.Context, seed *roster.Seed) error
}
