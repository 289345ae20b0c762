package auction

import (
	"slices"

	"github.com/jensholdgaard/auction-room/internal/roster"
)

// Order returns the full lot order as it currently stands.
func (r *Room) Order() []roster.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.players)
}
