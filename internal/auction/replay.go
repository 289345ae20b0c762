package auction

import (
	"encoding/json"
	"fmt"

	"github.com/jensholdgaard/auction-room/internal/clock"
	"github.com/jensholdgaard/auction-room/internal/event"
	"github.com/jensholdgaard/auction-room/internal/roster"
)

// Replay reconstructs a room by re-running its recorded commands against
// the same seed. The returned room has no pending events.
func Replay(id string, seed *roster.Seed, clk clock.Clock, events []event.Event) (*Room, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to replay")
	}

	r, err := New(id, seed, clk)
	if err != nil {
		return nil, err
	}

	for _, e := range events {
		if err := r.apply(e); err != nil {
			return nil, fmt.Errorf("replaying %s (version %d): %w", e.Type, e.Version, err)
		}
		r.mu.Lock()
		r.version = e.Version
		r.events = nil
		r.mu.Unlock()
	}
	return r, nil
}

func (r *Room) apply(e event.Event) error {
	switch e.Type {
	case event.RoomStarted:
		return r.Start()

	case event.RoomBidPlaced:
		var d event.BidPlacedData
		if err := json.Unmarshal(e.Data, &d); err != nil {
			return fmt.Errorf("unmarshalling bid event: %w", err)
		}
		if err := r.PlaceBid(d.TeamID); err != nil {
			return err
		}
		if s := r.Snapshot(); s.CurrentBid != d.Amount {
			return fmt.Errorf("bid amount %d diverges from recorded %d", s.CurrentBid, d.Amount)
		}
		return nil

	case event.RoomBidUndone:
		return r.UndoBid()

	case event.RoomLotSold:
		var d event.LotSoldData
		if err := json.Unmarshal(e.Data, &d); err != nil {
			return fmt.Errorf("unmarshalling sold event: %w", err)
		}
		s := r.Snapshot()
		if s.Lot == nil || s.Lot.ID != d.PlayerID || s.LeaderID != d.TeamID || s.CurrentBid != d.Price {
			return fmt.Errorf("sale of %s to %s at %d diverges from room state", d.PlayerID, d.TeamID, d.Price)
		}
		return r.MarkSold()

	case event.RoomLotUnsold:
		return r.MarkUnsold()

	case event.RoomLotPrevious:
		return r.GoToPrevious()

	case event.RoomLotRequeued:
		var d event.LotReopenedData
		if err := json.Unmarshal(e.Data, &d); err != nil {
			return fmt.Errorf("unmarshalling requeue event: %w", err)
		}
		return r.Requeue(d.PlayerID)
	}
	return fmt.Errorf("unknown event type %q", e.Type)
}
