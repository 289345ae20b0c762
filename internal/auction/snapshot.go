package auction

import (
	"fmt"
	"slices"

	"github.com/jensholdgaard/auction-room/internal/ladder"
	"github.com/jensholdgaard/auction-room/internal/roster"
)

// Snapshot is a consistent, detached view of a room.
type Snapshot struct {
	SessionID    string         `json:"sessionId"`
	State        State          `json:"state"`
	CurrentIndex int            `json:"currentPlayerIndex"`
	Lots         int            `json:"lots"`
	Lot          *roster.Player `json:"lot,omitempty"`
	Previous     *roster.Player `json:"previousLot,omitempty"`
	CurrentBid   int            `json:"currentBid"`
	LeaderID     string         `json:"highestBidderId,omitempty"`
	NextBid      int            `json:"nextBid,omitempty"`
	BidHistory   []BidStep      `json:"bidHistory"`
	Sales        []SaleRecord   `json:"soldPlayers"`
	Revoked      []SaleRecord   `json:"revokedSales,omitempty"`
	Teams        []TeamState    `json:"teams"`
	Cause        Cause          `json:"finishCause,omitempty"`
	Version      int            `json:"version"`
}

// Finished reports whether the auction is over.
func (s Snapshot) Finished() bool { return s.Cause != CauseNone }

// Team returns the team with the given id from the snapshot.
func (s Snapshot) Team(id string) (TeamState, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return TeamState{}, false
}

// CanAfford reports whether teamID can place the next bid on the current lot.
func (s Snapshot) CanAfford(teamID string) (bool, error) {
	t, ok := s.Team(teamID)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownTeam, teamID)
	}
	if s.Lot == nil {
		return false, nil
	}
	return t.Budget >= s.NextBid, nil
}

// Snapshot returns the current state of the room.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	cause := r.causeLocked()

	s := Snapshot{
		SessionID:    r.id,
		CurrentIndex: r.cursor,
		Lots:         len(r.players),
		CurrentBid:   r.currentBid,
		LeaderID:     r.leaderID,
		BidHistory:   slices.Clone(r.history),
		Sales:        slices.Clone(r.sales),
		Revoked:      slices.Clone(r.revoked),
		Teams:        make([]TeamState, len(r.teams)),
		Cause:        cause,
		Version:      r.version,
	}
	for i, t := range r.teams {
		t.Players = slices.Clone(t.Players)
		s.Teams[i] = t
	}
	if r.cursor > 0 {
		prev := r.players[r.cursor-1]
		s.Previous = &prev
	}
	if r.cursor < len(r.players) {
		lot := r.players[r.cursor]
		s.Lot = &lot
		s.NextBid = ladder.NextBid(r.currentBid, lot.BasePrice)
	}

	switch {
	case !r.active:
		s.State = StateNotStarted
	case cause != CauseNone:
		s.State = StateFinished
	case r.currentBid > 0:
		s.State = StateLotContested
	default:
		s.State = StateLotOpen
	}
	return s
}

// Unsold returns the passed-over lots: behind the cursor with no active sale.
func (r *Room) Unsold() []roster.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsoldLocked()
}

// SaleFor returns the active sale of playerID, if any.
func (r *Room) SaleFor(playerID string) (SaleRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saleLocked(playerID)
}

func (r *Room) unsoldLocked() []roster.Player {
	var out []roster.Player
	for _, p := range r.players[:r.cursor] {
		if _, sold := r.saleLocked(p.ID); !sold {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) saleLocked(playerID string) (SaleRecord, bool) {
	for _, s := range r.sales {
		if s.Player.ID == playerID {
			return s, true
		}
	}
	return SaleRecord{}, false
}

// Tracker is the pool split into the three lists an operator browses.
type Tracker struct {
	Upcoming []roster.Player     `json:"upcoming"`
	Unsold   []roster.Player     `json:"unsold"`
	Sold     []SaleRecord        `json:"sold"`
	Sets     []roster.SetSummary `json:"sets"`
}

// Tracker returns the upcoming, unsold and sold lists narrowed by
// roster.Filter semantics. Sets always covers the whole pool.
func (r *Room) Tracker(query string, set *int) Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := Tracker{
		Upcoming: roster.Filter(r.players[r.cursor:], query, set),
		Unsold:   roster.Filter(r.unsoldLocked(), query, set),
		Sets:     roster.Sets(r.players),
	}
	for _, s := range r.sales {
		if len(roster.Filter([]roster.Player{s.Player}, query, set)) == 1 {
			t.Sold = append(t.Sold, s)
		}
	}
	return t
}
