package auction

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jensholdgaard/auction-room/internal/clock"
	"github.com/jensholdgaard/auction-room/internal/event"
	"github.com/jensholdgaard/auction-room/internal/ladder"
	"github.com/jensholdgaard/auction-room/internal/roster"
)

// State is the phase of the room as a whole.
type State string

const (
	StateNotStarted   State = "not_started"
	StateLotOpen      State = "lot_open"
	StateLotContested State = "lot_contested"
	StateFinished     State = "finished"
)

// BidStep is the standing bid as it was before a newer bid replaced it.
// An empty TeamID means no bid.
type BidStep struct {
	Amount int    `json:"amount"`
	TeamID string `json:"teamId,omitempty"`
}

// SaleRecord is a hammer result: team TeamID bought Player for Price.
type SaleRecord struct {
	Player roster.Player `json:"player"`
	TeamID string        `json:"teamId"`
	Price  int           `json:"price"`
}

// TeamState is a franchise during the auction. Budget is the remaining purse.
type TeamState struct {
	roster.Team
	InitialBudget int             `json:"initialBudget"`
	Players       []roster.Player `json:"players"`
}

// Room is the auction state machine for one session. Commands run one at a
// time; a rejected command leaves the room exactly as it was.
// It is safe for concurrent use.
type Room struct {
	mu sync.Mutex

	id    string
	clock clock.Clock

	players []roster.Player
	teams   []TeamState
	teamIdx map[string]int

	active     bool
	cursor     int
	currentBid int
	leaderID   string
	history    []BidStep
	sales      []SaleRecord
	revoked    []SaleRecord

	version int
	events  []event.Event
}

// New creates a not-yet-started room over a copy of seed.
func New(id string, seed *roster.Seed, clk clock.Clock) (*Room, error) {
	if err := seed.Validate(); err != nil {
		return nil, err
	}

	r := &Room{
		id:      id,
		clock:   clk,
		players: slices.Clone(seed.Players),
		teams:   make([]TeamState, len(seed.Teams)),
		teamIdx: make(map[string]int, len(seed.Teams)),
	}
	for i, t := range seed.Teams {
		r.teams[i] = TeamState{Team: t, InitialBudget: t.Budget}
		r.teamIdx[t.ID] = i
	}
	return r, nil
}

// ID returns the session id the room records its events under.
func (r *Room) ID() string { return r.id }

// Start opens the first lot. Starting an active room is a no-op.
func (r *Room) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return nil
	}
	r.active = true
	r.recordEvent(event.RoomStarted, event.RoomStartedData{
		Players: len(r.players),
		Teams:   len(r.teams),
	})
	return nil
}

// PlaceBid raises the standing bid on the current lot to the next ladder
// amount on behalf of teamID.
func (r *Room) PlaceBid(teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return ErrNotStarted
	}
	ti, ok := r.teamIdx[teamID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, teamID)
	}
	if r.causeLocked() != CauseNone {
		return ErrAuctionFinished
	}

	lot := r.players[r.cursor]
	next := ladder.NextBid(r.currentBid, lot.BasePrice)
	if r.teams[ti].Budget < next {
		return fmt.Errorf("%w: %s has %d, bid is %d", ErrInsufficientBudget, teamID, r.teams[ti].Budget, next)
	}

	r.history = append(r.history, BidStep{Amount: r.currentBid, TeamID: r.leaderID})
	r.currentBid = next
	r.leaderID = teamID

	r.recordEvent(event.RoomBidPlaced, event.BidPlacedData{
		PlayerID: lot.ID,
		TeamID:   teamID,
		Amount:   next,
	})
	return nil
}

// UndoBid restores the standing bid that the most recent bid replaced.
func (r *Room) UndoBid() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return ErrNotStarted
	}
	if len(r.history) == 0 {
		return ErrNothingToUndo
	}

	last := r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	r.currentBid = last.Amount
	r.leaderID = last.TeamID

	r.recordEvent(event.RoomBidUndone, event.BidUndoneData{
		PlayerID: r.players[r.cursor].ID,
		TeamID:   last.TeamID,
		Amount:   last.Amount,
	})
	return nil
}

// MarkSold awards the current lot to the leading bidder at the standing bid
// and advances to the next lot.
func (r *Room) MarkSold() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return ErrNotStarted
	}
	if r.causeLocked() != CauseNone {
		return ErrAuctionFinished
	}
	if r.leaderID == "" {
		return ErrNoLeadingBid
	}
	ti := r.teamIdx[r.leaderID]
	if r.teams[ti].Budget < r.currentBid {
		return fmt.Errorf("%w: %s has %d, price is %d", ErrInsufficientBudget, r.leaderID, r.teams[ti].Budget, r.currentBid)
	}

	lot := r.players[r.cursor]
	sale := SaleRecord{Player: lot, TeamID: r.leaderID, Price: r.currentBid}

	r.teams[ti].Budget -= sale.Price
	r.teams[ti].Players = append(r.teams[ti].Players, lot)
	r.sales = append(r.sales, sale)
	r.cursor++
	r.resetLotLocked()

	r.recordEvent(event.RoomLotSold, event.LotSoldData{
		PlayerID: lot.ID,
		TeamID:   sale.TeamID,
		Price:    sale.Price,
	})
	return nil
}

// MarkUnsold passes over the current lot. Only an open lot can go unsold.
func (r *Room) MarkUnsold() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return ErrNotStarted
	}
	if r.causeLocked() != CauseNone {
		return ErrAuctionFinished
	}
	if r.currentBid > 0 {
		return ErrLotContested
	}

	lot := r.players[r.cursor]
	r.cursor++
	r.resetLotLocked()

	r.recordEvent(event.RoomLotUnsold, event.LotUnsoldData{PlayerID: lot.ID})
	return nil
}

// GoToPrevious reopens the lot before the cursor. If that lot was sold the
// sale is revoked and the buyer refunded.
func (r *Room) GoToPrevious() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return ErrNotStarted
	}
	if r.cursor == 0 {
		return ErrAtFirstLot
	}

	r.cursor--
	lot := r.players[r.cursor]
	data := event.LotReopenedData{PlayerID: lot.ID}
	if sale, ok := r.revokeLocked(lot.ID); ok {
		data.RevokedTeamID = sale.TeamID
		data.Refund = sale.Price
	}
	r.resetLotLocked()

	r.recordEvent(event.RoomLotPrevious, data)
	return nil
}

// Requeue makes playerID the current lot again. The player is moved from
// its position in the order to the cursor; a player taken from behind the
// cursor leaves the previously current lot next in line. A prior sale of
// the player is revoked and the buyer refunded.
func (r *Room) Requeue(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return ErrNotStarted
	}
	idx := slices.IndexFunc(r.players, func(p roster.Player) bool { return p.ID == playerID })
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
	}

	data := event.LotReopenedData{PlayerID: playerID}
	if sale, ok := r.revokeLocked(playerID); ok {
		data.RevokedTeamID = sale.TeamID
		data.Refund = sale.Price
	}

	if idx != r.cursor {
		p := r.players[idx]
		r.players = slices.Delete(r.players, idx, idx+1)
		if idx < r.cursor {
			r.cursor--
		}
		r.players = slices.Insert(r.players, r.cursor, p)
	}
	r.resetLotLocked()

	r.recordEvent(event.RoomLotRequeued, data)
	return nil
}

// PendingEvents returns unpersisted events and clears the buffer.
func (r *Room) PendingEvents() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

// Version is the version of the last recorded event.
func (r *Room) Version() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// clone returns an independent copy of the room, pending events included.
func (r *Room) clone() *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Room{
		id:         r.id,
		clock:      r.clock,
		players:    slices.Clone(r.players),
		teams:      slices.Clone(r.teams),
		teamIdx:    maps.Clone(r.teamIdx),
		active:     r.active,
		cursor:     r.cursor,
		currentBid: r.currentBid,
		leaderID:   r.leaderID,
		history:    slices.Clone(r.history),
		sales:      slices.Clone(r.sales),
		revoked:    slices.Clone(r.revoked),
		version:    r.version,
		events:     slices.Clone(r.events),
	}
	for i := range c.teams {
		c.teams[i].Players = slices.Clone(c.teams[i].Players)
	}
	return c
}

// revokeLocked removes the active sale of playerID, refunds the buyer and
// drops the player from the buyer's squad.
func (r *Room) revokeLocked(playerID string) (SaleRecord, bool) {
	si := slices.IndexFunc(r.sales, func(s SaleRecord) bool { return s.Player.ID == playerID })
	if si < 0 {
		return SaleRecord{}, false
	}
	sale := r.sales[si]
	r.sales = slices.Delete(r.sales, si, si+1)
	r.revoked = append(r.revoked, sale)

	team := &r.teams[r.teamIdx[sale.TeamID]]
	team.Budget += sale.Price
	team.Players = slices.DeleteFunc(team.Players, func(p roster.Player) bool { return p.ID == playerID })
	return sale, true
}

func (r *Room) resetLotLocked() {
	r.currentBid = 0
	r.leaderID = ""
	r.history = nil
}

func (r *Room) causeLocked() Cause {
	budgets := make([]int, len(r.teams))
	for i, t := range r.teams {
		budgets[i] = t.Budget
	}
	return Finished(r.cursor, len(r.players), budgets)
}

func (r *Room) recordEvent(t event.Type, payload any) {
	data, _ := json.Marshal(payload)
	r.version++
	r.events = append(r.events, event.Event{
		AggregateID: r.id,
		Type:        t,
		Data:        data,
		Version:     r.version,
		CreatedAt:   r.clock.Now().UTC(),
	})
}
