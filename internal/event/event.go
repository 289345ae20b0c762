package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	RoomStarted     Type = "room.started"
	RoomBidPlaced   Type = "room.bid_placed"
	RoomBidUndone   Type = "room.bid_undone"
	RoomLotSold     Type = "room.lot_sold"
	RoomLotUnsold   Type = "room.lot_unsold"
	RoomLotPrevious Type = "room.lot_previous"
	RoomLotRequeued Type = "room.lot_requeued"
)

// Event represents a single domain event.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// RoomStartedData is the payload for RoomStarted events.
type RoomStartedData struct {
	Players int `json:"players"`
	Teams   int `json:"teams"`
}

// BidPlacedData is the payload for RoomBidPlaced events.
type BidPlacedData struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Amount   int    `json:"amount"`
}

// BidUndoneData is the payload for RoomBidUndone events. Amount and TeamID
// describe the restored standing bid.
type BidUndoneData struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id,omitempty"`
	Amount   int    `json:"amount"`
}

// LotSoldData is the payload for RoomLotSold events.
type LotSoldData struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Price    int    `json:"price"`
}

// LotUnsoldData is the payload for RoomLotUnsold events.
type LotUnsoldData struct {
	PlayerID string `json:"player_id"`
}

// LotReopenedData is the payload for RoomLotPrevious and RoomLotRequeued
// events. RevokedTeamID is set when reopening refunded a sale.
type LotReopenedData struct {
	PlayerID      string `json:"player_id"`
	RevokedTeamID string `json:"revoked_team_id,omitempty"`
	Refund        int    `json:"refund,omitempty"`
}
