package auction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auction-room/internal/clock"
	"github.com/jensholdgaard/auction-room/internal/event"
	"github.com/jensholdgaard/auction-room/internal/roster"
)

const instrumentationName = "github.com/jensholdgaard/auction-room/internal/auction"

// Manager runs one auction session: it serialises commands against the
// room, journals their events and reports telemetry.
type Manager struct {
	mu        sync.Mutex
	room      *Room
	seed      *roster.Seed
	sessionID string

	events event.Store
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock

	bids      metric.Int64Counter
	sales     metric.Int64Counter
	saleValue metric.Int64Counter
	unsold    metric.Int64Counter
	undos     metric.Int64Counter
	revokes   metric.Int64Counter
}

// NewManager creates a Manager for session sessionID over seed.
func NewManager(sessionID string, seed *roster.Seed, events event.Store, logger *slog.Logger, tp trace.TracerProvider, mp metric.MeterProvider, clk clock.Clock) (*Manager, error) {
	room, err := New(sessionID, seed, clk)
	if err != nil {
		return nil, fmt.Errorf("creating room: %w", err)
	}

	m := &Manager{
		room:      room,
		seed:      seed,
		sessionID: sessionID,
		events:    events,
		logger:    logger,
		tracer:    tp.Tracer(instrumentationName),
		clock:     clk,
	}

	meter := mp.Meter(instrumentationName)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.bids, "auction.bids", "Bids accepted", "{bid}"},
		{&m.sales, "auction.sales", "Lots sold", "{lot}"},
		{&m.saleValue, "auction.sale_value", "Total hammer price", "[lakh]"},
		{&m.unsold, "auction.unsold", "Lots passed over", "{lot}"},
		{&m.undos, "auction.undos", "Bids undone", "{bid}"},
		{&m.revokes, "auction.revocations", "Sales revoked by reopening a lot", "{sale}"},
	}
	for _, c := range counters {
		ctr, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
		*c.dst = ctr
	}
	return m, nil
}

// SessionID returns the id the session is journaled under.
func (m *Manager) SessionID() string { return m.sessionID }

// Seed returns the roster the session was created from.
func (m *Manager) Seed() *roster.Seed { return m.seed }

// Room exposes the underlying room for read-only views.
func (m *Manager) Room() *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room
}

// Snapshot returns the current room state.
func (m *Manager) Snapshot() Snapshot {
	return m.Room().Snapshot()
}

// Start opens the auction.
func (m *Manager) Start(ctx context.Context) (Snapshot, error) {
	return m.run(ctx, "Manager.Start", nil, (*Room).Start)
}

// PlaceBid bids the next ladder amount on the current lot for teamID.
func (m *Manager) PlaceBid(ctx context.Context, teamID string) (Snapshot, error) {
	return m.run(ctx, "Manager.PlaceBid",
		[]attribute.KeyValue{attribute.String("team.id", teamID)},
		func(r *Room) error { return r.PlaceBid(teamID) },
	)
}

// UndoBid reverts the most recent bid on the current lot.
func (m *Manager) UndoBid(ctx context.Context) (Snapshot, error) {
	return m.run(ctx, "Manager.UndoBid", nil, (*Room).UndoBid)
}

// MarkSold hammers the current lot to the leading bidder.
func (m *Manager) MarkSold(ctx context.Context) (Snapshot, error) {
	return m.run(ctx, "Manager.MarkSold", nil, (*Room).MarkSold)
}

// MarkUnsold passes over the current lot.
func (m *Manager) MarkUnsold(ctx context.Context) (Snapshot, error) {
	return m.run(ctx, "Manager.MarkUnsold", nil, (*Room).MarkUnsold)
}

// GoToPrevious reopens the previous lot.
func (m *Manager) GoToPrevious(ctx context.Context) (Snapshot, error) {
	return m.run(ctx, "Manager.GoToPrevious", nil, (*Room).GoToPrevious)
}

// Requeue brings playerID back as the current lot.
func (m *Manager) Requeue(ctx context.Context, playerID string) (Snapshot, error) {
	return m.run(ctx, "Manager.Requeue",
		[]attribute.KeyValue{attribute.String("player.id", playerID)},
		func(r *Room) error { return r.Requeue(playerID) },
	)
}

// Recover rebuilds the session from its journal. It returns the number of
// events replayed; zero means the journal was empty and the room is fresh.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Recover",
		trace.WithAttributes(attribute.String("session.id", m.SessionID())),
	)
	defer span.End()

	events, err := m.events.Load(ctx, m.SessionID())
	if err != nil {
		return 0, fmt.Errorf("loading session events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	room, err := Replay(m.SessionID(), m.seed, m.clock, events)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("replaying session: %w", err)
	}

	m.mu.Lock()
	m.room = room
	m.mu.Unlock()

	s := room.Snapshot()
	m.logger.InfoContext(ctx, "auction session recovered",
		slog.String("session_id", m.SessionID()),
		slog.Int("events", len(events)),
		slog.Int("cursor", s.CurrentIndex),
		slog.Int("sold", len(s.Sales)),
	)
	return len(events), nil
}

// run executes one command with the manager lock held so that journal
// order matches command order. The command runs against a copy of the room
// that replaces it only once its events are journaled.
func (m *Manager) run(ctx context.Context, name string, attrs []attribute.KeyValue, cmd func(*Room) error) (Snapshot, error) {
	attrs = append(attrs, attribute.String("session.id", m.SessionID()))
	ctx, span := m.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.room.clone()
	if err := cmd(staged); err != nil {
		span.RecordError(err)
		m.logger.DebugContext(ctx, "command rejected",
			slog.String("command", name),
			slog.Any("error", err),
		)
		return m.room.Snapshot(), err
	}

	pending := staged.PendingEvents()
	if len(pending) > 0 {
		if err := m.events.Append(ctx, pending...); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			m.logger.ErrorContext(ctx, "failed to persist room events",
				slog.String("command", name),
				slog.Int("events", len(pending)),
				slog.Any("error", err),
			)
			return m.room.Snapshot(), fmt.Errorf("%w: %w", ErrNotPersisted, err)
		}
	}

	m.room = staged
	m.observe(ctx, pending)
	return staged.Snapshot(), nil
}

// observe logs and counts the effects carried by freshly recorded events.
func (m *Manager) observe(ctx context.Context, events []event.Event) {
	session := attribute.String("session.id", m.SessionID())
	for _, e := range events {
		switch e.Type {
		case event.RoomStarted:
			m.logger.InfoContext(ctx, "auction started", slog.String("session_id", e.AggregateID))

		case event.RoomBidPlaced:
			var d event.BidPlacedData
			_ = json.Unmarshal(e.Data, &d)
			m.bids.Add(ctx, 1, metric.WithAttributes(session, attribute.String("team.id", d.TeamID)))
			m.logger.InfoContext(ctx, "bid placed",
				slog.String("player_id", d.PlayerID),
				slog.String("team_id", d.TeamID),
				slog.Int("amount", d.Amount),
			)

		case event.RoomBidUndone:
			var d event.BidUndoneData
			_ = json.Unmarshal(e.Data, &d)
			m.undos.Add(ctx, 1, metric.WithAttributes(session))
			m.logger.InfoContext(ctx, "bid undone",
				slog.String("player_id", d.PlayerID),
				slog.Int("restored_amount", d.Amount),
			)

		case event.RoomLotSold:
			var d event.LotSoldData
			_ = json.Unmarshal(e.Data, &d)
			teamAttr := metric.WithAttributes(session, attribute.String("team.id", d.TeamID))
			m.sales.Add(ctx, 1, teamAttr)
			m.saleValue.Add(ctx, int64(d.Price), teamAttr)
			m.logger.InfoContext(ctx, "lot sold",
				slog.String("player_id", d.PlayerID),
				slog.String("team_id", d.TeamID),
				slog.Int("price", d.Price),
			)

		case event.RoomLotUnsold:
			var d event.LotUnsoldData
			_ = json.Unmarshal(e.Data, &d)
			m.unsold.Add(ctx, 1, metric.WithAttributes(session))
			m.logger.InfoContext(ctx, "lot unsold", slog.String("player_id", d.PlayerID))

		case event.RoomLotPrevious, event.RoomLotRequeued:
			var d event.LotReopenedData
			_ = json.Unmarshal(e.Data, &d)
			if d.RevokedTeamID != "" {
				m.revokes.Add(ctx, 1, metric.WithAttributes(session, attribute.String("team.id", d.RevokedTeamID)))
			}
			m.logger.InfoContext(ctx, "lot reopened",
				slog.String("event", string(e.Type)),
				slog.String("player_id", d.PlayerID),
				slog.String("revoked_team_id", d.RevokedTeamID),
				slog.Int("refund", d.Refund),
			)
		}
	}
}
