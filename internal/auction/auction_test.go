package auction_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jensholdgaard/auction-room/internal/auction"
	"github.com/jensholdgaard/auction-room/internal/clock"
	"github.com/jensholdgaard/auction-room/internal/roster"
)

var testClk = clock.Mock{T: time.Date(2025, 3, 22, 15, 30, 0, 0, time.UTC)}

// twoLotSeed is the P1/P2 versus A/B scenario used throughout.
func twoLotSeed() *roster.Seed {
	return &roster.Seed{
		Players: []roster.Player{
			{ID: "p1", Name: "Player One", Role: roster.RoleBatsman, BasePrice: 20, Set: 1},
			{ID: "p2", Name: "Player Two", Role: roster.RoleBowler, BasePrice: 30, Set: 1},
		},
		Teams: []roster.Team{
			{ID: "A", Name: "Team A", Budget: 100},
			{ID: "B", Name: "Team B", Budget: 100},
		},
	}
}

func fourLotSeed() *roster.Seed {
	s := twoLotSeed()
	s.Players = append(s.Players,
		roster.Player{ID: "p3", Name: "Player Three", BasePrice: 20, Set: 2},
		roster.Player{ID: "p4", Name: "Player Four", BasePrice: 20, Set: 2},
	)
	return s
}

func newStartedRoom(t *testing.T, seed *roster.Seed) *auction.Room {
	t.Helper()
	r, err := auction.New("test-session", seed, testClk)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return r
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func lotIDs(players []roster.Player) []string {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestNew_InvalidSeed(t *testing.T) {
	_, err := auction.New("s", &roster.Seed{}, testClk)
	if !errors.Is(err, roster.ErrInvalidSeed) {
		t.Errorf("New() error = %v, want ErrInvalidSeed", err)
	}
}

func TestNew_DoesNotMutateSeed(t *testing.T) {
	seed := twoLotSeed()
	r := newStartedRoom(t, seed)
	must(t, r.PlaceBid("A"))
	must(t, r.MarkSold())

	if seed.Teams[0].Budget != 100 {
		t.Errorf("seed budget = %d, want 100", seed.Teams[0].Budget)
	}
}

func TestStart(t *testing.T) {
	r, err := auction.New("s", twoLotSeed(), testClk)
	must(t, err)

	if s := r.Snapshot(); s.State != auction.StateNotStarted {
		t.Fatalf("state = %q, want %q", s.State, auction.StateNotStarted)
	}
	if err := r.PlaceBid("A"); !errors.Is(err, auction.ErrNotStarted) {
		t.Errorf("PlaceBid before start error = %v, want ErrNotStarted", err)
	}

	must(t, r.Start())
	must(t, r.Start())

	s := r.Snapshot()
	if s.State != auction.StateLotOpen {
		t.Errorf("state = %q, want %q", s.State, auction.StateLotOpen)
	}
	if s.Lot == nil || s.Lot.ID != "p1" {
		t.Errorf("lot = %+v, want p1", s.Lot)
	}
	if got := len(r.PendingEvents()); got != 1 {
		t.Errorf("pending events = %d, want 1 (second Start is a no-op)", got)
	}
}

func TestEndToEnd(t *testing.T) {
	r := newStartedRoom(t, twoLotSeed())

	must(t, r.PlaceBid("A"))
	s := r.Snapshot()
	if s.CurrentBid != 20 || s.LeaderID != "A" {
		t.Fatalf("after A: bid=%d leader=%q, want 20/A", s.CurrentBid, s.LeaderID)
	}
	if s.State != auction.StateLotContested {
		t.Errorf("state = %q, want %q", s.State, auction.StateLotContested)
	}

	must(t, r.PlaceBid("B"))
	s = r.Snapshot()
	if s.CurrentBid != 30 || s.LeaderID != "B" {
		t.Fatalf("after B: bid=%d leader=%q, want 30/B", s.CurrentBid, s.LeaderID)
	}

	must(t, r.MarkSold())
	s = r.Snapshot()
	b, _ := s.Team("B")
	if b.Budget != 70 {
		t.Errorf("B budget = %d, want 70", b.Budget)
	}
	if diff := cmp.Diff([]string{"p1"}, lotIDs(b.Players)); diff != "" {
		t.Errorf("B players mismatch (-want +got):\n%s", diff)
	}
	wantLedger := []auction.SaleRecord{{Player: twoLotSeed().Players[0], TeamID: "B", Price: 30}}
	if diff := cmp.Diff(wantLedger, s.Sales); diff != "" {
		t.Errorf("ledger mismatch (-want +got):\n%s", diff)
	}
	if s.CurrentIndex != 1 || s.CurrentBid != 0 || s.LeaderID != "" || len(s.BidHistory) != 0 {
		t.Errorf("after sale: cursor=%d bid=%d leader=%q history=%d", s.CurrentIndex, s.CurrentBid, s.LeaderID, len(s.BidHistory))
	}

	must(t, r.MarkUnsold())
	s = r.Snapshot()
	if s.CurrentIndex != 2 {
		t.Errorf("cursor = %d, want 2", s.CurrentIndex)
	}
	if len(s.Sales) != 1 {
		t.Errorf("ledger length = %d, want 1", len(s.Sales))
	}
	if !s.Finished() || s.Cause != auction.CauseRosterExhausted {
		t.Errorf("finished = %v cause = %q, want roster exhausted", s.Finished(), s.Cause)
	}
	if s.State != auction.StateFinished || s.Lot != nil {
		t.Errorf("state = %q lot = %+v, want finished with no lot", s.State, s.Lot)
	}
	if diff := cmp.Diff([]string{"p2"}, lotIDs(r.Unsold())); diff != "" {
		t.Errorf("unsold mismatch (-want +got):\n%s", diff)
	}
}

func TestFinished_AllTeamsBankruptAtStart(t *testing.T) {
	seed := twoLotSeed()
	seed.Teams[0].Budget = 25
	seed.Teams[1].Budget = 25
	r := newStartedRoom(t, seed)

	s := r.Snapshot()
	if !s.Finished() || s.Cause != auction.CauseBudgetsExhausted {
		t.Fatalf("finished = %v cause = %q, want budgets exhausted", s.Finished(), s.Cause)
	}
	if s.CurrentIndex != 0 {
		t.Errorf("cursor = %d, want 0", s.CurrentIndex)
	}
	if err := r.PlaceBid("A"); !errors.Is(err, auction.ErrAuctionFinished) {
		t.Errorf("PlaceBid error = %v, want ErrAuctionFinished", err)
	}
	if err := r.MarkUnsold(); !errors.Is(err, auction.ErrAuctionFinished) {
		t.Errorf("MarkUnsold error = %v, want ErrAuctionFinished", err)
	}
}

func TestPlaceBid_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		seed    func() *roster.Seed
		setup   func(t *testing.T, r *auction.Room)
		teamID  string
		wantErr error
	}{
		{
			name:    "unknown team",
			seed:    twoLotSeed,
			teamID:  "Z",
			wantErr: auction.ErrUnknownTeam,
		},
		{
			name: "opening bid above budget",
			seed: func() *roster.Seed {
				s := twoLotSeed()
				s.Teams[0].Budget = 15
				return s
			},
			teamID:  "A",
			wantErr: auction.ErrInsufficientBudget,
		},
		{
			name: "raise above budget",
			seed: func() *roster.Seed {
				s := twoLotSeed()
				s.Teams[0].Budget = 35
				return s
			},
			setup: func(t *testing.T, r *auction.Room) {
				must(t, r.PlaceBid("A")) // 20
				must(t, r.PlaceBid("B")) // 30, next is 40
			},
			teamID:  "A",
			wantErr: auction.ErrInsufficientBudget,
		},
		{
			name: "roster exhausted",
			seed: twoLotSeed,
			setup: func(t *testing.T, r *auction.Room) {
				must(t, r.MarkUnsold())
				must(t, r.MarkUnsold())
			},
			teamID:  "A",
			wantErr: auction.ErrAuctionFinished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newStartedRoom(t, tt.seed())
			if tt.setup != nil {
				tt.setup(t, r)
			}
			before := r.Snapshot()

			err := r.PlaceBid(tt.teamID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("PlaceBid(%q) error = %v, want %v", tt.teamID, err, tt.wantErr)
			}
			if diff := cmp.Diff(before, r.Snapshot()); diff != "" {
				t.Errorf("rejected bid changed state (-before +after):\n%s", diff)
			}
		})
	}
}

func TestPlaceBid_LadderProgression(t *testing.T) {
	seed := twoLotSeed()
	seed.Players[0].BasePrice = 180
	seed.Teams[0].Budget = 5000
	seed.Teams[1].Budget = 5000
	r := newStartedRoom(t, seed)

	want := []int{180, 190, 200, 220}
	teams := []string{"A", "B"}
	for i, amount := range want {
		must(t, r.PlaceBid(teams[i%2]))
		if got := r.Snapshot().CurrentBid; got != amount {
			t.Fatalf("bid %d = %d, want %d", i, got, amount)
		}
	}
	if got := r.Snapshot().NextBid; got != 240 {
		t.Errorf("next bid = %d, want 240", got)
	}
}

func TestUndoBid_RoundTrip(t *testing.T) {
	for n := 1; n <= 6; n++ {
		r := newStartedRoom(t, twoLotSeed())
		for i := 0; i < n; i++ {
			must(t, r.PlaceBid([]string{"A", "B"}[i%2]))
		}
		if got := len(r.Snapshot().BidHistory); got != n {
			t.Fatalf("history after %d bids = %d", n, got)
		}
		for i := 0; i < n; i++ {
			must(t, r.UndoBid())
		}
		s := r.Snapshot()
		if s.CurrentBid != 0 || s.LeaderID != "" || len(s.BidHistory) != 0 {
			t.Errorf("after %d undos: bid=%d leader=%q history=%d", n, s.CurrentBid, s.LeaderID, len(s.BidHistory))
		}
		if s.State != auction.StateLotOpen {
			t.Errorf("state = %q, want %q", s.State, auction.StateLotOpen)
		}
	}
}

func TestUndoBid_RestoresPreviousLeader(t *testing.T) {
	r := newStartedRoom(t, twoLotSeed())
	must(t, r.PlaceBid("A"))
	must(t, r.PlaceBid("B"))
	must(t, r.UndoBid())

	s := r.Snapshot()
	if s.CurrentBid != 20 || s.LeaderID != "A" {
		t.Errorf("bid=%d leader=%q, want 20/A", s.CurrentBid, s.LeaderID)
	}
}

func TestUndoBid_EmptyHistory(t *testing.T) {
	r := newStartedRoom(t, twoLotSeed())
	if err := r.UndoBid(); !errors.Is(err, auction.ErrNothingToUndo) {
		t.Errorf("UndoBid error = %v, want ErrNothingToUndo", err)
	}
	if !errors.Is(auction.ErrNothingToUndo, auction.ErrInvalidTransition) {
		t.Error("ErrNothingToUndo should wrap ErrInvalidTransition")
	}
}

func TestMarkSold_Atomic(t *testing.T) {
	r := newStartedRoom(t, fourLotSeed())
	must(t, r.PlaceBid("A"))
	must(t, r.PlaceBid("B"))
	must(t, r.PlaceBid("A"))
	before := r.Snapshot()

	must(t, r.MarkSold())
	after := r.Snapshot()

	if got := len(after.Sales) - len(before.Sales); got != 1 {
		t.Errorf("new sale records = %d, want 1", got)
	}
	a0, _ := before.Team("A")
	a1, _ := after.Team("A")
	b0, _ := before.Team("B")
	b1, _ := after.Team("B")
	if a0.Budget-a1.Budget != before.CurrentBid {
		t.Errorf("A debited %d, want %d", a0.Budget-a1.Budget, before.CurrentBid)
	}
	if b0.Budget != b1.Budget {
		t.Errorf("B budget changed from %d to %d", b0.Budget, b1.Budget)
	}
	if after.CurrentIndex != before.CurrentIndex+1 {
		t.Errorf("cursor = %d, want %d", after.CurrentIndex, before.CurrentIndex+1)
	}
	if after.CurrentBid != 0 || after.LeaderID != "" || len(after.BidHistory) != 0 {
		t.Errorf("bid state not reset: %+v", after)
	}
}

func TestMarkSold_NoLeader(t *testing.T) {
	r := newStartedRoom(t, twoLotSeed())
	before := r.Snapshot()
	if err := r.MarkSold(); !errors.Is(err, auction.ErrNoLeadingBid) {
		t.Fatalf("MarkSold error = %v, want ErrNoLeadingBid", err)
	}
	if diff := cmp.Diff(before, r.Snapshot()); diff != "" {
		t.Errorf("rejected sale changed state:\n%s", diff)
	}
}

func TestMarkUnsold_RejectedWhileContested(t *testing.T) {
	r := newStartedRoom(t, twoLotSeed())
	must(t, r.PlaceBid("A"))

	if err := r.MarkUnsold(); !errors.Is(err, auction.ErrLotContested) {
		t.Fatalf("MarkUnsold error = %v, want ErrLotContested", err)
	}
	if s := r.Snapshot(); s.CurrentIndex != 0 || s.CurrentBid != 20 {
		t.Errorf("cursor=%d bid=%d, want 0/20", s.CurrentIndex, s.CurrentBid)
	}
}

func TestBudgetConservation(t *testing.T) {
	seed := fourLotSeed()
	r := newStartedRoom(t, seed)

	// p1 -> A @ 30, p2 -> B @ 30, p3 passed, p4 -> A @ 20
	must(t, r.PlaceBid("B"))
	must(t, r.PlaceBid("A"))
	must(t, r.MarkSold())
	must(t, r.PlaceBid("B"))
	must(t, r.MarkSold())
	must(t, r.MarkUnsold())
	must(t, r.PlaceBid("A"))
	must(t, r.MarkSold())

	assertConserved(t, seed, r.Snapshot())
}

func assertConserved(t *testing.T, seed *roster.Seed, s auction.Snapshot) {
	t.Helper()
	spent := make(map[string]int)
	for _, sale := range s.Sales {
		spent[sale.TeamID] += sale.Price
	}
	for _, team := range seed.Teams {
		got, _ := s.Team(team.ID)
		if want := team.Budget - spent[team.ID]; got.Budget != want {
			t.Errorf("team %s budget = %d, want %d", team.ID, got.Budget, want)
		}
		if got.Budget < 0 {
			t.Errorf("team %s budget negative: %d", team.ID, got.Budget)
		}
	}
}

func TestGoToPrevious(t *testing.T) {
	t.Run("at first lot", func(t *testing.T) {
		r := newStartedRoom(t, twoLotSeed())
		if err := r.GoToPrevious(); !errors.Is(err, auction.ErrAtFirstLot) {
			t.Errorf("GoToPrevious error = %v, want ErrAtFirstLot", err)
		}
	})

	t.Run("reopens unsold lot and clears bids", func(t *testing.T) {
		r := newStartedRoom(t, fourLotSeed())
		must(t, r.MarkUnsold())
		must(t, r.PlaceBid("A"))
		must(t, r.GoToPrevious())

		s := r.Snapshot()
		if s.CurrentIndex != 0 || s.Lot.ID != "p1" {
			t.Errorf("cursor=%d lot=%s, want 0/p1", s.CurrentIndex, s.Lot.ID)
		}
		if s.CurrentBid != 0 || len(s.BidHistory) != 0 {
			t.Errorf("bid=%d history=%d, want cleared", s.CurrentBid, len(s.BidHistory))
		}
	})

	t.Run("revokes sale of reopened lot", func(t *testing.T) {
		seed := fourLotSeed()
		r := newStartedRoom(t, seed)
		must(t, r.PlaceBid("A"))
		must(t, r.PlaceBid("B"))
		must(t, r.MarkSold())
		must(t, r.GoToPrevious())

		s := r.Snapshot()
		b, _ := s.Team("B")
		if b.Budget != 100 || len(b.Players) != 0 {
			t.Errorf("B budget=%d players=%d, want refunded 100/0", b.Budget, len(b.Players))
		}
		if len(s.Sales) != 0 || len(s.Revoked) != 1 {
			t.Errorf("sales=%d revoked=%d, want 0/1", len(s.Sales), len(s.Revoked))
		}
		assertConserved(t, seed, s)

		// Re-selling the lot produces a single consistent sale.
		must(t, r.PlaceBid("A"))
		must(t, r.MarkSold())
		s = r.Snapshot()
		if len(s.Sales) != 1 || s.Sales[0].TeamID != "A" || s.Sales[0].Price != 20 {
			t.Errorf("ledger = %+v, want p1 to A at 20", s.Sales)
		}
		assertConserved(t, seed, s)
	})

	t.Run("allowed after roster exhausted", func(t *testing.T) {
		r := newStartedRoom(t, twoLotSeed())
		must(t, r.MarkUnsold())
		must(t, r.MarkUnsold())
		must(t, r.GoToPrevious())
		if s := r.Snapshot(); s.Finished() || s.Lot.ID != "p2" {
			t.Errorf("finished=%v lot=%+v, want p2 open", s.Finished(), s.Lot)
		}
	})
}

func TestRequeue(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, r *auction.Room)
		playerID   string
		wantOrder  []string
		wantCursor int
	}{
		{
			name: "passed-over player behind cursor",
			setup: func(t *testing.T, r *auction.Room) {
				must(t, r.MarkUnsold()) // p1
				must(t, r.MarkUnsold()) // p2
			},
			playerID:   "p1",
			wantOrder:  []string{"p2", "p1", "p3", "p4"},
			wantCursor: 1,
		},
		{
			name:       "upcoming player ahead of cursor",
			playerID:   "p3",
			wantOrder:  []string{"p3", "p1", "p2", "p4"},
			wantCursor: 0,
		},
		{
			name: "current lot stays put",
			setup: func(t *testing.T, r *auction.Room) {
				must(t, r.MarkUnsold())
				must(t, r.PlaceBid("A"))
			},
			playerID:   "p2",
			wantOrder:  []string{"p1", "p2", "p3", "p4"},
			wantCursor: 1,
		},
		{
			name: "after roster exhausted",
			setup: func(t *testing.T, r *auction.Room) {
				for i := 0; i < 4; i++ {
					must(t, r.MarkUnsold())
				}
			},
			playerID:   "p2",
			wantOrder:  []string{"p1", "p3", "p4", "p2"},
			wantCursor: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newStartedRoom(t, fourLotSeed())
			if tt.setup != nil {
				tt.setup(t, r)
			}
			must(t, r.Requeue(tt.playerID))

			s := r.Snapshot()
			if s.Lot == nil || s.Lot.ID != tt.playerID {
				t.Fatalf("lot = %+v, want %s", s.Lot, tt.playerID)
			}
			if s.CurrentIndex != tt.wantCursor {
				t.Errorf("cursor = %d, want %d", s.CurrentIndex, tt.wantCursor)
			}
			order := lotIDs(r.Order())
			if diff := cmp.Diff(tt.wantOrder, order); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
			if s.Lots != 4 {
				t.Errorf("lots = %d, want 4", s.Lots)
			}
			if s.CurrentBid != 0 || s.LeaderID != "" || len(s.BidHistory) != 0 {
				t.Errorf("bid state not reset: bid=%d leader=%q", s.CurrentBid, s.LeaderID)
			}
		})
	}
}

func TestRequeue_SoldPlayerRevokesSale(t *testing.T) {
	seed := fourLotSeed()
	r := newStartedRoom(t, seed)
	must(t, r.PlaceBid("A"))
	must(t, r.MarkSold()) // p1 -> A @ 20
	must(t, r.MarkUnsold())

	must(t, r.Requeue("p1"))
	s := r.Snapshot()
	a, _ := s.Team("A")
	if a.Budget != 100 || len(a.Players) != 0 {
		t.Errorf("A budget=%d players=%d, want 100/0", a.Budget, len(a.Players))
	}
	if _, ok := r.SaleFor("p1"); ok {
		t.Error("p1 still has an active sale")
	}
	assertConserved(t, seed, s)

	must(t, r.PlaceBid("B"))
	must(t, r.MarkSold())
	s = r.Snapshot()
	a, _ = s.Team("A")
	b, _ := s.Team("B")
	if len(a.Players) != 0 || len(b.Players) != 1 {
		t.Errorf("p1 credited to A=%d B=%d players, want 0/1", len(a.Players), len(b.Players))
	}
	assertConserved(t, seed, s)
}

func TestRequeue_UnknownPlayer(t *testing.T) {
	r := newStartedRoom(t, twoLotSeed())
	if err := r.Requeue("nope"); !errors.Is(err, auction.ErrUnknownPlayer) {
		t.Errorf("Requeue error = %v, want ErrUnknownPlayer", err)
	}
}

func TestCanAfford(t *testing.T) {
	seed := twoLotSeed()
	seed.Teams[1].Budget = 25
	r := newStartedRoom(t, seed)
	must(t, r.PlaceBid("A")) // next is 30
	s := r.Snapshot()

	if ok, err := s.CanAfford("A"); err != nil || !ok {
		t.Errorf("CanAfford(A) = %v, %v, want true", ok, err)
	}
	if ok, err := s.CanAfford("B"); err != nil || ok {
		t.Errorf("CanAfford(B) = %v, %v, want false", ok, err)
	}
	if _, err := s.CanAfford("Z"); !errors.Is(err, auction.ErrUnknownTeam) {
		t.Errorf("CanAfford(Z) error = %v, want ErrUnknownTeam", err)
	}
}

func TestSnapshot_PreviousLot(t *testing.T) {
	r := newStartedRoom(t, fourLotSeed())
	if s := r.Snapshot(); s.Previous != nil {
		t.Fatalf("Previous at first lot = %+v, want nil", s.Previous)
	}

	must(t, r.MarkUnsold())
	if s := r.Snapshot(); s.Previous == nil || s.Previous.ID != "p1" {
		t.Errorf("Previous after unsold = %+v, want p1", s.Previous)
	}

	must(t, r.Requeue("p4"))
	if s := r.Snapshot(); s.Previous == nil || s.Previous.ID != "p1" || s.Lot.ID != "p4" {
		t.Errorf("after requeue: previous %+v, lot %+v; want p1, p4", s.Previous, s.Lot)
	}
}

func TestSnapshot_IsDetached(t *testing.T) {
	r := newStartedRoom(t, fourLotSeed())
	must(t, r.PlaceBid("A"))
	must(t, r.MarkSold())

	s := r.Snapshot()
	s.Teams[0].Players[0].Name = "mutated"
	s.Sales[0].Price = 1

	again := r.Snapshot()
	if again.Teams[0].Players[0].Name == "mutated" || again.Sales[0].Price == 1 {
		t.Error("snapshot shares memory with the room")
	}
}

func TestPendingEvents_Versions(t *testing.T) {
	r := newStartedRoom(t, twoLotSeed())
	must(t, r.PlaceBid("A"))
	_ = r.MarkUnsold() // rejected, records nothing
	must(t, r.MarkSold())

	events := r.PendingEvents()
	if len(events) != 3 {
		t.Fatalf("pending events = %d, want 3", len(events))
	}
	for i, e := range events {
		if e.Version != i+1 {
			t.Errorf("event %d version = %d, want %d", i, e.Version, i+1)
		}
		if e.AggregateID != "test-session" {
			t.Errorf("event %d aggregate = %q", i, e.AggregateID)
		}
	}
	if len(r.PendingEvents()) != 0 {
		t.Error("pending events not drained")
	}
	if r.Version() != 3 {
		t.Errorf("Version() = %d, want 3", r.Version())
	}
}

func TestRoom_ConcurrentCommands(t *testing.T) {
	seed := twoLotSeed()
	seed.Teams[0].Budget = 100000
	seed.Teams[1].Budget = 100000
	r := newStartedRoom(t, seed)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_ = r.PlaceBid([]string{"A", "B"}[idx%2])
		}(i)
	}
	wg.Wait()

	s := r.Snapshot()
	if len(s.BidHistory) != 100 {
		t.Errorf("history = %d, want 100", len(s.BidHistory))
	}
	for i := 0; i < 100; i++ {
		must(t, r.UndoBid())
	}
	if s := r.Snapshot(); s.CurrentBid != 0 || s.LeaderID != "" {
		t.Errorf("after undo: bid=%d leader=%q", s.CurrentBid, s.LeaderID)
	}
}

func TestTracker(t *testing.T) {
	r := newStartedRoom(t, fourLotSeed())
	must(t, r.PlaceBid("A"))
	must(t, r.MarkSold())   // p1 sold
	must(t, r.MarkUnsold()) // p2 unsold

	all := r.Tracker("", nil)
	if diff := cmp.Diff([]string{"p3", "p4"}, lotIDs(all.Upcoming)); diff != "" {
		t.Errorf("upcoming mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p2"}, lotIDs(all.Unsold)); diff != "" {
		t.Errorf("unsold mismatch (-want +got):\n%s", diff)
	}
	if len(all.Sold) != 1 || all.Sold[0].Player.ID != "p1" {
		t.Errorf("sold = %+v, want p1", all.Sold)
	}
	if len(all.Sets) != 2 {
		t.Errorf("sets = %d, want 2", len(all.Sets))
	}

	set2 := 2
	narrowed := r.Tracker("three", &set2)
	if diff := cmp.Diff([]string{"p3"}, lotIDs(narrowed.Upcoming)); diff != "" {
		t.Errorf("filtered upcoming mismatch (-want +got):\n%s", diff)
	}
	if len(narrowed.Unsold) != 0 || len(narrowed.Sold) != 0 {
		t.Errorf("filter leaked other lists: %+v", narrowed)
	}
}
