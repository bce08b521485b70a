package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bhavindev/cricket-auction/auction/database/models"
	"github.com/bhavindev/cricket-auction/auction/database/repositories"
	"golang.org/x/sync/errgroup"
)

// fakeLedger is an in-memory stand-in for the Postgres store. RecordSale
// re-checks everything under one lock, mirroring the row-locked transaction
// of the real repository.
type fakeLedger struct {
	mu      sync.Mutex
	players map[int64]*models.Player
	teams   map[int64]*models.Team
	history []*models.Transaction
	nextID  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		players: make(map[int64]*models.Player),
		teams:   make(map[int64]*models.Team),
	}
}

func (l *fakeLedger) id() int64 {
	l.nextID++
	return l.nextID
}

type fakePlayers struct{ l *fakeLedger }

func (f fakePlayers) Create(_ context.Context, player *models.Player) error {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	player.ID = f.l.id()
	f.l.players[player.ID] = player
	return nil
}

func (f fakePlayers) GetByID(_ context.Context, id int64) (*models.Player, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	player, ok := f.l.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copied := *player
	return &copied, nil
}

func (f fakePlayers) GetAll(_ context.Context) ([]*models.Player, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	var players []*models.Player
	for _, p := range f.l.players {
		copied := *p
		players = append(players, &copied)
	}
	return players, nil
}

func (f fakePlayers) GetUnsold(_ context.Context) ([]*models.Player, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	var players []*models.Player
	for _, p := range f.l.players {
		if !p.Sold() {
			copied := *p
			players = append(players, &copied)
		}
	}
	return players, nil
}

func (f fakePlayers) GetUnsoldRandom(ctx context.Context) (*models.Player, error) {
	players, err := f.GetUnsold(ctx)
	if err != nil || len(players) == 0 {
		return nil, err
	}
	return players[0], nil
}

func (f fakePlayers) GetByTeam(_ context.Context, teamID int64) ([]*models.Player, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	var players []*models.Player
	for _, p := range f.l.players {
		if p.SoldToTeamID != nil && *p.SoldToTeamID == teamID {
			copied := *p
			players = append(players, &copied)
		}
	}
	return players, nil
}

func (f fakePlayers) SumSoldPrice(_ context.Context, teamID int64) (int64, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	var spent int64
	for _, p := range f.l.players {
		if p.SoldToTeamID != nil && *p.SoldToTeamID == teamID {
			spent += *p.SoldPrice
		}
	}
	return spent, nil
}

func (f fakePlayers) Counts(_ context.Context) (int64, int64, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	var sold int64
	for _, p := range f.l.players {
		if p.Sold() {
			sold++
		}
	}
	return int64(len(f.l.players)), sold, nil
}

type fakeTeams struct{ l *fakeLedger }

func (f fakeTeams) Create(_ context.Context, team *models.Team) error {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	for _, t := range f.l.teams {
		if t.Name == team.Name {
			return repositories.ErrDuplicateName
		}
	}
	team.ID = f.l.id()
	f.l.teams[team.ID] = team
	return nil
}

func (f fakeTeams) GetByID(_ context.Context, id int64) (*models.Team, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	team, ok := f.l.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (f fakeTeams) GetByName(_ context.Context, name string) (*models.Team, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	for _, t := range f.l.teams {
		if t.Name == name {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (f fakeTeams) GetAll(_ context.Context) ([]*models.Team, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	var teams []*models.Team
	for _, t := range f.l.teams {
		copied := *t
		teams = append(teams, &copied)
	}
	return teams, nil
}

type fakeTransactions struct{ l *fakeLedger }

func (f fakeTransactions) RecordSale(_ context.Context, playerID, teamID, amount int64) (*models.Transaction, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()

	player, ok := f.l.players[playerID]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	if player.Sold() {
		return nil, repositories.ErrAlreadySold
	}
	if amount < player.BasePrice {
		return nil, repositories.ErrBelowBasePrice
	}

	team, ok := f.l.teams[teamID]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	if amount > team.Budget {
		return nil, repositories.ErrInsufficientBudget
	}

	team.Budget -= amount
	player.SoldToTeamID = &team.ID
	player.SoldPrice = &amount

	txn := &models.Transaction{
		ID:        f.l.id(),
		PlayerID:  playerID,
		TeamID:    teamID,
		BidAmount: amount,
		CreatedAt: time.Now(),
	}
	f.l.history = append(f.l.history, txn)
	return txn, nil
}

func (f fakeTransactions) GetRecent(_ context.Context, limit int) ([]*models.Transaction, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	n := len(f.l.history)
	if limit > n {
		limit = n
	}
	out := make([]*models.Transaction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, f.l.history[i])
	}
	return out, nil
}

func (f fakeTransactions) GetByTeam(_ context.Context, teamID int64) ([]*models.Transaction, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	var out []*models.Transaction
	for _, t := range f.l.history {
		if t.TeamID == teamID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f fakeTransactions) SumByTeam(_ context.Context, teamID int64) (int64, error) {
	f.l.mu.Lock()
	defer f.l.mu.Unlock()
	var total int64
	for _, t := range f.l.history {
		if t.TeamID == teamID {
			total += t.BidAmount
		}
	}
	return total, nil
}

func newTestEngine() (*Engine, *fakeLedger) {
	ledger := newFakeLedger()
	e := New(fakePlayers{ledger}, fakeTeams{ledger}, fakeTransactions{ledger})
	return e, ledger
}

func seedTeam(t *testing.T, e *Engine, name string, budget int64) *models.Team {
	t.Helper()
	team, err := e.RegisterTeam(context.Background(), name, budget, "")
	if err != nil {
		t.Fatalf("RegisterTeam(%s) error = %v", name, err)
	}
	return team
}

func seedPlayer(t *testing.T, e *Engine, name string, basePrice int64) *models.Player {
	t.Helper()
	player, err := e.RegisterPlayer(context.Background(), name, basePrice, models.PlayerTypeBatsman, nil, "", "")
	if err != nil {
		t.Fatalf("RegisterPlayer(%s) error = %v", name, err)
	}
	return player
}

func TestEngine_ProcessBid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		bid     int64
		team    string
		budget  int64
		base    int64
		wantErr error
	}{
		{
			name:   "bid at base price",
			bid:    5000,
			team:   "Falcons",
			budget: 100000,
			base:   5000,
		},
		{
			name:   "bid equal to full budget",
			bid:    100000,
			team:   "Falcons",
			budget: 100000,
			base:   5000,
		},
		{
			name:    "bid below base price",
			bid:     4999,
			team:    "Falcons",
			budget:  100000,
			base:    5000,
			wantErr: repositories.ErrBelowBasePrice,
		},
		{
			name:    "bid above budget",
			bid:     5000,
			team:    "Falcons",
			budget:  4000,
			base:    5000,
			wantErr: repositories.ErrInsufficientBudget,
		},
		{
			name:    "unknown team",
			bid:     5000,
			team:    "Ghosts",
			budget:  100000,
			base:    5000,
			wantErr: repositories.ErrTeamNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ledger := newTestEngine()
			team := seedTeam(t, e, "Falcons", tt.budget)
			player := seedPlayer(t, e, "A", tt.base)

			txn, err := e.ProcessBid(ctx, player.ID, tt.team, tt.bid)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ProcessBid() error = %v, want %v", err, tt.wantErr)
			}

			if tt.wantErr != nil {
				// a failed bid must leave all state untouched
				if got := ledger.teams[team.ID].Budget; got != tt.budget {
					t.Errorf("budget = %d, want %d", got, tt.budget)
				}
				if ledger.players[player.ID].Sold() {
					t.Errorf("player marked sold after failed bid")
				}
				if len(ledger.history) != 0 {
					t.Errorf("history has %d rows, want 0", len(ledger.history))
				}
				return
			}

			if txn == nil || txn.BidAmount != tt.bid {
				t.Fatalf("transaction = %+v, want bid %d", txn, tt.bid)
			}
			if got := ledger.teams[team.ID].Budget; got != tt.budget-tt.bid {
				t.Errorf("budget = %d, want %d", got, tt.budget-tt.bid)
			}
			p := ledger.players[player.ID]
			if p.SoldToTeamID == nil || *p.SoldToTeamID != team.ID {
				t.Errorf("sold_to_team_id = %v, want %d", p.SoldToTeamID, team.ID)
			}
			if p.SoldPrice == nil || *p.SoldPrice != tt.bid {
				t.Errorf("sold_price = %v, want %d", p.SoldPrice, tt.bid)
			}
			if p.SoldPrice != nil && *p.SoldPrice < p.BasePrice {
				t.Errorf("sold_price %d below base price %d", *p.SoldPrice, p.BasePrice)
			}
			if len(ledger.history) != 1 {
				t.Errorf("history has %d rows, want 1", len(ledger.history))
			}
		})
	}
}

func TestEngine_ProcessBid_MissingPlayer(t *testing.T) {
	e, _ := newTestEngine()
	seedTeam(t, e, "Falcons", 100000)

	_, err := e.ProcessBid(context.Background(), 404, "Falcons", 5000)
	if !errors.Is(err, repositories.ErrPlayerNotFound) {
		t.Fatalf("ProcessBid() error = %v, want %v", err, repositories.ErrPlayerNotFound)
	}
}

func TestEngine_ProcessBid_SoldIsTerminal(t *testing.T) {
	ctx := context.Background()
	e, ledger := newTestEngine()
	team := seedTeam(t, e, "Falcons", 100000)
	player := seedPlayer(t, e, "A", 5000)

	if _, err := e.ProcessBid(ctx, player.ID, "Falcons", 5000); err != nil {
		t.Fatalf("first ProcessBid() error = %v", err)
	}
	if got := ledger.teams[team.ID].Budget; got != 95000 {
		t.Fatalf("budget = %d, want 95000", got)
	}

	// any further bid must fail regardless of amount, even a higher one
	for _, amount := range []int64{5000, 6000, 100000} {
		if _, err := e.ProcessBid(ctx, player.ID, "Falcons", amount); !errors.Is(err, repositories.ErrAlreadySold) {
			t.Errorf("ProcessBid(amount=%d) error = %v, want %v", amount, err, repositories.ErrAlreadySold)
		}
	}

	if got := ledger.teams[team.ID].Budget; got != 95000 {
		t.Errorf("budget changed to %d after rejected bids", got)
	}
	if len(ledger.history) != 1 {
		t.Errorf("history has %d rows, want 1", len(ledger.history))
	}
}

func TestEngine_ProcessBid_ConcurrentSamePlayer(t *testing.T) {
	ctx := context.Background()
	e, ledger := newTestEngine()
	seedTeam(t, e, "Falcons", 1000000)
	player := seedPlayer(t, e, "A", 5000)

	const bidders = 16
	var wins, losses atomic.Int64

	var g errgroup.Group
	for i := 0; i < bidders; i++ {
		g.Go(func() error {
			_, err := e.ProcessBid(ctx, player.ID, "Falcons", 5000)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, repositories.ErrAlreadySold):
				losses.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected bid failure: %v", err)
	}

	if wins.Load() != 1 {
		t.Errorf("wins = %d, want exactly 1", wins.Load())
	}
	if losses.Load() != bidders-1 {
		t.Errorf("losses = %d, want %d", losses.Load(), bidders-1)
	}
	if len(ledger.history) != 1 {
		t.Errorf("history has %d rows, want 1", len(ledger.history))
	}
}

func TestEngine_ProcessBid_ConcurrentBudgetDrain(t *testing.T) {
	ctx := context.Background()
	e, ledger := newTestEngine()
	team := seedTeam(t, e, "Falcons", 5000)

	// the budget covers exactly one of these players
	a := seedPlayer(t, e, "A", 5000)
	b := seedPlayer(t, e, "B", 5000)

	var wins atomic.Int64
	var g errgroup.Group
	for _, id := range []int64{a.ID, b.ID} {
		g.Go(func() error {
			_, err := e.ProcessBid(ctx, id, "Falcons", 5000)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, repositories.ErrInsufficientBudget):
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected bid failure: %v", err)
	}

	if wins.Load() != 1 {
		t.Errorf("wins = %d, want exactly 1", wins.Load())
	}
	if got := ledger.teams[team.ID].Budget; got != 0 {
		t.Errorf("budget = %d, want 0", got)
	}
}

func TestEngine_Reconciliation(t *testing.T) {
	ctx := context.Background()
	e, ledger := newTestEngine()
	const originalBudget = 100000
	team := seedTeam(t, e, "Falcons", originalBudget)

	for i, bid := range []int64{5000, 12000, 7500} {
		player := seedPlayer(t, e, string(rune('A'+i)), 5000)
		if _, err := e.ProcessBid(ctx, player.ID, "Falcons", bid); err != nil {
			t.Fatalf("ProcessBid() error = %v", err)
		}
	}

	spent, err := fakeTransactions{l: ledger}.SumByTeam(ctx, team.ID)
	if err != nil {
		t.Fatalf("SumByTeam() error = %v", err)
	}
	fromPlayers, err := fakePlayers{l: ledger}.SumSoldPrice(ctx, team.ID)
	if err != nil {
		t.Fatalf("SumSoldPrice() error = %v", err)
	}
	if spent != fromPlayers {
		t.Errorf("history spend %d != player spend %d", spent, fromPlayers)
	}

	if got := ledger.teams[team.ID].Budget; originalBudget-spent != got {
		t.Errorf("reconciliation failed: %d - %d != %d", originalBudget, spent, got)
	}
}

func TestEngine_RegisterTeam(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	if _, err := e.RegisterTeam(ctx, "Falcons", 100000, ""); err != nil {
		t.Fatalf("RegisterTeam() error = %v", err)
	}
	if _, err := e.RegisterTeam(ctx, "Falcons", 50000, ""); !errors.Is(err, repositories.ErrDuplicateName) {
		t.Errorf("duplicate RegisterTeam() error = %v, want %v", err, repositories.ErrDuplicateName)
	}
	if _, err := e.RegisterTeam(ctx, "", 100000, ""); err == nil {
		t.Errorf("RegisterTeam with empty name did not fail")
	}
	if _, err := e.RegisterTeam(ctx, "Hawks", -1, ""); err == nil {
		t.Errorf("RegisterTeam with negative budget did not fail")
	}
}

func TestEngine_RegisterPlayer(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine()

	if _, err := e.RegisterPlayer(ctx, "A", 5000, models.PlayerTypeBowler, nil, "", ""); err != nil {
		t.Fatalf("RegisterPlayer() error = %v", err)
	}
	if _, err := e.RegisterPlayer(ctx, "", 5000, models.PlayerTypeBowler, nil, "", ""); err == nil {
		t.Errorf("RegisterPlayer with empty name did not fail")
	}
	if _, err := e.RegisterPlayer(ctx, "B", 0, models.PlayerTypeBowler, nil, "", ""); err == nil {
		t.Errorf("RegisterPlayer with zero base price did not fail")
	}
	if _, err := e.RegisterPlayer(ctx, "C", 5000, models.PlayerType("Coach"), nil, "", ""); err == nil {
		t.Errorf("RegisterPlayer with unknown type did not fail")
	}
}
