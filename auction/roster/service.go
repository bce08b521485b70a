package roster

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bhavindev/cricket-auction/auction/database/models"
	"github.com/bhavindev/cricket-auction/auction/database/repositories"
	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"
)

// SpendSummary reports a team's remaining budget next to its spend. Spent is
// recomputed from the player rows on every call so callers can reconcile it
// against the cached budget.
type SpendSummary struct {
	Team   string
	Budget int64
	Spent  int64
}

// PoolStats are the headline counts shown on the operator's home screen.
type PoolStats struct {
	TotalPlayers  int64
	TotalTeams    int64
	SoldPlayers   int64
	UnsoldPlayers int64
}

// Service provides read-only projections over the ledger. It never mutates
// state and holds none of its own; every call re-reads the store.
type Service struct {
	players      repositories.PlayerRepository
	teams        repositories.TeamRepository
	transactions repositories.TransactionRepository
}

func NewService(players repositories.PlayerRepository, teams repositories.TeamRepository, transactions repositories.TransactionRepository) *Service {
	return &Service{
		players:      players,
		teams:        teams,
		transactions: transactions,
	}
}

// PickRandomUnsoldPlayer selects uniformly among the currently unsold
// players, re-evaluating the pool on every call. Returns (nil, nil) once the
// pool is empty; that is the auction's normal terminal state.
func (s *Service) PickRandomUnsoldPlayer(ctx context.Context) (*models.Player, error) {
	return s.players.GetUnsoldRandom(ctx)
}

// CurrentRoster lists the players sold to a team, ordered by role then name.
func (s *Service) CurrentRoster(ctx context.Context, teamName string) ([]*models.Player, error) {
	team, err := s.teams.GetByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	return s.players.GetByTeam(ctx, team.ID)
}

// UnsoldPlayers lists the open pool, ordered by role then base price
// descending.
func (s *Service) UnsoldPlayers(ctx context.Context) ([]*models.Player, error) {
	return s.players.GetUnsold(ctx)
}

// Teams lists all registered franchises.
func (s *Service) Teams(ctx context.Context) ([]*models.Team, error) {
	return s.teams.GetAll(ctx)
}

func (s *Service) SpendSummary(ctx context.Context, teamName string) (*SpendSummary, error) {
	team, err := s.teams.GetByName(ctx, teamName)
	if err != nil {
		return nil, err
	}

	spent, err := s.players.SumSoldPrice(ctx, team.ID)
	if err != nil {
		return nil, err
	}

	return &SpendSummary{
		Team:   team.Name,
		Budget: team.Budget,
		Spent:  spent,
	}, nil
}

// AllSpendSummaries computes the summary for every team, fanning the spend
// queries out concurrently.
func (s *Service) AllSpendSummaries(ctx context.Context) ([]*SpendSummary, error) {
	teams, err := s.teams.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]*SpendSummary, len(teams))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i, team := range teams {
		g.Go(func() error {
			spent, err := s.players.SumSoldPrice(ctx, team.ID)
			if err != nil {
				return fmt.Errorf("failed to summarize %s: %w", team.Name, err)
			}

			mu.Lock()
			summaries[i] = &SpendSummary{
				Team:   team.Name,
				Budget: team.Budget,
				Spent:  spent,
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Service) Stats(ctx context.Context) (*PoolStats, error) {
	total, sold, err := s.players.Counts(ctx)
	if err != nil {
		return nil, err
	}

	teams, err := s.teams.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return &PoolStats{
		TotalPlayers:  total,
		TotalTeams:    int64(len(teams)),
		SoldPlayers:   sold,
		UnsoldPlayers: total - sold,
	}, nil
}

// RecentSales returns the latest history rows with player and team loaded.
func (s *Service) RecentSales(ctx context.Context, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.transactions.GetRecent(ctx, limit)
}

// playerSearchItems implements fuzzy.Source over player names.
type playerSearchItems []*models.Player

func (items playerSearchItems) String(i int) string {
	return strings.ToLower(items[i].Name)
}

func (items playerSearchItems) Len() int {
	return len(items)
}

// SearchPlayers fuzzy-matches player names, best matches first.
func (s *Service) SearchPlayers(ctx context.Context, query string) ([]*models.Player, error) {
	players, err := s.players.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return players, nil
	}

	items := playerSearchItems(players)
	matches := fuzzy.FindFrom(query, items)

	results := make([]*models.Player, len(matches))
	for i, match := range matches {
		results[i] = items[match.Index]
	}
	return results, nil
}
