package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bhavindev/cricket-auction/auction/database/models"
	"github.com/bhavindev/cricket-auction/auction/database/repositories"
)

// Engine runs the sale protocol. It is the authority on every bid bound:
// the presentation layer constrains its inputs too, but nothing here trusts
// that.
type Engine struct {
	players      repositories.PlayerRepository
	teams        repositories.TeamRepository
	transactions repositories.TransactionRepository
}

func New(players repositories.PlayerRepository, teams repositories.TeamRepository, transactions repositories.TransactionRepository) *Engine {
	if players == nil {
		panic("player repository cannot be nil")
	}
	if teams == nil {
		panic("team repository cannot be nil")
	}
	if transactions == nil {
		panic("transaction repository cannot be nil")
	}

	return &Engine{
		players:      players,
		teams:        teams,
		transactions: transactions,
	}
}

// ProcessBid validates a bid and commits the sale. The checks here give the
// caller a fast, typed answer; the store re-checks all of them under row
// locks before committing, so a stale read can never double-sell a player or
// drive a budget negative. On any failure the ledger is left untouched.
//
// A bid equal to the team's full remaining budget is valid; the budget may
// reach exactly zero.
func (e *Engine) ProcessBid(ctx context.Context, playerID int64, teamName string, amount int64) (*models.Transaction, error) {
	player, err := e.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player.Sold() {
		return nil, repositories.ErrAlreadySold
	}

	team, err := e.teams.GetByName(ctx, teamName)
	if err != nil {
		return nil, err
	}

	if amount < player.BasePrice {
		return nil, repositories.ErrBelowBasePrice
	}
	if amount > team.Budget {
		return nil, repositories.ErrInsufficientBudget
	}

	txn, err := e.transactions.RecordSale(ctx, player.ID, team.ID, amount)
	if err != nil {
		return nil, err
	}

	slog.Info("Bid accepted",
		slog.String("player", player.Name),
		slog.String("team", team.Name),
		slog.Int64("amount", amount))

	return txn, nil
}

// RegisterTeam creates a new franchise with its starting budget. The logo
// reference is an opaque string owned by the blob storage collaborator.
func (e *Engine) RegisterTeam(ctx context.Context, name string, budget int64, logoRef string) (*models.Team, error) {
	if name == "" {
		return nil, errors.New("team name is required")
	}
	if budget < 0 {
		return nil, fmt.Errorf("invalid budget %d: must not be negative", budget)
	}

	team := &models.Team{
		Name:   name,
		Logo:   logoRef,
		Budget: budget,
	}

	if err := e.teams.Create(ctx, team); err != nil {
		return nil, err
	}

	slog.Info("Team registered",
		slog.String("team", team.Name),
		slog.Int64("budget", team.Budget))

	return team, nil
}

// RegisterPlayer adds a player to the unsold pool.
func (e *Engine) RegisterPlayer(ctx context.Context, name string, basePrice int64, playerType models.PlayerType, age *int, stats, photoRef string) (*models.Player, error) {
	if name == "" {
		return nil, errors.New("player name is required")
	}
	if basePrice <= 0 {
		return nil, fmt.Errorf("invalid base price %d: must be positive", basePrice)
	}
	if !models.ValidPlayerType(playerType) {
		return nil, fmt.Errorf("unknown player type %q", playerType)
	}

	player := &models.Player{
		Name:      name,
		Photo:     photoRef,
		BasePrice: basePrice,
		Type:      playerType,
		Age:       age,
		Stats:     stats,
	}

	if err := e.players.Create(ctx, player); err != nil {
		return nil, err
	}

	slog.Info("Player registered",
		slog.String("player", player.Name),
		slog.String("role", string(player.Type)),
		slog.Int64("base_price", player.BasePrice))

	return player, nil
}
