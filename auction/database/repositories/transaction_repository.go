package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bhavindev/cricket-auction/auction/database/models"
	"github.com/uptrace/bun"
)

type TransactionRepository interface {
	RecordSale(ctx context.Context, playerID, teamID, amount int64) (*models.Transaction, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Transaction, error)
	GetByTeam(ctx context.Context, teamID int64) ([]*models.Transaction, error)
	SumByTeam(ctx context.Context, teamID int64) (int64, error)
}

type transactionRepository struct {
	db *bun.DB
}

func NewTransactionRepository(db *bun.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// RecordSale is the single atomic commit of the auction: it marks the player
// sold, decrements the team budget and appends a history row as one unit, or
// not at all. Both rows are locked FOR UPDATE and every precondition is
// re-checked inside the transaction, so two bids racing on a stale read
// cannot both commit. A lost race fails fast with ErrAlreadySold or
// ErrInsufficientBudget rather than stalling.
func (r *transactionRepository) RecordSale(ctx context.Context, playerID, teamID, amount int64) (*models.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	player := new(models.Player)
	err = tx.NewSelect().
		Model(player).
		Where("id = ?", playerID).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to lock player: %w", err)
	}

	if player.Sold() {
		return nil, ErrAlreadySold
	}
	if amount < player.BasePrice {
		return nil, ErrBelowBasePrice
	}

	team := new(models.Team)
	err = tx.NewSelect().
		Model(team).
		Where("id = ?", teamID).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to lock team: %w", err)
	}

	// bid == budget is valid, the budget may reach exactly zero
	if amount > team.Budget {
		return nil, ErrInsufficientBudget
	}

	result, err := tx.NewUpdate().
		Model((*models.Team)(nil)).
		Set("budget = budget - ?", amount).
		Where("id = ? AND budget >= ?", teamID, amount).
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to debit team budget: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrInsufficientBudget
	}

	result, err = tx.NewUpdate().
		Model((*models.Player)(nil)).
		Set("sold_to_team_id = ?", teamID).
		Set("sold_price = ?", amount).
		Where("id = ? AND sold_to_team_id IS NULL", playerID).
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to mark player sold: %w", err)
	}

	rows, err = result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrAlreadySold
	}

	txn := &models.Transaction{
		PlayerID:  playerID,
		TeamID:    teamID,
		BidAmount: amount,
		CreatedAt: time.Now(),
	}

	_, err = tx.NewInsert().Model(txn).Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to append history record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}

	slog.Info("Sale recorded",
		slog.String("type", "db"),
		slog.Int64("player_id", playerID),
		slog.Int64("team_id", teamID),
		slog.Int64("amount", amount))

	return txn, nil
}

func (r *transactionRepository) GetRecent(ctx context.Context, limit int) ([]*models.Transaction, error) {
	var txns []*models.Transaction
	err := r.db.NewSelect().
		Model(&txns).
		Relation("Player").
		Relation("Team").
		Order("h.created_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get recent sales: %w", err)
	}
	return txns, nil
}

func (r *transactionRepository) GetByTeam(ctx context.Context, teamID int64) ([]*models.Transaction, error) {
	var txns []*models.Transaction
	err := r.db.NewSelect().
		Model(&txns).
		Relation("Player").
		Where("h.team_id = ?", teamID).
		Order("h.created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get team history: %w", err)
	}
	return txns, nil
}

// SumByTeam totals the recorded bids for a team straight from the history
// table, independently of the player rows and the cached budget.
func (r *transactionRepository) SumByTeam(ctx context.Context, teamID int64) (int64, error) {
	var total int64
	err := r.db.NewSelect().
		Model((*models.Transaction)(nil)).
		ColumnExpr("COALESCE(SUM(bid_amount), 0)").
		Where("team_id = ?", teamID).
		Scan(ctx, &total)

	if err != nil {
		return 0, fmt.Errorf("failed to sum team history: %w", err)
	}
	return total, nil
}
