package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bhavindev/cricket-auction/auction/database/models"
	"github.com/uptrace/bun"
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int64) (*models.Player, error)
	GetAll(ctx context.Context) ([]*models.Player, error)
	GetUnsold(ctx context.Context) ([]*models.Player, error)
	GetUnsoldRandom(ctx context.Context) (*models.Player, error)
	GetByTeam(ctx context.Context, teamID int64) ([]*models.Player, error)
	SumSoldPrice(ctx context.Context, teamID int64) (int64, error)
	Counts(ctx context.Context) (total int64, sold int64, err error)
}

type playerRepository struct {
	db *bun.DB
}

func NewPlayerRepository(db *bun.DB) PlayerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) Create(ctx context.Context, player *models.Player) error {
	player.CreatedAt = time.Now()

	_, err := r.db.NewInsert().Model(player).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (r *playerRepository) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	player := new(models.Player)
	err := r.db.NewSelect().
		Model(player).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

func (r *playerRepository) GetAll(ctx context.Context) ([]*models.Player, error) {
	var players []*models.Player
	err := r.db.NewSelect().
		Model(&players).
		Order("name ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	return players, nil
}

func (r *playerRepository) GetUnsold(ctx context.Context) ([]*models.Player, error) {
	var players []*models.Player
	err := r.db.NewSelect().
		Model(&players).
		Where("sold_to_team_id IS NULL").
		Order("type ASC").
		Order("base_price DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get unsold players: %w", err)
	}
	return players, nil
}

// GetUnsoldRandom picks uniformly among the currently unsold players.
// Returns (nil, nil) when the pool is empty; the caller treats that as a
// normal terminal state of the auction, not an error.
func (r *playerRepository) GetUnsoldRandom(ctx context.Context) (*models.Player, error) {
	player := new(models.Player)
	err := r.db.NewSelect().
		Model(player).
		Where("sold_to_team_id IS NULL").
		OrderExpr("random()").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pick random unsold player: %w", err)
	}
	return player, nil
}

func (r *playerRepository) GetByTeam(ctx context.Context, teamID int64) ([]*models.Player, error) {
	var players []*models.Player
	err := r.db.NewSelect().
		Model(&players).
		Where("sold_to_team_id = ?", teamID).
		Order("type ASC").
		Order("name ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get team roster: %w", err)
	}
	return players, nil
}

// SumSoldPrice recomputes a team's spend from the player rows rather than
// trusting the cached budget column. Used for reconciliation checks.
func (r *playerRepository) SumSoldPrice(ctx context.Context, teamID int64) (int64, error) {
	var spent int64
	err := r.db.NewSelect().
		Model((*models.Player)(nil)).
		ColumnExpr("COALESCE(SUM(sold_price), 0)").
		Where("sold_to_team_id = ?", teamID).
		Scan(ctx, &spent)

	if err != nil {
		return 0, fmt.Errorf("failed to sum sold prices: %w", err)
	}
	return spent, nil
}

func (r *playerRepository) Counts(ctx context.Context) (int64, int64, error) {
	total, err := r.db.NewSelect().
		Model((*models.Player)(nil)).
		Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count players: %w", err)
	}

	sold, err := r.db.NewSelect().
		Model((*models.Player)(nil)).
		Where("sold_to_team_id IS NOT NULL").
		Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count sold players: %w", err)
	}

	return int64(total), int64(sold), nil
}
