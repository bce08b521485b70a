package auction

import (
	"context"
	"fmt"

	"github.com/bhavindev/cricket-auction/auction/database"
	"github.com/bhavindev/cricket-auction/auction/database/repositories"
	"github.com/bhavindev/cricket-auction/auction/engine"
	"github.com/bhavindev/cricket-auction/auction/roster"
	"github.com/bhavindev/cricket-auction/auction/services"
)

// App bundles the ledger core for the presentation layer: the store, the
// sale engine, the roster projections and the blob storage collaborator.
type App struct {
	Cfg     Config
	Version string
	Commit  string

	DB                    *database.DB
	PlayerRepository      repositories.PlayerRepository
	TeamRepository        repositories.TeamRepository
	TransactionRepository repositories.TransactionRepository
	Engine                *engine.Engine
	Roster                *roster.Service
	SpacesService         *services.SpacesService
}

func New(ctx context.Context, cfg Config, version string, commit string) (*App, error) {
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.InitTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	players := repositories.NewPlayerRepository(db.BunDB())
	teams := repositories.NewTeamRepository(db.BunDB())
	transactions := repositories.NewTransactionRepository(db.BunDB())

	app := &App{
		Cfg:                   cfg,
		Version:               version,
		Commit:                commit,
		DB:                    db,
		PlayerRepository:      players,
		TeamRepository:        teams,
		TransactionRepository: transactions,
		Engine:                engine.New(players, teams, transactions),
		Roster:                roster.NewService(players, teams, transactions),
	}

	if cfg.Spaces.Key != "" {
		app.SpacesService = services.NewSpacesService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
		)
	}

	return app, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
