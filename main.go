package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bhavindev/cricket-auction/auction"
	"github.com/bhavindev/cricket-auction/auction/logger"
	"github.com/bhavindev/cricket-auction/auction/migration"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting auction ledger",
		slog.String("version", version),
		slog.String("commit", commit))

	importLegacy := flag.Bool("import-legacy", false, "Import players and teams from the legacy MongoDB")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := auction.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dbStartTime := time.Now()
	app, err := auction.New(ctx, *cfg, version, commit)
	if err != nil {
		slog.Error("Failed to start application",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer app.Close()

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	if *importLegacy {
		runImport(ctx, app)
		return
	}

	printReport(ctx, app)
}

func runImport(ctx context.Context, app *auction.App) {
	mongoDB, err := migration.Connect(ctx, app.Cfg.Legacy.MongoURI, app.Cfg.Legacy.Database)
	if err != nil {
		slog.Error("Failed to connect to legacy database", slog.Any("error", err))
		os.Exit(-1)
	}

	importer := migration.NewImporter(app.DB.BunDB(), mongoDB)
	if err := importer.Run(ctx); err != nil {
		slog.Error("Legacy import failed", slog.Any("error", err))
		os.Exit(-1)
	}
	if err := importer.Verify(ctx); err != nil {
		slog.Error("Legacy import verification failed", slog.Any("error", err))
		os.Exit(-1)
	}
}

// printReport mirrors the operator's home screen: pool counts, per-team
// spend, and the latest sales.
func printReport(ctx context.Context, app *auction.App) {
	stats, err := app.Roster.Stats(ctx)
	if err != nil {
		slog.Error("Failed to load pool stats", slog.Any("error", err))
		os.Exit(-1)
	}

	fmt.Printf("Players: %d total, %d sold, %d unsold | Teams: %d\n",
		stats.TotalPlayers, stats.SoldPlayers, stats.UnsoldPlayers, stats.TotalTeams)

	summaries, err := app.Roster.AllSpendSummaries(ctx)
	if err != nil {
		slog.Error("Failed to load spend summaries", slog.Any("error", err))
		os.Exit(-1)
	}
	for _, s := range summaries {
		fmt.Printf("  %-24s budget %10d  spent %10d\n", s.Team, s.Budget, s.Spent)
	}

	recent, err := app.Roster.RecentSales(ctx, 5)
	if err != nil {
		slog.Error("Failed to load recent sales", slog.Any("error", err))
		os.Exit(-1)
	}
	for _, t := range recent {
		fmt.Printf("  %s -> %s for %d\n", t.Player.Name, t.Team.Name, t.BidAmount)
	}
}
