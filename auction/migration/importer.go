package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bhavindev/cricket-auction/auction/database/models"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultBatchSize = 500

// legacyTeam mirrors the predecessor system's team document.
type legacyTeam struct {
	Name   string `bson:"name"`
	Logo   string `bson:"logo"`
	Budget int64  `bson:"budget"`
}

// legacyPlayer mirrors the predecessor system's player document. SoldTo
// carries the team name, the legacy join key.
type legacyPlayer struct {
	Name      string `bson:"name"`
	Photo     string `bson:"photo"`
	BasePrice int64  `bson:"base_price"`
	Type      string `bson:"type"`
	Age       *int   `bson:"age"`
	Stats     string `bson:"stats"`
	SoldTo    string `bson:"sold_to"`
	SoldPrice *int64 `bson:"sold_price"`
}

type ImportStats struct {
	Teams          int
	Players        int
	Sales          int
	SkippedTeams   int
	SkippedPlayers int
	StartTime      time.Time
}

// Importer copies players and teams from the predecessor system's MongoDB
// into the ledger. Teams come first so sold players can be re-keyed from the
// legacy team-name join to the surrogate team id; a history row is
// synthesized for every sold player so the ledger stays reconcilable.
type Importer struct {
	db        *bun.DB
	mongoDB   *mongo.Database
	batchSize int
	stats     ImportStats
}

func NewImporter(db *bun.DB, mongoDB *mongo.Database) *Importer {
	return &Importer{
		db:        db,
		mongoDB:   mongoDB,
		batchSize: defaultBatchSize,
		stats:     ImportStats{StartTime: time.Now()},
	}
}

// Connect opens the legacy MongoDB database.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to legacy mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping legacy mongo: %w", err)
	}

	return client.Database(database), nil
}

// SetBatchSize overrides the default insert batch size.
func (m *Importer) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

func (m *Importer) Stats() ImportStats {
	return m.stats
}

// Run imports teams, then players, then synthesizes history rows for sold
// players. Duplicate team names are skipped, a re-run does not double
// import.
func (m *Importer) Run(ctx context.Context) error {
	teamIDs, err := m.importTeams(ctx)
	if err != nil {
		return err
	}

	if err := m.importPlayers(ctx, teamIDs); err != nil {
		return err
	}

	slog.Info("Legacy import completed",
		slog.Int("teams", m.stats.Teams),
		slog.Int("players", m.stats.Players),
		slog.Int("sales", m.stats.Sales),
		slog.Int("skipped_teams", m.stats.SkippedTeams),
		slog.Int("skipped_players", m.stats.SkippedPlayers),
		slog.Duration("took", time.Since(m.stats.StartTime)))

	return nil
}

func (m *Importer) importTeams(ctx context.Context) (map[string]int64, error) {
	cur, err := m.mongoDB.Collection("teams").Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy teams: %w", err)
	}
	defer cur.Close(ctx)

	teamIDs := make(map[string]int64)
	for cur.Next(ctx) {
		var doc legacyTeam
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode legacy team: %w", err)
		}
		if doc.Name == "" {
			m.stats.SkippedTeams++
			continue
		}

		team := &models.Team{
			Name:      doc.Name,
			Logo:      doc.Logo,
			Budget:    doc.Budget,
			CreatedAt: time.Now(),
		}

		_, err := m.db.NewInsert().
			Model(team).
			On("CONFLICT (name) DO NOTHING").
			Returning("id").
			Exec(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to import team %s: %w", doc.Name, err)
		}

		if team.ID == 0 {
			// Conflict path: the team already exists from a previous run.
			existing := new(models.Team)
			if err := m.db.NewSelect().Model(existing).Where("name = ?", doc.Name).Scan(ctx); err != nil {
				return nil, fmt.Errorf("failed to resolve existing team %s: %w", doc.Name, err)
			}
			teamIDs[doc.Name] = existing.ID
			m.stats.SkippedTeams++
			continue
		}

		teamIDs[doc.Name] = team.ID
		m.stats.Teams++
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating legacy teams: %w", err)
	}
	return teamIDs, nil
}

func (m *Importer) importPlayers(ctx context.Context, teamIDs map[string]int64) error {
	cur, err := m.mongoDB.Collection("players").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to read legacy players: %w", err)
	}
	defer cur.Close(ctx)

	var players []*models.Player
	var sales []*models.Transaction

	flush := func() error {
		if len(players) == 0 {
			return nil
		}
		if _, err := m.db.NewInsert().Model(&players).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert player batch: %w", err)
		}

		// IDs are populated by the insert, build the history rows now.
		for _, p := range players {
			if p.SoldToTeamID == nil {
				continue
			}
			sales = append(sales, &models.Transaction{
				PlayerID:  p.ID,
				TeamID:    *p.SoldToTeamID,
				BidAmount: *p.SoldPrice,
				CreatedAt: time.Now(),
			})
		}
		m.stats.Players += len(players)
		players = players[:0]
		return nil
	}

	for cur.Next(ctx) {
		var doc legacyPlayer
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode legacy player: %w", err)
		}
		if doc.Name == "" || doc.BasePrice <= 0 {
			m.stats.SkippedPlayers++
			continue
		}

		player := &models.Player{
			Name:      doc.Name,
			Photo:     doc.Photo,
			BasePrice: doc.BasePrice,
			Type:      models.PlayerType(doc.Type),
			Age:       doc.Age,
			Stats:     doc.Stats,
			CreatedAt: time.Now(),
		}

		if doc.SoldTo != "" {
			teamID, ok := teamIDs[doc.SoldTo]
			if !ok || doc.SoldPrice == nil {
				// Orphaned sale, the legacy name join has no matching team.
				m.stats.SkippedPlayers++
				slog.Warn("Skipping player with orphaned sale",
					slog.String("player", doc.Name),
					slog.String("sold_to", doc.SoldTo))
				continue
			}
			player.SoldToTeamID = &teamID
			player.SoldPrice = doc.SoldPrice
		}

		players = append(players, player)
		if len(players) >= m.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := cur.Err(); err != nil {
		return fmt.Errorf("failed iterating legacy players: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	if len(sales) > 0 {
		if _, err := m.db.NewInsert().Model(&sales).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert history batch: %w", err)
		}
		m.stats.Sales = len(sales)
	}

	return nil
}

// Verify cross-checks the imported ledger: every team's cached budget plus
// its recorded spend must be consistent with the history rows.
func (m *Importer) Verify(ctx context.Context) error {
	var teams []*models.Team
	if err := m.db.NewSelect().Model(&teams).Scan(ctx); err != nil {
		return fmt.Errorf("failed to load teams for verification: %w", err)
	}

	for _, team := range teams {
		var fromPlayers, fromHistory int64

		err := m.db.NewSelect().
			Model((*models.Player)(nil)).
			ColumnExpr("COALESCE(SUM(sold_price), 0)").
			Where("sold_to_team_id = ?", team.ID).
			Scan(ctx, &fromPlayers)
		if err != nil {
			return fmt.Errorf("failed to sum player spend for %s: %w", team.Name, err)
		}

		err = m.db.NewSelect().
			Model((*models.Transaction)(nil)).
			ColumnExpr("COALESCE(SUM(bid_amount), 0)").
			Where("team_id = ?", team.ID).
			Scan(ctx, &fromHistory)
		if err != nil {
			return fmt.Errorf("failed to sum history spend for %s: %w", team.Name, err)
		}

		if fromPlayers != fromHistory {
			return fmt.Errorf("ledger mismatch for %s: players say %d, history says %d",
				team.Name, fromPlayers, fromHistory)
		}
	}

	return nil
}
