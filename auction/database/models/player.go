package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PlayerType string

const (
	PlayerTypeBatsman      PlayerType = "Batsman"
	PlayerTypeBowler       PlayerType = "Bowler"
	PlayerTypeAllRounder   PlayerType = "All-Rounder"
	PlayerTypeWicketKeeper PlayerType = "Wicket-Keeper"
)

// ValidPlayerType reports whether t is one of the known roles.
func ValidPlayerType(t PlayerType) bool {
	switch t {
	case PlayerTypeBatsman, PlayerTypeBowler, PlayerTypeAllRounder, PlayerTypeWicketKeeper:
		return true
	}
	return false
}

// Player is a registered auction candidate. A player is created unsold and
// transitions to sold exactly once; SoldToTeamID and SoldPrice are either
// both nil or both set.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID        int64      `bun:"id,pk,autoincrement"`
	Name      string     `bun:"name,notnull"`
	Photo     string     `bun:"photo"`
	BasePrice int64      `bun:"base_price,notnull"`
	Type      PlayerType `bun:"type,notnull"`
	Age       *int       `bun:"age"`
	Stats     string     `bun:"stats"`

	SoldToTeamID *int64 `bun:"sold_to_team_id"`
	SoldPrice    *int64 `bun:"sold_price"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Sold reports whether the player has been assigned to a team.
func (p *Player) Sold() bool {
	return p.SoldToTeamID != nil
}
