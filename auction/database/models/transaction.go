package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Transaction is one row of the append-only auction history. Rows are never
// updated or deleted; team spend must always be recomputable from them.
type Transaction struct {
	bun.BaseModel `bun:"table:auction_history,alias:h"`

	ID        int64 `bun:"id,pk,autoincrement"`
	PlayerID  int64 `bun:"player_id,notnull"`
	TeamID    int64 `bun:"team_id,notnull"`
	BidAmount int64 `bun:"bid_amount,notnull"`

	Player *Player `bun:"rel:belongs-to,join:player_id=id"`
	Team   *Team   `bun:"rel:belongs-to,join:team_id=id"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
