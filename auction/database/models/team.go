package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Team is a bidding franchise. The budget column is the remaining spendable
// amount; it only ever decreases and must stay >= 0. It is a cache of
// original budget minus the recorded sales, never the source of truth.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Name   string `bun:"name,notnull,unique"`
	Logo   string `bun:"logo"`
	Budget int64  `bun:"budget,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
