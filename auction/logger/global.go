package logger

import (
	"log/slog"
	"time"
)

// LogBid logs a processed bid, successful or not.
func LogBid(playerID int64, team string, amount int64, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "bid"),
		slog.Int64("player_id", playerID),
		slog.String("team", team),
		slog.Int64("amount", amount),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Bid rejected", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Bid processed", attrs...)
	}
}

// LogQuery logs database operations.
func LogQuery(query string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs,
			slog.String("query", query),
			slog.Any("error", err),
		)...)
	} else {
		slog.Info("Query executed", append(attrs,
			slog.String("query", query),
		)...)
	}
}
