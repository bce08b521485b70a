package repositories

import "errors"

// Failure taxonomy surfaced to callers. All of these are recoverable,
// user-facing conditions; a failed operation leaves the store unchanged.
var (
	ErrDuplicateName      = errors.New("name already exists")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrAlreadySold        = errors.New("player already sold")
	ErrBelowBasePrice     = errors.New("bid below base price")
	ErrInsufficientBudget = errors.New("insufficient budget")
)
