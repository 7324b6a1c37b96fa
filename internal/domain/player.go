package domain

import (
	"time"

	"github.com/google/uuid"
)

// Player represents a players row. The balance here is the single source of
// truth for chips; table state never carries balances.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
