package models

import "time"

// DefaultColor is used for board backgrounds and label colors when none is given
const DefaultColor = "#6366f1"

// Field limits
const (
	MaxBoardTitleLength       = 100
	MaxBoardDescriptionLength = 500
	MaxListTitleLength        = 100
	MaxTaskTitleLength        = 200
	MaxTaskDescriptionLength  = 2000
	MaxLabelTextLength        = 30
)

// Board is a shared kanban board. The owner is always one of the members.
type Board struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Background  string    `json:"background"`
	OwnerID     string    `json:"ownerId"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GetID returns the board id (used by quiet CLI output)
func (b *Board) GetID() int { return b.ID }

// HasMember reports whether userID is a member of the board
func (b *Board) HasMember(userID string) bool {
	for _, m := range b.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// BoardSnapshot is the full state of a board as loaded by a client.
// Seq is the last event sequence number emitted for the board when the
// snapshot was taken.
type BoardSnapshot struct {
	Board *Board  `json:"board"`
	Lists []*List `json:"lists"`
	Tasks []*Task `json:"tasks"`
	Seq   int64   `json:"seq"`
}
