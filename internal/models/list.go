package models

import "time"

// List is an ordered column of tasks on a board
type List struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	BoardID   int       `json:"boardId"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetID returns the list id
func (l *List) GetID() int { return l.ID }

// ListPosition pairs a list with an explicit position, as sent by clients
// reordering a board's lists in bulk
type ListPosition struct {
	ListID   int `json:"listId"`
	Position int `json:"position"`
}
