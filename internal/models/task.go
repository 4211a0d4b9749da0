package models

import "time"

// Priority is the urgency of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Label is a colored tag attached to a task
type Label struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Task represents a single card in a list
type Task struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ListID      int        `json:"listId"`
	BoardID     int        `json:"boardId"`
	Position    int        `json:"position"`
	Assignees   []string   `json:"assignees"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Labels      []Label    `json:"labels"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// GetID returns the task id
func (t *Task) GetID() int { return t.ID }

// Clone returns a deep copy of the task
func (t *Task) Clone() *Task {
	c := *t
	c.Assignees = append([]string(nil), t.Assignees...)
	c.Labels = append([]Label(nil), t.Labels...)
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}
