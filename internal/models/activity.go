package models

import "time"

// ActivityAction is the kind of audit event recorded for a board
type ActivityAction string

const (
	ActionCreatedBoard   ActivityAction = "created_board"
	ActionUpdatedBoard   ActivityAction = "updated_board"
	ActionDeletedBoard   ActivityAction = "deleted_board"
	ActionCreatedList    ActivityAction = "created_list"
	ActionUpdatedList    ActivityAction = "updated_list"
	ActionDeletedList    ActivityAction = "deleted_list"
	ActionCreatedTask    ActivityAction = "created_task"
	ActionUpdatedTask    ActivityAction = "updated_task"
	ActionDeletedTask    ActivityAction = "deleted_task"
	ActionMovedTask      ActivityAction = "moved_task"
	ActionAssignedUser   ActivityAction = "assigned_user"
	ActionUnassignedUser ActivityAction = "unassigned_user"
	ActionAddedMember    ActivityAction = "added_member"
	ActionRemovedMember  ActivityAction = "removed_member"
)

// EntityType names the kind of entity an activity refers to
type EntityType string

const (
	EntityBoard EntityType = "board"
	EntityList  EntityType = "list"
	EntityTask  EntityType = "task"
	EntityUser  EntityType = "user"
)

// Activity is an append-only audit record on a board
type Activity struct {
	ID          int            `json:"id"`
	ActorID     string         `json:"actorId"`
	BoardID     int            `json:"boardId"`
	Action      ActivityAction `json:"action"`
	EntityType  EntityType     `json:"entityType"`
	EntityTitle string         `json:"entityTitle"`
	Details     string         `json:"details"`
	CreatedAt   time.Time      `json:"createdAt"`
}
