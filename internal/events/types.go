package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/thenoetrevino/kanban/internal/models"
)

// ProtocolVersion is the current wire protocol version
const ProtocolVersion = 1

// EventType indicates what kind of change occurred on a board
type EventType string

const (
	ListCreated    EventType = "list:created"
	ListUpdated    EventType = "list:updated"
	ListDeleted    EventType = "list:deleted"
	ListsReordered EventType = "lists:reordered"
	TaskCreated    EventType = "task:created"
	TaskUpdated    EventType = "task:updated"
	TaskDeleted    EventType = "task:deleted"
	TaskMoved      EventType = "task:moved"
	BoardUpdated   EventType = "board:updated"
	BoardDeleted   EventType = "board:deleted"
	MemberAdded    EventType = "member:added"
	MemberRemoved  EventType = "member:removed"

	// EventResync is produced locally by Client after a reconnect; it never
	// travels on the wire. Receivers should re-fetch the board.
	EventResync EventType = "resync"
)

// Event is one board-scoped change notification
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	BoardID   int             `json:"boardId"`
	Seq       int64           `json:"seq"` // per-board, monotonically increasing
	ActorID   string          `json:"actorId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.Type)
	}
	return sonic.Unmarshal(e.Payload, v)
}

// MessageType is the kind of frame sent over the realtime connection
type MessageType string

const (
	MsgEvent  MessageType = "event"
	MsgJoin   MessageType = "board:join"
	MsgLeave  MessageType = "board:leave"
	MsgJoined MessageType = "board:joined"
	MsgLeft   MessageType = "board:left"
	MsgPing   MessageType = "ping"
	MsgPong   MessageType = "pong"
	MsgError  MessageType = "error"
)

// Message wraps events and control messages for the wire protocol
type Message struct {
	Version int         `json:"version,omitempty"`
	Type    MessageType `json:"type"`
	BoardID int         `json:"boardId,omitempty"`
	Event   *Event      `json:"event,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// TaskMovedPayload carries enough to patch both scopes deterministically:
// the orders are the complete resulting id sequences of each list.
type TaskMovedPayload struct {
	Task              *models.Task `json:"task"`
	SourceListID      int          `json:"sourceListId"`
	DestinationListID int          `json:"destinationListId"`
	NewIndex          int          `json:"newIndex"`
	SourceOrder       []int        `json:"sourceOrder"`
	DestinationOrder  []int        `json:"destinationOrder"`
}

// ListsReorderedPayload carries the full list order of a board
type ListsReorderedPayload struct {
	BoardID int   `json:"boardId"`
	Order   []int `json:"order"`
}

// ListDeletedPayload identifies a removed list and the board's remaining order
type ListDeletedPayload struct {
	ListID  int   `json:"listId"`
	BoardID int   `json:"boardId"`
	Order   []int `json:"order"`
}

// TaskDeletedPayload identifies a removed task and its list's remaining order
type TaskDeletedPayload struct {
	TaskID  int   `json:"taskId"`
	ListID  int   `json:"listId"`
	BoardID int   `json:"boardId"`
	Order   []int `json:"order"`
}

// BoardDeletedPayload identifies a removed board
type BoardDeletedPayload struct {
	BoardID int `json:"boardId"`
}

// MemberPayload describes a membership change and the resulting member set
type MemberPayload struct {
	BoardID int      `json:"boardId"`
	UserID  string   `json:"userId"`
	Members []string `json:"members"`
}
