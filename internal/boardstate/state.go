// Package boardstate keeps a client's local copy of a board in step with the
// server: moves are applied optimistically, broadcasts are merged by id, and
// anything that cannot be merged safely falls back to a full re-fetch.
package boardstate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
	"github.com/thenoetrevino/kanban/internal/position"
)

// ErrUnknownTask and ErrUnknownList are returned by optimistic moves that
// reference something the local state does not hold
var (
	ErrUnknownTask = errors.New("task is not on this board")
	ErrUnknownList = errors.New("list is not on this board")
)

// State is the local copy of one board. Lists are in display order, and each
// list's tasks are in display order with Position equal to the slice index.
type State struct {
	Board *models.Board
	Lists []*models.List
	Tasks map[int][]*models.Task // by list id
	Seq   int64
}

// FromSnapshot builds a state from a server snapshot
func FromSnapshot(snap *models.BoardSnapshot) *State {
	s := &State{
		Board: snap.Board,
		Lists: append([]*models.List(nil), snap.Lists...),
		Tasks: make(map[int][]*models.Task, len(snap.Lists)),
		Seq:   snap.Seq,
	}
	sort.SliceStable(s.Lists, func(i, j int) bool {
		if s.Lists[i].Position != s.Lists[j].Position {
			return s.Lists[i].Position < s.Lists[j].Position
		}
		return s.Lists[i].ID < s.Lists[j].ID
	})
	for _, l := range s.Lists {
		s.Tasks[l.ID] = nil
	}
	for _, t := range snap.Tasks {
		s.Tasks[t.ListID] = append(s.Tasks[t.ListID], t)
	}
	for id, tasks := range s.Tasks {
		sort.SliceStable(tasks, func(i, j int) bool {
			if tasks[i].Position != tasks[j].Position {
				return tasks[i].Position < tasks[j].Position
			}
			return tasks[i].ID < tasks[j].ID
		})
		s.Tasks[id] = tasks
	}
	return s
}

// Clone returns a deep copy, safe to hand to another goroutine
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{Seq: s.Seq, Tasks: make(map[int][]*models.Task, len(s.Tasks))}
	if s.Board != nil {
		b := *s.Board
		b.Members = append([]string(nil), s.Board.Members...)
		out.Board = &b
	}
	for _, l := range s.Lists {
		c := *l
		out.Lists = append(out.Lists, &c)
	}
	for id, tasks := range s.Tasks {
		cp := make([]*models.Task, len(tasks))
		for i, t := range tasks {
			cp[i] = t.Clone()
		}
		out.Tasks[id] = cp
	}
	return out
}

// List returns the list with id
func (s *State) List(id int) (*models.List, bool) {
	for _, l := range s.Lists {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// Task returns the task with id
func (s *State) Task(id int) (*models.Task, bool) {
	for _, tasks := range s.Tasks {
		for _, t := range tasks {
			if t.ID == id {
				return t, true
			}
		}
	}
	return nil, false
}

// TaskIDs returns the ids of a list's tasks in display order
func (s *State) TaskIDs(listID int) []int {
	tasks := s.Tasks[listID]
	ids := make([]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// ListIDs returns the list ids in display order
func (s *State) ListIDs() []int {
	ids := make([]int, len(s.Lists))
	for i, l := range s.Lists {
		ids[i] = l.ID
	}
	return ids
}

// ═══════════════════════════════════════════════════════════════════
// OPTIMISTIC MOVES
// ═══════════════════════════════════════════════════════════════════

// MoveTask relocates a task locally the way the server will, returning the
// list it came from and its final index
func (s *State) MoveTask(taskID, destListID, newIndex int) (int, int, error) {
	t, ok := s.Task(taskID)
	if !ok {
		return 0, 0, ErrUnknownTask
	}
	if _, ok := s.List(destListID); !ok {
		return 0, 0, ErrUnknownList
	}
	srcListID := t.ListID

	if srcListID == destListID {
		order, final, _, err := position.Move(taskItems(s.Tasks[srcListID]), taskID, newIndex)
		if err != nil {
			return 0, 0, err
		}
		s.setTaskOrders(map[int][]int{destListID: position.IDs(order)})
		return srcListID, final, nil
	}

	src, dst, final, _, _, err := position.Transfer(taskItems(s.Tasks[srcListID]), taskItems(s.Tasks[destListID]), taskID, newIndex)
	if err != nil {
		return 0, 0, err
	}
	s.setTaskOrders(map[int][]int{
		srcListID:  position.IDs(src),
		destListID: position.IDs(dst),
	})
	return srcListID, final, nil
}

// MoveList relocates a list locally and returns its final index
func (s *State) MoveList(listID, newIndex int) (int, error) {
	items := make([]position.Item, len(s.Lists))
	for i, l := range s.Lists {
		items[i] = position.Item{ID: l.ID, Position: i}
	}
	order, final, _, err := position.Move(items, listID, newIndex)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, ErrUnknownList
		}
		return 0, err
	}
	s.ApplyListOrder(position.IDs(order))
	return final, nil
}

// ═══════════════════════════════════════════════════════════════════
// BROADCASTS
// ═══════════════════════════════════════════════════════════════════

// ApplyTaskMoved patches both lists of a move from the complete orders in
// the payload. Applying the same payload twice leaves the same state. It
// reports false, changing nothing, when the local lists do not hold exactly
// the ids in the payload.
func (s *State) ApplyTaskMoved(p events.TaskMovedPayload) bool {
	if p.Task == nil {
		return false
	}
	if _, ok := s.List(p.DestinationListID); !ok {
		return false
	}
	if p.SourceListID != p.DestinationListID {
		if _, ok := s.List(p.SourceListID); !ok {
			return false
		}
	}

	local := map[int]bool{}
	for _, id := range s.TaskIDs(p.DestinationListID) {
		local[id] = true
	}
	want := append([]int(nil), p.DestinationOrder...)
	if p.SourceListID != p.DestinationListID {
		for _, id := range s.TaskIDs(p.SourceListID) {
			local[id] = true
		}
		want = append(want, p.SourceOrder...)
	}
	if !sameSet(local, want) {
		return false
	}

	s.replaceTask(p.Task.Clone())
	orders := map[int][]int{p.DestinationListID: p.DestinationOrder}
	if p.SourceListID != p.DestinationListID {
		orders[p.SourceListID] = p.SourceOrder
	}
	s.setTaskOrders(orders)
	return true
}

// ApplyListOrder rearranges the lists to order. It reports false, changing
// nothing, when order does not name exactly the local lists.
func (s *State) ApplyListOrder(order []int) bool {
	local := make(map[int]bool, len(s.Lists))
	byID := make(map[int]*models.List, len(s.Lists))
	for _, l := range s.Lists {
		local[l.ID] = true
		byID[l.ID] = l
	}
	if !sameSet(local, order) {
		return false
	}
	lists := make([]*models.List, len(order))
	for i, id := range order {
		l := byID[id]
		l.Position = i
		lists[i] = l
	}
	s.Lists = lists
	return true
}

// Apply merges a broadcast into the state. It reports whether the event
// could not be merged and the board must be re-fetched.
func (s *State) Apply(ev events.Event) (refetch bool, err error) {
	switch ev.Type {
	case events.ListCreated, events.ListUpdated:
		var l models.List
		if err := ev.Decode(&l); err != nil {
			return true, err
		}
		s.upsertList(&l)

	case events.ListDeleted:
		var p events.ListDeletedPayload
		if err := ev.Decode(&p); err != nil {
			return true, err
		}
		s.removeList(p.ListID)
		return !s.ApplyListOrder(p.Order), nil

	case events.ListsReordered:
		var p events.ListsReorderedPayload
		if err := ev.Decode(&p); err != nil {
			return true, err
		}
		return !s.ApplyListOrder(p.Order), nil

	case events.TaskCreated, events.TaskUpdated:
		var t models.Task
		if err := ev.Decode(&t); err != nil {
			return true, err
		}
		return !s.upsertTask(&t), nil

	case events.TaskDeleted:
		var p events.TaskDeletedPayload
		if err := ev.Decode(&p); err != nil {
			return true, err
		}
		s.removeTask(p.TaskID)
		return !s.applyTaskOrder(p.ListID, p.Order), nil

	case events.TaskMoved:
		var p events.TaskMovedPayload
		if err := ev.Decode(&p); err != nil {
			return true, err
		}
		return !s.ApplyTaskMoved(p), nil

	case events.BoardUpdated:
		var b models.Board
		if err := ev.Decode(&b); err != nil {
			return true, err
		}
		s.Board = &b

	case events.MemberAdded, events.MemberRemoved:
		var p events.MemberPayload
		if err := ev.Decode(&p); err != nil {
			return true, err
		}
		if s.Board != nil {
			s.Board.Members = append([]string(nil), p.Members...)
		}
		if ev.Type == events.MemberRemoved {
			s.unassign(p.UserID)
		}

	default:
		return false, fmt.Errorf("unhandled event type %q", ev.Type)
	}
	return false, nil
}

// ═══════════════════════════════════════════════════════════════════
// helpers
// ═══════════════════════════════════════════════════════════════════

func taskItems(tasks []*models.Task) []position.Item {
	items := make([]position.Item, len(tasks))
	for i, t := range tasks {
		items[i] = position.Item{ID: t.ID, Position: i}
	}
	return items
}

func sameSet(have map[int]bool, ids []int) bool {
	if len(have) != len(ids) {
		return false
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !have[id] || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// setTaskOrders places the given tasks, looked up anywhere on the board,
// into each list in order and drops them from every other list
func (s *State) setTaskOrders(orders map[int][]int) {
	byID := map[int]*models.Task{}
	for _, tasks := range s.Tasks {
		for _, t := range tasks {
			byID[t.ID] = t
		}
	}
	placed := map[int]bool{}
	for listID, order := range orders {
		tasks := make([]*models.Task, 0, len(order))
		for i, id := range order {
			t, ok := byID[id]
			if !ok {
				continue
			}
			t.ListID = listID
			t.Position = i
			tasks = append(tasks, t)
			placed[id] = true
		}
		s.Tasks[listID] = tasks
	}
	for listID, tasks := range s.Tasks {
		if _, ok := orders[listID]; ok {
			continue
		}
		kept := tasks[:0:0]
		for _, t := range tasks {
			if !placed[t.ID] {
				kept = append(kept, t)
			}
		}
		s.Tasks[listID] = kept
	}
}

// applyTaskOrder reorders a list whose membership is unchanged
func (s *State) applyTaskOrder(listID int, order []int) bool {
	if _, ok := s.List(listID); !ok {
		return false
	}
	local := map[int]bool{}
	for _, id := range s.TaskIDs(listID) {
		local[id] = true
	}
	if !sameSet(local, order) {
		return false
	}
	s.setTaskOrders(map[int][]int{listID: order})
	return true
}

func (s *State) replaceTask(t *models.Task) {
	for lid, tasks := range s.Tasks {
		for i, old := range tasks {
			if old.ID == t.ID {
				t.ListID = lid
				t.Position = old.Position
				tasks[i] = t
				return
			}
		}
	}
}

// upsertTask replaces a known task in place or inserts a new one at its
// position. It reports false when the task's list is unknown or the task
// changed list, which only a move may do.
func (s *State) upsertTask(t *models.Task) bool {
	if _, ok := s.List(t.ListID); !ok {
		return false
	}
	if old, ok := s.Task(t.ID); ok {
		if old.ListID != t.ListID {
			return false
		}
		s.replaceTask(t)
		return true
	}
	tasks := s.Tasks[t.ListID]
	idx := position.Clamp(t.Position, len(tasks))
	tasks = append(tasks, nil)
	copy(tasks[idx+1:], tasks[idx:])
	tasks[idx] = t
	for i, x := range tasks {
		x.Position = i
	}
	s.Tasks[t.ListID] = tasks
	return true
}

func (s *State) removeTask(id int) {
	for lid, tasks := range s.Tasks {
		for i, t := range tasks {
			if t.ID == id {
				s.Tasks[lid] = append(tasks[:i:i], tasks[i+1:]...)
				return
			}
		}
	}
}

func (s *State) upsertList(l *models.List) {
	for i, old := range s.Lists {
		if old.ID == l.ID {
			l.Position = old.Position
			s.Lists[i] = l
			return
		}
	}
	idx := position.Clamp(l.Position, len(s.Lists))
	s.Lists = append(s.Lists, nil)
	copy(s.Lists[idx+1:], s.Lists[idx:])
	s.Lists[idx] = l
	for i, x := range s.Lists {
		x.Position = i
	}
	if _, ok := s.Tasks[l.ID]; !ok {
		s.Tasks[l.ID] = nil
	}
}

func (s *State) removeList(id int) {
	for i, l := range s.Lists {
		if l.ID == id {
			s.Lists = append(s.Lists[:i:i], s.Lists[i+1:]...)
			break
		}
	}
	delete(s.Tasks, id)
}

func (s *State) unassign(userID string) {
	for _, tasks := range s.Tasks {
		for _, t := range tasks {
			kept := t.Assignees[:0:0]
			for _, a := range t.Assignees {
				if a != userID {
					kept = append(kept, a)
				}
			}
			t.Assignees = kept
		}
	}
}
