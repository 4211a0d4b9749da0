package boardstate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
)

// ErrBoardGone is returned once the board was deleted or the user lost access
var ErrBoardGone = errors.New("board is no longer available")

// API is the part of the REST client the reconciler needs
type API interface {
	GetBoard(ctx context.Context, id int) (*models.BoardSnapshot, error)
	MoveTask(ctx context.Context, m apiclient.MoveTask) (*events.TaskMovedPayload, error)
	MoveList(ctx context.Context, listID, newIndex int) ([]*models.List, error)
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithRefetchOnMove re-fetches the whole board after every successful move
// and on every task:moved broadcast instead of patching the affected lists
func WithRefetchOnMove(on bool) Option {
	return func(r *Reconciler) { r.refetchOnMove = on }
}

// WithUserID tells the reconciler who is viewing, so a member:removed event
// naming them closes the board
func WithUserID(id string) Option {
	return func(r *Reconciler) { r.userID = id }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Reconciler) { r.log = l }
}

// WithOnChange registers a callback invoked with a copy of the state after
// every change. It runs on the goroutine that caused the change.
func WithOnChange(fn func(*State)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

// Reconciler owns a client's copy of one board
type Reconciler struct {
	api           API
	boardID       int
	userID        string
	refetchOnMove bool
	log           logrus.FieldLogger
	onChange      func(*State)

	fetchMu sync.Mutex // serializes re-fetches

	mu       sync.Mutex
	state    *State
	gone     bool
	refetchN int
}

// New creates a reconciler for boardID. Call Load before use.
func New(api API, boardID int, opts ...Option) *Reconciler {
	r := &Reconciler{api: api, boardID: boardID, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BoardID returns the board being tracked
func (r *Reconciler) BoardID() int { return r.boardID }

// Load fetches the board snapshot and replaces the local state with it
func (r *Reconciler) Load(ctx context.Context) error {
	return r.refetch(ctx)
}

// State returns a copy of the current state, nil before Load
func (r *Reconciler) State() *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Seq returns the sequence number the local state reflects
func (r *Reconciler) Seq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return 0
	}
	return r.state.Seq
}

// Gone reports whether the board was deleted or access was lost
func (r *Reconciler) Gone() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gone
}

// Refetches returns how many full re-fetches have happened, Load included
func (r *Reconciler) Refetches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refetchN
}

func (r *Reconciler) refetch(ctx context.Context) error {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()

	snap, err := r.api.GetBoard(ctx, r.boardID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrForbidden) {
			r.markGone()
		}
		return fmt.Errorf("failed to load board %d: %w", r.boardID, err)
	}

	r.mu.Lock()
	r.state = FromSnapshot(snap)
	r.refetchN++
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{"board_id": r.boardID, "seq": snap.Seq}).Debug("board re-fetched")
	r.changed()
	return nil
}

func (r *Reconciler) markGone() {
	r.mu.Lock()
	r.gone = true
	r.mu.Unlock()
}

func (r *Reconciler) changed() {
	if r.onChange == nil {
		return
	}
	if st := r.State(); st != nil {
		r.onChange(st)
	}
}

// update runs fn against the live state under the lock
func (r *Reconciler) update(fn func(s *State) error) error {
	r.mu.Lock()
	if r.state == nil {
		r.mu.Unlock()
		return errors.New("board not loaded")
	}
	if r.gone {
		r.mu.Unlock()
		return ErrBoardGone
	}
	err := fn(r.state)
	r.mu.Unlock()
	if err == nil {
		r.changed()
	}
	return err
}

// MoveTask moves a task to destListID at newIndex. The local state changes
// immediately; if the server rejects the move the board is re-fetched and the
// server's error is returned. An accepted move keeps the local state until
// the sequenced task:moved broadcast confirms it.
func (r *Reconciler) MoveTask(ctx context.Context, taskID, destListID, newIndex int) error {
	var srcListID int
	err := r.update(func(s *State) error {
		var err error
		srcListID, _, err = s.MoveTask(taskID, destListID, newIndex)
		return err
	})
	if err != nil {
		return err
	}

	_, err = r.api.MoveTask(ctx, apiclient.MoveTask{
		TaskID:            taskID,
		SourceListID:      srcListID,
		DestinationListID: destListID,
		NewPosition:       newIndex,
	})
	if err != nil {
		r.log.WithError(err).WithField("task_id", taskID).Warn("move rejected, restoring server state")
		if ferr := r.refetch(ctx); ferr != nil {
			r.log.WithError(ferr).Error("failed to restore board after rejected move")
		}
		return err
	}

	// The response carries no sequence number and may be older than
	// broadcasts already merged; it is not applied.
	if r.refetchOnMove {
		return r.refetch(ctx)
	}
	return nil
}

// MoveList moves a list to newIndex, with the same rollback as MoveTask
func (r *Reconciler) MoveList(ctx context.Context, listID, newIndex int) error {
	if err := r.update(func(s *State) error {
		_, err := s.MoveList(listID, newIndex)
		return err
	}); err != nil {
		return err
	}

	_, err := r.api.MoveList(ctx, listID, newIndex)
	if err != nil {
		r.log.WithError(err).WithField("list_id", listID).Warn("list move rejected, restoring server state")
		if ferr := r.refetch(ctx); ferr != nil {
			r.log.WithError(ferr).Error("failed to restore board after rejected list move")
		}
		return err
	}

	if r.refetchOnMove {
		return r.refetch(ctx)
	}
	return nil
}

// HandleEvent merges a broadcast. Events at or below the local sequence are
// dropped, and a gap in the sequence triggers a re-fetch, as does any event
// that cannot be merged by id.
func (r *Reconciler) HandleEvent(ctx context.Context, ev events.Event) error {
	if ev.Type == events.EventResync {
		return r.refetch(ctx)
	}
	if ev.BoardID != r.boardID {
		return nil
	}

	switch ev.Type {
	case events.BoardDeleted:
		r.markGone()
		r.changed()
		return ErrBoardGone
	case events.MemberRemoved:
		var p events.MemberPayload
		if err := ev.Decode(&p); err == nil && r.userID != "" && p.UserID == r.userID {
			r.markGone()
			r.changed()
			return ErrBoardGone
		}
	}

	r.mu.Lock()
	if r.state == nil || r.gone {
		r.mu.Unlock()
		return nil
	}
	last := r.state.Seq
	switch {
	case ev.Seq == 0:
		// unsequenced delivery, merged on its own
	case ev.Seq <= last:
		r.mu.Unlock()
		return nil
	case ev.Seq > last+1:
		r.mu.Unlock()
		r.log.WithFields(logrus.Fields{"board_id": r.boardID, "have": last, "got": ev.Seq}).Info("sequence gap, re-fetching")
		return r.refetch(ctx)
	}

	var (
		refetch bool
		err     error
	)
	if ev.Type == events.TaskMoved && r.refetchOnMove {
		refetch = true
	} else {
		refetch, err = r.state.Apply(ev)
	}
	if ev.Seq > 0 {
		r.state.Seq = ev.Seq
	}
	r.mu.Unlock()

	if err != nil {
		r.log.WithError(err).WithField("type", ev.Type).Warn("failed to apply event")
	}
	if refetch {
		return r.refetch(ctx)
	}
	r.changed()
	return nil
}

// Run applies events until the channel closes or ctx ends. ErrBoardGone stops
// it; other errors are logged.
func (r *Reconciler) Run(ctx context.Context, in <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			if err := r.HandleEvent(ctx, ev); err != nil {
				if errors.Is(err, ErrBoardGone) {
					return err
				}
				r.log.WithError(err).Warn("failed to handle event")
			}
		}
	}
}
