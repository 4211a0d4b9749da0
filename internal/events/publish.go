package events

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// New builds an event with a fresh id and the payload encoded
func New(boardID int, typ EventType, actorID string, payload any) (Event, error) {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      typ,
		BoardID:   boardID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := sonic.Marshal(payload)
		if err != nil {
			return Event{}, err
		}
		ev.Payload = raw
	}
	return ev, nil
}

// Emit builds and publishes an event. Errors are logged but not returned
// (fire-and-forget pattern); a nil publisher is a no-op.
func Emit(ctx context.Context, pub Publisher, boardID int, typ EventType, actorID string, payload any) {
	if pub == nil {
		return
	}
	ev, err := New(boardID, typ, actorID, payload)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event_type": typ,
			"board_id":   boardID,
		}).Warn("failed to encode event payload")
		return
	}
	pub.Publish(ctx, ev)
}

// Recorder is a Publisher that keeps every event, for tests and tooling
type Recorder struct {
	ch chan Event
}

// NewRecorder returns a Recorder that buffers up to size events
func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan Event, size)}
}

// Publish records event, dropping it when the buffer is full
func (r *Recorder) Publish(_ context.Context, event Event) {
	select {
	case r.ch <- event:
	default:
	}
}

// Events drains everything recorded so far
func (r *Recorder) Events() []Event {
	var out []Event
	for {
		select {
		case ev := <-r.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}
