package hub

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/thenoetrevino/kanban/internal/events"
)

// Relay carries board events between servers through Redis pub/sub. Every
// server publishes to board:<id> and pattern-subscribes to all boards, so a
// server delivers its own events through the same path as everyone else's.
type Relay struct {
	rc      *redis.Client
	prefix  string
	breaker *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

// NewRelay creates a relay using channels named prefix+"board:<id>"
func NewRelay(rc *redis.Client, prefix string, log logrus.FieldLogger) *Relay {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Relay{rc: rc, prefix: prefix, log: log}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-relay",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	return r
}

// Channel returns the pub/sub channel of a board
func (r *Relay) Channel(boardID int) string {
	return r.prefix + "board:" + strconv.Itoa(boardID)
}

// Ping checks the Redis connection
func (r *Relay) Ping(ctx context.Context) error {
	return r.rc.Ping(ctx).Err()
}

// Publish sends ev to its board channel. It fails fast while the breaker is
// open.
func (r *Relay) Publish(ctx context.Context, ev events.Event) error {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.rc.Publish(ctx, r.Channel(ev.BoardID), data).Err()
	})
	if err != nil {
		return fmt.Errorf("relaying event %s: %w", ev.ID, err)
	}
	return nil
}

// Subscribe receives every board's events and hands them to deliver in
// arrival order until ctx is done. ready, if not nil, is closed once the first
// subscription is confirmed. A dropped subscription is re-established.
func (r *Relay) Subscribe(ctx context.Context, deliver func(events.Event), ready chan<- struct{}) {
	pattern := r.prefix + "board:*"
	for {
		sub := r.rc.PSubscribe(ctx, pattern)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return
			}
			r.log.WithError(err).Error("relay subscribe failed, retrying")
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}
		if ready != nil {
			close(ready)
			ready = nil
		}

		r.consume(ctx, sub.Channel(), deliver)
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		r.log.Error("relay channel closed, reconnecting")
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

func (r *Relay) consume(ctx context.Context, ch <-chan *redis.Message, deliver func(events.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev events.Event
			if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
				r.log.WithError(err).WithField("channel", msg.Channel).Error("unable to decode relayed event")
				continue
			}
			if !strings.HasSuffix(msg.Channel, ":"+strconv.Itoa(ev.BoardID)) {
				r.log.WithField("channel", msg.Channel).Warn("relayed event board does not match channel")
				continue
			}
			deliver(ev)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
