package app

import (
	"context"

	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/scopelock"
	boardservice "github.com/thenoetrevino/kanban/internal/services/board"
)

// Option is a functional option for configuring App initialization
type Option func(*appConfig)

// appConfig holds the configuration for App initialization
type appConfig struct {
	publisher events.Publisher
	locks     *scopelock.Locker
	seqs      boardservice.SeqReader
}

func newAppConfig(opts []Option) *appConfig {
	cfg := &appConfig{
		publisher: events.Discard,
		locks:     scopelock.New(),
		seqs:      noSeqs{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithPublisher sets where services send board events
func WithPublisher(p events.Publisher) Option {
	return func(cfg *appConfig) {
		if p != nil {
			cfg.publisher = p
		}
	}
}

// WithSequences sets the source of the seq stamped on board snapshots
func WithSequences(s boardservice.SeqReader) Option {
	return func(cfg *appConfig) {
		if s != nil {
			cfg.seqs = s
		}
	}
}

// WithLocker shares a scope locker with other writers in the process
func WithLocker(l *scopelock.Locker) Option {
	return func(cfg *appConfig) {
		if l != nil {
			cfg.locks = l
		}
	}
}

type noSeqs struct{}

func (noSeqs) Current(context.Context, int) (int64, error) { return 0, nil }
