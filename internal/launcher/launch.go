package launcher

import (
	"context"
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/sirupsen/logrus"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/auth"
	"github.com/thenoetrevino/kanban/internal/boardstate"
	"github.com/thenoetrevino/kanban/internal/config"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/tui"
)

// Launch opens the board viewer for boardID and blocks until the user quits
// or ctx is cancelled. Live updates are optional: when the realtime endpoint
// cannot be reached the viewer still works and r re-fetches on demand.
func Launch(ctx context.Context, cfg *config.Config, boardID int, log logrus.FieldLogger) error {
	if cfg.Client.Token == "" {
		return fmt.Errorf("no token configured: %w", auth.ErrMissingToken)
	}
	userID, err := auth.Subject(cfg.Client.Token)
	if err != nil {
		return err
	}

	api := apiclient.New(cfg.Client.ServerURL, cfg.Client.Token, cfg.Client.Timeout)

	// Join before loading so nothing between the snapshot and the
	// subscription is lost; older events are dropped by sequence
	feed, closeFeed := subscribe(ctx, cfg, boardID, log)
	defer closeFeed()

	var p *tea.Program
	rec := boardstate.New(api, boardID,
		boardstate.WithRefetchOnMove(cfg.Client.RefetchOnMove),
		boardstate.WithUserID(userID),
		boardstate.WithLogger(log),
		boardstate.WithOnChange(func(s *boardstate.State) {
			if p != nil {
				p.Send(tui.StateMsg{State: s})
			}
		}),
	)
	if err := rec.Load(ctx); err != nil {
		return err
	}

	model := tui.New(ctx, rec, cfg)
	p = tea.NewProgram(model, tea.WithContext(ctx))

	if feed != nil {
		go func() {
			p.Send(tui.ConnMsg{Live: true})
			err := rec.Run(ctx, feed)
			p.Send(tui.ConnMsg{Live: false})
			if errors.Is(err, boardstate.ErrBoardGone) {
				p.Send(tui.GoneMsg{})
			}
		}()
	}

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running program: %w", err)
	}
	if m, ok := final.(tui.Model); ok {
		if err := m.Err(); err != nil {
			log.WithError(err).Debug("viewer closed with an error showing")
		}
	}
	return nil
}

// subscribe connects to the realtime endpoint and joins boardID. A nil
// channel means the viewer runs without live updates.
func subscribe(ctx context.Context, cfg *config.Config, boardID int, log logrus.FieldLogger) (<-chan events.Event, func()) {
	noop := func() {}

	client, err := events.NewClient(cfg.Client.ServerURL, cfg.Client.Token, events.WithLogger(log))
	if err != nil {
		log.WithError(err).Warn("failed to create realtime client")
		return nil, noop
	}
	if err := client.Connect(ctx); err != nil {
		log.WithError(err).Warn("failed to connect for live updates, continuing without them")
		return nil, noop
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Error("error closing realtime client")
		}
	}
	if err := client.Join(boardID); err != nil {
		log.WithError(err).Warn("failed to join board")
		closeFn()
		return nil, noop
	}
	feed, err := client.Listen(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to listen for events")
		closeFn()
		return nil, noop
	}
	return feed, closeFn
}
