package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/api"
	"github.com/thenoetrevino/kanban/internal/app"
	"github.com/thenoetrevino/kanban/internal/auth"
	"github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/config"
	"github.com/thenoetrevino/kanban/internal/database"
	"github.com/thenoetrevino/kanban/internal/hub"
	"github.com/thenoetrevino/kanban/internal/logging"
	"github.com/thenoetrevino/kanban/internal/telemetry"
)

// ServeCmd returns the serve command, which runs the REST API and the
// realtime endpoint
func ServeCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kanban server",
		Long: `Run the REST API and the realtime websocket endpoint.

With realtime.redis_url set, events are sequenced and fanned out through
Redis so several server instances can share boards.

Examples:
  kanban serve
  kanban serve --addr :9000 --db /tmp/kanban.db
  KANBAN_JWT_SECRET=dev kanban serve --redis redis://localhost:6379/0
`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().String("addr", "", "Listen address (default server.addr)")
	cmd.Flags().String("db", "", "SQLite database path (default database.path)")
	cmd.Flags().String("redis", "", "Redis URL for multi-instance fan-out (default realtime.redis_url)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		env.Bind(cmd)
		f := env.Formatter()
		cfg, err := env.Config()
		if err != nil {
			return f.Fail(err)
		}
		if v, _ := cmd.Flags().GetString("addr"); v != "" {
			cfg.Server.Addr = v
		}
		if v, _ := cmd.Flags().GetString("db"); v != "" {
			cfg.Database.Path = v
		}
		if v, _ := cmd.Flags().GetString("redis"); v != "" {
			cfg.Realtime.RedisURL = v
		}

		if err := Serve(cmd.Context(), cfg); err != nil {
			return f.Fail(err)
		}
		return nil
	}
	return cmd
}

// Serve wires the server together from cfg and blocks until ctx is done
func Serve(ctx context.Context, cfg *config.Config) error {
	log, closer, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		JSON:       cfg.Logging.JSON,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	shutdownTracing := telemetry.Setup(log)

	db, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := database.NewRepository(db)

	hubOpts := []hub.Option{
		hub.WithLogger(log),
		hub.WithConfig(hub.Config{
			QueueSize:          cfg.Realtime.QueueSize,
			ClientBuffer:       cfg.Realtime.ClientBuffer,
			PingInterval:       cfg.Realtime.PingInterval,
			StaleAfter:         cfg.Realtime.StaleAfter,
			RevalidateInterval: cfg.Realtime.RevalidateInterval,
		}),
		hub.WithCheckOrigin(checkOrigin(cfg.Server.AllowedOrigins)),
	}
	if cfg.Realtime.RedisURL != "" {
		rc, err := connectRedis(ctx, cfg.Realtime.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		hubOpts = append(hubOpts,
			hub.WithRelay(hub.NewRelay(rc, cfg.Realtime.ChannelPrefix, log)),
			hub.WithSequencer(hub.NewRedisSequencer(rc, cfg.Realtime.ChannelPrefix)),
		)
		log.WithField("prefix", cfg.Realtime.ChannelPrefix).Info("relaying events through redis")
	}

	// the hub checks membership through the app, which publishes through
	// the hub
	var a *app.App
	h := hub.New(memberFunc(func(ctx context.Context, boardID int, userID string) (bool, error) {
		return a.IsMember(ctx, boardID, userID)
	}), hubOpts...)
	a = app.New(repo, app.WithPublisher(h), app.WithSequences(h))

	authn, err := auth.New(auth.Options{
		Secret:   cfg.Auth.JWTSecret,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
		Log:      log,
	})
	if err != nil {
		return fmt.Errorf("failed to configure authentication: %w", err)
	}
	defer authn.Close()

	e := api.NewServer(api.Deps{
		App:      a,
		Auth:     authn,
		Realtime: h,
		Health:   db.PingContext,
		Log:      log,
	}, api.Options{AllowedOrigins: cfg.Server.AllowedOrigins})

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hubDone := make(chan error, 1)
	go func() { hubDone <- h.Start(hubCtx) }()

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("kanban server starting")
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("kanban server shutting down gracefully")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown did not complete")
	}
	stopHub()
	if err := <-hubDone; err != nil {
		log.WithError(err).Error("hub shutdown did not complete")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracing shutdown failed")
	}
	return runErr
}

type memberFunc func(ctx context.Context, boardID int, userID string) (bool, error)

func (f memberFunc) IsMember(ctx context.Context, boardID int, userID string) (bool, error) {
	return f(ctx, boardID, userID)
}

func connectRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return rc, nil
}

// checkOrigin accepts non-browser clients (no Origin header), same-host
// pages and any origin in allowed. A "*" entry allows everything.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
