// Package cli runs a complete kanban server in-process so the cobra
// commands can be exercised end to end.
package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/api"
	"github.com/thenoetrevino/kanban/internal/app"
	"github.com/thenoetrevino/kanban/internal/auth"
	kcli "github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/config"
	"github.com/thenoetrevino/kanban/internal/database"
	"github.com/thenoetrevino/kanban/internal/hub"
	"github.com/thenoetrevino/kanban/internal/logging"
	"github.com/thenoetrevino/kanban/internal/testutil"
)

const secret = "cli-test-secret"

// Server is a running kanban server backed by an in-memory database
type Server struct {
	URL  string
	Repo *database.Repository
	Hub  *hub.Hub
}

type members func(ctx context.Context, boardID int, userID string) (bool, error)

func (m members) IsMember(ctx context.Context, boardID int, userID string) (bool, error) {
	return m(ctx, boardID, userID)
}

// NewServer starts a server that accepts tokens minted by Token.
// Cleanup is automatic via t.Cleanup().
func NewServer(t *testing.T) *Server {
	t.Helper()
	repo := testutil.NewStore(t)
	log := logging.Discard()

	var a *app.App
	h := hub.New(members(func(ctx context.Context, boardID int, userID string) (bool, error) {
		return a.IsMember(ctx, boardID, userID)
	}), hub.WithLogger(log))
	a = app.New(repo, app.WithPublisher(h), app.WithSequences(h))

	authn, err := auth.New(auth.Options{Secret: secret, Log: log})
	if err != nil {
		t.Fatalf("Failed to configure auth: %v", err)
	}

	e := api.NewServer(api.Deps{App: a, Auth: authn, Realtime: h, Log: log}, api.Options{})
	srv := httptest.NewServer(e)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Start(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
		authn.Close()
	})
	return &Server{URL: srv.URL, Repo: repo, Hub: h}
}

// Token mints a token for user
func (s *Server) Token(t *testing.T, user string) string {
	t.Helper()
	tok, err := auth.Issue(secret, auth.IssueParams{UserID: user, Name: user, TTL: time.Hour})
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return tok
}

// Env returns a CLI environment that talks to s as user
func (s *Server) Env(t *testing.T, user string) *kcli.Env {
	t.Helper()
	cfg := config.Default()
	cfg.Client.ServerURL = s.URL
	cfg.Client.Token = s.Token(t, user)
	cfg.Client.Timeout = 5 * time.Second
	env := &kcli.Env{}
	env.SetConfig(cfg)
	return env
}

// Result is what a command printed
type Result struct {
	Out    string
	ErrOut string
}

// Execute runs cmd with args under a root carrying the global output
// flags, the way the kanban binary does
func Execute(t *testing.T, env *kcli.Env, cmd *cobra.Command, args ...string) (Result, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	env.Out = &out
	env.ErrOut = &errOut

	root := &cobra.Command{Use: "kanban", SilenceUsage: true, SilenceErrors: true}
	env.AddOutputFlags(root)
	root.AddCommand(cmd)
	root.SetArgs(append([]string{cmd.Name()}, args...))
	root.SetOut(&out)
	root.SetErr(&errOut)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return Result{Out: out.String(), ErrOut: errOut.String()}, err
}

// ParseJSON parses JSON output from CLI commands
func ParseJSON(t *testing.T, output string) map[string]any {
	t.Helper()

	var result map[string]any
	if err := sonic.UnmarshalString(output, &result); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nOutput: %s", err, output)
	}

	return result
}

// IDs parses the one-id-per-line output of --quiet
func IDs(t *testing.T, output string) []string {
	t.Helper()
	return strings.Fields(output)
}
