package list

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/testutil"
	clitest "github.com/thenoetrevino/kanban/internal/testutil/cli"
)

func listTitles(t *testing.T, srv *clitest.Server, boardID int) []string {
	t.Helper()
	lists, err := srv.Repo.GetListsByBoard(context.Background(), boardID)
	if err != nil {
		t.Fatalf("Failed to load lists: %v", err)
	}
	titles := make([]string, len(lists))
	for i, l := range lists {
		titles[i] = l.Title
	}
	return titles
}

func TestCreateListCommand(t *testing.T) {
	srv := clitest.NewServer(t)
	b := testutil.Board(t, srv.Repo, "alice")
	board := strconv.Itoa(b.ID)

	tests := []struct {
		name      string
		user      string
		args      []string
		wantCode  int
		checkFunc func(t *testing.T, output string)
	}{
		{
			name: "create with quiet output",
			user: "alice",
			args: []string{"--board", board, "--title", "Todo", "--quiet"},
			checkFunc: func(t *testing.T, output string) {
				if _, err := strconv.Atoi(strings.TrimSpace(output)); err != nil {
					t.Fatalf("Expected numeric list ID, got: %s", output)
				}
			},
		},
		{
			name: "create appends with JSON output",
			user: "alice",
			args: []string{"--board", board, "--title", "Done", "--json"},
			checkFunc: func(t *testing.T, output string) {
				data := clitest.ParseJSON(t, output)["data"].(map[string]any)
				if data["position"] != float64(1) {
					t.Errorf("Expected new list at position 1, got %v", data["position"])
				}
			},
		},
		{
			name:     "blank title is rejected",
			user:     "alice",
			args:     []string{"--board", board, "--title", "  "},
			wantCode: cli.ExitValidation,
		},
		{
			name:     "non-member is forbidden",
			user:     "mallory",
			args:     []string{"--board", board, "--title", "Sneaky"},
			wantCode: cli.ExitForbidden,
		},
		{
			name:     "missing board flag",
			user:     "alice",
			args:     []string{"--title", "Orphan"},
			wantCode: cli.ExitGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := srv.Env(t, tt.user)
			res, err := clitest.Execute(t, env, ListCmd(env), append([]string{"create"}, tt.args...)...)
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Fatalf("Exit code = %d, want %d (err: %v, stderr: %s)", got, tt.wantCode, err, res.ErrOut)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, res.Out)
			}
		})
	}

	if got := listTitles(t, srv, b.ID); strings.Join(got, ",") != "Todo,Done" {
		t.Errorf("Lists = %v, want [Todo Done]", got)
	}
}

func TestMoveListCommand(t *testing.T) {
	srv := clitest.NewServer(t)
	b := testutil.Board(t, srv.Repo, "alice")
	testutil.List(t, srv.Repo, b.ID, "A")
	testutil.List(t, srv.Repo, b.ID, "B")
	c := testutil.List(t, srv.Repo, b.ID, "C")
	env := srv.Env(t, "alice")

	tests := []struct {
		name  string
		index string
		want  string
	}{
		{"to the front", "0", "C,A,B"},
		{"past the end clamps", "99", "A,B,C"},
		{"to the middle", "1", "A,C,B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := clitest.Execute(t, env, ListCmd(env), "move", strconv.Itoa(c.ID), tt.index, "--json")
			if err != nil {
				t.Fatalf("Unexpected error: %v (stderr: %s)", err, res.ErrOut)
			}
			if got := strings.Join(listTitles(t, srv, b.ID), ","); got != tt.want {
				t.Errorf("Order = %s, want %s", got, tt.want)
			}
			data := clitest.ParseJSON(t, res.Out)["data"].([]any)
			for i, raw := range data {
				if pos := raw.(map[string]any)["position"]; pos != float64(i) {
					t.Errorf("List %d has position %v, want dense positions", i, pos)
				}
			}
		})
	}

	t.Run("negative index is a usage error", func(t *testing.T) {
		_, err := clitest.Execute(t, env, ListCmd(env), "move", strconv.Itoa(c.ID), "--", "-1")
		if code := cli.ExitCode(err); code != cli.ExitUsage {
			t.Fatalf("Exit code = %d, want %d", code, cli.ExitUsage)
		}
	})
}

func TestReorderListsCommand(t *testing.T) {
	srv := clitest.NewServer(t)
	b := testutil.Board(t, srv.Repo, "alice")
	a := testutil.List(t, srv.Repo, b.ID, "A")
	bl := testutil.List(t, srv.Repo, b.ID, "B")
	testutil.List(t, srv.Repo, b.ID, "C")
	env := srv.Env(t, "alice")

	_, err := clitest.Execute(t, env, ListCmd(env), "reorder", "--board", strconv.Itoa(b.ID),
		strconv.Itoa(bl.ID), strconv.Itoa(a.ID))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := strings.Join(listTitles(t, srv, b.ID), ","); got != "B,A,C" {
		t.Errorf("Order = %s, want B,A,C (omitted lists keep their order after)", got)
	}
}

func TestDeleteListCommand(t *testing.T) {
	srv := clitest.NewServer(t)
	b := testutil.Board(t, srv.Repo, "alice")
	a := testutil.List(t, srv.Repo, b.ID, "A")
	testutil.List(t, srv.Repo, b.ID, "B")
	testutil.Tasks(t, srv.Repo, a, "gone with it")
	env := srv.Env(t, "alice")

	res, err := clitest.Execute(t, env, ListCmd(env), "delete", strconv.Itoa(a.ID))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(res.Out, "deleted") {
		t.Errorf("Expected confirmation, got: %s", res.Out)
	}

	lists, err := srv.Repo.GetListsByBoard(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("Failed to load lists: %v", err)
	}
	if len(lists) != 1 || lists[0].Position != 0 {
		t.Errorf("Expected remaining list compacted to position 0, got %+v", lists)
	}

	_, err = clitest.Execute(t, env, ListCmd(env), "delete", strconv.Itoa(a.ID))
	if code := cli.ExitCode(err); code != cli.ExitNotFound {
		t.Errorf("Deleting twice: exit code = %d, want %d", code, cli.ExitNotFound)
	}
}
