package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/models"
)

func newFormatter(json, quiet bool) (*OutputFormatter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &OutputFormatter{JSON: json, Quiet: quiet, Out: &out, ErrOut: &errOut}, &out, &errOut
}

func TestSuccessQuietPrintsIDs(t *testing.T) {
	f, out, _ := newFormatter(false, true)

	require.NoError(t, f.Success(&models.Task{ID: 42}))
	require.NoError(t, f.Success([]*models.List{{ID: 1}, {ID: 2}}))
	require.NoError(t, f.Success("ignored"))

	assert.Equal(t, "42\n1\n2\n", out.String())
}

func TestSuccessJSONEnvelope(t *testing.T) {
	f, out, _ := newFormatter(true, false)

	require.NoError(t, f.Success(&models.Board{ID: 3, Title: "Roadmap"}))
	assert.Contains(t, out.String(), `"success":true`)
	assert.Contains(t, out.String(), `"title":"Roadmap"`)
}

func TestMessageModes(t *testing.T) {
	f, out, _ := newFormatter(false, true)
	require.NoError(t, f.Message("Board 1 deleted", map[string]any{"board_id": 1}))
	assert.Empty(t, out.String(), "quiet mode prints nothing")

	f, out, _ = newFormatter(true, false)
	require.NoError(t, f.Message("Board 1 deleted", map[string]any{"board_id": 1}))
	assert.Contains(t, out.String(), `"board_id":1`)

	f, out, _ = newFormatter(false, false)
	require.NoError(t, f.Message("Board 1 deleted", nil))
	assert.Contains(t, out.String(), "Board 1 deleted")
}

func TestFailReportsAndClassifies(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantName string
		wantMsg  string
	}{
		{"api not found", &apiclient.Error{Status: 404, Message: "task not found"}, ExitNotFound, "NOT_FOUND", "task not found"},
		{"api forbidden", &apiclient.Error{Status: 403, Message: "not a member"}, ExitForbidden, "FORBIDDEN", "not a member"},
		{"api validation", &apiclient.Error{Status: 400, Message: "bad"}, ExitValidation, "VALIDATION_ERROR", "bad"},
		{"api unauthenticated", &apiclient.Error{Status: 401}, ExitUnauthenticated, "UNAUTHENTICATED", "server returned 401"},
		{"wrapped model error", fmt.Errorf("load: %w", models.ErrNotFound), ExitNotFound, "NOT_FOUND", "load:"},
		{"other", errors.New("connection refused"), ExitGeneral, "ERROR", "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, out, _ := newFormatter(true, false)
			err := f.Fail(tt.err)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.True(t, exitErr.Reported)
			assert.Equal(t, tt.wantCode, exitErr.Code)
			assert.Equal(t, tt.wantCode, ExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			assert.Contains(t, out.String(), `"success":false`)
			assert.Contains(t, out.String(), tt.wantName)
			assert.Contains(t, out.String(), tt.wantMsg)
		})
	}
}

func TestFailHumanIncludesSuggestion(t *testing.T) {
	f, _, errOut := newFormatter(false, false)
	_ = f.Fail(&apiclient.Error{Status: 401, Message: "token expired"})

	assert.Contains(t, errOut.String(), "token expired")
	assert.Contains(t, errOut.String(), "Suggestion:")
	assert.Contains(t, errOut.String(), "kanban token")
}

func TestUsage(t *testing.T) {
	f, _, errOut := newFormatter(false, false)
	err := f.Usage("invalid board id \"x\"")

	assert.Equal(t, ExitUsage, ExitCode(err))
	assert.True(t, strings.Contains(errOut.String(), "invalid board id"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitDataErr, ExitCode(&ExitError{Code: ExitDataErr, Err: errors.New("stdin")}))
	assert.Equal(t, ExitForbidden, ExitCode(models.ErrForbidden))
	assert.Equal(t, ExitGeneral, ExitCode(errors.New("boom")))
}

func TestParseIDAndIndex(t *testing.T) {
	f, _, _ := newFormatter(false, false)

	id, err := ParseID(f, "board", "12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"0", "-3", "3abc", ""} {
		_, err := ParseID(f, "board", bad)
		assert.Equal(t, ExitUsage, ExitCode(err), "ParseID(%q)", bad)
	}

	idx, err := ParseIndex(f, "0")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = ParseIndex(f, "-1")
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestValidateColorHex(t *testing.T) {
	assert.NoError(t, ValidateColorHex("#FF00aa"))
	assert.Error(t, ValidateColorHex("red"))
	assert.Error(t, ValidateColorHex("#FFF"))
}
