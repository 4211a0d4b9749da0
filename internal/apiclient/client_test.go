package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/kanban/internal/models"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "tok", time.Second)
}

func TestMoveTaskSendsBodyAndDecodesResult(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tasks/reorder", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"taskId":3,"sourceListId":1,"destinationListId":2,"newPosition":0}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"task":{"id":3,"listId":2,"position":0},"sourceListId":1,"destinationListId":2,"newIndex":0,"sourceOrder":[4],"destinationOrder":[3,5]}`))
	})

	res, err := c.MoveTask(context.Background(), MoveTask{TaskID: 3, SourceListID: 1, DestinationListID: 2, NewPosition: 0})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Task.ListID)
	assert.Equal(t, []int{3, 5}, res.DestinationOrder)
}

func TestErrorsUnwrapToKinds(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, models.ErrValidation},
		{http.StatusUnauthorized, models.ErrUnauthenticated},
		{http.StatusForbidden, models.ErrForbidden},
		{http.StatusNotFound, models.ErrNotFound},
	}
	for _, tt := range tests {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":{"code":"x","message":"nope"}}`))
		})
		_, err := c.GetBoard(context.Background(), 1)
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "nope", apiErr.Message)
	}
}

func TestServerFaultHasNoKind(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	err := c.DeleteList(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrValidation))
	assert.Contains(t, err.Error(), "500")
}

func TestSearchEscapesQuery(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/boards/7/tasks/search", r.URL.Path)
		assert.Equal(t, "fix & ship", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`[{"id":1,"title":"fix & ship"}]`))
	})
	tasks, err := c.SearchTasks(context.Background(), 7, "fix & ship")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "fix & ship", tasks[0].Title)
}
