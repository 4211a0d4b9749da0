package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/thenoetrevino/kanban/internal/app"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
	boardservice "github.com/thenoetrevino/kanban/internal/services/board"
	taskservice "github.com/thenoetrevino/kanban/internal/services/task"
)

const maxBodySize = 1 << 20

// decodeBody reads a JSON body, rejecting unknown fields
func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errValidation("invalid body: %v", err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════
// BOARDS
// ═══════════════════════════════════════════════════════════════════

type boardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Background  *string `json:"background"`
}

type memberRequest struct {
	UserID string `json:"userId"`
}

func listBoards(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, err := queryInt(c, "page")
		if err != nil {
			return err
		}
		limit, err := queryInt(c, "limit")
		if err != nil {
			return err
		}
		boards, err := a.Boards.ListBoards(c.Request().Context(), actor(c), boardservice.ListFilter{
			Search: strings.TrimSpace(c.QueryParam("search")),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			return err
		}
		if boards == nil {
			boards = []*models.Board{}
		}
		return c.JSON(http.StatusOK, boards)
	}
}

func createBoard(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req boardRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		b, err := a.Boards.CreateBoard(c.Request().Context(), actor(c), boardservice.CreateBoardRequest{
			Title:       deref(req.Title),
			Description: deref(req.Description),
			Background:  deref(req.Background),
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, b)
	}
}

func getBoard(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		snap, err := a.Boards.GetSnapshot(c.Request().Context(), actor(c), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, snap)
	}
}

func updateBoard(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		var req boardRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		b, err := a.Boards.UpdateBoard(c.Request().Context(), actor(c), boardservice.UpdateBoardRequest{
			ID:          id,
			Title:       req.Title,
			Description: req.Description,
			Background:  req.Background,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, b)
	}
}

func deleteBoard(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		if err := a.Boards.DeleteBoard(c.Request().Context(), actor(c), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func addMember(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		var req memberRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		b, err := a.Boards.AddMember(c.Request().Context(), actor(c), id, strings.TrimSpace(req.UserID))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, b)
	}
}

func removeMember(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		b, err := a.Boards.RemoveMember(c.Request().Context(), actor(c), id, c.Param("userId"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, b)
	}
}

func listActivity(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		limit, err := queryInt(c, "limit")
		if err != nil {
			return err
		}
		entries, err := a.Activity.List(c.Request().Context(), actor(c), id, limit)
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []*models.Activity{}
		}
		return c.JSON(http.StatusOK, entries)
	}
}

// ═══════════════════════════════════════════════════════════════════
// LISTS
// ═══════════════════════════════════════════════════════════════════

type listRequest struct {
	Title string `json:"title"`
}

type moveListRequest struct {
	NewIndex *int `json:"newIndex"`
}

func getLists(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		lists, err := a.Lists.GetLists(c.Request().Context(), actor(c), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, lists)
	}
}

func createList(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		var req listRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		l, err := a.Lists.CreateList(c.Request().Context(), actor(c), id, req.Title)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, l)
	}
}

func reorderLists(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		var order []models.ListPosition
		if err := decodeBody(c, &order); err != nil {
			return err
		}
		lists, err := a.Lists.ReorderLists(c.Request().Context(), actor(c), id, order)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, lists)
	}
}

func updateList(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "listId")
		if err != nil {
			return err
		}
		var req listRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		l, err := a.Lists.UpdateList(c.Request().Context(), actor(c), id, req.Title)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, l)
	}
}

func deleteList(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "listId")
		if err != nil {
			return err
		}
		if err := a.Lists.DeleteList(c.Request().Context(), actor(c), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func moveList(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "listId")
		if err != nil {
			return err
		}
		var req moveListRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		if req.NewIndex == nil {
			return errValidation("newIndex is required")
		}
		lists, err := a.Lists.MoveList(c.Request().Context(), actor(c), id, *req.NewIndex)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, lists)
	}
}

// ═══════════════════════════════════════════════════════════════════
// TASKS
// ═══════════════════════════════════════════════════════════════════

type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority"`
	DueDate     *time.Time      `json:"dueDate"`
	Labels      []models.Label  `json:"labels"`
	Assignees   []string        `json:"assignees"`
}

type updateTaskRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Priority     *models.Priority `json:"priority"`
	DueDate      *time.Time       `json:"dueDate"`
	ClearDueDate bool             `json:"clearDueDate"`
	Labels       *[]models.Label  `json:"labels"`
}

type reorderTaskRequest struct {
	TaskID            int  `json:"taskId"`
	SourceListID      int  `json:"sourceListId"`
	DestinationListID int  `json:"destinationListId"`
	NewPosition       *int `json:"newPosition"`
}

type assignRequest struct {
	UserID string `json:"userId"`
	Action string `json:"action"`
}

func createTask(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		listID, err := pathID(c, "listId")
		if err != nil {
			return err
		}
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		t, err := a.Tasks.CreateTask(c.Request().Context(), actor(c), taskservice.CreateTaskRequest{
			ListID:      listID,
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			DueDate:     req.DueDate,
			Labels:      req.Labels,
			Assignees:   req.Assignees,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func getTask(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "taskId")
		if err != nil {
			return err
		}
		t, err := a.Tasks.GetTask(c.Request().Context(), actor(c), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)
	}
}

func updateTask(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "taskId")
		if err != nil {
			return err
		}
		var req updateTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		t, err := a.Tasks.UpdateTask(c.Request().Context(), actor(c), taskservice.UpdateTaskRequest{
			TaskID:       id,
			Title:        req.Title,
			Description:  req.Description,
			Priority:     req.Priority,
			DueDate:      req.DueDate,
			ClearDueDate: req.ClearDueDate,
			Labels:       req.Labels,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)
	}
}

func deleteTask(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "taskId")
		if err != nil {
			return err
		}
		if err := a.Tasks.DeleteTask(c.Request().Context(), actor(c), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// reorderTask answers with the same payload broadcast as task:moved, so the
// caller can settle its optimistic state from the response alone
func reorderTask(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req reorderTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		if req.NewPosition == nil {
			return errValidation("newPosition is required")
		}
		res, err := a.Tasks.MoveTask(c.Request().Context(), actor(c), taskservice.MoveTaskRequest{
			TaskID:            req.TaskID,
			SourceListID:      req.SourceListID,
			DestinationListID: req.DestinationListID,
			NewIndex:          *req.NewPosition,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, events.TaskMovedPayload{
			Task:              res.Task,
			SourceListID:      res.SourceListID,
			DestinationListID: res.DestinationListID,
			NewIndex:          res.NewIndex,
			SourceOrder:       res.SourceOrder,
			DestinationOrder:  res.DestinationOrder,
		})
	}
}

func assignTask(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "taskId")
		if err != nil {
			return err
		}
		var req assignRequest
		if err := decodeBody(c, &req); err != nil {
			return err
		}
		t, err := a.Tasks.AssignTask(c.Request().Context(), actor(c), taskservice.AssignRequest{
			TaskID: id,
			UserID: strings.TrimSpace(req.UserID),
			Action: taskservice.AssignAction(req.Action),
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, t)
	}
}

func searchTasks(a *app.App) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "boardId")
		if err != nil {
			return err
		}
		tasks, err := a.Tasks.SearchTasks(c.Request().Context(), actor(c), id, c.QueryParam("q"))
		if err != nil {
			return err
		}
		if tasks == nil {
			tasks = []*models.Task{}
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
