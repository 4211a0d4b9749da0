// Package api exposes the board services over HTTP and the realtime hub over
// a websocket endpoint.
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/thenoetrevino/kanban/internal/app"
	"github.com/thenoetrevino/kanban/internal/auth"
	"github.com/thenoetrevino/kanban/internal/hub"
)

// Authenticator verifies the credential carried by a request
type Authenticator interface {
	Authenticate(r *http.Request) (auth.Identity, error)
}

// Realtime is the websocket side of the server
type Realtime interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string) error
	Metrics() *hub.Metrics
}

// Deps are the collaborators the handlers need
type Deps struct {
	App      *app.App
	Auth     Authenticator
	Realtime Realtime
	Health   func(ctx context.Context) error
	Log      logrus.FieldLogger
}

// Options tunes the echo instance built by NewServer
type Options struct {
	AllowedOrigins []string
}

// NewServer builds an echo instance with the shared middleware stack and
// every route registered
func NewServer(deps Deps, opts Options) *echo.Echo {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = SonicSerializer{}
	e.HTTPErrorHandler = errorHandler(deps.Log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(deps.Log))
	if len(opts.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: opts.AllowedOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		}))
	}

	Register(e, deps)
	return e
}

// Register wires up all API routes on the provided Echo instance
func Register(e *echo.Echo, deps Deps) {
	a := deps.App

	e.GET("/healthz", healthz(deps.Health))
	if deps.Realtime != nil {
		e.GET("/metrics/hub", hubMetrics(deps.Realtime))
	}

	g := e.Group("", requireAuth(deps.Auth, a, deps.Log))

	g.GET("/boards", listBoards(a))
	g.POST("/boards", createBoard(a))
	g.GET("/boards/:boardId", getBoard(a))
	g.PUT("/boards/:boardId", updateBoard(a))
	g.DELETE("/boards/:boardId", deleteBoard(a))
	g.POST("/boards/:boardId/members", addMember(a))
	g.DELETE("/boards/:boardId/members/:userId", removeMember(a))
	g.GET("/boards/:boardId/activity", listActivity(a))
	g.GET("/boards/:boardId/tasks/search", searchTasks(a))

	g.GET("/boards/:boardId/lists", getLists(a))
	g.POST("/boards/:boardId/lists", createList(a))
	g.PUT("/boards/:boardId/lists/reorder", reorderLists(a))
	g.PUT("/lists/:listId", updateList(a))
	g.DELETE("/lists/:listId", deleteList(a))
	g.PUT("/lists/:listId/move", moveList(a))

	g.POST("/lists/:listId/tasks", createTask(a))
	g.PUT("/tasks/reorder", reorderTask(a))
	g.GET("/tasks/:taskId", getTask(a))
	g.PUT("/tasks/:taskId", updateTask(a))
	g.DELETE("/tasks/:taskId", deleteTask(a))
	g.PUT("/tasks/:taskId/assign", assignTask(a))

	if deps.Realtime != nil {
		g.GET("/ws", serveWS(deps.Realtime, deps.Log))
	}
}

func healthz(check func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check != nil {
			if err := check(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func hubMetrics(rt Realtime) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, rt.Metrics().GetSnapshot())
	}
}

func serveWS(rt Realtime, log logrus.FieldLogger) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := actor(c)
		if err := rt.ServeWS(c.Response(), c.Request(), userID); err != nil {
			// the upgrader has already answered the request
			log.WithError(err).WithField("user_id", userID).Debug("websocket upgrade failed")
		}
		return nil
	}
}
