package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/thenoetrevino/kanban/internal/models"
)

const userIDKey = "user_id"

// UserStore remembers who authenticated, so activity can show names
type UserStore interface {
	RememberUser(ctx context.Context, u models.User) error
}

// requireAuth rejects requests without a valid bearer token and stores the
// caller's id on the context
func requireAuth(authn Authenticator, users UserStore, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := authn.Authenticate(c.Request())
			if err != nil {
				return writeError(c, log, err)
			}
			if users != nil {
				if err := users.RememberUser(c.Request().Context(), id.User()); err != nil {
					log.WithError(err).WithField(userIDKey, id.UserID).Warn("failed to record user")
				}
			}
			c.Set(userIDKey, id.UserID)
			return next(c)
		}
	}
}

func actor(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":     v.Method,
				"path":       v.URI,
				"status":     v.Status,
				"latency_ms": float64(v.Latency.Microseconds()) / 1000,
				"request_id": v.RequestID,
			})
			if id := actor(c); id != "" {
				entry = entry.WithField(userIDKey, id)
			}
			switch {
			case v.Status >= 500:
				entry.WithError(v.Error).Error("request")
			case v.Status >= 400:
				entry.Info("request")
			default:
				entry.Debug("request")
			}
			return nil
		},
	})
}
