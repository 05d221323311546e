// Package httpapi публикует движок заказов по HTTP (echo) под /api/v1/orders.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderlife/internal/domain"
	"github.com/vladislavdragonenkov/orderlife/internal/service/orders"
)

// BasePath — префикс маршрутов заказов.
const BasePath = "/api/v1/orders"

// OrderEngine — операции движка, которые нужны транспорту.
type OrderEngine interface {
	Create(ctx context.Context, p *domain.Principal, in orders.CreateInput) (domain.Order, error)
	ListMine(ctx context.Context, p *domain.Principal) ([]domain.Order, error)
	Get(ctx context.Context, p *domain.Principal, id int64) (domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (domain.Order, error)
	CancelMine(ctx context.Context, p *domain.Principal, id int64) (domain.Order, error)
	Timeline(ctx context.Context, p *domain.Principal, id int64) ([]domain.TimelineEvent, error)
}

// TokenVerifier превращает bearer-токен в принципала.
type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

// Handler содержит HTTP-обработчики заказов.
type Handler struct {
	engine OrderEngine
	logger *log.Entry
}

// NewRouter собирает echo с middleware и маршрутами заказов.
func NewRouter(engine OrderEngine, verifier TokenVerifier, logger *log.Entry) *echo.Echo {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "order service is up")
	})

	h := &Handler{engine: engine, logger: logger}
	g := e.Group(BasePath, Protect(verifier))
	g.POST("", h.create)
	g.GET("/me", h.listMine)
	g.GET("", h.listAll, Authorize(domain.RoleAdmin))
	g.GET("/:id", h.get)
	g.GET("/:id/timeline", h.timeline)
	g.PATCH("/:id/status", h.updateStatus, Authorize(domain.RoleAdmin))
	g.POST("/:id/cancel", h.cancel)

	return e
}

// errorHandler отдаёт ошибки echo (нет маршрута, метод не разрешён, паника)
// в формате {"message": ...}.
func errorHandler(logger *log.Entry) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			code = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		} else {
			logger.WithError(err).WithField("path", c.Path()).Error("unhandled http error")
			message = "internal server error"
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorBody{Message: message})
	}
}

func requestLogger(logger *log.Entry) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
			})
			if p := principalFrom(c); p != nil {
				entry = entry.WithField("principal_id", p.ID)
			}
			if v.Status >= http.StatusInternalServerError {
				entry.Warn("http request failed")
				return nil
			}
			entry.Debug("http request")
			return nil
		},
	})
}

var _ OrderEngine = (*orders.Service)(nil)
