package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"farmops/internal/handler"
	"farmops/internal/middleware"
	"farmops/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// ルート登録に必要なハンドラ一式
type Handlers struct {
	Inventory   *handler.InventoryHandler
	SupplyChain *handler.SupplyChainHandler
	Orders      *handler.OrderHandler
	Schedules   *handler.ScheduleHandler
	Customers   *handler.CustomerHandler
	Sales       *handler.SaleHandler
	AuditLogs   *handler.AuditLogHandler
}

func New(h Handlers, jwtSecret string, log logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())

	RegisterRoutes(e, h, middleware.AuthJWT(jwtSecret))
	return e
}

func RegisterRoutes(e *echo.Echo, h Handlers, auth echo.MiddlewareFunc) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})

	h.Inventory.RegisterRoutes(e, auth)
	h.SupplyChain.RegisterRoutes(e, auth)
	h.Orders.RegisterRoutes(e, auth)
	h.Schedules.RegisterRoutes(e, auth)
	h.Customers.RegisterRoutes(e, auth)
	h.Sales.RegisterRoutes(e, auth)
	h.AuditLogs.RegisterRoutes(e, auth)
}

// echo由来のエラー（404/405など）とpanicを {"error": msg} で返す
func errorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		}
		if status >= 500 {
			log.WithFields(logrus.Fields{
				"module": "server",
				"path":   c.Path(),
			}).Error(err.Error())
			msg = "internal error"
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, handler.ErrorResponse{Error: msg})
	}
}

// ctxが終わったらgracefulに止める
func Start(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
