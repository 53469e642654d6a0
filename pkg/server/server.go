// Package server holds the echo setup shared by the gateway and the sandbox.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// New returns an echo instance with request ids, request logging into entry
// and panic recovery installed.
func New(entry *log.Entry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return xid.New().String() },
	}))
	e.Use(RequestLogger(entry))
	e.Use(middleware.Recover())
	return e
}

// RequestLogger logs one line per request. Headers are never logged.
func RequestLogger(entry *log.Entry) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := log.Fields{
				"request_id": v.RequestID,
				"method":     v.Method,
				"path":       v.URIPath,
				"status":     v.Status,
				"latency":    v.Latency.String(),
			}
			if v.Error != nil {
				entry.WithFields(fields).WithError(v.Error).Warn("Request failed")
				return nil
			}
			entry.WithFields(fields).Info("Request handled")
			return nil
		},
	})
}

// Serve runs e on addr until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, e *echo.Echo, addr string, entry *log.Entry) error {
	errc := make(chan error, 1)
	go func() {
		entry.WithField("addr", addr).Info("Listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	entry.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
