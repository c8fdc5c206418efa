package mockserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/reoring/postq"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// MsgServerTimeout is the body of injected failures.
const MsgServerTimeout = "Server timeout"

type ctxKeyBody struct{}

// bodyFrom returns the decoded request body, or nil when there was none.
func bodyFrom(ctx context.Context) any { return ctx.Value(ctxKeyBody{}) }

// decodeBody reads the JSON body of writes once so the later middleware and
// the handler can share it. Repeated keys are rejected since a decode would
// keep only one of them.
func decodeBody(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		switch req.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			return next(c)
		}
		data, err := io.ReadAll(io.LimitReader(req.Body, maxBody+1))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable body").SetInternal(err)
		}
		if len(data) > maxBody {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "body too large")
		}
		if len(data) == 0 {
			return next(c)
		}
		v, err := postq.DecodeAny(data)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON").SetInternal(err)
		}
		if iss := postq.DuplicateKeys(data); len(iss) > 0 {
			return c.JSON(http.StatusBadRequest, ErrorPayload(iss))
		}
		c.SetRequest(req.WithContext(context.WithValue(req.Context(), ctxKeyBody{}, v)))
		return next(c)
	}
}

// latency delays every response by d.
func latency(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if d <= 0 {
			return next
		}
		return func(c echo.Context) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
			return next(c)
		}
	}
}

// injectFailures answers 500 for requests the injector picks. Only bodies
// carrying a name are candidates.
func injectFailures(f *FailureInjector, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !f.Applies(req.Method) {
				return next(c)
			}
			body, _ := bodyFrom(req.Context()).(map[string]any)
			if _, ok := body["name"]; !ok {
				return next(c)
			}
			if f.ShouldFail(req.Method) {
				log.Info("injected failure", zap.String("method", req.Method), zap.String("path", req.URL.Path))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": MsgServerTimeout})
			}
			return next(c)
		}
	}
}

// ValidateJSON checks the decoded body against s and answers 400 with the
// issues when it does not conform.
func ValidateJSON[T any](s postq.Schema[T]) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if _, err := s.Parse(ctx, bodyFrom(ctx)); err != nil {
				if iss, ok := postq.AsIssues(err); ok {
					return c.JSON(http.StatusBadRequest, ErrorPayload(iss))
				}
				return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
			}
			return next(c)
		}
	}
}

// ErrorPayload shapes issues for JSON responses.
func ErrorPayload(issues postq.Issues) map[string]any {
	return map[string]any{"issues": []postq.Issue(issues)}
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
