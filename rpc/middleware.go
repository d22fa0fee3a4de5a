package rpc

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mohitkumar/mqueue/errs"
	"github.com/mohitkumar/mqueue/metrics"
	"github.com/mohitkumar/mqueue/protocol"
	"go.uber.org/zap"
)

// requestLogger logs every request through zap and counts it.
func requestLogger(logger *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.IncRequest(route, fmt.Sprint(status))

		fields := []zap.Field{
			zap.String("http.method", c.Request.Method),
			zap.String("http.route", route),
			zap.Int("http.status", status),
			zap.Int64("http.time_ns", time.Since(start).Nanoseconds()),
		}
		if err := c.Errors.Last(); err != nil {
			fields = append(fields, zap.String("error.kind", errs.Kind(err.Err)), zap.Error(err.Err))
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Info("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.Error("panic serving request", zap.String("http.route", c.FullPath()), zap.Any("panic", rec))
		c.AbortWithStatusJSON(http.StatusInternalServerError, protocol.Failure("internal error"))
	})
}

// bind validates the request document against schema and decodes it into out. GET requests
// without a body are read from the query string.
func bind(c *gin.Context, schema *protocol.Schema, out any) error {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return errs.ErrInvalidRequestf(err.Error())
	}
	if len(raw) == 0 && c.Request.Method == http.MethodGet {
		if raw, err = protocol.QueryToJSON(c.Request.URL.Query()); err != nil {
			return errs.ErrInvalidRequestf(err.Error())
		}
	}
	if len(raw) == 0 {
		return errs.ErrInvalidRequestf("request body is empty")
	}
	if err := schema.Validate(raw); err != nil {
		return err
	}
	if err := protocol.UnmarshalJSON(raw, out); err != nil {
		return errs.ErrInvalidRequestf(err.Error())
	}
	return nil
}
