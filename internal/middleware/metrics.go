package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Keys handlers set on the gin context after dispatching a command
const (
	ContextCommand       = "command"
	ContextCommandFailed = "command_failed"
)

// CommandRecorder persists per-command analytics
type CommandRecorder interface {
	RecordCommand(ctx context.Context, command string, failed bool, latencyMs float64) error
}

// Metrics returns a middleware that records command analytics.
// Requests that did not dispatch a command are not recorded.
func Metrics(recorder CommandRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		command := c.GetString(ContextCommand)
		if command == "" {
			return
		}
		latency := float64(time.Since(start).Microseconds()) / 1000

		// 请求结束后仍需写入统计
		ctx := context.WithoutCancel(c.Request.Context())
		if err := recorder.RecordCommand(ctx, command, c.GetBool(ContextCommandFailed), latency); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to record metrics")
		}
	}
}
