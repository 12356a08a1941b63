package database

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
)

// RedisSentryHook records every non-pipelined Redis command as a Sentry
// breadcrumb, mirroring PostgresSentryTracer's query-level visibility.
// Pipelined commands are passed through without a breadcrumb.
type RedisSentryHook struct{}

var _ redis.Hook = (*RedisSentryHook)(nil)

func (h *RedisSentryHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *RedisSentryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)

		level := sentry.LevelInfo
		if err != nil && err != redis.Nil {
			level = sentry.LevelError
		}

		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		breadcrumb := &sentry.Breadcrumb{
			Category: "redis",
			Message:  cmd.Name(),
			Level:    level,
			Data: map[string]interface{}{
				"duration_ms": time.Since(start).Milliseconds(),
			},
		}
		if err != nil && err != redis.Nil {
			breadcrumb.Data["error"] = err.Error()
		}
		hub.AddBreadcrumb(breadcrumb, nil)

		return err
	}
}

func (h *RedisSentryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		return next(ctx, cmds)
	}
}
