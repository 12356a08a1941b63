package database

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
)

type pgxQueryStartKey struct{}

// PostgresSentryTracer records every pgx query as a Sentry breadcrumb
// with its duration and rows affected; failing queries get error level
// and carry the error text. Slow queries are not marked.
type PostgresSentryTracer struct{}

func (t *PostgresSentryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, pgxQueryStartKey{}, time.Now())
}

func (t *PostgresSentryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	level := sentry.LevelInfo
	if data.Err != nil {
		level = sentry.LevelError
	}

	started, _ := ctx.Value(pgxQueryStartKey{}).(time.Time)
	breadcrumb := &sentry.Breadcrumb{
		Category: "query",
		Message:  "postgres query",
		Level:    level,
		Data: map[string]interface{}{
			"rows_affected": data.CommandTag.RowsAffected(),
		},
	}
	if !started.IsZero() {
		breadcrumb.Data["duration_ms"] = time.Since(started).Milliseconds()
	}
	if data.Err != nil {
		breadcrumb.Data["error"] = data.Err.Error()
	}
	hub.AddBreadcrumb(breadcrumb, nil)
}
