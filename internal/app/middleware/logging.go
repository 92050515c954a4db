package middleware

import (
	"context"
	"log/slog"
	"time"

	"homestay/internal/app/commands"
	"homestay/internal/app/queries"
)

// Logging records every dispatched command with its outcome and duration.
func Logging(logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		if logger == nil {
			return next
		}
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration", time.Since(start)}
			switch {
			case err != nil:
				logger.ErrorContext(ctx, "command failed", append(attrs, "error", err)...)
			case isFailed(res):
				logger.InfoContext(ctx, "command rejected", attrs...)
			default:
				logger.DebugContext(ctx, "command handled", attrs...)
			}
			return res, err
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		if logger == nil {
			return next
		}
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			if err != nil {
				logger.ErrorContext(ctx, "query failed", "query", q.Key(), "duration", time.Since(start), "error", err)
			}
			return res, err
		})
	}
}

func isFailed(res any) bool {
	failed, ok := res.(FailedResult)
	return ok && failed.Failed()
}
