package middleware

import (
	"context"
	"log/slog"

	"homestay/internal/app/commands"
	"homestay/internal/app/outbox"
)

// OutboxRelay runs after the transaction of a command has committed. It
// prunes records the relay already delivered and then calls notify so the
// relay picks up the new records without waiting for its next poll. Rejected
// and failed commands committed nothing and skip both steps.
//
// A prune error is logged, never returned: the command itself succeeded.
func OutboxRelay(box outbox.Outbox, notify func(), logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil || isFailed(res) {
				return res, err
			}
			if err := box.Flush(ctx); err != nil && logger != nil {
				logger.WarnContext(ctx, "outbox prune failed", "command", cmd.Key(), "error", err)
			}
			if notify != nil {
				notify()
			}
			return res, nil
		})
	}
}
