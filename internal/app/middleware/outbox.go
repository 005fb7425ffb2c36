package middleware

import (
	"context"

	"kodesha/internal/app/commands"
	"kodesha/internal/app/outbox"
)

// OutboxFlush gives the store a hook after a successful command. Stores bind
// records to the unit of work on Add, so for most of them Flush is a no-op.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
