package middleware

import (
	"context"
	"log/slog"
	"strings"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/policies"
)

// LockedCommand is implemented by commands that must run alone for a resource.
type LockedCommand interface {
	commands.Command
	LockKey() string
}

// ListingLock holds the command's lock around everything further down the chain, so the
// availability check and the write commit before a competing writer starts.
func ListingLock(locker policies.Locker, logger *slog.Logger) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			locked, ok := cmd.(LockedCommand)
			if !ok {
				return nextFn(ctx, cmd)
			}
			key := strings.TrimSpace(locked.LockKey())
			if key == "" {
				return nextFn(ctx, cmd)
			}
			release, err := locker.Acquire(ctx, key)
			if err != nil {
				return nil, err
			}
			defer func() {
				// the request context may already be cancelled
				if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
					logger.Warn("lock release failed", "lock", key, "error", relErr)
				}
			}()
			return nextFn(ctx, cmd)
		})
	}
}
