package middleware

import (
	"context"
	"strings"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/queries"
	"stayhub/internal/domain/shared/failure"
)

// ActorMessage is implemented by commands and queries issued on behalf of a signed-in user.
type ActorMessage interface {
	ActorID() string
}

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RequireActor rejects actor messages that arrive without a user id.
type RequireActor struct{}

func (RequireActor) Authorize(_ context.Context, message any) error {
	m, ok := message.(ActorMessage)
	if !ok {
		return nil
	}
	if strings.TrimSpace(m.ActorID()) == "" {
		return failure.New(failure.KindUnauthenticated, "authentication required")
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
