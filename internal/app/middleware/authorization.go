package middleware

import (
	"context"
	"fmt"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/queries"
	"wanderlust/internal/domain/shared/failure"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
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

// Authenticated is implemented by messages issued on behalf of a signed-in user.
type Authenticated interface {
	Requester() policies.Actor
}

// AdminOnly marks messages reserved for administrators.
type AdminOnly interface {
	Authenticated
	AdminOnly()
}

var (
	ErrAuthenticationRequired = fmt.Errorf("middleware: authentication required: %w", failure.ErrForbidden)
	ErrAdminRequired          = fmt.Errorf("middleware: administrator role required: %w", failure.ErrForbidden)
)

// ActorAuthorizer enforces the coarse checks; ownership rules stay in the services.
type ActorAuthorizer struct{}

func (ActorAuthorizer) Authorize(_ context.Context, message any) error {
	if admin, ok := message.(AdminOnly); ok {
		if !admin.Requester().IsAdmin {
			return ErrAdminRequired
		}
		return nil
	}
	if authed, ok := message.(Authenticated); ok && authed.Requester().Anonymous() {
		return ErrAuthenticationRequired
	}
	return nil
}
