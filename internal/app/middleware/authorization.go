package middleware

import (
	"context"
	"errors"

	"homestay/internal/app/commands"
	"homestay/internal/app/queries"
	"homestay/internal/domain/user"
)

var (
	ErrAuthenticationRequired = errors.New("middleware: authentication required")
	ErrForbidden              = errors.New("middleware: insufficient role")
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// Guarded messages declare the caller and the role they require.
type Guarded interface {
	Caller() user.Principal
	RequiredRole() user.Role
}

// RoleAuthorizer checks Guarded messages and lets everything else through.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(_ context.Context, message any) error {
	guarded, ok := message.(Guarded)
	if !ok {
		return nil
	}
	caller := guarded.Caller()
	if !caller.Authenticated() {
		return ErrAuthenticationRequired
	}
	if role := guarded.RequiredRole(); role != "" && !caller.HasRole(role) {
		return ErrForbidden
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
