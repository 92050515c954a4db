package commands

import (
	"context"
	"errors"
	"fmt"
)

// Command is a write intent routed through the application bus.
// Key must not depend on field values.
type Command interface {
	Key() string
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

type HandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

// Bus dispatches commands through the middleware pipeline.
type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("commands: handler not found")
	ErrInvalidCommand  = errors.New("commands: invalid command for handler")
	ErrResultType      = errors.New("commands: result type mismatch")
	ErrNilBus          = errors.New("commands: nil bus")
)

// Dispatch performs a type-safe command invocation against a bus.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Dispatch(ctx, cmd)
	if err != nil {
		return zero, err
	}
	return resultAs[R](cmd.Key(), res)
}

// resultAs converts an untyped bus result. A nil result is the zero value;
// a result of another type names the key and the type the handler produced.
func resultAs[R any](key string, res any) (R, error) {
	var zero R
	switch v := res.(type) {
	case nil:
		return zero, nil
	case R:
		return v, nil
	case *R:
		if v == nil {
			return zero, nil
		}
		return *v, nil
	default:
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, key, res, zero)
	}
}
