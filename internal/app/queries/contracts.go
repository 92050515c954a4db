package queries

import (
	"context"
	"errors"
	"fmt"
)

// Query is a read request. Key must not depend on field values.
type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

type HandlerFunc[Q Query, R any] func(ctx context.Context, query Q) (R, error)

func (f HandlerFunc[Q, R]) Handle(ctx context.Context, query Q) (R, error) {
	return f(ctx, query)
}

type Bus interface {
	Ask(ctx context.Context, query Query) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("queries: handler not found")
	ErrInvalidQuery    = errors.New("queries: invalid query for handler")
	ErrResultType      = errors.New("queries: result type mismatch")
	ErrNilBus          = errors.New("queries: nil bus")
)

// Ask runs the query through the bus, returning a typed result.
func Ask[Q Query, R any](ctx context.Context, bus Bus, query Q) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Ask(ctx, query)
	if err != nil {
		return zero, err
	}
	return resultAs[R](query.Key(), res)
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
