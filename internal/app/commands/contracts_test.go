package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct{}

func (pingCommand) Key() string { return "test.ping" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestDispatchTypesResult(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[pingCommand, int](bus, HandlerFunc[pingCommand, int](func(context.Context, pingCommand) (int, error) {
		return 42, nil
	}))

	got, err := Dispatch[pingCommand, int](context.Background(), bus, pingCommand{})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Dispatch[pingCommand, string](context.Background(), bus, pingCommand{})
	assert.ErrorIs(t, err, ErrResultType)
	assert.Contains(t, err.Error(), "test.ping returned int")

	_, err = Dispatch[otherCommand, int](context.Background(), bus, otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Dispatch[pingCommand, int](context.Background(), nil, pingCommand{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestResultAsDereferencesPointers(t *testing.T) {
	v := 7
	got, err := resultAs[int]("k", &v)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	got, err = resultAs[int]("k", (*int)(nil))
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestRegisterHandlerRejectsDuplicates(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[pingCommand, int](func(context.Context, pingCommand) (int, error) { return 0, nil })
	RegisterHandler[pingCommand, int](bus, h)
	assert.Panics(t, func() { RegisterHandler[pingCommand, int](bus, h) })
	assert.Equal(t, []string{"test.ping"}, bus.Keys())
}
