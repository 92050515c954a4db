package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoQuery struct{ in string }

func (echoQuery) Key() string { return "test.echo" }

func TestAskTypesResult(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[echoQuery, string](bus, HandlerFunc[echoQuery, string](func(_ context.Context, q echoQuery) (string, error) {
		return q.in, nil
	}))

	got, err := Ask[echoQuery, string](context.Background(), bus, echoQuery{in: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = Ask[echoQuery, []string](context.Background(), bus, echoQuery{in: "hi"})
	assert.ErrorIs(t, err, ErrResultType)
	assert.Contains(t, err.Error(), "test.echo returned string")

	_, err = Ask[echoQuery, string](context.Background(), nil, echoQuery{})
	assert.ErrorIs(t, err, ErrNilBus)
}
