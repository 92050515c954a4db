// Package state carries the outcome of an application operation whose
// expected failures are values rather than Go errors.
package state

type Status string

const (
	StatusOK           Status = "OK"
	StatusError        Status = "ERROR"
	StatusUnauthorized Status = "UNAUTHORIZED"
)

// State is a tagged result: a value on success, a human readable reason otherwise.
type State[T any] struct {
	Status Status `json:"status"`
	Value  T      `json:"value"`
	Reason string `json:"reason,omitempty"`
}

func Success[T any](value T) State[T] {
	return State[T]{Status: StatusOK, Value: value}
}

func Error[T any](reason string) State[T] {
	return State[T]{Status: StatusError, Reason: reason}
}

func Unauthorized[T any](reason string) State[T] {
	return State[T]{Status: StatusUnauthorized, Reason: reason}
}

func (s State[T]) OK() bool { return s.Status == StatusOK }

// Failed reports whether the operation must not be committed.
func (s State[T]) Failed() bool { return s.Status != StatusOK }
