package middleware

import (
	"context"

	"homestay/internal/app/commands"
	"homestay/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// FailedResult is implemented by results that carry an expected failure.
// Such results are returned to the caller but their unit is rolled back.
type FailedResult interface {
	Failed() bool
}

// Transaction opens a unit of work per command. The unit is committed only
// when the handler returns neither an error nor a failed result; every other
// exit path rolls it back.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := uow.Bind(ctx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if isFailed(res) {
				return res, nil
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}
