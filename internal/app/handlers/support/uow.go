package support

import (
	"context"

	"kodesha/internal/app/uow"
)

// BeginUnit reuses a unit of work already placed in context by the
// transaction middleware, or starts one of its own. The caller must invoke
// cleanup (when non-nil) once done.
func BeginUnit(ctx context.Context, factory uow.Factory, readOnly bool) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.ContextWithUnitOfWork(ctx, newUnit)
	if inj, ok := newUnit.(uow.ContextInjector); ok {
		execCtx = inj.InjectContext(execCtx)
	}
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}
