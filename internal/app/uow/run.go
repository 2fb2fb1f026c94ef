package uow

import "context"

// Run executes fn inside the unit already carried by ctx, or inside a new one
// that is committed when fn succeeds and rolled back otherwise.
func Run(ctx context.Context, factory UoWFactory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return err
	}
	execCtx := ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = ContextWithUnitOfWork(execCtx, unit)

	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()
	if err := fn(execCtx, unit); err != nil {
		return err
	}
	if opts.ReadOnly {
		return nil
	}
	if err := unit.Commit(execCtx); err != nil {
		return err
	}
	committed = true
	return nil
}

// Read is Run with a read-only unit.
func Read(ctx context.Context, factory UoWFactory, fn func(ctx context.Context, unit UnitOfWork) error) error {
	return Run(ctx, factory, TxOptions{ReadOnly: true}, fn)
}
