package uow

import (
	"context"
	"fmt"

	"wanderlust/internal/domain/shared/failure"
)

// ErrUnitOfWorkMissing is reported as a storage outage: the operation had no
// store to write through.
var ErrUnitOfWorkMissing = fmt.Errorf("uow: unit of work missing from context: %w", failure.ErrStorageUnavailable)

type ctxKey struct{}

// ContextWithUnitOfWork lets nested Run calls join unit instead of opening their own.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}
