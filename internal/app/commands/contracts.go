package commands

import (
	"context"
	"errors"
	"fmt"

	"wanderlust/internal/domain/shared/failure"
)

// Command represents a write intent routed through the application bus.
type Command interface {
	Key() string
}

// Handler processes a command and returns a value (if any).
type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

// Bus dispatches commands through the middleware chain.
type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

// ErrHandlerNotFound and ErrInvalidCommand are unsupported failures so the
// transport reports them as not implemented. ErrResultType and ErrNilBus are
// wiring bugs and stay unknown.
var (
	ErrHandlerNotFound = fmt.Errorf("commands: handler not found: %w", failure.ErrUnsupported)
	ErrInvalidCommand  = fmt.Errorf("commands: invalid command for handler: %w", failure.ErrUnsupported)
	ErrResultType      = errors.New("commands: result type mismatch")
	ErrNilBus          = errors.New("commands: nil bus")
)

// Dispatch sends cmd through bus and asserts the result type.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Dispatch(ctx, cmd)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, cmd.Key(), res, zero)
	}
	return value, nil
}
