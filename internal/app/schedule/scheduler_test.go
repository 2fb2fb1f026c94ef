package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/app/commands"
	bookingapp "wanderlust/internal/app/handlers/booking"
)

func TestCompleteSweepJobDispatchesCommand(t *testing.T) {
	bus := commands.NewInMemoryBus()
	calls := 0
	commands.RegisterHandler(bus, bookingapp.CompleteDueCommand{}.Key(), commands.HandlerFunc[bookingapp.CompleteDueCommand, *bookingapp.CompleteDueResult](
		func(context.Context, bookingapp.CompleteDueCommand) (*bookingapp.CompleteDueResult, error) {
			calls++
			if calls == 2 {
				return &bookingapp.CompleteDueResult{}, errors.New("storage down")
			}
			return &bookingapp.CompleteDueResult{Completed: 3}, nil
		}))

	job := CompleteSweepJob(bus, nil)
	assert.Equal(t, CompleteSweep, job.Name)
	require.NoError(t, job.Run(context.Background()))
	assert.Error(t, job.Run(context.Background()))
	assert.Equal(t, 2, calls)
}
