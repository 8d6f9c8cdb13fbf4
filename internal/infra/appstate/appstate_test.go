package appstate_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetloop/orchestrator/internal/infra/appstate"
)

func TestStateMachine_HappyPath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	state := appstate.New(slog.Default(), time.Now(), nil)

	require.Equal(t, appstate.StateInit, state.GetState())
	require.False(t, state.IsHealthy())
	require.False(t, state.IsReady())

	require.NoError(t, state.SetStarting(ctx))
	require.Equal(t, appstate.StateStarting, state.GetState())
	require.False(t, state.IsReady())

	require.NoError(t, state.SetRunning(ctx))
	require.Equal(t, appstate.StateRunning, state.GetState())
	require.True(t, state.IsHealthy())
	require.True(t, state.IsReady())

	require.NoError(t, state.SetStopping(ctx))
	require.Equal(t, appstate.StateStopping, state.GetState())
	require.False(t, state.IsHealthy())

	require.NoError(t, state.Shutdown(ctx))
	require.Equal(t, appstate.StateStopped, state.GetState())
}

func TestStateMachine_InvalidTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	state := appstate.New(slog.Default(), time.Now(), nil)

	// Running before Starting is rejected.
	require.ErrorIs(t, state.SetRunning(ctx), appstate.ErrInvalidStateTransition)

	require.NoError(t, state.SetStarting(ctx))
	require.ErrorIs(t, state.SetStarting(ctx), appstate.ErrInvalidStateTransition)

	require.NoError(t, state.SetRunning(ctx))
	require.NoError(t, state.Shutdown(ctx))

	// Stopped is terminal.
	require.ErrorIs(t, state.SetStopping(ctx), appstate.ErrAlreadyStopped)
	require.NoError(t, state.Shutdown(ctx))
}

func TestUptime(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(-time.Minute)
	state := appstate.New(slog.Default(), start, nil)

	require.Equal(t, start, state.GetStartTime())
	require.GreaterOrEqual(t, state.GetUptime(), time.Minute)
}
