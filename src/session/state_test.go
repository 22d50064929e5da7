package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnikey/src/command"
	"omnikey/src/messages"
)

func TestStateSingleActiveRun(t *testing.T) {
	var s State
	_, _, err := s.Begin(context.Background(), command.Enhance, messages.SourceHotkey)
	assert.ErrorIs(t, err, ErrStopped, "runs are refused before Start")

	s.Start()
	ctx, run, err := s.Begin(context.Background(), command.Enhance, messages.SourceHotkey)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), run.ID)

	_, _, err = s.Begin(context.Background(), command.FixGrammar, messages.SourceTray)
	assert.ErrorIs(t, err, ErrBusy)

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, command.Enhance, active.Command)

	_, ok = s.Finish(99)
	assert.False(t, ok, "stale run ids are ignored")

	finished, ok := s.Finish(run.ID)
	require.True(t, ok)
	assert.Same(t, run, finished)
	assert.Error(t, ctx.Err(), "finishing cancels the run context")

	_, run2, err := s.Begin(context.Background(), command.FixGrammar, messages.SourceTray)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), run2.ID)
}

func TestStateStopCancelsActiveRun(t *testing.T) {
	var s State
	s.Start()
	ctx, run, err := s.Begin(context.Background(), command.Enhance, messages.SourceHotkey)
	require.NoError(t, err)

	s.Stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	_, _, err = s.Begin(context.Background(), command.Enhance, messages.SourceHotkey)
	assert.ErrorIs(t, err, ErrStopped)

	_, ok := s.Finish(run.ID)
	assert.True(t, ok)
	_, ok = s.Active()
	assert.False(t, ok)
}
