package version

import (
	"testing"
	"time"

	"github.com/hupe1980/indexlib/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStateTransfer(t *testing.T) {
	allowed := map[[2]IndexTaskState]bool{
		{TaskDone, TaskDone}:           true,
		{TaskReady, TaskReady}:         true,
		{TaskReady, TaskSuspended}:     true,
		{TaskReady, TaskAborted}:       true,
		{TaskReady, TaskDone}:          true,
		{TaskSuspended, TaskSuspended}: true,
		{TaskSuspended, TaskReady}:     true,
		{TaskSuspended, TaskAborted}:   true,
		{TaskAborted, TaskAborted}:     true,
	}

	states := []IndexTaskState{TaskReady, TaskSuspended, TaskAborted, TaskDone}
	for _, from := range states {
		for _, to := range states {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				assert.Equal(t, allowed[[2]IndexTaskState{from, to}], ValidateStateTransfer(from, to))
			})
		}
	}
}

func TestIndexTaskState_Text(t *testing.T) {
	for _, s := range []IndexTaskState{TaskReady, TaskSuspended, TaskAborted, TaskDone} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var parsed IndexTaskState
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, s, parsed)
	}

	_, err := IndexTaskState(42).MarshalText()
	assert.True(t, status.IsInvalidArgs(err))
	assert.Equal(t, "state(42)", IndexTaskState(42).String())
}

func TestAddIndexTask_FirstWriteWins(t *testing.T) {
	b := NewBuilder(1)

	assert.True(t, b.AddIndexTask("merge", "optimize", map[string]string{"a": "1"}))
	assert.False(t, b.AddIndexTask("merge", "optimize", map[string]string{"a": "2"}))

	task, ok := b.Build().IndexTask("merge", "optimize")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"a": "1"}, task.Params)
	assert.Equal(t, TaskReady, task.State)

	// Same name under another type is a different task.
	assert.True(t, b.AddIndexTask("reclaim", "optimize", nil))
	assert.Len(t, b.Build().IndexTasks(), 2)
}

func TestOverwriteIndexTask(t *testing.T) {
	b := NewBuilder(1)
	b.AddIndexTask("merge", "optimize", map[string]string{"a": "1"})
	require.NoError(t, b.UpdateIndexTaskState("merge", "optimize", TaskSuspended))

	first, _ := b.Build().IndexTask("merge", "optimize")

	time.Sleep(2 * time.Millisecond)
	b.OverwriteIndexTask("merge", "optimize", map[string]string{"b": "2"})

	second, ok := b.Build().IndexTask("merge", "optimize")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"b": "2"}, second.Params)
	assert.Equal(t, TaskReady, second.State)
	assert.Greater(t, second.BeginTime, first.BeginTime)

	time.Sleep(2 * time.Millisecond)
	b.OverwriteIndexTask("merge", "optimize", map[string]string{"c": "3"})
	third, _ := b.Build().IndexTask("merge", "optimize")
	assert.Greater(t, third.BeginTime, second.BeginTime)
}

func TestOverwriteIndexTask_StoppedClock(t *testing.T) {
	fixed := time.Unix(1_700_000_000, 0)
	b := NewBuilder(1, WithClock(func() time.Time { return fixed }))

	b.AddIndexTask("merge", "m", nil)
	first, _ := b.Build().IndexTask("merge", "m")

	b.OverwriteIndexTask("merge", "m", nil)
	second, _ := b.Build().IndexTask("merge", "m")
	assert.Greater(t, second.BeginTime, first.BeginTime)
}

func TestOverwriteIndexTask_ResetsTerminalState(t *testing.T) {
	b := NewBuilder(1)
	b.AddIndexTask("merge", "m", nil)
	require.NoError(t, b.UpdateIndexTaskState("merge", "m", TaskAborted))

	b.OverwriteIndexTask("merge", "m", map[string]string{"retry": "1"})
	task, _ := b.Build().IndexTask("merge", "m")
	assert.Equal(t, TaskReady, task.State)

	// Overwrite of an unknown task adds it.
	b.OverwriteIndexTask("merge", "new", nil)
	_, ok := b.Build().IndexTask("merge", "new")
	assert.True(t, ok)
}

func TestUpdateIndexTaskState(t *testing.T) {
	b := NewBuilder(1)
	b.AddIndexTask("merge", "m", map[string]string{"k": "v"})

	err := b.UpdateIndexTaskState("merge", "missing", TaskDone)
	assert.True(t, status.IsNotFound(err))

	require.NoError(t, b.UpdateIndexTaskState("merge", "m", TaskSuspended))

	err = b.UpdateIndexTaskState("merge", "m", TaskDone)
	assert.True(t, status.IsInvalidArgs(err))

	require.NoError(t, b.UpdateIndexTaskState("merge", "m", TaskReady))
	require.NoError(t, b.UpdateIndexTaskState("merge", "m", TaskDone))

	task, _ := b.Build().IndexTask("merge", "m")
	assert.Equal(t, TaskDone, task.State)
	assert.Nil(t, task.Params)
	assert.Greater(t, task.EndTime, task.BeginTime)

	end := task.EndTime
	require.NoError(t, b.UpdateIndexTaskState("merge", "m", TaskDone))
	task, _ = b.Build().IndexTask("merge", "m")
	assert.Equal(t, end, task.EndTime, "done to done is a no-op")

	err = b.UpdateIndexTaskState("merge", "m", TaskReady)
	assert.True(t, status.IsInvalidArgs(err))
}

func TestRemoveIndexTask(t *testing.T) {
	b := NewBuilder(1)
	b.AddIndexTask("merge", "m", nil)

	assert.True(t, b.RemoveIndexTask("merge", "m"))
	assert.False(t, b.RemoveIndexTask("merge", "m"))
	assert.Empty(t, b.Build().IndexTasks())
}
