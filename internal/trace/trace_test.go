package trace_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keifu-ai/keifu/internal/model"
	"github.com/keifu-ai/keifu/internal/testutil"
	"github.com/keifu-ai/keifu/internal/trace"
)

func TestRecorderAppendAssignsStageIDs(t *testing.T) {
	rec := trace.NewRecorder(testutil.Logger())

	rec.Event(model.RolePlanner, model.EventPlanCreated, "plan created", nil)
	rec.Event(model.RoleExecutor, model.EventExecutionStarted, "pass 1", nil)
	rec.TimedEvent(model.RoleExecutor, model.EventExecutionCompleted, "done", nil, 120*time.Millisecond)

	snap := rec.Snapshot()
	require.Len(t, snap.Events, 3)
	for i, ev := range snap.Events {
		assert.Equal(t, i, ev.StageID)
		assert.False(t, ev.Timestamp.IsZero())
	}
	require.NotNil(t, snap.Events[2].DurationMs)
	assert.Equal(t, int64(120), *snap.Events[2].DurationMs)
}

func TestRecorderFinalizeOnce(t *testing.T) {
	rec := trace.NewRecorder(testutil.Logger())
	rec.Finalize(true)
	rec.Finalize(false) // loses: only the first call wins

	snap := rec.Snapshot()
	require.NotNil(t, snap.Success)
	assert.True(t, *snap.Success)
	assert.True(t, snap.Finalized())
}

func TestRecorderDropsAfterFinalize(t *testing.T) {
	rec := trace.NewRecorder(testutil.Logger())
	rec.Event(model.RolePlanner, model.EventPlanCreated, "before", nil)
	rec.Finalize(true)
	rec.Event(model.RolePlanner, model.EventPlanCreated, "after", nil)

	assert.Equal(t, 1, rec.Len())
	assert.Equal(t, int64(1), rec.Dropped())
}

func TestRecorderSnapshotIsIndependent(t *testing.T) {
	rec := trace.NewRecorder(testutil.Logger())
	rec.Event(model.RolePlanner, model.EventPlanCreated, "one", nil)

	snap := rec.Snapshot()
	rec.Event(model.RoleExecutor, model.EventExecutionStarted, "two", nil)

	assert.Len(t, snap.Events, 1, "snapshot must not see later appends")
	assert.Equal(t, 2, rec.Len())
}

func TestRecorderError(t *testing.T) {
	rec := trace.NewRecorder(testutil.Logger())
	rec.Error(model.RoleOrchestrator, "boom", assert.AnError)

	snap := rec.Snapshot()
	require.Len(t, snap.Events, 1)
	assert.Equal(t, model.EventError, snap.Events[0].Kind)
	assert.Equal(t, assert.AnError.Error(), snap.Events[0].Error)
}

func TestReplayValidTrace(t *testing.T) {
	rec := trace.NewRecorder(testutil.Logger())
	rec.Event(model.RolePlanner, model.EventPlanCreated, "plan", nil)
	rec.Event(model.RoleExecutor, model.EventSourceSearched, "searched", nil)
	rec.Finalize(true)

	assert.NoError(t, trace.Replay(rec.Snapshot()))
}

func TestReplayRejectsUnknownEnums(t *testing.T) {
	tr := model.RunTrace{Events: []model.TraceEvent{
		{StageID: 0, Role: model.RolePlanner, Kind: model.TraceEventKind("bogus")},
	}}
	assert.Error(t, trace.Replay(tr))

	tr = model.RunTrace{Events: []model.TraceEvent{
		{StageID: 0, Role: model.StageRole("bogus"), Kind: model.EventPlanCreated},
	}}
	assert.Error(t, trace.Replay(tr))
}

func TestReplayRejectsBrokenOrdering(t *testing.T) {
	tr := model.RunTrace{Events: []model.TraceEvent{
		{StageID: 0, Role: model.RolePlanner, Kind: model.EventPlanCreated},
		{StageID: 5, Role: model.RoleExecutor, Kind: model.EventSourceSearched},
	}}
	assert.Error(t, trace.Replay(tr))
}
