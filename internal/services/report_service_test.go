package services

import (
	"context"
	"testing"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualGenerate_SynchronousWithoutPayment(t *testing.T) {
	renderer := &fakeRenderer{artifact: "<html>manual</html>"}
	env := newTestEnv(t, &fakeAssessmentClient{result: completedResult(2, 3, 5)}, renderer)
	ctx := context.Background()
	task := env.createAndAssess(t, "S1")

	view, err := env.reports.ManualGenerate(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusCompleted, view.ReportStatus)
	assert.True(t, view.HasArtifact)

	got, err := env.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.Paid(), "the override does not record a payment")

	_, err = env.reports.ManualGenerate(ctx, task.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestManualGenerate_RequiresCompletedAssessment(t *testing.T) {
	env := newTestEnv(t, &fakeAssessmentClient{}, &fakeRenderer{artifact: "x"})
	ctx := context.Background()
	task, _, err := env.tasks.Create(ctx, "S1", true)
	require.NoError(t, err)

	_, err = env.reports.ManualGenerate(ctx, task.ID)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	_, err = env.reports.ManualGenerate(ctx, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestManualGenerate_RenderFailureIsRecorded(t *testing.T) {
	env := newTestEnv(t, &fakeAssessmentClient{result: completedResult(1, 0, 0)}, &fakeRenderer{err: errBoom})
	ctx := context.Background()
	task := env.createAndAssess(t, "S1")

	view, err := env.reports.ManualGenerate(ctx, task.ID)
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, UpstreamTransport, ue.Kind)
	require.NotNil(t, view)
	assert.Equal(t, models.ReportStatusFailed, view.ReportStatus)
	assert.Contains(t, view.ReportError, "boom")
}

func TestReport_TimeoutConverges(t *testing.T) {
	env := newTestEnv(t, &fakeAssessmentClient{result: completedResult(1, 0, 0)}, &fakeRenderer{block: true},
		withTimeouts(time.Second, 50*time.Millisecond))
	ctx := context.Background()
	task := env.createAndAssess(t, "S1")

	_, err := env.gate.Authorize(ctx, task.ID, "0xabc", 100)
	require.NoError(t, err)

	view := env.waitReport(t, task.ID)
	assert.Equal(t, models.ReportStatusFailed, view.ReportStatus)
	assert.Contains(t, view.ReportError, "timeout")
}

func TestReport_EmptyArtifactFails(t *testing.T) {
	env := newTestEnv(t, &fakeAssessmentClient{result: completedResult(1, 0, 0)}, &fakeRenderer{artifact: "  "})
	ctx := context.Background()
	task := env.createAndAssess(t, "S1")

	_, err := env.gate.Authorize(ctx, task.ID, "0xabc", 100)
	require.NoError(t, err)

	view := env.waitReport(t, task.ID)
	assert.Equal(t, models.ReportStatusFailed, view.ReportStatus)
	assert.Contains(t, view.ReportError, "empty")
}

func TestGenerate_SkipsWhenNotGenerating(t *testing.T) {
	renderer := &fakeRenderer{artifact: "x"}
	env := newTestEnv(t, &fakeAssessmentClient{result: completedResult(1, 0, 0)}, renderer)
	ctx := context.Background()
	task := env.createAndAssess(t, "S1")

	status, err := env.reports.Generate(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusNotStarted, status)
	assert.Equal(t, int32(0), renderer.calls.Load())
}

func TestReportStatus_ReadsAreSideEffectFree(t *testing.T) {
	env := newTestEnv(t, &fakeAssessmentClient{result: completedResult(1, 0, 0)}, &fakeRenderer{artifact: "x"})
	ctx := context.Background()
	task := env.createAndAssess(t, "S1")

	for i := 0; i < 50; i++ {
		view, err := env.reports.GetStatus(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ReportStatusNotStarted, view.ReportStatus)
		assert.False(t, view.HasArtifact)
	}
	assert.Empty(t, env.store.reportTrace(task.ID))

	_, err := env.reports.FetchArtifact(ctx, task.ID)
	assert.ErrorIs(t, err, ErrReportNotReady)

	_, err = env.reports.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
