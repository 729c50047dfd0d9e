package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_HappyPath(t *testing.T) {
	env := newTestEnv(t,
		&fakeAssessmentClient{result: completedResult(2, 3, 5)},
		&fakeRenderer{artifact: "<html>report</html>"})
	ctx := context.Background()

	task, created, err := env.tasks.Create(ctx, "S1", true)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	require.NoError(t, env.orchestrator.RunAsync(ctx, task.ID, sampleSubmission("S1")))

	assessed := env.waitAssessment(t, task.ID)
	require.Equal(t, models.TaskStatusCompleted, assessed.Status)
	assert.Equal(t, models.RiskCounts{High: 2, Medium: 3, Low: 5}, assessed.Counts())

	status, err := env.gate.Authorize(ctx, task.ID, "0xabc", 100)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusGenerating, status)

	view := env.waitReport(t, task.ID)
	assert.Equal(t, models.ReportStatusCompleted, view.ReportStatus)
	assert.True(t, view.HasArtifact)
	assert.NotNil(t, view.ReportGeneratedAt)
	assert.Empty(t, view.ReportError)

	artifact, err := env.reports.FetchArtifact(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "<html>report</html>", artifact)

	got, err := env.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.PaymentRef)
	assert.Equal(t, 100.0, got.PaymentAmount)
	assert.NotNil(t, got.PaidAt)

	assert.Equal(t, []models.TaskStatus{models.TaskStatusProcessing, models.TaskStatusCompleted}, env.store.statusTrace(task.ID))
	assert.Equal(t, []models.ReportStatus{models.ReportStatusGenerating, models.ReportStatusCompleted}, env.store.reportTrace(task.ID))
}

func TestScenario_DoubleAuthorize(t *testing.T) {
	renderer := &fakeRenderer{artifact: "<html/>", delay: 500 * time.Millisecond}
	env := newTestEnv(t, &fakeAssessmentClient{result: completedResult(2, 3, 5)}, renderer)
	ctx := context.Background()

	task := env.createAndAssess(t, "S1")
	require.Equal(t, models.TaskStatusCompleted, task.Status)

	const callers = 2
	var wg sync.WaitGroup
	results := make([]models.ReportStatus, callers)
	errs := make([]error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = env.gate.Authorize(ctx, task.ID, "0xabc", 100)
		}(i)
	}
	close(start)
	wg.Wait()

	generating, conflicts := 0, 0
	for i := 0; i < callers; i++ {
		switch {
		case errs[i] == nil && results[i] == models.ReportStatusGenerating:
			generating++
		case errors.Is(errs[i], ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected outcome: %v %v", results[i], errs[i])
		}
	}
	assert.Equal(t, 1, generating)
	assert.Equal(t, 1, conflicts)

	view := env.waitReport(t, task.ID)
	assert.Equal(t, models.ReportStatusCompleted, view.ReportStatus)
	assert.Equal(t, int32(1), renderer.calls.Load())

	_, err := env.gate.Authorize(ctx, task.ID, "0xdef", 100)
	assert.ErrorIs(t, err, ErrConflict, "a completed report must not accept a second payment")
}

func TestScenario_UnparseableAssessmentBlocksPayment(t *testing.T) {
	client := &fakeAssessmentClient{err: NewUpstreamError("assess", UpstreamMalformed, errors.New("no JSON object in response"))}
	env := newTestEnv(t, client, &fakeRenderer{artifact: "x"})
	ctx := context.Background()

	task := env.createAndAssess(t, "S1")
	require.Equal(t, models.TaskStatusFailed, task.Status)
	assert.NotEmpty(t, task.ErrorMessage)

	_, err := env.gate.Authorize(ctx, task.ID, "0xabc", 100)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestAuthorize_RequiresCompletedAssessment(t *testing.T) {
	env := newTestEnv(t, &fakeAssessmentClient{}, &fakeRenderer{})
	ctx := context.Background()
	task, _, err := env.tasks.Create(ctx, "S1", true)
	require.NoError(t, err)

	_, err = env.gate.Authorize(ctx, task.ID, "0xabc", 100)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	require.NoError(t, env.tasks.TransitionAssessment(ctx, task.ID, models.TaskStatusPending, models.TaskStatusProcessing, AssessmentPayload{}))
	_, err = env.gate.Authorize(ctx, task.ID, "0xabc", 100)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	got, err := env.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PaymentRef)
	assert.Equal(t, models.ReportStatusNotStarted, got.ReportStatus)
}

func TestAuthorize_Validation(t *testing.T) {
	env := newTestEnv(t, &fakeAssessmentClient{}, &fakeRenderer{})
	ctx := context.Background()

	cases := []struct {
		name   string
		ref    string
		amount float64
	}{
		{"blank ref", "  ", 100},
		{"zero amount", "0xabc", 0},
		{"negative amount", "0xabc", -5},
		{"nan amount", "0xabc", math.NaN()},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := env.gate.Authorize(ctx, "any", c.ref, c.amount)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAuthorize_NotFound(t *testing.T) {
	env := newTestEnv(t, &fakeAssessmentClient{}, &fakeRenderer{})
	_, err := env.gate.Authorize(context.Background(), "missing", "0xabc", 100)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestAuthorize_RetryAfterFailedReportKeepsPayment(t *testing.T) {
	renderer := &fakeRenderer{err: errBoom}
	env := newTestEnv(t, &fakeAssessmentClient{result: completedResult(1, 1, 1)}, renderer)
	ctx := context.Background()

	task := env.createAndAssess(t, "S1")
	_, err := env.gate.Authorize(ctx, task.ID, "0xabc", 100)
	require.NoError(t, err)

	view := env.waitReport(t, task.ID)
	require.Equal(t, models.ReportStatusFailed, view.ReportStatus)
	assert.Contains(t, view.ReportError, "boom")
	assert.False(t, view.HasArtifact)

	_, err = env.reports.FetchArtifact(ctx, task.ID)
	assert.ErrorIs(t, err, ErrReportNotReady)

	paid, err := env.tasks.Get(ctx, task.ID)
	require.NoError(t, err)

	renderer.set("<html>second try</html>", nil)
	status, err := env.gate.Authorize(ctx, task.ID, "0xother", 50)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusGenerating, status)

	view = env.waitReport(t, task.ID)
	assert.Equal(t, models.ReportStatusCompleted, view.ReportStatus)

	got, err := env.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", got.PaymentRef)
	assert.Equal(t, 100.0, got.PaymentAmount)
	require.NotNil(t, got.PaidAt)
	assert.True(t, paid.PaidAt.Equal(*got.PaidAt))

	assert.Equal(t, []models.ReportStatus{
		models.ReportStatusGenerating, models.ReportStatusFailed,
		models.ReportStatusGenerating, models.ReportStatusCompleted,
	}, env.store.reportTrace(task.ID))
}

func TestAuthorize_DispatchRejectionFailsReport(t *testing.T) {
	env := newTestEnv(t, &fakeAssessmentClient{result: completedResult(1, 1, 1)}, &fakeRenderer{artifact: "x"})
	ctx := context.Background()
	task := env.createAndAssess(t, "S1")

	gate := NewPaymentGate(env.tasks, env.store,
		NewReportService(env.tasks, env.store, env.renderer, rejectingDispatcher{}, time.Second))

	status, err := gate.Authorize(ctx, task.ID, "0xabc", 100)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusGenerating, status)

	view, err := env.reports.GetStatus(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, view.ReportStatus)
	assert.Contains(t, view.ReportError, "could not be scheduled")
}
