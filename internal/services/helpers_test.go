package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
	"github.com/openwork-hackathon/team-clawctor/internal/store"
	"github.com/openwork-hackathon/team-clawctor/internal/store/storetest"
	"github.com/openwork-hackathon/team-clawctor/internal/worker"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeAssessmentClient struct {
	result *models.AssessmentResult
	err    error
	delay  time.Duration
	// block waits for the call context to end, simulating a hung provider.
	block    bool
	panicMsg string
	calls    atomic.Int32
}

func (f *fakeAssessmentClient) Assess(ctx context.Context, sub *models.Submission) (*models.AssessmentResult, error) {
	f.calls.Add(1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		return nil, NewUpstreamError("assess", UpstreamTransport, ctx.Err())
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, NewUpstreamError("assess", UpstreamTransport, ctx.Err())
		}
	}
	return f.result, f.err
}

type fakeRenderer struct {
	mu       sync.Mutex
	artifact string
	err      error
	delay    time.Duration
	block    bool
	calls    atomic.Int32
}

func (f *fakeRenderer) set(artifact string, err error) {
	f.mu.Lock()
	f.artifact, f.err = artifact, err
	f.mu.Unlock()
}

func (f *fakeRenderer) Render(ctx context.Context, task *models.Task) (string, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.artifact, f.err
}

type rejectingDispatcher struct{}

func (rejectingDispatcher) Dispatch(context.Context, worker.Job) error {
	return worker.ErrPoolFull
}

// traceStore records every status value written by a successful conditional update.
type traceStore struct {
	store.TaskStore
	mu      sync.Mutex
	status  map[string][]models.TaskStatus
	reports map[string][]models.ReportStatus
}

func newTraceStore(inner store.TaskStore) *traceStore {
	return &traceStore{
		TaskStore: inner,
		status:    make(map[string][]models.TaskStatus),
		reports:   make(map[string][]models.ReportStatus),
	}
}

func (s *traceStore) ConditionalUpdate(ctx context.Context, id string, patch store.Patch, conds ...store.Condition) (bool, error) {
	ok, err := s.TaskStore.ConditionalUpdate(ctx, id, patch, conds...)
	if ok && err == nil {
		s.mu.Lock()
		if v, found := patch[store.ColStatus]; found {
			s.status[id] = append(s.status[id], v.(models.TaskStatus))
		}
		if v, found := patch[store.ColReportStatus]; found {
			s.reports[id] = append(s.reports[id], v.(models.ReportStatus))
		}
		s.mu.Unlock()
	}
	return ok, err
}

func (s *traceStore) statusTrace(id string) []models.TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.TaskStatus(nil), s.status[id]...)
}

func (s *traceStore) reportTrace(id string) []models.ReportStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ReportStatus(nil), s.reports[id]...)
}

type testEnv struct {
	db           *gorm.DB
	store        *traceStore
	tasks        *TaskService
	orchestrator *AssessmentOrchestrator
	reports      *ReportService
	gate         *PaymentGate
	client       *fakeAssessmentClient
	renderer     *fakeRenderer
}

type envOption func(*envConfig)

type envConfig struct {
	assessTimeout time.Duration
	reportTimeout time.Duration
	dispatcher    worker.Dispatcher
}

func withTimeouts(assess, report time.Duration) envOption {
	return func(c *envConfig) { c.assessTimeout, c.reportTimeout = assess, report }
}

func withDispatcher(d worker.Dispatcher) envOption {
	return func(c *envConfig) { c.dispatcher = d }
}

func newTestEnv(t *testing.T, client *fakeAssessmentClient, renderer *fakeRenderer, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{assessTimeout: 2 * time.Second, reportTimeout: 2 * time.Second}
	for _, o := range opts {
		o(&cfg)
	}

	db := storetest.NewDB(t)
	st := newTraceStore(store.NewGormTaskStore(db))

	registry := worker.NewRegistry()
	dispatcher := cfg.dispatcher
	if dispatcher == nil {
		pool := worker.NewPool(32, registry.Handle)
		pool.Start(4)
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = pool.Shutdown(ctx)
		})
		dispatcher = pool
	}

	tasks := NewTaskService(st)
	orch := NewAssessmentOrchestrator(tasks, client, dispatcher, cfg.assessTimeout)
	reports := NewReportService(tasks, st, renderer, dispatcher, cfg.reportTimeout)
	gate := NewPaymentGate(tasks, st, reports)
	registry.Register(worker.KindAssessment, orch.Handle)
	registry.Register(worker.KindReport, reports.Handle)

	return &testEnv{
		db:           db,
		store:        st,
		tasks:        tasks,
		orchestrator: orch,
		reports:      reports,
		gate:         gate,
		client:       client,
		renderer:     renderer,
	}
}

func sampleSubmission(ref string) *models.Submission {
	return &models.Submission{
		Ref:             ref,
		QuestionnaireID: "security-v1",
		Sections: []models.SubmissionSection{
			{
				SectionKey: "access",
				Title:      "Identity & Access",
				Order:      1,
				Answers: []models.SubmissionAnswer{
					{QuestionCode: "IA-1", QuestionText: "Is MFA enforced?", AnswerText: "No"},
					{QuestionCode: "IA-2", QuestionText: "Roles in use", AnswerJSON: json.RawMessage(`["admin","dev"]`)},
				},
			},
		},
	}
}

func completedResult(high, medium, low int) *models.AssessmentResult {
	return &models.AssessmentResult{
		Counts:  models.RiskCounts{High: high, Medium: medium, Low: low},
		Summary: "MFA is missing; overall posture is weak.",
		Raw:     json.RawMessage(`{"highRiskCount":2,"mediumRiskCount":3,"lowRiskCount":5,"summary":"MFA is missing; overall posture is weak."}`),
		Model:   "test-model",
	}
}

// createAndAssess creates a task and waits until its assessment is terminal.
func (e *testEnv) createAndAssess(t *testing.T, ref string) *models.Task {
	t.Helper()
	ctx := context.Background()
	task, created, err := e.tasks.Create(ctx, ref, true)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, e.orchestrator.RunAsync(ctx, task.ID, sampleSubmission(ref)))
	return e.waitAssessment(t, task.ID)
}

func (e *testEnv) waitAssessment(t *testing.T, id string) *models.Task {
	t.Helper()
	var got *models.Task
	require.Eventually(t, func() bool {
		var err error
		got, err = e.tasks.Get(context.Background(), id)
		return err == nil && got.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func (e *testEnv) waitReport(t *testing.T, id string) *ReportStatusView {
	t.Helper()
	var view *ReportStatusView
	require.Eventually(t, func() bool {
		var err error
		view, err = e.reports.GetStatus(context.Background(), id)
		return err == nil && (view.ReportStatus == models.ReportStatusCompleted || view.ReportStatus == models.ReportStatusFailed)
	}, 5*time.Second, 10*time.Millisecond)
	return view
}

var errBoom = errors.New("boom")
