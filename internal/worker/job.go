// Package worker runs assessment and report jobs off the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
)

var (
	ErrPoolFull    = errors.New("job queue is full")
	ErrPoolClosed  = errors.New("job queue is closed")
	ErrUnknownKind = errors.New("no handler registered for job kind")
)

// Kind selects the handler for a job.
type Kind string

const (
	KindAssessment Kind = "assessment"
	KindReport     Kind = "report"
)

// Job is a unit of background work for one task.
type Job struct {
	Kind       Kind               `json:"kind"`
	TaskID     string             `json:"task_id"`
	Submission *models.Submission `json:"submission,omitempty"`
}

// Handler executes a job. Handlers record the job outcome on the task themselves;
// a returned error is only logged.
type Handler func(ctx context.Context, job Job) error

// Dispatcher accepts jobs for asynchronous execution.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// Registry routes jobs to the handler registered for their kind.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]Handler)}
}

func (r *Registry) Register(kind Kind, h Handler) {
	r.mu.Lock()
	r.handlers[kind] = h
	r.mu.Unlock()
}

// Handle runs the handler for job.Kind.
func (r *Registry) Handle(ctx context.Context, job Job) error {
	r.mu.RLock()
	h := r.handlers[job.Kind]
	r.mu.RUnlock()
	if h == nil {
		return fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}
	return h(ctx, job)
}
