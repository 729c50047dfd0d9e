package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"go.uber.org/zap"
)

// Pool is an in-process bounded job queue served by a fixed set of goroutines.
type Pool struct {
	queue   chan Job
	handler Handler

	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPool(size int, handler Handler) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:   make(chan Job, size),
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches n workers. With zero workers jobs only accumulate.
func (p *Pool) Start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
}

// Dispatch enqueues job without blocking.
func (p *Pool) Dispatch(_ context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- job:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. If ctx expires first,
// running handlers see their context cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		runJob(p.ctx, p.handler, job, zap.Int("worker", id))
	}
}

// runJob invokes h and keeps the calling goroutine alive across handler panics.
func runJob(ctx context.Context, h Handler, job Job, fields ...zap.Field) {
	defer func() {
		if r := recover(); r != nil {
			logger.ForTask(job.TaskID).Error("Job handler panicked",
				append(fields, zap.String("kind", string(job.Kind)), zap.String("panic", fmt.Sprint(r)))...)
		}
	}()

	if err := h(ctx, job); err != nil {
		logger.ForTask(job.TaskID).Warn("Job finished with error",
			append(fields, zap.String("kind", string(job.Kind)), zap.Error(err))...)
	}
}
