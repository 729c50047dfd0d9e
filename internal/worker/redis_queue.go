package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/openwork-hackathon/team-clawctor/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	defaultBlockTimeout = time.Second
	errorBackoff        = time.Second
)

// RedisQueue is a Dispatcher backed by a redis list. Jobs are RPUSHed and consumed with BLPOP,
// so they survive a restart of the consuming process.
type RedisQueue struct {
	client       *redis.Client
	key          string
	handler      Handler
	blockTimeout time.Duration

	consumersWG sync.WaitGroup
	stop        context.CancelFunc

	// jobCtx is handed to handlers; it outlives stop so in-flight jobs can finish.
	jobCtx    context.Context
	jobCancel context.CancelFunc
}

func NewRedisQueue(client *redis.Client, key string, handler Handler) *RedisQueue {
	jobCtx, jobCancel := context.WithCancel(context.Background())
	return &RedisQueue{
		client:       client,
		key:          key,
		handler:      handler,
		blockTimeout: defaultBlockTimeout,
		jobCtx:       jobCtx,
		jobCancel:    jobCancel,
	}
}

func (q *RedisQueue) Dispatch(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key, data).Err()
}

// Start launches n consumers.
func (q *RedisQueue) Start(n int) {
	ctx, cancel := context.WithCancel(context.Background())
	q.stop = cancel
	for i := 0; i < n; i++ {
		q.consumersWG.Add(1)
		go q.consume(ctx, i)
	}
	logger.Log.Info("Redis job consumers started", zap.String("key", q.key), zap.Int("consumers", n))
}

// Shutdown stops consuming and waits for in-flight jobs. Jobs still in the list stay there.
func (q *RedisQueue) Shutdown(ctx context.Context) error {
	if q.stop != nil {
		q.stop()
	}

	done := make(chan struct{})
	go func() {
		q.consumersWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.jobCancel()
		return nil
	case <-ctx.Done():
		q.jobCancel()
		return ctx.Err()
	}
}

func (q *RedisQueue) consume(ctx context.Context, id int) {
	defer q.consumersWG.Done()
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := q.client.BLPop(ctx, q.blockTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Log.Error("Redis BLPop error", zap.Int("consumer", id), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
			continue
		}

		// result[0] is the key, result[1] is the value
		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			logger.Log.Error("Dropping undecodable job", zap.String("payload", result[1]), zap.Error(err))
			continue
		}
		runJob(q.jobCtx, q.handler, job, zap.Int("consumer", id))
	}
}
