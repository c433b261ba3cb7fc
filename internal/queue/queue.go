// Package queue provides background job processing using Asynq.
// It is the Redis-backed alternative to the in-process task runner.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"storyreel/config"
	"storyreel/internal/appcore"
	"storyreel/log"
)

// Task type names
const (
	TypeRenderComposition = "render:composition"
	TypeStoryGenerate     = "story:generate"
)

const defaultQueue = "default"

// Queue manages task enqueueing and processing
type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	inspector *asynq.Inspector
	config    config.Queue
}

var _ appcore.Dispatcher = (*Queue)(nil)

func redisOpt(cfg config.Queue) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// RetryDelay backs off exponentially: 10s, 20s, 40s, ...
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	return time.Duration(10<<uint(n)) * time.Second
}

func logTaskError(_ context.Context, task *asynq.Task, err error) {
	log.GetLogger().Error("Task failed",
		zap.String("type", task.Type()),
		zap.ByteString("payload", task.Payload()),
		zap.Error(err))
}

// NewQueue creates a new Queue instance
func NewQueue(cfg config.Queue) *Queue {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	opt := redisOpt(cfg)

	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				defaultQueue: 1,
			},
			RetryDelayFunc: RetryDelay,
			ErrorHandler:   asynq.ErrorHandlerFunc(logTaskError),
		},
	)

	return &Queue{
		client:    asynq.NewClient(opt),
		server:    server,
		inspector: asynq.NewInspector(opt),
		config:    cfg,
	}
}

// NewRenderTask never retries: a failed render is reported, not repeated.
func NewRenderTask(p appcore.RenderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRenderComposition, data,
		asynq.TaskID(p.JobID),
		asynq.MaxRetry(0),
		asynq.Timeout(2*time.Hour),
		asynq.Queue(defaultQueue),
	), nil
}

func NewStoryTask(p appcore.StoryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeStoryGenerate, data,
		asynq.TaskID(p.JobID),
		asynq.MaxRetry(0),
		asynq.Timeout(time.Hour),
		asynq.Queue(defaultQueue),
	), nil
}

func (q *Queue) enqueue(task *asynq.Task, jobID string) error {
	info, err := q.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.GetLogger().Info("Task enqueued",
		zap.String("job_id", jobID),
		zap.String("type", task.Type()),
		zap.String("queue_id", info.ID),
		zap.String("queue", info.Queue))
	return nil
}

// SubmitRender adds a render task to the queue
func (q *Queue) SubmitRender(p appcore.RenderPayload) error {
	task, err := NewRenderTask(p)
	if err != nil {
		return err
	}
	return q.enqueue(task, p.JobID)
}

// SubmitStory adds a story generation task to the queue
func (q *Queue) SubmitStory(p appcore.StoryPayload) error {
	task, err := NewStoryTask(p)
	if err != nil {
		return err
	}
	return q.enqueue(task, p.JobID)
}

// Cancel deletes a pending task or signals an active one to stop.
func (q *Queue) Cancel(jobID string) bool {
	if err := q.inspector.DeleteTask(defaultQueue, jobID); err == nil {
		return true
	}
	if err := q.inspector.CancelProcessing(jobID); err != nil {
		log.GetLogger().Warn("cancel queued task failed", zap.String("job_id", jobID), zap.Error(err))
		return false
	}
	return true
}

// Close gracefully shuts down the queue
func (q *Queue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	_ = q.inspector.Close()
	q.server.Shutdown()
	return nil
}
