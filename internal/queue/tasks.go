package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"storyreel/internal/appcore"
	"storyreel/log"
)

// TaskHandlers adapts asynq tasks onto an Executor.
type TaskHandlers struct {
	exec appcore.Executor
}

// NewTaskHandlers creates a new TaskHandlers instance
func NewTaskHandlers(exec appcore.Executor) *TaskHandlers {
	return &TaskHandlers{exec: exec}
}

// HandleRenderTask processes render tasks
func (h *TaskHandlers) HandleRenderTask(ctx context.Context, t *asynq.Task) error {
	var payload appcore.RenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	log.GetLogger().Info("[Queue] Processing render task",
		zap.String("job_id", payload.JobID),
		zap.String("composition", payload.CompositionID))

	return h.exec.ExecuteRender(ctx, payload)
}

// HandleStoryTask processes story generation tasks
func (h *TaskHandlers) HandleStoryTask(ctx context.Context, t *asynq.Task) error {
	var payload appcore.StoryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	log.GetLogger().Info("[Queue] Processing story task",
		zap.String("job_id", payload.JobID),
		zap.String("story", payload.StoryID))

	return h.exec.ExecuteStory(ctx, payload)
}

// RegisterHandlers registers all task handlers with the Asynq server mux
func (h *TaskHandlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRenderComposition, h.HandleRenderTask)
	mux.HandleFunc(TypeStoryGenerate, h.HandleStoryTask)
}

// Start runs the worker in the background. Close stops it.
func (q *Queue) Start(exec appcore.Executor) error {
	mux := asynq.NewServeMux()
	NewTaskHandlers(exec).RegisterHandlers(mux)

	log.GetLogger().Info("[Queue] Starting worker",
		zap.String("redis_addr", q.config.RedisAddr),
		zap.Int("concurrency", q.config.Concurrency))

	return q.server.Start(mux)
}
