package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyreel/internal/appcore"
)

type recordingExecutor struct {
	render appcore.RenderPayload
	story  appcore.StoryPayload
	err    error
}

func (r *recordingExecutor) ExecuteRender(_ context.Context, p appcore.RenderPayload) error {
	r.render = p
	return r.err
}

func (r *recordingExecutor) ExecuteStory(_ context.Context, p appcore.StoryPayload) error {
	r.story = p
	return r.err
}

func TestNewRenderTask(t *testing.T) {
	p := appcore.RenderPayload{JobID: "r1", CompositionID: "tides", OutputPath: "/out/r1/tides.mp4"}
	task, err := NewRenderTask(p)
	require.NoError(t, err)
	assert.Equal(t, TypeRenderComposition, task.Type())

	var back appcore.RenderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &back))
	assert.Equal(t, p, back)
}

func TestHandlersDispatchToExecutor(t *testing.T) {
	exec := &recordingExecutor{}
	h := NewTaskHandlers(exec)

	render, err := NewRenderTask(appcore.RenderPayload{JobID: "r1", CompositionID: "tides"})
	require.NoError(t, err)
	require.NoError(t, h.HandleRenderTask(context.Background(), render))
	assert.Equal(t, "tides", exec.render.CompositionID)

	story, err := NewStoryTask(appcore.StoryPayload{JobID: "s1", StoryID: "tides", Title: "Tides", Topic: "moon"})
	require.NoError(t, err)
	require.NoError(t, h.HandleStoryTask(context.Background(), story))
	assert.Equal(t, "moon", exec.story.Topic)

	exec.err = errors.New("render failed")
	assert.EqualError(t, h.HandleRenderTask(context.Background(), render), "render failed")
}

func TestHandlersSkipRetryOnBadPayload(t *testing.T) {
	h := NewTaskHandlers(&recordingExecutor{})
	err := h.HandleRenderTask(context.Background(), asynq.NewTask(TypeRenderComposition, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	err = h.HandleStoryTask(context.Background(), asynq.NewTask(TypeStoryGenerate, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 10*time.Second, RetryDelay(0, nil, nil))
	assert.Equal(t, 40*time.Second, RetryDelay(2, nil, nil))
}
