package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storyreel/config"
	"storyreel/internal/appcore"
	"storyreel/internal/appdirs"
	"storyreel/internal/composition"
	"storyreel/internal/dto"
	"storyreel/internal/mocks"
	"storyreel/internal/storage"
	"storyreel/internal/storygen"
	"storyreel/internal/taskrunner"
	"storyreel/internal/timeline"
	apperrors "storyreel/pkg/errors"
)

type recordingDispatcher struct {
	mu        sync.Mutex
	renders   []appcore.RenderPayload
	stories   []appcore.StoryPayload
	cancelled []string
	err       error
}

func (d *recordingDispatcher) SubmitRender(p appcore.RenderPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.renders = append(d.renders, p)
	return nil
}

func (d *recordingDispatcher) SubmitStory(p appcore.StoryPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.stories = append(d.stories, p)
	return nil
}

func (d *recordingDispatcher) Cancel(jobID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelled = append(d.cancelled, jobID)
	return true
}

type fakeStories struct {
	err error
	got storygen.Request
}

func (f *fakeStories) Generate(_ context.Context, req storygen.Request, progress storygen.Progress) (*timeline.Timeline, error) {
	f.got = req
	progress(storygen.StepProgress{Step: storygen.StepImages, Done: 1, Total: 2})
	if f.err != nil {
		return nil, f.err
	}
	return &timeline.Timeline{ShortTitle: req.ShortTitle}, nil
}

type fixture struct {
	svc        *Service
	store      *storage.Store
	renderer   *mocks.MockRenderer
	uploader   *mocks.MockUploader
	dispatcher *recordingDispatcher
	stories    *fakeStories
	cfg        *config.Config
}

func writeStory(t *testing.T, contentDir, id string) {
	t.Helper()
	require.NoError(t, timeline.Write(appdirs.TimelinePathFor(contentDir, id), &timeline.Timeline{
		ShortTitle: "Tides",
		Elements:   []timeline.BackgroundElement{{StartMs: 0, EndMs: 1000, Source: "bg"}},
		Text:       []timeline.SubtitleCue{{StartMs: 0, EndMs: 500, Text: "hi"}},
		Audio:      []timeline.AudioCue{{StartMs: 0, EndMs: 1000, AudioUrl: "a"}},
	}))
}

func newFixture(t *testing.T, withUploader bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.App.ContentDir = filepath.Join(dir, "content")
	cfg.App.OutputDir = filepath.Join(dir, "renders")
	writeStory(t, cfg.App.ContentDir, "tides")

	store, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:      store,
		renderer:   &mocks.MockRenderer{},
		dispatcher: &recordingDispatcher{},
		stories:    &fakeStories{},
		cfg:        cfg,
	}
	deps := Deps{
		Config: cfg,
		Registry: composition.NewRegistry(composition.Options{
			ContentDir: cfg.App.ContentDir, Fps: 30, IntroFrames: 60, Width: 64, Height: 36,
		}),
		Store:    store,
		Renderer: f.renderer,
		Stories:  f.stories,
	}
	if withUploader {
		f.uploader = &mocks.MockUploader{}
		deps.Uploader = f.uploader
	}
	f.svc = New(deps)
	f.svc.newID = func() string { return "job-1" }
	f.svc.UseDispatcher(f.dispatcher)
	return f
}

func TestStartRenderUnknownComposition(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.StartRender(context.Background(), dto.StartRenderReq{CompositionId: "tidez"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeCompositionNotFound, apperrors.GetCode(err))
	assert.Contains(t, apperrors.GetDetail(err), "did you mean tides?")
	assert.Empty(t, f.dispatcher.renders)
}

func TestRenderLifecycle(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	res, err := f.svc.StartRender(ctx, dto.StartRenderReq{CompositionId: "tides"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", res.JobId)
	assert.Equal(t, 90, res.TotalFrames)
	wantOut := filepath.Join(f.cfg.App.OutputDir, "job-1", "tides.mp4")
	assert.Equal(t, wantOut, res.OutputPath)
	require.Len(t, f.dispatcher.renders, 1)

	job, err := f.svc.GetRender("job-1")
	require.NoError(t, err)
	assert.Equal(t, appcore.JobStageQueued, job.Status)

	events, stop := f.svc.Subscribe("job-1")
	defer stop()

	f.renderer.On("Render", mock.Anything, mock.MatchedBy(func(r *composition.Resolved) bool {
		return r.ID == "tides" && r.Schedule != nil
	}), wantOut).Return(nil)
	require.NoError(t, f.svc.ExecuteRender(ctx, f.dispatcher.renders[0]))
	f.renderer.AssertExpectations(t)

	job, err = f.svc.GetRender("job-1")
	require.NoError(t, err)
	assert.Equal(t, appcore.JobStageSucceeded, job.Status)
	assert.Equal(t, 90, job.RenderedFrames)
	assert.Equal(t, "renders/job-1/tides.mp4", f.svc.DownloadPath(job))

	var stages []appcore.JobStage
	for ev := range events {
		stages = append(stages, ev.Stage)
		if ev.Stage.IsTerminal() {
			break
		}
	}
	assert.Equal(t, []appcore.JobStage{
		appcore.JobStageQueued,
		appcore.JobStagePreparing,
		appcore.JobStageProcessing,
		appcore.JobStageProcessing,
		appcore.JobStageSucceeded,
	}, stages)

	snap, err := f.svc.Snapshot("job-1")
	require.NoError(t, err)
	assert.Equal(t, appcore.JobStageSucceeded, snap.Stage)
	assert.Equal(t, appcore.JobKindRender, snap.Kind)
}

func TestRenderFailureAndCancel(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.StartRender(context.Background(), dto.StartRenderReq{CompositionId: "tides"})
	require.NoError(t, err)

	boom := apperrors.New(apperrors.CodeEncodeFailed, "ffmpeg exited with error")
	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return(boom).Once()
	err = f.svc.ExecuteRender(context.Background(), f.dispatcher.renders[0])
	assert.ErrorIs(t, err, boom)

	job, err := f.svc.GetRender("job-1")
	require.NoError(t, err)
	assert.Equal(t, appcore.JobStageFailed, job.Status)
	assert.Contains(t, job.FailReason, "ffmpeg exited with error")
	assert.Empty(t, f.svc.DownloadPath(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = f.svc.ExecuteRender(ctx, f.dispatcher.renders[0])
	assert.ErrorIs(t, err, context.Canceled)
	job, err = f.svc.GetRender("job-1")
	require.NoError(t, err)
	assert.Equal(t, appcore.JobStageCanceled, job.Status)
}

func TestRenderUploadsWhenConfigured(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.StartRender(context.Background(), dto.StartRenderReq{CompositionId: "tides"})
	require.NoError(t, err)

	f.renderer.On("Render", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.uploader.On("Upload", mock.Anything, filepath.Join(f.cfg.App.OutputDir, "job-1", "tides.mp4"), "job-1/tides.mp4").
		Return("https://cdn.example/job-1/tides.mp4", nil)
	require.NoError(t, f.svc.ExecuteRender(context.Background(), f.dispatcher.renders[0]))

	job, err := f.svc.GetRender("job-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/job-1/tides.mp4", job.RemoteUrl)
	f.uploader.AssertExpectations(t)
}

func TestStartRenderQueueFull(t *testing.T) {
	f := newFixture(t, false)
	f.dispatcher.err = taskrunner.ErrQueueFull

	_, err := f.svc.StartRender(context.Background(), dto.StartRenderReq{CompositionId: "tides"})
	assert.Equal(t, apperrors.CodeConflict, apperrors.GetCode(err))

	job, err := f.svc.GetRender("job-1")
	require.NoError(t, err)
	assert.Equal(t, appcore.JobStageFailed, job.Status)
}

func TestDeleteRender(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.StartRender(context.Background(), dto.StartRenderReq{CompositionId: "tides"})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(res.OutputPath), 0o755))
	require.NoError(t, os.WriteFile(res.OutputPath, []byte("mp4"), 0o644))

	require.NoError(t, f.svc.DeleteRender("job-1"))
	assert.Equal(t, []string{"job-1"}, f.dispatcher.cancelled)
	assert.NoDirExists(t, filepath.Dir(res.OutputPath))
	_, err = f.svc.GetRender("job-1")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))

	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(f.svc.DeleteRender("job-1")))
}

func TestStoryLifecycle(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.StartStory(ctx, dto.StartStoryReq{StoryId: "tides", Title: "Tides", Topic: "moon"})
	assert.Equal(t, apperrors.CodeConflict, apperrors.GetCode(err))

	res, err := f.svc.StartStory(ctx, dto.StartStoryReq{StoryId: "comets", Title: "Comets", ShortTitle: "COMETS", Topic: "ice", PhraseChars: 16})
	require.NoError(t, err)
	assert.Equal(t, "comets", res.StoryId)
	require.Len(t, f.dispatcher.stories, 1)
	assert.Equal(t, 16, f.dispatcher.stories[0].PhraseChars)

	require.NoError(t, f.svc.ExecuteStory(ctx, f.dispatcher.stories[0]))
	assert.Equal(t, storygen.Request{StoryID: "comets", Title: "Comets", ShortTitle: "COMETS", Topic: "ice", PhraseChars: 16}, f.stories.got)

	job, err := f.svc.GetStory(res.JobId)
	require.NoError(t, err)
	assert.Equal(t, appcore.JobStageSucceeded, job.Status)
	assert.Equal(t, storygen.StepImages, job.Step)
}

func TestStoryFailure(t *testing.T) {
	f := newFixture(t, false)
	f.stories.err = apperrors.New(apperrors.CodeUpstreamRetriesExhausted, "Image generation failed after retries")

	res, err := f.svc.StartStory(context.Background(), dto.StartStoryReq{StoryId: "comets", Title: "Comets", Topic: "ice"})
	require.NoError(t, err)
	err = f.svc.ExecuteStory(context.Background(), f.dispatcher.stories[0])
	assert.True(t, apperrors.IsUpstreamServiceError(err))

	job, err := f.svc.GetStory(res.JobId)
	require.NoError(t, err)
	assert.Equal(t, appcore.JobStageFailed, job.Status)

	snap, err := f.svc.Snapshot(res.JobId)
	require.NoError(t, err)
	assert.Equal(t, appcore.JobKindStory, snap.Kind)
	assert.NotEmpty(t, snap.Error)
}

func TestResolveDownloadPath(t *testing.T) {
	got, err := resolveDownloadPath("/data/renders", "/data/renders/j/x.mp4")
	require.NoError(t, err)
	assert.Equal(t, "renders/j/x.mp4", got)

	_, err = resolveDownloadPath("/data/renders", "/etc/passwd")
	assert.Error(t, err)
	_, err = resolveDownloadPath("/data/renders", "/data/renders")
	assert.Error(t, err)
}

