// Package service owns the render and story job lifecycles behind the HTTP
// API and the queue workers.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storyreel/config"
	"storyreel/internal/appcore"
	"storyreel/internal/composition"
	"storyreel/internal/progress"
	"storyreel/internal/render"
	"storyreel/internal/storage"
	"storyreel/internal/storygen"
	"storyreel/internal/timeline"
	"storyreel/pkg/objectstore"
)

type VideoRenderer interface {
	Render(ctx context.Context, res *composition.Resolved, out string, progress render.Progress) error
}

type StoryGenerator interface {
	Generate(ctx context.Context, req storygen.Request, progress storygen.Progress) (*timeline.Timeline, error)
}

type Deps struct {
	Config   *config.Config
	Registry *composition.Registry
	Store    *storage.Store
	Broker   *progress.Broker
	Renderer VideoRenderer
	Stories  StoryGenerator
	Uploader objectstore.Uploader
}

type Service struct {
	cfg        *config.Config
	registry   *composition.Registry
	store      *storage.Store
	broker     *progress.Broker
	renderer   VideoRenderer
	stories    StoryGenerator
	uploader   objectstore.Uploader
	dispatcher appcore.Dispatcher
	newID      func() string
}

var _ appcore.Executor = (*Service)(nil)

func New(d Deps) *Service {
	if d.Broker == nil {
		d.Broker = progress.NewBroker()
	}
	if d.Uploader == nil {
		d.Uploader = objectstore.Noop{}
	}
	return &Service{
		cfg:      d.Config,
		registry: d.Registry,
		store:    d.Store,
		broker:   d.Broker,
		renderer: d.Renderer,
		stories:  d.Stories,
		uploader: d.Uploader,
		newID:    uuid.NewString,
	}
}

// UseDispatcher sets where Start* sends jobs. The dispatcher usually needs
// the service as its executor, so it is attached after construction.
func (s *Service) UseDispatcher(d appcore.Dispatcher) {
	s.dispatcher = d
}

func (s *Service) Broker() *progress.Broker {
	return s.broker
}

func (s *Service) ContentDir() string {
	return s.cfg.App.ContentDir
}

func (s *Service) OutputDir() string {
	return s.cfg.App.OutputDir
}

func (s *Service) publish(jobID string, kind appcore.JobKind, stage appcore.JobStage, p *appcore.JobProgress, msg string, err error) {
	ev := appcore.JobEvent{
		JobID:      jobID,
		Kind:       kind,
		Stage:      stage,
		Progress:   p,
		Message:    msg,
		OccurredAt: time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.broker.Publish(ev)
}

// Subscribe streams events of jobID until the returned stop func is called.
func (s *Service) Subscribe(jobID string) (<-chan appcore.JobEvent, func()) {
	return s.broker.Subscribe(jobID)
}

// Snapshot describes a job from its stored record, for clients that connect
// after it has finished.
func (s *Service) Snapshot(jobID string) (appcore.JobEvent, error) {
	if job, err := s.store.GetRenderJob(jobID); err == nil {
		return appcore.JobEvent{
			JobID:      job.JobId,
			Kind:       appcore.JobKindRender,
			Stage:      job.Status,
			Progress:   appcore.NewProgress(job.Status, int64(job.RenderedFrames), int64(job.TotalFrames), ""),
			Error:      job.FailReason,
			OccurredAt: time.UnixMilli(job.UpdateTime),
		}, nil
	}
	job, err := s.store.GetStoryJob(jobID)
	if err != nil {
		return appcore.JobEvent{}, err
	}
	return appcore.JobEvent{
		JobID:      job.JobId,
		Kind:       appcore.JobKindStory,
		Stage:      job.Status,
		Message:    job.Step,
		Error:      job.FailReason,
		OccurredAt: time.UnixMilli(job.UpdateTime),
	}, nil
}
