package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"storyreel/internal/appcore"
	"storyreel/internal/appdirs"
	"storyreel/internal/composition"
	"storyreel/internal/dto"
	"storyreel/internal/storage"
	"storyreel/internal/taskrunner"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
	"storyreel/pkg/objectstore"
)

const defaultHistoryLimit = 50

func (s *Service) ListCompositions(ctx context.Context) []composition.Composition {
	return s.registry.List(ctx)
}

func (s *Service) GetComposition(ctx context.Context, id string) (*composition.Composition, error) {
	res, err := s.registry.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return &res.Composition, nil
}

func (s *Service) GetSchedule(ctx context.Context, id string) (*dto.ScheduleResData, error) {
	res, err := s.registry.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.ScheduleResData{Composition: res.Composition, Schedule: res.Schedule, Scenes: res.Scene}, nil
}

var errNoDispatcher = errors.New("no job dispatcher attached")

func dispatchError(err error) error {
	switch {
	case errors.Is(err, taskrunner.ErrQueueFull):
		return apperrors.Wrap(apperrors.CodeConflict, "Job queue is full, try again later", err)
	case errors.Is(err, taskrunner.ErrRunnerStopped):
		return apperrors.Wrap(apperrors.CodeConflict, "Job runner is shutting down", err)
	default:
		return apperrors.Wrap(apperrors.CodeUnknown, "Submit job failed", err)
	}
}

// StartRender resolves the composition up front so an unknown id or a
// broken timeline is reported to the caller instead of failing in a worker.
func (s *Service) StartRender(ctx context.Context, req dto.StartRenderReq) (*dto.StartRenderResData, error) {
	res, err := s.registry.Resolve(ctx, req.CompositionId)
	if err != nil {
		return nil, err
	}

	jobID := s.newID()
	job := &storage.RenderJob{
		JobId:         jobID,
		CompositionId: res.ID,
		Status:        appcore.JobStageQueued,
		TotalFrames:   res.DurationInFrames,
		OutputPath:    renderOutputPath(s.OutputDir(), jobID, res.ID),
	}
	if err = s.store.SaveRenderJob(job); err != nil {
		return nil, err
	}

	err = errNoDispatcher
	if s.dispatcher != nil {
		err = s.dispatcher.SubmitRender(appcore.RenderPayload{JobID: jobID, CompositionID: res.ID, OutputPath: job.OutputPath})
	}
	if err != nil {
		job.Status = appcore.JobStageFailed
		job.FailReason = err.Error()
		_ = s.store.SaveRenderJob(job)
		return nil, dispatchError(err)
	}
	s.publish(jobID, appcore.JobKindRender, appcore.JobStageQueued, nil, "", nil)

	log.GetLogger().Info("render job queued", zap.String("job_id", jobID), zap.String("composition", res.ID))
	return &dto.StartRenderResData{JobId: jobID, OutputPath: job.OutputPath, TotalFrames: job.TotalFrames}, nil
}

// ExecuteRender runs one queued render to completion and records the outcome.
func (s *Service) ExecuteRender(ctx context.Context, p appcore.RenderPayload) error {
	logger := log.GetLogger().With(zap.String("job_id", p.JobID), zap.String("composition", p.CompositionID))

	job, err := s.store.GetRenderJob(p.JobID)
	if err != nil {
		return err
	}
	err = s.runRender(ctx, job, p)

	switch {
	case err == nil:
		job.Status = appcore.JobStageSucceeded
		job.RenderedFrames = job.TotalFrames
		logger.Info("render job succeeded", zap.String("out", job.OutputPath))
	case ctx.Err() != nil:
		job.Status = appcore.JobStageCanceled
		job.FailReason = "canceled"
		logger.Info("render job canceled")
	default:
		job.Status = appcore.JobStageFailed
		job.FailReason = err.Error()
		logger.Error("render job failed", zap.Error(err))
	}
	if saveErr := s.store.SaveRenderJob(job); saveErr != nil {
		logger.Error("save render job failed", zap.Error(saveErr))
	}
	s.publish(job.JobId, appcore.JobKindRender, job.Status,
		appcore.NewProgress(job.Status, int64(job.RenderedFrames), int64(job.TotalFrames), ""), "", err)
	return err
}

func (s *Service) runRender(ctx context.Context, job *storage.RenderJob, p appcore.RenderPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.setRenderStage(job, appcore.JobStagePreparing, "resolving composition")

	res, err := s.registry.Resolve(ctx, p.CompositionID)
	if err != nil {
		return err
	}
	job.TotalFrames = res.DurationInFrames
	out := p.OutputPath
	if out == "" {
		out = renderOutputPath(s.OutputDir(), job.JobId, res.ID)
	}
	job.OutputPath = out

	s.setRenderStage(job, appcore.JobStageProcessing, "rendering frames")
	err = s.renderer.Render(ctx, res, out, func(done, total int) {
		job.RenderedFrames = done
		if err := s.store.UpdateRenderProgress(job.JobId, appcore.JobStageProcessing, done, total); err != nil {
			log.GetLogger().Warn("persist render progress failed", zap.String("job_id", job.JobId), zap.Error(err))
		}
		s.publish(job.JobId, appcore.JobKindRender, appcore.JobStageProcessing,
			appcore.NewProgress(appcore.JobStageProcessing, int64(done), int64(total), ""), "", nil)
	})
	if err != nil {
		return err
	}

	if _, noop := s.uploader.(objectstore.Noop); noop {
		return nil
	}
	s.setRenderStage(job, appcore.JobStageFinalizing, "uploading")
	key := filepath.ToSlash(filepath.Join(job.JobId, filepath.Base(out)))
	url, err := s.uploader.Upload(ctx, out, key)
	if err != nil {
		return err
	}
	job.RemoteUrl = url
	return nil
}

func (s *Service) setRenderStage(job *storage.RenderJob, stage appcore.JobStage, msg string) {
	job.Status = stage
	if err := s.store.SaveRenderJob(job); err != nil {
		log.GetLogger().Warn("persist render stage failed", zap.String("job_id", job.JobId), zap.Error(err))
	}
	s.publish(job.JobId, appcore.JobKindRender, stage,
		appcore.NewProgress(stage, int64(job.RenderedFrames), int64(job.TotalFrames), msg), msg, nil)
}

func (s *Service) GetRender(jobID string) (*storage.RenderJob, error) {
	return s.store.GetRenderJob(jobID)
}

func (s *Service) RenderHistory(limit int) ([]storage.RenderJob, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.RenderHistory(limit)
}

// DeleteRender cancels the job if it is still live and removes its record
// and output dir.
func (s *Service) DeleteRender(jobID string) error {
	job, err := s.store.GetRenderJob(jobID)
	if err != nil {
		return err
	}
	if !job.Status.IsTerminal() && s.dispatcher != nil {
		s.dispatcher.Cancel(jobID)
	}

	dir := appdirs.RenderDirFor(s.OutputDir(), jobID)
	if err = os.RemoveAll(dir); err != nil {
		log.GetLogger().Error("remove render dir failed", zap.String("path", dir), zap.Error(err))
	}
	return s.store.DeleteRenderJob(jobID)
}

// DownloadPath is the /api/file path of a finished render.
func (s *Service) DownloadPath(job *storage.RenderJob) string {
	if job.Status != appcore.JobStageSucceeded {
		return ""
	}
	p, err := resolveDownloadPath(s.OutputDir(), job.OutputPath)
	if err != nil {
		return ""
	}
	return p
}
