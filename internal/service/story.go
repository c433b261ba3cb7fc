package service

import (
	"context"
	"os"

	"go.uber.org/zap"

	"storyreel/internal/appcore"
	"storyreel/internal/appdirs"
	"storyreel/internal/dto"
	"storyreel/internal/storage"
	"storyreel/internal/storygen"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

func (s *Service) StartStory(ctx context.Context, req dto.StartStoryReq) (*dto.StartStoryResData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.stories == nil {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "Story generation is not configured")
	}
	if _, err := os.Stat(appdirs.TimelinePathFor(s.ContentDir(), req.StoryId)); err == nil && !req.Overwrite {
		return nil, apperrors.WrapWithDetail(apperrors.CodeConflict, "Story already exists", req.StoryId, nil)
	}

	jobID := s.newID()
	job := &storage.StoryJob{
		JobId:      jobID,
		StoryId:    req.StoryId,
		Title:      req.Title,
		ShortTitle: req.ShortTitle,
		Topic:      req.Topic,
		Status:     appcore.JobStageQueued,
	}
	if err := s.store.SaveStoryJob(job); err != nil {
		return nil, err
	}

	err := errNoDispatcher
	if s.dispatcher != nil {
		err = s.dispatcher.SubmitStory(appcore.StoryPayload{
			JobID:       jobID,
			StoryID:     req.StoryId,
			Title:       req.Title,
			ShortTitle:  req.ShortTitle,
			Topic:       req.Topic,
			PhraseChars: req.PhraseChars,
		})
	}
	if err != nil {
		job.Status = appcore.JobStageFailed
		job.FailReason = err.Error()
		_ = s.store.SaveStoryJob(job)
		return nil, dispatchError(err)
	}
	s.publish(jobID, appcore.JobKindStory, appcore.JobStageQueued, nil, "", nil)

	log.GetLogger().Info("story job queued", zap.String("job_id", jobID), zap.String("story", req.StoryId))
	return &dto.StartStoryResData{JobId: jobID, StoryId: req.StoryId}, nil
}

// ExecuteStory generates the story content; once the timeline is written the
// registry lists it as a new composition.
func (s *Service) ExecuteStory(ctx context.Context, p appcore.StoryPayload) error {
	logger := log.GetLogger().With(zap.String("job_id", p.JobID), zap.String("story", p.StoryID))

	job, err := s.store.GetStoryJob(p.JobID)
	if err != nil {
		return err
	}

	if err = ctx.Err(); err == nil {
		job.Status = appcore.JobStageProcessing
		if saveErr := s.store.SaveStoryJob(job); saveErr != nil {
			logger.Warn("persist story stage failed", zap.Error(saveErr))
		}
		s.publish(job.JobId, appcore.JobKindStory, appcore.JobStageProcessing, nil, "", nil)

		_, err = s.stories.Generate(ctx, storygen.Request{
			StoryID:     p.StoryID,
			Title:       p.Title,
			ShortTitle:  p.ShortTitle,
			Topic:       p.Topic,
			PhraseChars: p.PhraseChars,
		}, func(sp storygen.StepProgress) {
			job.Step = sp.Step
			if saveErr := s.store.UpdateStoryStep(job.JobId, appcore.JobStageProcessing, sp.Step); saveErr != nil {
				logger.Warn("persist story step failed", zap.Error(saveErr))
			}
			msg := sp.Step
			if sp.Retry > 0 {
				msg = sp.Step + " retry"
			}
			s.publish(job.JobId, appcore.JobKindStory, appcore.JobStageProcessing,
				appcore.NewProgress(appcore.JobStageProcessing, int64(sp.Done), int64(sp.Total), msg), msg, nil)
		})
	}

	switch {
	case err == nil:
		job.Status = appcore.JobStageSucceeded
		logger.Info("story job succeeded")
	case ctx.Err() != nil:
		job.Status = appcore.JobStageCanceled
		job.FailReason = "canceled"
		logger.Info("story job canceled")
	default:
		job.Status = appcore.JobStageFailed
		job.FailReason = err.Error()
		logger.Error("story job failed", zap.Error(err))
	}
	if saveErr := s.store.SaveStoryJob(job); saveErr != nil {
		logger.Error("save story job failed", zap.Error(saveErr))
	}
	s.publish(job.JobId, appcore.JobKindStory, job.Status, nil, job.Step, err)
	return err
}

func (s *Service) GetStory(jobID string) (*storage.StoryJob, error) {
	return s.store.GetStoryJob(jobID)
}

func (s *Service) StoryHistory(limit int) ([]storage.StoryJob, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.StoryHistory(limit)
}
