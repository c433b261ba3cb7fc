package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"storyreel/internal/appcore"
	apperrors "storyreel/pkg/errors"
)

const interruptedReason = "Task interrupted by server restart"

type RenderJob struct {
	Id             uint64           `json:"-" gorm:"primaryKey;autoIncrement"`
	JobId          string           `json:"jobId" gorm:"uniqueIndex;size:64"`
	CompositionId  string           `json:"compositionId" gorm:"index"`
	Status         appcore.JobStage `json:"status"`
	TotalFrames    int              `json:"totalFrames"`
	RenderedFrames int              `json:"renderedFrames"`
	OutputPath     string           `json:"outputPath"`
	RemoteUrl      string           `json:"remoteUrl,omitempty"`
	FailReason     string           `json:"failReason,omitempty"`
	CreateTime     int64            `json:"createTime" gorm:"autoCreateTime:milli"`
	UpdateTime     int64            `json:"updateTime" gorm:"autoUpdateTime:milli"`
}

type StoryJob struct {
	Id         uint64           `json:"-" gorm:"primaryKey;autoIncrement"`
	JobId      string           `json:"jobId" gorm:"uniqueIndex;size:64"`
	StoryId    string           `json:"storyId" gorm:"index"`
	Title      string           `json:"title"`
	ShortTitle string           `json:"shortTitle"`
	Topic      string           `json:"topic"`
	Status     appcore.JobStage `json:"status"`
	Step       string           `json:"step,omitempty"`
	FailReason string           `json:"failReason,omitempty"`
	CreateTime int64            `json:"createTime" gorm:"autoCreateTime:milli"`
	UpdateTime int64            `json:"updateTime" gorm:"autoUpdateTime:milli"`
}

func notFoundOr(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.WrapWithDetail(apperrors.CodeNotFound, what+" not found", id, err)
	}
	return apperrors.Wrap(apperrors.CodeDBError, "Query "+what+" failed", err)
}

// SaveRenderJob creates or updates by JobId.
func (s *Store) SaveRenderJob(job *RenderJob) error {
	var existing RenderJob
	result := s.db.Where("job_id = ?", job.JobId).First(&existing)
	switch {
	case result.Error == nil:
		job.Id = existing.Id
		job.CreateTime = existing.CreateTime
		return wrapDB(s.db.Save(job).Error)
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		return wrapDB(s.db.Create(job).Error)
	default:
		return wrapDB(result.Error)
	}
}

func (s *Store) GetRenderJob(jobId string) (*RenderJob, error) {
	var job RenderJob
	if err := s.db.Where("job_id = ?", jobId).First(&job).Error; err != nil {
		return nil, notFoundOr(err, "render job", jobId)
	}
	return &job, nil
}

func (s *Store) RenderHistory(limit int) ([]RenderJob, error) {
	var jobs []RenderJob
	if err := s.db.Order("create_time desc, id desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, wrapDB(err)
	}
	return jobs, nil
}

func (s *Store) DeleteRenderJob(jobId string) error {
	return wrapDB(s.db.Where("job_id = ?", jobId).Delete(&RenderJob{}).Error)
}

// UpdateRenderProgress touches only the progress columns so it can run
// while other fields are being finalized elsewhere.
func (s *Store) UpdateRenderProgress(jobId string, stage appcore.JobStage, rendered, total int) error {
	return wrapDB(s.db.Model(&RenderJob{}).Where("job_id = ?", jobId).Updates(map[string]any{
		"status":          stage,
		"rendered_frames": rendered,
		"total_frames":    total,
		"update_time":     time.Now().UnixMilli(),
	}).Error)
}

func (s *Store) SaveStoryJob(job *StoryJob) error {
	var existing StoryJob
	result := s.db.Where("job_id = ?", job.JobId).First(&existing)
	switch {
	case result.Error == nil:
		job.Id = existing.Id
		job.CreateTime = existing.CreateTime
		return wrapDB(s.db.Save(job).Error)
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		return wrapDB(s.db.Create(job).Error)
	default:
		return wrapDB(result.Error)
	}
}

func (s *Store) GetStoryJob(jobId string) (*StoryJob, error) {
	var job StoryJob
	if err := s.db.Where("job_id = ?", jobId).First(&job).Error; err != nil {
		return nil, notFoundOr(err, "story job", jobId)
	}
	return &job, nil
}

func (s *Store) StoryHistory(limit int) ([]StoryJob, error) {
	var jobs []StoryJob
	if err := s.db.Order("create_time desc, id desc").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, wrapDB(err)
	}
	return jobs, nil
}

func (s *Store) UpdateStoryStep(jobId string, stage appcore.JobStage, step string) error {
	return wrapDB(s.db.Model(&StoryJob{}).Where("job_id = ?", jobId).Updates(map[string]any{
		"status":      stage,
		"step":        step,
		"update_time": time.Now().UnixMilli(),
	}).Error)
}

// MarkStaleJobs fails every non-terminal job. It is called on startup, when
// no worker can still own them.
func (s *Store) MarkStaleJobs() (int64, error) {
	active := []appcore.JobStage{appcore.JobStageQueued, appcore.JobStagePreparing, appcore.JobStageProcessing, appcore.JobStageFinalizing}
	updates := map[string]any{
		"status":      appcore.JobStageFailed,
		"fail_reason": interruptedReason,
	}

	renders := s.db.Model(&RenderJob{}).Where("status IN ?", active).Updates(updates)
	if renders.Error != nil {
		return 0, wrapDB(renders.Error)
	}
	stories := s.db.Model(&StoryJob{}).Where("status IN ?", active).Updates(updates)
	if stories.Error != nil {
		return renders.RowsAffected, wrapDB(stories.Error)
	}
	return renders.RowsAffected + stories.RowsAffected, nil
}

func wrapDB(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.CodeDBError, "Database operation failed", err)
}
