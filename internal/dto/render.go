package dto

import (
	"storyreel/internal/composition"
	"storyreel/internal/scene"
	"storyreel/internal/storage"
)

type StartRenderReq struct {
	CompositionId string `json:"compositionId" binding:"required"`
}

type StartRenderResData struct {
	JobId       string `json:"jobId"`
	OutputPath  string `json:"outputPath"`
	TotalFrames int    `json:"totalFrames"`
}

type HistoryReq struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ScheduleResData carries the frame schedule of a timeline composition, or
// the scene list of a static one.
type ScheduleResData struct {
	Composition composition.Composition `json:"composition"`
	Schedule    *composition.Schedule   `json:"schedule,omitempty"`
	Scenes      *scene.Descriptor       `json:"scenes,omitempty"`
}

// RenderJobResData is a stored render plus the /api/file path of its output
// once it has succeeded.
type RenderJobResData struct {
	storage.RenderJob
	DownloadUrl string `json:"downloadUrl,omitempty"`
}
