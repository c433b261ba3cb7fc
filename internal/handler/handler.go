package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"storyreel/internal/appcore"
	"storyreel/internal/composition"
	"storyreel/internal/dto"
	"storyreel/internal/storage"
)

// Backend is the part of service.Service the HTTP API calls.
type Backend interface {
	ListCompositions(ctx context.Context) []composition.Composition
	GetComposition(ctx context.Context, id string) (*composition.Composition, error)
	GetSchedule(ctx context.Context, id string) (*dto.ScheduleResData, error)

	StartRender(ctx context.Context, req dto.StartRenderReq) (*dto.StartRenderResData, error)
	GetRender(jobID string) (*storage.RenderJob, error)
	RenderHistory(limit int) ([]storage.RenderJob, error)
	DeleteRender(jobID string) error
	DownloadPath(job *storage.RenderJob) string

	StartStory(ctx context.Context, req dto.StartStoryReq) (*dto.StartStoryResData, error)
	GetStory(jobID string) (*storage.StoryJob, error)
	StoryHistory(limit int) ([]storage.StoryJob, error)

	Snapshot(jobID string) (appcore.JobEvent, error)
	Subscribe(jobID string) (<-chan appcore.JobEvent, func())

	ContentDir() string
	OutputDir() string
}

type Handler struct {
	Service  Backend
	upgrader websocket.Upgrader
	started  time.Time
}

func NewHandler(svc Backend) Handler {
	return Handler{
		Service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the UI is served from another origin during development
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		started: time.Now(),
	}
}

func (h Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
