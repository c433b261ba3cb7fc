package router

import (
	"github.com/gin-gonic/gin"

	"storyreel/internal/handler"
)

func SetupRouter(r *gin.Engine, hdl handler.Handler) {
	r.GET("/healthz", hdl.Healthz)

	api := r.Group("/api")
	{
		api.GET("/healthz", hdl.Healthz)

		api.GET("/compositions", hdl.ListCompositions)
		api.GET("/compositions/:id", hdl.GetComposition)
		api.GET("/compositions/:id/schedule", hdl.GetSchedule)

		api.POST("/renders", hdl.StartRender)
		api.GET("/renders", hdl.GetRenderHistory)
		api.GET("/renders/:jobId", hdl.GetRender)
		api.DELETE("/renders/:jobId", hdl.DeleteRender)
		api.GET("/renders/:jobId/events", hdl.JobEvents)

		api.POST("/stories", hdl.StartStory)
		api.GET("/stories", hdl.GetStoryHistory)
		api.GET("/stories/:jobId", hdl.GetStory)
		api.GET("/stories/:jobId/events", hdl.JobEvents)

		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
	}
}
