package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyreel/internal/dto"
	"storyreel/internal/response"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

func (h Handler) StartStory(c *gin.Context) {
	var req dto.StartStoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Error("StartStory ShouldBindJSON err", zap.Error(err))
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Invalid parameters", err.Error(), err))
		return
	}
	log.GetLogger().Info("StartStory received request", zap.String("story", req.StoryId), zap.Bool("overwrite", req.Overwrite))

	data, err := h.Service.StartStory(c.Request.Context(), req)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}

func (h Handler) GetStory(c *gin.Context) {
	job, err := h.Service.GetStory(c.Param("jobId"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, job)
}

func (h Handler) GetStoryHistory(c *gin.Context) {
	var req dto.HistoryReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Invalid parameters", err.Error(), err))
		return
	}
	jobs, err := h.Service.StoryHistory(req.Limit)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, jobs)
}
