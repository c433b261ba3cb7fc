package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyreel/internal/dto"
	"storyreel/internal/response"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

func (h Handler) StartRender(c *gin.Context) {
	var req dto.StartRenderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Error("StartRender ShouldBindJSON err", zap.Error(err))
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Invalid parameters", err.Error(), err))
		return
	}
	log.GetLogger().Info("StartRender received request", zap.String("composition", req.CompositionId))

	data, err := h.Service.StartRender(c.Request.Context(), req)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}

func (h Handler) GetRender(c *gin.Context) {
	job, err := h.Service.GetRender(c.Param("jobId"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, dto.RenderJobResData{RenderJob: *job, DownloadUrl: h.downloadUrl(h.Service.DownloadPath(job))})
}

func (h Handler) GetRenderHistory(c *gin.Context) {
	var req dto.HistoryReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "Invalid parameters", err.Error(), err))
		return
	}
	jobs, err := h.Service.RenderHistory(req.Limit)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	data := make([]dto.RenderJobResData, 0, len(jobs))
	for i := range jobs {
		data = append(data, dto.RenderJobResData{RenderJob: jobs[i], DownloadUrl: h.downloadUrl(h.Service.DownloadPath(&jobs[i]))})
	}
	response.Success(c, data)
}

func (h Handler) DeleteRender(c *gin.Context) {
	jobID := c.Param("jobId")
	if err := h.Service.DeleteRender(jobID); err != nil {
		log.GetLogger().Error("DeleteRender err", zap.String("job_id", jobID), zap.Error(err))
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, nil)
}

func (h Handler) downloadUrl(p string) string {
	if p == "" {
		return ""
	}
	return "/api/file/" + p
}
