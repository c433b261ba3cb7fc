package handler

import (
	"github.com/gin-gonic/gin"

	"storyreel/internal/response"
)

func (h Handler) ListCompositions(c *gin.Context) {
	response.Success(c, h.Service.ListCompositions(c.Request.Context()))
}

func (h Handler) GetComposition(c *gin.Context) {
	comp, err := h.Service.GetComposition(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, comp)
}

func (h Handler) GetSchedule(c *gin.Context) {
	data, err := h.Service.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}
	response.Success(c, data)
}
