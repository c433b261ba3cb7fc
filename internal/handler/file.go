package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyreel/internal/response"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

func (h Handler) DownloadFile(c *gin.Context) {
	requested := c.Param("filepath")
	if hasParentTraversal(requested) {
		log.GetLogger().Warn("DownloadFile traversal rejected", zap.String("path", requested))
		c.JSON(http.StatusForbidden, response.Response{
			Error: apperrors.CodeInvalidParams,
			Msg:   "Path not allowed",
		})
		return
	}

	localPath, ok := resolveDownloadPath(requested, h.downloadRoots())
	if !ok {
		c.JSON(http.StatusNotFound, response.Response{
			Error: apperrors.CodeFileNotFound,
			Msg:   "File not found",
		})
		return
	}
	c.FileAttachment(localPath, filepath.Base(localPath))
}
