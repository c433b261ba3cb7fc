package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "storyreel/pkg/errors"
)

// Response is the standard API response structure
type Response struct {
	Error  int32  `json:"error"`            // Error code (0 = success)
	Msg    string `json:"msg"`              // Human-readable message
	Detail string `json:"detail,omitempty"` // Additional error details
	Data   any    `json:"data"`             // Response payload
}

// R sends a JSON response
func R(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Success returns a success response with data
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Error: 0,
		Msg:   "Success",
		Data:  data,
	})
}

// Error returns an error response with code and message
func Error(c *gin.Context, code int, msg string) {
	c.JSON(HTTPStatus(code), Response{
		Error: int32(code),
		Msg:   msg,
		Data:  nil,
	})
}

// FromError converts an error to a Response
// If the error is an AppError, it extracts code and message
// Otherwise, it uses CodeUnknown
func FromError(err error) Response {
	if err == nil {
		return Response{
			Error: 0,
			Msg:   "Success",
		}
	}

	return Response{
		Error:  int32(apperrors.GetCode(err)),
		Msg:    apperrors.GetMessage(err),
		Detail: apperrors.GetDetail(err),
		Data:   nil,
	}
}

// ErrorResponse sends an error response from an error
func ErrorResponse(c *gin.Context, err error) {
	c.JSON(HTTPStatus(apperrors.GetCode(err)), FromError(err))
}

// HTTPStatus maps an AppError code onto the HTTP status sent with it.
func HTTPStatus(code int) int {
	switch {
	case code == apperrors.CodeSuccess:
		return http.StatusOK
	case code == apperrors.CodeInvalidParams:
		return http.StatusBadRequest
	case code == apperrors.CodeNotFound,
		code == apperrors.CodeCompositionNotFound,
		code == apperrors.CodeFileNotFound,
		code == apperrors.CodeTimelineNotFound:
		return http.StatusNotFound
	case code == apperrors.CodeConflict:
		return http.StatusConflict
	case code >= apperrors.CodeTimelineLoad && code < apperrors.CodeUpstreamService:
		return http.StatusUnprocessableEntity
	case code >= apperrors.CodeUpstreamService && code < apperrors.CodeRenderFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
