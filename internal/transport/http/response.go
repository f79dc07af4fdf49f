package httptransport

import "github.com/gin-gonic/gin"

// MsgInternalError is the only message clients see for unexpected failures.
const MsgInternalError = "internal error"

// APIResponse is the envelope used by the auxiliary JSON endpoints.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ErrorsResponse is the body of a rejected capture request.
type ErrorsResponse struct {
	Errors []string `json:"errors"`
}

// RespondSuccess writes a successful envelope.
func RespondSuccess(c *gin.Context, httpStatus int, data any, message string) {
	if message == "" {
		message = "ok"
	}
	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondError writes a failed envelope.
func RespondError(c *gin.Context, httpStatus int, message string, data any) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// RespondErrors writes {"errors": [...]}; a nil list is sent as [].
func RespondErrors(c *gin.Context, httpStatus int, errs []string) {
	if errs == nil {
		errs = []string{}
	}
	c.JSON(httpStatus, ErrorsResponse{Errors: errs})
}
