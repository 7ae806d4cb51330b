package api

import (
	goerrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/hexland/internal/errors"
)

// SuccessResponse API成功响应结构
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// respondOK 统一成功响应
func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, &SuccessResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// respondError 统一错误响应：业务错误带结构化码，其余按内部错误处理
func respondError(c *gin.Context, err error) {
	requestID := c.GetHeader("X-Request-ID")

	var appErr *errors.AppError
	if goerrors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, requestID))
		return
	}

	wrapped := errors.Wrap(err, errors.ErrUnknown)
	c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(wrapped, requestID))
}
