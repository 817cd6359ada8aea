package api

import (
	"errors"
	"net/http"

	"github.com/Scholarly-RC/client-deadline-records-backend-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
// 记录处理过程中的错误;尚未写响应时按错误类型返回
func ErrorHandlerMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log := logger.WithError(err).WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"path":       c.Request.URL.Path,
		})

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code < http.StatusInternalServerError {
			log.Warn("request rejected")
		} else {
			log.Error("request failed")
		}

		if c.Writer.Written() {
			return
		}

		if apiErr != nil {
			Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			return
		}
		Error(c, http.StatusInternalServerError, "internal server error", "")
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// StatusCodeFor 将服务层错误映射为 HTTP 状态码
func StatusCodeFor(err error) int {
	switch {
	case service.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotCurrentApprover), errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrWorkflowAlreadyActive):
		return http.StatusConflict
	case service.IsDomainError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError 统一处理服务层错误
// 领域错误直接返回给调用方,其他错误交给 ErrorHandlerMiddleware 记录
func HandleServiceError(c *gin.Context, err error, operation string) {
	code := StatusCodeFor(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		Error(c, code, "failed to "+operation, "")
		return
	}
	Error(c, code, "failed to "+operation, err.Error())
}
