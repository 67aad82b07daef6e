package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/backoffice-gin/internal/apperr"
	"github.com/mautops/backoffice-gin/internal/auth"
	"github.com/sirupsen/logrus"
)

// StatusOf 业务错误类型对应的 HTTP 状态码
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HandleError 把服务层错误写成统一的错误响应
// 非业务错误只记录日志,响应中不暴露细节
func HandleError(c *gin.Context, err error) {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		status := StatusOf(appErr.Kind)
		c.JSON(status, ErrorResponse{
			Code:    status,
			Message: appErr.Message,
			Detail:  string(appErr.Kind),
			Field:   appErr.Field,
		})
	case errors.Is(err, auth.ErrInvalidToken):
		Error(c, http.StatusUnauthorized, "invalid token", err.Error())
	default:
		GetLogger().WithFields(logrus.Fields{
			"request_id": c.GetString(ContextRequestID),
			"path":       c.FullPath(),
		}).WithError(err).Error("request failed")
		Error(c, http.StatusInternalServerError, "internal server error", "")
	}
}

// BindJSON 解析请求体,失败时直接写 400 响应并返回 false
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return false
	}
	return true
}
