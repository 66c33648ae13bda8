package shared

import (
	"github.com/mealpoint/loyalty/internal/http/response"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// serviceErrorCodes 业务错误分类到响应码
var serviceErrorCodes = map[string]int{
	service.ErrorKindNotFound:   response.CodeNotFound,
	service.ErrorKindValidation: response.CodeBadRequest,
	service.ErrorKindConflict:   response.CodeConflict,
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString(response.RequestIDKey); id != "" {
		return logger.SW(response.RequestIDKey, id)
	}
	return logger.S()
}

// RespondError 返回错误响应，err 非空时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"path", c.FullPath(),
			"code", code,
			"message", msg,
			"error", err,
		)
	}
	response.Error(c, code, msg)
}

// RespondServiceError 按业务错误分类返回响应，内部错误使用 fallback 消息并记录日志。
func RespondServiceError(c *gin.Context, err error, fallbackMsg string) {
	if code, ok := serviceErrorCodes[service.ErrorKind(err)]; ok {
		RespondError(c, code, err.Error(), nil)
		return
	}
	RespondError(c, response.CodeInternal, fallbackMsg, err)
}
