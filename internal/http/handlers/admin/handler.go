package admin

import (
	"errors"

	handlershared "github.com/mealpoint/loyalty/internal/http/handlers/shared"
	"github.com/mealpoint/loyalty/internal/http/response"
	"github.com/mealpoint/loyalty/internal/provider"
	"github.com/mealpoint/loyalty/internal/queue"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 管理端接口：积分规则、顾客积分调整、活动维护
type Handler struct {
	*provider.Container
}

// New 创建管理端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// respondQueueError 队列未启用属于调用方可修正的问题，其余为内部错误
func respondQueueError(c *gin.Context, err error) {
	if errors.Is(err, queue.ErrQueueDisabled) {
		respondError(c, response.CodeConflict, "queue disabled, retry without async", nil)
		return
	}
	respondError(c, response.CodeInternal, "enqueue task failed", err)
}

func respondServiceError(c *gin.Context, err error, fallbackMsg string) {
	handlershared.RespondServiceError(c, err, fallbackMsg)
}
