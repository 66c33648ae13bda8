package public

import (
	"errors"

	handlershared "github.com/mealpoint/loyalty/internal/http/handlers/shared"
	"github.com/mealpoint/loyalty/internal/http/response"
	"github.com/mealpoint/loyalty/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

// respondWithMappedError 优先按规则映射，未命中时按错误分类处理。
func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, err.Error(), nil)
			return
		}
	}
	handlershared.RespondServiceError(c, err, fallbackMsg)
}

// 活动不适用属于业务拒绝而非参数错误
var promotionUseErrorRules = []mappedHandlerError{
	{target: service.ErrPromotionNotApplicable, code: response.CodeConflict},
	{target: service.ErrPromotionExpired, code: response.CodeConflict},
}
