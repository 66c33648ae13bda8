package public

import "github.com/mealpoint/loyalty/internal/provider"

// Handler 顾客侧接口：积分查询、活动试算与核销
type Handler struct {
	*provider.Container
}

// New 创建顾客侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
