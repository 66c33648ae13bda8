package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ParsePathUint 解析路径中的正整数 ID，失败时直接写入错误响应。
func ParsePathUint(c *gin.Context, key string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(key))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		RespondError(c, response.CodeBadRequest, "invalid "+key, nil)
		return 0, false
	}
	return uint(parsed), true
}

// ParseQueryUint 解析可选的正整数查询参数，为空时返回 0。
func ParseQueryUint(c *gin.Context, key string) (uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(parsed), nil
}

// ParseTimeNullable 解析 RFC3339 时间，空字符串返回 nil。
func ParseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
