package admin

import (
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	handlershared "github.com/mealpoint/loyalty/internal/http/handlers/shared"
	"github.com/mealpoint/loyalty/internal/http/response"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/queue"
	"github.com/mealpoint/loyalty/internal/repository"
	"github.com/mealpoint/loyalty/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// UpdateLoyaltyConfigRequest 更新积分规则请求
type UpdateLoyaltyConfigRequest struct {
	PointsPerCurrencyUnit   decimal.Decimal `json:"points_per_currency_unit" binding:"required"`
	PointsExpirationDays    *int            `json:"points_expiration_days"`
	MinimumRedemptionPoints int64           `json:"minimum_redemption_points"`
	PointValueInCurrency    decimal.Decimal `json:"point_value_in_currency"`
	StandardThreshold       int64           `json:"standard_threshold"`
	PremiumThreshold        int64           `json:"premium_threshold"`
	GoldThreshold           int64           `json:"gold_threshold"`
}

// AddPointsRequest 手动入账请求
type AddPointsRequest struct {
	Points  int64  `json:"points" binding:"required"`
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	OrderID *uint  `json:"order_id"`
}

// RedeemPointsRequest 兑换积分请求
type RedeemPointsRequest struct {
	Points  int64  `json:"points" binding:"required"`
	Reason  string `json:"reason"`
	OrderID *uint  `json:"order_id"`
}

// GetLoyaltyConfig 获取当前积分规则
func (h *Handler) GetLoyaltyConfig(c *gin.Context) {
	cfg, err := h.LoyaltyConfigService.GetActiveConfig()
	if err != nil {
		respondServiceError(c, err, "loyalty config fetch failed")
		return
	}
	response.Success(c, cfg)
}

// UpdateLoyaltyConfig 更新积分规则
func (h *Handler) UpdateLoyaltyConfig(c *gin.Context) {
	var req UpdateLoyaltyConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	cfg, err := h.LoyaltyConfigService.UpdateConfig(service.UpdateLoyaltyConfigInput{
		PointsPerCurrencyUnit:   req.PointsPerCurrencyUnit,
		PointsExpirationDays:    req.PointsExpirationDays,
		MinimumRedemptionPoints: req.MinimumRedemptionPoints,
		PointValueInCurrency:    models.NewMoneyFromDecimal(req.PointValueInCurrency),
		StandardThreshold:       req.StandardThreshold,
		PremiumThreshold:        req.PremiumThreshold,
		GoldThreshold:           req.GoldThreshold,
	})
	if err != nil {
		respondServiceError(c, err, "loyalty config update failed")
		return
	}
	response.Success(c, cfg)
}

// AddCustomerPoints 手动为顾客入账积分（获得或赠送）
func (h *Handler) AddCustomerPoints(c *gin.Context) {
	customerID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	var req AddPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	entryType := strings.TrimSpace(req.Type)
	if entryType == "" {
		entryType = constants.LoyaltyEntryTypeBonus
	}
	result, err := h.LoyaltyService.AddPoints(service.AddPointsInput{
		CustomerID: customerID,
		Points:     req.Points,
		Type:       entryType,
		Reason:     req.Reason,
		OrderID:    req.OrderID,
	})
	if err != nil {
		respondServiceError(c, err, "add points failed")
		return
	}
	requestLog(c).Infow("admin_loyalty_points_added",
		"customer_id", customerID,
		"points", req.Points,
		"entry_id", result.Entry.ID,
	)
	response.Success(c, result)
}

// RedeemCustomerPoints 后台代顾客兑换积分
func (h *Handler) RedeemCustomerPoints(c *gin.Context) {
	customerID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	var req RedeemPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	result, err := h.LoyaltyService.RedeemPoints(service.RedeemPointsInput{
		CustomerID: customerID,
		Points:     req.Points,
		Reason:     req.Reason,
		OrderID:    req.OrderID,
	})
	if err != nil {
		respondServiceError(c, err, "redeem points failed")
		return
	}
	response.Success(c, result)
}

// ListCustomerEntries 顾客积分流水
func (h *Handler) ListCustomerEntries(c *gin.Context) {
	customerID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	orderID, err := handlershared.ParseQueryUint(c, "order_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid order_id", err)
		return
	}
	createdFrom, err := handlershared.ParseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_from", err)
		return
	}
	createdTo, err := handlershared.ParseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_to", err)
		return
	}

	entries, total, err := h.LoyaltyService.ListEntries(repository.LoyaltyEntryListFilter{
		Page:        page,
		PageSize:    pageSize,
		CustomerID:  customerID,
		Type:        strings.TrimSpace(c.Query("type")),
		IsUsed:      strings.TrimSpace(c.Query("is_used")),
		OrderID:     orderID,
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondServiceError(c, err, "loyalty entries fetch failed")
		return
	}
	response.SuccessWithPage(c, entries, handlershared.BuildPagination(page, pageSize, total))
}

// ListCustomerLevelHistory 顾客等级变更记录
func (h *Handler) ListCustomerLevelHistory(c *gin.Context) {
	customerID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	items, err := h.LoyaltyService.ListLevelHistory(customerID)
	if err != nil {
		respondServiceError(c, err, "level history fetch failed")
		return
	}
	response.Success(c, items)
}

// ExpirePoints 手动触发积分过期扫描
func (h *Handler) ExpirePoints(c *gin.Context) {
	if c.Query("async") == "true" {
		if err := h.QueueClient.EnqueueExpirePoints(queue.ExpirePointsPayload{}); err != nil {
			respondQueueError(c, err)
			return
		}
		response.SuccessWithMsg(c, "expiration sweep queued", nil)
		return
	}
	result, err := h.LoyaltyService.ExpirePoints(time.Now())
	if err != nil {
		respondServiceError(c, err, "expire points failed")
		return
	}
	requestLog(c).Infow("admin_loyalty_expire_triggered",
		"processed", result.Processed,
		"expired", result.Expired,
		"failed", result.Failed,
	)
	response.Success(c, result)
}

// AwardOrderPointsRequest 订单发放积分请求
type AwardOrderPointsRequest struct {
	OrderID uint            `json:"order_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

// AwardOrderPoints 按订单金额为顾客发放积分
func (h *Handler) AwardOrderPoints(c *gin.Context) {
	customerID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	var req AwardOrderPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	result, err := h.LoyaltyService.AwardOrderPoints(customerID, req.OrderID, req.Amount)
	if err != nil {
		respondServiceError(c, err, "award order points failed")
		return
	}
	if result == nil {
		response.SuccessWithMsg(c, "no points awarded", nil)
		return
	}
	response.Success(c, result)
}
