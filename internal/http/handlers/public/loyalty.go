package public

import (
	"strconv"
	"strings"

	handlershared "github.com/mealpoint/loyalty/internal/http/handlers/shared"
	"github.com/mealpoint/loyalty/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetPointsForAmount 计算消费金额可得积分
func (h *Handler) GetPointsForAmount(c *gin.Context) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.Query("amount")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid amount", err)
		return
	}
	points, err := h.LoyaltyConfigService.CalculatePointsForOrder(amount)
	if err != nil {
		handlershared.RespondServiceError(c, err, "points calculation failed")
		return
	}
	response.Success(c, gin.H{
		"amount": amount.StringFixed(2),
		"points": points,
	})
}

// GetAmountForPoints 计算积分可抵扣金额
func (h *Handler) GetAmountForPoints(c *gin.Context) {
	points, err := strconv.ParseInt(strings.TrimSpace(c.Query("points")), 10, 64)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid points", err)
		return
	}
	amount, err := h.LoyaltyConfigService.CalculateAmountForPoints(points)
	if err != nil {
		handlershared.RespondServiceError(c, err, "amount calculation failed")
		return
	}
	response.Success(c, gin.H{
		"points": points,
		"amount": amount,
	})
}

// GetCustomerLoyalty 顾客积分概览
func (h *Handler) GetCustomerLoyalty(c *gin.Context) {
	customerID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	summary, err := h.LoyaltyService.GetCustomerSummary(customerID)
	if err != nil {
		handlershared.RespondServiceError(c, err, "loyalty summary fetch failed")
		return
	}
	response.Success(c, summary)
}

// GetCustomerAvailablePoints 顾客可用积分明细
func (h *Handler) GetCustomerAvailablePoints(c *gin.Context) {
	customerID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	summary, err := h.LoyaltyService.GetAvailablePoints(customerID)
	if err != nil {
		handlershared.RespondServiceError(c, err, "available points fetch failed")
		return
	}
	response.Success(c, summary)
}

// GetCustomerRedemptions 顾客兑换记录
func (h *Handler) GetCustomerRedemptions(c *gin.Context) {
	customerID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	items, total, err := h.LoyaltyService.ListRedemptions(customerID, page, pageSize)
	if err != nil {
		handlershared.RespondServiceError(c, err, "redemptions fetch failed")
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}
