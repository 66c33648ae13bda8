package public

import (
	"strings"

	handlershared "github.com/mealpoint/loyalty/internal/http/handlers/shared"
	"github.com/mealpoint/loyalty/internal/http/response"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/service"

	"github.com/gin-gonic/gin"
)

// CalculateDiscountRequest 折扣试算请求
type CalculateDiscountRequest struct {
	OrderAmount models.Money           `json:"order_amount"`
	Items       []service.DiscountItem `json:"items"`
}

// UsePromotionRequest 使用活动请求
type UsePromotionRequest struct {
	CustomerID  uint                   `json:"customer_id" binding:"required"`
	OrderID     uint                   `json:"order_id" binding:"required"`
	OrderAmount models.Money           `json:"order_amount"`
	Items       []service.DiscountItem `json:"items"`
}

// CalculateDiscount 折扣试算（不记录使用）
func (h *Handler) CalculateDiscount(c *gin.Context) {
	promotionID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	var req CalculateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	result, err := h.PromotionService.CalculateDiscount(promotionID, req.OrderAmount, req.Items)
	if err != nil {
		handlershared.RespondServiceError(c, err, "discount calculation failed")
		return
	}
	response.Success(c, result)
}

// GetPromotionEligibility 判断顾客能否使用活动
func (h *Handler) GetPromotionEligibility(c *gin.Context) {
	promotionID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	customerID, err := handlershared.ParseQueryUint(c, "customer_id")
	if err != nil || customerID == 0 {
		respondError(c, response.CodeBadRequest, "invalid customer_id", err)
		return
	}
	result, err := h.PromotionService.CanCustomerUsePromotion(promotionID, customerID)
	if err != nil {
		handlershared.RespondServiceError(c, err, "promotion eligibility check failed")
		return
	}
	response.Success(c, result)
}

// UsePromotion 使用活动并记录使用
func (h *Handler) UsePromotion(c *gin.Context) {
	promotionID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	var req UsePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	result, err := h.PromotionService.UsePromotion(service.UsePromotionInput{
		PromotionID: promotionID,
		CustomerID:  req.CustomerID,
		OrderID:     req.OrderID,
		OrderAmount: req.OrderAmount,
		Items:       req.Items,
	})
	if err != nil {
		respondWithMappedError(c, err, promotionUseErrorRules, "promotion use failed")
		return
	}
	response.Success(c, result)
}

// GetDishCoverage 查询菜品是否在进行中的活动内
func (h *Handler) GetDishCoverage(c *gin.Context) {
	dishID, err := handlershared.ParseQueryUint(c, "dish_id")
	if err != nil || dishID == 0 {
		respondError(c, response.CodeBadRequest, "invalid dish_id", err)
		return
	}
	var level *string
	if raw, exists := c.GetQuery("level"); exists {
		value := strings.ToLower(strings.TrimSpace(raw))
		level = &value
	}
	result, err := h.PromotionService.IsDishInActivePromotion(dishID, level)
	if err != nil {
		handlershared.RespondServiceError(c, err, "dish coverage check failed")
		return
	}
	response.Success(c, result)
}

// GetCustomerPromotions 顾客当前可用的活动
func (h *Handler) GetCustomerPromotions(c *gin.Context) {
	customerID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	promotions, err := h.PromotionService.ListAvailableForCustomer(customerID)
	if err != nil {
		handlershared.RespondServiceError(c, err, "promotions fetch failed")
		return
	}
	response.Success(c, promotions)
}
