package admin

import (
	"strings"
	"time"

	handlershared "github.com/mealpoint/loyalty/internal/http/handlers/shared"
	"github.com/mealpoint/loyalty/internal/http/response"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/repository"
	"github.com/mealpoint/loyalty/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OfferedDishRequest 买赠赠送菜品
type OfferedDishRequest struct {
	DishID   uint `json:"dish_id" binding:"required"`
	Quantity int  `json:"quantity"`
}

// PromotionRequest 创建/更新活动请求
type PromotionRequest struct {
	Name              string               `json:"name" binding:"required"`
	Description       string               `json:"description"`
	DiscountType      string               `json:"discount_type" binding:"required"`
	DiscountValue     decimal.Decimal      `json:"discount_value"`
	TargetType        string               `json:"target_type" binding:"required"`
	MinOrderAmount    decimal.Decimal      `json:"min_order_amount"`
	MaxDiscountAmount *decimal.Decimal     `json:"max_discount_amount"`
	MaxUsagePerUser   *int                 `json:"max_usage_per_user"`
	MaxTotalUsage     *int                 `json:"max_total_usage"`
	StartDate         string               `json:"start_date" binding:"required"`
	ExpirationDate    string               `json:"expiration_date" binding:"required"`
	Visibility        string               `json:"visibility"`
	TargetStandard    bool                 `json:"target_standard"`
	TargetPremium     bool                 `json:"target_premium"`
	TargetGold        bool                 `json:"target_gold"`
	TargetDishIDs     []uint               `json:"target_dish_ids"`
	TargetCategoryIDs []uint               `json:"target_category_ids"`
	OfferedDishes     []OfferedDishRequest `json:"offered_dishes"`
}

func (r PromotionRequest) toServiceInput() (service.PromotionInput, error) {
	startDate, err := handlershared.ParseTimeNullable(r.StartDate)
	if err != nil {
		return service.PromotionInput{}, err
	}
	expirationDate, err := handlershared.ParseTimeNullable(r.ExpirationDate)
	if err != nil {
		return service.PromotionInput{}, err
	}
	if startDate == nil || expirationDate == nil {
		return service.PromotionInput{}, service.ErrPromotionInvalidDates
	}
	var maxDiscount *models.Money
	if r.MaxDiscountAmount != nil {
		value := models.NewMoneyFromDecimal(*r.MaxDiscountAmount)
		maxDiscount = &value
	}
	offered := make([]service.OfferedDishInput, 0, len(r.OfferedDishes))
	for _, item := range r.OfferedDishes {
		offered = append(offered, service.OfferedDishInput{DishID: item.DishID, Quantity: item.Quantity})
	}
	return service.PromotionInput{
		Name:              r.Name,
		Description:       r.Description,
		DiscountType:      r.DiscountType,
		DiscountValue:     models.NewMoneyFromDecimal(r.DiscountValue),
		TargetType:        r.TargetType,
		MinOrderAmount:    models.NewMoneyFromDecimal(r.MinOrderAmount),
		MaxDiscountAmount: maxDiscount,
		MaxUsagePerUser:   r.MaxUsagePerUser,
		MaxTotalUsage:     r.MaxTotalUsage,
		StartDate:         *startDate,
		ExpirationDate:    *expirationDate,
		Visibility:        r.Visibility,
		TargetStandard:    r.TargetStandard,
		TargetPremium:     r.TargetPremium,
		TargetGold:        r.TargetGold,
		TargetDishIDs:     r.TargetDishIDs,
		TargetCategoryIDs: r.TargetCategoryIDs,
		OfferedDishes:     offered,
	}, nil
}

// CreatePromotion 创建活动
func (h *Handler) CreatePromotion(c *gin.Context) {
	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	input, err := req.toServiceInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid promotion dates", err)
		return
	}
	promotion, err := h.PromotionAdminService.Create(input)
	if err != nil {
		respondServiceError(c, err, "promotion create failed")
		return
	}
	response.Success(c, promotion)
}

// UpdatePromotion 更新活动
func (h *Handler) UpdatePromotion(c *gin.Context) {
	promotionID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	var req PromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request", err)
		return
	}
	input, err := req.toServiceInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid promotion dates", err)
		return
	}
	promotion, err := h.PromotionAdminService.Update(promotionID, input)
	if err != nil {
		respondServiceError(c, err, "promotion update failed")
		return
	}
	response.Success(c, promotion)
}

// GetPromotion 活动详情
func (h *Handler) GetPromotion(c *gin.Context) {
	promotionID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	promotion, err := h.PromotionAdminService.Get(promotionID)
	if err != nil {
		respondServiceError(c, err, "promotion fetch failed")
		return
	}
	response.Success(c, promotion)
}

// DeletePromotion 删除活动（置为已过期，保留使用记录）
func (h *Handler) DeletePromotion(c *gin.Context) {
	promotionID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	if err := h.PromotionAdminService.Delete(promotionID); err != nil {
		respondServiceError(c, err, "promotion delete failed")
		return
	}
	response.Success(c, nil)
}

// GetPromotions 活动列表
func (h *Handler) GetPromotions(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	id, err := handlershared.ParseQueryUint(c, "id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid id", err)
		return
	}
	dishID, err := handlershared.ParseQueryUint(c, "dish_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid dish_id", err)
		return
	}
	categoryID, err := handlershared.ParseQueryUint(c, "category_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid category_id", err)
		return
	}
	dateFrom, err := handlershared.ParseTimeNullable(c.Query("date_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid date_from", err)
		return
	}
	dateTo, err := handlershared.ParseTimeNullable(c.Query("date_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid date_to", err)
		return
	}

	promotions, total, err := h.PromotionAdminService.List(repository.PromotionListFilter{
		Page:         page,
		PageSize:     pageSize,
		ID:           id,
		Keyword:      strings.TrimSpace(c.Query("keyword")),
		Status:       strings.TrimSpace(c.Query("status")),
		Visibility:   strings.TrimSpace(c.Query("visibility")),
		TargetType:   strings.TrimSpace(c.Query("target_type")),
		DiscountType: strings.TrimSpace(c.Query("discount_type")),
		DishID:       dishID,
		CategoryID:   categoryID,
		DateFrom:     dateFrom,
		DateTo:       dateTo,
	})
	if err != nil {
		respondServiceError(c, err, "promotion fetch failed")
		return
	}
	response.SuccessWithPage(c, promotions, handlershared.BuildPagination(page, pageSize, total))
}

// GetPromotionUsages 活动使用记录
func (h *Handler) GetPromotionUsages(c *gin.Context) {
	promotionID, ok := handlershared.ParsePathUint(c, "id")
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	customerID, err := handlershared.ParseQueryUint(c, "customer_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid customer_id", err)
		return
	}
	usages, total, err := h.PromotionService.ListUsages(repository.PromotionUsageListFilter{
		Page:        page,
		PageSize:    pageSize,
		PromotionID: promotionID,
		CustomerID:  customerID,
	})
	if err != nil {
		respondServiceError(c, err, "promotion usage fetch failed")
		return
	}
	response.SuccessWithPage(c, usages, handlershared.BuildPagination(page, pageSize, total))
}

// SyncPromotionStatus 手动触发活动状态同步
func (h *Handler) SyncPromotionStatus(c *gin.Context) {
	if c.Query("async") == "true" {
		if err := h.QueueClient.EnqueuePromotionSyncStatus(); err != nil {
			respondQueueError(c, err)
			return
		}
		response.SuccessWithMsg(c, "promotion status sync queued", nil)
		return
	}
	result, err := h.PromotionAdminService.SyncStatuses(time.Now())
	if err != nil {
		respondServiceError(c, err, "promotion status sync failed")
		return
	}
	response.Success(c, result)
}
