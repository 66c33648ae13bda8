package router

import (
	"github.com/mealpoint/loyalty/internal/cache"
	"github.com/mealpoint/loyalty/internal/config"
	adminhandlers "github.com/mealpoint/loyalty/internal/http/handlers/admin"
	publichandlers "github.com/mealpoint/loyalty/internal/http/handlers/public"
	"github.com/mealpoint/loyalty/internal/http/response"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	var counter WindowCounter
	if cache.Enabled() {
		counter = cache.WindowCounter{}
	}
	redeemRule := RateLimitRule{
		Prefix:        "redeem",
		WindowSeconds: cfg.Security.RedeemRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RedeemRateLimit.MaxRequests,
		Message:       "too many redemption requests",
	}
	promotionRule := RateLimitRule{
		Prefix:        "promotion_use",
		WindowSeconds: cfg.Security.PromotionRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.PromotionRateLimit.MaxRequests,
		Message:       "too many promotion requests",
	}

	// 中间件
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", func(ctx *gin.Context) {
		response.Success(ctx, gin.H{"status": "ok"})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/loyalty/points-for-amount", publicHandler.GetPointsForAmount)
			public.GET("/loyalty/amount-for-points", publicHandler.GetAmountForPoints)
			public.GET("/customers/:id/loyalty", publicHandler.GetCustomerLoyalty)
			public.GET("/customers/:id/available-points", publicHandler.GetCustomerAvailablePoints)
			public.GET("/customers/:id/redemptions", publicHandler.GetCustomerRedemptions)
			public.GET("/customers/:id/promotions", publicHandler.GetCustomerPromotions)
			public.GET("/promotions/dish-coverage", publicHandler.GetDishCoverage)
			public.POST("/promotions/:id/calculate", publicHandler.CalculateDiscount)
			public.GET("/promotions/:id/eligibility", publicHandler.GetPromotionEligibility)
			public.POST("/promotions/:id/use", RateLimitMiddleware(counter, promotionRule, KeyByIPAndJSONField("customer_id")), publicHandler.UsePromotion)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 积分
			admin.GET("/loyalty/config", adminHandler.GetLoyaltyConfig)
			admin.PUT("/loyalty/config", adminHandler.UpdateLoyaltyConfig)
			admin.POST("/loyalty/customers/:id/points", adminHandler.AddCustomerPoints)
			admin.POST("/loyalty/customers/:id/award", adminHandler.AwardOrderPoints)
			admin.POST("/loyalty/customers/:id/redeem", RateLimitMiddleware(counter, redeemRule, KeyByPathParam("id")), adminHandler.RedeemCustomerPoints)
			admin.GET("/loyalty/customers/:id/entries", adminHandler.ListCustomerEntries)
			admin.GET("/loyalty/customers/:id/level-history", adminHandler.ListCustomerLevelHistory)
			admin.POST("/loyalty/expire", adminHandler.ExpirePoints)

			// 活动
			admin.GET("/promotions", adminHandler.GetPromotions)
			admin.POST("/promotions", adminHandler.CreatePromotion)
			admin.POST("/promotions/sync-status", adminHandler.SyncPromotionStatus)
			admin.GET("/promotions/:id", adminHandler.GetPromotion)
			admin.PUT("/promotions/:id", adminHandler.UpdatePromotion)
			admin.DELETE("/promotions/:id", adminHandler.DeletePromotion)
			admin.GET("/promotions/:id/usages", adminHandler.GetPromotionUsages)
		}
	}

	return r
}
