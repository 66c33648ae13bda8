package main

import (
	"time"

	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/provider"
	"github.com/mealpoint/loyalty/internal/service"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	container := provider.NewContainer(cfg)
	defer func() { _ = container.Close() }()

	// 积分规则（不存在时按配置默认值创建）
	if _, err := container.LoyaltyConfigService.GetActiveConfig(); err != nil {
		stdLog.Fatalf("Failed to init loyalty config: %v", err)
	}

	// 菜品
	dishes := []models.Dish{
		{CategoryID: 1, Name: "Margherita Pizza", Price: money("89.00"), IsActive: true},
		{CategoryID: 1, Name: "Pepperoni Pizza", Price: money("99.00"), IsActive: true},
		{CategoryID: 2, Name: "Caesar Salad", Price: money("45.00"), IsActive: true},
		{CategoryID: 3, Name: "Lemonade", Price: money("18.00"), IsActive: true},
	}
	for i := range dishes {
		var existing models.Dish
		if err := models.DB.Where("name = ?", dishes[i].Name).First(&existing).Error; err == nil {
			dishes[i] = existing
			stdLog.Printf("Dish already exists: %s", existing.Name)
			continue
		}
		if err := models.DB.Create(&dishes[i]).Error; err != nil {
			stdLog.Printf("Failed to create dish %s: %v", dishes[i].Name, err)
			continue
		}
		stdLog.Printf("Created dish: %s", dishes[i].Name)
	}

	// 顾客
	customers := []models.Customer{
		{Name: "Alice", Email: "alice@example.com"},
		{Name: "Bob", Email: "bob@example.com"},
	}
	for i := range customers {
		var existing models.Customer
		if err := models.DB.Where("email = ?", customers[i].Email).First(&existing).Error; err == nil {
			customers[i] = existing
			stdLog.Printf("Customer already exists: %s", existing.Email)
			continue
		}
		if err := models.DB.Create(&customers[i]).Error; err != nil {
			stdLog.Printf("Failed to create customer %s: %v", customers[i].Email, err)
			continue
		}
		stdLog.Printf("Created customer: %s", customers[i].Email)

		// 模拟历史订单积分
		orderAmount := decimal.NewFromInt(int64(30000 * (i + 1)))
		if _, err := container.LoyaltyService.AwardOrderPoints(customers[i].ID, uint(1000+i), orderAmount); err != nil {
			stdLog.Printf("Failed to award points for %s: %v", customers[i].Email, err)
		}
	}

	// 活动
	var promotionCount int64
	models.DB.Model(&models.Promotion{}).Count(&promotionCount)
	if promotionCount > 0 {
		stdLog.Printf("Promotions already seeded: %d", promotionCount)
		return
	}
	now := time.Now()
	maxDiscount := money("20.00")
	maxPerUser := 3
	inputs := []service.PromotionInput{
		{
			Name:              "Weekday 10% off",
			DiscountType:      constants.PromotionDiscountPercentage,
			DiscountValue:     money("10"),
			TargetType:        constants.PromotionTargetAllProducts,
			MaxDiscountAmount: &maxDiscount,
			MaxUsagePerUser:   &maxPerUser,
			StartDate:         now.Add(-time.Hour),
			ExpirationDate:    now.AddDate(0, 1, 0),
			Visibility:        constants.PromotionVisibilityPublic,
		},
		{
			Name:              "Gold pizza night",
			DiscountType:      constants.PromotionDiscountFixedAmount,
			DiscountValue:     money("15"),
			TargetType:        constants.PromotionTargetCategories,
			MinOrderAmount:    money("80"),
			StartDate:         now.Add(-time.Hour),
			ExpirationDate:    now.AddDate(0, 0, 14),
			Visibility:        constants.PromotionVisibilityPrivate,
			TargetGold:        true,
			TargetCategoryIDs: []uint{1},
		},
	}
	if len(dishes) > 3 && dishes[3].ID > 0 {
		inputs = append(inputs, service.PromotionInput{
			Name:           "Salad with free lemonade",
			DiscountType:   constants.PromotionDiscountBuyXGetY,
			TargetType:     constants.PromotionTargetSpecificProducts,
			StartDate:      now.Add(-time.Hour),
			ExpirationDate: now.AddDate(0, 0, 7),
			Visibility:     constants.PromotionVisibilityPublic,
			TargetDishIDs:  []uint{dishes[2].ID},
			OfferedDishes:  []service.OfferedDishInput{{DishID: dishes[3].ID, Quantity: 1}},
		})
	}
	for _, input := range inputs {
		promotion, err := container.PromotionAdminService.Create(input)
		if err != nil {
			stdLog.Printf("Failed to create promotion %s: %v", input.Name, err)
			continue
		}
		stdLog.Printf("Created promotion: %s (%s)", promotion.Name, promotion.Status)
	}
}

func money(value string) models.Money {
	m, err := models.ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}
