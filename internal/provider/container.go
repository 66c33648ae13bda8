package provider

import (
	"errors"

	"github.com/mealpoint/loyalty/internal/cache"
	"github.com/mealpoint/loyalty/internal/config"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/queue"
	"github.com/mealpoint/loyalty/internal/repository"
	"github.com/mealpoint/loyalty/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	CustomerRepo       repository.CustomerRepository
	LoyaltyRepo        repository.LoyaltyRepository
	LoyaltyConfigRepo  repository.LoyaltyConfigRepository
	PromotionRepo      repository.PromotionRepository
	PromotionUsageRepo repository.PromotionUsageRepository
	DishRepo           repository.DishRepository

	// Services
	LoyaltyConfigService  *service.LoyaltyConfigService
	LoyaltyService        *service.LoyaltyService
	PromotionAdminService *service.PromotionAdminService
	PromotionService      *service.PromotionService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// Redis 不可用时退化为无缓存、不限流
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_redis_unavailable", "error", err)
	}

	// 队列未启用时领域事件直接丢弃
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_queue_client_failed", "error", err)
		queueClient = &queue.Client{}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.LoyaltyRepo = repository.NewLoyaltyRepository(db)
	c.LoyaltyConfigRepo = repository.NewLoyaltyConfigRepository(db)
	c.PromotionRepo = repository.NewPromotionRepository(db)
	c.PromotionUsageRepo = repository.NewPromotionUsageRepository(db)
	c.DishRepo = repository.NewDishRepository(db)
}

func (c *Container) initServices() {
	c.LoyaltyConfigService = service.NewLoyaltyConfigService(c.LoyaltyConfigRepo, c.Config.Loyalty)
	c.LoyaltyService = service.NewLoyaltyService(c.LoyaltyRepo, c.CustomerRepo, c.LoyaltyConfigService, c.QueueClient)
	c.PromotionAdminService = service.NewPromotionAdminService(c.PromotionRepo)
	c.PromotionService = service.NewPromotionService(c.PromotionRepo, c.PromotionUsageRepo, c.CustomerRepo, c.DishRepo, c.QueueClient)
}

// Close 释放外部连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	return errors.Join(c.QueueClient.Close(), cache.Close())
}
