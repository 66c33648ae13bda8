package service

import (
	"strings"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/queue"
	"github.com/mealpoint/loyalty/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoyaltyService 积分账本服务（入账、兑换、等级、过期）
type LoyaltyService struct {
	loyaltyRepo  repository.LoyaltyRepository
	customerRepo repository.CustomerRepository
	configSvc    *LoyaltyConfigService
	events       EventSink
}

// AddPointsInput 积分入账输入
type AddPointsInput struct {
	CustomerID uint
	Points     int64
	Type       string // earned / bonus
	Reason     string
	OrderID    *uint
}

// AddPointsResult 积分入账结果
type AddPointsResult struct {
	Entry    *models.LoyaltyPointEntry `json:"entry"`
	Customer *models.Customer          `json:"customer"`
}

// CustomerLoyaltySummary 顾客积分概览
type CustomerLoyaltySummary struct {
	CustomerID      uint         `json:"customer_id"`
	TotalPoints     int64        `json:"total_points"`
	LifetimePoints  int64        `json:"lifetime_points"`
	LoyaltyLevel    string       `json:"loyalty_level"`
	LastLevelUpdate *time.Time   `json:"last_level_update"`
	NextLevel       string       `json:"next_level"`
	PointsToNext    int64        `json:"points_to_next_level"`
	PointsValue     models.Money `json:"points_value"`
}

// NewLoyaltyService 创建积分账本服务
func NewLoyaltyService(
	loyaltyRepo repository.LoyaltyRepository,
	customerRepo repository.CustomerRepository,
	configSvc *LoyaltyConfigService,
	events EventSink,
) *LoyaltyService {
	return &LoyaltyService{
		loyaltyRepo:  loyaltyRepo,
		customerRepo: customerRepo,
		configSvc:    configSvc,
		events:       events,
	}
}

// AddPoints 积分入账（获得或赠送），并在同一事务内检查等级
func (s *LoyaltyService) AddPoints(input AddPointsInput) (*AddPointsResult, error) {
	if input.CustomerID == 0 {
		return nil, ErrCustomerNotFound
	}
	if input.Points <= 0 {
		return nil, ErrLoyaltyInvalidPoints
	}
	entryType := strings.ToLower(strings.TrimSpace(input.Type))
	if entryType != constants.LoyaltyEntryTypeEarned && entryType != constants.LoyaltyEntryTypeBonus {
		return nil, ErrLoyaltyInvalidEntryType
	}
	cfg, err := s.configSvc.GetActiveConfig()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var result AddPointsResult
	var events []queue.DomainEventPayload
	err = s.loyaltyRepo.Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.WithTx(tx).GetByIDForUpdate(input.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return ErrCustomerNotFound
		}
		entry, err := s.creditTx(tx, customer, cfg, creditInput{
			Points:  input.Points,
			Type:    entryType,
			Reason:  strings.TrimSpace(input.Reason),
			OrderID: input.OrderID,
		}, now)
		if err != nil {
			return err
		}
		events = append(events, newPointsAddedEvent(entry, now))

		levelEvents, err := s.applyLevelProgressionTx(tx, customer, cfg, now)
		if err != nil {
			return err
		}
		events = append(events, levelEvents...)
		result.Entry = entry
		result.Customer = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishEvents(s.events, events)
	return &result, nil
}

// AwardOrderPoints 按订单金额发放积分，积分为 0 时不入账
func (s *LoyaltyService) AwardOrderPoints(customerID, orderID uint, amount decimal.Decimal) (*AddPointsResult, error) {
	points, err := s.configSvc.CalculatePointsForOrder(amount)
	if err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, nil
	}
	var orderRef *uint
	if orderID != 0 {
		orderRef = &orderID
	}
	return s.AddPoints(AddPointsInput{
		CustomerID: customerID,
		Points:     points,
		Type:       constants.LoyaltyEntryTypeEarned,
		Reason:     constants.LoyaltyReasonOrderEarned,
		OrderID:    orderRef,
	})
}

// GetCustomerSummary 获取顾客积分概览
func (s *LoyaltyService) GetCustomerSummary(customerID uint) (*CustomerLoyaltySummary, error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	cfg, err := s.configSvc.GetActiveConfig()
	if err != nil {
		return nil, err
	}
	value, err := AmountForPoints(cfg, customer.TotalPoints)
	if err != nil {
		return nil, err
	}
	nextLevel, toNext := nextLoyaltyLevel(cfg, customer)
	return &CustomerLoyaltySummary{
		CustomerID:      customer.ID,
		TotalPoints:     customer.TotalPoints,
		LifetimePoints:  customer.LifetimePoints,
		LoyaltyLevel:    customer.LoyaltyLevel,
		LastLevelUpdate: customer.LastLevelUpdate,
		NextLevel:       nextLevel,
		PointsToNext:    toNext,
		PointsValue:     value,
	}, nil
}

// ListEntries 查询积分流水
func (s *LoyaltyService) ListEntries(filter repository.LoyaltyEntryListFilter) ([]models.LoyaltyPointEntry, int64, error) {
	return s.loyaltyRepo.ListEntries(filter)
}

// ListLevelHistory 查询顾客等级变更记录
func (s *LoyaltyService) ListLevelHistory(customerID uint) ([]models.LoyaltyLevelHistory, error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return s.loyaltyRepo.ListLevelHistory(customerID)
}

type creditInput struct {
	Points  int64
	Type    string
	Reason  string
	OrderID *uint
}

// creditTx 事务内写入入账流水并同步顾客余额，调用方需已锁定顾客
func (s *LoyaltyService) creditTx(tx *gorm.DB, customer *models.Customer, cfg *models.LoyaltyConfig, input creditInput, now time.Time) (*models.LoyaltyPointEntry, error) {
	entry := &models.LoyaltyPointEntry{
		CustomerID: customer.ID,
		Points:     input.Points,
		Type:       input.Type,
		PointsUsed: 0,
		IsUsed:     constants.LoyaltyEntryUsedNo,
		ExpiresAt:  cfg.ExpiresAtFrom(now),
		OrderID:    input.OrderID,
		Reason:     input.Reason,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.loyaltyRepo.WithTx(tx).CreateEntry(entry); err != nil {
		logger.Warnw("loyalty_credit_entry_create_failed",
			"customer_id", customer.ID,
			"points", input.Points,
			"error", err,
		)
		return nil, ErrLoyaltyUpdateFailed
	}
	customer.TotalPoints += input.Points
	customer.LifetimePoints += input.Points
	customer.UpdatedAt = now
	if err := s.customerRepo.WithTx(tx).Update(customer); err != nil {
		return nil, ErrLoyaltyUpdateFailed
	}
	return entry, nil
}
