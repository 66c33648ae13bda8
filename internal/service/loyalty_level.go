package service

import (
	"fmt"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/queue"

	"gorm.io/gorm"
)

// loyaltyLevels 等级由低到高
var loyaltyLevels = []string{
	constants.LoyaltyLevelNone,
	constants.LoyaltyLevelStandard,
	constants.LoyaltyLevelPremium,
	constants.LoyaltyLevelGold,
}

func loyaltyLevelRank(level string) int {
	for i, item := range loyaltyLevels {
		if item == level {
			return i
		}
	}
	return 0
}

func loyaltyLevelThreshold(cfg *models.LoyaltyConfig, level string) int64 {
	switch level {
	case constants.LoyaltyLevelStandard:
		return cfg.StandardThreshold
	case constants.LoyaltyLevelPremium:
		return cfg.PremiumThreshold
	case constants.LoyaltyLevelGold:
		return cfg.GoldThreshold
	default:
		return 0
	}
}

func loyaltyLevelBonus(level string) int64 {
	switch level {
	case constants.LoyaltyLevelStandard:
		return constants.LoyaltyLevelBonusStandard
	case constants.LoyaltyLevelPremium:
		return constants.LoyaltyLevelBonusPremium
	case constants.LoyaltyLevelGold:
		return constants.LoyaltyLevelBonusGold
	default:
		return 0
	}
}

// ResolveLoyaltyLevel 按累计积分计算应达到的最高等级
func ResolveLoyaltyLevel(cfg *models.LoyaltyConfig, lifetimePoints int64) string {
	if cfg == nil {
		return constants.LoyaltyLevelNone
	}
	for i := len(loyaltyLevels) - 1; i > 0; i-- {
		level := loyaltyLevels[i]
		if lifetimePoints >= loyaltyLevelThreshold(cfg, level) {
			return level
		}
	}
	return constants.LoyaltyLevelNone
}

// nextLoyaltyLevel 返回下一等级及所需积分，已是最高等级时返回空
func nextLoyaltyLevel(cfg *models.LoyaltyConfig, customer *models.Customer) (string, int64) {
	rank := loyaltyLevelRank(customer.LoyaltyLevel)
	if rank >= len(loyaltyLevels)-1 {
		return "", 0
	}
	next := loyaltyLevels[rank+1]
	need := loyaltyLevelThreshold(cfg, next) - customer.LifetimePoints
	if need < 0 {
		need = 0
	}
	return next, need
}

// applyLevelProgressionTx 事务内检查并执行升级，升级赠送积分可能继续触发升级，
// 直至稳定；等级只升不降，循环次数不超过等级数
func (s *LoyaltyService) applyLevelProgressionTx(tx *gorm.DB, customer *models.Customer, cfg *models.LoyaltyConfig, now time.Time) ([]queue.DomainEventPayload, error) {
	var events []queue.DomainEventPayload
	for i := 0; i < len(loyaltyLevels); i++ {
		target := ResolveLoyaltyLevel(cfg, customer.LifetimePoints)
		if loyaltyLevelRank(target) <= loyaltyLevelRank(customer.LoyaltyLevel) {
			break
		}
		previous := customer.LoyaltyLevel
		updatedAt := now
		customer.LoyaltyLevel = target
		customer.LastLevelUpdate = &updatedAt

		history := &models.LoyaltyLevelHistory{
			CustomerID:    customer.ID,
			PreviousLevel: previous,
			NewLevel:      target,
			PointsAtTime:  customer.LifetimePoints,
			Reason:        constants.LoyaltyReasonLevelAutoUpdate,
			CreatedAt:     now,
		}
		if err := s.loyaltyRepo.WithTx(tx).CreateLevelHistory(history); err != nil {
			return nil, ErrLoyaltyUpdateFailed
		}

		bonus := loyaltyLevelBonus(target)
		if bonus > 0 {
			// 赠送积分走统一入账路径，顺带持久化新等级
			entry, err := s.creditTx(tx, customer, cfg, creditInput{
				Points: bonus,
				Type:   constants.LoyaltyEntryTypeBonus,
				Reason: fmt.Sprintf("%s: %s", constants.LoyaltyReasonLevelBonus, target),
			}, now)
			if err != nil {
				return nil, err
			}
			events = append(events, newPointsAddedEvent(entry, now))
		} else if err := s.customerRepo.WithTx(tx).Update(customer); err != nil {
			return nil, ErrLoyaltyUpdateFailed
		}
		events = append(events, newLevelUpEvent(customer.ID, target, bonus, now))
	}
	return events, nil
}
