package service

import (
	"fmt"
	"time"

	"github.com/mealpoint/loyalty/internal/constants"
	"github.com/mealpoint/loyalty/internal/logger"
	"github.com/mealpoint/loyalty/internal/models"
	"github.com/mealpoint/loyalty/internal/queue"
)

// EventSink 领域事件出口，由外部通知层消费
type EventSink interface {
	EnqueueDomainEvent(payload queue.DomainEventPayload) error
}

// publishEvents 事务提交后投递事件，投递失败仅记录日志
func publishEvents(sink EventSink, events []queue.DomainEventPayload) {
	if sink == nil || len(events) == 0 {
		return
	}
	for _, event := range events {
		if err := sink.EnqueueDomainEvent(event); err != nil {
			logger.Warnw("domain_event_publish_failed",
				"event", event.Name,
				"customer_id", event.CustomerID,
				"error", err,
			)
		}
	}
}

func orderReference(orderID *uint) string {
	if orderID == nil || *orderID == 0 {
		return ""
	}
	return fmt.Sprintf("order:%d", *orderID)
}

func newPointsAddedEvent(entry *models.LoyaltyPointEntry, now time.Time) queue.DomainEventPayload {
	return queue.DomainEventPayload{
		Name:           constants.EventPointsAdded,
		CustomerID:     entry.CustomerID,
		Points:         entry.Points,
		OrderReference: orderReference(entry.OrderID),
		OccurredAt:     now,
	}
}

func newPointsRedeemedEvent(entry *models.LoyaltyPointEntry, now time.Time) queue.DomainEventPayload {
	return queue.DomainEventPayload{
		Name:           constants.EventPointsRedeemed,
		CustomerID:     entry.CustomerID,
		Points:         entry.Points,
		OrderReference: orderReference(entry.OrderID),
		OccurredAt:     now,
	}
}

func newLevelUpEvent(customerID uint, level string, bonus int64, now time.Time) queue.DomainEventPayload {
	return queue.DomainEventPayload{
		Name:        constants.EventLevelUp,
		CustomerID:  customerID,
		NewLevel:    level,
		BonusPoints: bonus,
		OccurredAt:  now,
	}
}

func newPointsExpiredEvent(customerID uint, points int64, now time.Time) queue.DomainEventPayload {
	return queue.DomainEventPayload{
		Name:          constants.EventPointsExpired,
		CustomerID:    customerID,
		ExpiredPoints: points,
		OccurredAt:    now,
	}
}

func newPointsExpiringSoonEvent(customerID uint, points int64, daysRemaining int, now time.Time) queue.DomainEventPayload {
	return queue.DomainEventPayload{
		Name:           constants.EventPointsExpiringSoon,
		CustomerID:     customerID,
		ExpiringPoints: points,
		DaysRemaining:  daysRemaining,
		OccurredAt:     now,
	}
}

func newPromotionUsedEvent(usage *models.PromotionUsage, now time.Time) queue.DomainEventPayload {
	orderID := usage.OrderID
	return queue.DomainEventPayload{
		Name:           constants.EventPromotionUsed,
		CustomerID:     usage.CustomerID,
		PromotionID:    usage.PromotionID,
		DiscountAmount: usage.DiscountAmount.String(),
		OrderReference: orderReference(&orderID),
		OccurredAt:     now,
	}
}
