package service

import "errors"

// 资源不存在
var (
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrPromotionNotFound     = errors.New("promotion not found")
	ErrDishNotFound          = errors.New("dish not found")
	ErrLoyaltyConfigNotFound = errors.New("loyalty config not found")
)

// 参数/业务校验失败
var (
	ErrLoyaltyInvalidPoints          = errors.New("points must be greater than zero")
	ErrLoyaltyInvalidEntryType       = errors.New("invalid loyalty entry type")
	ErrLoyaltyBelowMinimumRedemption = errors.New("points below minimum redemption")
	ErrLoyaltyConfigInvalid          = errors.New("invalid loyalty config")
	ErrLoyaltyInvalidAmount          = errors.New("invalid amount")
	ErrPromotionInvalid              = errors.New("invalid promotion")
	ErrPromotionInvalidDates         = errors.New("expiration date must be after start date")
	ErrPromotionTargetsRequired      = errors.New("promotion targets required")
	ErrPromotionLevelTargetsRequired = errors.New("private promotion requires a target level")
	ErrPromotionOfferedDishRequired  = errors.New("buy x get y promotion requires offered dishes")
	ErrPromotionExpired              = errors.New("promotion expired")
	ErrPromotionNotApplicable        = errors.New("promotion not applicable")
)

// 冲突（余额不足、次数用尽等）
var (
	ErrLoyaltyInsufficientPoints    = errors.New("insufficient points")
	ErrLoyaltyInsufficientAvailable = errors.New("insufficient available points")
	ErrPromotionUsageLimit          = errors.New("promotion usage limit reached")
	ErrPromotionPerUserLimit        = errors.New("promotion per customer limit reached")
	ErrPromotionLevelMismatch       = errors.New("promotion not available for loyalty level")
)

// 内部错误
var (
	ErrLoyaltyUpdateFailed   = errors.New("loyalty update failed")
	ErrPromotionUpdateFailed = errors.New("promotion update failed")
	ErrPromotionCreateFailed = errors.New("promotion create failed")
)

// 错误分类
const (
	ErrorKindNotFound   = "not_found"
	ErrorKindValidation = "validation"
	ErrorKindConflict   = "conflict"
	ErrorKindInternal   = "internal"
)

var errorKinds = []struct {
	kind string
	errs []error
}{
	{ErrorKindNotFound, []error{ErrCustomerNotFound, ErrPromotionNotFound, ErrDishNotFound, ErrLoyaltyConfigNotFound}},
	{ErrorKindValidation, []error{
		ErrLoyaltyInvalidPoints, ErrLoyaltyInvalidEntryType, ErrLoyaltyBelowMinimumRedemption,
		ErrLoyaltyConfigInvalid, ErrLoyaltyInvalidAmount, ErrPromotionInvalid, ErrPromotionInvalidDates,
		ErrPromotionTargetsRequired, ErrPromotionLevelTargetsRequired, ErrPromotionOfferedDishRequired,
		ErrPromotionExpired, ErrPromotionNotApplicable,
	}},
	{ErrorKindConflict, []error{
		ErrLoyaltyInsufficientPoints, ErrLoyaltyInsufficientAvailable,
		ErrPromotionUsageLimit, ErrPromotionPerUserLimit, ErrPromotionLevelMismatch,
	}},
}

// ErrorKind 返回错误所属分类，未识别的错误归为内部错误
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, group := range errorKinds {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.kind
			}
		}
	}
	return ErrorKindInternal
}
