package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money 金额类型，统一保留 2 位小数，JSON 输出为字符串
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// ParseMoney 解析字符串金额
func ParseMoney(raw string) (Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Money{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, err
	}
	return NewMoneyFromDecimal(d), nil
}

// CapAt 封顶：limit 为空或非正数时不限制
func (m Money) CapAt(limit *Money) Money {
	if limit == nil || !limit.Decimal.IsPositive() {
		return m
	}
	if m.Decimal.GreaterThan(limit.Decimal) {
		return *limit
	}
	return m
}

// MulPoints 单积分价值乘以积分数
func (m Money) MulPoints(points int64) Money {
	return NewMoneyFromDecimal(decimal.NewFromInt(points).Mul(m.Decimal))
}

// MarshalJSON 输出 2 位小数的字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 接受字符串、数字或 null
func (m *Money) UnmarshalJSON(b []byte) error {
	text := strings.TrimSpace(string(b))
	if text == "" || text == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	if strings.HasPrefix(text, "\"") {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseMoney(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return err
	}
	*m = NewMoneyFromDecimal(d)
	return nil
}

// Value 写库
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(2).Value()
}

// Scan 读库
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(2)
	return nil
}

func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}
