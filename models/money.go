package models

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money 金额，以最小货币单位（分）存储的定点整数，禁止使用浮点运算
// 货币种类由账户决定，金额本身与币种无关
type Money int64

// ErrInvalidMoney 金额格式错误
var ErrInvalidMoney = errors.New("invalid money amount")

// maxMoneyUnits 允许的最大金额（主单位），避免换算为分时溢出
var maxMoneyUnits = decimal.NewFromInt(1_000_000_000_000)

// MoneyFromMajor 由主单位整数构造金额，如 MoneyFromMajor(15) 表示 15.00
func MoneyFromMajor(units int64) Money {
	return Money(units * 100)
}

// ParseMoney 解析十进制字符串，最多两位小数
// 例如 "12.34" -> 1234，"12" -> 1200，"12.345" 返回错误
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMoney
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Round(2).Equal(d) {
		return 0, fmt.Errorf("%w: 最多两位小数", ErrInvalidMoney)
	}
	if d.Abs().GreaterThan(maxMoneyUnits) {
		return 0, fmt.Errorf("%w: 超出范围", ErrInvalidMoney)
	}
	return Money(d.Shift(2).IntPart()), nil
}

// Cents 返回以分为单位的整数值
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal 返回主单位的十进制表示
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Add 加法
func (m Money) Add(o Money) Money {
	return m + o
}

// Sub 减法
func (m Money) Sub(o Money) Money {
	return m - o
}

// IsPositive 是否大于 0
func (m Money) IsPositive() bool {
	return m > 0
}

// IsNegative 是否小于 0
func (m Money) IsNegative() bool {
	return m < 0
}

// String 固定两位小数，如 "8000.00"
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON 输出为两位小数的 JSON 数字
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON 同时接受 JSON 数字与数字字符串
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidMoney, s)
		}
		s = unquoted
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Value 实现 driver.Valuer，按分存储为整数
func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}

// Scan 实现 sql.Scanner，兼容不同驱动下 SUM 等聚合返回的类型
func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case int64:
		*m = Money(v)
	case float64:
		*m = Money(decimal.NewFromFloat(v).Round(0).IntPart())
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	default:
		return fmt.Errorf("money: 不支持的类型 %T", src)
	}
	return nil
}

func (m *Money) scanString(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*m = Money(d.Round(0).IntPart())
	return nil
}

// SumMoney 求和
func SumMoney(values ...Money) Money {
	var total Money
	for _, v := range values {
		total += v
	}
	return total
}
