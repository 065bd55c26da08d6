package models

import (
	"fmt"
	"strings"
	"time"
)

// AccountType 账户类型
type AccountType string

const (
	AccountPersonal AccountType = "PERSONAL"
	AccountBusiness AccountType = "BUSINESS"
)

// ParseAccountType 忽略大小写解析账户类型，空值视为个人账户
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", AccountPersonal:
		return AccountPersonal, nil
	case AccountBusiness:
		return AccountBusiness, nil
	}
	return "", fmt.Errorf("不支持的账户类型: %q", s)
}

// Account 租户根对象，期初余额与币种在注册时确定，之后不可修改
type Account struct {
	ID             uint        `json:"id" gorm:"primaryKey"`
	Name           string      `json:"name" gorm:"size:100;not null"`
	Type           AccountType `json:"type" gorm:"size:20;not null;default:PERSONAL"`
	OpeningBalance Money       `json:"openingBalance" gorm:"not null;default:0"`
	Currency       string      `json:"currency" gorm:"size:3;not null"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// TableName 设置表名
func (Account) TableName() string {
	return "accounts"
}

// IsBusiness 是否为企业账户
func (a *Account) IsBusiness() bool {
	return a.Type == AccountBusiness
}

// Pool 某周期可分配资金 = 期初余额 + 当期申报收入
func (a *Account) Pool(income Money) Money {
	return a.OpeningBalance.Add(income)
}

// NormalizeCurrency 校验并规范化 ISO 4217 币种代码
func NormalizeCurrency(s string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(s))
	if len(c) != 3 {
		return "", fmt.Errorf("币种代码必须为3位字母: %q", s)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("币种代码必须为3位字母: %q", s)
		}
	}
	return c, nil
}
