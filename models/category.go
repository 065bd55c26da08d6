package models

import (
	"strings"
	"time"
)

// Category 账户级预算类别，跨月份复用
// NormalizedName 用于去重（忽略大小写），Name 保留首次保存时的写法用于展示
type Category struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	AccountID      uint      `json:"accountId" gorm:"not null;uniqueIndex:idx_account_category"`
	Name           string    `json:"name" gorm:"size:50;not null"`
	NormalizedName string    `json:"-" gorm:"size:50;not null;uniqueIndex:idx_account_category"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (Category) TableName() string {
	return "categories"
}

// CleanCategoryName 去除首尾空白并合并连续空白
func CleanCategoryName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeCategoryName 去重用的规范化名称
func NormalizeCategoryName(name string) string {
	return strings.ToLower(CleanCategoryName(name))
}
