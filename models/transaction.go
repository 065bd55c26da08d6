package models

import (
	"time"

	"gorm.io/gorm"
)

// Transaction 一笔支出，归属于某月某类别的预算
type Transaction struct {
	ID                   uint           `json:"id" gorm:"primaryKey"`
	AccountID            uint           `json:"accountId" gorm:"index;not null"`
	AllocationCategoryID uint           `json:"allocationCategoryId" gorm:"index;not null"`
	Amount               Money          `json:"amount" gorm:"not null"`
	PaymentMethod        PaymentMethod  `json:"paymentMethod" gorm:"size:20;not null"`
	Description          string         `json:"description" gorm:"size:255"`
	BillImage            string         `json:"billImage,omitempty" gorm:"size:255"`
	Date                 time.Time      `json:"date" gorm:"index;not null"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName 设置表名
func (Transaction) TableName() string {
	return "transactions"
}
