package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// UserStatusLocked 锁定：不可登录
	UserStatusLocked = "locked"
	// UserStatusActive 正常：可登录
	UserStatusActive = "active"

	// UserRoleOwner 账户创建者
	UserRoleOwner = "owner"
	// UserRoleMember 企业账户协作者
	UserRoleMember = "member"
)

// User 登录用户，归属于一个账户；企业账户可有多个协作者
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	AccountID uint           `json:"accountId" gorm:"index;not null"`
	Username  string         `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Password  string         `json:"-" gorm:"size:255;not null"`
	Email     string         `json:"email" gorm:"size:100"`
	Role      string         `json:"role" gorm:"size:20;default:owner"`
	Status    string         `json:"status" gorm:"size:20;default:active;index"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
	Account   Account        `json:"-" gorm:"foreignKey:AccountID"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// IsOwner 是否为账户所有者
func (u *User) IsOwner() bool {
	return u.Role == UserRoleOwner
}
