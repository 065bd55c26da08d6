package service

import (
	"errors"
	"fmt"
)

// 领域错误，由 api 层映射为 HTTP 状态码
var (
	// ErrNotFound 记录不存在；对尚未制定预算的月份属于预期结果
	ErrNotFound = errors.New("not found")
	// ErrValidation 参数或业务规则校验失败，未写入任何数据
	ErrValidation = errors.New("validation failed")
	// ErrNotAuthorized 当前凭证无权访问目标账户的数据
	ErrNotAuthorized = errors.New("not authorized")
	// ErrCategoryInUse 类别仍被某月预算引用，不允许删除
	ErrCategoryInUse = errors.New("category in use")
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked 用户已被锁定
	ErrAccountLocked = errors.New("account locked")
)

// ValidationError 带有可直接展示给用户的提示信息
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Caller 调用方身份，由认证中间件解析后显式传入每个领域操作
type Caller struct {
	UserID    uint
	AccountID uint
}

// authorize 校验调用方是否可以访问 accountID 的数据
func (c Caller) authorize(accountID uint) error {
	if c.AccountID == 0 || c.AccountID != accountID {
		return fmt.Errorf("%w: account %d", ErrNotAuthorized, accountID)
	}
	return nil
}
