package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"budget/logger"
	"budget/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput 注册参数，同时创建账户与其所有者
type RegisterInput struct {
	Username       string
	Password       string
	Email          string
	AccountName    string
	AccountType    string
	OpeningBalance models.Money
	Currency       string
}

// MemberInput 企业账户新增协作者
type MemberInput struct {
	Username string
	Password string
	Email    string
}

// AccountService 账户与用户
type AccountService struct {
	db  *gorm.DB
	log *logrus.Entry
}

// NewAccountService 创建账户服务
func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{db: db, log: logger.Component("account")}
}

// Register 创建账户及所有者用户
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, *models.Account, error) {
	accountType, err := models.ParseAccountType(in.AccountType)
	if err != nil {
		return nil, nil, &ValidationError{Message: err.Error()}
	}
	currency := in.Currency
	if strings.TrimSpace(currency) == "" {
		currency = "USD"
	}
	currency, err = models.NormalizeCurrency(currency)
	if err != nil {
		return nil, nil, &ValidationError{Message: err.Error()}
	}
	if in.OpeningBalance.IsNegative() {
		return nil, nil, validationf("期初余额不能为负数")
	}
	name := strings.TrimSpace(in.AccountName)
	if name == "" {
		name = in.Username
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("密码加密失败: %w", err)
	}

	account := models.Account{
		Name:           name,
		Type:           accountType,
		OpeningBalance: in.OpeningBalance,
		Currency:       currency,
	}
	user := models.User{
		Username: in.Username,
		Password: string(hashed),
		Email:    in.Email,
		Role:     models.UserRoleOwner,
		Status:   models.UserStatusActive,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUsernameFree(tx, in.Username); err != nil {
			return err
		}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("创建账户失败: %w", err)
		}
		user.AccountID = account.ID
		if err := tx.Omit("Account").Create(&user).Error; err != nil {
			return fmt.Errorf("创建用户失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"user_id":    user.ID,
		"type":       account.Type,
	}).Info("账户已注册")
	return &user, &account, nil
}

// Authenticate 校验用户名密码
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, *models.Account, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Account").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if user.Status == models.UserStatusLocked {
		return nil, nil, ErrAccountLocked
	}
	account := user.Account
	return &user, &account, nil
}

// Profile 当前用户及其账户
func (s *AccountService) Profile(ctx context.Context, caller Caller) (*models.User, *models.Account, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Account").First(&user, caller.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: user %d", ErrNotFound, caller.UserID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if err := caller.authorize(user.AccountID); err != nil {
		return nil, nil, err
	}
	account := user.Account
	return &user, &account, nil
}

// Account 查询调用方可访问的账户
func (s *AccountService) Account(ctx context.Context, caller Caller, accountID uint) (*models.Account, error) {
	if err := caller.authorize(accountID); err != nil {
		return nil, err
	}
	var account models.Account
	err := s.db.WithContext(ctx).First(&account, accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("查询账户失败: %w", err)
	}
	return &account, nil
}

// AddMember 企业账户所有者添加协作者
func (s *AccountService) AddMember(ctx context.Context, caller Caller, in MemberInput) (*models.User, error) {
	var member models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Preload("Account").First(&owner, caller.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d", ErrNotFound, caller.UserID)
			}
			return fmt.Errorf("查询用户失败: %w", err)
		}
		if err := caller.authorize(owner.AccountID); err != nil {
			return err
		}
		if owner.Role != models.UserRoleOwner {
			return fmt.Errorf("%w: only the account owner can add members", ErrNotAuthorized)
		}
		if !owner.Account.IsBusiness() {
			return validationf("只有企业账户可以添加协作者")
		}
		if err := ensureUsernameFree(tx, in.Username); err != nil {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("密码加密失败: %w", err)
		}
		member = models.User{
			AccountID: owner.AccountID,
			Username:  in.Username,
			Password:  string(hashed),
			Email:     in.Email,
			Role:      models.UserRoleMember,
			Status:    models.UserStatusActive,
		}
		if err := tx.Omit("Account").Create(&member).Error; err != nil {
			return fmt.Errorf("创建用户失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// Members 账户下全部用户
func (s *AccountService) Members(ctx context.Context, caller Caller) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("account_id = ?", caller.AccountID).
		Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return users, nil
}

// AccountsWithoutPlan 尚未制定指定周期预算的账户
func (s *AccountService) AccountsWithoutPlan(ctx context.Context, period models.Period) ([]models.Account, error) {
	db := s.db.WithContext(ctx)
	planned := db.Model(&models.MonthlyAllocation{}).
		Select("account_id").
		Where("month = ? AND year = ?", period.Month, period.Year)

	var accounts []models.Account
	if err := db.Where("id NOT IN (?)", planned).Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("查询未制定预算的账户失败: %w", err)
	}
	return accounts, nil
}

func ensureUsernameFree(tx *gorm.DB, username string) error {
	var count int64
	if err := tx.Model(&models.User{}).Unscoped().Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("查询用户失败: %w", err)
	}
	if count > 0 {
		return validationf("用户名已存在")
	}
	return nil
}
