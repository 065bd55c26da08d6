package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"budget/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxCategoryNameLen 类别名称最大长度（字符）
const maxCategoryNameLen = 50

// CategoryService 账户级类别库
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService 创建类别服务
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

// List 返回账户下全部类别名称，按名称（忽略大小写）排序
func (s *CategoryService) List(ctx context.Context, caller Caller, accountID uint) ([]string, error) {
	if err := caller.authorize(accountID); err != nil {
		return nil, err
	}

	var names []string
	if err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("account_id = ?", accountID).
		Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("查询类别失败: %w", err)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Save 幂等保存类别，已存在（忽略大小写）时返回原记录且 created 为 false
func (s *CategoryService) Save(ctx context.Context, caller Caller, accountID uint, name string) (*models.Category, bool, error) {
	if err := caller.authorize(accountID); err != nil {
		return nil, false, err
	}
	clean, err := validateCategoryName(name)
	if err != nil {
		return nil, false, err
	}

	var (
		cat     *models.Category
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cat, created, err = s.Ensure(tx, accountID, clean)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return cat, created, nil
}

// Ensure 在给定事务内按 (账户, 规范化名称) 插入或取回类别
// 凡是引用类别名称的地方都通过它登记，保证同名类别只有一条
func (s *CategoryService) Ensure(tx *gorm.DB, accountID uint, name string) (*models.Category, bool, error) {
	clean := models.CleanCategoryName(name)
	normalized := models.NormalizeCategoryName(clean)

	cat := models.Category{
		AccountID:      accountID,
		Name:           clean,
		NormalizedName: normalized,
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "normalized_name"}},
		DoNothing: true,
	}).Create(&cat)
	if result.Error != nil {
		return nil, false, fmt.Errorf("保存类别失败: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return &cat, true, nil
	}

	var existing models.Category
	if err := tx.Where("account_id = ? AND normalized_name = ?", accountID, normalized).
		First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("查询类别失败: %w", err)
	}
	return &existing, false, nil
}

// Delete 删除类别；仍被任一月度预算引用时拒绝
func (s *CategoryService) Delete(ctx context.Context, caller Caller, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		err := tx.Where("id = ? AND account_id = ?", id, caller.AccountID).First(&cat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: category %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("查询类别失败: %w", err)
		}

		var refs int64
		if err := tx.Model(&models.AllocationCategory{}).
			Where("category_id = ?", cat.ID).
			Count(&refs).Error; err != nil {
			return fmt.Errorf("查询类别引用失败: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("%w: %q is used by %d allocation(s)", ErrCategoryInUse, cat.Name, refs)
		}

		return tx.Delete(&cat).Error
	})
}

func validateCategoryName(name string) (string, error) {
	clean := models.CleanCategoryName(name)
	if clean == "" {
		return "", validationf("类别名称不能为空")
	}
	if utf8.RuneCountInString(clean) > maxCategoryNameLen {
		return "", validationf("类别名称不能超过%d个字符", maxCategoryNameLen)
	}
	return clean, nil
}
