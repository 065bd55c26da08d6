package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"budget/events"
	"budget/logger"
	"budget/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxSaveAttempts 并发首次创建同一周期时，唯一索引冲突后的重试次数
const maxSaveAttempts = 2

// CategoryBudget 提交的单个类别预算
type CategoryBudget struct {
	Name   string       `json:"name"`
	Budget models.Money `json:"budget"`
}

// SaveAllocationInput 保存月度预算的输入
type SaveAllocationInput struct {
	AccountID      uint
	Period         models.Period
	Income         models.Money
	TotalAllocated models.Money
	Categories     []CategoryBudget
}

// AllocationService 月度预算引擎
type AllocationService struct {
	db         *gorm.DB
	categories *CategoryService
	publisher  events.Publisher
	locks      *keyedMutex
	log        *logrus.Entry
}

// NewAllocationService 创建预算服务，publisher 为 nil 时不发布事件
func NewAllocationService(db *gorm.DB, categories *CategoryService, publisher events.Publisher) *AllocationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if categories == nil {
		categories = NewCategoryService(db)
	}
	return &AllocationService{
		db:         db,
		categories: categories,
		publisher:  publisher,
		locks:      newKeyedMutex(),
		log:        logger.Component("allocation"),
	}
}

// Pool 可分配资金池 = 期初余额 + 当期收入
func Pool(openingBalance, income models.Money) models.Money {
	return openingBalance.Add(income)
}

// Get 获取某账户某月的预算视图，不存在时返回 ErrNotFound
func (s *AllocationService) Get(ctx context.Context, caller Caller, accountID uint, period models.Period) (*models.AllocationView, error) {
	if err := caller.authorize(accountID); err != nil {
		return nil, err
	}
	if err := period.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	db := s.db.WithContext(ctx)
	var a models.MonthlyAllocation
	err := db.Where("account_id = ? AND month = ? AND year = ?", accountID, period.Month, period.Year).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no allocation for %s", ErrNotFound, period)
	}
	if err != nil {
		return nil, fmt.Errorf("查询预算失败: %w", err)
	}

	var cats []models.AllocationCategory
	if err := db.Where("monthly_allocation_id = ?", a.ID).Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("查询预算类别失败: %w", err)
	}
	view := models.BuildAllocationView(a, cats)
	return &view, nil
}

// Save 创建或整体替换某月预算，created 表示是否为新建
func (s *AllocationService) Save(ctx context.Context, caller Caller, in SaveAllocationInput) (*models.AllocationView, bool, error) {
	if err := caller.authorize(in.AccountID); err != nil {
		return nil, false, err
	}
	cleaned, err := validateAllocation(in)
	if err != nil {
		return nil, false, err
	}
	in.Categories = cleaned

	unlock := s.locks.Lock(fmt.Sprintf("%d:%s", in.AccountID, in.Period))
	defer unlock()

	var (
		view    *models.AllocationView
		created bool
	)
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		view, created, err = s.save(ctx, in)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		s.log.WithFields(logrus.Fields{
			"account_id": in.AccountID,
			"period":     in.Period.String(),
			"attempt":    attempt,
		}).Warn("预算并发创建冲突，重试")
	}
	if err != nil {
		return nil, false, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": in.AccountID,
		"period":     in.Period.String(),
		"created":    created,
		"categories": len(view.Categories),
	}).Info("月度预算已保存")

	s.publish(ctx, events.New(events.AllocationSaved, in.AccountID, map[string]interface{}{
		"allocationId":   view.Allocation.ID,
		"month":          in.Period.Month,
		"year":           in.Period.Year,
		"totalAllocated": view.Allocation.TotalAllocated,
		"allocatedSum":   view.Totals.AllocatedSum,
		"created":        created,
	}))
	return view, created, nil
}

func (s *AllocationService) save(ctx context.Context, in SaveAllocationInput) (*models.AllocationView, bool, error) {
	var (
		view    models.AllocationView
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.MonthlyAllocation
		err := lockForUpdate(tx).
			Where("account_id = ? AND month = ? AND year = ?", in.AccountID, in.Period.Month, in.Period.Year).
			First(&a).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			a = models.MonthlyAllocation{
				AccountID:      in.AccountID,
				Month:          in.Period.Month,
				Year:           in.Period.Year,
				Income:         in.Income,
				TotalAllocated: in.TotalAllocated,
			}
			if err := tx.Create(&a).Error; err != nil {
				return fmt.Errorf("创建预算失败: %w", err)
			}
			created = true
		case err != nil:
			return fmt.Errorf("查询预算失败: %w", err)
		default:
			if err := tx.Model(&a).Updates(map[string]interface{}{
				"income":          in.Income,
				"total_allocated": in.TotalAllocated,
			}).Error; err != nil {
				return fmt.Errorf("更新预算失败: %w", err)
			}
			a.Income = in.Income
			a.TotalAllocated = in.TotalAllocated
		}

		var existing []models.AllocationCategory
		if err := tx.Where("monthly_allocation_id = ?", a.ID).Find(&existing).Error; err != nil {
			return fmt.Errorf("查询预算类别失败: %w", err)
		}
		byName := make(map[string]models.AllocationCategory, len(existing))
		for _, c := range existing {
			byName[models.NormalizeCategoryName(c.Name)] = c
		}

		kept := make(map[uint]bool, len(in.Categories))
		for _, c := range in.Categories {
			cat, _, err := s.categories.Ensure(tx, in.AccountID, c.Name)
			if err != nil {
				return err
			}
			if old, ok := byName[models.NormalizeCategoryName(c.Name)]; ok {
				if err := tx.Model(&models.AllocationCategory{}).Where("id = ?", old.ID).
					Updates(map[string]interface{}{
						"name":        c.Name,
						"budget":      c.Budget,
						"category_id": cat.ID,
					}).Error; err != nil {
					return fmt.Errorf("更新预算类别失败: %w", err)
				}
				kept[old.ID] = true
				continue
			}
			row := models.AllocationCategory{
				MonthlyAllocationID: a.ID,
				CategoryID:          cat.ID,
				Name:                c.Name,
				Budget:              c.Budget,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("创建预算类别失败: %w", err)
			}
		}

		if err := removeDropped(tx, existing, kept); err != nil {
			return err
		}

		var cats []models.AllocationCategory
		if err := tx.Where("monthly_allocation_id = ?", a.ID).Find(&cats).Error; err != nil {
			return fmt.Errorf("查询预算类别失败: %w", err)
		}
		view = models.BuildAllocationView(a, cats)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &view, created, nil
}

// removeDropped 删除本次未再提交的类别；仍有未删除交易的类别不允许移除
func removeDropped(tx *gorm.DB, existing []models.AllocationCategory, kept map[uint]bool) error {
	var ids []uint
	var names []string
	for _, c := range existing {
		if !kept[c.ID] {
			ids = append(ids, c.ID)
			names = append(names, c.Name)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var referenced []uint
	if err := tx.Model(&models.Transaction{}).
		Where("allocation_category_id IN ?", ids).
		Distinct().
		Pluck("allocation_category_id", &referenced).Error; err != nil {
		return fmt.Errorf("查询交易引用失败: %w", err)
	}
	if len(referenced) > 0 {
		inUse := make(map[uint]bool, len(referenced))
		for _, id := range referenced {
			inUse[id] = true
		}
		var blocked []string
		for i, id := range ids {
			if inUse[id] {
				blocked = append(blocked, names[i])
			}
		}
		return validationf("类别已有交易记录，不能从预算中移除: %s", strings.Join(blocked, ", "))
	}

	if err := tx.Where("id IN ?", ids).Delete(&models.AllocationCategory{}).Error; err != nil {
		return fmt.Errorf("删除预算类别失败: %w", err)
	}
	return nil
}

// validateAllocation 在任何写入之前完成全部校验，返回清洗后的类别列表
func validateAllocation(in SaveAllocationInput) ([]CategoryBudget, error) {
	if err := in.Period.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if in.Income.IsNegative() {
		return nil, validationf("收入不能为负数")
	}
	if in.TotalAllocated.IsNegative() {
		return nil, validationf("可分配资金不能为负数")
	}
	if len(in.Categories) == 0 {
		return nil, validationf("至少需要一个预算类别")
	}

	seen := make(map[string]bool, len(in.Categories))
	cleaned := make([]CategoryBudget, 0, len(in.Categories))
	var sum models.Money
	for _, c := range in.Categories {
		name, err := validateCategoryName(c.Name)
		if err != nil {
			return nil, err
		}
		if !c.Budget.IsPositive() {
			return nil, validationf("类别 %q 的预算必须大于0", name)
		}
		key := models.NormalizeCategoryName(name)
		if seen[key] {
			return nil, validationf("类别 %q 重复", name)
		}
		seen[key] = true
		sum = sum.Add(c.Budget)
		cleaned = append(cleaned, CategoryBudget{Name: name, Budget: c.Budget})
	}

	if sum > in.TotalAllocated {
		return nil, validationf("allocations exceed available funds: 预算合计 %s 超过可分配资金 %s", sum, in.TotalAllocated)
	}
	return cleaned, nil
}

// lockForUpdate MySQL 下对读取的行加排他锁；sqlite 的写事务本身已串行
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Session(&gorm.Session{})
	}
	return tx
}

func (s *AllocationService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.WithError(err).WithField("event", e.Type).Warn("发布事件失败")
	}
}
