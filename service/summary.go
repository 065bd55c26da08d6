package service

import (
	"context"
	"fmt"

	"budget/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// MonthSummary 单月预算概况
type MonthSummary struct {
	Month          int          `json:"month"`
	Planned        bool         `json:"planned"`
	Income         models.Money `json:"income"`
	TotalAllocated models.Money `json:"totalAllocated"`
	AllocatedSum   models.Money `json:"allocatedSum"`
	SpentSum       models.Money `json:"spentSum"`
	Overspent      int          `json:"overspentCategories"`
}

// YearSummary 全年预算概况
type YearSummary struct {
	Year         int            `json:"year"`
	Months       []MonthSummary `json:"months"`
	AllocatedSum models.Money   `json:"allocatedSum"`
	SpentSum     models.Money   `json:"spentSum"`
	Overspent    int            `json:"overspentCategories"`
}

// SummaryService 仪表盘统计
type SummaryService struct {
	db *gorm.DB
}

// NewSummaryService 创建统计服务
func NewSummaryService(db *gorm.DB) *SummaryService {
	return &SummaryService{db: db}
}

type monthAggregate struct {
	Month     int
	Allocated int64
	Spent     int64
	Overspent int64
}

// Year 汇总某年 12 个月的预算与支出，未制定预算的月份 Planned 为 false
func (s *SummaryService) Year(ctx context.Context, caller Caller, accountID uint, year int) (*YearSummary, error) {
	if err := caller.authorize(accountID); err != nil {
		return nil, err
	}
	if _, err := models.NewPeriod(1, year); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	var (
		allocations []models.MonthlyAllocation
		aggregates  []monthAggregate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.db.WithContext(gctx).
			Where("account_id = ? AND year = ?", accountID, year).
			Find(&allocations).Error; err != nil {
			return fmt.Errorf("查询预算失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := s.db.WithContext(gctx).
			Table("allocation_categories AS ac").
			Select(`ma.month AS month,
				COALESCE(SUM(ac.budget), 0) AS allocated,
				COALESCE(SUM(ac.spent), 0) AS spent,
				COALESCE(SUM(CASE WHEN ac.spent > ac.budget THEN 1 ELSE 0 END), 0) AS overspent`).
			Joins("JOIN monthly_allocations AS ma ON ma.id = ac.monthly_allocation_id").
			Where("ma.account_id = ? AND ma.year = ?", accountID, year).
			Group("ma.month").
			Scan(&aggregates).Error; err != nil {
			return fmt.Errorf("汇总预算类别失败: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &YearSummary{Year: year, Months: make([]MonthSummary, 12)}
	for i := range summary.Months {
		summary.Months[i].Month = i + 1
	}
	for _, a := range allocations {
		m := &summary.Months[a.Month-1]
		m.Planned = true
		m.Income = a.Income
		m.TotalAllocated = a.TotalAllocated
	}
	for _, agg := range aggregates {
		if agg.Month < 1 || agg.Month > 12 {
			continue
		}
		m := &summary.Months[agg.Month-1]
		m.AllocatedSum = models.Money(agg.Allocated)
		m.SpentSum = models.Money(agg.Spent)
		m.Overspent = int(agg.Overspent)

		summary.AllocatedSum += m.AllocatedSum
		summary.SpentSum += m.SpentSum
		summary.Overspent += m.Overspent
	}
	return summary, nil
}
