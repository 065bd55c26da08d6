package models

import (
	"sort"
	"strings"
	"time"
)

// MonthlyAllocation 账户在某个月的预算计划，(account_id, month, year) 唯一
type MonthlyAllocation struct {
	ID             uint                 `json:"id" gorm:"primaryKey"`
	AccountID      uint                 `json:"accountId" gorm:"not null;uniqueIndex:idx_account_period"`
	Month          int                  `json:"month" gorm:"not null;uniqueIndex:idx_account_period"`
	Year           int                  `json:"year" gorm:"not null;uniqueIndex:idx_account_period"`
	Income         Money                `json:"income" gorm:"not null;default:0"`
	TotalAllocated Money                `json:"totalAllocated" gorm:"not null;default:0"` // 保存时的资金池快照
	Categories     []AllocationCategory `json:"-" gorm:"foreignKey:MonthlyAllocationID"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

func (MonthlyAllocation) TableName() string {
	return "monthly_allocations"
}

// Period 返回该计划所属周期
func (a *MonthlyAllocation) Period() Period {
	return Period{Month: a.Month, Year: a.Year}
}

// AllocationCategory 某月某类别的计划预算与实际支出
// Spent 只由记账/删除交易修改，恒等于未删除交易金额之和
type AllocationCategory struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	MonthlyAllocationID uint      `json:"monthlyAllocationId" gorm:"not null;index"`
	CategoryID          uint      `json:"categoryId" gorm:"not null;index"`
	Name                string    `json:"name" gorm:"size:50;not null"`
	Budget              Money     `json:"budget" gorm:"not null"`
	Spent               Money     `json:"spent" gorm:"not null;default:0"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (AllocationCategory) TableName() string {
	return "allocation_categories"
}

// Status 当前预算状态
func (c *AllocationCategory) Status() BudgetStatus {
	return ClassifySpend(c.Spent, c.Budget)
}

// View 转换为接口展示结构
func (c *AllocationCategory) View() CategoryView {
	return CategoryView{
		ID:          c.ID,
		CategoryID:  c.CategoryID,
		Name:        c.Name,
		Budget:      c.Budget,
		Spent:       c.Spent,
		Remaining:   c.Budget.Sub(c.Spent),
		PercentUsed: PercentUsed(c.Spent, c.Budget),
		Status:      c.Status(),
	}
}

// CategoryView 分类预算展示
type CategoryView struct {
	ID          uint         `json:"id"`
	CategoryID  uint         `json:"categoryId"`
	Name        string       `json:"name"`
	Budget      Money        `json:"budget"`
	Spent       Money        `json:"spent"`
	Remaining   Money        `json:"remaining"`
	PercentUsed float64      `json:"percentUsed"`
	Status      BudgetStatus `json:"status"`
}

// AllocationTotals 汇总
type AllocationTotals struct {
	AllocatedSum Money `json:"allocatedSum"` // 各类别预算之和
	Remaining    Money `json:"remaining"`    // totalAllocated - allocatedSum
	SpentSum     Money `json:"spentSum"`
	Overspent    int   `json:"overspentCategories"`
}

// AllocationView 月度预算完整视图
type AllocationView struct {
	Allocation MonthlyAllocation `json:"allocation"`
	Categories []CategoryView    `json:"categories"`
	Totals     AllocationTotals  `json:"totals"`
}

// BuildAllocationView 由计划及其类别计算展示视图，类别按名称排序
func BuildAllocationView(a MonthlyAllocation, categories []AllocationCategory) AllocationView {
	views := make([]CategoryView, 0, len(categories))
	var totals AllocationTotals
	for i := range categories {
		v := categories[i].View()
		views = append(views, v)
		totals.AllocatedSum += v.Budget
		totals.SpentSum += v.Spent
		if v.Status == StatusOverBudget {
			totals.Overspent++
		}
	}
	sort.SliceStable(views, func(i, j int) bool {
		return strings.ToLower(views[i].Name) < strings.ToLower(views[j].Name)
	})
	totals.Remaining = a.TotalAllocated.Sub(totals.AllocatedSum)

	a.Categories = nil
	return AllocationView{Allocation: a, Categories: views, Totals: totals}
}
