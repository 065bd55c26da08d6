// Package service 实现预算领域逻辑：月度预算引擎、类别库、交易对账以及统计导出
package service

import (
	"budget/events"

	"gorm.io/gorm"
)

// Services 汇总全部领域服务，由路由层创建后注入各处理器
type Services struct {
	Accounts     *AccountService
	Categories   *CategoryService
	Allocations  *AllocationService
	Transactions *TransactionService
	Summaries    *SummaryService
	Reports      *ReportService
}

// New 基于同一个数据库连接创建全部服务
func New(db *gorm.DB, publisher events.Publisher, notifier OverspendNotifier) *Services {
	accounts := NewAccountService(db)
	categories := NewCategoryService(db)
	allocations := NewAllocationService(db, categories, publisher)
	return &Services{
		Accounts:     accounts,
		Categories:   categories,
		Allocations:  allocations,
		Transactions: NewTransactionService(db, publisher, notifier),
		Summaries:    NewSummaryService(db),
		Reports:      NewReportService(db, accounts, allocations),
	}
}
