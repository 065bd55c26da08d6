package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"budget/events"
	"budget/logger"
	"budget/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// maxDescriptionLen 交易备注最大长度（字符）
const maxDescriptionLen = 255

// OverspendNotifier 类别首次超支时收到通知
type OverspendNotifier interface {
	NotifyOverspend(ctx context.Context, accountID uint, period models.Period, category models.CategoryView) error
}

// AddTransactionInput 记一笔支出
type AddTransactionInput struct {
	AllocationCategoryID uint
	Amount               models.Money
	PaymentMethod        string
	Description          string
	BillImage            string
	Date                 time.Time // 为空时取当前时间
}

// TransactionResult 记账结果，附带刷新后的类别状态
type TransactionResult struct {
	Transaction    models.Transaction  `json:"transaction"`
	Category       models.CategoryView `json:"category"`
	PreviousStatus models.BudgetStatus `json:"previousStatus"`
}

// TransactionService 交易记账与类别已支出对账
type TransactionService struct {
	db        *gorm.DB
	publisher events.Publisher
	notifier  OverspendNotifier
	now       func() time.Time
	log       *logrus.Entry
}

// NewTransactionService 创建交易服务，publisher 与 notifier 可为 nil
func NewTransactionService(db *gorm.DB, publisher events.Publisher, notifier OverspendNotifier) *TransactionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &TransactionService{
		db:        db,
		publisher: publisher,
		notifier:  notifier,
		now:       time.Now,
		log:       logger.Component("transaction"),
	}
}

// Add 记一笔支出并原子地累加所属类别的已支出金额
func (s *TransactionService) Add(ctx context.Context, caller Caller, in AddTransactionInput) (*TransactionResult, error) {
	if !in.Amount.IsPositive() {
		return nil, validationf("金额必须大于0")
	}
	method, err := models.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLen {
		return nil, validationf("备注不能超过%d个字符", maxDescriptionLen)
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}

	var (
		result models.Transaction
		before models.BudgetStatus
		after  models.AllocationCategory
		period models.Period
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ac, a, err := loadOwnedCategory(tx, caller, in.AllocationCategoryID)
		if err != nil {
			return err
		}
		before = ac.Status()
		period = a.Period()

		result = models.Transaction{
			AccountID:            a.AccountID,
			AllocationCategoryID: ac.ID,
			Amount:               in.Amount,
			PaymentMethod:        method,
			Description:          in.Description,
			BillImage:            in.BillImage,
			Date:                 date,
		}
		if err := tx.Create(&result).Error; err != nil {
			return fmt.Errorf("创建交易失败: %w", err)
		}
		if err := tx.Model(&models.AllocationCategory{}).Where("id = ?", ac.ID).
			Update("spent", gorm.Expr("spent + ?", in.Amount)).Error; err != nil {
			return fmt.Errorf("更新已支出失败: %w", err)
		}
		return tx.First(&after, ac.ID).Error
	})
	if err != nil {
		return nil, err
	}

	view := after.View()
	s.log.WithFields(logrus.Fields{
		"account_id":     result.AccountID,
		"transaction_id": result.ID,
		"category":       view.Name,
		"amount":         result.Amount.String(),
		"status":         view.Status,
	}).Info("交易已记录")

	s.publish(ctx, events.New(events.TransactionAdded, result.AccountID, map[string]interface{}{
		"transactionId":        result.ID,
		"allocationCategoryId": view.ID,
		"amount":               result.Amount,
		"spent":                view.Spent,
		"status":               view.Status,
	}))
	if before != models.StatusOverBudget && view.Status == models.StatusOverBudget {
		s.notifyOverspend(ctx, result.AccountID, period, view)
	}

	return &TransactionResult{Transaction: result, Category: view, PreviousStatus: before}, nil
}

// History 返回类别下未删除的交易，按日期倒序
func (s *TransactionService) History(ctx context.Context, caller Caller, allocationCategoryID uint) ([]models.Transaction, error) {
	db := s.db.WithContext(ctx)
	if _, _, err := loadOwnedCategory(db, caller, allocationCategoryID); err != nil {
		return nil, err
	}

	var txns []models.Transaction
	if err := db.Where("allocation_category_id = ?", allocationCategoryID).
		Order("date DESC, id DESC").
		Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}
	return txns, nil
}

// Delete 软删除交易并退回金额，已支出最低减到0
func (s *TransactionService) Delete(ctx context.Context, caller Caller, id uint) (*models.CategoryView, error) {
	var (
		txn   models.Transaction
		after models.AllocationCategory
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&txn, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && txn.AccountID != caller.AccountID) {
			return fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("查询交易失败: %w", err)
		}

		res := tx.Delete(&txn)
		if res.Error != nil {
			return fmt.Errorf("删除交易失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: transaction %d", ErrNotFound, id)
		}
		if err := tx.Model(&models.AllocationCategory{}).Where("id = ?", txn.AllocationCategoryID).
			Update("spent", gorm.Expr("CASE WHEN spent >= ? THEN spent - ? ELSE 0 END", txn.Amount, txn.Amount)).Error; err != nil {
			return fmt.Errorf("退回已支出失败: %w", err)
		}
		return tx.First(&after, txn.AllocationCategoryID).Error
	})
	if err != nil {
		return nil, err
	}

	view := after.View()
	s.log.WithFields(logrus.Fields{
		"account_id":     txn.AccountID,
		"transaction_id": txn.ID,
		"amount":         txn.Amount.String(),
		"spent":          view.Spent.String(),
	}).Info("交易已删除")

	s.publish(ctx, events.New(events.TransactionDeleted, txn.AccountID, map[string]interface{}{
		"transactionId":        txn.ID,
		"allocationCategoryId": view.ID,
		"amount":               txn.Amount,
		"spent":                view.Spent,
		"status":               view.Status,
	}))
	return &view, nil
}

// Reconcile 按未删除交易重新计算类别已支出
func (s *TransactionService) Reconcile(ctx context.Context, caller Caller, allocationCategoryID uint) (*models.CategoryView, error) {
	var (
		before models.Money
		after  models.AllocationCategory
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ac, _, err := loadOwnedCategory(lockForUpdate(tx), caller, allocationCategoryID)
		if err != nil {
			return err
		}
		before = ac.Spent

		var total int64
		if err := tx.Model(&models.Transaction{}).
			Where("allocation_category_id = ?", ac.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&total).Error; err != nil {
			return fmt.Errorf("汇总交易失败: %w", err)
		}
		if err := tx.Model(&models.AllocationCategory{}).Where("id = ?", ac.ID).
			Update("spent", models.Money(total)).Error; err != nil {
			return fmt.Errorf("更新已支出失败: %w", err)
		}
		return tx.First(&after, ac.ID).Error
	})
	if err != nil {
		return nil, err
	}

	if before != after.Spent {
		s.log.WithFields(logrus.Fields{
			"allocation_category_id": after.ID,
			"before":                 before.String(),
			"after":                  after.Spent.String(),
		}).Warn("已支出与交易明细不一致，已修正")
	}
	view := after.View()
	return &view, nil
}

// loadOwnedCategory 加载预算类别及其所属月度预算并校验归属
func loadOwnedCategory(db *gorm.DB, caller Caller, id uint) (*models.AllocationCategory, *models.MonthlyAllocation, error) {
	var ac models.AllocationCategory
	err := db.First(&ac, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: allocation category %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("查询预算类别失败: %w", err)
	}

	var a models.MonthlyAllocation
	err = db.First(&a, ac.MonthlyAllocationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: allocation %d", ErrNotFound, ac.MonthlyAllocationID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("查询预算失败: %w", err)
	}
	if err := caller.authorize(a.AccountID); err != nil {
		return nil, nil, err
	}
	return &ac, &a, nil
}

func (s *TransactionService) notifyOverspend(ctx context.Context, accountID uint, period models.Period, view models.CategoryView) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyOverspend(ctx, accountID, period, view); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"account_id": accountID,
			"category":   view.Name,
		}).Warn("发送超支提醒失败")
	}
}

func (s *TransactionService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.WithError(err).WithField("event", e.Type).Warn("发布事件失败")
	}
}
