package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"budget/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportRow 导出用交易明细，附带类别名称
type ReportRow struct {
	models.Transaction
	CategoryName string
}

// MonthlyReport 某账户某月的预算与交易明细
type MonthlyReport struct {
	Account      models.Account
	View         models.AllocationView
	Transactions []ReportRow
}

// ReportService 导出报表
type ReportService struct {
	db          *gorm.DB
	accounts    *AccountService
	allocations *AllocationService
}

// NewReportService 创建报表服务
func NewReportService(db *gorm.DB, accounts *AccountService, allocations *AllocationService) *ReportService {
	return &ReportService{db: db, accounts: accounts, allocations: allocations}
}

// Monthly 加载调用方账户某月的报表数据，未制定预算时返回 ErrNotFound
func (s *ReportService) Monthly(ctx context.Context, caller Caller, period models.Period) (*MonthlyReport, error) {
	account, err := s.accounts.Account(ctx, caller, caller.AccountID)
	if err != nil {
		return nil, err
	}
	view, err := s.allocations.Get(ctx, caller, caller.AccountID, period)
	if err != nil {
		return nil, err
	}

	var rows []ReportRow
	if err := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("transactions.*, allocation_categories.name AS category_name").
		Joins("JOIN allocation_categories ON allocation_categories.id = transactions.allocation_category_id").
		Where("allocation_categories.monthly_allocation_id = ?", view.Allocation.ID).
		Order("transactions.date ASC, transactions.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("查询交易失败: %w", err)
	}
	return &MonthlyReport{Account: *account, View: *view, Transactions: rows}, nil
}

// Filename 导出文件名（不含扩展名）
func (r *MonthlyReport) Filename() string {
	return fmt.Sprintf("budget_%s", r.View.Allocation.Period())
}

var (
	categoryHeaders    = []string{"类别", "预算", "已支出", "剩余", "使用率(%)", "状态"}
	transactionHeaders = []string{"ID", "日期", "类别", "金额", "支付方式", "备注"}
)

// WriteCSV 写出 CSV：先类别汇总，空行后为交易明细
func (r *MonthlyReport) WriteCSV(w io.Writer) error {
	// 添加 BOM 以支持 Excel 中文显示
	if _, err := io.WriteString(w, "\xEF\xBB\xBF"); err != nil {
		return err
	}
	writer := csv.NewWriter(w)

	records := [][]string{
		{"账户", r.Account.Name, "币种", r.Account.Currency},
		{"周期", r.View.Allocation.Period().String(), "可分配资金", r.View.Allocation.TotalAllocated.String()},
		{},
		categoryHeaders,
	}
	for _, c := range r.View.Categories {
		records = append(records, []string{
			c.Name,
			c.Budget.String(),
			c.Spent.String(),
			c.Remaining.String(),
			strconv.FormatFloat(c.PercentUsed, 'f', 2, 64),
			string(c.Status),
		})
	}
	records = append(records,
		[]string{"合计", r.View.Totals.AllocatedSum.String(), r.View.Totals.SpentSum.String(), r.View.Totals.Remaining.String()},
		[]string{},
		transactionHeaders,
	)
	for _, t := range r.Transactions {
		records = append(records, []string{
			strconv.FormatUint(uint64(t.ID), 10),
			t.Date.Format("2006-01-02 15:04:05"),
			t.CategoryName,
			t.Amount.String(),
			string(t.PaymentMethod),
			t.Description,
		})
	}

	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("生成 CSV 失败: %w", err)
	}
	return nil
}

// Workbook 生成两张工作表的 Excel：预算、交易明细
func (r *MonthlyReport) Workbook() (*excelize.File, error) {
	f := excelize.NewFile()

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	overStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Color: "C00000", Bold: true},
		Border: border,
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	const budgetSheet = "预算"
	if err := f.SetSheetName("Sheet1", budgetSheet); err != nil {
		f.Close()
		return nil, err
	}
	writeHeader(f, budgetSheet, categoryHeaders, headerStyle)
	f.SetColWidth(budgetSheet, "A", "A", 20)
	f.SetColWidth(budgetSheet, "B", "F", 14)
	for i, c := range r.View.Categories {
		row := i + 2
		values := []interface{}{c.Name, money(c.Budget), money(c.Spent), money(c.Remaining), c.PercentUsed, string(c.Status)}
		if err := f.SetSheetRow(budgetSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			f.Close()
			return nil, err
		}
		if c.Status == models.StatusOverBudget {
			f.SetCellStyle(budgetSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), overStyle)
		}
	}
	totalRow := len(r.View.Categories) + 2
	totals := []interface{}{"合计", money(r.View.Totals.AllocatedSum), money(r.View.Totals.SpentSum), money(r.View.Totals.Remaining)}
	f.SetSheetRow(budgetSheet, fmt.Sprintf("A%d", totalRow), &totals)
	f.SetCellStyle(budgetSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("F%d", totalRow), summaryStyle)

	const txnSheet = "交易明细"
	if _, err := f.NewSheet(txnSheet); err != nil {
		f.Close()
		return nil, err
	}
	writeHeader(f, txnSheet, transactionHeaders, headerStyle)
	f.SetColWidth(txnSheet, "B", "B", 20)
	f.SetColWidth(txnSheet, "C", "C", 16)
	f.SetColWidth(txnSheet, "F", "F", 30)
	var total models.Money
	for i, t := range r.Transactions {
		row := i + 2
		values := []interface{}{t.ID, t.Date.Format("2006-01-02 15:04:05"), t.CategoryName, money(t.Amount), string(t.PaymentMethod), t.Description}
		if err := f.SetSheetRow(txnSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			f.Close()
			return nil, err
		}
		total = total.Add(t.Amount)
	}
	summaryRow := len(r.Transactions) + 2
	f.SetCellValue(txnSheet, fmt.Sprintf("A%d", summaryRow), "合计")
	f.SetCellValue(txnSheet, fmt.Sprintf("D%d", summaryRow), money(total))
	f.SetCellValue(txnSheet, fmt.Sprintf("E%d", summaryRow), fmt.Sprintf("共 %d 条记录", len(r.Transactions)))
	f.SetCellStyle(txnSheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("F%d", summaryRow), summaryStyle)

	return f, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

// money 转为 Excel 数值单元格
func money(m models.Money) float64 {
	return m.Decimal().InexactFloat64()
}
