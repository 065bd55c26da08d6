package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"budget/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyReport(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountPersonal)
	ctx := context.Background()

	view := seedAllocation(t, svc, caller, march2025, budget("Food", 100), budget("Rent", 500))
	food := findCategory(t, view, "Food")
	addExpense(t, svc, caller, food.ID, models.MoneyFromMajor(120))
	deleted := addExpense(t, svc, caller, food.ID, models.MoneyFromMajor(5))
	_, err := svc.Transactions.Delete(ctx, caller, deleted.Transaction.ID)
	require.NoError(t, err)

	report, err := svc.Reports.Monthly(ctx, caller, march2025)
	require.NoError(t, err)
	require.Len(t, report.Transactions, 1)
	assert.Equal(t, "Food", report.Transactions[0].CategoryName)
	assert.Equal(t, "budget_2025-03", report.Filename())

	t.Run("CSV", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.WriteCSV(&buf))

		content := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
		r := csv.NewReader(strings.NewReader(content))
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		require.NoError(t, err)

		var foodRow, txnRow []string
		for _, rec := range records {
			if len(rec) == 6 && rec[0] == "Food" {
				foodRow = rec
			}
			if len(rec) == 6 && rec[2] == "Food" {
				txnRow = rec
			}
		}
		require.NotNil(t, foodRow)
		assert.Equal(t, []string{"Food", "100.00", "120.00", "-20.00", "120.00", "OVER_BUDGET"}, foodRow)
		require.NotNil(t, txnRow)
		assert.Equal(t, "120.00", txnRow[3])
		assert.Equal(t, "DEBIT_CARD", txnRow[4])
	})

	t.Run("Excel", func(t *testing.T) {
		f, err := report.Workbook()
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, []string{"预算", "交易明细"}, f.GetSheetList())

		name, err := f.GetCellValue("预算", "A2")
		require.NoError(t, err)
		assert.Equal(t, "Food", name)
		status, err := f.GetCellValue("预算", "F2")
		require.NoError(t, err)
		assert.Equal(t, "OVER_BUDGET", status)

		category, err := f.GetCellValue("交易明细", "C2")
		require.NoError(t, err)
		assert.Equal(t, "Food", category)
		total, err := f.GetCellValue("交易明细", "A3")
		require.NoError(t, err)
		assert.Equal(t, "合计", total)
	})
}

func TestMonthlyReport_NoAllocation(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountPersonal)

	_, err := svc.Reports.Monthly(context.Background(), caller, march2025)
	assert.True(t, errors.Is(err, ErrNotFound))
}
