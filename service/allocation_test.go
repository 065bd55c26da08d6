package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"budget/events"
	"budget/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationSave_PoolFromOpeningBalanceAndIncome(t *testing.T) {
	db, svc, recorder, _ := newTestServices(t)
	account, caller := seedAccount(t, db, models.MoneyFromMajor(5000), models.AccountPersonal)
	ctx := context.Background()

	income := models.MoneyFromMajor(10000)
	view, created, err := svc.Allocations.Save(ctx, caller, SaveAllocationInput{
		AccountID:      account.ID,
		Period:         march2025,
		Income:         income,
		TotalAllocated: Pool(account.OpeningBalance, income),
		Categories:     []CategoryBudget{budget("Rent", 8000), budget("Food", 4000)},
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.MoneyFromMajor(15000), view.Allocation.TotalAllocated)
	assert.Equal(t, models.MoneyFromMajor(12000), view.Totals.AllocatedSum)
	assert.Equal(t, models.MoneyFromMajor(3000), view.Totals.Remaining)
	require.Len(t, view.Categories, 2)
	assert.Equal(t, "Food", view.Categories[0].Name)
	assert.Equal(t, "Rent", view.Categories[1].Name)
	assert.Equal(t, []string{events.AllocationSaved}, recorder.Types())

	_, _, err = svc.Allocations.Save(ctx, caller, SaveAllocationInput{
		AccountID:      account.ID,
		Period:         march2025,
		Income:         income,
		TotalAllocated: Pool(account.OpeningBalance, income),
		Categories:     []CategoryBudget{budget("Rent", 8000), budget("Food", 4000), budget("Fuel", 4000)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "allocations exceed available funds")

	// 被拒绝的提交不改变任何状态
	got, err := svc.Allocations.Get(ctx, caller, account.ID, march2025)
	require.NoError(t, err)
	assert.Len(t, got.Categories, 2)
	assert.Equal(t, models.MoneyFromMajor(12000), got.Totals.AllocatedSum)

	names, err := svc.Categories.List(ctx, caller, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Rent"}, names)
	assert.Len(t, recorder.Types(), 1)
}

func TestAllocationSave_SecondSubmissionReplacesPeriod(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountPersonal)

	seedAllocation(t, svc, caller, march2025, budget("Rent", 800), budget("Food", 400))
	view, created, err := svc.Allocations.Save(context.Background(), caller, SaveAllocationInput{
		AccountID:      caller.AccountID,
		Period:         march2025,
		TotalAllocated: models.MoneyFromMajor(1000),
		Categories:     []CategoryBudget{budget("Travel", 300), budget("Books", 100)},
	})
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&models.MonthlyAllocation{}).
		Where("account_id = ? AND month = ? AND year = ?", caller.AccountID, 3, 2025).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.Len(t, view.Categories, 2)
	assert.Equal(t, "Books", view.Categories[0].Name)
	assert.Equal(t, "Travel", view.Categories[1].Name)
	assert.Equal(t, models.MoneyFromMajor(1000), view.Allocation.TotalAllocated)

	var rows int64
	require.NoError(t, db.Model(&models.AllocationCategory{}).Count(&rows).Error)
	assert.Equal(t, int64(2), rows)
}

func TestAllocationSave_MatchedCategoryKeepsSpent(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountPersonal)
	ctx := context.Background()

	view := seedAllocation(t, svc, caller, march2025, budget("Food", 400), budget("Rent", 800))
	food := findCategory(t, view, "Food")
	_, err := svc.Transactions.Add(ctx, caller, AddTransactionInput{
		AllocationCategoryID: food.ID,
		Amount:               models.MoneyFromMajor(50),
		PaymentMethod:        "CASH",
	})
	require.NoError(t, err)

	updated, created, err := svc.Allocations.Save(ctx, caller, SaveAllocationInput{
		AccountID:      caller.AccountID,
		Period:         march2025,
		TotalAllocated: models.MoneyFromMajor(1500),
		Categories:     []CategoryBudget{budget("  food ", 600), budget("Rent", 800)},
	})
	require.NoError(t, err)
	assert.False(t, created)

	got := findCategory(t, updated, "food")
	assert.Equal(t, food.ID, got.ID)
	assert.Equal(t, models.MoneyFromMajor(600), got.Budget)
	assert.Equal(t, models.MoneyFromMajor(50), got.Spent)
}

func TestAllocationSave_RejectsRemovingCategoryWithTransactions(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountPersonal)
	ctx := context.Background()

	view := seedAllocation(t, svc, caller, march2025, budget("Food", 400), budget("Rent", 800))
	food := findCategory(t, view, "Food")
	_, err := svc.Transactions.Add(ctx, caller, AddTransactionInput{
		AllocationCategoryID: food.ID,
		Amount:               models.MoneyFromMajor(10),
		PaymentMethod:        "CASH",
	})
	require.NoError(t, err)

	_, _, err = svc.Allocations.Save(ctx, caller, SaveAllocationInput{
		AccountID:      caller.AccountID,
		Period:         march2025,
		TotalAllocated: models.MoneyFromMajor(800),
		Categories:     []CategoryBudget{budget("Rent", 800)},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "Food")

	got, err := svc.Allocations.Get(ctx, caller, caller.AccountID, march2025)
	require.NoError(t, err)
	assert.Len(t, got.Categories, 2)
	assert.Equal(t, models.MoneyFromMajor(1200), got.Allocation.TotalAllocated)
}

func TestAllocationSave_DropsUnusedCategory(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountPersonal)

	seedAllocation(t, svc, caller, march2025, budget("Food", 400), budget("Rent", 800))
	view := seedAllocation(t, svc, caller, march2025, budget("Rent", 900))
	require.Len(t, view.Categories, 1)
	assert.Equal(t, "Rent", view.Categories[0].Name)

	// 类别库仍保留 Food，供其他月份复用
	names, err := svc.Categories.List(context.Background(), caller, caller.AccountID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Food", "Rent"}, names)
}

func TestAllocationSave_Validation(t *testing.T) {
	db, svc, recorder, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountPersonal)

	tests := []struct {
		name string
		in   SaveAllocationInput
	}{
		{
			name: "无类别",
			in:   SaveAllocationInput{Period: march2025, TotalAllocated: 100},
		},
		{
			name: "预算为0",
			in:   SaveAllocationInput{Period: march2025, TotalAllocated: 100, Categories: []CategoryBudget{{Name: "Food"}}},
		},
		{
			name: "名称为空",
			in:   SaveAllocationInput{Period: march2025, TotalAllocated: 100, Categories: []CategoryBudget{{Name: "   ", Budget: 10}}},
		},
		{
			name: "名称重复（忽略大小写）",
			in: SaveAllocationInput{Period: march2025, TotalAllocated: 100, Categories: []CategoryBudget{
				{Name: "Food", Budget: 10}, {Name: "FOOD", Budget: 10},
			}},
		},
		{
			name: "月份非法",
			in:   SaveAllocationInput{Period: models.Period{Month: 13, Year: 2025}, TotalAllocated: 100, Categories: []CategoryBudget{{Name: "Food", Budget: 10}}},
		},
		{
			name: "可分配资金为负",
			in:   SaveAllocationInput{Period: march2025, TotalAllocated: -1, Categories: []CategoryBudget{{Name: "Food", Budget: 10}}},
		},
		{
			name: "超出资金池",
			in:   SaveAllocationInput{Period: march2025, TotalAllocated: 10, Categories: []CategoryBudget{{Name: "Food", Budget: 11}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.AccountID = caller.AccountID
			_, _, err := svc.Allocations.Save(context.Background(), caller, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.MonthlyAllocation{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, recorder.Types())
}

func TestAllocationSave_UsesExistingLedgerEntry(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountPersonal)
	ctx := context.Background()

	cat, created, err := svc.Categories.Save(ctx, caller, caller.AccountID, "Groceries")
	require.NoError(t, err)
	require.True(t, created)

	view := seedAllocation(t, svc, caller, march2025, budget("groceries", 300))
	assert.Equal(t, cat.ID, view.Categories[0].CategoryID)

	names, err := svc.Categories.List(ctx, caller, caller.AccountID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Groceries"}, names)
}

func TestAllocationGet(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountPersonal)
	_, other := seedAccount(t, db, 0, models.AccountPersonal)
	ctx := context.Background()

	_, err := svc.Allocations.Get(ctx, caller, caller.AccountID, march2025)
	assert.True(t, errors.Is(err, ErrNotFound))

	seedAllocation(t, svc, caller, march2025, budget("Food", 100))

	_, err = svc.Allocations.Get(ctx, other, caller.AccountID, march2025)
	assert.True(t, errors.Is(err, ErrNotAuthorized))

	_, err = svc.Allocations.Get(ctx, caller, caller.AccountID, models.Period{Month: 0, Year: 2025})
	assert.True(t, errors.Is(err, ErrValidation))

	view, err := svc.Allocations.Get(ctx, caller, caller.AccountID, march2025)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Allocation.Month)
	assert.Equal(t, models.StatusUnderBudget, view.Categories[0].Status)
}

func TestAllocationSave_ForeignAccount(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	owner, _ := seedAccount(t, db, 0, models.AccountPersonal)
	_, other := seedAccount(t, db, 0, models.AccountPersonal)

	_, _, err := svc.Allocations.Save(context.Background(), other, SaveAllocationInput{
		AccountID:      owner.ID,
		Period:         march2025,
		TotalAllocated: 100,
		Categories:     []CategoryBudget{{Name: "Food", Budget: 100}},
	})
	assert.True(t, errors.Is(err, ErrNotAuthorized))
}

func TestAllocationSave_ConcurrentSamePeriod(t *testing.T) {
	db, svc, _, _ := newTestServices(t)
	_, caller := seedAccount(t, db, 0, models.AccountBusiness)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.Allocations.Save(context.Background(), caller, SaveAllocationInput{
				AccountID:      caller.AccountID,
				Period:         march2025,
				TotalAllocated: models.MoneyFromMajor(1000),
				Categories:     []CategoryBudget{budget("Food", int64(100+i)), budget("Rent", 500)},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var allocations, cats int64
	require.NoError(t, db.Model(&models.MonthlyAllocation{}).Count(&allocations).Error)
	require.NoError(t, db.Model(&models.AllocationCategory{}).Count(&cats).Error)
	assert.Equal(t, int64(1), allocations)
	assert.Equal(t, int64(2), cats)
	assert.Zero(t, svc.Allocations.locks.size())
}
