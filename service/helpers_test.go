package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"budget/database"
	"budget/events"
	"budget/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var march2025 = models.Period{Month: 3, Year: 2025}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, opening models.Money, accountType models.AccountType) (models.Account, Caller) {
	t.Helper()
	account := models.Account{
		Name:           "测试账户",
		Type:           accountType,
		OpeningBalance: opening,
		Currency:       "USD",
	}
	require.NoError(t, db.Create(&account).Error)
	user := models.User{
		AccountID: account.ID,
		Username:  fmt.Sprintf("owner%d", account.ID),
		Password:  "x",
		Email:     fmt.Sprintf("owner%d@example.com", account.ID),
		Role:      models.UserRoleOwner,
		Status:    models.UserStatusActive,
	}
	require.NoError(t, db.Omit("Account").Create(&user).Error)
	return account, Caller{UserID: user.ID, AccountID: account.ID}
}

func seedAllocation(t *testing.T, svc *Services, caller Caller, period models.Period, cats ...CategoryBudget) *models.AllocationView {
	t.Helper()
	var total models.Money
	for _, c := range cats {
		total += c.Budget
	}
	view, _, err := svc.Allocations.Save(context.Background(), caller, SaveAllocationInput{
		AccountID:      caller.AccountID,
		Period:         period,
		Income:         total,
		TotalAllocated: total,
		Categories:     cats,
	})
	require.NoError(t, err)
	return view
}

func findCategory(t *testing.T, view *models.AllocationView, name string) models.CategoryView {
	t.Helper()
	for _, c := range view.Categories {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not found in %+v", name, view.Categories)
	return models.CategoryView{}
}

func budget(name string, major int64) CategoryBudget {
	return CategoryBudget{Name: name, Budget: models.MoneyFromMajor(major)}
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []models.CategoryView
}

func (n *recordingNotifier) NotifyOverspend(_ context.Context, _ uint, _ models.Period, c models.CategoryView) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func newTestServices(t *testing.T) (*gorm.DB, *Services, *events.Recorder, *recordingNotifier) {
	t.Helper()
	db := newTestDB(t)
	recorder := &events.Recorder{}
	notifier := &recordingNotifier{}
	return db, New(db, recorder, notifier), recorder, notifier
}
