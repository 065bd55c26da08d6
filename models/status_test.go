package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySpend(t *testing.T) {
	budget := MoneyFromMajor(1000)
	tests := []struct {
		spent Money
		want  BudgetStatus
	}{
		{0, StatusUnderBudget},
		{MoneyFromMajor(799), StatusUnderBudget},
		{MoneyFromMajor(800), StatusWarning},
		{MoneyFromMajor(1000), StatusWarning},
		{MoneyFromMajor(1001), StatusOverBudget},
		{MoneyFromMajor(1000) + 1, StatusOverBudget},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, ClassifySpend(tt.spent, budget), "spent=%s", tt.spent)
	}

	assert.Equal(t, StatusUnderBudget, ClassifySpend(0, 0))
	assert.Equal(t, StatusOverBudget, ClassifySpend(1, 0))
}

func TestPercentUsed(t *testing.T) {
	assert.Equal(t, 80.0, PercentUsed(MoneyFromMajor(800), MoneyFromMajor(1000)))
	assert.Equal(t, 112.5, PercentUsed(MoneyFromMajor(4500), MoneyFromMajor(4000)))
	assert.Equal(t, 0.0, PercentUsed(MoneyFromMajor(10), 0))
}

func TestParsePaymentMethod(t *testing.T) {
	cases := map[string]PaymentMethod{
		"cash":          PaymentCash,
		"Debit Card":    PaymentDebitCard,
		"credit-card":   PaymentCreditCard,
		"BANK_TRANSFER": PaymentBankTransfer,
		" other ":       PaymentOther,
	}
	for in, want := range cases {
		got, err := ParsePaymentMethod(in)
		require.NoErrorf(t, err, "ParsePaymentMethod(%q)", in)
		assert.Equal(t, want, got)
	}

	_, err := ParsePaymentMethod("bitcoin")
	assert.Error(t, err)
}

func TestBuildAllocationView(t *testing.T) {
	a := MonthlyAllocation{ID: 1, AccountID: 1, Month: 3, Year: 2025, TotalAllocated: MoneyFromMajor(15000)}
	cats := []AllocationCategory{
		{ID: 2, Name: "rent", Budget: MoneyFromMajor(8000), Spent: MoneyFromMajor(8000)},
		{ID: 1, Name: "Food", Budget: MoneyFromMajor(4000), Spent: MoneyFromMajor(4500)},
	}

	v := BuildAllocationView(a, cats)
	require.Len(t, v.Categories, 2)
	assert.Equal(t, "Food", v.Categories[0].Name)
	assert.Equal(t, StatusOverBudget, v.Categories[0].Status)
	assert.Equal(t, MoneyFromMajor(-500), v.Categories[0].Remaining)
	assert.Equal(t, StatusWarning, v.Categories[1].Status)

	assert.Equal(t, MoneyFromMajor(12000), v.Totals.AllocatedSum)
	assert.Equal(t, MoneyFromMajor(3000), v.Totals.Remaining)
	assert.Equal(t, MoneyFromMajor(12500), v.Totals.SpentSum)
	assert.Equal(t, 1, v.Totals.Overspent)
}

func TestAccount_PoolAndParsing(t *testing.T) {
	acc := Account{OpeningBalance: MoneyFromMajor(5000)}
	assert.Equal(t, MoneyFromMajor(15000), acc.Pool(MoneyFromMajor(10000)))

	typ, err := ParseAccountType("business")
	require.NoError(t, err)
	assert.Equal(t, AccountBusiness, typ)
	typ, err = ParseAccountType("")
	require.NoError(t, err)
	assert.Equal(t, AccountPersonal, typ)
	_, err = ParseAccountType("family")
	assert.Error(t, err)

	cur, err := NormalizeCurrency(" inr ")
	require.NoError(t, err)
	assert.Equal(t, "INR", cur)
	_, err = NormalizeCurrency("EURO")
	assert.Error(t, err)

	assert.Equal(t, "eating out", NormalizeCategoryName("  Eating   Out "))
	assert.Equal(t, "Eating Out", CleanCategoryName("  Eating   Out "))
}
