package models

import (
	"fmt"
	"strings"
)

// BudgetStatus 分类预算的执行状态，每次读取时根据 spent/budget 计算，不落库
type BudgetStatus string

const (
	StatusUnderBudget BudgetStatus = "UNDER_BUDGET"
	StatusWarning     BudgetStatus = "WARNING"
	StatusOverBudget  BudgetStatus = "OVER_BUDGET"
)

// ClassifySpend 计算预算状态
// spent > budget 为超支；spent >= 80% budget 为预警；其余正常
func ClassifySpend(spent, budget Money) BudgetStatus {
	if spent > budget {
		return StatusOverBudget
	}
	if budget > 0 && int64(spent)*5 >= int64(budget)*4 {
		return StatusWarning
	}
	return StatusUnderBudget
}

// PercentUsed 已用百分比，保留两位小数
func PercentUsed(spent, budget Money) float64 {
	if budget <= 0 {
		return 0
	}
	basisPoints := int64(spent) * 10000 / int64(budget)
	return float64(basisPoints) / 100
}

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentOther        PaymentMethod = "OTHER"
)

// PaymentMethods 全部支付方式
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentCash, PaymentDebitCard, PaymentCreditCard, PaymentBankTransfer, PaymentOther}
}

// ParsePaymentMethod 忽略大小写，空格和连字符视为下划线，如 "Debit Card" -> DEBIT_CARD
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for _, m := range PaymentMethods() {
		if string(m) == normalized {
			return m, nil
		}
	}
	return "", fmt.Errorf("不支持的支付方式: %q", s)
}
