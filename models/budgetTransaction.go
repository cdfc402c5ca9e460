package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetTransaction is the durable ledger record. Rows are immutable once
// created; the only way to undo one is ReverseBudgetTransaction, which
// symmetrically unwinds the cached aggregates and deletes the row.
// Allocation rows carry a signed Amount so ceiling reductions reuse the same
// ledger path as increases; Spending rows are always positive.
type BudgetTransaction struct {
	ID                int                   `gorm:"primary_key" json:"id"`
	BudgetId          int                   `gorm:"index;not null" json:"budget_id"`
	AllocationId      int                   `gorm:"index;default:null" json:"allocation_id"`
	ProcurementItemId int                   `gorm:"index;default:null" json:"procurement_item_id"`
	Type              BudgetTransactionType `gorm:"type:enum('Allocation','Spending');not null" json:"type"`
	Amount            decimal.Decimal       `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description       string                `gorm:"size:255" json:"description"`
	UserId            int                   `gorm:"index" json:"user_id"`
	UserName          string                `gorm:"size:100" json:"user_name"`
	CorrelationId     string                `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt         time.Time             `gorm:"autoCreateTime" json:"created_at"`
}

/* BudgetLedger */

// ApplyBudgetTransaction persists the transaction row and moves the cached
// aggregates in the same DB transaction. The caller must already hold the
// annual_budgets row lock (GetAnnualBudgetForUpdate) so concurrent spenders
// against the same year are serialized.
func ApplyBudgetTransaction(tx *gorm.DB, ctx context.Context, txn *BudgetTransaction) error {
	if txn.Amount.IsZero() {
		return utils.NewValidationError("amount", "must not be zero")
	}
	if txn.Type == BudgetTransactionTypeSpending && txn.Amount.IsNegative() {
		return utils.NewValidationError("amount", "spending amount must be positive")
	}

	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		txn.UserId = userId
	}
	if userName, ok := utils.GetUserNameFromContext(ctx); ok {
		txn.UserName = userName
	}
	if txn.CorrelationId == "" {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			txn.CorrelationId = v
		} else {
			txn.CorrelationId = uuid.NewString()
		}
	}

	if err := tx.Create(txn).Error; err != nil {
		return utils.TranslateDBError(err)
	}
	return applyAggregateDelta(tx, txn, txn.Amount)
}

// ReverseBudgetTransaction applies the exact inverse of a committed
// transaction and removes the ledger row. The caller must hold the budget
// row lock.
func ReverseBudgetTransaction(tx *gorm.DB, ctx context.Context, txn *BudgetTransaction) error {
	if err := applyAggregateDelta(tx, txn, txn.Amount.Neg()); err != nil {
		return err
	}
	if err := tx.Delete(&BudgetTransaction{}, txn.ID).Error; err != nil {
		return utils.TranslateDBError(err)
	}
	return nil
}

func applyAggregateDelta(tx *gorm.DB, txn *BudgetTransaction, amount decimal.Decimal) error {
	switch txn.Type {
	case BudgetTransactionTypeAllocation:
		if err := tx.Exec(
			"UPDATE annual_budgets SET allocated_budget = allocated_budget + ? WHERE id = ?",
			amount, txn.BudgetId).Error; err != nil {
			return utils.TranslateDBError(err)
		}
	case BudgetTransactionTypeSpending:
		if err := tx.Exec(
			"UPDATE annual_budgets SET used_budget = used_budget + ?, remaining_budget = remaining_budget - ? WHERE id = ?",
			amount, amount, txn.BudgetId).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		if txn.AllocationId != 0 {
			if err := tx.Exec(
				"UPDATE budget_allocations SET used_amount = used_amount + ? WHERE id = ?",
				amount, txn.AllocationId).Error; err != nil {
				return utils.TranslateDBError(err)
			}
		}
	default:
		return utils.NewValidationError("type", "unknown budget transaction type")
	}
	return nil
}

// BudgetTransactionSums recomputes the aggregate projection from the ledger.
// Used by the reconciliation sweep to detect cache drift.
type BudgetTransactionSums struct {
	AllocatedSum decimal.Decimal
	SpentSum     decimal.Decimal
}

func SumBudgetTransactions(tx *gorm.DB, budgetId int) (*BudgetTransactionSums, error) {
	sums := &BudgetTransactionSums{}
	if err := tx.Model(&BudgetTransaction{}).
		Where("budget_id = ? AND type = ?", budgetId, BudgetTransactionTypeAllocation).
		Select("COALESCE(SUM(amount), 0)").Scan(&sums.AllocatedSum).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&BudgetTransaction{}).
		Where("budget_id = ? AND type = ?", budgetId, BudgetTransactionTypeSpending).
		Select("COALESCE(SUM(amount), 0)").Scan(&sums.SpentSum).Error; err != nil {
		return nil, err
	}
	return sums, nil
}

func SumAllocationSpending(tx *gorm.DB, allocationId int) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.Model(&BudgetTransaction{}).
		Where("allocation_id = ? AND type = ?", allocationId, BudgetTransactionTypeSpending).
		Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error
	return sum, err
}

func GetBudgetTransactions(ctx context.Context, budgetId int) ([]*BudgetTransaction, error) {
	var transactions []*BudgetTransaction
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("budget_id = ?", budgetId).Order("id").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}
