package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetAllocation reserves a slice of an annual budget for one item type.
// Amount is the category ceiling; UsedAmount is the cached sum of spending
// transactions tagged to the category.
type BudgetAllocation struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BudgetId   int             `gorm:"uniqueIndex:idx_budget_item_type;not null" json:"budget_id" binding:"required"`
	ItemTypeId int             `gorm:"uniqueIndex:idx_budget_item_type;not null" json:"item_type_id" binding:"required"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	UsedAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"used_amount"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBudgetAllocation struct {
	BudgetId   int             `json:"budget_id" binding:"required"`
	ItemTypeId int             `json:"item_type_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

// CheckCanSpend fails when the proposed spending would break the category
// ceiling.
func (a *BudgetAllocation) CheckCanSpend(year int, amount decimal.Decimal) error {
	if a.UsedAmount.Add(amount).GreaterThan(a.Amount) {
		return &utils.BudgetExceededError{
			BudgetYear: year,
			Scope:      "allocation",
			Available:  a.Amount.Sub(a.UsedAmount),
			Requested:  amount,
		}
	}
	return nil
}

func GetBudgetAllocationForUpdate(tx *gorm.DB, id int) (*BudgetAllocation, error) {
	var allocation BudgetAllocation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&allocation, id).Error; err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return &allocation, nil
}

// GetBudgetAllocationByItemTypeForUpdate resolves the category row for a
// budget/item-type pair under lock. Returns RecordNotFound when the year has
// no allocation for the category.
func GetBudgetAllocationByItemTypeForUpdate(tx *gorm.DB, budgetId, itemTypeId int) (*BudgetAllocation, error) {
	var allocation BudgetAllocation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("budget_id = ? AND item_type_id = ?", budgetId, itemTypeId).
		First(&allocation).Error; err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return &allocation, nil
}

// CreateBudgetAllocation reserves the category amount: guard first, then an
// Allocation transaction through the ledger, all inside one transaction with
// the budget row locked.
func CreateBudgetAllocation(ctx context.Context, input *NewBudgetAllocation) (*BudgetAllocation, error) {
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	if err := utils.ValidateResourceId[ItemType](ctx, input.ItemTypeId); err != nil {
		return nil, err
	}

	var allocation *BudgetAllocation
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err := GetAnnualBudgetForUpdate(tx, input.BudgetId)
		if err != nil {
			return err
		}
		if err := budget.CheckCanAllocate(input.Amount); err != nil {
			return err
		}

		allocation = &BudgetAllocation{
			BudgetId:   input.BudgetId,
			ItemTypeId: input.ItemTypeId,
			Amount:     input.Amount,
			UsedAmount: decimal.Zero,
		}
		if err := tx.Create(allocation).Error; err != nil {
			return utils.TranslateDBError(err)
		}

		return ApplyBudgetTransaction(tx, ctx, &BudgetTransaction{
			BudgetId:     input.BudgetId,
			AllocationId: allocation.ID,
			Type:         BudgetTransactionTypeAllocation,
			Amount:       input.Amount,
			Description:  "category allocation created",
		})
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return allocation, nil
}

// UpdateBudgetAllocationAmount moves the category ceiling. The ceiling can
// never drop below what the category has already spent, and an increase must
// still fit inside the annual total. The delta goes through the ledger as a
// signed Allocation transaction so the audit trail stays complete.
func UpdateBudgetAllocationAmount(ctx context.Context, id int, amount decimal.Decimal) (*BudgetAllocation, error) {
	if amount.IsNegative() {
		return nil, utils.NewValidationError("amount", "must not be negative")
	}

	var allocation *BudgetAllocation
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		allocation, err = GetBudgetAllocationForUpdate(tx, id)
		if err != nil {
			return err
		}
		budget, err := GetAnnualBudgetForUpdate(tx, allocation.BudgetId)
		if err != nil {
			return err
		}

		if amount.LessThan(allocation.UsedAmount) {
			return utils.NewValidationError("amount", "cannot be reduced below the used amount")
		}
		delta := amount.Sub(allocation.Amount)
		if delta.IsZero() {
			return nil
		}
		if delta.GreaterThan(decimal.Zero) {
			if err := budget.CheckCanAllocate(delta); err != nil {
				return err
			}
		}

		if err := tx.Model(&BudgetAllocation{}).Where("id = ?", id).
			Update("amount", amount).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		allocation.Amount = amount

		return ApplyBudgetTransaction(tx, ctx, &BudgetTransaction{
			BudgetId:     allocation.BudgetId,
			AllocationId: allocation.ID,
			Type:         BudgetTransactionTypeAllocation,
			Amount:       delta,
			Description:  "category allocation amount changed",
		})
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return allocation, nil
}

// DeleteBudgetAllocation refuses while the category has spending; otherwise
// it reverses the category's allocation transactions so the annual totals
// unwind symmetrically.
func DeleteBudgetAllocation(ctx context.Context, id int) error {
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocation, err := GetBudgetAllocationForUpdate(tx, id)
		if err != nil {
			return err
		}
		if allocation.UsedAmount.GreaterThan(decimal.Zero) {
			return utils.NewValidationError("allocation", "cannot delete an allocation with spending recorded against it")
		}
		if _, err := GetAnnualBudgetForUpdate(tx, allocation.BudgetId); err != nil {
			return err
		}

		var transactions []*BudgetTransaction
		if err := tx.Where("allocation_id = ? AND type = ?", id, BudgetTransactionTypeAllocation).
			Find(&transactions).Error; err != nil {
			return err
		}
		for _, txn := range transactions {
			if err := ReverseBudgetTransaction(tx, ctx, txn); err != nil {
				return err
			}
		}
		return tx.Delete(&BudgetAllocation{}, id).Error
	})
	return utils.TranslateDBError(err)
}

func GetBudgetAllocations(ctx context.Context, budgetId int) ([]*BudgetAllocation, error) {
	var allocations []*BudgetAllocation
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("budget_id = ?", budgetId).Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}
