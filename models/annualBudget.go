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

// AnnualBudget is the aggregate root of the budget ledger. The Allocated,
// Used and Remaining columns are a cached projection of budget_transactions;
// RemainingBudget = TotalBudget - UsedBudget holds after every committed
// transaction. The reconciliation sweep recomputes the projection from the
// transaction log and reports drift.
type AnnualBudget struct {
	ID              int             `gorm:"primary_key" json:"id"`
	Year            int             `gorm:"uniqueIndex;not null" json:"year" binding:"required"`
	TotalBudget     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_budget"`
	AllocatedBudget decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"allocated_budget"`
	UsedBudget      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"used_budget"`
	RemainingBudget decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"remaining_budget"`
	Description     string          `gorm:"type:text" json:"description"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAnnualBudget struct {
	Year        int             `json:"year" binding:"required"`
	TotalBudget decimal.Decimal `json:"total_budget" binding:"required"`
	Description string          `json:"description"`
}

/* AllocationGuard checks. These are pure so callers can run them against a
row fetched under lock inside the transaction that will write. */

// CheckCanAllocate fails when the proposed allocation would push the
// category ceilings past the total budget.
func (b *AnnualBudget) CheckCanAllocate(amount decimal.Decimal) error {
	if b.AllocatedBudget.Add(amount).GreaterThan(b.TotalBudget) {
		return &utils.BudgetExceededError{
			BudgetYear: b.Year,
			Scope:      "budget",
			Available:  b.TotalBudget.Sub(b.AllocatedBudget),
			Requested:  amount,
		}
	}
	return nil
}

// CheckCanSpend fails when the proposed spending would exceed the total
// budget.
func (b *AnnualBudget) CheckCanSpend(amount decimal.Decimal) error {
	if b.UsedBudget.Add(amount).GreaterThan(b.TotalBudget) {
		return &utils.BudgetExceededError{
			BudgetYear: b.Year,
			Scope:      "budget",
			Available:  b.TotalBudget.Sub(b.UsedBudget),
			Requested:  amount,
		}
	}
	return nil
}

// GetAnnualBudgetForUpdate reads the budget row under a pessimistic lock.
// Must be called inside the transaction that will write; this closes the
// check-then-commit window between guard and ledger application.
func GetAnnualBudgetForUpdate(tx *gorm.DB, id int) (*AnnualBudget, error) {
	var budget AnnualBudget
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&budget, id).Error; err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return &budget, nil
}

func GetAnnualBudgetByYearForUpdate(tx *gorm.DB, year int) (*AnnualBudget, error) {
	var budget AnnualBudget
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).First(&budget).Error; err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return &budget, nil
}

func CreateAnnualBudget(ctx context.Context, input *NewAnnualBudget) (*AnnualBudget, error) {
	if input.TotalBudget.IsNegative() {
		return nil, utils.NewValidationError("total_budget", "must not be negative")
	}
	if err := utils.ValidateUnique[AnnualBudget](ctx, "year", input.Year, 0); err != nil {
		return nil, err
	}

	budget := AnnualBudget{
		Year:            input.Year,
		TotalBudget:     input.TotalBudget,
		AllocatedBudget: decimal.Zero,
		UsedBudget:      decimal.Zero,
		RemainingBudget: input.TotalBudget,
		Description:     input.Description,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&budget).Error; err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return &budget, nil
}

// UpdateAnnualBudgetTotal changes the yearly ceiling. The total can never be
// reduced below what is already used or allocated.
func UpdateAnnualBudgetTotal(ctx context.Context, id int, total decimal.Decimal) (*AnnualBudget, error) {
	var budget *AnnualBudget
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		budget, err = GetAnnualBudgetForUpdate(tx, id)
		if err != nil {
			return err
		}
		if total.LessThan(budget.UsedBudget) {
			return utils.NewValidationError("total_budget", "cannot be reduced below the used budget")
		}
		if total.LessThan(budget.AllocatedBudget) {
			return utils.NewValidationError("total_budget", "cannot be reduced below the allocated budget")
		}
		budget.TotalBudget = total
		budget.RemainingBudget = total.Sub(budget.UsedBudget)
		return tx.Model(&AnnualBudget{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"total_budget":     budget.TotalBudget,
				"remaining_budget": budget.RemainingBudget,
			}).Error
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return budget, nil
}

// DeleteAnnualBudget refuses while any money has been spent against the year.
func DeleteAnnualBudget(ctx context.Context, id int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		budget, err := GetAnnualBudgetForUpdate(tx, id)
		if err != nil {
			return err
		}
		if budget.UsedBudget.GreaterThan(decimal.Zero) {
			return utils.NewValidationError("budget", "cannot delete a budget with spending recorded against it")
		}
		var allocationCount int64
		if err := tx.Model(&BudgetAllocation{}).Where("budget_id = ?", id).Count(&allocationCount).Error; err != nil {
			return err
		}
		if allocationCount > 0 {
			return utils.NewValidationError("budget", "cannot delete a budget that still has category allocations")
		}
		return tx.Delete(&AnnualBudget{}, id).Error
	})
}

func GetAnnualBudget(ctx context.Context, id int) (*AnnualBudget, error) {
	return utils.FetchModel[AnnualBudget](ctx, id)
}

func GetAnnualBudgets(ctx context.Context) ([]*AnnualBudget, error) {
	db := config.GetDB()
	var budgets []*AnnualBudget
	if err := db.WithContext(ctx).Order("year DESC").Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}
