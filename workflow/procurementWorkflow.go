package workflow

import (
	"context"
	"fmt"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/models"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateProcurement is the contract-signing posting: it validates the input,
// then inside one transaction locks the funding budget, runs the allocation
// guard per item category and records one spending transaction per item
// through the ledger. Either the whole contract posts or nothing does.
func CreateProcurement(ctx context.Context, input *models.NewProcurement) (*models.Procurement, error) {
	if err := input.Validate(ctx); err != nil {
		return nil, err
	}

	var procurement *models.Procurement
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		procurement = &models.Procurement{
			Number:           input.Number,
			VendorId:         input.VendorId,
			PlenaryMeetingId: input.PlenaryMeetingId,
			BudgetId:         input.BudgetId,
			ContractDate:     input.ContractDate,
			Status:           models.ProcurementStatusContracted,
			TotalAmount:      input.TotalAmount(),
			Notes:            input.Notes,
		}
		if err := tx.Create(procurement).Error; err != nil {
			return utils.TranslateDBError(err)
		}

		var budget *models.AnnualBudget
		if input.BudgetId != 0 {
			if err := AcquireBudgetPostingLock(tx, input.BudgetId); err != nil {
				return err
			}
			defer ReleaseBudgetPostingLock(tx, input.BudgetId)

			var err error
			budget, err = models.GetAnnualBudgetForUpdate(tx, input.BudgetId)
			if err != nil {
				return err
			}
			if err := budget.CheckCanSpend(procurement.TotalAmount); err != nil {
				return err
			}
		}

		for _, itemInput := range input.Items {
			catalogItem, err := models.GetFishingItem(ctx, itemInput.ItemId)
			if err != nil {
				return err
			}

			item := models.ProcurementItem{
				ProcurementId:  procurement.ID,
				ItemId:         itemInput.ItemId,
				Quantity:       itemInput.Quantity,
				UnitPrice:      itemInput.UnitPrice,
				TotalPrice:     itemInput.UnitPrice.Mul(decimal.NewFromInt(int64(itemInput.Quantity))),
				DeliveryStatus: models.DeliveryStatusPending,
				ProcessStatus:  models.ProcessStatusPending,
			}
			if err := tx.Create(&item).Error; err != nil {
				return utils.TranslateDBError(err)
			}
			procurement.Items = append(procurement.Items, item)

			if budget == nil {
				continue
			}

			// Category guard reads under the same lock that the spending
			// transaction writes; no window between check and commit.
			allocation, err := models.GetBudgetAllocationByItemTypeForUpdate(tx, budget.ID, catalogItem.ItemTypeId)
			if err != nil {
				return err
			}
			if err := allocation.CheckCanSpend(budget.Year, item.TotalPrice); err != nil {
				return err
			}

			if err := models.ApplyBudgetTransaction(tx, ctx, &models.BudgetTransaction{
				BudgetId:          budget.ID,
				AllocationId:      allocation.ID,
				ProcurementItemId: item.ID,
				Type:              models.BudgetTransactionTypeSpending,
				Amount:            item.TotalPrice,
				Description:       fmt.Sprintf("contract %s item %d", procurement.Number, item.ID),
			}); err != nil {
				return err
			}
			// Keep the in-memory guard state current for the next item.
			allocation.UsedAmount = allocation.UsedAmount.Add(item.TotalPrice)
			budget.UsedBudget = budget.UsedBudget.Add(item.TotalPrice)
		}

		return models.AppendHistory(tx, ctx, "Create", "Procurement", procurement.ID,
			fmt.Sprintf("Procurement %s contracted for %s.", procurement.Number, procurement.TotalAmount))
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return procurement, nil
}

// CancelProcurement reverses every spending transaction of the contract so
// the budget aggregates unwind symmetrically, then marks the contract
// cancelled. Refused once any item has non-cancelled shipments.
func CancelProcurement(ctx context.Context, id int) (*models.Procurement, error) {
	var procurement *models.Procurement
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Procurement
		if err := tx.Preload("Items").First(&p, id).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		procurement = &p

		if p.Status == models.ProcurementStatusCancelled {
			return utils.NewValidationError("status", "procurement is already cancelled")
		}
		if p.Status == models.ProcurementStatusCompleted {
			return utils.NewValidationError("status", "completed procurement cannot be cancelled")
		}

		for _, item := range p.Items {
			shipped, err := models.ActiveShippedQuantity(tx, item.ID)
			if err != nil {
				return err
			}
			if shipped > 0 {
				return utils.NewValidationError("items",
					fmt.Sprintf("item %d has active shipments and blocks cancellation", item.ID))
			}
		}

		if p.BudgetId != 0 {
			if err := AcquireBudgetPostingLock(tx, p.BudgetId); err != nil {
				return err
			}
			defer ReleaseBudgetPostingLock(tx, p.BudgetId)

			if _, err := models.GetAnnualBudgetForUpdate(tx, p.BudgetId); err != nil {
				return err
			}
			for _, item := range p.Items {
				var transactions []*models.BudgetTransaction
				if err := tx.Where("procurement_item_id = ? AND type = ?",
					item.ID, models.BudgetTransactionTypeSpending).
					Find(&transactions).Error; err != nil {
					return err
				}
				for _, txn := range transactions {
					if err := models.ReverseBudgetTransaction(tx, ctx, txn); err != nil {
						return err
					}
				}
			}
		}

		if err := tx.Model(&models.Procurement{}).Where("id = ?", id).
			Update("status", models.ProcurementStatusCancelled).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		procurement.Status = models.ProcurementStatusCancelled

		return models.AppendHistory(tx, ctx, "Cancel", "Procurement", id,
			fmt.Sprintf("Procurement %s cancelled; spending reversed.", p.Number))
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return procurement, nil
}

// MarkProcurementInProgress is called when the first production update or
// shipment lands for a contracted procurement.
func markProcurementInProgress(tx *gorm.DB, procurementId int) error {
	return tx.Model(&models.Procurement{}).
		Where("id = ? AND status = ?", procurementId, models.ProcurementStatusContracted).
		Update("status", models.ProcurementStatusInProgress).Error
}
