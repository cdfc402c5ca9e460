package workflow

import (
	"context"
	"fmt"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/models"
	"github.com/bahariworks/procurement_backend/utils"
	"gorm.io/gorm"
)

// AddProductionStatus appends one progress entry for a procurement item and
// moves its cached ProcessStatus in the same transaction. History is
// append-only; percentage may never regress; purchase-type catalog items are
// rejected from the production sub-flow.
func AddProductionStatus(ctx context.Context, procurementItemId int, input *models.NewProductionStatus) (*models.ProductionStatusEntry, error) {
	var entry *models.ProductionStatusEntry
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := models.GetProcurementItemForUpdate(tx, procurementItemId)
		if err != nil {
			return err
		}
		catalogItem, err := models.GetFishingItem(ctx, item.ItemId)
		if err != nil {
			return err
		}

		if err := models.ValidateProcessTypeStatus(item.ID, catalogItem.ProcessType, input.Status); err != nil {
			return err
		}

		current := 0
		latest, err := models.LatestProductionEntry(tx, item.ID)
		if err != nil {
			return err
		}
		if latest != nil {
			current = latest.Percentage
		}
		if err := models.ValidatePercentageProgress(item.ID, current, input.Percentage); err != nil {
			return err
		}

		entry = &models.ProductionStatusEntry{
			ProcurementItemId: item.ID,
			Status:            input.Status,
			Stage:             input.Stage,
			Percentage:        input.Percentage,
			StartDate:         input.StartDate,
			EndDate:           input.EndDate,
			Notes:             input.Notes,
		}
		if userId, ok := utils.GetUserIdFromContext(ctx); ok {
			entry.UserId = userId
		}
		if userName, ok := utils.GetUserNameFromContext(ctx); ok {
			entry.UserName = userName
		}
		if err := tx.Create(entry).Error; err != nil {
			return utils.TranslateDBError(err)
		}

		// The cached pointer follows the newest entry.
		if item.ProcessStatus != input.Status {
			if err := tx.Model(&models.ProcurementItem{}).Where("id = ?", item.ID).
				Update("process_status", input.Status).Error; err != nil {
				return utils.TranslateDBError(err)
			}
		}

		if err := markProcurementInProgress(tx, item.ProcurementId); err != nil {
			return err
		}

		return models.AppendHistory(tx, ctx, "Update", "ProcurementItem", item.ID,
			fmt.Sprintf("Production status %s at %d%%.", input.Status, input.Percentage))
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return entry, nil
}

// checkShippable rejects items that have not finished production.
// Purchase-type items need no completion signal.
func checkShippable(item *models.ProcurementItem, processType models.ProcessType) error {
	if processType == models.ProcessTypePurchase {
		return nil
	}
	if item.ProcessStatus != models.ProcessStatusCompleted {
		return &utils.ProductionNotCompleteError{
			ProcurementItemId: item.ID,
			CurrentStatus:     string(item.ProcessStatus),
		}
	}
	return nil
}
