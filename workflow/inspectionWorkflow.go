package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/models"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const inspectionHandlerName = "inspection-report"

// GenerateInspectionReport creates the inspection checklist for a fully
// delivered procurement. Safe to call repeatedly and concurrently: a
// redis single-flight, a durable idempotency key and a unique index on the
// procurement reference each independently collapse duplicate triggers to
// one report. Returns (nil, nil) when the procurement is not fully
// delivered yet.
func GenerateInspectionReport(ctx context.Context, procurementId int) (*models.InspectionReport, error) {
	// Cross-instance single-flight. Best effort: when redis is not
	// configured the DB-level guards still hold.
	lock, err := config.ObtainLock(ctx, fmt.Sprintf("inspection:%d", procurementId), 30*time.Second)
	if err != nil {
		if err == redislock.ErrNotObtained {
			return nil, utils.ErrorConcurrentModification
		}
		return nil, err
	}
	if lock != nil {
		defer lock.Release(ctx)
	}

	var report *models.InspectionReport
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var procurement models.Procurement
		if err := tx.First(&procurement, procurementId).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		if procurement.Status == models.ProcurementStatusCancelled {
			return utils.NewValidationError("procurement_id", "procurement is cancelled")
		}

		var items []*models.ProcurementItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("procurement_id = ?", procurementId).
			Order("id").Find(&items).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		if len(items) == 0 {
			return utils.NewValidationError("procurement_id", "procurement has no items")
		}

		for _, item := range items {
			delivered, err := models.DeliveredQuantity(tx, item.ID)
			if err != nil {
				return err
			}
			if delivered < item.Quantity {
				// Not ready; the next delivery will trigger again.
				return nil
			}
		}

		skip, err := BeginIdempotency(tx, inspectionHandlerName, fmt.Sprint(procurementId))
		if err != nil {
			return err
		}
		existing, err := models.FindInspectionReportByProcurement(tx, procurementId)
		if err != nil {
			return err
		}
		if skip || existing != nil {
			report = existing
			return nil
		}

		report = &models.InspectionReport{
			Number:        models.GenerateInspectionNumber(time.Now(), procurementId),
			ProcurementId: procurementId,
			Status:        models.InspectionReportStatusPending,
		}
		if err := tx.Create(report).Error; err != nil {
			// A concurrent trigger on another connection won the unique
			// index race; treat as already generated.
			if utils.IsDuplicateKeyError(err) {
				report, err = models.FindInspectionReportByProcurement(tx, procurementId)
				return err
			}
			return utils.TranslateDBError(err)
		}

		for _, item := range items {
			reportItem := models.InspectionReportItem{
				InspectionReportId: report.ID,
				ProcurementItemId:  item.ID,
				ExpectedQuantity:   item.Quantity,
				ActualQuantity:     0,
			}
			if err := tx.Create(&reportItem).Error; err != nil {
				return utils.TranslateDBError(err)
			}
			report.Items = append(report.Items, reportItem)
		}

		if err := MarkIdempotencySucceeded(tx, inspectionHandlerName, fmt.Sprint(procurementId)); err != nil {
			return err
		}
		return models.AppendHistory(tx, ctx, "Create", "InspectionReport", report.ID,
			fmt.Sprintf("Inspection report %s generated.", report.Number))
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return report, nil
}

// CompleteInspectionReport records the inspector's findings and closes the
// loop: the report flips to Completed and the owning procurement to
// Completed in the same transaction.
func CompleteInspectionReport(ctx context.Context, reportId int, result *models.InspectionResult) (*models.InspectionReport, error) {
	var report *models.InspectionReport
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.InspectionReport
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").First(&r, reportId).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		report = &r

		if r.Status == models.InspectionReportStatusCompleted {
			return utils.NewValidationError("status", "inspection report is already completed")
		}

		byItem := make(map[int]models.InspectionResultItem, len(result.Items))
		for _, resultItem := range result.Items {
			byItem[resultItem.ProcurementItemId] = resultItem
		}
		for i := range r.Items {
			resultItem, ok := byItem[r.Items[i].ProcurementItemId]
			if !ok {
				return utils.NewValidationError("items",
					fmt.Sprintf("missing inspection result for item %d", r.Items[i].ProcurementItemId))
			}
			if resultItem.ActualQuantity < 0 {
				return utils.NewValidationError("actual_quantity", "must not be negative")
			}
			if err := tx.Model(&models.InspectionReportItem{}).Where("id = ?", r.Items[i].ID).
				Updates(map[string]interface{}{
					"actual_quantity": resultItem.ActualQuantity,
					"condition":       resultItem.Condition,
					"notes":           resultItem.Notes,
				}).Error; err != nil {
				return utils.TranslateDBError(err)
			}
			r.Items[i].ActualQuantity = resultItem.ActualQuantity
			r.Items[i].Condition = resultItem.Condition
		}

		if err := tx.Model(&models.InspectionReport{}).Where("id = ?", reportId).
			Updates(map[string]interface{}{
				"status":       models.InspectionReportStatusCompleted,
				"inspected_at": result.InspectedAt,
				"notes":        result.Notes,
			}).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		r.Status = models.InspectionReportStatusCompleted
		r.InspectedAt = &result.InspectedAt

		// Report completion is the terminal event of the procurement.
		if err := tx.Model(&models.Procurement{}).Where("id = ?", r.ProcurementId).
			Update("status", models.ProcurementStatusCompleted).Error; err != nil {
			return utils.TranslateDBError(err)
		}

		return models.AppendHistory(tx, ctx, "Update", "InspectionReport", reportId,
			fmt.Sprintf("Inspection report %s completed.", r.Number))
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return report, nil
}
