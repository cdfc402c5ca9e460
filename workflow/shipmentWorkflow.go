package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/models"
	"github.com/bahariworks/procurement_backend/utils"
	"gorm.io/gorm"
)

// RemainingShippableQuantity is the quantity a new shipment may still carry
// for the item: contracted quantity minus everything on non-cancelled
// shipments. Pure; callers pass sums read under the item lock.
func RemainingShippableQuantity(quantity, activeShipped int) int {
	remaining := quantity - activeShipped
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CreateShipment admits a vendor shipment against the remaining quantities
// of its procurement items. All items are bulk-locked first; admission
// checks (production complete, quantity ceilings) run before any write.
func CreateShipment(ctx context.Context, vendorId int, input *models.NewShipment) (*models.Shipment, error) {
	if len(input.Items) == 0 {
		return nil, utils.NewValidationError("items", "at least one item is required")
	}
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, utils.NewValidationError("quantity", "must be positive")
		}
	}
	if err := utils.ValidateUnique[models.Shipment](ctx, "number", input.Number, 0); err != nil {
		return nil, err
	}

	var shipment *models.Shipment
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		itemIds := make([]int, 0, len(input.Items))
		requested := make(map[int]int, len(input.Items))
		for _, line := range input.Items {
			itemIds = append(itemIds, line.ProcurementItemId)
			requested[line.ProcurementItemId] += line.Quantity
		}

		items, err := models.GetProcurementItemsForUpdate(tx, itemIds)
		if err != nil {
			return err
		}
		if len(items) != len(requested) {
			return utils.ErrorRecordNotFound
		}

		// Admission checks, all before the first write.
		for _, item := range items {
			catalogItem, err := models.GetFishingItem(ctx, item.ItemId)
			if err != nil {
				return err
			}
			if err := checkShippable(item, catalogItem.ProcessType); err != nil {
				return err
			}

			activeShipped, err := models.ActiveShippedQuantity(tx, item.ID)
			if err != nil {
				return err
			}
			remaining := RemainingShippableQuantity(item.Quantity, activeShipped)
			if requested[item.ID] > remaining {
				return &utils.QuantityExceededError{
					ProcurementItemId: item.ID,
					Remaining:         remaining,
					Requested:         requested[item.ID],
				}
			}
		}

		shipment = &models.Shipment{
			Number:   input.Number,
			VendorId: vendorId,
			Status:   models.ShipmentStatusPending,
			Carrier:  input.Carrier,
			Notes:    input.Notes,
		}
		if err := tx.Create(shipment).Error; err != nil {
			return utils.TranslateDBError(err)
		}

		for _, line := range input.Items {
			shipmentItem := models.ShipmentItem{
				ShipmentId:        shipment.ID,
				ProcurementItemId: line.ProcurementItemId,
				Quantity:          line.Quantity,
			}
			if err := tx.Create(&shipmentItem).Error; err != nil {
				return utils.TranslateDBError(err)
			}
			shipment.Items = append(shipment.Items, shipmentItem)
		}

		for _, item := range items {
			if err := models.RecomputeDeliveryStatus(tx, item); err != nil {
				return err
			}
			if err := markProcurementInProgress(tx, item.ProcurementId); err != nil {
				return err
			}
		}

		if err := models.AppendShipmentStatusLog(tx, ctx, shipment.ID, &models.NewShipmentStatus{
			Status: models.ShipmentStatusPending,
			Notes:  "shipment created",
		}); err != nil {
			return err
		}
		return models.AppendHistory(tx, ctx, "Create", "Shipment", shipment.ID,
			fmt.Sprintf("Shipment %s created with %d lines.", shipment.Number, len(shipment.Items)))
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return shipment, nil
}

// UpdateShipmentStatus applies one transition request. The status column only
// moves forward; the log row is appended regardless, which is how pure
// location pings while Shipped are recorded. Reaching Delivered recomputes
// the touched items' delivery state and fires the inspection trigger;
// cancelling releases the reserved quantities.
func UpdateShipmentStatus(ctx context.Context, shipmentId int, input *models.NewShipmentStatus) (*models.Shipment, error) {
	var shipment *models.Shipment
	var deliveredProcurements []int

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		shipment, err = models.GetShipmentForUpdate(tx, shipmentId)
		if err != nil {
			return err
		}

		if err := models.ValidateShipmentTransition(shipment.Status, input.Status); err != nil {
			return err
		}

		statusChanged := shipment.Status != input.Status
		now := time.Now()
		updates := map[string]interface{}{}
		if statusChanged {
			updates["status"] = input.Status
			switch input.Status {
			case models.ShipmentStatusShipped:
				if shipment.ShippedAt == nil {
					updates["shipped_at"] = now
					shipment.ShippedAt = &now
				}
			case models.ShipmentStatusDelivered:
				updates["delivered_at"] = now
				shipment.DeliveredAt = &now
			case models.ShipmentStatusReceived:
				updates["received_at"] = now
				shipment.ReceivedAt = &now
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Shipment{}).Where("id = ?", shipmentId).
				Updates(updates).Error; err != nil {
				return utils.TranslateDBError(err)
			}
			shipment.Status = input.Status
		}

		// The log row is written even when the status column did not move.
		if err := models.AppendShipmentStatusLog(tx, ctx, shipmentId, input); err != nil {
			return err
		}

		if statusChanged &&
			(input.Status == models.ShipmentStatusDelivered ||
				input.Status == models.ShipmentStatusCancelled ||
				input.Status == models.ShipmentStatusReturned) {
			var lines []models.ShipmentItem
			if err := tx.Where("shipment_id = ?", shipmentId).Find(&lines).Error; err != nil {
				return err
			}
			itemIds := make([]int, 0, len(lines))
			for _, line := range lines {
				itemIds = append(itemIds, line.ProcurementItemId)
			}
			items, err := models.GetProcurementItemsForUpdate(tx, itemIds)
			if err != nil {
				return err
			}
			procurementIds := map[int]bool{}
			for _, item := range items {
				if err := models.RecomputeDeliveryStatus(tx, item); err != nil {
					return err
				}
				procurementIds[item.ProcurementId] = true
			}
			if input.Status == models.ShipmentStatusDelivered {
				for procurementId := range procurementIds {
					deliveredProcurements = append(deliveredProcurements, procurementId)
				}
			}
		}

		return models.AppendHistory(tx, ctx, "Update", "Shipment", shipmentId,
			fmt.Sprintf("Shipment status %s logged.", input.Status))
	})
	if err != nil {
		return nil, utils.TranslateDBError(err)
	}

	// Inspection generation runs in its own transaction per procurement:
	// the delivery commit above must not be held hostage by report creation,
	// and the generator is idempotent either way.
	for _, procurementId := range deliveredProcurements {
		if _, err := GenerateInspectionReport(ctx, procurementId); err != nil {
			config.LogError(config.GetLogger(), "workflow", "UpdateShipmentStatus",
				fmt.Sprintf("inspection trigger for procurement %d", procurementId), nil, err)
		}
	}
	return shipment, nil
}
