package models

import (
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcurementItem is one contracted line: a quantity of one catalog item at a
// unit price. DeliveryStatus and ProcessStatus are cached pointers to the
// shipment reconciliation state and the latest production entry; both are
// only moved inside the transaction that writes the underlying rows.
type ProcurementItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ProcurementId  int             `gorm:"index;not null" json:"procurement_id"`
	ItemId         int             `gorm:"index;not null" json:"item_id" binding:"required"`
	Quantity       int             `gorm:"not null" json:"quantity" binding:"required"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_price"`
	DeliveryStatus DeliveryStatus  `gorm:"type:enum('Pending','Partially Shipped','Shipped','Delivered');not null;default:'Pending'" json:"delivery_status"`
	ProcessStatus  ProcessStatus   `gorm:"type:enum('Pending','Purchase','Production','Completed');not null;default:'Pending'" json:"process_status"`
}

type NewProcurementItem struct {
	ItemId    int             `json:"item_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// GetProcurementItemForUpdate locks the item row; every shipment-quantity or
// production-status mutation goes through this first.
func GetProcurementItemForUpdate(tx *gorm.DB, id int) (*ProcurementItem, error) {
	var item ProcurementItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, id).Error; err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return &item, nil
}

// GetProcurementItemsForUpdate bulk-locks the given items in a stable order
// so two shipments touching the same items cannot deadlock each other.
func GetProcurementItemsForUpdate(tx *gorm.DB, ids []int) ([]*ProcurementItem, error) {
	var items []*ProcurementItem
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", utils.UniqueSlice(ids)).
		Order("id").
		Find(&items).Error; err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return items, nil
}

// ActiveShippedQuantity sums the item's shipment lines across all
// non-cancelled shipments. Run inside the item-locking transaction so the
// sum cannot move under the caller.
func ActiveShippedQuantity(tx *gorm.DB, procurementItemId int) (int, error) {
	var total int
	err := tx.Model(&ShipmentItem{}).
		Joins("JOIN shipments ON shipments.id = shipment_items.shipment_id").
		Where("shipment_items.procurement_item_id = ?", procurementItemId).
		Where("shipments.status != ?", ShipmentStatusCancelled).
		Select("COALESCE(SUM(shipment_items.quantity), 0)").
		Scan(&total).Error
	return total, err
}

// DeliveredQuantity sums shipment lines of shipments that reached Delivered
// or Received.
func DeliveredQuantity(tx *gorm.DB, procurementItemId int) (int, error) {
	var total int
	err := tx.Model(&ShipmentItem{}).
		Joins("JOIN shipments ON shipments.id = shipment_items.shipment_id").
		Where("shipment_items.procurement_item_id = ?", procurementItemId).
		Where("shipments.status IN ?", []ShipmentStatus{ShipmentStatusDelivered, ShipmentStatusReceived}).
		Select("COALESCE(SUM(shipment_items.quantity), 0)").
		Scan(&total).Error
	return total, err
}

// NextDeliveryStatus derives the cached delivery state from the reconciled
// quantities. Pure so the derivation is testable without a database.
func NextDeliveryStatus(quantity, activeShipped, delivered int) DeliveryStatus {
	switch {
	case delivered >= quantity && quantity > 0:
		return DeliveryStatusDelivered
	case activeShipped >= quantity && quantity > 0:
		return DeliveryStatusShipped
	case activeShipped > 0:
		return DeliveryStatusPartiallyShipped
	default:
		return DeliveryStatusPending
	}
}

// RecomputeDeliveryStatus refreshes the cached delivery state from the
// shipment rows. Caller holds the item lock.
func RecomputeDeliveryStatus(tx *gorm.DB, item *ProcurementItem) error {
	activeShipped, err := ActiveShippedQuantity(tx, item.ID)
	if err != nil {
		return err
	}
	delivered, err := DeliveredQuantity(tx, item.ID)
	if err != nil {
		return err
	}
	status := NextDeliveryStatus(item.Quantity, activeShipped, delivered)
	if status == item.DeliveryStatus {
		return nil
	}
	item.DeliveryStatus = status
	return tx.Model(&ProcurementItem{}).Where("id = ?", item.ID).
		Update("delivery_status", status).Error
}
