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

// Shipment is a vendor-scoped delivery batch. Its status only moves forward
// (see ValidateShipmentTransition); every transition and every pure location
// ping appends a ShipmentStatusLog row, so the log is the full tracking
// history while the status column is the compact current state.
type Shipment struct {
	ID          int                 `gorm:"primary_key" json:"id"`
	Number      string              `gorm:"size:100;uniqueIndex;not null" json:"number"`
	VendorId    int                 `gorm:"index;not null" json:"vendor_id"`
	Status      ShipmentStatus      `gorm:"type:enum('Pending','Prepared','Shipped','Delivered','Received','Returned','Cancelled');not null;default:'Pending'" json:"status"`
	Carrier     string              `gorm:"size:255" json:"carrier"`
	ShippedAt   *time.Time          `gorm:"default:null" json:"shipped_at"`
	DeliveredAt *time.Time          `gorm:"default:null" json:"delivered_at"`
	ReceivedAt  *time.Time          `gorm:"default:null" json:"received_at"`
	Notes       string              `gorm:"type:text" json:"notes"`
	Items       []ShipmentItem      `gorm:"foreignKey:ShipmentId" json:"items"`
	StatusLogs  []ShipmentStatusLog `gorm:"foreignKey:ShipmentId" json:"status_logs"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// ShipmentItem ties a quantity of one procurement item to a shipment. The
// engine guarantees that per procurement item the sum over non-cancelled
// shipments never exceeds the contracted quantity.
type ShipmentItem struct {
	ID                int `gorm:"primary_key" json:"id"`
	ShipmentId        int `gorm:"index;not null" json:"shipment_id"`
	ProcurementItemId int `gorm:"index;not null" json:"procurement_item_id" binding:"required"`
	Quantity          int `gorm:"not null" json:"quantity" binding:"required"`
}

// ShipmentStatusLog is append-only. A row is written on every transition
// request, including repeated Shipped pings that only carry coordinates.
type ShipmentStatusLog struct {
	ID         int              `gorm:"primary_key" json:"id"`
	ShipmentId int              `gorm:"index;not null" json:"shipment_id"`
	Status     ShipmentStatus   `gorm:"type:enum('Pending','Prepared','Shipped','Delivered','Received','Returned','Cancelled');not null" json:"status"`
	Latitude   *decimal.Decimal `gorm:"type:decimal(10,7);default:null" json:"latitude"`
	Longitude  *decimal.Decimal `gorm:"type:decimal(10,7);default:null" json:"longitude"`
	Notes      string           `gorm:"type:text" json:"notes"`
	UserId     int              `gorm:"index" json:"user_id"`
	UserName   string           `gorm:"size:100" json:"user_name"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

type NewShipment struct {
	Number  string            `json:"number" binding:"required"`
	Carrier string            `json:"carrier"`
	Notes   string            `json:"notes"`
	Items   []NewShipmentItem `json:"items" binding:"required,dive"`
}

type NewShipmentItem struct {
	ProcurementItemId int `json:"procurement_item_id" binding:"required"`
	Quantity          int `json:"quantity" binding:"required"`
}

type NewShipmentStatus struct {
	Status    ShipmentStatus   `json:"status" binding:"required"`
	Latitude  *decimal.Decimal `json:"latitude"`
	Longitude *decimal.Decimal `json:"longitude"`
	Notes     string           `json:"notes"`
}

func GetShipmentForUpdate(tx *gorm.DB, id int) (*Shipment, error) {
	var shipment Shipment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&shipment, id).Error; err != nil {
		return nil, utils.TranslateDBError(err)
	}
	return &shipment, nil
}

// AppendShipmentStatusLog writes one tracking row with the acting user from
// context. Called by the workflow after a successful transition check, never
// from model hooks.
func AppendShipmentStatusLog(tx *gorm.DB, ctx context.Context, shipmentId int, input *NewShipmentStatus) error {
	log := ShipmentStatusLog{
		ShipmentId: shipmentId,
		Status:     input.Status,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
		Notes:      input.Notes,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		log.UserId = userId
	}
	if userName, ok := utils.GetUserNameFromContext(ctx); ok {
		log.UserName = userName
	}
	return tx.Create(&log).Error
}

func GetShipment(ctx context.Context, id int) (*Shipment, error) {
	return utils.FetchModel[Shipment](ctx, id, "Items", "StatusLogs")
}

func GetShipments(ctx context.Context) ([]*Shipment, error) {
	db := config.GetDB()
	var shipments []*Shipment
	dbCtx := db.WithContext(ctx).Preload("Items")
	if role, ok := utils.GetUserRoleFromContext(ctx); ok && role == string(UserRoleVendor) {
		if vendorId, ok := utils.GetVendorIdFromContext(ctx); ok && vendorId != 0 {
			dbCtx = dbCtx.Where("vendor_id = ?", vendorId)
		}
	}
	if err := dbCtx.Order("id DESC").Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

func GetShipmentStatusLogs(ctx context.Context, shipmentId int) ([]*ShipmentStatusLog, error) {
	var logs []*ShipmentStatusLog
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("shipment_id = ?", shipmentId).
		Order("id").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
