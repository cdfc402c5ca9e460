package models

import (
	"context"
	"errors"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
	"gorm.io/gorm"
)

// ProductionStatusEntry is one append-only progress row for a procurement
// item. History is never mutated or deleted; the item's cached ProcessStatus
// points at the newest entry.
type ProductionStatusEntry struct {
	ID                int           `gorm:"primary_key" json:"id"`
	ProcurementItemId int           `gorm:"index;not null" json:"procurement_item_id"`
	Status            ProcessStatus `gorm:"type:enum('Pending','Purchase','Production','Completed');not null" json:"status"`
	Stage             string        `gorm:"size:255" json:"stage"`
	Percentage        int           `gorm:"not null;default:0" json:"percentage"`
	StartDate         *time.Time    `gorm:"default:null" json:"start_date"`
	EndDate           *time.Time    `gorm:"default:null" json:"end_date"`
	Notes             string        `gorm:"type:text" json:"notes"`
	UserId            int           `gorm:"index" json:"user_id"`
	UserName          string        `gorm:"size:100" json:"user_name"`
	CreatedAt         time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

type NewProductionStatus struct {
	Status     ProcessStatus `json:"status" binding:"required"`
	Stage      string        `json:"stage"`
	Percentage int           `json:"percentage"`
	StartDate  *time.Time    `json:"start_date"`
	EndDate    *time.Time    `json:"end_date"`
	Notes      string        `json:"notes"`
}

// ValidatePercentageProgress rejects any regression: production progress
// cannot un-happen. Equal values are fine (status-only updates).
func ValidatePercentageProgress(itemId, current, requested int) error {
	if requested < 0 || requested > 100 {
		return utils.NewValidationError("percentage", "must be between 0 and 100")
	}
	if requested < current {
		return &utils.PercentageRegressionError{
			ProcurementItemId: itemId,
			Current:           current,
			Requested:         requested,
		}
	}
	return nil
}

// ValidateProcessTypeStatus rejects pushing a purchase-type catalog item
// through the production sub-flow.
func ValidateProcessTypeStatus(itemId int, processType ProcessType, status ProcessStatus) error {
	if !status.Valid() {
		return utils.NewValidationError("status", "unknown process status")
	}
	if processType == ProcessTypePurchase && status == ProcessStatusProduction {
		return &utils.InvalidProcessTypeError{
			ProcurementItemId: itemId,
			ProcessType:       string(processType),
		}
	}
	return nil
}

// LatestProductionEntry returns the newest entry for the item, or nil when
// no progress was recorded yet.
func LatestProductionEntry(tx *gorm.DB, procurementItemId int) (*ProductionStatusEntry, error) {
	var entry ProductionStatusEntry
	err := tx.Where("procurement_item_id = ?", procurementItemId).
		Order("id DESC").First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func GetProductionHistory(ctx context.Context, procurementItemId int) ([]*ProductionStatusEntry, error) {
	var entries []*ProductionStatusEntry
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("procurement_item_id = ?", procurementItemId).
		Order("id").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
