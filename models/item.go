package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/shopspring/decimal"
)

// FishingItem is a catalog row for a piece of fishing equipment (boat, net,
// engine, cool box, ...). ProcessType decides whether procurement items of
// this catalog entry go through the production sub-flow.
type FishingItem struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name" binding:"required"`
	ItemTypeId    int             `gorm:"index;not null" json:"item_type_id" binding:"required"`
	ProcessType   ProcessType     `gorm:"type:enum('Purchase','Production');not null;default:'Purchase'" json:"process_type"`
	Unit          string          `gorm:"size:30" json:"unit"`
	StandardPrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"standard_price"`
	Specification string          `gorm:"type:text" json:"specification"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFishingItem struct {
	Name          string          `json:"name" binding:"required"`
	ItemTypeId    int             `json:"item_type_id" binding:"required"`
	ProcessType   ProcessType     `json:"process_type" binding:"required"`
	Unit          string          `json:"unit"`
	StandardPrice decimal.Decimal `json:"standard_price"`
	Specification string          `json:"specification"`
}

func CreateFishingItem(ctx context.Context, input *NewFishingItem) (*FishingItem, error) {
	if input.ProcessType != ProcessTypePurchase && input.ProcessType != ProcessTypeProduction {
		return nil, utils.NewValidationError("process_type", "must be Purchase or Production")
	}
	if err := utils.ValidateResourceId[ItemType](ctx, input.ItemTypeId); err != nil {
		return nil, err
	}

	item := FishingItem{
		Name:          input.Name,
		ItemTypeId:    input.ItemTypeId,
		ProcessType:   input.ProcessType,
		Unit:          input.Unit,
		StandardPrice: input.StandardPrice,
		Specification: input.Specification,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func GetFishingItem(ctx context.Context, id int) (*FishingItem, error) {
	return utils.FetchModel[FishingItem](ctx, id)
}

func GetFishingItems(ctx context.Context) ([]*FishingItem, error) {
	return utils.FetchAllModels[FishingItem](ctx)
}
