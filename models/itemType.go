package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
)

// ItemType is the budget category axis: one BudgetAllocation per item type
// per year caps spending on that category.
type ItemType struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItemType struct {
	Name string `json:"name" binding:"required"`
}

func CreateItemType(ctx context.Context, input *NewItemType) (*ItemType, error) {
	if err := utils.ValidateUnique[ItemType](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}
	itemType := ItemType{Name: input.Name}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&itemType).Error; err != nil {
		return nil, err
	}
	return &itemType, nil
}

func GetItemTypes(ctx context.Context) ([]*ItemType, error) {
	return utils.FetchAllModels[ItemType](ctx)
}
