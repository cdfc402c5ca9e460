package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
)

type Area struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Province  string    `gorm:"size:255" json:"province"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewArea struct {
	Name     string `json:"name" binding:"required"`
	Province string `json:"province"`
}

func CreateArea(ctx context.Context, input *NewArea) (*Area, error) {
	area := Area{
		Name:     input.Name,
		Province: input.Province,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&area).Error; err != nil {
		return nil, err
	}
	return &area, nil
}

func GetAreas(ctx context.Context) ([]*Area, error) {
	return utils.FetchAllModels[Area](ctx)
}
