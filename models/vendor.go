package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
)

type Vendor struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Address   string    `gorm:"type:text" json:"address"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Email     string    `gorm:"size:255" json:"email"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendor struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

func CreateVendor(ctx context.Context, input *NewVendor) (*Vendor, error) {
	if err := utils.ValidateUnique[Vendor](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}

	vendor := Vendor{
		Name:     input.Name,
		Address:  input.Address,
		Phone:    input.Phone,
		Email:    input.Email,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func GetVendor(ctx context.Context, id int) (*Vendor, error) {
	return utils.FetchModel[Vendor](ctx, id)
}

func GetVendors(ctx context.Context) ([]*Vendor, error) {
	return utils.FetchAllModels[Vendor](ctx)
}
