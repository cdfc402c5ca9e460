package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
)

// Cooperative is a fishing cooperative receiving equipment at handover.
type Cooperative struct {
	ID         int       `gorm:"primary_key" json:"id"`
	Name       string    `gorm:"size:255;not null" json:"name" binding:"required"`
	AreaId     int       `gorm:"index;not null" json:"area_id" binding:"required"`
	LeaderName string    `gorm:"size:255" json:"leader_name"`
	MemberQty  int       `gorm:"default:0" json:"member_qty"`
	Address    string    `gorm:"type:text" json:"address"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCooperative struct {
	Name       string `json:"name" binding:"required"`
	AreaId     int    `json:"area_id" binding:"required"`
	LeaderName string `json:"leader_name"`
	MemberQty  int    `json:"member_qty"`
	Address    string `json:"address"`
}

func CreateCooperative(ctx context.Context, input *NewCooperative) (*Cooperative, error) {
	if err := utils.ValidateResourceId[Area](ctx, input.AreaId); err != nil {
		return nil, err
	}

	cooperative := Cooperative{
		Name:       input.Name,
		AreaId:     input.AreaId,
		LeaderName: input.LeaderName,
		MemberQty:  input.MemberQty,
		Address:    input.Address,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&cooperative).Error; err != nil {
		return nil, err
	}
	return &cooperative, nil
}

func GetCooperative(ctx context.Context, id int) (*Cooperative, error) {
	return utils.FetchModel[Cooperative](ctx, id)
}

func GetCooperatives(ctx context.Context) ([]*Cooperative, error) {
	return utils.FetchAllModels[Cooperative](ctx)
}
