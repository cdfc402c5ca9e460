package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// History is the generic audit row. It is written by explicit AppendHistory
// calls from workflows after a successful state change, never by model
// lifecycle hooks, so the audit trail is testable and the actor always comes
// from the request context.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ActionType    string    `gorm:"size:10;not null" json:"action_type"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceId   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func AppendHistory(tx *gorm.DB, ctx context.Context, actionType, referenceType string, referenceId int, description string) error {
	history := History{
		ActionType:    actionType,
		Description:   description,
		ReferenceId:   referenceId,
		ReferenceType: referenceType,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		history.UserId = userId
	}
	if userName, ok := utils.GetUserNameFromContext(ctx); ok {
		history.UserName = userName
	}
	if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
		history.CorrelationId = v
	} else {
		history.CorrelationId = uuid.NewString()
	}
	return tx.Create(&history).Error
}

func GetHistories(ctx context.Context, referenceType string, referenceId int) ([]*History, error) {
	var histories []*History
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("id").Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}
