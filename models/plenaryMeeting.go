package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
)

// PlenaryMeeting records the approval meeting a procurement contract refers to.
type PlenaryMeeting struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Number      string    `gorm:"size:100;not null" json:"number" binding:"required"`
	MeetingDate time.Time `gorm:"not null" json:"meeting_date" binding:"required"`
	Agenda      string    `gorm:"type:text" json:"agenda"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPlenaryMeeting struct {
	Number      string    `json:"number" binding:"required"`
	MeetingDate time.Time `json:"meeting_date" binding:"required"`
	Agenda      string    `json:"agenda"`
}

func CreatePlenaryMeeting(ctx context.Context, input *NewPlenaryMeeting) (*PlenaryMeeting, error) {
	if err := utils.ValidateUnique[PlenaryMeeting](ctx, "number", input.Number, 0); err != nil {
		return nil, err
	}
	meeting := PlenaryMeeting{
		Number:      input.Number,
		MeetingDate: input.MeetingDate,
		Agenda:      input.Agenda,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&meeting).Error; err != nil {
		return nil, err
	}
	return &meeting, nil
}

func GetPlenaryMeetings(ctx context.Context) ([]*PlenaryMeeting, error) {
	return utils.FetchAllModels[PlenaryMeeting](ctx)
}
