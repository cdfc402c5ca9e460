package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bahariworks/procurement_backend/utils"
	"gorm.io/gorm"
)

// InspectionReport (berita acara) is the checklist document comparing
// expected vs received quantities after delivery. Rows are created only by
// the inspection generator; inspectors later fill in the actuals and mark
// the report completed.
type InspectionReport struct {
	ID            int                    `gorm:"primary_key" json:"id"`
	Number        string                 `gorm:"size:100;uniqueIndex;not null" json:"number"`
	ProcurementId int                    `gorm:"uniqueIndex;not null" json:"procurement_id"`
	ShipmentId    int                    `gorm:"index;default:null" json:"shipment_id"`
	Status        InspectionReportStatus `gorm:"type:enum('Pending','Completed');not null;default:'Pending'" json:"status"`
	InspectedAt   *time.Time             `gorm:"default:null" json:"inspected_at"`
	Notes         string                 `gorm:"type:text" json:"notes"`
	Items         []InspectionReportItem `gorm:"foreignKey:InspectionReportId" json:"items"`
	CreatedAt     time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

type InspectionReportItem struct {
	ID                 int    `gorm:"primary_key" json:"id"`
	InspectionReportId int    `gorm:"index;not null" json:"inspection_report_id"`
	ProcurementItemId  int    `gorm:"index;not null" json:"procurement_item_id"`
	ExpectedQuantity   int    `gorm:"not null" json:"expected_quantity"`
	ActualQuantity     int    `gorm:"not null;default:0" json:"actual_quantity"`
	Condition          string `gorm:"size:255" json:"condition"`
	Notes              string `gorm:"type:text" json:"notes"`
}

type InspectionResultItem struct {
	ProcurementItemId int    `json:"procurement_item_id" binding:"required"`
	ActualQuantity    int    `json:"actual_quantity"`
	Condition         string `json:"condition"`
	Notes             string `json:"notes"`
}

type InspectionResult struct {
	InspectedAt time.Time              `json:"inspected_at" binding:"required"`
	Notes       string                 `json:"notes"`
	Items       []InspectionResultItem `json:"items" binding:"required,dive"`
}

// GenerateInspectionNumber derives the report number from the trigger date
// and the procurement id. Anchoring on the entity id instead of a counter
// keeps the number stable under concurrent triggers.
func GenerateInspectionNumber(date time.Time, procurementId int) string {
	return fmt.Sprintf("BA/INSP/%s/%06d", date.Format("20060102"), procurementId)
}

// FindInspectionReportByProcurement returns nil when no report exists yet.
func FindInspectionReportByProcurement(tx *gorm.DB, procurementId int) (*InspectionReport, error) {
	var report InspectionReport
	err := tx.Where("procurement_id = ?", procurementId).First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func GetInspectionReport(ctx context.Context, id int) (*InspectionReport, error) {
	return utils.FetchModel[InspectionReport](ctx, id, "Items")
}

func GetInspectionReports(ctx context.Context) ([]*InspectionReport, error) {
	return utils.FetchAllModels[InspectionReport](ctx, "Items")
}
