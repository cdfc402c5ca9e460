package models

import (
	"context"
	"fmt"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
	"gorm.io/gorm"
)

// HandoverCertificate is the terminal document recording physical handover of
// inspected equipment to a cooperative. It consumes a completed inspection
// report; it carries no state-machine logic of its own.
type HandoverCertificate struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	Number             string    `gorm:"size:100;uniqueIndex;not null" json:"number"`
	InspectionReportId int       `gorm:"uniqueIndex;not null" json:"inspection_report_id" binding:"required"`
	CooperativeId      int       `gorm:"index;not null" json:"cooperative_id" binding:"required"`
	HandoverDate       time.Time `gorm:"not null" json:"handover_date" binding:"required"`
	Notes              string    `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewHandoverCertificate struct {
	InspectionReportId int       `json:"inspection_report_id" binding:"required"`
	CooperativeId      int       `json:"cooperative_id" binding:"required"`
	HandoverDate       time.Time `json:"handover_date" binding:"required"`
	Notes              string    `json:"notes"`
}

func CreateHandoverCertificate(ctx context.Context, input *NewHandoverCertificate) (*HandoverCertificate, error) {
	if err := utils.ValidateResourceId[Cooperative](ctx, input.CooperativeId); err != nil {
		return nil, utils.NewValidationError("cooperative_id", "cooperative not found")
	}

	var certificate *HandoverCertificate
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report InspectionReport
		if err := tx.First(&report, input.InspectionReportId).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		if report.Status != InspectionReportStatusCompleted {
			return utils.NewValidationError("inspection_report_id", "inspection report is not completed")
		}

		certificate = &HandoverCertificate{
			Number:             fmt.Sprintf("BA/HND/%s/%06d", input.HandoverDate.Format("20060102"), report.ProcurementId),
			InspectionReportId: input.InspectionReportId,
			CooperativeId:      input.CooperativeId,
			HandoverDate:       input.HandoverDate,
			Notes:              input.Notes,
		}
		if err := tx.Create(certificate).Error; err != nil {
			return utils.TranslateDBError(err)
		}
		return AppendHistory(tx, ctx, "Create", "HandoverCertificate", certificate.ID,
			fmt.Sprintf("Handover certificate %s created.", certificate.Number))
	})
	if err != nil {
		return nil, err
	}
	return certificate, nil
}

func GetHandoverCertificates(ctx context.Context) ([]*HandoverCertificate, error) {
	return utils.FetchAllModels[HandoverCertificate](ctx)
}
