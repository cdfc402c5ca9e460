package models

import (
	"context"
	"time"

	"github.com/bahariworks/procurement_backend/config"
	"github.com/bahariworks/procurement_backend/utils"
	"github.com/shopspring/decimal"
)

// Procurement is a vendor contract approved by a plenary meeting, optionally
// funded by an annual budget. Items carry the money; the contract carries
// the lifecycle status.
type Procurement struct {
	ID               int               `gorm:"primary_key" json:"id"`
	Number           string            `gorm:"size:100;uniqueIndex;not null" json:"number" binding:"required"`
	VendorId         int               `gorm:"index;not null" json:"vendor_id" binding:"required"`
	PlenaryMeetingId int               `gorm:"index;not null" json:"plenary_meeting_id" binding:"required"`
	BudgetId         int               `gorm:"index;default:null" json:"budget_id"`
	ContractDate     time.Time         `gorm:"not null" json:"contract_date" binding:"required"`
	Status           ProcurementStatus `gorm:"type:enum('Draft','Approved','Contracted','In Progress','Completed','Cancelled');not null;default:'Draft'" json:"status"`
	TotalAmount      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Notes            string            `gorm:"type:text" json:"notes"`
	Items            []ProcurementItem `gorm:"foreignKey:ProcurementId" json:"items"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProcurement struct {
	Number           string               `json:"number" binding:"required"`
	VendorId         int                  `json:"vendor_id" binding:"required"`
	PlenaryMeetingId int                  `json:"plenary_meeting_id" binding:"required"`
	BudgetId         int                  `json:"budget_id"`
	ContractDate     time.Time            `json:"contract_date" binding:"required"`
	Notes            string               `json:"notes"`
	Items            []NewProcurementItem `json:"items" binding:"required,dive"`
}

// validate input for create. DB writes happen in the workflow package so the
// guard checks and the ledger application share one transaction.
func (input *NewProcurement) Validate(ctx context.Context) error {
	if len(input.Items) == 0 {
		return utils.NewValidationError("items", "at least one item is required")
	}
	if err := utils.ValidateUnique[Procurement](ctx, "number", input.Number, 0); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Vendor](ctx, input.VendorId); err != nil {
		return utils.NewValidationError("vendor_id", "vendor not found")
	}
	if err := utils.ValidateResourceId[PlenaryMeeting](ctx, input.PlenaryMeetingId); err != nil {
		return utils.NewValidationError("plenary_meeting_id", "plenary meeting not found")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return utils.NewValidationError("quantity", "must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return utils.NewValidationError("unit_price", "must not be negative")
		}
		if err := utils.ValidateResourceId[FishingItem](ctx, item.ItemId); err != nil {
			return utils.NewValidationError("item_id", "catalog item not found")
		}
	}
	return nil
}

func (input *NewProcurement) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range input.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func GetProcurement(ctx context.Context, id int) (*Procurement, error) {
	return utils.FetchModel[Procurement](ctx, id, "Items")
}

func GetProcurements(ctx context.Context) ([]*Procurement, error) {
	db := config.GetDB()
	var procurements []*Procurement
	dbCtx := db.WithContext(ctx).Preload("Items")
	// Vendor users only see their own contracts.
	if role, ok := utils.GetUserRoleFromContext(ctx); ok && role == string(UserRoleVendor) {
		if vendorId, ok := utils.GetVendorIdFromContext(ctx); ok && vendorId != 0 {
			dbCtx = dbCtx.Where("vendor_id = ?", vendorId)
		}
	}
	if err := dbCtx.Order("contract_date DESC").Find(&procurements).Error; err != nil {
		return nil, err
	}
	return procurements, nil
}
