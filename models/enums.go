package models

import (
	"github.com/bahariworks/procurement_backend/utils"
)

type BudgetTransactionType string

const (
	BudgetTransactionTypeAllocation BudgetTransactionType = "Allocation"
	BudgetTransactionTypeSpending   BudgetTransactionType = "Spending"
)

type ProcurementStatus string

const (
	ProcurementStatusDraft      ProcurementStatus = "Draft"
	ProcurementStatusApproved   ProcurementStatus = "Approved"
	ProcurementStatusContracted ProcurementStatus = "Contracted"
	ProcurementStatusInProgress ProcurementStatus = "In Progress"
	ProcurementStatusCompleted  ProcurementStatus = "Completed"
	ProcurementStatusCancelled  ProcurementStatus = "Cancelled"
)

// ProcessStatus tracks production/purchase progress of a single procurement
// item, independent of shipment.
type ProcessStatus string

const (
	ProcessStatusPending    ProcessStatus = "Pending"
	ProcessStatusPurchase   ProcessStatus = "Purchase"
	ProcessStatusProduction ProcessStatus = "Production"
	ProcessStatusCompleted  ProcessStatus = "Completed"
)

func (s ProcessStatus) Valid() bool {
	switch s {
	case ProcessStatusPending, ProcessStatusPurchase, ProcessStatusProduction, ProcessStatusCompleted:
		return true
	}
	return false
}

// DeliveryStatus tracks shipment-quantity reconciliation of a procurement
// item, independent of production.
type DeliveryStatus string

const (
	DeliveryStatusPending          DeliveryStatus = "Pending"
	DeliveryStatusPartiallyShipped DeliveryStatus = "Partially Shipped"
	DeliveryStatusShipped          DeliveryStatus = "Shipped"
	DeliveryStatusDelivered        DeliveryStatus = "Delivered"
)

// ProcessType is the catalog-level flag deciding whether an item goes through
// the production sub-flow or is bought ready-made.
type ProcessType string

const (
	ProcessTypePurchase   ProcessType = "Purchase"
	ProcessTypeProduction ProcessType = "Production"
)

type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "Pending"
	ShipmentStatusPrepared  ShipmentStatus = "Prepared"
	ShipmentStatusShipped   ShipmentStatus = "Shipped"
	ShipmentStatusDelivered ShipmentStatus = "Delivered"
	ShipmentStatusReceived  ShipmentStatus = "Received"
	ShipmentStatusReturned  ShipmentStatus = "Returned"
	ShipmentStatusCancelled ShipmentStatus = "Cancelled"
)

// shipmentStatusRanks orders the forward-only lifecycle. Returned and
// Cancelled are absorbing and deliberately have no rank.
var shipmentStatusRanks = map[ShipmentStatus]int{
	ShipmentStatusPending:   1,
	ShipmentStatusPrepared:  2,
	ShipmentStatusShipped:   3,
	ShipmentStatusDelivered: 4,
	ShipmentStatusReceived:  5,
}

func (s ShipmentStatus) Rank() (int, bool) {
	rank, ok := shipmentStatusRanks[s]
	return rank, ok
}

func (s ShipmentStatus) IsAbsorbing() bool {
	return s == ShipmentStatusReturned || s == ShipmentStatusCancelled
}

func (s ShipmentStatus) Valid() bool {
	if s.IsAbsorbing() {
		return true
	}
	_, ok := s.Rank()
	return ok
}

// ValidateShipmentTransition enforces the forward-only rank rule: the new
// status must rank at least as high as the current one, and equal-rank
// transitions are only allowed for repeated Shipped entries (tracking pings
// while in transit). Returned/Cancelled are reachable from any live state.
func ValidateShipmentTransition(current, next ShipmentStatus) error {
	if !next.Valid() {
		return utils.NewValidationError("status", "unknown shipment status")
	}
	if current.IsAbsorbing() {
		return &utils.InvalidStatusTransitionError{From: string(current), To: string(next)}
	}
	if next.IsAbsorbing() {
		return nil
	}
	currentRank, ok := current.Rank()
	if !ok {
		return &utils.InvalidStatusTransitionError{From: string(current), To: string(next)}
	}
	nextRank, _ := next.Rank()
	if nextRank < currentRank {
		return &utils.InvalidStatusTransitionError{From: string(current), To: string(next)}
	}
	if nextRank == currentRank && next != ShipmentStatusShipped {
		return &utils.InvalidStatusTransitionError{From: string(current), To: string(next)}
	}
	return nil
}

type InspectionReportStatus string

const (
	InspectionReportStatusPending   InspectionReportStatus = "Pending"
	InspectionReportStatusCompleted InspectionReportStatus = "Completed"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "Admin"
	UserRoleVendor UserRole = "Vendor"
)
