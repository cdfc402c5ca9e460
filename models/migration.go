package models

import (
	"log"

	"github.com/bahariworks/procurement_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Area{}, &ItemType{}, &FishingItem{}, &Vendor{}, &Cooperative{}, &PlenaryMeeting{},
		&AnnualBudget{}, &BudgetAllocation{}, &BudgetTransaction{},
		&Procurement{}, &ProcurementItem{}, &ProductionStatusEntry{},
		&Shipment{}, &ShipmentItem{}, &ShipmentStatusLog{},
		&InspectionReport{}, &InspectionReportItem{}, &HandoverCertificate{},
		&User{}, &History{}, &IdempotencyKey{}, &ReconciliationReport{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
