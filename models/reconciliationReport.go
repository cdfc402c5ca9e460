package models

import "time"

// ReconciliationReport is one drift row from the ledger consistency sweep
// (nightly or admin-triggered): a cached aggregate disagreed with the sum of
// its budget transactions.
type ReconciliationReport struct {
	ID            int       `gorm:"primary_key" json:"id"`
	CheckType     string    `gorm:"size:50;index;not null" json:"check_type"`  // e.g. BUDGET_USED, ALLOCATION_USED
	EntityType    string    `gorm:"size:50;index;not null" json:"entity_type"` // e.g. AnnualBudget, BudgetAllocation
	EntityId      int       `gorm:"index;not null" json:"entity_id"`
	Details       string    `gorm:"type:text" json:"details"`
	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
