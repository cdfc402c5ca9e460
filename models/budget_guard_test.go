package models

import (
	"errors"
	"testing"

	"github.com/bahariworks/procurement_backend/utils"
	"github.com/shopspring/decimal"
)

func testBudget(total, allocated, used int64) *AnnualBudget {
	totalD := decimal.NewFromInt(total)
	usedD := decimal.NewFromInt(used)
	return &AnnualBudget{
		Year:            2026,
		TotalBudget:     totalD,
		AllocatedBudget: decimal.NewFromInt(allocated),
		UsedBudget:      usedD,
		RemainingBudget: totalD.Sub(usedD),
	}
}

func TestCheckCanAllocate(t *testing.T) {
	b := testBudget(100, 60, 0)

	if err := b.CheckCanAllocate(decimal.NewFromInt(40)); err != nil {
		t.Fatalf("allocating up to the ceiling should pass: %v", err)
	}
	err := b.CheckCanAllocate(decimal.NewFromInt(41))
	var budgetErr *utils.BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected BudgetExceededError, got %v", err)
	}
	if !budgetErr.Available.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("available = %s, want 40", budgetErr.Available)
	}
}

func TestCheckCanSpend_BudgetLevel(t *testing.T) {
	b := testBudget(100, 100, 70)

	if err := b.CheckCanSpend(decimal.NewFromInt(30)); err != nil {
		t.Fatalf("spending down to zero remaining should pass: %v", err)
	}
	err := b.CheckCanSpend(decimal.NewFromInt(31))
	var budgetErr *utils.BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected BudgetExceededError, got %v", err)
	}
}

func TestCheckCanSpend_AllocationCeiling(t *testing.T) {
	allocation := &BudgetAllocation{
		Amount:     decimal.NewFromInt(60),
		UsedAmount: decimal.NewFromInt(55),
	}
	if err := allocation.CheckCanSpend(2026, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("spending up to the category ceiling should pass: %v", err)
	}
	err := allocation.CheckCanSpend(2026, decimal.NewFromInt(6))
	var budgetErr *utils.BudgetExceededError
	if !errors.As(err, &budgetErr) {
		t.Fatalf("expected BudgetExceededError, got %v", err)
	}
	if budgetErr.Scope != "allocation" {
		t.Fatalf("scope = %q, want allocation", budgetErr.Scope)
	}
}

// Allocation guards never look at RemainingBudget: category ceilings reserve
// headroom, they do not spend it.
func TestAllocationDoesNotTouchRemaining(t *testing.T) {
	b := testBudget(100, 0, 0)
	if err := b.CheckCanAllocate(decimal.NewFromInt(100)); err != nil {
		t.Fatalf("full allocation of an unspent budget should pass: %v", err)
	}
	if !b.RemainingBudget.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("remaining moved: %s", b.RemainingBudget)
	}
}

func TestValidatePercentageProgress(t *testing.T) {
	if err := ValidatePercentageProgress(1, 40, 60); err != nil {
		t.Fatalf("forward progress rejected: %v", err)
	}
	if err := ValidatePercentageProgress(1, 40, 40); err != nil {
		t.Fatalf("status-only update (equal percentage) rejected: %v", err)
	}

	err := ValidatePercentageProgress(1, 40, 39)
	var regressionErr *utils.PercentageRegressionError
	if !errors.As(err, &regressionErr) {
		t.Fatalf("expected PercentageRegressionError, got %v", err)
	}
	if regressionErr.Current != 40 || regressionErr.Requested != 39 {
		t.Fatalf("error payload = %+v", regressionErr)
	}

	for _, bad := range []int{-1, 101} {
		if err := ValidatePercentageProgress(1, 0, bad); err == nil {
			t.Errorf("percentage %d accepted", bad)
		}
	}
}

func TestValidateProcessTypeStatus(t *testing.T) {
	if err := ValidateProcessTypeStatus(1, ProcessTypeProduction, ProcessStatusProduction); err != nil {
		t.Fatalf("production item in production: %v", err)
	}
	if err := ValidateProcessTypeStatus(1, ProcessTypePurchase, ProcessStatusPurchase); err != nil {
		t.Fatalf("purchase item in purchase: %v", err)
	}
	if err := ValidateProcessTypeStatus(1, ProcessTypePurchase, ProcessStatusCompleted); err != nil {
		t.Fatalf("purchase item completed: %v", err)
	}

	err := ValidateProcessTypeStatus(1, ProcessTypePurchase, ProcessStatusProduction)
	var processTypeErr *utils.InvalidProcessTypeError
	if !errors.As(err, &processTypeErr) {
		t.Fatalf("expected InvalidProcessTypeError, got %v", err)
	}

	if err := ValidateProcessTypeStatus(1, ProcessTypeProduction, ProcessStatus("Melted")); err == nil {
		t.Fatal("unknown status accepted")
	}
}
