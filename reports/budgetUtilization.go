package reports

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bahariworks/procurement_backend/models"
	"github.com/xuri/excelize/v2"
)

// BudgetUtilizationXLSX renders one sheet per budget year with the category
// breakdown: ceiling, used, remaining headroom. Read-only; takes no locks
// and tolerates slightly stale aggregates.
func BudgetUtilizationXLSX(ctx context.Context) (*bytes.Buffer, error) {
	budgets, err := models.GetAnnualBudgets(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, budget := range budgets {
		sheet := fmt.Sprint(budget.Year)
		if i == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
		}

		headers := []string{"Item Type", "Ceiling", "Used", "Headroom"}
		for col, header := range headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			f.SetCellValue(sheet, cell, header)
		}

		f.SetCellValue(sheet, "F1", "Total Budget")
		f.SetCellValue(sheet, "G1", budget.TotalBudget.InexactFloat64())
		f.SetCellValue(sheet, "F2", "Used Budget")
		f.SetCellValue(sheet, "G2", budget.UsedBudget.InexactFloat64())
		f.SetCellValue(sheet, "F3", "Remaining Budget")
		f.SetCellValue(sheet, "G3", budget.RemainingBudget.InexactFloat64())

		allocations, err := models.GetBudgetAllocations(ctx, budget.ID)
		if err != nil {
			return nil, err
		}
		itemTypes, err := models.GetItemTypes(ctx)
		if err != nil {
			return nil, err
		}
		typeNames := make(map[int]string, len(itemTypes))
		for _, itemType := range itemTypes {
			typeNames[itemType.ID] = itemType.Name
		}

		for row, allocation := range allocations {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row+2), typeNames[allocation.ItemTypeId])
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row+2), allocation.Amount.InexactFloat64())
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row+2), allocation.UsedAmount.InexactFloat64())
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row+2), allocation.Amount.Sub(allocation.UsedAmount).InexactFloat64())
		}
	}

	return f.WriteToBuffer()
}
