package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireBudgetPostingLock serializes ledger postings per budget year across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the posting transaction.
func AcquireBudgetPostingLock(tx *gorm.DB, budgetId int) error {
	lockName := fmt.Sprintf("budget-posting:%d", budgetId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for budget_id=%d", budgetId)
	}
	return nil
}

func ReleaseBudgetPostingLock(tx *gorm.DB, budgetId int) {
	lockName := fmt.Sprintf("budget-posting:%d", budgetId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
