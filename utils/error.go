package utils

import (
	"errors"
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorConcurrentModification is transient; callers should retry the whole
// operation. Produced by TranslateDBError from lock timeouts and deadlocks.
var ErrorConcurrentModification = errors.New("concurrent modification, please retry")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

type BudgetExceededError struct {
	BudgetYear int
	Scope      string // "budget" or "allocation"
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded for year %d (%s): requested %s but only %s available",
		e.BudgetYear, e.Scope, e.Requested, e.Available)
}

type PercentageRegressionError struct {
	ProcurementItemId int
	Current           int
	Requested         int
}

func (e *PercentageRegressionError) Error() string {
	return fmt.Sprintf("production percentage cannot regress for item %d: current %d%%, requested %d%%",
		e.ProcurementItemId, e.Current, e.Requested)
}

type InvalidStatusTransitionError struct {
	From string
	To   string
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

type QuantityExceededError struct {
	ProcurementItemId int
	Remaining         int
	Requested         int
}

func (e *QuantityExceededError) Error() string {
	return fmt.Sprintf("shipment quantity exceeded for item %d: requested %d but only %d remaining",
		e.ProcurementItemId, e.Requested, e.Remaining)
}

type ProductionNotCompleteError struct {
	ProcurementItemId int
	CurrentStatus     string
}

func (e *ProductionNotCompleteError) Error() string {
	return fmt.Sprintf("item %d cannot be shipped: production status is %q, expected completed",
		e.ProcurementItemId, e.CurrentStatus)
}

type InvalidProcessTypeError struct {
	ProcurementItemId int
	ProcessType       string
}

func (e *InvalidProcessTypeError) Error() string {
	return fmt.Sprintf("item %d has process type %q and cannot enter the production flow",
		e.ProcurementItemId, e.ProcessType)
}

// IsRetryable reports whether the caller may safely retry the whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrorConcurrentModification)
}

const (
	mysqlErrDuplicateKey    = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// TranslateDBError maps driver/gorm errors onto the domain taxonomy so that
// lock conflicts surface as a retryable error instead of a raw SQL failure.
func TranslateDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorRecordNotFound
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
			return ErrorConcurrentModification
		}
	}
	return err
}

func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateKey
	}
	return false
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
