package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

func TestTranslateDBError(t *testing.T) {
	if got := TranslateDBError(gorm.ErrRecordNotFound); !errors.Is(got, ErrorRecordNotFound) {
		t.Fatalf("gorm.ErrRecordNotFound translated to %v", got)
	}
	for _, number := range []uint16{1205, 1213} {
		err := fmt.Errorf("tx failed: %w", &mysql.MySQLError{Number: number})
		if got := TranslateDBError(err); !errors.Is(got, ErrorConcurrentModification) {
			t.Fatalf("mysql %d translated to %v", number, got)
		}
	}

	// Domain errors pass through untouched.
	domainErr := NewValidationError("quantity", "must be positive")
	if got := TranslateDBError(domainErr); got != domainErr {
		t.Fatalf("domain error rewritten to %v", got)
	}
	if got := TranslateDBError(nil); got != nil {
		t.Fatalf("nil translated to %v", got)
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	if !IsDuplicateKeyError(&mysql.MySQLError{Number: 1062}) {
		t.Fatal("1062 not detected as duplicate key")
	}
	if IsDuplicateKeyError(&mysql.MySQLError{Number: 1213}) {
		t.Fatal("1213 misdetected as duplicate key")
	}
	if IsDuplicateKeyError(nil) {
		t.Fatal("nil misdetected as duplicate key")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrorConcurrentModification) {
		t.Fatal("lock conflicts must be retryable")
	}
	if IsRetryable(ErrorRecordNotFound) {
		t.Fatal("not-found must not be retryable")
	}
	if IsRetryable(NewValidationError("status", "bad")) {
		t.Fatal("validation errors must not be retryable")
	}
}
