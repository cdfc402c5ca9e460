package models

import "time"

// IdempotencyKey deduplicates trigger handlers (inspection generation) so an
// at-least-once caller can safely repeat itself.
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	HandlerName string            `gorm:"size:100;uniqueIndex:idx_handler_key;not null" json:"handler_name"`
	MessageId   string            `gorm:"size:100;uniqueIndex:idx_handler_key;not null" json:"message_id"`
	Status      IdempotencyStatus `gorm:"type:enum('STARTED','SUCCEEDED','FAILED');not null" json:"status"`
	LastError   *string           `gorm:"type:text" json:"last_error"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
