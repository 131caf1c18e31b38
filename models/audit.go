package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditEvent is a fire-and-forget diagnostic record. Writes are
// best-effort; nothing in the request path depends on them.
type AuditEvent struct {
	Id        string         `json:"id" gorm:"primaryKey"`
	Event     string         `json:"event" gorm:"not null;index"`
	UserId    string         `json:"user_id" gorm:"index"`
	Details   datatypes.JSON `json:"details" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
}

func (e *AuditEvent) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	e.Id = uuid.NewString()
	return
}
