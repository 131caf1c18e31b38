package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission is a single capability within one application, addressed
// everywhere (roles, grants, caches, tokens) by its derived code.
type Permission struct {
	Id            string `json:"id" gorm:"primaryKey"`
	ApplicationId string `json:"application_id" gorm:"not null;index"`
	Module        string `json:"module" gorm:"not null"`
	Action        string `json:"action" gorm:"not null"`
	// code = lowercase("{appKey}.{module}.{action}"), globally unique and
	// immutable after creation.
	Code string `json:"code" gorm:"uniqueIndex;not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	p.Id = uuid.NewString()
	return
}

// PermissionCode derives the canonical code for an application key,
// module and action.
func PermissionCode(appKey, module, action string) string {
	return strings.ToLower(fmt.Sprintf("%s.%s.%s", appKey, module, action))
}
