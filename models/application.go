package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application is an independently configured consumer of this service
// (a tenant). It owns its roles and permissions and may hold a hashed
// API key for machine-to-machine access.
type Application struct {
	Id         string `json:"id" gorm:"primaryKey"`
	Key        string `json:"key" gorm:"uniqueIndex;not null"`
	Name       string `json:"name" gorm:"not null"`
	IsActive   bool   `json:"is_active" gorm:"default:true"`
	APIKeyHash string `json:"-"`

	// Lockout policy
	MaxFailedLogins int `json:"max_failed_logins" gorm:"default:5"`
	LockoutMinutes  int `json:"lockout_minutes" gorm:"default:15"`

	Roles       []Role       `json:"-" gorm:"foreignKey:ApplicationId;constraint:OnDelete:RESTRICT"`
	Permissions []Permission `json:"-" gorm:"foreignKey:ApplicationId;constraint:OnDelete:RESTRICT"`

	CreatedAt time.Time `json:"created_at"`
}

func (app *Application) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	app.Id = uuid.NewString()
	// Keys compare case-insensitively; store them lowercased.
	app.Key = strings.ToLower(strings.TrimSpace(app.Key))
	return
}
