package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role groups permissions within one application and is held by users.
type Role struct {
	Id            string `json:"id" gorm:"primaryKey"`
	ApplicationId string `json:"application_id" gorm:"not null;index"`
	Name          string `json:"name" gorm:"not null"`
	Description   string `json:"description"`

	Permissions []Permission `json:"permissions" gorm:"many2many:role_permissions;constraint:OnDelete:CASCADE"`
	Users       []User       `json:"-" gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
}

func (role *Role) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	role.Id = uuid.NewString()
	return
}
