package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is global across applications; role memberships and direct
// permission grants are scoped by the application the role/permission
// belongs to.
type User struct {
	Id           string `json:"id" gorm:"primaryKey"`
	FirstName    string `json:"first_name" gorm:"not null"`
	LastName     string `json:"last_name" gorm:"not null"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`

	Roles []Role `json:"-" gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`
	// Direct grants bypassing roles.
	Permissions []Permission `json:"-" gorm:"many2many:user_permissions;constraint:OnDelete:CASCADE"`

	FailedLogins int        `json:"-"`
	LockedUntil  *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	// UUID version 4
	user.Id = uuid.NewString()
	return
}

// DisplayName is the name embedded into issued tokens.
func (user *User) DisplayName() string {
	return user.FirstName + " " + user.LastName
}
