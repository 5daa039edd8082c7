package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleClient = "client"
)

// User lifecycle states.
const (
	UserStatePending  = "pending"
	UserStateActive   = "active"
	UserStateInactive = "inactive"
)

// User describes a dashboard account with its credentials and lifecycle state.
// Users are never hard-deleted; deactivation happens through State.
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`

	Role  string `gorm:"default:client" json:"role"`
	State string `gorm:"default:pending;index" json:"state"`

	IsVerified        bool   `gorm:"default:false" json:"is_verified"`
	VerificationToken string `gorm:"index" json:"-"`

	ResetToken          string     `gorm:"index" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	FailedLoginAttempts int  `gorm:"default:0" json:"-"`
	IsLocked            bool `gorm:"default:false" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`

	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Sanitized returns the projection of the user exposed to API clients.
// The password hash and token columns never leave the service layer.
func (u *User) Sanitized() SanitizedUser {
	return SanitizedUser{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		Role:        u.Role,
		State:       u.State,
		IsVerified:  u.IsVerified,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// SanitizedUser is the client-safe user projection.
type SanitizedUser struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Role        string     `json:"role"`
	State       string     `json:"state"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
