package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityLog records noteworthy events: logins, snapshot reports, EA
// activity. Details carries free-form structured context as JSON.
type ActivityLog struct {
	ID            string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        *string        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	AccountNameID *string        `gorm:"type:uuid;index" json:"account_name_id,omitempty"`
	Action        string         `gorm:"not null;index" json:"action"`
	Details       datatypes.JSON `json:"details,omitempty"`
	IPAddress     string         `json:"ip_address"`
	UserAgent     string         `json:"user_agent"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}

func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
