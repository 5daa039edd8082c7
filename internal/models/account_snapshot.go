package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountSnapshot stores the latest-known financial state of one MT5 trading
// account. At most one row exists per (owner registration, account number);
// every report overwrites the numeric fields in full.
type AccountSnapshot struct {
	ID            string       `gorm:"primaryKey;type:uuid" json:"id"`
	AccountNameID string       `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_owner_account" json:"account_name_id"`
	AccountName   *AccountName `gorm:"foreignKey:AccountNameID" json:"account_name,omitempty"`
	AccountNumber string       `gorm:"not null;uniqueIndex:idx_snapshot_owner_account" json:"account_number"`

	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	FreeMargin float64 `json:"free_margin"`
	Leverage   int     `json:"leverage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *AccountSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
