package models

// Account-name registration states.
const (
	NameStateActive   = "active"
	NameStateInactive = "inactive"
)

// AccountName is the owner-registration row mapping an MT5 account name, as
// reported by the trading terminal, to a dashboard owner. Snapshot reports
// are only accepted for names that exist here in the active state.
type AccountName struct {
	BaseModel

	MT5Name   string `gorm:"uniqueIndex;not null" json:"mt5_name"`
	OwnerName string `gorm:"not null" json:"name"`
	Email     string `json:"email"`
	State     string `gorm:"default:active;index" json:"state"`

	UserID *string `gorm:"type:uuid;index" json:"user_id,omitempty"`

	Snapshots []AccountSnapshot `gorm:"foreignKey:AccountNameID" json:"-"`
}
