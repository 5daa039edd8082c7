package models

// Expert describes an expert advisor (EA) registered with the dashboard.
type Expert struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	State       string `gorm:"default:enabled" json:"state"`

	Pairs       []ExpertPair       `gorm:"foreignKey:ExpertID" json:"pairs,omitempty"`
	Assignments []ExpertAssignment `gorm:"foreignKey:ExpertID" json:"assignments,omitempty"`
}

// ExpertPair lists an instrument an expert advisor is allowed to trade.
type ExpertPair struct {
	BaseModel

	ExpertID string `gorm:"type:uuid;not null;uniqueIndex:idx_expert_pair" json:"expert_id"`
	Pair     string `gorm:"not null;uniqueIndex:idx_expert_pair" json:"pair"`
	State    string `gorm:"default:enabled" json:"state"`
}

// ExpertAssignment links an expert advisor to the account-name registration
// it runs for.
type ExpertAssignment struct {
	BaseModel

	ExpertID      string       `gorm:"type:uuid;not null;uniqueIndex:idx_expert_assignment" json:"expert_id"`
	AccountNameID string       `gorm:"type:uuid;not null;uniqueIndex:idx_expert_assignment" json:"account_name_id"`
	AccountName   *AccountName `gorm:"foreignKey:AccountNameID" json:"account_name,omitempty"`
	State         string       `gorm:"default:enabled" json:"state"`
}
