package models

// NewsStatus records, per currency, which weekdays trading is allowed on.
// Terminals poll this before opening positions around scheduled news events.
// Unknown currencies default to enabled on every day.
type NewsStatus struct {
	BaseModel

	Currency string `gorm:"uniqueIndex;size:3;not null" json:"currency"`

	MondayStatus    string `gorm:"default:enabled" json:"monday_status"`
	TuesdayStatus   string `gorm:"default:enabled" json:"tuesday_status"`
	WednesdayStatus string `gorm:"default:enabled" json:"wednesday_status"`
	ThursdayStatus  string `gorm:"default:enabled" json:"thursday_status"`
	FridayStatus    string `gorm:"default:enabled" json:"friday_status"`
}

// DayStatus returns the status column for an ISO-style weekday index
// (1=Monday .. 5=Friday). Weekends report enabled since markets are closed.
func (n *NewsStatus) DayStatus(day int) string {
	switch day {
	case 1:
		return n.MondayStatus
	case 2:
		return n.TuesdayStatus
	case 3:
		return n.WednesdayStatus
	case 4:
		return n.ThursdayStatus
	case 5:
		return n.FridayStatus
	default:
		return PairStateEnabled
	}
}
