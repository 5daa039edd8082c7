package models

// Trading pair states.
const (
	PairStateEnabled  = "enabled"
	PairStateDisabled = "disabled"
)

// TradingPair describes an instrument the trading terminals may trade,
// together with the limits the dashboard enforces for it.
type TradingPair struct {
	BaseModel

	Pair      string  `gorm:"uniqueIndex;not null" json:"pair"`
	State     string  `gorm:"default:enabled" json:"state"`
	MaxSpread float64 `json:"max_spread"`
	MinLot    float64 `json:"min_lot"`
	MaxLot    float64 `json:"max_lot"`
}
