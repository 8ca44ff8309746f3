package domain

import "time"

// TradeOverride pins a business unit to a trade regardless of its name.
type TradeOverride struct {
	BusinessUnitName string    `json:"business_unit_name" gorm:"type:text;primaryKey;column:business_unit_name"`
	Trade            string    `json:"trade" gorm:"type:text;not null"`
	UpdatedAt        time.Time `json:"updated_at,omitempty" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TradeOverride) TableName() string { return "trade_overrides" }
