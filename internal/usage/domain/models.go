package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageRecord is one owner's consumption for a single calendar day.
// Day holds local midnight expressed in UTC.
type UsageRecord struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID      snowflake.ID `json:"ownerId" gorm:"column:owner_id;not null;uniqueIndex:ux_usage_records_owner_day,priority:1"`
	Day          time.Time    `json:"date" gorm:"column:day;not null;uniqueIndex:ux_usage_records_owner_day,priority:2"`
	AmountLiters float64      `json:"usage" gorm:"column:amount_liters;not null"`
	IsSimulated  bool         `json:"isSimulated" gorm:"column:is_simulated;not null;default:false"`
	CreatedAt    time.Time    `json:"createdAt" gorm:"not null"`
	UpdatedAt    time.Time    `json:"updatedAt" gorm:"not null"`
}

func (UsageRecord) TableName() string { return "usage_records" }

// Statistics are the trailing window sums for an owner.
type Statistics struct {
	Today   float64 `json:"today"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
}
