package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindThresholdExceeded Kind = "threshold_exceeded"
	KindApproachingLimit  Kind = "approaching_limit"
	// KindConservationTip is reserved; tips are returned as text, never stored.
	KindConservationTip Kind = "conservation_tip"
)

// Alert is a notice raised when a day's usage crosses into warning or exceeded.
type Alert struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	OwnerID        snowflake.ID      `json:"ownerId" gorm:"column:owner_id;not null;index:ix_alerts_owner_created,priority:1"`
	Kind           Kind              `json:"type" gorm:"type:varchar(32);not null"`
	Message        string            `json:"message" gorm:"type:text;not null"`
	IsActive       bool              `json:"isActive" gorm:"column:is_active;not null;default:true"`
	RelatedUsageID *snowflake.ID     `json:"relatedUsageId,omitempty" gorm:"column:related_usage_id"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:json"`
	CreatedAt      time.Time         `json:"createdAt" gorm:"not null;index:ix_alerts_owner_created,priority:2"`
	UpdatedAt      time.Time         `json:"updatedAt" gorm:"not null"`
}

func (Alert) TableName() string { return "alerts" }
