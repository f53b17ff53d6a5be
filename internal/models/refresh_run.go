package models

import (
	"time"

	"gorm.io/datatypes"
)

// RefreshRun records one orchestrated pipeline pass: per-processor counts,
// duration and errors, serialized as JSON for the status endpoint.
type RefreshRun struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)"`
	StartedAt  time.Time      `gorm:"type:timestamptz;not null;index"`
	FinishedAt time.Time      `gorm:"type:timestamptz;not null"`
	Succeeded  bool           `gorm:"not null;default:true"`
	StatsJSON  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"type:timestamptz;autoCreateTime"`
}

func (RefreshRun) TableName() string {
	return "refresh_runs"
}
