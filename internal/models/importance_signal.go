package models

import (
	"time"
)

// ImportanceSignal scores a single transaction, 1:1 with the ledger row.
// The per-factor breakdown is stored alongside the total so the read API can
// explain a score without recomputing it.
type ImportanceSignal struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	TransactionID uint64 `gorm:"not null;uniqueIndex"`
	IssuerID      string `gorm:"type:varchar(20);not null;index"`
	PersonID      string `gorm:"type:varchar(20);not null;index"`

	TransactionDate time.Time `gorm:"type:date;not null;index"`

	Score          float64 `gorm:"not null;index"`
	ValueScore     float64 `gorm:"not null;default:0"`
	DirectionScore float64 `gorm:"not null;default:0"`
	RoleScore      float64 `gorm:"not null;default:0"`
	OwnershipScore float64 `gorm:"not null;default:0"`
	ClusterScore   float64 `gorm:"not null;default:0"`
	TimingScore    float64 `gorm:"not null;default:0"`

	ClusterSize int  `gorm:"not null;default:0"`
	IsPurchase  bool `gorm:"not null;default:false"`
	IsSale      bool `gorm:"not null;default:false"`
	IsPlanned   bool `gorm:"not null;default:false"`

	IsActive   bool      `gorm:"not null;default:true;index"`
	DetectedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt  time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ImportanceSignal) TableName() string {
	return "importance_signals"
}
