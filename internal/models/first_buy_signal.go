package models

import (
	"time"
)

// FirstBuySignal marks a person's first open-market purchase of an issuer
// within the lookback window. Keyed by transaction id.
type FirstBuySignal struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	TransactionID uint64 `gorm:"not null;uniqueIndex"`
	PersonID      string `gorm:"type:varchar(20);not null;index"`
	IssuerID      string `gorm:"type:varchar(20);not null;index"`

	TransactionDate time.Time `gorm:"type:date;not null;index"`

	LookbackDays int     `gorm:"not null"`
	Score        float64 `gorm:"not null;index"`
	InCluster    bool    `gorm:"not null;default:false"`
	ClusterSize  int     `gorm:"not null;default:0"`

	IsActive   bool      `gorm:"not null;default:true;index"`
	DetectedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt  time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (FirstBuySignal) TableName() string {
	return "first_buy_signals"
}
