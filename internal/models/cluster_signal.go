package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClusterSignal marks coordinated buying: two or more distinct insiders of
// the same issuer purchasing on the same transaction date. Natural key is
// (issuer, transaction date); rows are rebuilt in full, never partially
// edited.
type ClusterSignal struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	IssuerID        string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_cluster_issuer_date"`
	TransactionDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_cluster_issuer_date;index"`

	InsiderCount int             `gorm:"not null"`
	TotalShares  decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	TotalValue   decimal.Decimal `gorm:"type:numeric(30,4);not null"`

	Strength        float64 `gorm:"not null;index"`
	AvgRolePriority float64 `gorm:"not null;default:0"`
	HasCEOBuy       bool    `gorm:"column:has_ceo_buy;not null;default:false"`
	HasCFOBuy       bool    `gorm:"column:has_cfo_buy;not null;default:false"`
	HasTenPercent   bool    `gorm:"column:has_ten_percent_owner;not null;default:false"`

	BuyWindowStart time.Time `gorm:"type:date;not null"`
	BuyWindowEnd   time.Time `gorm:"type:date;not null"`

	IsActive  bool      `gorm:"not null;default:true;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ClusterSignal) TableName() string {
	return "cluster_signals"
}
