package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClusterTrade associates one member purchase with its owning cluster.
// Membership is deleted and re-inserted whenever the cluster is recomputed;
// there are no partial updates.
type ClusterTrade struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	ClusterID     uint64 `gorm:"not null;index"`
	TransactionID uint64 `gorm:"not null;index"`
	PersonID      string `gorm:"type:varchar(20);not null"`

	Shares decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Price  decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Value  decimal.Decimal `gorm:"type:numeric(30,4);not null"`

	IsOfficer    bool `gorm:"not null;default:false"`
	IsDirector   bool `gorm:"not null;default:false"`
	IsTenPercent bool `gorm:"column:is_ten_percent_owner;not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ClusterTrade) TableName() string {
	return "cluster_trades"
}
