package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyMetrics is the per-calendar-date rollup across the three signal
// tables and the raw ledger, feeding trend charts. One row per date.
type DailyMetrics struct {
	ID   uint64    `gorm:"primaryKey;autoIncrement"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex"`

	ClusterCount      int             `gorm:"not null;default:0"`
	ClusterInsiders   int             `gorm:"not null;default:0"`
	ClusterTotalValue decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0"`

	BuyCount  int             `gorm:"not null;default:0"`
	SellCount int             `gorm:"not null;default:0"`
	BuyValue  decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0"`
	SellValue decimal.Decimal `gorm:"type:numeric(30,4);not null;default:0"`

	// BuySellRatio is buy value over sell value; RatioSentinel when there are
	// buys but no sells, zero when there are neither.
	BuySellRatio float64 `gorm:"not null;default:0"`

	FirstBuyCount      int     `gorm:"not null;default:0"`
	ImportanceCount    int     `gorm:"not null;default:0"`
	AvgImportanceScore float64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (DailyMetrics) TableName() string {
	return "daily_metrics"
}
