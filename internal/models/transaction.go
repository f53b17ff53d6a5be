package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction codes as reported on Form 4 table rows.
const (
	CodePurchase = "P"
	CodeSale     = "S"
	CodeAward    = "A"
	CodeExercise = "M"
	CodeGift     = "G"
)

const (
	Acquired = "A"
	Disposed = "D"
)

const (
	OwnershipDirect   = "D"
	OwnershipIndirect = "I"
)

// Transaction is one row of the filing transaction ledger. The ledger is
// owned by the ingest service; this pipeline only ever reads it.
type Transaction struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	FilingID uint64 `gorm:"not null;index"`
	IssuerID string `gorm:"type:varchar(20);not null;index:idx_txn_issuer_date"`
	PersonID string `gorm:"type:varchar(20);not null;index"`

	TransactionDate  time.Time `gorm:"type:date;not null;index:idx_txn_issuer_date"`
	TransactionCode  string    `gorm:"type:varchar(2);not null;index"`
	AcquiredDisposed string    `gorm:"type:varchar(1);not null"`

	Shares           decimal.Decimal  `gorm:"type:numeric(20,4);not null"`
	PricePerShare    *decimal.Decimal `gorm:"type:numeric(20,6)"`
	Value            *decimal.Decimal `gorm:"type:numeric(30,4)"`
	SharesOwnedAfter *decimal.Decimal `gorm:"type:numeric(20,4)"`

	DirectIndirect string `gorm:"type:varchar(1);not null;default:'D'"`
	IsPlanned      bool   `gorm:"not null;default:false"`

	FiledAt   time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Transaction) TableName() string {
	return "filing_transactions"
}

// IsOpenMarketPurchase reports whether the row is a priced open-market buy.
func (t Transaction) IsOpenMarketPurchase() bool {
	return t.TransactionCode == CodePurchase &&
		t.AcquiredDisposed == Acquired &&
		t.PricePerShare != nil && t.PricePerShare.IsPositive()
}

// IsOpenMarketSale reports whether the row is a priced open-market sale.
func (t Transaction) IsOpenMarketSale() bool {
	return t.TransactionCode == CodeSale &&
		t.AcquiredDisposed == Disposed &&
		t.PricePerShare != nil && t.PricePerShare.IsPositive()
}
