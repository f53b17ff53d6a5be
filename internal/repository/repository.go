package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"insiderpulse/internal/models"
)

// LedgerReader is the read-only view of the filing transaction ledger. The
// pipeline never writes through it.
type LedgerReader interface {
	// ListOpenMarketPurchases returns priced open-market buys (code P,
	// acquired, price > 0) with transaction date on or after since, each
	// annotated with the buyer's role flags from the filing.
	ListOpenMarketPurchases(ctx context.Context, since time.Time) ([]LedgerRow, error)

	// ListRecentlyFiledPurchases returns priced open-market buys whose filing
	// arrived at or after filedSince, regardless of transaction date. Late
	// filings must still produce first-buy signals.
	ListRecentlyFiledPurchases(ctx context.Context, filedSince time.Time) ([]LedgerRow, error)

	// ListPricedTransactions returns all priced non-award transactions with
	// transaction date on or after since, role-annotated.
	ListPricedTransactions(ctx context.Context, since time.Time) ([]LedgerRow, error)

	// CountPriorPurchases counts open-market purchases by the person in the
	// issuer dated within [start, end], both bounds inclusive.
	CountPriorPurchases(ctx context.Context, personID, issuerID string, start, end time.Time) (int64, error)
}

// SignalRepository owns the derived signal tables. Every write path here is
// exclusive to this pipeline.
type SignalRepository interface {
	// Phase 1: soft invalidation.
	DeactivateClusterSignals(ctx context.Context) (int64, error)
	DeactivateImportanceSignals(ctx context.Context) (int64, error)
	DeactivateFirstBuySignals(ctx context.Context) (int64, error)

	// Cluster signals.
	ListClusterSignalsSince(ctx context.Context, since time.Time) ([]models.ClusterSignal, error)
	InsertClusterSignals(ctx context.Context, items []models.ClusterSignal) error
	UpdateClusterSignal(ctx context.Context, item *models.ClusterSignal) error
	ReactivateClusterSignals(ctx context.Context, ids []uint64) (int64, error)

	// Cluster membership: delete then bulk re-insert, never edited in place.
	DeleteClusterTradesByClusterIDs(ctx context.Context, clusterIDs []uint64) error
	InsertClusterTrades(ctx context.Context, items []models.ClusterTrade) error

	// Per-transaction signals, upserted by transaction id. The id listings
	// let the detectors tell a fresh insert from a re-scored row.
	ListImportanceTransactionIDs(ctx context.Context, since time.Time) ([]uint64, error)
	ListFirstBuyTransactionIDs(ctx context.Context, since time.Time) ([]uint64, error)
	UpsertImportanceSignals(ctx context.Context, items []models.ImportanceSignal) error
	UpsertFirstBuySignals(ctx context.Context, items []models.FirstBuySignal) error

	// Daily metrics, upserted by calendar date.
	UpsertDailyMetrics(ctx context.Context, items []models.DailyMetrics) error

	// Phase 3: retention cleanup of rows left inactive past their window.
	DeleteInactiveClusterSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteInactiveImportanceSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteInactiveFirstBuySignalsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Grouped aggregates feeding the daily metrics rollup.
	ClusterDailyRows(ctx context.Context, since time.Time) ([]ClusterDailyRow, error)
	LedgerDailyRows(ctx context.Context, since time.Time) ([]LedgerDailyRow, error)
	FirstBuyDailyRows(ctx context.Context, since time.Time) ([]FirstBuyDailyRow, error)
	ImportanceDailyRows(ctx context.Context, since time.Time) ([]ImportanceDailyRow, error)

	// Run history and observability.
	InsertRefreshRun(ctx context.Context, item *models.RefreshRun) error
	ListRefreshRuns(ctx context.Context, limit int) ([]models.RefreshRun, error)
	ActiveSignalCounts(ctx context.Context) (SignalCounts, error)
}

// Repository is the unified store the orchestrator wires into the
// processors.
type Repository interface {
	LedgerReader
	SignalRepository
}

// LedgerRow is a ledger transaction joined with the reporting person's role
// flags from the same filing.
type LedgerRow struct {
	TransactionID    uint64
	FilingID         uint64
	IssuerID         string
	PersonID         string
	TransactionDate  time.Time
	TransactionCode  string
	AcquiredDisposed string
	Shares           decimal.Decimal
	PricePerShare    decimal.Decimal
	Value            decimal.Decimal
	SharesOwnedAfter *decimal.Decimal
	DirectIndirect   string
	IsPlanned        bool
	FiledAt          time.Time

	IsOfficer    bool
	IsDirector   bool
	IsTenPercent bool
	OfficerTitle string
}

type ClusterDailyRow struct {
	Date         time.Time
	ClusterCount int
	InsiderTotal int
	TotalValue   decimal.Decimal
}

type LedgerDailyRow struct {
	Date      time.Time
	BuyCount  int
	SellCount int
	BuyValue  decimal.Decimal
	SellValue decimal.Decimal
}

type FirstBuyDailyRow struct {
	Date  time.Time
	Count int
}

type ImportanceDailyRow struct {
	Date     time.Time
	Count    int
	AvgScore float64
}

type SignalCounts struct {
	Clusters        int64
	ImportantTrades int64
	FirstBuys       int64
}
