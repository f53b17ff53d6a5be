package detector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"insiderpulse/internal/config"
	"insiderpulse/internal/models"
	"insiderpulse/internal/repository"
	"insiderpulse/internal/scoring"
)

// clusterTolerance is the ±day window used when annotating a transaction
// with its buying-cluster size.
const clusterTolerance = 3

// ImportantTradeDetector scores every priced non-award transaction in the
// lookback window and persists those at or above the configured threshold.
type ImportantTradeDetector struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	Config    config.ImportantConfig
	Scoring   config.ScoringConfig
	BatchSize int
}

func (d *ImportantTradeDetector) Run(ctx context.Context) RunSummary {
	start := time.Now()
	sum := RunSummary{Processor: ProcessorImportant}
	defer func() { sum.Duration = time.Since(start) }()

	now := time.Now().UTC()
	if _, err := d.Repo.DeactivateImportanceSignals(ctx); err != nil {
		d.logWarn("deactivate importance signals failed", err)
		return sum.fail(err)
	}

	since := daysAgo(now, d.Config.LookbackDays)
	rows, err := d.Repo.ListPricedTransactions(ctx, since)
	if err != nil {
		d.logWarn("list priced transactions failed", err)
		return sum.fail(err)
	}
	sum.Processed = len(rows)

	// Cluster-size context comes from purchases slightly before the window
	// too, so trades at the window edge still see their neighbors.
	purchases, err := d.Repo.ListOpenMarketPurchases(ctx, since.AddDate(0, 0, -clusterTolerance))
	if err != nil {
		d.logWarn("list purchases for cluster context failed", err)
		return sum.fail(err)
	}
	idx := newPurchaseIndex(purchases)

	existingIDs, err := d.Repo.ListImportanceTransactionIDs(ctx, since)
	if err != nil {
		d.logWarn("list existing importance ids failed", err)
		return sum.fail(err)
	}
	existing := make(map[uint64]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = struct{}{}
	}

	var signals []models.ImportanceSignal
	for _, r := range rows {
		sig, ok := d.scoreRow(r, idx, now)
		if !ok {
			continue
		}
		signals = append(signals, sig)
	}

	batchSize := d.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	for batchStart := 0; batchStart < len(signals); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(signals) {
			batchEnd = len(signals)
		}
		if err := d.Repo.UpsertImportanceSignals(ctx, signals[batchStart:batchEnd]); err != nil {
			d.logWarn("importance batch upsert failed", err, zap.Int("batch_start", batchStart))
			sum.Errors++
			continue
		}
		for _, sig := range signals[batchStart:batchEnd] {
			if _, ok := existing[sig.TransactionID]; ok {
				sum.Updated++
			} else {
				sum.Created++
			}
		}
	}

	cutoff := now.AddDate(0, 0, -d.Config.RetentionDays)
	cleaned, err := d.Repo.DeleteInactiveImportanceSignalsBefore(ctx, cutoff)
	if err != nil {
		d.logWarn("importance cleanup failed", err)
		sum.Errors++
	}
	sum.CleanedUp = int(cleaned)
	return sum
}

// scoreRow scores one transaction; below-threshold rows stay inactive and
// are swept by cleanup.
func (d *ImportantTradeDetector) scoreRow(r repository.LedgerRow, idx *purchaseIndex, now time.Time) (models.ImportanceSignal, bool) {
	isPurchase := r.TransactionCode == models.CodePurchase && r.AcquiredDisposed == models.Acquired
	isSale := r.TransactionCode == models.CodeSale && r.AcquiredDisposed == models.Disposed

	clusterSize := 0
	if isPurchase {
		clusterSize = idx.ClusterSize(r.IssuerID, r.TransactionDate, clusterTolerance)
	}

	b := scoring.Score(d.Scoring, scoring.Input{
		Value:         r.Value,
		IsPurchase:    isPurchase,
		IsSale:        isSale,
		IsOfficer:     r.IsOfficer,
		IsDirector:    r.IsDirector,
		IsTenPercent:  r.IsTenPercent,
		OfficerTitle:  r.OfficerTitle,
		PctOfHoldings: scoring.PercentOfHoldings(r.Shares, r.SharesOwnedAfter, r.AcquiredDisposed == models.Disposed),
		ClusterSize:   clusterSize,
		IsIndirect:    r.DirectIndirect == models.OwnershipIndirect,
		IsPlanned:     r.IsPlanned,
	})
	if b.Total < d.Config.MinScore {
		return models.ImportanceSignal{}, false
	}

	return models.ImportanceSignal{
		TransactionID:   r.TransactionID,
		IssuerID:        r.IssuerID,
		PersonID:        r.PersonID,
		TransactionDate: dateOnly(r.TransactionDate),
		Score:           b.Total,
		ValueScore:      b.Value,
		DirectionScore:  b.Direction,
		RoleScore:       b.Role,
		OwnershipScore:  b.Ownership,
		ClusterScore:    b.Cluster,
		TimingScore:     b.Timing,
		ClusterSize:     clusterSize,
		IsPurchase:      isPurchase,
		IsSale:          isSale,
		IsPlanned:       r.IsPlanned,
		IsActive:        true,
		DetectedAt:      now,
	}, true
}

func (d *ImportantTradeDetector) logWarn(msg string, err error, fields ...zap.Field) {
	if d == nil || d.Logger == nil {
		return
	}
	d.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
