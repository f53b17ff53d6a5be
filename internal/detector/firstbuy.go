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

// FirstBuyDetector flags a person's first open-market purchase of an issuer
// within the lookback window. It owns first_buy_signals.
type FirstBuyDetector struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	Config    config.FirstBuyConfig
	Scoring   config.ScoringConfig
	BatchSize int
}

func (d *FirstBuyDetector) Run(ctx context.Context) RunSummary {
	start := time.Now()
	sum := RunSummary{Processor: ProcessorFirstBuy}
	defer func() { sum.Duration = time.Since(start) }()

	now := time.Now().UTC()
	if _, err := d.Repo.DeactivateFirstBuySignals(ctx); err != nil {
		d.logWarn("deactivate first-buy signals failed", err)
		return sum.fail(err)
	}

	filedSince := now.AddDate(0, 0, -d.Config.RecentDays)
	candidates, err := d.Repo.ListRecentlyFiledPurchases(ctx, filedSince)
	if err != nil {
		d.logWarn("list recently filed purchases failed", err)
		return sum.fail(err)
	}
	sum.Processed = len(candidates)

	// Cluster context spans the candidates' transaction dates, which can
	// predate the filing window for late filings.
	clusterSince := daysAgo(now, d.Config.RecentDays)
	for _, c := range candidates {
		if t := dateOnly(c.TransactionDate).AddDate(0, 0, -clusterTolerance); t.Before(clusterSince) {
			clusterSince = t
		}
	}
	purchases, err := d.Repo.ListOpenMarketPurchases(ctx, clusterSince)
	if err != nil {
		d.logWarn("list purchases for cluster context failed", err)
		return sum.fail(err)
	}
	idx := newPurchaseIndex(purchases)

	// clusterSince predates every candidate's transaction date, so it also
	// bounds the ids of any rows the upsert can touch.
	existingIDs, err := d.Repo.ListFirstBuyTransactionIDs(ctx, clusterSince)
	if err != nil {
		d.logWarn("list existing first-buy ids failed", err)
		return sum.fail(err)
	}
	existing := make(map[uint64]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = struct{}{}
	}

	var signals []models.FirstBuySignal
	for _, r := range candidates {
		// The prior-purchase check must be scoped by person AND issuer, and
		// the purchase's own date must never count as "prior": the window
		// ends the day before.
		date := dateOnly(r.TransactionDate)
		windowStart := date.AddDate(0, 0, -d.Config.LookbackDays)
		windowEnd := date.AddDate(0, 0, -1)
		prior, err := d.Repo.CountPriorPurchases(ctx, r.PersonID, r.IssuerID, windowStart, windowEnd)
		if err != nil {
			d.logWarn("prior purchase lookup failed", err,
				zap.Uint64("transaction_id", r.TransactionID),
				zap.String("person_id", r.PersonID),
				zap.String("issuer_id", r.IssuerID))
			sum.Errors++
			continue
		}
		if prior > 0 {
			continue
		}

		clusterSize := idx.ClusterSize(r.IssuerID, date, clusterTolerance)
		b := scoring.FirstBuyScore(d.Scoring, scoring.Input{
			Value:         r.Value,
			IsPurchase:    true,
			IsOfficer:     r.IsOfficer,
			IsDirector:    r.IsDirector,
			IsTenPercent:  r.IsTenPercent,
			OfficerTitle:  r.OfficerTitle,
			PctOfHoldings: scoring.PercentOfHoldings(r.Shares, r.SharesOwnedAfter, false),
			ClusterSize:   clusterSize,
			IsIndirect:    r.DirectIndirect == models.OwnershipIndirect,
			IsPlanned:     r.IsPlanned,
		})

		signals = append(signals, models.FirstBuySignal{
			TransactionID:   r.TransactionID,
			PersonID:        r.PersonID,
			IssuerID:        r.IssuerID,
			TransactionDate: date,
			LookbackDays:    d.Config.LookbackDays,
			Score:           b.Total,
			InCluster:       clusterSize >= 2,
			ClusterSize:     clusterSize,
			IsActive:        true,
			DetectedAt:      now,
		})
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
		if err := d.Repo.UpsertFirstBuySignals(ctx, signals[batchStart:batchEnd]); err != nil {
			d.logWarn("first-buy batch upsert failed", err, zap.Int("batch_start", batchStart))
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
	cleaned, err := d.Repo.DeleteInactiveFirstBuySignalsBefore(ctx, cutoff)
	if err != nil {
		d.logWarn("first-buy cleanup failed", err)
		sum.Errors++
	}
	sum.CleanedUp = int(cleaned)
	return sum
}

func (d *FirstBuyDetector) logWarn(msg string, err error, fields ...zap.Field) {
	if d == nil || d.Logger == nil {
		return
	}
	d.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
