package detector

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"insiderpulse/internal/config"
	"insiderpulse/internal/models"
	"insiderpulse/internal/notify"
	"insiderpulse/internal/repository"
	"insiderpulse/internal/scoring"
)

// ClusterDetector finds coordinated buying: two or more distinct insiders of
// the same issuer purchasing on the same transaction date. It owns
// cluster_signals and cluster_trades.
type ClusterDetector struct {
	Repo      repository.Repository
	Queue     notify.Queue
	Logger    *zap.Logger
	Config    config.ClusterConfig
	Scoring   config.ScoringConfig
	BatchSize int
}

// candidate is one (issuer, date) purchase group before persistence.
type candidate struct {
	issuerID string
	date     time.Time

	persons     map[string]int // person id -> best role priority
	totalShares decimal.Decimal
	totalValue  decimal.Decimal
	hasCEO      bool
	hasCFO      bool
	hasTenPct   bool

	strength float64
}

func (c *candidate) avgRolePriority() float64 {
	if len(c.persons) == 0 {
		return 0
	}
	sum := 0
	for _, p := range c.persons {
		sum += p
	}
	return float64(sum) / float64(len(c.persons))
}

func (d *ClusterDetector) Run(ctx context.Context) RunSummary {
	start := time.Now()
	sum := RunSummary{Processor: ProcessorCluster}
	defer func() { sum.Duration = time.Since(start) }()

	now := time.Now().UTC()
	if _, err := d.Repo.DeactivateClusterSignals(ctx); err != nil {
		d.logWarn("deactivate cluster signals failed", err)
		return sum.fail(err)
	}

	since := daysAgo(now, d.Config.LookbackDays)
	// Membership spans the buy window, which reaches before the lookback
	// start for clusters dated at its edge. Fetch wide, group narrow.
	memberSince := since.AddDate(0, 0, -d.Config.WindowDays)
	purchases, err := d.Repo.ListOpenMarketPurchases(ctx, memberSince)
	if err != nil {
		d.logWarn("list purchases failed", err)
		return sum.fail(err)
	}

	candidates := d.groupPurchases(purchases, since)
	sum.Processed = len(candidates)

	existing, err := d.Repo.ListClusterSignalsSince(ctx, since)
	if err != nil {
		d.logWarn("list existing clusters failed", err)
		return sum.fail(err)
	}
	existingByKey := map[string]models.ClusterSignal{}
	for _, e := range existing {
		existingByKey[clusterKey(e.IssuerID, e.TransactionDate)] = e
	}

	// All candidate dates per issuer, for nearest-date member assignment.
	datesByIssuer := map[string][]time.Time{}
	for _, c := range candidates {
		datesByIssuer[c.issuerID] = append(datesByIssuer[c.issuerID], c.date)
	}

	batchSize := d.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	for batchStart := 0; batchStart < len(candidates); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(candidates) {
			batchEnd = len(candidates)
		}
		if err := d.processBatch(ctx, candidates[batchStart:batchEnd], existingByKey, purchases, datesByIssuer, &sum); err != nil {
			// A malformed batch must not abort detection for the rest of the
			// window.
			d.logWarn("cluster batch failed", err, zap.Int("batch_start", batchStart))
			sum.Errors++
		}
	}

	cutoff := daysAgo(now, d.Config.RetentionDays)
	cleaned, err := d.Repo.DeleteInactiveClusterSignalsBefore(ctx, cutoff)
	if err != nil {
		d.logWarn("cluster cleanup failed", err)
		sum.Errors++
	}
	sum.CleanedUp = int(cleaned)
	return sum
}

// groupPurchases buckets open-market buys by (issuer, date) and keeps groups
// with at least two distinct persons, sorted for deterministic batching.
// Rows dated before since only provide membership context and never seed a
// candidate.
func (d *ClusterDetector) groupPurchases(rows []repository.LedgerRow, since time.Time) []*candidate {
	byKey := map[string]*candidate{}
	for _, r := range rows {
		date := dateOnly(r.TransactionDate)
		if date.Before(since) {
			continue
		}
		key := clusterKey(r.IssuerID, date)
		c, ok := byKey[key]
		if !ok {
			c = &candidate{
				issuerID:    r.IssuerID,
				date:        date,
				persons:     map[string]int{},
				totalShares: decimal.Zero,
				totalValue:  decimal.Zero,
			}
			byKey[key] = c
		}
		c.totalShares = c.totalShares.Add(r.Shares)
		c.totalValue = c.totalValue.Add(r.Value)
		prio := scoring.RolePriority(r.IsOfficer, r.OfficerTitle)
		if cur, ok := c.persons[r.PersonID]; !ok || prio > cur {
			c.persons[r.PersonID] = prio
		}
		if r.IsOfficer && scoring.IsCEOTitle(r.OfficerTitle) {
			c.hasCEO = true
		}
		if r.IsOfficer && scoring.IsCFOTitle(r.OfficerTitle) {
			c.hasCFO = true
		}
		if r.IsTenPercent {
			c.hasTenPct = true
		}
	}

	out := make([]*candidate, 0, len(byKey))
	for _, c := range byKey {
		if len(c.persons) < 2 {
			continue
		}
		c.strength = scoring.ClusterStrength(d.Scoring.Cluster, scoring.ClusterInput{
			InsiderCount:    len(c.persons),
			TotalValue:      c.totalValue,
			AvgRolePriority: c.avgRolePriority(),
			HasCEO:          c.hasCEO,
			HasCFO:          c.hasCFO,
			HasTenPercent:   c.hasTenPct,
		})
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].issuerID != out[j].issuerID {
			return out[i].issuerID < out[j].issuerID
		}
		return out[i].date.Before(out[j].date)
	})
	return out
}

func (d *ClusterDetector) processBatch(
	ctx context.Context,
	batch []*candidate,
	existingByKey map[string]models.ClusterSignal,
	purchases []repository.LedgerRow,
	datesByIssuer map[string][]time.Time,
	sum *RunSummary,
) error {
	window := d.Config.WindowDays

	var (
		inserts       []models.ClusterSignal
		insertCands   []*candidate
		updates       []models.ClusterSignal
		reactivateIDs []uint64
		notifications []notify.ClusterNotification
	)

	touched := map[string]uint64{} // cluster key -> id, filled as ids become known

	for _, c := range batch {
		row := models.ClusterSignal{
			IssuerID:        c.issuerID,
			TransactionDate: c.date,
			InsiderCount:    len(c.persons),
			TotalShares:     c.totalShares,
			TotalValue:      c.totalValue,
			Strength:        c.strength,
			AvgRolePriority: c.avgRolePriority(),
			HasCEOBuy:       c.hasCEO,
			HasCFOBuy:       c.hasCFO,
			HasTenPercent:   c.hasTenPct,
			BuyWindowStart:  c.date.AddDate(0, 0, -window),
			BuyWindowEnd:    c.date.AddDate(0, 0, window),
			IsActive:        true,
		}

		prev, exists := existingByKey[clusterKey(c.issuerID, c.date)]
		if !exists {
			inserts = append(inserts, row)
			insertCands = append(insertCands, c)
			continue
		}

		touched[clusterKey(c.issuerID, c.date)] = prev.ID
		delta := row.Strength - prev.Strength
		if delta < 0 {
			delta = -delta
		}
		if delta > d.Config.StrengthUpdateTolerance {
			row.ID = prev.ID
			updates = append(updates, row)
		} else {
			// Insignificant re-scoring: just bring the row back to life.
			reactivateIDs = append(reactivateIDs, prev.ID)
		}
		if c.strength >= d.Config.NotifyMinStrength {
			notifications = append(notifications, notify.ClusterNotification{
				ClusterID:    prev.ID,
				IssuerID:     c.issuerID,
				Date:         c.date,
				Strength:     c.strength,
				InsiderCount: len(c.persons),
			})
		}
	}

	if err := d.Repo.InsertClusterSignals(ctx, inserts); err != nil {
		return err
	}
	sum.Created += len(inserts)
	for i := range inserts {
		touched[clusterKey(inserts[i].IssuerID, inserts[i].TransactionDate)] = inserts[i].ID
		// New clusters always qualify for a notification.
		notifications = append(notifications, notify.ClusterNotification{
			ClusterID:    inserts[i].ID,
			IssuerID:     inserts[i].IssuerID,
			Date:         inserts[i].TransactionDate,
			Strength:     inserts[i].Strength,
			InsiderCount: len(insertCands[i].persons),
			IsNew:        true,
		})
	}

	for i := range updates {
		if err := d.Repo.UpdateClusterSignal(ctx, &updates[i]); err != nil {
			d.logWarn("cluster update failed", err,
				zap.String("issuer_id", updates[i].IssuerID),
				zap.Time("date", updates[i].TransactionDate))
			sum.Errors++
			continue
		}
		sum.Updated++
	}

	reactivated, err := d.Repo.ReactivateClusterSignals(ctx, reactivateIDs)
	if err != nil {
		return err
	}
	sum.Updated += int(reactivated)

	if err := d.rebuildMembership(ctx, batch, touched, purchases, datesByIssuer); err != nil {
		return err
	}

	for _, n := range notifications {
		if d.Queue == nil {
			break
		}
		if err := d.Queue.EnqueueClusterNotification(ctx, n); err != nil {
			// Fire and forget: delivery is the notification service's job.
			d.logWarn("enqueue cluster notification failed", err, zap.Uint64("cluster_id", n.ClusterID))
		}
	}

	return nil
}

// rebuildMembership deletes and re-derives cluster trades for every touched
// cluster. A purchase joins the cluster of its own issuer whose date is the
// nearest match within the tolerance window.
func (d *ClusterDetector) rebuildMembership(
	ctx context.Context,
	batch []*candidate,
	touched map[string]uint64,
	purchases []repository.LedgerRow,
	datesByIssuer map[string][]time.Time,
) error {
	ids := make([]uint64, 0, len(batch))
	inBatch := map[string]struct{}{}
	for _, c := range batch {
		key := clusterKey(c.issuerID, c.date)
		if id, ok := touched[key]; ok {
			ids = append(ids, id)
			inBatch[key] = struct{}{}
		}
	}
	if err := d.Repo.DeleteClusterTradesByClusterIDs(ctx, ids); err != nil {
		return err
	}

	window := time.Duration(d.Config.WindowDays) * 24 * time.Hour
	var trades []models.ClusterTrade
	for _, r := range purchases {
		nearest, ok := nearestDate(datesByIssuer[r.IssuerID], dateOnly(r.TransactionDate), window)
		if !ok {
			continue
		}
		key := clusterKey(r.IssuerID, nearest)
		if _, ok := inBatch[key]; !ok {
			continue
		}
		trades = append(trades, models.ClusterTrade{
			ClusterID:     touched[key],
			TransactionID: r.TransactionID,
			PersonID:      r.PersonID,
			Shares:        r.Shares,
			Price:         r.PricePerShare,
			Value:         r.Value,
			IsOfficer:     r.IsOfficer,
			IsDirector:    r.IsDirector,
			IsTenPercent:  r.IsTenPercent,
		})
	}
	return d.Repo.InsertClusterTrades(ctx, trades)
}

// nearestDate picks the candidate date closest to target, within tolerance.
// Ties break toward the earlier date.
func nearestDate(dates []time.Time, target time.Time, tolerance time.Duration) (time.Time, bool) {
	var (
		best     time.Time
		bestDiff time.Duration
		found    bool
	)
	for _, dt := range dates {
		diff := dt.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			continue
		}
		if !found || diff < bestDiff || (diff == bestDiff && dt.Before(best)) {
			best = dt
			bestDiff = diff
			found = true
		}
	}
	return best, found
}

func clusterKey(issuerID string, date time.Time) string {
	return issuerID + "|" + dateOnly(date).Format("2006-01-02")
}

func (d *ClusterDetector) logWarn(msg string, err error, fields ...zap.Field) {
	if d == nil || d.Logger == nil {
		return
	}
	d.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
