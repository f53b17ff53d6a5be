package detector

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"insiderpulse/internal/config"
	"insiderpulse/internal/models"
	"insiderpulse/internal/repository"
)

// RatioSentinel stands in for the buy/sell value ratio on days with buying
// but no selling, so trend charts can still rank such days.
const RatioSentinel = 9999.0

// MetricsAggregator rolls the three signal tables plus raw ledger activity
// into one row per calendar date. It must run after the other processors in
// an orchestrated pass because it reads their output.
type MetricsAggregator struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	Config    config.MetricsConfig
	BatchSize int
}

func (a *MetricsAggregator) Run(ctx context.Context) RunSummary {
	start := time.Now()
	sum := RunSummary{Processor: ProcessorMetrics}
	defer func() { sum.Duration = time.Since(start) }()

	now := time.Now().UTC()
	since := daysAgo(now, a.Config.LookbackDays)

	// One grouped query per source table instead of one query per day.
	clusterRows, err := a.Repo.ClusterDailyRows(ctx, since)
	if err != nil {
		a.logWarn("cluster daily rows failed", err)
		return sum.fail(err)
	}
	ledgerRows, err := a.Repo.LedgerDailyRows(ctx, since)
	if err != nil {
		a.logWarn("ledger daily rows failed", err)
		return sum.fail(err)
	}
	firstBuyRows, err := a.Repo.FirstBuyDailyRows(ctx, since)
	if err != nil {
		a.logWarn("first-buy daily rows failed", err)
		return sum.fail(err)
	}
	importanceRows, err := a.Repo.ImportanceDailyRows(ctx, since)
	if err != nil {
		a.logWarn("importance daily rows failed", err)
		return sum.fail(err)
	}

	byDate := map[time.Time]*models.DailyMetrics{}
	dayFor := func(t time.Time) *models.DailyMetrics {
		d := dateOnly(t)
		m, ok := byDate[d]
		if !ok {
			m = &models.DailyMetrics{
				Date:              d,
				ClusterTotalValue: decimal.Zero,
				BuyValue:          decimal.Zero,
				SellValue:         decimal.Zero,
			}
			byDate[d] = m
		}
		return m
	}
	// Generate the full date series so quiet days get an explicit zero row.
	// Both endpoints are included: lookbackDays back through today, matching
	// the >= since filter of the grouped queries.
	for i := 0; i <= a.Config.LookbackDays; i++ {
		dayFor(since.AddDate(0, 0, i))
	}

	for _, r := range clusterRows {
		m := dayFor(r.Date)
		m.ClusterCount = r.ClusterCount
		m.ClusterInsiders = r.InsiderTotal
		m.ClusterTotalValue = r.TotalValue
	}
	for _, r := range ledgerRows {
		m := dayFor(r.Date)
		m.BuyCount = r.BuyCount
		m.SellCount = r.SellCount
		m.BuyValue = r.BuyValue
		m.SellValue = r.SellValue
	}
	for _, r := range firstBuyRows {
		dayFor(r.Date).FirstBuyCount = r.Count
	}
	for _, r := range importanceRows {
		m := dayFor(r.Date)
		m.ImportanceCount = r.Count
		m.AvgImportanceScore = r.AvgScore
	}

	items := make([]models.DailyMetrics, 0, len(byDate))
	for _, m := range byDate {
		m.BuySellRatio = buySellRatio(m.BuyValue, m.SellValue)
		items = append(items, *m)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Date.Before(items[j].Date) })
	sum.Processed = len(items)

	batchSize := a.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	for batchStart := 0; batchStart < len(items); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(items) {
			batchEnd = len(items)
		}
		if err := a.Repo.UpsertDailyMetrics(ctx, items[batchStart:batchEnd]); err != nil {
			a.logWarn("daily metrics batch upsert failed", err, zap.Int("batch_start", batchStart))
			sum.Errors++
			continue
		}
		sum.Updated += batchEnd - batchStart
	}
	return sum
}

// buySellRatio applies the sentinel rule: sell value present means a plain
// ratio, buys with zero sells means the sentinel, neither means zero.
func buySellRatio(buy, sell decimal.Decimal) float64 {
	if sell.IsPositive() {
		ratio, _ := buy.Div(sell).Float64()
		return ratio
	}
	if buy.IsPositive() {
		return RatioSentinel
	}
	return 0
}

func (a *MetricsAggregator) logWarn(msg string, err error, fields ...zap.Field) {
	if a == nil || a.Logger == nil {
		return
	}
	a.Logger.Warn(msg, append(fields, zap.Error(err))...)
}
