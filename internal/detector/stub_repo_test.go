package detector

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"insiderpulse/internal/models"
	"insiderpulse/internal/notify"
	"insiderpulse/internal/repository"
)

// stubRepo is an in-memory repository.Repository. The detectors run
// concurrently under the orchestrator, so every method takes the lock.
type stubRepo struct {
	mu sync.Mutex

	ledger []repository.LedgerRow

	clusters   []models.ClusterSignal
	trades     []models.ClusterTrade
	importance []models.ImportanceSignal
	firstBuys  []models.FirstBuySignal
	metrics    []models.DailyMetrics
	runs       []models.RefreshRun

	nextID uint64

	// Fault injection.
	countPriorErrFor         map[string]error // keyed by person id
	failImportanceUpsertCall int              // 1-based call number, 0 = never
	importanceUpsertCalls    int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		nextID:           1,
		countPriorErrFor: map[string]error{},
	}
}

func (r *stubRepo) nextIDLocked() uint64 {
	id := r.nextID
	r.nextID++
	return id
}

func isOpenMarketBuy(row repository.LedgerRow) bool {
	return row.TransactionCode == models.CodePurchase &&
		row.AcquiredDisposed == models.Acquired &&
		row.PricePerShare.IsPositive()
}

// --- ledger reads ------------------------------------------------------------

func (r *stubRepo) ListOpenMarketPurchases(ctx context.Context, since time.Time) ([]repository.LedgerRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.LedgerRow
	for _, row := range r.ledger {
		if isOpenMarketBuy(row) && !row.TransactionDate.Before(since) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stubRepo) ListRecentlyFiledPurchases(ctx context.Context, filedSince time.Time) ([]repository.LedgerRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.LedgerRow
	for _, row := range r.ledger {
		if isOpenMarketBuy(row) && !row.FiledAt.Before(filedSince) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stubRepo) ListPricedTransactions(ctx context.Context, since time.Time) ([]repository.LedgerRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.LedgerRow
	for _, row := range r.ledger {
		if row.TransactionCode != models.CodeAward &&
			row.PricePerShare.IsPositive() &&
			!row.TransactionDate.Before(since) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stubRepo) CountPriorPurchases(ctx context.Context, personID, issuerID string, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.countPriorErrFor[personID]; err != nil {
		return 0, err
	}
	var count int64
	for _, row := range r.ledger {
		if row.PersonID != personID || row.IssuerID != issuerID || !isOpenMarketBuy(row) {
			continue
		}
		d := dateOnly(row.TransactionDate)
		if !d.Before(start) && !d.After(end) {
			count++
		}
	}
	return count, nil
}

// --- soft invalidation -------------------------------------------------------

func (r *stubRepo) DeactivateClusterSignals(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.clusters {
		if r.clusters[i].IsActive {
			r.clusters[i].IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) DeactivateImportanceSignals(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.importance {
		if r.importance[i].IsActive {
			r.importance[i].IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) DeactivateFirstBuySignals(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.firstBuys {
		if r.firstBuys[i].IsActive {
			r.firstBuys[i].IsActive = false
			n++
		}
	}
	return n, nil
}

// --- cluster signals ---------------------------------------------------------

func (r *stubRepo) ListClusterSignalsSince(ctx context.Context, since time.Time) ([]models.ClusterSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ClusterSignal
	for _, c := range r.clusters {
		if !c.TransactionDate.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubRepo) InsertClusterSignals(ctx context.Context, items []models.ClusterSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range items {
		items[i].ID = r.nextIDLocked()
		r.clusters = append(r.clusters, items[i])
	}
	return nil
}

func (r *stubRepo) UpdateClusterSignal(ctx context.Context, item *models.ClusterSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.clusters {
		if r.clusters[i].ID == item.ID {
			keepCreated := r.clusters[i].CreatedAt
			r.clusters[i] = *item
			r.clusters[i].IsActive = true
			r.clusters[i].CreatedAt = keepCreated
			return nil
		}
	}
	return nil
}

func (r *stubRepo) ReactivateClusterSignals(ctx context.Context, ids []uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[uint64]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var n int64
	for i := range r.clusters {
		if _, ok := want[r.clusters[i].ID]; ok {
			r.clusters[i].IsActive = true
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) DeleteClusterTradesByClusterIDs(ctx context.Context, clusterIDs []uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := map[uint64]struct{}{}
	for _, id := range clusterIDs {
		drop[id] = struct{}{}
	}
	kept := r.trades[:0]
	for _, t := range r.trades {
		if _, ok := drop[t.ClusterID]; !ok {
			kept = append(kept, t)
		}
	}
	r.trades = kept
	return nil
}

func (r *stubRepo) InsertClusterTrades(ctx context.Context, items []models.ClusterTrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range items {
		items[i].ID = r.nextIDLocked()
		r.trades = append(r.trades, items[i])
	}
	return nil
}

// --- per-transaction signals -------------------------------------------------

func (r *stubRepo) ListImportanceTransactionIDs(ctx context.Context, since time.Time) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint64
	for _, s := range r.importance {
		if !s.TransactionDate.Before(since) {
			ids = append(ids, s.TransactionID)
		}
	}
	return ids, nil
}

func (r *stubRepo) ListFirstBuyTransactionIDs(ctx context.Context, since time.Time) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint64
	for _, s := range r.firstBuys {
		if !s.TransactionDate.Before(since) {
			ids = append(ids, s.TransactionID)
		}
	}
	return ids, nil
}

func (r *stubRepo) UpsertImportanceSignals(ctx context.Context, items []models.ImportanceSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.importanceUpsertCalls++
	if r.failImportanceUpsertCall > 0 && r.importanceUpsertCalls == r.failImportanceUpsertCall {
		return errStubUpsert
	}
	for _, item := range items {
		replaced := false
		for i := range r.importance {
			if r.importance[i].TransactionID == item.TransactionID {
				item.ID = r.importance[i].ID
				r.importance[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			item.ID = r.nextIDLocked()
			r.importance = append(r.importance, item)
		}
	}
	return nil
}

func (r *stubRepo) UpsertFirstBuySignals(ctx context.Context, items []models.FirstBuySignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		replaced := false
		for i := range r.firstBuys {
			if r.firstBuys[i].TransactionID == item.TransactionID {
				item.ID = r.firstBuys[i].ID
				r.firstBuys[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			item.ID = r.nextIDLocked()
			r.firstBuys = append(r.firstBuys, item)
		}
	}
	return nil
}

func (r *stubRepo) UpsertDailyMetrics(ctx context.Context, items []models.DailyMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		replaced := false
		for i := range r.metrics {
			if r.metrics[i].Date.Equal(item.Date) {
				item.ID = r.metrics[i].ID
				r.metrics[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			item.ID = r.nextIDLocked()
			r.metrics = append(r.metrics, item)
		}
	}
	return nil
}

// --- cleanup -----------------------------------------------------------------

func (r *stubRepo) DeleteInactiveClusterSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	kept := r.clusters[:0]
	for _, c := range r.clusters {
		if !c.IsActive && !c.TransactionDate.After(cutoff) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	r.clusters = kept
	return n, nil
}

func (r *stubRepo) DeleteInactiveImportanceSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	kept := r.importance[:0]
	for _, s := range r.importance {
		if !s.IsActive && !s.DetectedAt.After(cutoff) {
			n++
			continue
		}
		kept = append(kept, s)
	}
	r.importance = kept
	return n, nil
}

func (r *stubRepo) DeleteInactiveFirstBuySignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	kept := r.firstBuys[:0]
	for _, s := range r.firstBuys {
		if !s.IsActive && !s.DetectedAt.After(cutoff) {
			n++
			continue
		}
		kept = append(kept, s)
	}
	r.firstBuys = kept
	return n, nil
}

// --- daily aggregates --------------------------------------------------------

func (r *stubRepo) ClusterDailyRows(ctx context.Context, since time.Time) ([]repository.ClusterDailyRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDate := map[time.Time]*repository.ClusterDailyRow{}
	for _, c := range r.clusters {
		if !c.IsActive || c.TransactionDate.Before(since) {
			continue
		}
		d := dateOnly(c.TransactionDate)
		row, ok := byDate[d]
		if !ok {
			row = &repository.ClusterDailyRow{Date: d, TotalValue: decimal.Zero}
			byDate[d] = row
		}
		row.ClusterCount++
		row.InsiderTotal += c.InsiderCount
		row.TotalValue = row.TotalValue.Add(c.TotalValue)
	}
	var out []repository.ClusterDailyRow
	for _, row := range byDate {
		out = append(out, *row)
	}
	return out, nil
}

func (r *stubRepo) LedgerDailyRows(ctx context.Context, since time.Time) ([]repository.LedgerDailyRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDate := map[time.Time]*repository.LedgerDailyRow{}
	for _, row := range r.ledger {
		if row.TransactionDate.Before(since) {
			continue
		}
		d := dateOnly(row.TransactionDate)
		agg, ok := byDate[d]
		if !ok {
			agg = &repository.LedgerDailyRow{Date: d, BuyValue: decimal.Zero, SellValue: decimal.Zero}
			byDate[d] = agg
		}
		switch {
		case row.TransactionCode == models.CodePurchase && row.AcquiredDisposed == models.Acquired:
			agg.BuyCount++
			agg.BuyValue = agg.BuyValue.Add(row.Value)
		case row.TransactionCode == models.CodeSale && row.AcquiredDisposed == models.Disposed:
			agg.SellCount++
			agg.SellValue = agg.SellValue.Add(row.Value)
		}
	}
	var out []repository.LedgerDailyRow
	for _, agg := range byDate {
		out = append(out, *agg)
	}
	return out, nil
}

func (r *stubRepo) FirstBuyDailyRows(ctx context.Context, since time.Time) ([]repository.FirstBuyDailyRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDate := map[time.Time]int{}
	for _, s := range r.firstBuys {
		if !s.IsActive || s.TransactionDate.Before(since) {
			continue
		}
		byDate[dateOnly(s.TransactionDate)]++
	}
	var out []repository.FirstBuyDailyRow
	for d, n := range byDate {
		out = append(out, repository.FirstBuyDailyRow{Date: d, Count: n})
	}
	return out, nil
}

func (r *stubRepo) ImportanceDailyRows(ctx context.Context, since time.Time) ([]repository.ImportanceDailyRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type agg struct {
		count int
		total float64
	}
	byDate := map[time.Time]*agg{}
	for _, s := range r.importance {
		if !s.IsActive || s.TransactionDate.Before(since) {
			continue
		}
		d := dateOnly(s.TransactionDate)
		a, ok := byDate[d]
		if !ok {
			a = &agg{}
			byDate[d] = a
		}
		a.count++
		a.total += s.Score
	}
	var out []repository.ImportanceDailyRow
	for d, a := range byDate {
		out = append(out, repository.ImportanceDailyRow{Date: d, Count: a.count, AvgScore: a.total / float64(a.count)})
	}
	return out, nil
}

// --- run history -------------------------------------------------------------

func (r *stubRepo) InsertRefreshRun(ctx context.Context, item *models.RefreshRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *item)
	return nil
}

func (r *stubRepo) ListRefreshRuns(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RefreshRun, len(r.runs))
	copy(out, r.runs)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *stubRepo) ActiveSignalCounts(ctx context.Context) (repository.SignalCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var counts repository.SignalCounts
	for _, c := range r.clusters {
		if c.IsActive {
			counts.Clusters++
		}
	}
	for _, s := range r.importance {
		if s.IsActive {
			counts.ImportantTrades++
		}
	}
	for _, s := range r.firstBuys {
		if s.IsActive {
			counts.FirstBuys++
		}
	}
	return counts, nil
}

// --- test-side accessors -----------------------------------------------------

func (r *stubRepo) activeClusters() []models.ClusterSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ClusterSignal
	for _, c := range r.clusters {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

func (r *stubRepo) activeImportance() []models.ImportanceSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ImportanceSignal
	for _, s := range r.importance {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

func (r *stubRepo) activeFirstBuys() []models.FirstBuySignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.FirstBuySignal
	for _, s := range r.firstBuys {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

func (r *stubRepo) metricsFor(date time.Time) (models.DailyMetrics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.metrics {
		if m.Date.Equal(dateOnly(date)) {
			return m, true
		}
	}
	return models.DailyMetrics{}, false
}

// stubQueue records enqueued cluster notifications.
type stubQueue struct {
	mu   sync.Mutex
	sent []notify.ClusterNotification
}

func (q *stubQueue) EnqueueClusterNotification(ctx context.Context, n notify.ClusterNotification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, n)
	return nil
}

func (q *stubQueue) notifications() []notify.ClusterNotification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]notify.ClusterNotification, len(q.sent))
	copy(out, q.sent)
	return out
}
