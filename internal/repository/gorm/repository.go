package gormrepository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"insiderpulse/internal/models"
	"insiderpulse/internal/repository"
)

type Store struct {
	db        *gorm.DB
	batchSize int
}

func New(db *gorm.DB, batchSize int) *Store {
	if batchSize <= 0 || batchSize > 1000 {
		batchSize = 500
	}
	return &Store{db: db, batchSize: batchSize}
}

const ledgerRoleJoin = `LEFT JOIN filing_person_roles AS r ON r.filing_id = t.filing_id AND r.person_id = t.person_id`

const ledgerSelect = `
	t.id AS transaction_id,
	t.filing_id AS filing_id,
	t.issuer_id AS issuer_id,
	t.person_id AS person_id,
	t.transaction_date AS transaction_date,
	t.transaction_code AS transaction_code,
	t.acquired_disposed AS acquired_disposed,
	t.shares AS shares,
	COALESCE(t.price_per_share, 0) AS price_per_share,
	COALESCE(t.value, 0) AS value,
	t.shares_owned_after AS shares_owned_after,
	t.direct_indirect AS direct_indirect,
	t.is_planned AS is_planned,
	t.filed_at AS filed_at,
	COALESCE(r.is_officer, false) AS is_officer,
	COALESCE(r.is_director, false) AS is_director,
	COALESCE(r.is_ten_percent_owner, false) AS is_ten_percent,
	COALESCE(r.officer_title, '') AS officer_title
`

// --- ledger reads (read-only) ----------------------------------------------

func (s *Store) ListOpenMarketPurchases(ctx context.Context, since time.Time) ([]repository.LedgerRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.LedgerRow
	err := s.db.WithContext(ctx).
		Table("filing_transactions AS t").
		Select(ledgerSelect).
		Joins(ledgerRoleJoin).
		Where("t.transaction_code = ?", models.CodePurchase).
		Where("t.acquired_disposed = ?", models.Acquired).
		Where("t.price_per_share IS NOT NULL AND t.price_per_share > 0").
		Where("t.transaction_date >= ?", since).
		Order("t.issuer_id asc, t.transaction_date asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListRecentlyFiledPurchases(ctx context.Context, filedSince time.Time) ([]repository.LedgerRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.LedgerRow
	err := s.db.WithContext(ctx).
		Table("filing_transactions AS t").
		Select(ledgerSelect).
		Joins(ledgerRoleJoin).
		Where("t.transaction_code = ?", models.CodePurchase).
		Where("t.acquired_disposed = ?", models.Acquired).
		Where("t.price_per_share IS NOT NULL AND t.price_per_share > 0").
		Where("t.filed_at >= ?", filedSince).
		Order("t.filed_at asc, t.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListPricedTransactions(ctx context.Context, since time.Time) ([]repository.LedgerRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.LedgerRow
	err := s.db.WithContext(ctx).
		Table("filing_transactions AS t").
		Select(ledgerSelect).
		Joins(ledgerRoleJoin).
		Where("t.transaction_code <> ?", models.CodeAward).
		Where("t.price_per_share IS NOT NULL AND t.price_per_share > 0").
		Where("t.transaction_date >= ?", since).
		Order("t.transaction_date asc, t.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountPriorPurchases(ctx context.Context, personID, issuerID string, start, end time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("person_id = ?", personID).
		Where("issuer_id = ?", issuerID).
		Where("transaction_code = ?", models.CodePurchase).
		Where("acquired_disposed = ?", models.Acquired).
		Where("price_per_share IS NOT NULL AND price_per_share > 0").
		Where("transaction_date >= ? AND transaction_date <= ?", start, end).
		Count(&count).Error
	return count, err
}

// --- phase 1: soft invalidation --------------------------------------------

func (s *Store) DeactivateClusterSignals(ctx context.Context) (int64, error) {
	return s.deactivate(ctx, &models.ClusterSignal{})
}

func (s *Store) DeactivateImportanceSignals(ctx context.Context) (int64, error) {
	return s.deactivate(ctx, &models.ImportanceSignal{})
}

func (s *Store) DeactivateFirstBuySignals(ctx context.Context) (int64, error) {
	return s.deactivate(ctx, &models.FirstBuySignal{})
}

func (s *Store) deactivate(ctx context.Context, model any) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(model).
		Where("is_active = ?", true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// --- cluster signals --------------------------------------------------------

func (s *Store) ListClusterSignalsSince(ctx context.Context, since time.Time) ([]models.ClusterSignal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.ClusterSignal
	err := s.db.WithContext(ctx).
		Model(&models.ClusterSignal{}).
		Where("transaction_date >= ?", since).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertClusterSignals(ctx context.Context, items []models.ClusterSignal) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, s.batchSize).Error
}

// UpdateClusterSignal rewrites every derived field of an existing cluster.
// Partial edits are not allowed outside a full-field update.
func (s *Store) UpdateClusterSignal(ctx context.Context, item *models.ClusterSignal) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.ClusterSignal{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"insider_count":         item.InsiderCount,
			"total_shares":          item.TotalShares,
			"total_value":           item.TotalValue,
			"strength":              item.Strength,
			"avg_role_priority":     item.AvgRolePriority,
			"has_ceo_buy":           item.HasCEOBuy,
			"has_cfo_buy":           item.HasCFOBuy,
			"has_ten_percent_owner": item.HasTenPercent,
			"buy_window_start":      item.BuyWindowStart,
			"buy_window_end":        item.BuyWindowEnd,
			"is_active":             true,
			"updated_at":            time.Now().UTC(),
		}).Error
}

func (s *Store) ReactivateClusterSignals(ctx context.Context, ids []uint64) (int64, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return 0, nil
	}
	var total int64
	for _, chunk := range chunkIDs(ids, s.batchSize) {
		res := s.db.WithContext(ctx).
			Model(&models.ClusterSignal{}).
			Where("id IN ?", chunk).
			Updates(map[string]any{
				"is_active":  true,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (s *Store) DeleteClusterTradesByClusterIDs(ctx context.Context, clusterIDs []uint64) error {
	if s == nil || s.db == nil || len(clusterIDs) == 0 {
		return nil
	}
	for _, chunk := range chunkIDs(clusterIDs, s.batchSize) {
		if err := s.db.WithContext(ctx).
			Where("cluster_id IN ?", chunk).
			Delete(&models.ClusterTrade{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) InsertClusterTrades(ctx context.Context, items []models.ClusterTrade) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, s.batchSize).Error
}

// --- per-transaction signals ------------------------------------------------

func (s *Store) ListImportanceTransactionIDs(ctx context.Context, since time.Time) ([]uint64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&models.ImportanceSignal{}).
		Where("transaction_date >= ?", since).
		Pluck("transaction_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) ListFirstBuyTransactionIDs(ctx context.Context, since time.Time) ([]uint64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&models.FirstBuySignal{}).
		Where("transaction_date >= ?", since).
		Pluck("transaction_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) UpsertImportanceSignals(ctx context.Context, items []models.ImportanceSignal) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "transaction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"issuer_id",
			"person_id",
			"transaction_date",
			"score",
			"value_score",
			"direction_score",
			"role_score",
			"ownership_score",
			"cluster_score",
			"timing_score",
			"cluster_size",
			"is_purchase",
			"is_sale",
			"is_planned",
			"is_active",
			"detected_at",
			"updated_at",
		}),
	}).CreateInBatches(items, s.batchSize).Error
}

func (s *Store) UpsertFirstBuySignals(ctx context.Context, items []models.FirstBuySignal) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "transaction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"person_id",
			"issuer_id",
			"transaction_date",
			"lookback_days",
			"score",
			"in_cluster",
			"cluster_size",
			"is_active",
			"detected_at",
			"updated_at",
		}),
	}).CreateInBatches(items, s.batchSize).Error
}

func (s *Store) UpsertDailyMetrics(ctx context.Context, items []models.DailyMetrics) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cluster_count",
			"cluster_insiders",
			"cluster_total_value",
			"buy_count",
			"sell_count",
			"buy_value",
			"sell_value",
			"buy_sell_ratio",
			"first_buy_count",
			"importance_count",
			"avg_importance_score",
			"updated_at",
		}),
	}).CreateInBatches(items, s.batchSize).Error
}

// --- phase 3: cleanup -------------------------------------------------------

func (s *Store) DeleteInactiveClusterSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("is_active = ?", false).
		Where("transaction_date <= ?", cutoff).
		Delete(&models.ClusterSignal{})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteInactiveImportanceSignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("is_active = ?", false).
		Where("detected_at <= ?", cutoff).
		Delete(&models.ImportanceSignal{})
	return res.RowsAffected, res.Error
}

func (s *Store) DeleteInactiveFirstBuySignalsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("is_active = ?", false).
		Where("detected_at <= ?", cutoff).
		Delete(&models.FirstBuySignal{})
	return res.RowsAffected, res.Error
}

// --- daily aggregates -------------------------------------------------------

func (s *Store) ClusterDailyRows(ctx context.Context, since time.Time) ([]repository.ClusterDailyRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.ClusterDailyRow
	err := s.db.WithContext(ctx).
		Model(&models.ClusterSignal{}).
		Select(`
			transaction_date AS date,
			COUNT(*) AS cluster_count,
			COALESCE(SUM(insider_count),0) AS insider_total,
			COALESCE(SUM(total_value),0) AS total_value
		`).
		Where("is_active = ?", true).
		Where("transaction_date >= ?", since).
		Group("transaction_date").
		Order("transaction_date asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) LedgerDailyRows(ctx context.Context, since time.Time) ([]repository.LedgerDailyRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.LedgerDailyRow
	err := s.db.WithContext(ctx).
		Table("filing_transactions").
		Select(`
			transaction_date AS date,
			COALESCE(SUM(CASE WHEN transaction_code = 'P' AND acquired_disposed = 'A' THEN 1 ELSE 0 END),0) AS buy_count,
			COALESCE(SUM(CASE WHEN transaction_code = 'S' AND acquired_disposed = 'D' THEN 1 ELSE 0 END),0) AS sell_count,
			COALESCE(SUM(CASE WHEN transaction_code = 'P' AND acquired_disposed = 'A' THEN COALESCE(value,0) ELSE 0 END),0) AS buy_value,
			COALESCE(SUM(CASE WHEN transaction_code = 'S' AND acquired_disposed = 'D' THEN COALESCE(value,0) ELSE 0 END),0) AS sell_value
		`).
		Where("transaction_date >= ?", since).
		Group("transaction_date").
		Order("transaction_date asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) FirstBuyDailyRows(ctx context.Context, since time.Time) ([]repository.FirstBuyDailyRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.FirstBuyDailyRow
	err := s.db.WithContext(ctx).
		Model(&models.FirstBuySignal{}).
		Select(`transaction_date AS date, COUNT(*) AS count`).
		Where("is_active = ?", true).
		Where("transaction_date >= ?", since).
		Group("transaction_date").
		Order("transaction_date asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ImportanceDailyRows(ctx context.Context, since time.Time) ([]repository.ImportanceDailyRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.ImportanceDailyRow
	err := s.db.WithContext(ctx).
		Model(&models.ImportanceSignal{}).
		Select(`transaction_date AS date, COUNT(*) AS count, COALESCE(AVG(score),0) AS avg_score`).
		Where("is_active = ?", true).
		Where("transaction_date >= ?", since).
		Group("transaction_date").
		Order("transaction_date asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- run history ------------------------------------------------------------

func (s *Store) InsertRefreshRun(ctx context.Context, item *models.RefreshRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListRefreshRuns(ctx context.Context, limit int) ([]models.RefreshRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 20)
	var items []models.RefreshRun
	err := s.db.WithContext(ctx).
		Model(&models.RefreshRun{}).
		Order("started_at desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ActiveSignalCounts(ctx context.Context) (repository.SignalCounts, error) {
	if s == nil || s.db == nil {
		return repository.SignalCounts{}, nil
	}
	var counts repository.SignalCounts
	if err := s.db.WithContext(ctx).
		Model(&models.ClusterSignal{}).
		Where("is_active = ?", true).
		Count(&counts.Clusters).Error; err != nil {
		return counts, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.ImportanceSignal{}).
		Where("is_active = ?", true).
		Count(&counts.ImportantTrades).Error; err != nil {
		return counts, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.FirstBuySignal{}).
		Where("is_active = ?", true).
		Count(&counts.FirstBuys).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

func chunkIDs(ids []uint64, size int) [][]uint64 {
	if size <= 0 {
		size = 500
	}
	var out [][]uint64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}
