package db

import (
	"insiderpulse/internal/models"
)

// AutoMigrate creates the pipeline-owned tables. The filing transaction
// ledger and person roles are owned by the ingest service and are never
// migrated or written from here.
func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.ClusterSignal{},
		&models.ClusterTrade{},
		&models.ImportanceSignal{},
		&models.FirstBuySignal{},
		&models.DailyMetrics{},
		&models.RefreshRun{},
	)
}
