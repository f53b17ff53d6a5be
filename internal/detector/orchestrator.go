package detector

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"insiderpulse/internal/config"
	"insiderpulse/internal/models"
	"insiderpulse/internal/notify"
	"insiderpulse/internal/repository"
)

// Orchestrator runs one full refresh pass: the three detectors first (their
// tables are disjoint, so they run concurrently), then the metrics
// aggregator, which reads what they wrote. Each pass is recorded as a
// RefreshRun.
type Orchestrator struct {
	Repo   repository.Repository
	Queue  notify.Queue
	Logger *zap.Logger

	Pipeline config.PipelineConfig
	Scoring  config.ScoringConfig

	mu sync.Mutex
}

func (o *Orchestrator) RunOnce(ctx context.Context) []RunSummary {
	// A run may outlast the cron interval; overlapping passes would fight
	// over the mark-inactive sweep.
	if !o.mu.TryLock() {
		if o.Logger != nil {
			o.Logger.Warn("refresh already running, skipping this trigger")
		}
		return nil
	}
	defer o.mu.Unlock()

	startedAt := time.Now().UTC()

	cluster := &ClusterDetector{
		Repo:      o.Repo,
		Queue:     o.Queue,
		Logger:    o.Logger,
		Config:    o.Pipeline.Cluster,
		Scoring:   o.Scoring,
		BatchSize: o.Pipeline.BatchSize,
	}
	important := &ImportantTradeDetector{
		Repo:      o.Repo,
		Logger:    o.Logger,
		Config:    o.Pipeline.Important,
		Scoring:   o.Scoring,
		BatchSize: o.Pipeline.BatchSize,
	}
	firstBuy := &FirstBuyDetector{
		Repo:      o.Repo,
		Logger:    o.Logger,
		Config:    o.Pipeline.FirstBuy,
		Scoring:   o.Scoring,
		BatchSize: o.Pipeline.BatchSize,
	}
	metrics := &MetricsAggregator{
		Repo:      o.Repo,
		Logger:    o.Logger,
		Config:    o.Pipeline.Metrics,
		BatchSize: o.Pipeline.BatchSize,
	}

	summaries := make([]RunSummary, 3)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); summaries[0] = cluster.Run(ctx) }()
	go func() { defer wg.Done(); summaries[1] = important.Run(ctx) }()
	go func() { defer wg.Done(); summaries[2] = firstBuy.Run(ctx) }()
	wg.Wait()

	// The aggregator must observe the detectors' completed writes.
	summaries = append(summaries, metrics.Run(ctx))

	succeeded := true
	for _, s := range summaries {
		if s.Failed {
			succeeded = false
		}
		o.logSummary(s)
	}

	o.persistRun(ctx, startedAt, succeeded, summaries)
	return summaries
}

func (o *Orchestrator) logSummary(s RunSummary) {
	if o.Logger == nil {
		return
	}
	if s.Failed {
		o.Logger.Warn("processor failed",
			zap.String("processor", s.Processor),
			zap.String("error", s.Error),
			zap.Duration("duration", s.Duration),
		)
		return
	}
	o.Logger.Info("processor finished",
		zap.String("processor", s.Processor),
		zap.Int("processed", s.Processed),
		zap.Int("created", s.Created),
		zap.Int("updated", s.Updated),
		zap.Int("cleaned_up", s.CleanedUp),
		zap.Int("errors", s.Errors),
		zap.Duration("duration", s.Duration),
	)
}

func (o *Orchestrator) persistRun(ctx context.Context, startedAt time.Time, succeeded bool, summaries []RunSummary) {
	byProcessor := map[string]RunSummary{}
	for _, s := range summaries {
		byProcessor[s.Processor] = s
	}
	raw, err := json.Marshal(byProcessor)
	if err != nil {
		raw = []byte(`{}`)
	}
	run := &models.RefreshRun{
		ID:         uuid.NewString(),
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Succeeded:  succeeded,
		StatsJSON:  datatypes.JSON(raw),
	}
	if err := o.Repo.InsertRefreshRun(ctx, run); err != nil && o.Logger != nil {
		o.Logger.Warn("persist refresh run failed", zap.Error(err))
	}
}
