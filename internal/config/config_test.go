package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.BatchSize != 500 {
		t.Fatalf("batch size: got %d, want 500", cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.Cluster.LookbackDays != 30 || cfg.Pipeline.Cluster.WindowDays != 3 {
		t.Fatalf("cluster windows: %+v", cfg.Pipeline.Cluster)
	}
	if cfg.Pipeline.FirstBuy.LookbackDays != 365 || cfg.Pipeline.FirstBuy.RetentionDays != 90 {
		t.Fatalf("first-buy windows: %+v", cfg.Pipeline.FirstBuy)
	}
	if cfg.Pipeline.Cluster.NotifyMinStrength != 75 {
		t.Fatalf("notify threshold: got %.0f, want 75", cfg.Pipeline.Cluster.NotifyMinStrength)
	}
	if cfg.Scoring.FirstBuyBonus != 40 {
		t.Fatalf("first-buy bonus: got %.0f, want 40", cfg.Scoring.FirstBuyBonus)
	}
	if cfg.Scoring.Cluster.MaxScore != 100 {
		t.Fatalf("cluster max score: got %.0f, want 100", cfg.Scoring.Cluster.MaxScore)
	}
	if cfg.Cron.Refresh != "@every 30m" {
		t.Fatalf("refresh schedule: got %q", cfg.Cron.Refresh)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("IP_PIPELINE_BATCH_SIZE", "100")
	t.Setenv("IP_PIPELINE_CLUSTER_LOOKBACK_DAYS", "14")
	t.Setenv("IP_REDIS_ENABLED", "true")

	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.BatchSize != 100 {
		t.Fatalf("batch size override: got %d, want 100", cfg.Pipeline.BatchSize)
	}
	if cfg.Pipeline.Cluster.LookbackDays != 14 {
		t.Fatalf("lookback override: got %d, want 14", cfg.Pipeline.Cluster.LookbackDays)
	}
	if !cfg.Redis.Enabled {
		t.Fatalf("redis enabled override not applied")
	}
}
