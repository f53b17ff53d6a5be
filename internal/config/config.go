package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cron     CronConfig     `mapstructure:"cron"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Queue    string `mapstructure:"queue"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Refresh string `mapstructure:"refresh"`
}

// PipelineConfig carries the window, threshold and retention knobs for the
// four signal processors. Retention windows differ per signal type: first-buy
// history is kept longer because it feeds comparative trend charts.
type PipelineConfig struct {
	BatchSize int `mapstructure:"batch_size"`

	Cluster   ClusterConfig   `mapstructure:"cluster"`
	Important ImportantConfig `mapstructure:"important"`
	FirstBuy  FirstBuyConfig  `mapstructure:"first_buy"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ClusterConfig struct {
	LookbackDays  int `mapstructure:"lookback_days"`
	WindowDays    int `mapstructure:"window_days"`
	RetentionDays int `mapstructure:"retention_days"`

	// Re-scoring an existing cluster skips the full-field update when the new
	// strength is within this tolerance of the stored one.
	StrengthUpdateTolerance float64 `mapstructure:"strength_update_tolerance"`

	// Strength at or above which an existing cluster still qualifies for a
	// notification; newly created clusters always qualify.
	NotifyMinStrength float64 `mapstructure:"notify_min_strength"`
}

type ImportantConfig struct {
	LookbackDays  int     `mapstructure:"lookback_days"`
	MinScore      float64 `mapstructure:"min_score"`
	RetentionDays int     `mapstructure:"retention_days"`
}

type FirstBuyConfig struct {
	RecentDays    int `mapstructure:"recent_days"`
	LookbackDays  int `mapstructure:"lookback_days"`
	RetentionDays int `mapstructure:"retention_days"`
}

type MetricsConfig struct {
	LookbackDays int `mapstructure:"lookback_days"`
}

// ScoringConfig exposes every per-factor point value as named configuration
// so tests and operators can assert on specific thresholds without magic
// numbers. The single-trade value scale and the cluster value scale are
// intentionally separate: one scores an individual trade, the other a
// cluster's aggregate value.
type ScoringConfig struct {
	ValueBase     float64 `mapstructure:"value_base"`
	ValueTier250K float64 `mapstructure:"value_tier_250k"`
	ValueTier1M   float64 `mapstructure:"value_tier_1m"`
	ValueTier2M5  float64 `mapstructure:"value_tier_2_5m"`
	ValueTier10M  float64 `mapstructure:"value_tier_10m"`

	PurchaseBonus float64 `mapstructure:"purchase_bonus"`
	SalePenalty   float64 `mapstructure:"sale_penalty"`

	SeniorOfficerBonus float64 `mapstructure:"senior_officer_bonus"`
	OfficerBonus       float64 `mapstructure:"officer_bonus"`
	DirectorBonus      float64 `mapstructure:"director_bonus"`

	Ownership50Pct       float64 `mapstructure:"ownership_50_pct"`
	Ownership25Pct       float64 `mapstructure:"ownership_25_pct"`
	Ownership10Pct       float64 `mapstructure:"ownership_10_pct"`
	TenPercentOwnerBonus float64 `mapstructure:"ten_percent_owner_bonus"`

	ClusterOf3Bonus float64 `mapstructure:"cluster_of_3_bonus"`
	ClusterOf2Bonus float64 `mapstructure:"cluster_of_2_bonus"`

	IndirectPenalty float64 `mapstructure:"indirect_penalty"`
	PlannedPenalty  float64 `mapstructure:"planned_penalty"`

	FirstBuyBonus float64 `mapstructure:"first_buy_bonus"`

	Cluster ClusterScoringConfig `mapstructure:"cluster"`
}

type ClusterScoringConfig struct {
	Insiders2 float64 `mapstructure:"insiders_2"`
	Insiders3 float64 `mapstructure:"insiders_3"`
	Insiders4 float64 `mapstructure:"insiders_4"`
	Insiders5 float64 `mapstructure:"insiders_5"`

	Value250K float64 `mapstructure:"value_250k"`
	Value1M   float64 `mapstructure:"value_1m"`
	Value2M5  float64 `mapstructure:"value_2_5m"`
	Value5M   float64 `mapstructure:"value_5m"`
	Value10M  float64 `mapstructure:"value_10m"`

	CEOBonus             float64 `mapstructure:"ceo_bonus"`
	CFOBonus             float64 `mapstructure:"cfo_bonus"`
	AvgRole2             float64 `mapstructure:"avg_role_2"`
	AvgRole1             float64 `mapstructure:"avg_role_1"`
	TenPercentOwnerBonus float64 `mapstructure:"ten_percent_owner_bonus"`

	Concentration4 float64 `mapstructure:"concentration_4"`
	Concentration3 float64 `mapstructure:"concentration_3"`

	MaxScore float64 `mapstructure:"max_score"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue", "cluster_notifications")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.refresh", "@every 30m")

	v.SetDefault("pipeline.batch_size", 500)
	v.SetDefault("pipeline.cluster.lookback_days", 30)
	v.SetDefault("pipeline.cluster.window_days", 3)
	v.SetDefault("pipeline.cluster.retention_days", 30)
	v.SetDefault("pipeline.cluster.strength_update_tolerance", 1.0)
	v.SetDefault("pipeline.cluster.notify_min_strength", 75)
	v.SetDefault("pipeline.important.lookback_days", 30)
	v.SetDefault("pipeline.important.min_score", 50)
	v.SetDefault("pipeline.important.retention_days", 30)
	v.SetDefault("pipeline.first_buy.recent_days", 30)
	v.SetDefault("pipeline.first_buy.lookback_days", 365)
	v.SetDefault("pipeline.first_buy.retention_days", 90)
	v.SetDefault("pipeline.metrics.lookback_days", 90)

	v.SetDefault("scoring.value_base", 10)
	v.SetDefault("scoring.value_tier_250k", 20)
	v.SetDefault("scoring.value_tier_1m", 40)
	v.SetDefault("scoring.value_tier_2_5m", 60)
	v.SetDefault("scoring.value_tier_10m", 100)
	v.SetDefault("scoring.purchase_bonus", 30)
	v.SetDefault("scoring.sale_penalty", -10)
	v.SetDefault("scoring.senior_officer_bonus", 30)
	v.SetDefault("scoring.officer_bonus", 15)
	v.SetDefault("scoring.director_bonus", 10)
	v.SetDefault("scoring.ownership_50_pct", 30)
	v.SetDefault("scoring.ownership_25_pct", 20)
	v.SetDefault("scoring.ownership_10_pct", 10)
	v.SetDefault("scoring.ten_percent_owner_bonus", 20)
	v.SetDefault("scoring.cluster_of_3_bonus", 25)
	v.SetDefault("scoring.cluster_of_2_bonus", 15)
	v.SetDefault("scoring.indirect_penalty", -10)
	v.SetDefault("scoring.planned_penalty", -25)
	v.SetDefault("scoring.first_buy_bonus", 40)

	v.SetDefault("scoring.cluster.insiders_2", 15)
	v.SetDefault("scoring.cluster.insiders_3", 20)
	v.SetDefault("scoring.cluster.insiders_4", 25)
	v.SetDefault("scoring.cluster.insiders_5", 30)
	v.SetDefault("scoring.cluster.value_250k", 5)
	v.SetDefault("scoring.cluster.value_1m", 10)
	v.SetDefault("scoring.cluster.value_2_5m", 15)
	v.SetDefault("scoring.cluster.value_5m", 20)
	v.SetDefault("scoring.cluster.value_10m", 25)
	v.SetDefault("scoring.cluster.ceo_bonus", 15)
	v.SetDefault("scoring.cluster.cfo_bonus", 10)
	v.SetDefault("scoring.cluster.avg_role_2", 10)
	v.SetDefault("scoring.cluster.avg_role_1", 5)
	v.SetDefault("scoring.cluster.ten_percent_owner_bonus", 10)
	v.SetDefault("scoring.cluster.concentration_4", 10)
	v.SetDefault("scoring.cluster.concentration_3", 5)
	v.SetDefault("scoring.cluster.max_score", 100)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
