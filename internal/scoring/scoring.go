// Package scoring holds the pure importance heuristics: no I/O, every point
// value comes from config so thresholds are policy, not code.
package scoring

import (
	"strings"

	"github.com/shopspring/decimal"

	"insiderpulse/internal/config"
)

// Role priority levels used for cluster seniority averaging.
const (
	PriorityNone    = 0
	PriorityOfficer = 1
	PriorityCFO     = 2
	PriorityCEO     = 3
)

var (
	tier250K = decimal.NewFromInt(250_000)
	tier1M   = decimal.NewFromInt(1_000_000)
	tier2M5  = decimal.NewFromInt(2_500_000)
	tier5M   = decimal.NewFromInt(5_000_000)
	tier10M  = decimal.NewFromInt(10_000_000)
)

// Input is everything a single transaction needs to be scored, including the
// contextual facts the detectors pre-compute (cluster size, percent of
// holdings).
type Input struct {
	Value         decimal.Decimal
	IsPurchase    bool
	IsSale        bool
	IsOfficer     bool
	IsDirector    bool
	IsTenPercent  bool
	OfficerTitle  string
	PctOfHoldings float64
	ClusterSize   int
	IsIndirect    bool
	IsPlanned     bool
}

// Breakdown is the total score plus its per-factor components. Total is
// always the sum of the components.
type Breakdown struct {
	Total     float64
	Value     float64
	Direction float64
	Role      float64
	Ownership float64
	Cluster   float64
	Timing    float64
}

// Score computes the importance of a single transaction.
func Score(cfg config.ScoringConfig, in Input) Breakdown {
	var b Breakdown

	switch {
	case in.Value.GreaterThanOrEqual(tier10M):
		b.Value = cfg.ValueTier10M
	case in.Value.GreaterThanOrEqual(tier2M5):
		b.Value = cfg.ValueTier2M5
	case in.Value.GreaterThanOrEqual(tier1M):
		b.Value = cfg.ValueTier1M
	case in.Value.GreaterThanOrEqual(tier250K):
		b.Value = cfg.ValueTier250K
	default:
		b.Value = cfg.ValueBase
	}

	if in.IsPurchase {
		b.Direction = cfg.PurchaseBonus
	} else if in.IsSale {
		b.Direction = cfg.SalePenalty
	}

	switch {
	case in.IsOfficer && IsSeniorTitle(in.OfficerTitle):
		b.Role = cfg.SeniorOfficerBonus
	case in.IsOfficer:
		b.Role = cfg.OfficerBonus
	case in.IsDirector:
		b.Role = cfg.DirectorBonus
	}

	switch {
	case in.PctOfHoldings >= 50:
		b.Ownership = cfg.Ownership50Pct
	case in.PctOfHoldings >= 25:
		b.Ownership = cfg.Ownership25Pct
	case in.PctOfHoldings >= 10:
		b.Ownership = cfg.Ownership10Pct
	}
	// Being a 10%-owner of record is additive on top of the size tier.
	if in.IsTenPercent {
		b.Ownership += cfg.TenPercentOwnerBonus
	}

	switch {
	case in.ClusterSize >= 3:
		b.Cluster = cfg.ClusterOf3Bonus
	case in.ClusterSize >= 2:
		b.Cluster = cfg.ClusterOf2Bonus
	}

	if in.IsIndirect {
		b.Timing += cfg.IndirectPenalty
	}
	// Pre-scheduled 10b5-1 transactions carry materially less signal and are
	// penalized, not merely flagged.
	if in.IsPlanned {
		b.Timing += cfg.PlannedPenalty
	}

	b.Total = b.Value + b.Direction + b.Role + b.Ownership + b.Cluster + b.Timing
	return b
}

// FirstBuyScore is the regular score plus the flat first-buy bonus.
func FirstBuyScore(cfg config.ScoringConfig, in Input) Breakdown {
	b := Score(cfg, in)
	b.Total += cfg.FirstBuyBonus
	return b
}

// ClusterInput describes an (issuer, date) purchase group for strength
// scoring.
type ClusterInput struct {
	InsiderCount    int
	TotalValue      decimal.Decimal
	AvgRolePriority float64
	HasCEO          bool
	HasCFO          bool
	HasTenPercent   bool
}

// ClusterStrength scores a cluster 0..MaxScore. This uses a deliberately
// smaller value scale than Score: it rates the cluster's aggregate value,
// not a single trade's.
func ClusterStrength(cfg config.ClusterScoringConfig, in ClusterInput) float64 {
	var s float64

	switch {
	case in.InsiderCount >= 5:
		s += cfg.Insiders5
	case in.InsiderCount == 4:
		s += cfg.Insiders4
	case in.InsiderCount == 3:
		s += cfg.Insiders3
	case in.InsiderCount == 2:
		s += cfg.Insiders2
	}

	switch {
	case in.TotalValue.GreaterThanOrEqual(tier10M):
		s += cfg.Value10M
	case in.TotalValue.GreaterThanOrEqual(tier5M):
		s += cfg.Value5M
	case in.TotalValue.GreaterThanOrEqual(tier2M5):
		s += cfg.Value2M5
	case in.TotalValue.GreaterThanOrEqual(tier1M):
		s += cfg.Value1M
	case in.TotalValue.GreaterThanOrEqual(tier250K):
		s += cfg.Value250K
	}

	if in.HasCEO {
		s += cfg.CEOBonus
	}
	if in.HasCFO {
		s += cfg.CFOBonus
	}
	if in.AvgRolePriority >= 2 {
		s += cfg.AvgRole2
	} else if in.AvgRolePriority >= 1 {
		s += cfg.AvgRole1
	}
	if in.HasTenPercent {
		s += cfg.TenPercentOwnerBonus
	}

	if in.InsiderCount >= 4 {
		s += cfg.Concentration4
	} else if in.InsiderCount >= 3 {
		s += cfg.Concentration3
	}

	if cfg.MaxScore > 0 && s > cfg.MaxScore {
		s = cfg.MaxScore
	}
	return s
}

// RolePriority ranks a person's seniority: CEO 3, CFO 2, other officer 1,
// everyone else 0.
func RolePriority(isOfficer bool, title string) int {
	if !isOfficer {
		return PriorityNone
	}
	if IsCEOTitle(title) {
		return PriorityCEO
	}
	if IsCFOTitle(title) {
		return PriorityCFO
	}
	return PriorityOfficer
}

func IsCEOTitle(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "ceo") || strings.Contains(t, "chief executive")
}

func IsCFOTitle(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "cfo") || strings.Contains(t, "chief financial")
}

// IsSeniorTitle reports whether the officer title is CEO- or CFO-level.
func IsSeniorTitle(title string) bool {
	return IsCEOTitle(title) || IsCFOTitle(title)
}

// PercentOfHoldings returns shares transacted over holdings as a percentage.
// Holdings-after reflects the transaction itself, so for disposals the base
// is holdings before the sale (after + shares sold).
func PercentOfHoldings(shares decimal.Decimal, ownedAfter *decimal.Decimal, disposed bool) float64 {
	if ownedAfter == nil || shares.IsZero() {
		return 0
	}
	base := *ownedAfter
	if disposed {
		base = base.Add(shares)
	}
	if !base.IsPositive() {
		return 0
	}
	pct, _ := shares.Div(base).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
