package detector

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"insiderpulse/internal/models"
)

func newImportantDetector(repo *stubRepo, t *testing.T) *ImportantTradeDetector {
	pipeline, scoring := testConfigs(t)
	return &ImportantTradeDetector{
		Repo:      repo,
		Logger:    zap.NewNop(),
		Config:    pipeline.Important,
		Scoring:   scoring,
		BatchSize: pipeline.BatchSize,
	}
}

func TestImportantTradeScoresCEOPurchase(t *testing.T) {
	now := time.Now().UTC()
	day := daysAgo(now, 5)

	repo := newStubRepo()
	repo.ledger = append(repo.ledger,
		officerRow(buyRow(1, "AAPL", "ceo", day, 2_000_000), "Chief Executive Officer"),
	)
	d := newImportantDetector(repo, t)

	sum := d.Run(context.Background())
	if sum.Failed {
		t.Fatalf("run failed: %s", sum.Error)
	}
	if sum.Processed != 1 {
		t.Fatalf("processed: got %d, want 1", sum.Processed)
	}

	signals := repo.activeImportance()
	if len(signals) != 1 {
		t.Fatalf("active signals: got %d, want 1", len(signals))
	}
	s := signals[0]
	// $2M tier 40 + purchase 30 + senior officer 30.
	if s.Score != 100 {
		t.Fatalf("score: got %.0f, want 100", s.Score)
	}
	if s.ValueScore != 40 || s.DirectionScore != 30 || s.RoleScore != 30 {
		t.Fatalf("breakdown: %+v", s)
	}
	if !s.IsPurchase || s.IsSale {
		t.Fatalf("direction flags: %+v", s)
	}
	if !s.TransactionDate.Equal(day) {
		t.Fatalf("transaction date: got %v, want %v", s.TransactionDate, day)
	}
}

func TestImportantTradeSkipsBelowThreshold(t *testing.T) {
	now := time.Now().UTC()
	day := daysAgo(now, 5)

	repo := newStubRepo()
	repo.ledger = append(repo.ledger,
		// $50K sale by an outsider: 10 - 10 = 0, well under the threshold.
		sellRow(1, "AAPL", "p1", day, 50_000),
	)
	d := newImportantDetector(repo, t)

	sum := d.Run(context.Background())
	if sum.Failed {
		t.Fatalf("run failed: %s", sum.Error)
	}
	if got := len(repo.activeImportance()); got != 0 {
		t.Fatalf("active signals: got %d, want 0", got)
	}
}

func TestImportantTradePlannedScoresLower(t *testing.T) {
	now := time.Now().UTC()
	day := daysAgo(now, 5)

	open := officerRow(buyRow(1, "AAPL", "ceo1", day, 2_000_000), "Chief Executive Officer")
	planned := officerRow(buyRow(2, "MSFT", "ceo2", day, 2_000_000), "Chief Executive Officer")
	planned.IsPlanned = true

	repo := newStubRepo()
	repo.ledger = append(repo.ledger, open, planned)
	d := newImportantDetector(repo, t)

	if sum := d.Run(context.Background()); sum.Failed {
		t.Fatalf("run failed: %s", sum.Error)
	}

	var openScore, plannedScore float64
	for _, s := range repo.activeImportance() {
		if s.TransactionID == 1 {
			openScore = s.Score
		}
		if s.TransactionID == 2 {
			plannedScore = s.Score
			if !s.IsPlanned {
				t.Fatalf("planned flag lost: %+v", s)
			}
		}
	}
	if plannedScore != openScore-25 {
		t.Fatalf("planned trade: got %.0f, want %.0f", plannedScore, openScore-25)
	}
}

func TestImportantTradeSeesClusterContext(t *testing.T) {
	now := time.Now().UTC()
	day := daysAgo(now, 5)

	repo := newStubRepo()
	repo.ledger = append(repo.ledger,
		buyRow(1, "AAPL", "p1", day, 1_000_000),
		buyRow(2, "AAPL", "p2", day.AddDate(0, 0, 1), 1_000_000),
		buyRow(3, "AAPL", "p3", day.AddDate(0, 0, 2), 1_000_000),
	)
	d := newImportantDetector(repo, t)

	if sum := d.Run(context.Background()); sum.Failed {
		t.Fatalf("run failed: %s", sum.Error)
	}

	signals := repo.activeImportance()
	if len(signals) != 3 {
		t.Fatalf("active signals: got %d, want 3", len(signals))
	}
	for _, s := range signals {
		if s.ClusterSize != 3 {
			t.Fatalf("cluster size for txn %d: got %d, want 3", s.TransactionID, s.ClusterSize)
		}
		if s.ClusterScore != 25 {
			t.Fatalf("cluster score for txn %d: got %.0f, want 25", s.TransactionID, s.ClusterScore)
		}
	}
}

func TestImportantTradeCountsCreatedAndUpdated(t *testing.T) {
	now := time.Now().UTC()
	day := daysAgo(now, 5)

	repo := newStubRepo()
	repo.ledger = append(repo.ledger,
		officerRow(buyRow(1, "AAPL", "ceo", day, 2_000_000), "Chief Executive Officer"),
	)
	d := newImportantDetector(repo, t)

	first := d.Run(context.Background())
	if first.Failed {
		t.Fatalf("first run failed: %s", first.Error)
	}
	if first.Created != 1 || first.Updated != 0 {
		t.Fatalf("first run counts: created %d updated %d, want 1/0", first.Created, first.Updated)
	}

	second := d.Run(context.Background())
	if second.Failed {
		t.Fatalf("second run failed: %s", second.Error)
	}
	if second.Created != 0 || second.Updated != 1 {
		t.Fatalf("second run counts: created %d updated %d, want 0/1", second.Created, second.Updated)
	}
}

func TestImportantTradeBatchFailureIsolated(t *testing.T) {
	now := time.Now().UTC()
	day := daysAgo(now, 5)

	repo := newStubRepo()
	repo.ledger = append(repo.ledger,
		officerRow(buyRow(1, "AAPL", "ceo1", day, 2_000_000), "Chief Executive Officer"),
		officerRow(buyRow(2, "MSFT", "ceo2", day, 2_000_000), "Chief Executive Officer"),
	)
	repo.failImportanceUpsertCall = 2
	d := newImportantDetector(repo, t)
	d.BatchSize = 1

	sum := d.Run(context.Background())
	if sum.Failed {
		t.Fatalf("one bad batch must not fail the run: %s", sum.Error)
	}
	if sum.Errors != 1 {
		t.Fatalf("errors: got %d, want 1", sum.Errors)
	}
	if got := len(repo.activeImportance()); got != 1 {
		t.Fatalf("active signals: got %d, want 1 (the surviving batch)", got)
	}
}

func TestImportantTradeCleanup(t *testing.T) {
	now := time.Now().UTC()
	day := daysAgo(now, 5)

	repo := newStubRepo()
	repo.importance = []models.ImportanceSignal{
		{ID: 1, TransactionID: 100, IssuerID: "OLD", TransactionDate: daysAgo(now, 40), DetectedAt: now.AddDate(0, 0, -31), IsActive: true},
		{ID: 2, TransactionID: 101, IssuerID: "NEW", TransactionDate: day, DetectedAt: now.AddDate(0, 0, -29), IsActive: true},
	}
	repo.nextID = 3
	d := newImportantDetector(repo, t)

	sum := d.Run(context.Background())
	if sum.Failed {
		t.Fatalf("run failed: %s", sum.Error)
	}
	if sum.CleanedUp != 1 {
		t.Fatalf("cleaned up: got %d, want 1", sum.CleanedUp)
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.importance) != 1 || repo.importance[0].IssuerID != "NEW" {
		t.Fatalf("wrong survivor: %+v", repo.importance)
	}
}
