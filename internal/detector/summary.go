package detector

import (
	"time"
)

// Processor names used in run summaries and logs.
const (
	ProcessorCluster   = "cluster"
	ProcessorImportant = "important_trade"
	ProcessorFirstBuy  = "first_buy"
	ProcessorMetrics   = "daily_metrics"
)

// RunSummary is a processor's externally observable output: counts, duration
// and whether the run failed before any batching began.
type RunSummary struct {
	Processor string        `json:"processor"`
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	CleanedUp int           `json:"cleaned_up"`
	Errors    int           `json:"errors"`
	Failed    bool          `json:"failed"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

func (s *RunSummary) fail(err error) RunSummary {
	s.Failed = true
	if err != nil {
		s.Error = err.Error()
	}
	return *s
}

// dateOnly truncates to a UTC calendar date. Signal natural keys are dates,
// not instants.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysAgo(now time.Time, days int) time.Time {
	return dateOnly(now).AddDate(0, 0, -days)
}
