package detector

import (
	"time"

	"insiderpulse/internal/repository"
)

// purchaseIndex answers "how many distinct insiders bought this issuer
// within N days of a date" from a single ledger fetch, so the detectors do
// not issue one count query per transaction.
type purchaseIndex struct {
	byIssuerDate map[string]map[time.Time]map[string]struct{}
}

func newPurchaseIndex(rows []repository.LedgerRow) *purchaseIndex {
	idx := &purchaseIndex{byIssuerDate: map[string]map[time.Time]map[string]struct{}{}}
	for _, r := range rows {
		date := dateOnly(r.TransactionDate)
		dates, ok := idx.byIssuerDate[r.IssuerID]
		if !ok {
			dates = map[time.Time]map[string]struct{}{}
			idx.byIssuerDate[r.IssuerID] = dates
		}
		persons, ok := dates[date]
		if !ok {
			persons = map[string]struct{}{}
			dates[date] = persons
		}
		persons[r.PersonID] = struct{}{}
	}
	return idx
}

// ClusterSize counts distinct buyers of the issuer with a purchase dated
// within toleranceDays of date, the buyer on that date included.
func (idx *purchaseIndex) ClusterSize(issuerID string, date time.Time, toleranceDays int) int {
	if idx == nil {
		return 0
	}
	dates, ok := idx.byIssuerDate[issuerID]
	if !ok {
		return 0
	}
	date = dateOnly(date)
	seen := map[string]struct{}{}
	for d, persons := range dates {
		diff := d.Sub(date)
		if diff < 0 {
			diff = -diff
		}
		if diff > time.Duration(toleranceDays)*24*time.Hour {
			continue
		}
		for p := range persons {
			seen[p] = struct{}{}
		}
	}
	return len(seen)
}
