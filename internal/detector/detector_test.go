package detector

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"insiderpulse/internal/config"
	"insiderpulse/internal/repository"
)

var errStubUpsert = errors.New("stub upsert failure")

func testConfigs(t *testing.T) (config.PipelineConfig, config.ScoringConfig) {
	t.Helper()
	cfg, err := config.Load("", true)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg.Pipeline, cfg.Scoring
}

// buyRow builds a priced open-market purchase filed on its transaction date.
func buyRow(id uint64, issuerID, personID string, date time.Time, value int64) repository.LedgerRow {
	price := decimal.NewFromInt(100)
	v := decimal.NewFromInt(value)
	return repository.LedgerRow{
		TransactionID:    id,
		FilingID:         id,
		IssuerID:         issuerID,
		PersonID:         personID,
		TransactionDate:  dateOnly(date),
		TransactionCode:  "P",
		AcquiredDisposed: "A",
		Shares:           v.Div(price),
		PricePerShare:    price,
		Value:            v,
		DirectIndirect:   "D",
		FiledAt:          date,
	}
}

func sellRow(id uint64, issuerID, personID string, date time.Time, value int64) repository.LedgerRow {
	r := buyRow(id, issuerID, personID, date, value)
	r.TransactionCode = "S"
	r.AcquiredDisposed = "D"
	return r
}

func officerRow(r repository.LedgerRow, title string) repository.LedgerRow {
	r.IsOfficer = true
	r.OfficerTitle = title
	return r
}
