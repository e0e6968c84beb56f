package portfolio

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lungfish-labs/simex/internal/modules/ledger"
)

// SnapshotJob records an end-of-day valuation for every account
type SnapshotJob struct {
	ledger    *ledger.Store
	valuator  *Valuator
	snapshots *SnapshotRepository
	log       zerolog.Logger
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(
	ledgerStore *ledger.Store,
	valuator *Valuator,
	snapshots *SnapshotRepository,
	log zerolog.Logger,
) *SnapshotJob {
	return &SnapshotJob{
		ledger:    ledgerStore,
		valuator:  valuator,
		snapshots: snapshots,
		log:       log.With().Str("job", "portfolio_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "portfolio_snapshot"
}

// Run values every account and upserts today's snapshot. One failing
// account does not stop the rest.
func (j *SnapshotJob) Run() error {
	accountIDs, err := j.ledger.ListAccountIDs()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	date := time.Now().UTC().Format("2006-01-02")
	var failures int

	for _, accountID := range accountIDs {
		total, cash, pnl, err := j.valuator.TotalValue(accountID)
		if err != nil {
			j.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to value portfolio")
			failures++
			continue
		}

		if err := j.snapshots.Upsert(accountID, date, total, cash, pnl); err != nil {
			j.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to store snapshot")
			failures++
		}
	}

	j.log.Info().
		Int("accounts", len(accountIDs)).
		Int("failures", failures).
		Str("date", date).
		Msg("Portfolio snapshots recorded")

	if failures > 0 {
		return fmt.Errorf("snapshot failed for %d of %d accounts", failures, len(accountIDs))
	}

	return nil
}
