package settlement

import (
	"fmt"

	"github.com/rs/zerolog"
)

// sweepBatchSize bounds one sweep pass
const sweepBatchSize = 100

// SweepJob settles trades the queue missed (full buffer, crash before
// the worker got to them).
type SweepJob struct {
	service *Service
	log     zerolog.Logger
}

// NewSweepJob creates a new settlement sweep job
func NewSweepJob(service *Service, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		service: service,
		log:     log.With().Str("job", "settlement_sweep").Logger(),
	}
}

// Name returns the job name
func (j *SweepJob) Name() string {
	return "settlement_sweep"
}

// Run settles one batch of unsettled trades, oldest first
func (j *SweepJob) Run() error {
	trades, err := j.service.trades.Unsettled(sweepBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list unsettled trades: %w", err)
	}

	if len(trades) == 0 {
		return nil
	}

	var failures int
	for _, trade := range trades {
		if err := j.service.settle(trade.ID); err != nil {
			j.log.Error().Err(err).Str("trade_id", trade.ID).Msg("Sweep failed to settle trade")
			failures++
		}
	}

	j.log.Info().
		Int("swept", len(trades)).
		Int("failures", failures).
		Msg("Settlement sweep completed")

	if failures > 0 {
		return fmt.Errorf("sweep failed for %d of %d trades", failures, len(trades))
	}

	return nil
}
