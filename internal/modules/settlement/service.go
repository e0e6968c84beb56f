package settlement

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lungfish-labs/simex/internal/domain"
	"github.com/lungfish-labs/simex/internal/metrics"
)

// TradeStore is the slice of the trade ledger the settlement worker
// needs: look up a trade and attach its reference.
type TradeStore interface {
	GetByID(tradeID string) (*domain.Trade, error)
	AttachSettlement(tradeID, reference string) error
	Unsettled(limit int) ([]domain.Trade, error)
}

// Recorder produces the external settlement reference for a trade.
// The reference is opaque enrichment; trades are final without it.
type Recorder interface {
	Record(trade domain.Trade) (string, error)
}

// SimRecorder issues locally generated references, standing in for an
// on-chain memo transaction.
type SimRecorder struct{}

// Record returns a fresh opaque reference
func (SimRecorder) Record(trade domain.Trade) (string, error) {
	return "sim-" + uuid.New().String(), nil
}

// Service attaches settlement references to committed trades in the
// background. Enqueue never blocks the trade path: if the buffer is
// full the trade is simply left for the sweep job to pick up.
type Service struct {
	trades   TradeStore
	recorder Recorder
	queue    chan string
	done     chan struct{}
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// NewService creates a settlement service with the given queue depth
func NewService(trades TradeStore, recorder Recorder, queueDepth int, log zerolog.Logger) *Service {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	return &Service{
		trades:   trades,
		recorder: recorder,
		queue:    make(chan string, queueDepth),
		done:     make(chan struct{}),
		log:      log.With().Str("service", "settlement").Logger(),
	}
}

// Start launches the background worker
func (s *Service) Start() {
	s.wg.Add(1)
	go s.worker()
	s.log.Info().Msg("Settlement worker started")
}

// Stop drains the worker and waits for it to exit
func (s *Service) Stop() {
	close(s.done)
	s.wg.Wait()
	s.log.Info().Msg("Settlement worker stopped")
}

// Enqueue hands a committed trade to the worker. Non-blocking: a full
// queue drops the request and the sweep job settles the trade later.
func (s *Service) Enqueue(tradeID string) {
	select {
	case s.queue <- tradeID:
	default:
		s.log.Warn().Str("trade_id", tradeID).Msg("Settlement queue full, deferring to sweep")
	}
}

func (s *Service) worker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case tradeID := <-s.queue:
			if err := s.settle(tradeID); err != nil {
				s.log.Error().Err(err).Str("trade_id", tradeID).Msg("Failed to settle trade")
			}
		}
	}
}

// settle records and attaches a reference for one trade. Already-settled
// trades are skipped; a conflicting concurrent attach is not an error,
// the first writer simply won.
func (s *Service) settle(tradeID string) error {
	trade, err := s.trades.GetByID(tradeID)
	if err != nil {
		return fmt.Errorf("failed to load trade: %w", err)
	}

	if trade.SettlementRef != "" {
		return nil
	}

	reference, err := s.recorder.Record(*trade)
	if err != nil {
		metrics.SettlementsTotal.WithLabelValues("record_failed").Inc()
		return fmt.Errorf("failed to record settlement: %w", err)
	}

	err = s.trades.AttachSettlement(tradeID, reference)
	switch {
	case err == nil:
		metrics.SettlementsTotal.WithLabelValues("attached").Inc()
		return nil
	case errors.Is(err, domain.ErrSettlementConflict):
		metrics.SettlementsTotal.WithLabelValues("already_settled").Inc()
		return nil
	default:
		metrics.SettlementsTotal.WithLabelValues("attach_failed").Inc()
		return err
	}
}
