package settlement

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lungfish-labs/simex/internal/domain"
)

// fakeTradeStore is an in-memory TradeStore
type fakeTradeStore struct {
	mu     sync.Mutex
	trades map[string]*domain.Trade
}

func newFakeTradeStore(ids ...string) *fakeTradeStore {
	trades := make(map[string]*domain.Trade, len(ids))
	for i, id := range ids {
		trades[id] = &domain.Trade{Seq: int64(i + 1), ID: id, Side: domain.SideBuy}
	}
	return &fakeTradeStore{trades: trades}
}

func (s *fakeTradeStore) GetByID(tradeID string) (*domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return nil, domain.ErrUnknownTrade
	}
	copied := *trade
	return &copied, nil
}

func (s *fakeTradeStore) AttachSettlement(tradeID, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return domain.ErrUnknownTrade
	}
	if trade.SettlementRef != "" && trade.SettlementRef != reference {
		return domain.ErrSettlementConflict
	}
	trade.SettlementRef = reference
	return nil
}

func (s *fakeTradeStore) Unsettled(limit int) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Trade
	for _, trade := range s.trades {
		if trade.SettlementRef == "" && len(out) < limit {
			out = append(out, *trade)
		}
	}
	return out, nil
}

func (s *fakeTradeStore) ref(tradeID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trades[tradeID].SettlementRef
}

type failingRecorder struct{}

func (failingRecorder) Record(trade domain.Trade) (string, error) {
	return "", errors.New("recorder down")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestService_EnqueueAttachesReference(t *testing.T) {
	store := newFakeTradeStore("t1")
	svc := NewService(store, SimRecorder{}, 8, zerolog.Nop())
	svc.Start()
	defer svc.Stop()

	svc.Enqueue("t1")

	waitFor(t, func() bool { return store.ref("t1") != "" })
	assert.Contains(t, store.ref("t1"), "sim-")
}

func TestService_Enqueue_NeverBlocks(t *testing.T) {
	store := newFakeTradeStore("t1", "t2", "t3")
	svc := NewService(store, SimRecorder{}, 1, zerolog.Nop())
	// Worker not started: the buffer fills and extra enqueues drop.

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			svc.Enqueue("t1")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestService_Settle_AlreadySettledIsNoop(t *testing.T) {
	store := newFakeTradeStore("t1")
	require.NoError(t, store.AttachSettlement("t1", "existing"))

	svc := NewService(store, SimRecorder{}, 8, zerolog.Nop())
	require.NoError(t, svc.settle("t1"))

	assert.Equal(t, "existing", store.ref("t1"))
}

func TestService_Settle_RecorderFailure(t *testing.T) {
	store := newFakeTradeStore("t1")
	svc := NewService(store, failingRecorder{}, 8, zerolog.Nop())

	err := svc.settle("t1")
	assert.Error(t, err)
	assert.Empty(t, store.ref("t1"))
}

func TestService_Settle_UnknownTrade(t *testing.T) {
	store := newFakeTradeStore()
	svc := NewService(store, SimRecorder{}, 8, zerolog.Nop())

	err := svc.settle("ghost")
	assert.ErrorIs(t, err, domain.ErrUnknownTrade)
}

func TestSweepJob_SettlesBacklog(t *testing.T) {
	store := newFakeTradeStore("t1", "t2", "t3")
	require.NoError(t, store.AttachSettlement("t2", "already"))

	svc := NewService(store, SimRecorder{}, 8, zerolog.Nop())
	job := NewSweepJob(svc, zerolog.Nop())

	assert.Equal(t, "settlement_sweep", job.Name())
	require.NoError(t, job.Run())

	assert.NotEmpty(t, store.ref("t1"))
	assert.NotEmpty(t, store.ref("t3"))
	assert.Equal(t, "already", store.ref("t2"))
}

func TestSimRecorder_UniqueReferences(t *testing.T) {
	recorder := SimRecorder{}

	a, err := recorder.Record(domain.Trade{ID: "t1"})
	require.NoError(t, err)
	b, err := recorder.Record(domain.Trade{ID: "t1"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
