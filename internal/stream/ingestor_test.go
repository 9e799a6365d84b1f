package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtkach/arbscout/internal/market"
	"github.com/mtkach/arbscout/internal/models"
)

type scriptedStream struct {
	mu    sync.Mutex
	runs  int
	steps []func(ctx context.Context, handler func([]Ticker)) error
}

func (s *scriptedStream) Subscribe(ctx context.Context, symbols []string, handler func([]Ticker)) error {
	s.mu.Lock()
	step := s.steps[s.runs]
	if s.runs < len(s.steps)-1 {
		s.runs++
	}
	s.mu.Unlock()
	return step(ctx, handler)
}

type recordingAlerter struct {
	mu    sync.Mutex
	texts []string
}

func (a *recordingAlerter) Alert(_ context.Context, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.texts = append(a.texts, text)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.texts)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestIngestor_SeedsAndNormalizes(t *testing.T) {
	cache := market.NewCache()
	stream := &scriptedStream{steps: []func(context.Context, func([]Ticker)) error{
		func(ctx context.Context, handler func([]Ticker)) error {
			handler([]Ticker{
				{Symbol: "BTC/USDT", Bid: models.Float(99.9), Ask: models.Float(100.0), Volume: models.Float(12000)},
				{Symbol: "ETH/USDT"}, // both sides missing: ignored
				{Symbol: "SOL/USDT", Bid: models.Float(-5), Ask: models.Float(20.5)}, // bad bid dropped, no volume
			})
			<-ctx.Done()
			return nil
		},
	}}

	in := NewIngestor("bybit", []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}, stream, cache,
		&recordingAlerter{}, time.Millisecond, 5000, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	require.Eventually(t, func() bool {
		q, ok := cache.Quote("BTC/USDT", "bybit")
		return ok && q.Tradable()
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	btc, _ := cache.Quote("BTC/USDT", "bybit")
	assert.Equal(t, 99.9, btc.BidPrice())
	assert.Equal(t, 12000.0, btc.Volume)

	// Seeded sentinel untouched by the ignored message.
	eth, ok := cache.Quote("ETH/USDT", "bybit")
	require.True(t, ok)
	assert.Nil(t, eth.Bid)
	assert.Nil(t, eth.Ask)
	assert.Equal(t, 5000.0, eth.Volume)

	sol, _ := cache.Quote("SOL/USDT", "bybit")
	assert.Nil(t, sol.Bid, "negative bid must be dropped")
	assert.Equal(t, 20.5, sol.AskPrice())
	assert.Equal(t, 5000.0, sol.Volume, "missing volume falls back to floor")
}

func TestIngestor_DeltaFramesMergeIntoCachedQuote(t *testing.T) {
	cache := market.NewCache()
	cache.Seed("BTC/USDT", "bybit", 5000)
	in := NewIngestor("bybit", []string{"BTC/USDT"}, nil, cache,
		&recordingAlerter{}, time.Millisecond, 5000, quietLogger())

	in.apply([]Ticker{{Symbol: "BTC/USDT", Bid: models.Float(99.9), Ask: models.Float(100.0), Volume: models.Float(12000)}})

	// Ask-only delta: the cached bid and volume survive.
	in.apply([]Ticker{{Symbol: "BTC/USDT", Ask: models.Float(100.1)}})
	q, ok := cache.Quote("BTC/USDT", "bybit")
	require.True(t, ok)
	assert.True(t, q.Tradable())
	assert.Equal(t, 99.9, q.BidPrice())
	assert.Equal(t, 100.1, q.AskPrice())
	assert.Equal(t, 12000.0, q.Volume)

	// Bid-only delta carrying fresh volume.
	in.apply([]Ticker{{Symbol: "BTC/USDT", Bid: models.Float(99.95), Volume: models.Float(15000)}})
	q, _ = cache.Quote("BTC/USDT", "bybit")
	assert.Equal(t, 99.95, q.BidPrice())
	assert.Equal(t, 100.1, q.AskPrice())
	assert.Equal(t, 15000.0, q.Volume)

	// A side that fails sanitization merges like an omitted one.
	in.apply([]Ticker{{Symbol: "BTC/USDT", Bid: models.Float(-1), Ask: models.Float(100.2)}})
	q, _ = cache.Quote("BTC/USDT", "bybit")
	assert.Equal(t, 99.95, q.BidPrice(), "bad bid must not erase the cached bid")
	assert.Equal(t, 100.2, q.AskPrice())
}

func TestIngestor_TransientFaultResumes(t *testing.T) {
	cache := market.NewCache()
	stream := &scriptedStream{steps: []func(context.Context, func([]Ticker)) error{
		func(ctx context.Context, handler func([]Ticker)) error {
			return newFault(FaultTransient, "bybit", errors.New("connection reset"))
		},
		func(ctx context.Context, handler func([]Ticker)) error {
			handler([]Ticker{{Symbol: "BTC/USDT", Bid: models.Float(1), Ask: models.Float(2)}})
			<-ctx.Done()
			return nil
		},
	}}
	alerter := &recordingAlerter{}

	in := NewIngestor("bybit", []string{"BTC/USDT"}, stream, cache, alerter,
		time.Millisecond, 5000, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	require.Eventually(t, func() bool {
		q, ok := cache.Quote("BTC/USDT", "bybit")
		return ok && q.Tradable()
	}, time.Second, 5*time.Millisecond, "subscription should resume after backoff")
	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, alerter.count(), "transient faults must not alert")
}

func TestIngestor_ClockDesyncTerminatesWithAlert(t *testing.T) {
	cache := market.NewCache()
	desync := newFault(FaultClockDesync, "bybit", errors.New("req timestamp expired"))
	stream := &scriptedStream{steps: []func(context.Context, func([]Ticker)) error{
		func(ctx context.Context, handler func([]Ticker)) error { return desync },
	}}
	alerter := &recordingAlerter{}

	in := NewIngestor("bybit", []string{"BTC/USDT"}, stream, cache, alerter,
		time.Millisecond, 5000, quietLogger())

	err := in.Run(context.Background())
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, FaultClockDesync, fault.Kind)
	assert.Equal(t, 1, alerter.count())
}

func TestIngestor_UnclassifiedErrorTerminates(t *testing.T) {
	stream := &scriptedStream{steps: []func(context.Context, func([]Ticker)) error{
		func(ctx context.Context, handler func([]Ticker)) error {
			return errors.New("panic-adjacent surprise")
		},
	}}
	alerter := &recordingAlerter{}

	in := NewIngestor("bybit", []string{"BTC/USDT"}, stream, market.NewCache(), alerter,
		time.Millisecond, 5000, quietLogger())

	err := in.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, alerter.count())
}
