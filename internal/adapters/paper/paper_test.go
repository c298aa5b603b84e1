package paper_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/adapters/paper"
	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *collector) Publish(_ context.Context, ev domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) kinds() []domain.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.EventKind, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Kind
	}
	return out
}

func (c *collector) snapshot() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.events...)
}

// --- Feed ---

func TestFeed_StepIsDeterministicPerSeed(t *testing.T) {
	cfg := paper.FeedConfig{Symbols: []string{"R_10", "R_100"}, Seed: 99}
	a, b := paper.NewFeed(cfg), paper.NewFeed(cfg)

	for i := 0; i < 20; i++ {
		ta, tb := a.Step(), b.Step()
		require.Len(t, ta, 2)
		for j := range ta {
			assert.Equal(t, ta[j].Quote, tb[j].Quote)
			assert.Equal(t, ta[j].LastDigit, tb[j].LastDigit)
		}
	}
}

func TestFeed_DigitMatchesQuote(t *testing.T) {
	f := paper.NewFeed(paper.FeedConfig{Symbols: []string{"R_50"}, Decimals: 3, Seed: 5})
	var prevEpoch int64
	for i := 0; i < 50; i++ {
		tick := f.Step()[0]
		assert.Equal(t, "R_50", tick.Symbol)
		assert.Equal(t, domain.LastDigit(tick.Quote, 3), tick.LastDigit)
		assert.Greater(t, tick.Epoch, prevEpoch)
		prevEpoch = tick.Epoch
	}
}

func TestFeed_RunPublishesAndNotifiesObservers(t *testing.T) {
	f := paper.NewFeed(paper.FeedConfig{Symbols: []string{"R_10", "R_25"}, Interval: time.Millisecond, Seed: 1})

	var mu sync.Mutex
	observed := 0
	f.Observe(func(context.Context, domain.Tick) error {
		mu.Lock()
		observed++
		mu.Unlock()
		return nil
	})

	sink := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, sink) }()

	assert.Eventually(t, func() bool { return len(sink.kinds()) >= 10 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, k := range sink.kinds() {
		assert.Equal(t, domain.EventTick, k)
	}
	mu.Lock()
	assert.GreaterOrEqual(t, observed, 10)
	mu.Unlock()
}

// --- Gateway ---

func order(symbol string, stake float64) domain.OrderRequest {
	return domain.OrderRequest{
		RequestID:    "req-1",
		RunID:        "run-1",
		Symbol:       symbol,
		ContractType: domain.ContractOver,
		Barrier:      2,
		Stake:        stake,
		Strategy:     domain.StrategyEntry,
	}
}

func runGateway(t *testing.T, g *paper.Gateway) *collector {
	t.Helper()
	sink := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, sink) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return sink
}

func TestGateway_RejectsStakeBelowMinimum(t *testing.T) {
	g := paper.NewGateway(paper.GatewayConfig{})
	sink := runGateway(t, g)

	require.NoError(t, g.PlaceOrder(context.Background(), order("R_100", 0.2)))

	require.Eventually(t, func() bool { return len(sink.kinds()) == 1 }, time.Second, time.Millisecond)
	ev := sink.snapshot()[0]
	assert.Equal(t, domain.EventOrderRejected, ev.Kind)
	assert.Contains(t, ev.Rejected.Reason, "below minimum")
	assert.Zero(t, g.Open())
}

func TestGateway_AcceptsThenSettlesOnNextTick(t *testing.T) {
	g := paper.NewGateway(paper.GatewayConfig{PayoutPercent: 95})
	sink := runGateway(t, g)
	ctx := context.Background()

	require.NoError(t, g.OnTick(ctx, domain.NewTick("R_100", 1000.13, 2, 100)))
	require.NoError(t, g.PlaceOrder(ctx, order("R_100", 10)))
	assert.Equal(t, 1, g.Open())

	// otro símbolo y el mismo epoch no liquidan
	require.NoError(t, g.OnTick(ctx, domain.NewTick("R_50", 500.17, 2, 101)))
	require.NoError(t, g.OnTick(ctx, domain.NewTick("R_100", 1000.13, 2, 100)))
	assert.Equal(t, 1, g.Open())

	require.NoError(t, g.OnTick(ctx, domain.NewTick("R_100", 1000.17, 2, 101)))
	assert.Zero(t, g.Open())

	require.Eventually(t, func() bool { return len(sink.kinds()) == 2 }, time.Second, time.Millisecond)
	events := sink.snapshot()
	require.Equal(t, domain.EventOrderAccepted, events[0].Kind)
	require.Equal(t, domain.EventSettlement, events[1].Kind)

	s := events[1].Settlement
	assert.Equal(t, events[0].Accepted.ContractID, s.ContractID)
	assert.True(t, s.Won(), "exit digit 7 is over 2")
	assert.Equal(t, 9.5, s.Profit)
	assert.Equal(t, "req-1", s.Request.RequestID)
}

func TestGateway_LossAndDuplicateSettlement(t *testing.T) {
	g := paper.NewGateway(paper.GatewayConfig{DuplicateSettlements: true})
	sink := runGateway(t, g)
	ctx := context.Background()

	require.NoError(t, g.PlaceOrder(ctx, order("R_100", 10)))
	require.NoError(t, g.OnTick(ctx, domain.NewTick("R_100", 1000.11, 2, 1)))

	require.Eventually(t, func() bool { return len(sink.kinds()) == 3 }, time.Second, time.Millisecond)
	events := sink.snapshot()
	assert.Equal(t, events[1].Settlement, events[2].Settlement)
	assert.False(t, events[1].Settlement.Won(), "exit digit 1 is not over 2")
	assert.Equal(t, -10.0, events[1].Settlement.Profit)
}
