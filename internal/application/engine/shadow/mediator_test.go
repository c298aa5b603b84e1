package shadow_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/application/engine/shadow"
	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bot = "ghost_ai"

func tick(symbol string, quote float64, digit int) domain.Tick {
	return domain.Tick{Symbol: symbol, Quote: quote, LastDigit: digit, Epoch: time.Now().Unix()}
}

func lossHook(count int) domain.VirtualHookConfig {
	return domain.VirtualHookConfig{Enabled: true, TriggerType: domain.TriggerLoss, TriggerCount: count, ResetOnOpposite: true}
}

func TestMediator_DisabledAlwaysReal(t *testing.T) {
	m := shadow.New(domain.VirtualHookConfig{})
	assert.True(t, m.ShouldTradeReal(bot, "R_100"))
	assert.False(t, m.Enabled())
}

func TestMediator_LossTriggerArmsAfterTwoLosses(t *testing.T) {
	m := shadow.New(lossHook(2))
	now := time.Now()

	assert.False(t, m.ShouldTradeReal(bot, "R_100"))

	// dos pérdidas virtuales: OVER 2 con dígito de salida 1
	for i := 0; i < 2; i++ {
		_, ok := m.RecordVirtualOrder(bot, "R_100", domain.ContractOver, 2, 100.0, now)
		require.True(t, ok)
		res, ok := m.EvaluateOnNextTick(bot, "R_100", tick("R_100", 100.01, 1))
		require.True(t, ok)
		assert.False(t, res.Won)
	}

	assert.Equal(t, domain.VirtualStreak{Losses: 2}, m.Streak(bot, "R_100"))
	assert.True(t, m.ShouldTradeReal(bot, "R_100"))

	m.ConsumeTrigger(bot, "R_100")
	assert.Equal(t, domain.VirtualStreak{}, m.Streak(bot, "R_100"))
	assert.False(t, m.ShouldTradeReal(bot, "R_100"))
}

func TestMediator_OneOutstandingPerSymbol(t *testing.T) {
	m := shadow.New(lossHook(2))
	now := time.Now()

	_, ok := m.RecordVirtualOrder(bot, "R_100", domain.ContractOver, 2, 100, now)
	require.True(t, ok)
	_, ok = m.RecordVirtualOrder(bot, "R_100", domain.ContractUnder, 5, 100, now)
	assert.False(t, ok)

	// otro símbolo es independiente
	_, ok = m.RecordVirtualOrder(bot, "R_50", domain.ContractOver, 2, 100, now)
	assert.True(t, ok)
	assert.True(t, m.HasPending(bot, "R_100"))
}

func TestMediator_ResetOnOpposite(t *testing.T) {
	m := shadow.New(lossHook(3))
	now := time.Now()

	m.RecordVirtualOrder(bot, "R_100", domain.ContractOver, 2, 100, now)
	m.EvaluateOnNextTick(bot, "R_100", tick("R_100", 100, 0))
	assert.Equal(t, 1, m.Streak(bot, "R_100").Losses)

	m.RecordVirtualOrder(bot, "R_100", domain.ContractOver, 2, 100, now)
	res, _ := m.EvaluateOnNextTick(bot, "R_100", tick("R_100", 100, 7))
	assert.True(t, res.Won)
	assert.Equal(t, domain.VirtualStreak{Wins: 1, Losses: 0}, m.Streak(bot, "R_100"))
}

func TestMediator_NoResetOnOppositeKeepsCounter(t *testing.T) {
	cfg := lossHook(3)
	cfg.ResetOnOpposite = false
	m := shadow.New(cfg)
	now := time.Now()

	m.RecordVirtualOrder(bot, "R_100", domain.ContractEven, 0, 100, now)
	m.EvaluateOnNextTick(bot, "R_100", tick("R_100", 100, 3))
	m.RecordVirtualOrder(bot, "R_100", domain.ContractEven, 0, 100, now)
	m.EvaluateOnNextTick(bot, "R_100", tick("R_100", 100, 4))

	assert.Equal(t, domain.VirtualStreak{Wins: 1, Losses: 1}, m.Streak(bot, "R_100"))
}

func TestMediator_WinTrigger(t *testing.T) {
	m := shadow.New(domain.VirtualHookConfig{Enabled: true, TriggerType: domain.TriggerWin, TriggerCount: 1, ResetOnOpposite: true})
	now := time.Now()

	m.RecordVirtualOrder(bot, "R_10", domain.ContractMatch, 4, 100, now)
	res, ok := m.EvaluateOnNextTick(bot, "R_10", tick("R_10", 100, 4))
	require.True(t, ok)
	assert.True(t, res.Won)
	assert.True(t, m.ShouldTradeReal(bot, "R_10"))
}

func TestMediator_RiseFallUsesQuotes(t *testing.T) {
	m := shadow.New(lossHook(1))
	now := time.Now()

	m.RecordVirtualOrder(bot, "R_10", domain.ContractCall, 0, 100.5, now)
	res, _ := m.EvaluateOnNextTick(bot, "R_10", tick("R_10", 100.7, 7))
	assert.True(t, res.Won)

	m.RecordVirtualOrder(bot, "R_10", domain.ContractPut, 0, 100.5, now)
	res, _ = m.EvaluateOnNextTick(bot, "R_10", tick("R_10", 100.5, 5))
	assert.False(t, res.Won, "unchanged quote loses")
}

func TestMediator_EvaluateWithoutPending(t *testing.T) {
	m := shadow.New(lossHook(2))
	_, ok := m.EvaluateOnNextTick(bot, "R_100", tick("R_100", 100, 1))
	assert.False(t, ok)
}

func TestMediator_ClearBot(t *testing.T) {
	m := shadow.New(lossHook(2))
	now := time.Now()

	m.RecordVirtualOrder(bot, "R_100", domain.ContractOver, 2, 100, now)
	m.EvaluateOnNextTick(bot, "R_100", tick("R_100", 100, 1))
	m.RecordVirtualOrder(bot, "R_100", domain.ContractOver, 2, 100, now)
	m.RecordVirtualOrder("other", "R_100", domain.ContractOver, 2, 100, now)

	m.ClearBot(bot)
	assert.Equal(t, domain.VirtualStreak{}, m.Streak(bot, "R_100"))
	assert.False(t, m.HasPending(bot, "R_100"))
	assert.True(t, m.HasPending("other", "R_100"))
}
