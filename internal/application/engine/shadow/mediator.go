// Package shadow implements the virtual hook: simulated trades evaluated on
// the next tick that gate when a real order is allowed.
package shadow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/google/uuid"
)

type key struct {
	bot    string
	symbol string
}

// Mediator tracks virtual streaks and pending virtual orders per (bot, symbol).
type Mediator struct {
	mu      sync.Mutex
	cfg     domain.VirtualHookConfig
	streaks map[key]domain.VirtualStreak
	orders  map[key]domain.VirtualOrder
}

// New creates a Mediator. A disabled config always trades real.
func New(cfg domain.VirtualHookConfig) *Mediator {
	if cfg.TriggerType == "" {
		cfg.TriggerType = domain.TriggerLoss
	}
	return &Mediator{
		cfg:     cfg,
		streaks: make(map[key]domain.VirtualStreak),
		orders:  make(map[key]domain.VirtualOrder),
	}
}

// Enabled reports whether virtual gating is active.
func (m *Mediator) Enabled() bool { return m.cfg.Enabled }

// ShouldTradeReal is true when the hook is disabled or the configured streak
// reached TriggerCount.
func (m *Mediator) ShouldTradeReal(bot, symbol string) bool {
	if !m.cfg.Enabled {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armedLocked(key{bot, symbol})
}

func (m *Mediator) armedLocked(k key) bool {
	s := m.streaks[k]
	if m.cfg.TriggerType == domain.TriggerWin {
		return s.Wins >= m.cfg.TriggerCount
	}
	return s.Losses >= m.cfg.TriggerCount
}

// RecordVirtualOrder stores a simulated order for (bot, symbol). Only one may
// be outstanding; a second one is refused and false is returned.
func (m *Mediator) RecordVirtualOrder(bot, symbol string, action domain.ContractType, barrier int, entryQuote float64, now time.Time) (domain.VirtualOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{bot, symbol}
	if _, ok := m.orders[k]; ok {
		return domain.VirtualOrder{}, false
	}
	o := domain.VirtualOrder{
		ID:         uuid.NewString(),
		Bot:        bot,
		Symbol:     symbol,
		Action:     action,
		Barrier:    barrier,
		EntryQuote: entryQuote,
		PlacedAt:   now,
	}
	m.orders[k] = o

	slog.Info("shadow: virtual order placed",
		"bot", bot,
		"symbol", symbol,
		"action", action,
		"barrier", barrier,
		"entry_quote", entryQuote,
	)
	return o, true
}

// EvaluateOnNextTick settles the pending virtual order of (bot, symbol)
// against tick, updates the streak and clears the order. It returns false
// when nothing was pending.
func (m *Mediator) EvaluateOnNextTick(bot, symbol string, tick domain.Tick) (domain.VirtualResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{bot, symbol}
	o, ok := m.orders[k]
	if !ok {
		return domain.VirtualResult{}, false
	}
	delete(m.orders, k)

	won := domain.ContractWins(o.Action, o.Barrier, tick.LastDigit, o.EntryQuote, tick.Quote)

	s := m.streaks[k]
	if won {
		s.Wins++
		if m.cfg.ResetOnOpposite && m.cfg.TriggerType == domain.TriggerLoss {
			s.Losses = 0
		}
	} else {
		s.Losses++
		if m.cfg.ResetOnOpposite && m.cfg.TriggerType == domain.TriggerWin {
			s.Wins = 0
		}
	}
	m.streaks[k] = s

	slog.Info("shadow: virtual result",
		"bot", bot,
		"symbol", symbol,
		"won", won,
		"exit_digit", tick.LastDigit,
		"wins", s.Wins,
		"losses", s.Losses,
		"armed", m.armedLocked(k),
	)

	return domain.VirtualResult{
		Order:     o,
		Won:       won,
		ExitDigit: tick.LastDigit,
		ExitQuote: tick.Quote,
		Streak:    s,
		SettledAt: tick.Time(),
	}, true
}

// ConsumeTrigger resets the streak after a real order went out because the
// trigger fired. The real trade's own outcome does not matter.
func (m *Mediator) ConsumeTrigger(bot, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streaks[key{bot, symbol}] = domain.VirtualStreak{}
	slog.Info("shadow: trigger consumed, streak reset", "bot", bot, "symbol", symbol)
}

// Streak returns the current streak of (bot, symbol).
func (m *Mediator) Streak(bot, symbol string) domain.VirtualStreak {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaks[key{bot, symbol}]
}

// HasPending reports whether (bot, symbol) has an outstanding virtual order.
func (m *Mediator) HasPending(bot, symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.orders[key{bot, symbol}]
	return ok
}

// ClearBot drops every streak and pending order of bot.
func (m *Mediator) ClearBot(bot string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.streaks {
		if k.bot == bot {
			delete(m.streaks, k)
		}
	}
	for k := range m.orders {
		if k.bot == bot {
			delete(m.orders, k)
		}
	}
}
