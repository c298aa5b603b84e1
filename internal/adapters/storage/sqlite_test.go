package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/adapters/storage"
	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var started = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeTrade(id, symbol string, strategy domain.Strategy, stake, profit float64, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		ContractID:   id,
		RunID:        "run-1",
		Symbol:       symbol,
		Strategy:     strategy,
		ContractType: domain.ContractOver,
		Barrier:      2,
		Stake:        stake,
		Profit:       profit,
		Won:          profit > 0,
		Match:        "id",
		SettledAt:    at,
	}
}

func TestSQLiteStorage_SessionLifecycle(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	require.NoError(t, db.StartSession(ctx, domain.Session{RunID: "run-1", Bot: "ghost_ai", StartedAt: started}))
	require.NoError(t, db.SaveTrade(ctx, makeTrade("c1", "R_100", domain.StrategyEntry, 10, -10, started.Add(time.Minute))))
	require.NoError(t, db.SaveTrade(ctx, makeTrade("c2", "R_100", domain.StrategyRecovery, 10.53, 10, started.Add(2*time.Minute))))
	require.NoError(t, db.SaveTrade(ctx, makeTrade("c3", "R_50", domain.StrategyEntry, 10, 9.5, started.Add(3*time.Minute))))

	ended := started.Add(time.Hour)
	require.NoError(t, db.EndSession(ctx, domain.Session{
		RunID:      "run-1",
		EndedAt:    &ended,
		StopKind:   domain.StopUser,
		StopDetail: "stopped by operator",
		TotalPL:    9.5,
		Wins:       2,
		Losses:     1,
	}))

	report, err := db.SessionReport(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "ghost_ai", report.Session.Bot)
	assert.Equal(t, domain.StopUser, report.Session.StopKind)
	require.NotNil(t, report.Session.EndedAt)
	assert.True(t, ended.Equal(*report.Session.EndedAt))
	assert.Equal(t, 3, report.Trades)
	assert.Equal(t, 2, report.EntryTrades)
	assert.Equal(t, 1, report.RecoveryTrades)
	assert.Equal(t, 30.53, report.TotalStaked)
	assert.Equal(t, 9.5, report.Session.TotalPL)

	// Ordenados por PnL desc
	require.Len(t, report.BySymbol, 2)
	assert.Equal(t, "R_50", report.BySymbol[0].Symbol)
	assert.Equal(t, 9.5, report.BySymbol[0].PnL)
	assert.Equal(t, "R_100", report.BySymbol[1].Symbol)
	assert.Equal(t, 2, report.BySymbol[1].Trades)
	assert.Equal(t, 1, report.BySymbol[1].Wins)
	assert.Equal(t, 0.0, report.BySymbol[1].PnL)
}

func TestSQLiteStorage_SaveTradeIsIdempotent(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	trade := makeTrade("c1", "R_100", domain.StrategyEntry, 10, -10, started)
	require.NoError(t, db.SaveTrade(ctx, trade))
	require.NoError(t, db.SaveTrade(ctx, trade))

	trades, err := db.Trades(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.StrategyEntry, trades[0].Strategy)
	assert.Equal(t, domain.ContractOver, trades[0].ContractType)
	assert.False(t, trades[0].Won)
	assert.True(t, started.Equal(trades[0].SettledAt))
}

func TestSQLiteStorage_LatestSessionWhileRunning(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()

	require.NoError(t, db.StartSession(ctx, domain.Session{RunID: "run-0", Bot: "ghost_ai", StartedAt: started.Add(-time.Hour)}))
	require.NoError(t, db.StartSession(ctx, domain.Session{RunID: "run-1", Bot: "ghost_ai", StartedAt: started}))
	require.NoError(t, db.SaveTrade(ctx, makeTrade("c1", "R_100", domain.StrategyEntry, 10, 9.5, started)))

	require.NoError(t, db.SaveVirtualResult(ctx, "run-1", domain.VirtualResult{
		Order:     domain.VirtualOrder{ID: "v1", Bot: "ghost_ai", Symbol: "R_100", Action: domain.ContractOver, Barrier: 2, PlacedAt: started},
		Won:       false,
		ExitDigit: 1,
		Streak:    domain.VirtualStreak{Losses: 1},
		SettledAt: started.Add(time.Second),
	}))
	require.NoError(t, db.SaveVirtualResult(ctx, "run-1", domain.VirtualResult{
		Order:     domain.VirtualOrder{ID: "v2", Bot: "ghost_ai", Symbol: "R_100", Action: domain.ContractOver, Barrier: 2, PlacedAt: started},
		Won:       true,
		ExitDigit: 7,
		Streak:    domain.VirtualStreak{Wins: 1},
		SettledAt: started.Add(2 * time.Second),
	}))

	report, err := db.SessionReport(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.Session.RunID)
	assert.Nil(t, report.Session.EndedAt)
	assert.Equal(t, 9.5, report.Session.TotalPL, "open session totals come from trades")
	assert.Equal(t, 1, report.Session.Wins)
	assert.Equal(t, 1, report.VirtualWins)
	assert.Equal(t, 1, report.VirtualLosses)
}

func TestSQLiteStorage_NoSession(t *testing.T) {
	db := newDB(t)

	_, err := db.SessionReport(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrNoSession)

	ended := started
	err = db.EndSession(context.Background(), domain.Session{RunID: "missing", EndedAt: &ended})
	assert.ErrorIs(t, err, storage.ErrNoSession)
}
