package scanner_test

import (
	"testing"

	"github.com/alejandrodnm/ghostbot/internal/application/scanner"
	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// longSkewed tiene 6 como el más frecuente y 1 como el menos frecuente.
func longSkewed() []int {
	var digits []int
	for d := 0; d < 10; d++ {
		n := 3
		switch d {
		case 6:
			n = 6
		case 1:
			n = 1
		}
		for i := 0; i < n; i++ {
			digits = append(digits, d)
		}
	}
	return digits
}

// over2 = 72%, termina en 3,3,2,1
var window72 = []int{5, 6, 7, 8, 9, 5, 6, 7, 8, 9, 5, 6, 7, 8, 9, 4, 0, 0, 1, 2, 1, 3, 3, 2, 1}

// over2 = 76%, termina en 3,3,2,1
var window76 = []int{5, 6, 7, 8, 9, 5, 6, 7, 8, 9, 5, 6, 7, 8, 9, 4, 5, 0, 1, 2, 1, 3, 3, 2, 1}

func newStats() *scanner.StatsEngine {
	return scanner.NewStatsEngine(scanner.StatsConfig{ShortWindow: 20, LongWindow: 1000, AnalysisDigits: 25})
}

func entryCond() domain.StrategyCondition {
	return domain.StrategyCondition{
		UseDigitCheck:    true,
		DigitWindow:      4,
		MaxDigit:         3,
		DigitOperator:    domain.OpLessEqual,
		UsePercentage:    true,
		Prediction:       2,
		PercentThreshold: 70,
		PercentOperator:  domain.OpGreaterEqual,
		ContractType:     domain.ContractOver,
	}
}

func recoveryCond() domain.StrategyCondition {
	return domain.StrategyCondition{
		Prediction:   5,
		ContractType: domain.ContractUnder,
	}
}

func seed(stats *scanner.StatsEngine, symbol string, window []int) {
	stats.Seed(symbol, longSkewed())
	stats.Seed(symbol, window)
}

// --- StatsEngine ---

func TestStatsEngine_NotReadyDuringWarmup(t *testing.T) {
	stats := newStats()
	for i := 0; i < 19; i++ {
		stats.Ingest(domain.Tick{Symbol: "R_100", LastDigit: i % 10})
	}
	assert.False(t, stats.Ready("R_100"))
	_, ok := stats.Recompute("R_100", 10)
	assert.False(t, ok)

	stats.Ingest(domain.Tick{Symbol: "R_100", LastDigit: 3})
	assert.True(t, stats.Ready("R_100"))
	s, ok := stats.Recompute("R_100", 20)
	require.True(t, ok)
	assert.Equal(t, 20, s.Total)
}

func TestStatsEngine_RecomputeNeedsWindowDigits(t *testing.T) {
	stats := newStats()
	stats.Seed("R_50", make([]int, 20))
	_, ok := stats.Recompute("R_50", 25)
	assert.False(t, ok)
}

func TestStatsEngine_UnknownSymbol(t *testing.T) {
	stats := newStats()
	assert.False(t, stats.Ready("R_10"))
	assert.Nil(t, stats.Recent("R_10", 4))
	assert.Zero(t, stats.LongStatistics("R_10").Total)
}

func TestStatsEngine_SeedSkipsInvalidDigits(t *testing.T) {
	stats := newStats()
	n := stats.Seed("R_10", []int{1, 2, -1, 11, 3})
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, stats.Recent("R_10", 10))
}

func TestStatsEngine_IngestSkipsInvalidDigits(t *testing.T) {
	stats := newStats()
	stats.Ingest(domain.Tick{Symbol: "R_10", Quote: 1000.1, LastDigit: 1, Epoch: 1})
	stats.Ingest(domain.Tick{Symbol: "R_10", Quote: 1000.2, LastDigit: 12, Epoch: 2})
	stats.Ingest(domain.Tick{Symbol: "R_10", Quote: 1000.3, LastDigit: -1, Epoch: 3})
	stats.Ingest(domain.NewTick("R_10", 1000.13, 2, 4))

	assert.Equal(t, []int{1, 3}, stats.Recent("R_10", 10))
}

func TestStatsEngine_Input(t *testing.T) {
	stats := newStats()
	seed(stats, "R_100", window72)

	in, ok := stats.Input("R_100")
	require.True(t, ok)
	assert.Len(t, in.Recent, 20)
	assert.InDelta(t, 72.0, in.Short.Over[2], 1e-9)
	assert.Equal(t, 6, in.Long.MostAppearing)
	assert.Equal(t, 1, in.Long.LeastAppearing)
}

// --- Evaluator ---

func TestEvaluator_ScanRanksByScore(t *testing.T) {
	stats := newStats()
	seed(stats, "R_100", window72)
	seed(stats, "R_50", window76)

	ev := scanner.NewEvaluator(scanner.EvaluatorConfig{Entry: entryCond(), Recovery: recoveryCond()})
	res := ev.Scan(stats, stats.Symbols(), scanner.ScanState{})

	require.NotNil(t, res.Entry)
	assert.Equal(t, "R_50", res.Entry.Symbol)
	assert.InDelta(t, 76.0, res.Entry.Score, 1e-9)
	assert.Equal(t, domain.ContractOver, res.Entry.ContractType)
	assert.Equal(t, 2, res.Entry.Barrier)
	assert.Equal(t, domain.StrategyEntry, res.Entry.Strategy)
	assert.Equal(t, "DIGITOVER_2", res.Entry.Condition)
	assert.Nil(t, res.Recovery, "recovery only runs with recovery steps")
	assert.Equal(t, 2, res.Evaluated)
}

func TestEvaluator_EntryBlockedSuppressesEntry(t *testing.T) {
	stats := newStats()
	seed(stats, "R_100", window72)

	ev := scanner.NewEvaluator(scanner.EvaluatorConfig{Entry: entryCond(), Recovery: recoveryCond()})
	res := ev.Scan(stats, stats.Symbols(), scanner.ScanState{EntryBlocked: true, RecoveryStepCount: 1})

	assert.Nil(t, res.Entry)
	require.NotNil(t, res.Recovery)
	assert.Equal(t, domain.StrategyRecovery, res.Recovery.Strategy)
	assert.Equal(t, domain.ContractUnder, res.Recovery.ContractType)
	assert.Equal(t, 5, res.Recovery.Barrier)
}

func TestEvaluator_NothingToRun(t *testing.T) {
	stats := newStats()
	seed(stats, "R_100", window72)

	ev := scanner.NewEvaluator(scanner.EvaluatorConfig{Entry: entryCond(), Recovery: recoveryCond()})
	res := ev.Scan(stats, stats.Symbols(), scanner.ScanState{EntryBlocked: true})
	assert.Nil(t, res.Entry)
	assert.Nil(t, res.Recovery)
	assert.Zero(t, res.Evaluated)
}

func TestEvaluator_SkipsDisallowedMarkets(t *testing.T) {
	stats := newStats()
	seed(stats, "frxEURUSD", window72)

	ev := scanner.NewEvaluator(scanner.EvaluatorConfig{Entry: entryCond(), Recovery: recoveryCond()})
	res := ev.Scan(stats, stats.Symbols(), scanner.ScanState{})
	assert.Nil(t, res.Entry)
	assert.Zero(t, res.Evaluated)
}

func TestEvaluator_SkipsSymbolsNotReady(t *testing.T) {
	stats := newStats()
	stats.Seed("R_25", []int{1, 2, 3})

	ev := scanner.NewEvaluator(scanner.EvaluatorConfig{Entry: entryCond(), Recovery: recoveryCond()})
	res := ev.Scan(stats, stats.Symbols(), scanner.ScanState{})
	assert.Nil(t, res.Entry)
	assert.Zero(t, res.Evaluated)
}
