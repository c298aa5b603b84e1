package scanner

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

// DefaultMarketPrefixes son los mercados sintéticos que admiten contratos de dígitos.
var DefaultMarketPrefixes = []string{"R_", "1HZ", "JD", "RDBEAR", "RDBULL", "STPIDX"}

// EvaluatorConfig contiene las dos reglas y el filtro de mercados.
type EvaluatorConfig struct {
	Entry          domain.StrategyCondition
	Recovery       domain.StrategyCondition
	MarketPrefixes []string
}

// ScanState es la parte del estado de dinero que decide qué reglas corren.
type ScanState struct {
	EntryBlocked      bool
	RecoveryStepCount int
}

// ScanResult contiene el mejor candidato de cada estrategia, si hay.
type ScanResult struct {
	Entry     *domain.TradeSignal
	Recovery  *domain.TradeSignal
	Evaluated int // símbolos listos evaluados
}

// Evaluator aplica las reglas Entry y Recovery y rankea candidatos.
type Evaluator struct {
	cfg EvaluatorConfig
}

// NewEvaluator crea un Evaluator. Sin prefijos configurados usa DefaultMarketPrefixes.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	if len(cfg.MarketPrefixes) == 0 {
		cfg.MarketPrefixes = DefaultMarketPrefixes
	}
	return &Evaluator{cfg: cfg}
}

// Evaluate aplica una regla a la entrada de un símbolo.
func (ev *Evaluator) Evaluate(in domain.EvalInput, cond domain.StrategyCondition) (bool, float64) {
	return domain.Evaluate(in, cond)
}

// Allowed indica si el símbolo pertenece a un mercado escaneable.
func (ev *Evaluator) Allowed(symbol string) bool {
	for _, p := range ev.cfg.MarketPrefixes {
		if strings.HasPrefix(symbol, p) {
			return true
		}
	}
	return false
}

// Scan evalúa todos los símbolos listos y devuelve el mejor candidato Entry
// y, por separado, el mejor Recovery. Entry no se evalúa mientras
// EntryBlocked; Recovery solo mientras RecoveryStepCount > 0.
func (ev *Evaluator) Scan(stats *StatsEngine, symbols []string, state ScanState) ScanResult {
	var result ScanResult
	var entries, recoveries []domain.TradeSignal

	runEntry := !state.EntryBlocked
	runRecovery := state.RecoveryStepCount > 0
	if !runEntry && !runRecovery {
		return result
	}

	for _, symbol := range symbols {
		if !ev.Allowed(symbol) {
			continue
		}
		in, ok := stats.Input(symbol)
		if !ok {
			continue
		}
		result.Evaluated++

		if runEntry {
			if ok, score := ev.Evaluate(in, ev.cfg.Entry); ok {
				entries = append(entries, signalFor(symbol, ev.cfg.Entry, domain.StrategyEntry, score))
			}
		}
		if runRecovery {
			if ok, score := ev.Evaluate(in, ev.cfg.Recovery); ok {
				recoveries = append(recoveries, signalFor(symbol, ev.cfg.Recovery, domain.StrategyRecovery, score))
			}
		}
	}

	result.Entry = best(entries)
	result.Recovery = best(recoveries)

	if result.Entry != nil || result.Recovery != nil {
		slog.Debug("scanner: candidates",
			"evaluated", result.Evaluated,
			"entry", len(entries),
			"recovery", len(recoveries),
		)
	}
	return result
}

func signalFor(symbol string, cond domain.StrategyCondition, strategy domain.Strategy, score float64) domain.TradeSignal {
	return domain.TradeSignal{
		Symbol:       symbol,
		ContractType: cond.ContractType,
		Barrier:      cond.Prediction,
		Strategy:     strategy,
		Score:        score,
		Condition:    cond.Key(),
	}
}

// best ordena por score desc y desempata por símbolo.
func best(signals []domain.TradeSignal) *domain.TradeSignal {
	if len(signals) == 0 {
		return nil
	}
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Score != signals[j].Score {
			return signals[i].Score > signals[j].Score
		}
		return signals[i].Symbol < signals[j].Symbol
	})
	s := signals[0]
	return &s
}
