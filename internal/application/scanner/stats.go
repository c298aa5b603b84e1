package scanner

import (
	"log/slog"
	"sort"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

const (
	DefaultShortWindow    = 20
	DefaultLongWindow     = 1000
	DefaultAnalysisDigits = 15
)

// StatsConfig controla el tamaño de las ventanas de dígitos.
type StatsConfig struct {
	ShortWindow    int // capacidad de la ventana corta; también es el warm-up
	LongWindow     int // ventana larga para el chequeo de régimen
	AnalysisDigits int // últimos N dígitos usados para los porcentajes
}

type histories struct {
	short *domain.DigitHistory
	long  *domain.DigitHistory
}

// StatsEngine mantiene el historial de dígitos por símbolo y deriva
// estadísticas bajo demanda. No es seguro para uso concurrente: el engine
// lo usa desde un único goroutine.
type StatsEngine struct {
	cfg     StatsConfig
	symbols map[string]*histories
}

// NewStatsEngine crea un StatsEngine aplicando defaults a los campos en cero.
func NewStatsEngine(cfg StatsConfig) *StatsEngine {
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = DefaultShortWindow
	}
	if cfg.LongWindow <= 0 {
		cfg.LongWindow = DefaultLongWindow
	}
	if cfg.AnalysisDigits <= 0 {
		cfg.AnalysisDigits = DefaultAnalysisDigits
	}
	if cfg.LongWindow < cfg.AnalysisDigits {
		cfg.LongWindow = cfg.AnalysisDigits
	}
	return &StatsEngine{cfg: cfg, symbols: make(map[string]*histories)}
}

// Config devuelve la configuración efectiva.
func (e *StatsEngine) Config() StatsConfig { return e.cfg }

func (e *StatsEngine) get(symbol string) *histories {
	h, ok := e.symbols[symbol]
	if !ok {
		h = &histories{
			short: domain.NewDigitHistory(e.cfg.ShortWindow),
			long:  domain.NewDigitHistory(e.cfg.LongWindow),
		}
		e.symbols[symbol] = h
	}
	return h
}

// Ingest agrega el último dígito del tick a ambas ventanas. Un dígito fuera
// de 0..9 se descarta.
func (e *StatsEngine) Ingest(t domain.Tick) {
	if t.LastDigit < 0 || t.LastDigit > 9 {
		slog.Warn("scanner: tick with invalid digit dropped", "symbol", t.Symbol, "digit", t.LastDigit)
		return
	}
	h := e.get(t.Symbol)
	h.short.Push(t.LastDigit)
	h.long.Push(t.LastDigit)
}

// Seed precarga las ventanas con dígitos históricos (del más viejo al más
// nuevo). Dígitos fuera de 0..9 se ignoran.
func (e *StatsEngine) Seed(symbol string, digits []int) int {
	h := e.get(symbol)
	n := 0
	for _, d := range digits {
		if d < 0 || d > 9 {
			continue
		}
		h.short.Push(d)
		h.long.Push(d)
		n++
	}
	return n
}

// Ready indica si el símbolo pasó el warm-up.
func (e *StatsEngine) Ready(symbol string) bool {
	h, ok := e.symbols[symbol]
	return ok && h.short.Len() >= e.cfg.ShortWindow
}

// Recompute devuelve las estadísticas de los últimos window dígitos.
// Devuelve false (not ready) mientras el símbolo no pasó el warm-up o no
// hay window dígitos todavía.
func (e *StatsEngine) Recompute(symbol string, window int) (domain.DigitStatistics, bool) {
	if !e.Ready(symbol) {
		return domain.DigitStatistics{}, false
	}
	h := e.symbols[symbol]
	if window <= 0 || h.long.Len() < window {
		return domain.DigitStatistics{}, false
	}
	return domain.ComputeStatistics(h.long.Last(window)), true
}

// LongStatistics devuelve la distribución de toda la ventana larga.
func (e *StatsEngine) LongStatistics(symbol string) domain.DigitStatistics {
	h, ok := e.symbols[symbol]
	if !ok {
		return domain.DigitStatistics{}
	}
	return domain.ComputeStatistics(h.long.All())
}

// Recent devuelve los últimos n dígitos de la ventana corta.
func (e *StatsEngine) Recent(symbol string, n int) []int {
	h, ok := e.symbols[symbol]
	if !ok {
		return nil
	}
	return h.short.Last(n)
}

// Input arma la entrada de evaluación de un símbolo. false si no está listo.
func (e *StatsEngine) Input(symbol string) (domain.EvalInput, bool) {
	short, ok := e.Recompute(symbol, e.cfg.AnalysisDigits)
	if !ok {
		return domain.EvalInput{}, false
	}
	return domain.EvalInput{
		Recent: e.Recent(symbol, e.cfg.ShortWindow),
		Short:  short,
		Long:   e.LongStatistics(symbol),
	}, true
}

// Symbols devuelve los símbolos conocidos ordenados.
func (e *StatsEngine) Symbols() []string {
	out := make([]string, 0, len(e.symbols))
	for s := range e.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
