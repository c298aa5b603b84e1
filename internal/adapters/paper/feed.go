// Package paper simula un bróker de contratos de dígitos: un feed de ticks
// con random walk y un gateway que acepta órdenes y las liquida con el
// siguiente tick del símbolo. Sirve para correr el bot sin dinero real.
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/alejandrodnm/ghostbot/internal/ports"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultTickInterval = time.Second
	DefaultDecimals     = 2
	DefaultStartQuote   = 1000.0
	DefaultVolatility   = 0.35
)

// FeedConfig configura el feed simulado.
type FeedConfig struct {
	Symbols    []string
	Interval   time.Duration // un tick por símbolo en cada intervalo
	Decimals   int
	StartQuote float64
	Volatility float64 // desvío del paso del random walk
	Seed       int64   // 0 = semilla por reloj
}

// TickObserver recibe cada tick antes de publicarlo al engine.
type TickObserver func(ctx context.Context, t domain.Tick) error

// Feed implementa ports.TickFeed con un random walk por símbolo.
type Feed struct {
	cfg       FeedConfig
	rng       *rand.Rand
	limiter   *rate.Limiter
	quotes    map[string]float64
	epoch     int64
	observers []TickObserver
}

// NewFeed crea un Feed aplicando defaults a los campos vacíos.
func NewFeed(cfg FeedConfig) *Feed {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.Decimals <= 0 {
		cfg.Decimals = DefaultDecimals
	}
	if cfg.StartQuote <= 0 {
		cfg.StartQuote = DefaultStartQuote
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = DefaultVolatility
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	quotes := make(map[string]float64, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		quotes[s] = cfg.StartQuote
	}
	return &Feed{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		quotes:  quotes,
		epoch:   time.Now().Unix(),
	}
}

// Observe registra un observador. Debe llamarse antes de Run.
func (f *Feed) Observe(o TickObserver) {
	f.observers = append(f.observers, o)
}

// Step avanza un paso el random walk de cada símbolo y devuelve los ticks.
func (f *Feed) Step() []domain.Tick {
	f.epoch++
	ticks := make([]domain.Tick, 0, len(f.cfg.Symbols))
	for _, symbol := range f.cfg.Symbols {
		q := f.quotes[symbol] + f.rng.NormFloat64()*f.cfg.Volatility
		if q <= 0 {
			q = f.cfg.StartQuote
		}
		q = decimal.NewFromFloat(q).Round(int32(f.cfg.Decimals)).InexactFloat64()
		f.quotes[symbol] = q
		ticks = append(ticks, domain.NewTick(symbol, q, f.cfg.Decimals, f.epoch))
	}
	return ticks
}

// Run publica ticks a sink al ritmo configurado hasta que ctx termine.
func (f *Feed) Run(ctx context.Context, sink ports.EventSink) error {
	slog.Info("paper: feed started", "symbols", f.cfg.Symbols, "interval", f.cfg.Interval)
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			slog.Info("paper: feed stopped")
			return nil
		}
		for _, t := range f.Step() {
			for _, o := range f.observers {
				if err := o(ctx, t); err != nil {
					slog.Warn("paper: tick observer failed", "symbol", t.Symbol, "err", err)
				}
			}
			if err := sink.Publish(ctx, domain.TickEvent(t)); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("paper.Feed.Run: publish %s: %w", t.Symbol, err)
			}
		}
	}
}
