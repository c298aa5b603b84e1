package paper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/alejandrodnm/ghostbot/internal/ports"
	"github.com/google/uuid"
)

const (
	DefaultMinStake      = 0.35
	DefaultPayoutPercent = 95.0
	defaultOutboxSize    = 256
)

// ErrBackpressure se devuelve cuando la cola de eventos del gateway está llena.
var ErrBackpressure = errors.New("paper: outbox full")

// GatewayConfig configura el bróker simulado.
type GatewayConfig struct {
	PayoutPercent float64
	MinStake      float64
	// DuplicateSettlements reenvía cada liquidación dos veces, como hace a
	// veces el bróker real al reconectar.
	DuplicateSettlements bool
}

type openContract struct {
	id         string
	req        domain.OrderRequest
	entryQuote float64
	entryEpoch int64
}

type lastTick struct {
	quote float64
	epoch int64
}

// Gateway implementa ports.Gateway. Las respuestas se publican de forma
// asíncrona por Run, nunca desde PlaceOrder.
type Gateway struct {
	cfg GatewayConfig
	out chan domain.Event
	now func() time.Time

	mu   sync.Mutex
	open map[string][]openContract // symbol → contratos abiertos
	last map[string]lastTick
}

// NewGateway crea un Gateway aplicando defaults a los campos vacíos.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.PayoutPercent <= 0 {
		cfg.PayoutPercent = DefaultPayoutPercent
	}
	if cfg.MinStake <= 0 {
		cfg.MinStake = DefaultMinStake
	}
	return &Gateway{
		cfg:  cfg,
		out:  make(chan domain.Event, defaultOutboxSize),
		now:  time.Now,
		open: make(map[string][]openContract),
		last: make(map[string]lastTick),
	}
}

// PlaceOrder encola la aceptación o el rechazo de la orden. Solo devuelve
// error si la cola está llena.
func (g *Gateway) PlaceOrder(_ context.Context, req domain.OrderRequest) error {
	if req.Stake < g.cfg.MinStake {
		return g.enqueue(domain.RejectedEvent(domain.OrderRejected{
			Request: req,
			Reason:  fmt.Sprintf("stake %.2f below minimum %.2f", req.Stake, g.cfg.MinStake),
		}))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c := openContract{id: uuid.NewString(), req: req}
	if t, ok := g.last[req.Symbol]; ok {
		c.entryQuote = t.quote
		c.entryEpoch = t.epoch
	}
	if err := g.enqueue(domain.AcceptedEvent(domain.OrderAccepted{
		ContractID: c.id,
		Request:    req,
		AcceptedAt: g.now(),
	})); err != nil {
		return err
	}
	g.open[req.Symbol] = append(g.open[req.Symbol], c)

	slog.Debug("paper: order accepted",
		"contract_id", c.id,
		"symbol", req.Symbol,
		"contract_type", req.ContractType,
		"barrier", req.Barrier,
		"stake", req.Stake,
	)
	return nil
}

// OnTick liquida los contratos abiertos del símbolo con el primer tick
// posterior a su entrada. Se registra como observador del Feed.
func (g *Gateway) OnTick(ctx context.Context, t domain.Tick) error {
	g.mu.Lock()
	g.last[t.Symbol] = lastTick{quote: t.Quote, epoch: t.Epoch}

	var settled []domain.Settlement
	remaining := g.open[t.Symbol][:0]
	for _, c := range g.open[t.Symbol] {
		if t.Epoch <= c.entryEpoch {
			remaining = append(remaining, c)
			continue
		}
		settled = append(settled, g.settle(c, t))
	}
	if len(remaining) == 0 {
		delete(g.open, t.Symbol)
	} else {
		g.open[t.Symbol] = remaining
	}
	g.mu.Unlock()

	for _, s := range settled {
		copies := 1
		if g.cfg.DuplicateSettlements {
			copies = 2
		}
		for i := 0; i < copies; i++ {
			select {
			case g.out <- domain.SettlementEvent(s):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (g *Gateway) settle(c openContract, t domain.Tick) domain.Settlement {
	req := c.req
	won := domain.ContractWins(req.ContractType, req.Barrier, t.LastDigit, c.entryQuote, t.Quote)
	s := domain.Settlement{
		ContractID: c.id,
		Status:     domain.StatusLost,
		Profit:     -req.Stake,
		Request:    req,
		SettledAt:  t.Time(),
	}
	if won {
		s.Status = domain.StatusWon
		s.Profit = domain.WinProfit(req.Stake, g.cfg.PayoutPercent)
	}
	slog.Debug("paper: contract settled",
		"contract_id", c.id,
		"symbol", req.Symbol,
		"exit_digit", t.LastDigit,
		"won", won,
		"profit", s.Profit,
	)
	return s
}

// Open devuelve cuántos contratos siguen sin liquidar.
func (g *Gateway) Open() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, cs := range g.open {
		n += len(cs)
	}
	return n
}

// Run entrega los eventos encolados a sink hasta que ctx termine.
func (g *Gateway) Run(ctx context.Context, sink ports.EventSink) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-g.out:
			if err := sink.Publish(ctx, ev); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("paper.Gateway.Run: publish %s: %w", ev.Kind, err)
			}
		}
	}
}

func (g *Gateway) enqueue(ev domain.Event) error {
	select {
	case g.out <- ev:
		return nil
	default:
		slog.Warn("paper: outbox full, dropping event", "kind", ev.Kind, "symbol", ev.Symbol())
		return fmt.Errorf("paper.Gateway: %s: %w", ev.Kind, ErrBackpressure)
	}
}
