package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/application/engine/shadow"
	"github.com/alejandrodnm/ghostbot/internal/application/scanner"
	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/alejandrodnm/ghostbot/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const slowEventThreshold = 100 * time.Millisecond

// State is the bot lifecycle state.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StateStopped State = "STOPPED"
)

// Snapshot is a read-only view of the engine for hosts and tests.
type Snapshot struct {
	State       State
	RunID       string
	Money       domain.MoneyState
	Active      []domain.ActiveContract
	Outstanding int
	StopReason  *domain.StopReason
}

// Engine is the bot orchestrator. Events are drained one at a time by Run;
// a mutex serializes them against Start, Stop and Sweep called by the host.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	gateway  ports.Gateway
	journal  ports.Journal
	notifier ports.Notifier
	metrics  ports.Metrics

	inbox     *Inbox
	stats     *scanner.StatsEngine
	evaluator *scanner.Evaluator
	locks     *LockRegistry
	tracker   *Tracker
	shadow    *shadow.Mediator
	money     *MoneyManager
	limiter   *rate.Limiter

	state      State
	runID      string
	session    domain.Session
	stopReason *domain.StopReason
	lastQuote  map[string]float64
	stops      chan domain.StopReason
	now        func() time.Time
}

// New creates an idle engine. journal, notifier and metrics may be nil.
func New(
	cfg Config,
	gateway ports.Gateway,
	journal ports.Journal,
	notifier ports.Notifier,
	metrics ports.Metrics,
) *Engine {
	cfg.applyDefaults()
	if journal == nil {
		journal = noopJournal{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	locks := NewLockRegistry(cfg.LockTTL, cfg.MaxConcurrent)
	return &Engine{
		cfg:      cfg,
		gateway:  gateway,
		journal:  journal,
		notifier: notifier,
		metrics:  metrics,
		inbox:    NewInbox(cfg.InboxSize),
		stats:    scanner.NewStatsEngine(cfg.Stats),
		evaluator: scanner.NewEvaluator(scanner.EvaluatorConfig{
			Entry:          cfg.Entry,
			Recovery:       cfg.Recovery,
			MarketPrefixes: cfg.MarketPrefixes,
		}),
		locks:     locks,
		tracker:   NewTracker(locks),
		shadow:    shadow.New(cfg.VirtualHook),
		money:     NewMoneyManager(cfg.Money),
		state:     StateIdle,
		lastQuote: make(map[string]float64),
		stops:     make(chan domain.StopReason, 4),
		now:       time.Now,
	}
}

// SetClock replaces the wall clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
	e.tracker.SetClock(now)
}

// Publish implements ports.EventSink by queueing into the inbox.
func (e *Engine) Publish(ctx context.Context, ev domain.Event) error {
	return e.inbox.Publish(ctx, ev)
}

// Stops delivers the reason every time a run ends.
func (e *Engine) Stops() <-chan domain.StopReason { return e.stops }

// Start moves Idle or Stopped to Running with a fresh money state and empty
// registries. An invalid config returns a *domain.ConfigError and the engine
// keeps its state.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		return fmt.Errorf("engine.Start: %w", domain.ErrAlreadyRunning)
	}
	if e.gateway == nil {
		return fmt.Errorf("engine.Start: %w", &domain.ConfigError{Field: "gateway", Err: errors.New("gateway is required")})
	}
	if err := e.cfg.Validate(); err != nil {
		slog.Error("engine: invalid configuration", "err", err)
		return fmt.Errorf("engine.Start: %w", err)
	}

	now := e.now()
	e.runID = uuid.NewString()
	e.money = NewMoneyManager(e.cfg.Money)
	e.locks.Clear()
	e.tracker.Reset(e.money, e.runID)
	e.shadow.ClearBot(e.cfg.Bot)
	e.limiter = rate.NewLimiter(rate.Every(e.cfg.ScanCooldown), 1)
	e.stopReason = nil
	e.state = StateRunning
	e.session = domain.Session{RunID: e.runID, Bot: e.cfg.Bot, StartedAt: now}

	if err := e.journal.StartSession(ctx, e.session); err != nil {
		slog.Warn("engine: journal start session failed", "err", err)
	}
	e.metrics.SetMoneyState(e.money.State())
	e.metrics.SetActiveContracts(0)

	slog.Info("engine: started",
		"bot", e.cfg.Bot,
		"run_id", e.runID,
		"stake", e.money.EntryStake(),
		"target", e.cfg.Money.TargetProfit,
		"stop_loss", e.cfg.Money.StopLoss,
		"virtual_hook", e.cfg.VirtualHook.Enabled,
	)
	return nil
}

// Stop ends the run at the operator's request. In-flight contracts are left
// to settle; their settlements are still applied.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return fmt.Errorf("engine.Stop: %w", domain.ErrNotRunning)
	}
	e.stopLocked(ctx, domain.StopReason{
		Kind:    domain.StopUser,
		TotalPL: e.money.State().TotalPL,
		Detail:  "stopped by operator",
	})
	return nil
}

func (e *Engine) stopLocked(ctx context.Context, reason domain.StopReason) {
	e.state = StateStopped
	e.stopReason = &reason
	e.locks.Clear()
	e.shadow.ClearBot(e.cfg.Bot)

	state := e.money.State()
	ended := e.now()
	e.session.EndedAt = &ended
	e.session.StopKind = reason.Kind
	e.session.StopDetail = reason.Detail
	e.session.TotalPL = state.TotalPL
	e.session.Wins = state.WinCount
	e.session.Losses = state.LossCount

	if err := e.journal.EndSession(ctx, e.session); err != nil {
		slog.Warn("engine: journal end session failed", "err", err)
	}
	if err := e.notifier.NotifyStop(ctx, reason, state); err != nil {
		slog.Warn("engine: notifier error", "err", err)
	}

	level := slog.LevelWarn
	if reason.Success() || reason.Kind == domain.StopUser {
		level = slog.LevelInfo
	}
	slog.Log(ctx, level, "engine: stopped",
		"run_id", e.runID,
		"reason", reason.Kind,
		"detail", reason.Detail,
		"total_pl", state.TotalPL,
		"in_flight", e.tracker.Count(),
	)

	select {
	case e.stops <- reason:
	default:
	}
}

// Run drains the inbox and runs the periodic sweep until ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	slog.Info("engine: event loop started", "sweep_interval", e.cfg.SweepInterval, "inbox", e.cfg.InboxSize)
	for {
		select {
		case <-ctx.Done():
			slog.Info("engine: event loop stopped", "pending_events", e.inbox.Len())
			return nil
		case ev := <-e.inbox.Events():
			e.Handle(ctx, ev)
		case <-ticker.C:
			e.Sweep()
		}
	}
}

// Handle processes one event synchronously. A panicking handler is logged
// and the loop continues.
func (e *Engine) Handle(ctx context.Context, ev domain.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("engine: panic handling event",
				"kind", ev.Kind,
				"symbol", ev.Symbol(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		if d := time.Since(start); d > slowEventThreshold {
			slog.Warn("engine: slow event", "kind", ev.Kind, "took", d)
		}
	}()

	switch ev.Kind {
	case domain.EventTick:
		e.onTick(ctx, ev.Tick)
	case domain.EventOrderAccepted:
		e.onAccepted(ev.Accepted)
	case domain.EventOrderRejected:
		e.onRejected(ev.Rejected)
	case domain.EventSettlement:
		e.onSettlement(ctx, ev.Settlement)
	default:
		slog.Warn("engine: unknown event kind", "kind", ev.Kind)
	}
}

func (e *Engine) onTick(ctx context.Context, t domain.Tick) {
	// Histories keep warming up while the bot is idle or stopped.
	e.stats.Ingest(t)
	e.lastQuote[t.Symbol] = t.Quote
	e.metrics.RecordTick(t.Symbol)

	if e.state != StateRunning {
		return
	}

	if res, ok := e.shadow.EvaluateOnNextTick(e.cfg.Bot, t.Symbol, t); ok {
		e.metrics.RecordVirtual(res.Won)
		if err := e.journal.SaveVirtualResult(ctx, e.runID, res); err != nil {
			slog.Warn("engine: journal virtual result failed", "err", err)
		}
	}

	now := e.now()
	if !e.limiter.AllowN(now, 1) {
		return
	}
	e.scan(ctx, now)
}

func (e *Engine) scan(ctx context.Context, now time.Time) {
	state := e.money.State()
	res := e.evaluator.Scan(e.stats, e.stats.Symbols(), scanner.ScanState{
		EntryBlocked:      state.EntryBlocked,
		RecoveryStepCount: state.RecoveryStepCount,
	})

	for _, sig := range []*domain.TradeSignal{res.Entry, res.Recovery} {
		if sig == nil {
			continue
		}
		e.metrics.RecordSignal(sig.Strategy, sig.Symbol)
		e.trySignal(ctx, *sig, now)
	}
}

// trySignal admits a signal, then routes it to a virtual or a real order.
func (e *Engine) trySignal(ctx context.Context, sig domain.TradeSignal, now time.Time) {
	sig.Stake = e.money.StakeFor(sig.Strategy)
	if sig.Stake <= 0 {
		slog.Debug("engine: no stake for signal", "symbol", sig.Symbol, "strategy", sig.Strategy)
		return
	}
	log := slog.With("symbol", sig.Symbol, "strategy", sig.Strategy, "stake", sig.Stake, "score", sig.Score)

	req := domain.OrderRequest{
		RequestID:    uuid.NewString(),
		RunID:        e.runID,
		Symbol:       sig.Symbol,
		ContractType: sig.ContractType,
		Barrier:      sig.Barrier,
		Stake:        sig.Stake,
		Strategy:     sig.Strategy,
		PlacedAt:     now,
	}
	err := e.admit(sig)
	if err == nil {
		err = e.locks.Admit(AdmitRequest{
			Symbol:    sig.Symbol,
			Strategy:  sig.Strategy,
			Stake:     sig.Stake,
			Barrier:   sig.Barrier,
			Condition: sig.Condition,
			RequestID: req.RequestID,
		}, now)
	}
	if err != nil {
		var denied *domain.AdmissionError
		if errors.As(err, &denied) {
			e.metrics.RecordAdmissionDenied(denied.Reason)
			log.Debug("engine: signal not admitted", "reason", denied.Reason)
		}
		return
	}

	armed := e.shadow.Enabled() && e.shadow.ShouldTradeReal(e.cfg.Bot, sig.Symbol)
	if e.shadow.Enabled() && !armed {
		// Virtual orders never hold the symbol.
		e.locks.Release(sig.Symbol, sig.Strategy)
		if _, ok := e.shadow.RecordVirtualOrder(e.cfg.Bot, sig.Symbol, sig.ContractType, sig.Barrier, e.lastQuote[sig.Symbol], now); ok {
			e.metrics.RecordOrder(sig.Strategy, false)
		}
		return
	}

	if err := e.gateway.PlaceOrder(ctx, req); err != nil {
		log.Warn("engine: place order failed", "err", err)
		e.tracker.OnOrderRejected(domain.OrderRejected{Request: req, Reason: err.Error()})
		return
	}
	if armed {
		e.shadow.ConsumeTrigger(e.cfg.Bot, sig.Symbol)
	}
	e.metrics.RecordOrder(sig.Strategy, true)
	log.Info("engine: order placed",
		"request_id", req.RequestID,
		"contract_type", req.ContractType,
		"barrier", req.Barrier,
		"phase", e.money.State().Phase(),
	)
}

// admit applies the checks that need tracker state before touching locks.
func (e *Engine) admit(sig domain.TradeSignal) error {
	if e.tracker.HasSymbol(sig.Symbol) {
		return &domain.AdmissionError{Symbol: sig.Symbol, Reason: domain.DenyActive}
	}
	if e.tracker.Count() >= e.cfg.MaxConcurrent {
		return &domain.AdmissionError{Symbol: sig.Symbol, Reason: domain.DenyMaxConcurrent}
	}
	return nil
}

func (e *Engine) onAccepted(acc domain.OrderAccepted) {
	e.tracker.OnOrderAccepted(acc)
	e.metrics.SetActiveContracts(e.tracker.Count())
}

func (e *Engine) onRejected(rej domain.OrderRejected) {
	e.tracker.OnOrderRejected(rej)
}

func (e *Engine) onSettlement(ctx context.Context, s domain.Settlement) {
	res := e.tracker.OnSettlement(s)
	e.metrics.SetActiveContracts(e.tracker.Count())
	if res.Duplicate || res.StaleRun || !res.Applied {
		return
	}

	c := res.Contract
	e.metrics.RecordSettlement(c.Strategy, s.Won(), res.Match)
	e.metrics.SetMoneyState(e.money.State())

	profit := s.Profit
	if !s.Won() {
		profit = -c.Stake
	}
	settledAt := s.SettledAt
	if settledAt.IsZero() {
		settledAt = e.now()
	}
	rec := domain.TradeRecord{
		ContractID:   s.ContractID,
		RunID:        e.runID,
		Symbol:       c.Symbol,
		Strategy:     c.Strategy,
		ContractType: s.Request.ContractType,
		Barrier:      c.Barrier,
		Stake:        c.Stake,
		Profit:       profit,
		Won:          s.Won(),
		Match:        res.Match,
		SettledAt:    settledAt,
	}
	if err := e.journal.SaveTrade(ctx, rec); err != nil {
		slog.Warn("engine: journal trade failed", "err", err, "contract_id", s.ContractID)
	}

	if res.Stop != nil && e.state == StateRunning {
		e.stopLocked(ctx, *res.Stop)
	}
}

// Sweep reclaims orphaned locks and drops contracts whose settlement never
// came. Run calls it every SweepInterval.
func (e *Engine) Sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	dropped := e.tracker.DropStale(now, e.cfg.StaleContractAfter)
	for _, c := range dropped {
		e.locks.Release(c.Symbol, c.Strategy)
	}
	reclaimed := e.locks.Sweep(now, e.tracker.HasSymbol)

	e.metrics.RecordReclaimed("contract", len(dropped))
	e.metrics.RecordReclaimed("lock", len(reclaimed))
	e.metrics.SetActiveContracts(e.tracker.Count())
}

// Warmup seeds digit histories from an external history source. Symbols
// that fail to load are logged and skipped.
func (e *Engine) Warmup(ctx context.Context, history ports.HistoryProvider, symbols []string) (int, error) {
	if history == nil {
		return 0, nil
	}
	loaded := 0
	var errs []error
	for _, symbol := range symbols {
		digits, err := history.LoadDigits(ctx, symbol)
		if err != nil {
			slog.Warn("engine: warmup failed", "symbol", symbol, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		e.mu.Lock()
		n := e.stats.Seed(symbol, digits)
		ready := e.stats.Ready(symbol)
		e.mu.Unlock()
		loaded += n
		slog.Info("engine: warmup", "symbol", symbol, "digits", n, "ready", ready)
	}
	if len(errs) == len(symbols) && len(errs) > 0 {
		return loaded, fmt.Errorf("engine.Warmup: %w", errors.Join(errs...))
	}
	return loaded, nil
}

// Snapshot returns the current engine view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		State:       e.state,
		RunID:       e.runID,
		Money:       e.money.State(),
		Active:      e.tracker.Active(),
		Outstanding: e.locks.Outstanding(),
		StopReason:  e.stopReason,
	}
}

// Ready reports whether a symbol passed its warm-up.
func (e *Engine) Ready(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Ready(symbol)
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }
