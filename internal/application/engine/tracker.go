package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

// DefaultStaleContractAfter drops contracts whose settlement never arrived.
const DefaultStaleContractAfter = 5 * time.Minute

// Settlement match kinds.
const (
	MatchByID     = "id"
	MatchFallback = "fallback"
	MatchUnmapped = "unmapped"
)

// SettlementResult describes what OnSettlement did.
type SettlementResult struct {
	Duplicate bool // contract already settled; nothing applied
	StaleRun  bool // settlement of a previous run; nothing applied
	Applied   bool // money state updated
	Match     string
	Contract  domain.ActiveContract
	Released  bool
	Stop      *domain.StopReason
}

// Tracker maps broker contract IDs to strategy metadata and applies each
// settlement to the money manager exactly once.
type Tracker struct {
	locks     *LockRegistry
	money     *MoneyManager
	runID     string
	active    map[string]domain.ActiveContract // contractID → contract
	processed map[string]struct{}              // settled contract IDs
	now       func() time.Time
}

// NewTracker creates a tracker releasing through locks.
func NewTracker(locks *LockRegistry) *Tracker {
	return &Tracker{
		locks:     locks,
		active:    make(map[string]domain.ActiveContract),
		processed: make(map[string]struct{}),
		now:       time.Now,
	}
}

// SetClock replaces the clock used to stamp acceptances that carry no time.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// Reset starts a new run: forgets every contract and binds the run's money manager.
func (t *Tracker) Reset(money *MoneyManager, runID string) {
	t.money = money
	t.runID = runID
	clear(t.active)
	clear(t.processed)
}

// OnOrderAccepted starts tracking a contract. Acceptances that arrive after
// the settlement, repeat, belong to another run, or would open a second
// contract on the same symbol are ignored and reported false.
func (t *Tracker) OnOrderAccepted(acc domain.OrderAccepted) bool {
	req := acc.Request
	log := slog.With("contract_id", acc.ContractID, "symbol", req.Symbol, "strategy", req.Strategy)

	if _, done := t.processed[acc.ContractID]; done {
		log.Warn("tracker: late acceptance for settled contract ignored")
		return false
	}
	if _, dup := t.active[acc.ContractID]; dup {
		log.Debug("tracker: duplicate acceptance ignored")
		return false
	}
	if req.RunID != "" && req.RunID != t.runID {
		log.Warn("tracker: acceptance from previous run ignored", "run_id", req.RunID)
		return false
	}
	if other, ok := t.bySymbol(req.Symbol); ok {
		log.Error("tracker: second contract on symbol refused",
			"err", domain.ErrSettlementMismatch,
			"active_contract_id", other.ContractID,
		)
		return false
	}

	start := acc.AcceptedAt
	if start.IsZero() {
		start = t.now()
	}
	t.active[acc.ContractID] = domain.ActiveContract{
		ContractID: acc.ContractID,
		RequestID:  req.RequestID,
		Symbol:     req.Symbol,
		Strategy:   req.Strategy,
		Stake:      req.Stake,
		Barrier:    req.Barrier,
		StartTime:  start,
	}
	log.Info("tracker: contract accepted", "stake", req.Stake, "barrier", req.Barrier)
	return true
}

// OnSettlement applies a settlement exactly once per contract ID. Unknown
// IDs fall back to (symbol, strategy); when nothing matches, the symbol's
// lock state is force-released unless it belongs to a different request.
func (t *Tracker) OnSettlement(s domain.Settlement) SettlementResult {
	req := s.Request
	log := slog.With("contract_id", s.ContractID, "symbol", req.Symbol, "strategy", req.Strategy)

	if _, done := t.processed[s.ContractID]; done {
		log.Debug("tracker: duplicate settlement ignored")
		return SettlementResult{Duplicate: true}
	}
	t.processed[s.ContractID] = struct{}{}

	if req.RunID != "" && t.runID != "" && req.RunID != t.runID {
		log.Warn("tracker: settlement from previous run ignored", "run_id", req.RunID)
		return SettlementResult{StaleRun: true}
	}

	res := SettlementResult{Match: MatchByID}
	c, ok := t.active[s.ContractID]
	if !ok {
		c, ok = t.fallback(req)
		res.Match = MatchFallback
		if ok {
			log.Warn("tracker: settlement matched by symbol and strategy",
				"err", domain.ErrSettlementMismatch,
				"tracked_contract_id", c.ContractID,
			)
			t.processed[c.ContractID] = struct{}{}
		}
	}

	if ok {
		delete(t.active, c.ContractID)
		res.Released = t.locks.Release(c.Symbol, c.Strategy)
	} else {
		res.Match = MatchUnmapped
		c = domain.ActiveContract{
			ContractID: s.ContractID,
			RequestID:  req.RequestID,
			Symbol:     req.Symbol,
			Strategy:   req.Strategy,
			Stake:      req.Stake,
			Barrier:    req.Barrier,
		}
		res.Released = t.forceCleanup(req, log)
	}
	res.Contract = c

	stake := c.Stake
	if stake <= 0 {
		stake = req.Stake
	}
	if t.money != nil && stake > 0 && c.Strategy != "" {
		res.Stop = t.money.Apply(c.Strategy, s.Won(), stake, s.Profit)
		res.Applied = true
	} else {
		log.Warn("tracker: settlement without stake or strategy, money untouched")
	}
	return res
}

// OnOrderRejected releases the symbol without touching money.
func (t *Tracker) OnOrderRejected(rej domain.OrderRejected) bool {
	req := rej.Request
	slog.Warn("tracker: order rejected",
		"symbol", req.Symbol,
		"strategy", req.Strategy,
		"reason", rej.Reason,
		"err", domain.ErrOrderRejected,
	)
	if p, ok := t.locks.Pending(req.Symbol); ok && req.RequestID != "" && p.RequestID != req.RequestID {
		slog.Warn("tracker: rejection for a different request, lock kept",
			"symbol", req.Symbol,
			"pending_request_id", p.RequestID,
			"request_id", req.RequestID,
		)
		return false
	}
	return t.locks.Release(req.Symbol, req.Strategy)
}

// fallback finds a tracked contract for the same symbol and strategy.
// When both sides carry a request ID they must agree.
func (t *Tracker) fallback(req domain.OrderRequest) (domain.ActiveContract, bool) {
	for _, c := range t.sorted() {
		if c.Symbol != req.Symbol || c.Strategy != req.Strategy {
			continue
		}
		if req.RequestID != "" && c.RequestID != "" && req.RequestID != c.RequestID {
			continue
		}
		return c, true
	}
	return domain.ActiveContract{}, false
}

func (t *Tracker) forceCleanup(req domain.OrderRequest, log *slog.Logger) bool {
	if p, ok := t.locks.Pending(req.Symbol); ok && req.RequestID != "" && p.RequestID != "" && p.RequestID != req.RequestID {
		log.Warn("tracker: unmapped settlement, symbol held by a newer request",
			"err", domain.ErrSettlementMismatch,
			"pending_request_id", p.RequestID,
		)
		return false
	}
	released := t.locks.Release(req.Symbol, req.Strategy)
	log.Warn("tracker: unmapped settlement, forced cleanup",
		"err", domain.ErrSettlementMismatch,
		"released", released,
	)
	return released
}

// DropStale forgets contracts older than maxAge and returns them.
func (t *Tracker) DropStale(now time.Time, maxAge time.Duration) []domain.ActiveContract {
	var dropped []domain.ActiveContract
	for _, c := range t.sorted() {
		if now.Sub(c.StartTime) < maxAge {
			continue
		}
		delete(t.active, c.ContractID)
		dropped = append(dropped, c)
		slog.Warn("tracker: stale contract dropped",
			"contract_id", c.ContractID,
			"symbol", c.Symbol,
			"age", now.Sub(c.StartTime).Round(time.Second),
		)
	}
	return dropped
}

// HasSymbol reports whether a contract is active on symbol.
func (t *Tracker) HasSymbol(symbol string) bool {
	_, ok := t.bySymbol(symbol)
	return ok
}

// Count is the number of active contracts.
func (t *Tracker) Count() int { return len(t.active) }

// Active returns the active contracts ordered by start time.
func (t *Tracker) Active() []domain.ActiveContract { return t.sorted() }

func (t *Tracker) bySymbol(symbol string) (domain.ActiveContract, bool) {
	for _, c := range t.active {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return domain.ActiveContract{}, false
}

func (t *Tracker) sorted() []domain.ActiveContract {
	out := make([]domain.ActiveContract, 0, len(t.active))
	for _, c := range t.active {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ContractID < out[j].ContractID
	})
	return out
}
