package engine

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

const (
	DefaultLockTTL       = 20 * time.Second
	DefaultMaxConcurrent = 1
)

// LockKey identifies a trade lock: one symbol under one condition.
type LockKey struct {
	Symbol    string
	Condition string
}

// TradeSignature deduplicates identical outstanding orders.
type TradeSignature struct {
	Symbol     string
	Barrier    int
	StakeCents int64
}

// PendingStake blocks every new signal on its symbol, whatever the strategy.
type PendingStake struct {
	Stake     float64
	Owner     domain.Strategy
	RequestID string
	CreatedAt time.Time
}

type tradeLock struct {
	holder     domain.Strategy
	requestID  string
	acquiredAt time.Time
	ttl        time.Duration
}

func (l tradeLock) expired(now time.Time) bool {
	return now.Sub(l.acquiredAt) >= l.ttl
}

// AdmitRequest is a candidate order asking for admission.
type AdmitRequest struct {
	Symbol    string
	Strategy  domain.Strategy
	Stake     float64
	Barrier   int
	Condition string
	RequestID string
}

func (r AdmitRequest) signature() TradeSignature {
	return TradeSignature{Symbol: r.Symbol, Barrier: r.Barrier, StakeCents: domain.StakeCents(r.Stake)}
}

// LockRegistry is the per-symbol admission control. A successful Admit records
// a pending stake, a trade signature and a trade lock; Release clears all
// three for the symbol.
type LockRegistry struct {
	mu            sync.Mutex
	ttl           time.Duration
	maxConcurrent int
	locks         map[LockKey]tradeLock
	signatures    map[TradeSignature]string // signature → requestID
	pending       map[string]PendingStake   // symbol → record
}

// NewLockRegistry creates a registry. Zero values fall back to
// DefaultLockTTL and DefaultMaxConcurrent.
func NewLockRegistry(ttl time.Duration, maxConcurrent int) *LockRegistry {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &LockRegistry{
		ttl:           ttl,
		maxConcurrent: maxConcurrent,
		locks:         make(map[LockKey]tradeLock),
		signatures:    make(map[TradeSignature]string),
		pending:       make(map[string]PendingStake),
	}
}

// Admit grants or denies a candidate. A denial is an *domain.AdmissionError.
func (r *LockRegistry) Admit(req AdmitRequest, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[req.Symbol]; ok {
		return r.deny(req, domain.DenyPending)
	}
	sig := req.signature()
	if _, ok := r.signatures[sig]; ok {
		return r.deny(req, domain.DenySignature)
	}
	for key, l := range r.locks {
		if key.Symbol == req.Symbol && !l.expired(now) {
			return r.deny(req, domain.DenyLocked)
		}
	}
	if len(r.pending) >= r.maxConcurrent {
		return r.deny(req, domain.DenyMaxConcurrent)
	}

	r.pending[req.Symbol] = PendingStake{
		Stake:     req.Stake,
		Owner:     req.Strategy,
		RequestID: req.RequestID,
		CreatedAt: now,
	}
	r.signatures[sig] = req.RequestID
	r.locks[LockKey{Symbol: req.Symbol, Condition: req.Condition}] = tradeLock{
		holder:     req.Strategy,
		requestID:  req.RequestID,
		acquiredAt: now,
		ttl:        r.ttl,
	}

	slog.Debug("locks: admitted",
		"symbol", req.Symbol,
		"strategy", req.Strategy,
		"stake", req.Stake,
		"barrier", req.Barrier,
		"request_id", req.RequestID,
	)
	return nil
}

func (r *LockRegistry) deny(req AdmitRequest, reason domain.AdmissionReason) error {
	slog.Debug("locks: admission denied",
		"symbol", req.Symbol,
		"strategy", req.Strategy,
		"reason", reason,
	)
	return &domain.AdmissionError{Symbol: req.Symbol, Reason: reason}
}

// Release clears pending, signature and lock records for symbol. It reports
// whether anything was held.
func (r *LockRegistry) Release(symbol string, strategy domain.Strategy) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := r.releaseLocked(symbol)
	if released {
		slog.Debug("locks: released", "symbol", symbol, "strategy", strategy)
	}
	return released
}

func (r *LockRegistry) releaseLocked(symbol string) bool {
	released := false
	if _, ok := r.pending[symbol]; ok {
		delete(r.pending, symbol)
		released = true
	}
	for sig := range r.signatures {
		if sig.Symbol == symbol {
			delete(r.signatures, sig)
			released = true
		}
	}
	for key := range r.locks {
		if key.Symbol == symbol {
			delete(r.locks, key)
			released = true
		}
	}
	return released
}

// Sweep reclaims pending records and locks older than the TTL for symbols
// with no active contract. It returns the reclaimed symbols, sorted.
func (r *LockRegistry) Sweep(now time.Time, hasActive func(symbol string) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	stale := make(map[string]struct{})
	for symbol, p := range r.pending {
		if now.Sub(p.CreatedAt) >= r.ttl {
			stale[symbol] = struct{}{}
		}
	}
	for key, l := range r.locks {
		if l.expired(now) {
			stale[key.Symbol] = struct{}{}
		}
	}

	var reclaimed []string
	for symbol := range stale {
		if hasActive != nil && hasActive(symbol) {
			continue
		}
		if r.releaseLocked(symbol) {
			reclaimed = append(reclaimed, symbol)
		}
	}
	sort.Strings(reclaimed)

	if len(reclaimed) > 0 {
		slog.Warn("locks: reclaimed orphaned locks", "symbols", reclaimed, "ttl", r.ttl)
	}
	return reclaimed
}

// Clear drops every record.
func (r *LockRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.locks)
	clear(r.signatures)
	clear(r.pending)
}

// Pending returns the pending record for symbol, if any.
func (r *LockRegistry) Pending(symbol string) (PendingStake, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[symbol]
	return p, ok
}

// Locked reports whether symbol holds an unexpired lock.
func (r *LockRegistry) Locked(symbol string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, l := range r.locks {
		if key.Symbol == symbol && !l.expired(now) {
			return true
		}
	}
	return false
}

// Outstanding is the number of symbols with a pending order.
func (r *LockRegistry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
