package domain

import "time"

// TradeSignal is a ranked candidate produced by a scan.
type TradeSignal struct {
	Symbol       string
	ContractType ContractType
	Barrier      int
	Stake        float64
	Strategy     Strategy
	Score        float64 // over-percentage used for ranking
	Condition    string  // StrategyCondition.Key()
}

// OrderRequest is what the engine asks the gateway to place. Gateways echo it
// back on acceptance, rejection and settlement.
type OrderRequest struct {
	RequestID    string // UUID
	RunID        string
	Symbol       string
	ContractType ContractType
	Barrier      int
	Stake        float64
	Strategy     Strategy
	PlacedAt     time.Time
}

// OrderAccepted is the broker confirmation for an OrderRequest.
type OrderAccepted struct {
	ContractID string
	Request    OrderRequest
	AcceptedAt time.Time
}

// OrderRejected is the broker refusal for an OrderRequest.
type OrderRejected struct {
	Request OrderRequest
	Reason  string
}

// SettlementStatus is the final outcome of a contract.
type SettlementStatus string

const (
	StatusWon  SettlementStatus = "won"
	StatusLost SettlementStatus = "lost"
)

// Settlement is the broker result for a contract. It may be duplicated,
// arrive before the acceptance, or never arrive.
type Settlement struct {
	ContractID string
	Status     SettlementStatus
	Profit     float64 // neto: positivo si ganó, -stake si perdió
	Request    OrderRequest
	SettledAt  time.Time
}

// Won reports whether the contract won.
func (s Settlement) Won() bool { return s.Status == StatusWon }

// ActiveContract is a contract accepted by the broker and not yet settled.
type ActiveContract struct {
	ContractID string
	RequestID  string
	Symbol     string
	Strategy   Strategy
	Stake      float64
	Barrier    int
	StartTime  time.Time
}

// ContractWins is the outcome predicate shared by real and virtual contracts.
// Digit contracts compare the exit digit with the barrier; CALL and PUT
// compare exit and entry quotes, and an unchanged quote loses.
func ContractWins(ct ContractType, barrier, exitDigit int, entryQuote, exitQuote float64) bool {
	switch ct {
	case ContractOver:
		return exitDigit > barrier
	case ContractUnder:
		return exitDigit < barrier
	case ContractMatch:
		return exitDigit == barrier
	case ContractDiff:
		return exitDigit != barrier
	case ContractEven:
		return exitDigit%2 == 0
	case ContractOdd:
		return exitDigit%2 == 1
	case ContractCall:
		return exitQuote > entryQuote
	case ContractPut:
		return exitQuote < entryQuote
	}
	return false
}
