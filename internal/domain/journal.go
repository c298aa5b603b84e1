package domain

import "time"

// TradeRecord is a settled real trade as written to the journal.
type TradeRecord struct {
	ContractID   string
	RunID        string
	Symbol       string
	Strategy     Strategy
	ContractType ContractType
	Barrier      int
	Stake        float64
	Profit       float64
	Won          bool
	Match        string // "id", "fallback" o "unmapped"
	SettledAt    time.Time
}

// Session is one Start..Stop run of the bot.
type Session struct {
	RunID      string
	Bot        string
	StartedAt  time.Time
	EndedAt    *time.Time
	StopKind   StopKind
	StopDetail string
	TotalPL    float64
	Wins       int
	Losses     int
}

// SessionReport aggregates a session for display.
type SessionReport struct {
	Session        Session
	Trades         int
	EntryTrades    int
	RecoveryTrades int
	TotalStaked    float64
	VirtualWins    int
	VirtualLosses  int
	BySymbol       []SymbolSummary
}

// SymbolSummary is the per-market breakdown of a session.
type SymbolSummary struct {
	Symbol string
	Trades int
	Wins   int
	PnL    float64
}
