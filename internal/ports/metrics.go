package ports

import "github.com/alejandrodnm/ghostbot/internal/domain"

// Metrics recibe la telemetría del engine.
type Metrics interface {
	RecordTick(symbol string)
	RecordSignal(strategy domain.Strategy, symbol string)
	RecordAdmissionDenied(reason domain.AdmissionReason)
	RecordOrder(strategy domain.Strategy, real bool)
	RecordSettlement(strategy domain.Strategy, won bool, match string)
	RecordVirtual(won bool)
	RecordReclaimed(kind string, n int)
	SetMoneyState(state domain.MoneyState)
	SetActiveContracts(n int)
}
