package engine

import (
	"context"

	"github.com/alejandrodnm/ghostbot/internal/domain"
)

type noopJournal struct{}

func (noopJournal) StartSession(context.Context, domain.Session) error  { return nil }
func (noopJournal) EndSession(context.Context, domain.Session) error    { return nil }
func (noopJournal) SaveTrade(context.Context, domain.TradeRecord) error { return nil }
func (noopJournal) SaveVirtualResult(context.Context, string, domain.VirtualResult) error {
	return nil
}
func (noopJournal) SessionReport(context.Context, string) (domain.SessionReport, error) {
	return domain.SessionReport{}, nil
}
func (noopJournal) Close() error { return nil }

type noopNotifier struct{}

func (noopNotifier) NotifyStop(context.Context, domain.StopReason, domain.MoneyState) error {
	return nil
}
func (noopNotifier) NotifyReport(context.Context, domain.SessionReport) error { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordTick(string)                              {}
func (noopMetrics) RecordSignal(domain.Strategy, string)           {}
func (noopMetrics) RecordAdmissionDenied(domain.AdmissionReason)   {}
func (noopMetrics) RecordOrder(domain.Strategy, bool)              {}
func (noopMetrics) RecordSettlement(domain.Strategy, bool, string) {}
func (noopMetrics) RecordVirtual(bool)                             {}
func (noopMetrics) RecordReclaimed(string, int)                    {}
func (noopMetrics) SetMoneyState(domain.MoneyState)                {}
func (noopMetrics) SetActiveContracts(int)                         {}
