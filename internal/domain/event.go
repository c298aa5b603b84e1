package domain

// EventKind tags what an inbound Event carries.
type EventKind int

const (
	EventTick EventKind = iota
	EventOrderAccepted
	EventOrderRejected
	EventSettlement
)

func (k EventKind) String() string {
	switch k {
	case EventTick:
		return "tick"
	case EventOrderAccepted:
		return "order_accepted"
	case EventOrderRejected:
		return "order_rejected"
	case EventSettlement:
		return "settlement"
	}
	return "unknown"
}

// Event is one entry of the engine inbox. Only the field matching Kind is set.
type Event struct {
	Kind       EventKind
	Tick       Tick
	Accepted   OrderAccepted
	Rejected   OrderRejected
	Settlement Settlement
}

func TickEvent(t Tick) Event              { return Event{Kind: EventTick, Tick: t} }
func AcceptedEvent(a OrderAccepted) Event { return Event{Kind: EventOrderAccepted, Accepted: a} }
func RejectedEvent(r OrderRejected) Event { return Event{Kind: EventOrderRejected, Rejected: r} }
func SettlementEvent(s Settlement) Event  { return Event{Kind: EventSettlement, Settlement: s} }

// Symbol returns the market the event refers to.
func (e Event) Symbol() string {
	switch e.Kind {
	case EventTick:
		return e.Tick.Symbol
	case EventOrderAccepted:
		return e.Accepted.Request.Symbol
	case EventOrderRejected:
		return e.Rejected.Request.Symbol
	case EventSettlement:
		return e.Settlement.Request.Symbol
	}
	return ""
}
