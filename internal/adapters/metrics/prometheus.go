package metrics

import (
	"net/http"

	"github.com/alejandrodnm/ghostbot/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implementa ports.Metrics usando Prometheus.
type Recorder struct {
	ticks       *prometheus.CounterVec
	signals     *prometheus.CounterVec
	denied      *prometheus.CounterVec
	orders      *prometheus.CounterVec
	settlements *prometheus.CounterVec
	virtual     *prometheus.CounterVec
	reclaimed   *prometheus.CounterVec
	totalPL     prometheus.Gauge
	stake       prometheus.Gauge
	step        prometheus.Gauge
	blocked     prometheus.Gauge
	active      prometheus.Gauge
}

// New registra las métricas en reg. nil usa el registry por defecto.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbot_ticks_total",
				Help: "Ticks ingested per symbol",
			},
			[]string{"symbol"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbot_signals_total",
				Help: "Best-candidate signals produced by the scanner",
			},
			[]string{"strategy", "symbol"},
		),
		denied: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbot_admission_denied_total",
				Help: "Signals refused by the lock registry",
			},
			[]string{"reason"},
		),
		orders: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbot_orders_total",
				Help: "Orders placed, real or virtual",
			},
			[]string{"strategy", "mode"},
		),
		settlements: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbot_settlements_total",
				Help: "Settlements applied to the money state",
			},
			[]string{"strategy", "result", "match"},
		),
		virtual: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbot_virtual_results_total",
				Help: "Virtual hook outcomes",
			},
			[]string{"result"},
		),
		reclaimed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostbot_sweep_reclaimed_total",
				Help: "Locks and contracts reclaimed by the sweep",
			},
			[]string{"kind"},
		),
		totalPL: f.NewGauge(prometheus.GaugeOpts{
			Name: "ghostbot_total_pl",
			Help: "Session profit and loss",
		}),
		stake: f.NewGauge(prometheus.GaugeOpts{
			Name: "ghostbot_current_stake",
			Help: "Stake of the next order",
		}),
		step: f.NewGauge(prometheus.GaugeOpts{
			Name: "ghostbot_recovery_step",
			Help: "Current recovery step (0 = entry phase)",
		}),
		blocked: f.NewGauge(prometheus.GaugeOpts{
			Name: "ghostbot_entry_blocked",
			Help: "1 while entry signals are suppressed",
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "ghostbot_active_contracts",
			Help: "Contracts accepted and not yet settled",
		}),
	}
}

func (r *Recorder) RecordTick(symbol string) {
	r.ticks.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordSignal(strategy domain.Strategy, symbol string) {
	r.signals.WithLabelValues(string(strategy), symbol).Inc()
}

func (r *Recorder) RecordAdmissionDenied(reason domain.AdmissionReason) {
	r.denied.WithLabelValues(string(reason)).Inc()
}

// RecordOrder cuenta una orden real o virtual.
func (r *Recorder) RecordOrder(strategy domain.Strategy, real bool) {
	mode := "virtual"
	if real {
		mode = "real"
	}
	r.orders.WithLabelValues(string(strategy), mode).Inc()
}

func (r *Recorder) RecordSettlement(strategy domain.Strategy, won bool, match string) {
	r.settlements.WithLabelValues(string(strategy), result(won), match).Inc()
}

func (r *Recorder) RecordVirtual(won bool) {
	r.virtual.WithLabelValues(result(won)).Inc()
}

// RecordReclaimed ignora n == 0 para no crear series vacías en cada sweep.
func (r *Recorder) RecordReclaimed(kind string, n int) {
	if n <= 0 {
		return
	}
	r.reclaimed.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) SetMoneyState(s domain.MoneyState) {
	r.totalPL.Set(s.TotalPL)
	r.stake.Set(s.CurrentStake)
	r.step.Set(float64(s.RecoveryStepCount))
	blocked := 0.0
	if s.EntryBlocked {
		blocked = 1
	}
	r.blocked.Set(blocked)
}

func (r *Recorder) SetActiveContracts(n int) {
	r.active.Set(float64(n))
}

// Handler sirve /metrics para el gatherer dado.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func result(won bool) string {
	if won {
		return "win"
	}
	return "loss"
}
