// Package metrics exposes raffle activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"pooled-raffle/internal/raffle"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "raffle"

// Metrics implements raffle.Notifier and updates its collectors from events.
type Metrics struct {
	registry *prometheus.Registry

	entries        prometheus.Counter
	draws          prometheus.Counter
	winners        prometheus.Counter
	paidOut        prometheus.Counter
	payoutFailures prometheus.Counter
	participants   prometheus.Gauge
	drawing        prometheus.Gauge
	pool           prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "entries_total", Help: "Admitted entries.",
		}),
		draws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "draws_requested_total", Help: "Randomness requests issued.",
		}),
		winners: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "winners_total", Help: "Completed draws.",
		}),
		paidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "paid_out_wei_total", Help: "Value paid to winners.",
		}),
		payoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "payout_failures_total", Help: "Rejected winner payouts.",
		}),
		participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "participants", Help: "Entries in the current round.",
		}),
		drawing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "drawing", Help: "1 while a draw is pending.",
		}),
		pool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pool_wei", Help: "Pooled balance of the current round.",
		}),
	}
	m.registry.MustRegister(
		m.entries, m.draws, m.winners, m.paidOut, m.payoutFailures,
		m.participants, m.drawing, m.pool,
	)
	return m
}

// Notify is called under the raffle lock and only touches collectors.
func (m *Metrics) Notify(ev raffle.Event) {
	switch e := ev.(type) {
	case raffle.Entered:
		m.entries.Inc()
		m.participants.Inc()
		m.pool.Add(e.Amount.Float64())
	case raffle.DrawRequested:
		m.draws.Inc()
		m.drawing.Set(1)
	case raffle.WinnerPicked:
		m.winners.Inc()
		m.paidOut.Add(e.Amount.Float64())
		m.participants.Set(0)
		m.pool.Set(0)
		m.drawing.Set(0)
	}
}

// PayoutFailed counts a rejected payout.
func (m *Metrics) PayoutFailed() {
	m.payoutFailures.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
