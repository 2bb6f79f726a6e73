package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/rental-ledger/rental"
)

// Registry holds the process metrics and the ledger collector.
type Registry struct {
	reg       *prometheus.Registry
	Mutations *prometheus.CounterVec
	Conflicts prometheus.Counter
	Rejected  prometheus.Counter
}

// SummaryFunc loads the ledger and computes its KPIs.
type SummaryFunc func(ctx context.Context) (rental.Summary, error)

func NewRegistry(summary SummaryFunc) *Registry {
	r := prometheus.NewRegistry()
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_ledger_mutations_total",
		Help: "Committed ledger writes by operation.",
	}, []string{"op"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rental_ledger_conflicts_total",
		Help: "Commits rejected because the ledger changed since it was loaded.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rental_snapshot_rejected_total",
		Help: "Imported snapshots rejected as not tabular.",
	})

	r.MustRegister(mutations, conflicts, rejected, NewLedgerCollector(summary, 5*time.Second))
	return &Registry{
		reg:       r,
		Mutations: mutations,
		Conflicts: conflicts,
		Rejected:  rejected,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
