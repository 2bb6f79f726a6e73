package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerCollector recomputes the ledger KPIs on every scrape.
type LedgerCollector struct {
	summary SummaryFunc
	timeout time.Duration

	up        *prometheus.Desc
	revenue   *prometheus.Desc
	active    *prometheus.Desc
	occupied  *prometheus.Desc
	available *prometheus.Desc
	orders    *prometheus.Desc
}

func NewLedgerCollector(summary SummaryFunc, timeout time.Duration) *LedgerCollector {
	return &LedgerCollector{
		summary:   summary,
		timeout:   timeout,
		up:        prometheus.NewDesc("rental_ledger_up", "Whether the ledger could be loaded.", nil, nil),
		revenue:   prometheus.NewDesc("rental_revenue", "Rent fees of all orders that are not cancelled.", nil, nil),
		active:    prometheus.NewDesc("rental_active_orders", "Orders currently checked out.", nil, nil),
		occupied:  prometheus.NewDesc("rental_occupied_units", "Distinct devices held by reserved or checked-out orders.", nil, nil),
		available: prometheus.NewDesc("rental_available_units_estimate", "Catalog size minus occupied devices, ignoring dates.", nil, nil),
		orders:    prometheus.NewDesc("rental_orders", "Orders in the ledger.", nil, nil),
	}
}

func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.revenue
	ch <- c.active
	ch <- c.occupied
	ch <- c.available
	ch <- c.orders
}

func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	s, err := c.summary(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.revenue, prometheus.GaugeValue, float64(s.TotalRevenue))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(s.ActiveCount))
	ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(len(s.OccupiedUnits)))
	ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(s.AvailableEstimate))
	ch <- prometheus.MustNewConstMetric(c.orders, prometheus.GaugeValue, float64(s.OrderCount))
}
