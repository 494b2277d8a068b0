package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the scan-and-execute loop, exported on the ops
// server's /metrics endpoint.

var scanDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "arbitrage",
		Subsystem: "runner",
		Name:      "scan_duration_seconds",
		Help:      "Time spent in one scan cycle, by stage",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	},
	[]string{"stage"}, // slow_refresh, fast_poll
)

var opportunitiesDetected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "runner",
		Name:      "opportunities_detected_total",
		Help:      "Number of opportunities the finder surfaced, by tier",
	},
	[]string{"tier"},
)

var tradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "runner",
		Name:      "trades_total",
		Help:      "Number of execution attempts, by terminal status",
	},
	[]string{"status"},
)

var netProfitTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "runner",
		Name:      "net_profit_total_usd",
		Help:      "Cumulative realized net profit in USD across filled trades",
	},
)

var matchedPairs = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "runner",
		Name:      "matched_pairs",
		Help:      "Number of matched pairs held after the last slow refresh",
	},
)

var venueBalance = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "runner",
		Name:      "venue_balance_usd",
		Help:      "Last observed balance per venue",
	},
	[]string{"venue"},
)
