// Package metrics exposes prometheus collectors for pricing runs.
package metrics

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/contactkeval/option-mc/internal/errs"
)

// Run outcomes used as the "outcome" label.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid_argument"
	OutcomeOverflow  = "numeric_overflow"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

var runsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "option_mc_runs_total",
		Help: "Monte Carlo estimation runs by outcome",
	}, []string{"outcome"})

var pathsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "option_mc_paths_total",
		Help: "simulated paths of successful runs",
	})

var degenerateEventsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "option_mc_degenerate_events_total",
		Help: "steps that ended at or below zero",
	})

var runDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "option_mc_run_duration_seconds",
		Help:    "wall time of one estimation run",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

var lastPrice = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "option_mc_last_price",
		Help: "most recent estimated option price",
	}, []string{"option_type"})

func init() {
	prometheus.MustRegister(
		runsTotal,
		pathsTotal,
		degenerateEventsTotal,
		runDuration,
		lastPrice,
	)
}

// ObserveSuccess records a finished run.
func ObserveSuccess(optionType string, price float64, paths, degenerateEvents int, elapsed time.Duration) {
	runsTotal.WithLabelValues(OutcomeOK).Inc()
	pathsTotal.Add(float64(paths))
	degenerateEventsTotal.Add(float64(degenerateEvents))
	runDuration.Observe(elapsed.Seconds())
	lastPrice.WithLabelValues(optionType).Set(price)
}

// ObserveFailure records a run that returned no estimate.
func ObserveFailure(outcome string, elapsed time.Duration) {
	runsTotal.WithLabelValues(outcome).Inc()
	runDuration.Observe(elapsed.Seconds())
}

// OutcomeOf classifies a run error for the outcome label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, errs.ErrInvalidArgument):
		return OutcomeInvalid
	case errors.Is(err, errs.ErrNumericOverflow):
		return OutcomeOverflow
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	}
	return OutcomeError
}
