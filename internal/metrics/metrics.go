package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "thermobeat_"

const (
	OpReport          = "report"
	OpSimulate        = "simulate"
	OpPowerManagement = "power_management"
	OpOptimalGradient = "optimal_gradient"
	OpLifetimeSavings = "lifetime_savings"
	OpAmbientSweep    = "ambient_sweep"
)

var (
	registerOnce sync.Once

	evaluationsTotal  *prometheus.CounterVec
	evaluationLatency *prometheus.HistogramVec
	harvestPower      prometheus.Gauge
	commandsTotal     *prometheus.CounterVec
)

// Init registers the engine metrics on the default registry.
func Init() {
	registerOnce.Do(func() {
		evaluationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "evaluations_total",
				Help: "Total engine evaluations by operation",
			},
			[]string{"operation"},
		)
		evaluationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "evaluation_latency_seconds",
				Help:    "Engine evaluation latency in seconds",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"operation"},
		)
		harvestPower = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "harvest_power_mw",
				Help: "Harvested power at the last evaluated operating point",
			},
		)
		commandsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "commands_total",
				Help: "Operating point commands by transport and result",
			},
			[]string{"transport", "result"},
		)

		prometheus.MustRegister(
			evaluationsTotal,
			evaluationLatency,
			harvestPower,
			commandsTotal,
		)
	})
}

// ObserveEvaluation records one evaluation started at start. It is a no-op
// until Init has been called.
func ObserveEvaluation(operation string, start time.Time) {
	if operation == "" {
		operation = "unknown"
	}
	if evaluationsTotal != nil {
		evaluationsTotal.WithLabelValues(operation).Inc()
	}
	if evaluationLatency != nil {
		evaluationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func SetHarvestPower(mw float64) {
	if harvestPower != nil {
		harvestPower.Set(mw)
	}
}

// ObserveCommand counts a write received by a controller.
func ObserveCommand(transport string, err error) {
	if commandsTotal == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	commandsTotal.WithLabelValues(transport, result).Inc()
}
