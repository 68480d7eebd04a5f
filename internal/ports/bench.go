package ports

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Agrid-Dev/thermobeat/internal/bench"
	"github.com/Agrid-Dev/thermobeat/internal/energy"
)

// BenchService is the control-plane port used by controllers (HTTP/MQTT/etc).
type BenchService interface {
	Get() bench.OperatingPoint
	Report() bench.Report
	Set(bench.Parameter, float64) error
	SetBattery(energy.BatteryConfig) error
	Trace(stepHours float64) (energy.Trace, error)
	PowerManagement(hours int) (energy.Trace, error)
	OptimalGradient() (float64, bool)
	LifetimeSavings(years int) (energy.Savings, error)
	AmbientSweep(ambients, gradients []float64) *mat.Dense
}
