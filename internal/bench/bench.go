package bench

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/Agrid-Dev/thermobeat/internal/energy"
	"github.com/Agrid-Dev/thermobeat/internal/metrics"
)

// OperatingPoint is the set of inputs the engine is evaluated at.
type OperatingPoint struct {
	Gradient      float64
	DurationHours float64
	DevicePowerMW float64
	Battery       energy.BatteryConfig
}

// Report is derived from an OperatingPoint, never stored.
type Report struct {
	Reading            energy.Reading
	HarvestPowerMW     float64
	HarvestedEnergyMWh float64
	Efficiency         float64
	BatteryLifeHours   float64 // +Inf when Sustainable
	Sustainable        bool
}

// Bench guards the current operating point. Every evaluation works on a copy.
type Bench struct {
	mu      sync.RWMutex
	profile energy.Profile
	op      OperatingPoint
}

// Request bounds for the analyses. The engine itself has none.
const (
	MaxSamples = 1_000_000 // trace samples per run
	MaxYears   = 1000
)

func New(profile energy.Profile, initial OperatingPoint) (*Bench, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := validateOperatingPoint(initial); err != nil {
		return nil, err
	}
	return &Bench{profile: profile, op: initial}, nil
}

func validateOperatingPoint(op OperatingPoint) error {
	if err := validateGradient(op.Gradient); err != nil {
		return err
	}
	if op.DurationHours < 0 || math.IsNaN(op.DurationHours) {
		return ErrInvalidDuration
	}
	if op.DevicePowerMW < 0 || math.IsNaN(op.DevicePowerMW) {
		return ErrInvalidDevicePower
	}
	return validateBattery(op.Battery)
}

func validateGradient(g float64) error {
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return ErrInvalidGradient
	}
	return nil
}

func validateBattery(b energy.BatteryConfig) error {
	if !(b.CapacityMAh > 0) {
		return ErrInvalidCapacity
	}
	if !(b.VoltageV > 0) {
		return ErrInvalidVoltage
	}
	if !(b.DegradationRate >= 0 && b.DegradationRate < 1) {
		return ErrInvalidDegradation
	}
	return nil
}

func (b *Bench) Get() OperatingPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.op
}

func (b *Bench) Profile() energy.Profile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.profile
}

func (b *Bench) snapshot() (energy.Profile, OperatingPoint) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.profile, b.op
}

func (b *Bench) Report() Report {
	defer metrics.ObserveEvaluation(metrics.OpReport, time.Now())
	p, op := b.snapshot()

	r := p.Chain(op.Gradient)
	life := p.BatteryLifeHours(op.Gradient, op.Battery, op.DevicePowerMW)
	report := Report{
		Reading:            r,
		HarvestPowerMW:     p.HarvestPower(op.Gradient),
		HarvestedEnergyMWh: energy.EnergyHarvested(op.Gradient, op.DurationHours, r.Converter.VoltageMV, r.Converter.CurrentMA),
		Efficiency:         energy.ConversionEfficiency(r.TEG, r.Converter),
		BatteryLifeHours:   life,
		Sustainable:        math.IsInf(life, 1),
	}
	metrics.SetHarvestPower(report.HarvestPowerMW)
	return report
}

func (b *Bench) Set(param Parameter, v float64) error {
	switch param {
	case ParamGradient:
		return b.SetGradient(v)
	case ParamDuration:
		return b.SetDuration(v)
	case ParamDevicePower:
		return b.SetDevicePower(v)
	default:
		return ErrInvalidParameter
	}
}

func (b *Bench) SetGradient(g float64) error {
	if err := validateGradient(g); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.op.Gradient = g
	return nil
}

func (b *Bench) SetDuration(h float64) error {
	if h < 0 || math.IsNaN(h) {
		return ErrInvalidDuration
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.op.DurationHours = h
	return nil
}

func (b *Bench) SetDevicePower(mw float64) error {
	if mw < 0 || math.IsNaN(mw) {
		return ErrInvalidDevicePower
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.op.DevicePowerMW = mw
	return nil
}

func (b *Bench) SetBattery(cfg energy.BatteryConfig) error {
	if err := validateBattery(cfg); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.op.Battery = cfg
	return nil
}

// Trace runs the battery simulator over the configured duration.
func (b *Bench) Trace(stepHours float64) (energy.Trace, error) {
	if !(stepHours > 0) {
		return nil, ErrInvalidTimeStep
	}
	p, op := b.snapshot()
	if op.DurationHours/stepHours > MaxSamples {
		return nil, ErrTooManySamples
	}
	defer metrics.ObserveEvaluation(metrics.OpSimulate, time.Now())
	return p.SimulateBattery(op.Gradient, op.Battery, op.DevicePowerMW, op.DurationHours, stepHours), nil
}

func (b *Bench) PowerManagement(hours int) (energy.Trace, error) {
	if hours < 0 {
		return nil, ErrInvalidHorizon
	}
	if hours > MaxSamples {
		return nil, ErrTooManySamples
	}
	defer metrics.ObserveEvaluation(metrics.OpPowerManagement, time.Now())
	p, op := b.snapshot()
	return p.PowerManagement(op.Gradient, op.Battery, op.DevicePowerMW, hours), nil
}

func (b *Bench) OptimalGradient() (float64, bool) {
	defer metrics.ObserveEvaluation(metrics.OpOptimalGradient, time.Now())
	p, op := b.snapshot()
	return p.OptimalGradient(op.DevicePowerMW, energy.DefaultSearchRange)
}

func (b *Bench) LifetimeSavings(years int) (energy.Savings, error) {
	if years < 0 {
		return energy.Savings{}, ErrInvalidHorizon
	}
	if years > MaxYears {
		return energy.Savings{}, ErrTooManySamples
	}
	defer metrics.ObserveEvaluation(metrics.OpLifetimeSavings, time.Now())
	p, op := b.snapshot()
	return p.LifetimeSavings(op.Gradient, op.Battery, op.DevicePowerMW, years), nil
}

// AmbientSweep evaluates harvested energy over the configured duration.
func (b *Bench) AmbientSweep(ambients, gradients []float64) *mat.Dense {
	defer metrics.ObserveEvaluation(metrics.OpAmbientSweep, time.Now())
	p, op := b.snapshot()
	return p.AmbientSweep(ambients, gradients, op.DurationHours)
}
