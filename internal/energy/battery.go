package energy

import "math"

// BatteryConfig is fixed for the duration of a run.
type BatteryConfig struct {
	CapacityMAh     float64 `json:"capacity_mah" yaml:"capacity_mah"`
	VoltageV        float64 `json:"voltage_v" yaml:"voltage_v"`
	DegradationRate float64 `json:"degradation_rate" yaml:"degradation_rate"` // per year, 0 <= r < 1
}

func DefaultBatteryConfig() BatteryConfig {
	return BatteryConfig{
		CapacityMAh:     1200,
		VoltageV:        3.7,
		DegradationRate: 0.02,
	}
}

// CapacityMWh is the stored energy of a full battery.
func (b BatteryConfig) CapacityMWh() float64 {
	return b.CapacityMAh * b.VoltageV
}

type Sample struct {
	TimeHours    float64 `json:"time_hours" yaml:"time_hours"`
	RemainingMWh float64 `json:"remaining_mwh" yaml:"remaining_mwh"`
}

// Trace is built once per run and never modified afterwards.
type Trace []Sample

// Values returns the remaining energy column.
func (t Trace) Values() []float64 {
	out := make([]float64, len(t))
	for i, s := range t {
		out[i] = s.RemainingMWh
	}
	return out
}

// Depleted reports the first sample at which the remaining energy is at or below zero.
func (t Trace) Depleted() (Sample, bool) {
	for _, s := range t {
		if s.RemainingMWh <= 0 {
			return s, true
		}
	}
	return Sample{}, false
}

func stepCount(totalHours, stepHours float64) int {
	n := math.Floor(totalHours / stepHours)
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return int(n)
}

// SimulateBattery starts from a full battery and applies, per step, the harvested
// energy then the device consumption. The capacity is a ceiling; there is no floor,
// so a deficit shows up as negative remaining energy.
//
// The trace holds floor(total/step)+1 samples, the first one at t=0.
func (p Profile) SimulateBattery(gradient float64, battery BatteryConfig, devicePowerMW, totalHours, stepHours float64) Trace {
	return p.SimulateBatteryFrom(gradient, battery, battery.CapacityMWh(), devicePowerMW, totalHours, stepHours)
}

// SimulateBatteryFrom is SimulateBattery starting from initialMWh instead of a
// full battery. The initial value is not clamped.
func (p Profile) SimulateBatteryFrom(gradient float64, battery BatteryConfig, initialMWh, devicePowerMW, totalHours, stepHours float64) Trace {
	r := p.Chain(gradient)
	harvested := EnergyHarvested(gradient, stepHours, r.Converter.VoltageMV, r.Converter.CurrentMA)
	consumed := devicePowerMW * stepHours
	capacity := battery.CapacityMWh()

	n := stepCount(totalHours, stepHours)
	trace := make(Trace, 0, n+1)
	remaining := initialMWh
	trace = append(trace, Sample{TimeHours: 0, RemainingMWh: remaining})
	for i := 1; i <= n; i++ {
		remaining += harvested
		remaining -= consumed
		remaining = math.Min(remaining, capacity)
		trace = append(trace, Sample{TimeHours: float64(i) * stepHours, RemainingMWh: remaining})
	}
	return trace
}

// PowerManagement runs the simulator with one-hour steps for the given number of hours.
func (p Profile) PowerManagement(gradient float64, battery BatteryConfig, devicePowerMW float64, hours int) Trace {
	return p.SimulateBattery(gradient, battery, devicePowerMW, float64(hours), 1)
}
