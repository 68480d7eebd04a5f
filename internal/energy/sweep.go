package energy

import "gonum.org/v1/gonum/mat"

// AmbientSweep returns harvested energy over durationHours for every
// (ambient, gradient) pair: rows follow ambients, columns follow gradients.
// The model has no ambient dependence, so every row is identical.
func (p Profile) AmbientSweep(ambients, gradients []float64, durationHours float64) *mat.Dense {
	if len(ambients) == 0 || len(gradients) == 0 {
		return nil
	}
	grid := mat.NewDense(len(ambients), len(gradients), nil)
	for i := range ambients {
		for j, g := range gradients {
			r := p.Chain(g)
			grid.Set(i, j, EnergyHarvested(g, durationHours, r.Converter.VoltageMV, r.Converter.CurrentMA))
		}
	}
	return grid
}

// BatteryLifeGrid evaluates BatteryLifeHours with rows following gradients and
// columns following capacities in mAh.
func (p Profile) BatteryLifeGrid(gradients, capacitiesMAh []float64, voltageV, devicePowerMW float64) *mat.Dense {
	if len(gradients) == 0 || len(capacitiesMAh) == 0 {
		return nil
	}
	grid := mat.NewDense(len(gradients), len(capacitiesMAh), nil)
	for i, g := range gradients {
		for j, c := range capacitiesMAh {
			grid.Set(i, j, p.BatteryLifeHours(g, BatteryConfig{CapacityMAh: c, VoltageV: voltageV}, devicePowerMW))
		}
	}
	return grid
}

// CurvePoint is one (parameter, result) pair handed to plotting sinks.
type CurvePoint struct {
	X  float64 `json:"x" yaml:"x"`
	Y  float64 `json:"y" yaml:"y"`
	OK bool    `json:"ok" yaml:"ok"`
}

// LifetimeSavingsCurve projects net savings for each battery capacity (mAh).
func (p Profile) LifetimeSavingsCurve(gradient float64, capacitiesMAh []float64, battery BatteryConfig, devicePowerMW float64, years int) []CurvePoint {
	out := make([]CurvePoint, 0, len(capacitiesMAh))
	for _, c := range capacitiesMAh {
		b := battery
		b.CapacityMAh = c
		s := p.LifetimeSavings(gradient, b, devicePowerMW, years)
		out = append(out, CurvePoint{X: c, Y: s.Net(), OK: true})
	}
	return out
}

// OptimalGradientCurve runs OptimalGradient for each device power. Points with
// no satisfying gradient have OK=false.
func (p Profile) OptimalGradientCurve(devicePowersMW []float64, r GradientRange) []CurvePoint {
	out := make([]CurvePoint, 0, len(devicePowersMW))
	for _, pw := range devicePowersMW {
		g, ok := p.OptimalGradient(pw, r)
		out = append(out, CurvePoint{X: pw, Y: g, OK: ok})
	}
	return out
}

// Readings evaluates the chain for each gradient (TEG/converter output curves).
func (p Profile) Readings(gradients []float64) []Reading {
	out := make([]Reading, 0, len(gradients))
	for _, g := range gradients {
		out = append(out, p.Chain(g))
	}
	return out
}
