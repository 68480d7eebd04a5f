package energy

import "gonum.org/v1/gonum/floats"

// GradientRange is an evenly spaced set of samples, both ends included.
type GradientRange struct {
	Min     float64
	Max     float64
	Samples int
}

// DefaultSearchRange is the envelope scanned by OptimalGradient.
var DefaultSearchRange = GradientRange{Min: 0.5, Max: 10, Samples: 100}

// Values expands the range like numpy.linspace.
func (r GradientRange) Values() []float64 {
	return Linspace(r.Min, r.Max, r.Samples)
}

// Linspace returns n evenly spaced values over [min, max]. n == 1 yields min.
func Linspace(min, max float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{min}
	}
	return floats.Span(make([]float64, n), min, max)
}

// OptimalGradient scans r from low to high and returns the first gradient whose
// harvested power covers devicePowerMW. Resolution is the sample spacing.
func (p Profile) OptimalGradient(devicePowerMW float64, r GradientRange) (float64, bool) {
	for _, g := range r.Values() {
		if p.HarvestPower(g) >= devicePowerMW {
			return g, true
		}
	}
	return 0, false
}
