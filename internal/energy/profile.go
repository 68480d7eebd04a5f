package energy

// Profile holds the hardware constants of a TEG + boost converter pair.
type Profile struct {
	OpenCircuitVoltagePerGradient  float64 // mV/°C
	ShortCircuitCurrentPerGradient float64 // mA/°C
	ConverterOutputVoltage         float64 // mV, regulated
	ConverterEfficiency            float64 // 0..1
}

// DefaultProfile is the reference TEG module driving an LTC3108 at 3.3 V.
func DefaultProfile() Profile {
	return Profile{
		OpenCircuitVoltagePerGradient:  50.4,
		ShortCircuitCurrentPerGradient: 3.11,
		ConverterOutputVoltage:         3300,
		ConverterEfficiency:            0.8,
	}
}

// Validate is used by the configuration layer. Model functions never call it.
func (p *Profile) Validate() error {
	if p.OpenCircuitVoltagePerGradient < 0 || p.ShortCircuitCurrentPerGradient < 0 {
		return ErrInvalidTEGCoefficients
	}
	if p.ConverterOutputVoltage <= 0 {
		return ErrInvalidConverterVoltage
	}
	if p.ConverterEfficiency <= 0 || p.ConverterEfficiency > 1 {
		return ErrInvalidConverterEfficiency
	}
	return nil
}

// Reading is one evaluation of the TEG -> converter chain.
type Reading struct {
	Gradient  float64         `json:"gradient" yaml:"gradient"`
	TEG       ElectricalState `json:"teg" yaml:"teg"`
	Converter ElectricalState `json:"converter" yaml:"converter"`
}

// Chain evaluates the TEG and the converter for a gradient.
func (p Profile) Chain(gradient float64) Reading {
	teg := TEGOutput(gradient, p.OpenCircuitVoltagePerGradient, p.ShortCircuitCurrentPerGradient)
	return Reading{
		Gradient:  gradient,
		TEG:       teg,
		Converter: p.ConverterOutput(teg.VoltageMV, teg.CurrentMA),
	}
}

// HarvestPower returns the energy harvested over one hour at gradient, i.e. the
// average harvested power in mW.
func (p Profile) HarvestPower(gradient float64) float64 {
	r := p.Chain(gradient)
	return EnergyHarvested(gradient, 1, r.Converter.VoltageMV, r.Converter.CurrentMA)
}
