package energy

// ElectricalState is a (voltage, current) pair in mV and mA.
type ElectricalState struct {
	VoltageMV float64 `json:"voltage_mv" yaml:"voltage_mv"`
	CurrentMA float64 `json:"current_ma" yaml:"current_ma"`
}

// PowerUW is V*I. With mV and mA this is µW.
func (e ElectricalState) PowerUW() float64 {
	return e.VoltageMV * e.CurrentMA
}

const microToMilli = 1e-3

// TEGOutput is linear in the gradient. No validation: negative gradients give
// negative output.
func TEGOutput(gradient, openCircuitVoltagePerGradient, shortCircuitCurrentPerGradient float64) ElectricalState {
	return ElectricalState{
		VoltageMV: openCircuitVoltagePerGradient * gradient,
		CurrentMA: shortCircuitCurrentPerGradient * gradient,
	}
}

// ConverterOutput models a regulated boost converter: output voltage is fixed,
// losses show up as reduced output current.
func (p Profile) ConverterOutput(inputVoltageMV, inputCurrentMA float64) ElectricalState {
	inputPower := inputVoltageMV * inputCurrentMA
	outputPower := inputPower * p.ConverterEfficiency
	return ElectricalState{
		VoltageMV: p.ConverterOutputVoltage,
		CurrentMA: outputPower / p.ConverterOutputVoltage,
	}
}

// EnergyHarvested returns mWh delivered at the converter output over durationHours.
// gradient is informational only; its effect is already in the output current.
func EnergyHarvested(gradient, durationHours, outputVoltageMV, outputCurrentMA float64) float64 {
	_ = gradient
	return outputVoltageMV * outputCurrentMA * microToMilli * durationHours
}

// ConversionEfficiency is output power over input power. It is NaN when the
// input power is zero.
func ConversionEfficiency(input, output ElectricalState) float64 {
	return output.PowerUW() / input.PowerUW()
}
