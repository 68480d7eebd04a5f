package energy

import "errors"

var (
	ErrInvalidConverterVoltage    = errors.New("converter output voltage must be strictly positive")
	ErrInvalidConverterEfficiency = errors.New("converter efficiency must be in (0, 1]")
	ErrInvalidTEGCoefficients     = errors.New("TEG coefficients must be greater or equal to zero")
)
