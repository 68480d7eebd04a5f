package bench

import "errors"

var (
	ErrInvalidGradient    = errors.New("invalid temperature gradient")
	ErrInvalidDuration    = errors.New("duration must be greater or equal to zero")
	ErrInvalidDevicePower = errors.New("device power must be greater or equal to zero")
	ErrInvalidCapacity    = errors.New("battery capacity must be strictly positive")
	ErrInvalidVoltage     = errors.New("battery voltage must be strictly positive")
	ErrInvalidDegradation = errors.New("degradation rate must be in [0, 1)")
	ErrInvalidTimeStep    = errors.New("time step must be strictly positive")
	ErrInvalidHorizon     = errors.New("horizon must be greater or equal to zero")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrTooManySamples     = errors.New("too many samples requested")
)
