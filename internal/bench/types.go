package bench

import "fmt"

// Parameter is an integer enum naming the scalar inputs of the operating point.
type Parameter int

const (
	ParamUnknown Parameter = iota
	ParamGradient
	ParamDuration
	ParamDevicePower
)

func (p Parameter) Valid() bool {
	return p == ParamGradient || p == ParamDuration || p == ParamDevicePower
}

func (p Parameter) String() string {
	switch p {
	case ParamGradient:
		return "gradient"
	case ParamDuration:
		return "duration"
	case ParamDevicePower:
		return "device_power"
	default:
		return "unknown"
	}
}

func ParseParameter(s string) (Parameter, error) {
	switch s {
	case "gradient":
		return ParamGradient, nil
	case "duration":
		return ParamDuration, nil
	case "device_power":
		return ParamDevicePower, nil
	default:
		return ParamUnknown, fmt.Errorf("invalid parameter: %q", s)
	}
}
