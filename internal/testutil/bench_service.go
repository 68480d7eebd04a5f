package testutil

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Agrid-Dev/thermobeat/internal/bench"
	"github.com/Agrid-Dev/thermobeat/internal/energy"
)

// FakeBenchService is a reusable fake implementing ports.BenchService.
// Results are computed with the real engine from Op.
type FakeBenchService struct {
	Op      bench.OperatingPoint
	Profile energy.Profile

	SetCalled bool
	SetParam  bench.Parameter
	SetArg    float64
	SetErr    error

	SetBatteryCalled bool
	SetBatteryArg    energy.BatteryConfig
	SetBatteryErr    error

	TraceErr error
}

func NewFakeBenchService() *FakeBenchService {
	return &FakeBenchService{
		Op: bench.OperatingPoint{
			Gradient:      3,
			DurationHours: 2,
			DevicePowerMW: 336,
			Battery:       energy.DefaultBatteryConfig(),
		},
		Profile: energy.DefaultProfile(),
	}
}

func (f *FakeBenchService) Get() bench.OperatingPoint { return f.Op }

func (f *FakeBenchService) Report() bench.Report {
	b, err := f.bench()
	if err != nil {
		return bench.Report{}
	}
	return b.Report()
}

func (f *FakeBenchService) Set(p bench.Parameter, v float64) error {
	f.SetCalled = true
	f.SetParam = p
	f.SetArg = v
	if f.SetErr != nil {
		return f.SetErr
	}
	switch p {
	case bench.ParamGradient:
		f.Op.Gradient = v
	case bench.ParamDuration:
		f.Op.DurationHours = v
	case bench.ParamDevicePower:
		f.Op.DevicePowerMW = v
	default:
		return bench.ErrInvalidParameter
	}
	return nil
}

func (f *FakeBenchService) SetBattery(cfg energy.BatteryConfig) error {
	f.SetBatteryCalled = true
	f.SetBatteryArg = cfg
	if f.SetBatteryErr != nil {
		return f.SetBatteryErr
	}
	f.Op.Battery = cfg
	return nil
}

// bench builds a real bench over Op so request limits match production.
func (f *FakeBenchService) bench() (*bench.Bench, error) {
	return bench.New(f.Profile, f.Op)
}

func (f *FakeBenchService) Trace(stepHours float64) (energy.Trace, error) {
	if f.TraceErr != nil {
		return nil, f.TraceErr
	}
	b, err := f.bench()
	if err != nil {
		return nil, err
	}
	return b.Trace(stepHours)
}

func (f *FakeBenchService) PowerManagement(hours int) (energy.Trace, error) {
	b, err := f.bench()
	if err != nil {
		return nil, err
	}
	return b.PowerManagement(hours)
}

func (f *FakeBenchService) OptimalGradient() (float64, bool) {
	return f.Profile.OptimalGradient(f.Op.DevicePowerMW, energy.DefaultSearchRange)
}

func (f *FakeBenchService) LifetimeSavings(years int) (energy.Savings, error) {
	b, err := f.bench()
	if err != nil {
		return energy.Savings{}, err
	}
	return b.LifetimeSavings(years)
}

func (f *FakeBenchService) AmbientSweep(ambients, gradients []float64) *mat.Dense {
	return f.Profile.AmbientSweep(ambients, gradients, f.Op.DurationHours)
}
