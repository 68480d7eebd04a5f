package main

import (
	"fmt"
	"os"

	"github.com/Agrid-Dev/thermobeat/internal/bench"
	"github.com/Agrid-Dev/thermobeat/internal/energy"
	"github.com/Agrid-Dev/thermobeat/internal/report"
)

type LoadChange struct {
	Hour          int
	DevicePowerMW float64
}

// SimulatePowerManagement runs the bench in hourly steps, applying load changes
// as they come due, and writes the remaining energy as CSV.
func SimulatePowerManagement(hours int, filename string, changes []LoadChange) error {
	initial := bench.OperatingPoint{
		Gradient:      5,
		DurationHours: 1,
		DevicePowerMW: 5,
		Battery:       energy.DefaultBatteryConfig(),
	}

	b, err := bench.New(energy.DefaultProfile(), initial)
	if err != nil {
		return fmt.Errorf("failed to create bench: %v", err)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	// Run one segment per load level, each seeded from where the last one ended.
	p := b.Profile()
	trace := energy.Trace{{TimeHours: 0, RemainingMWh: initial.Battery.CapacityMWh()}}
	for start := 0; start < hours; {
		for _, c := range changes {
			if c.Hour == start {
				if err := b.SetDevicePower(c.DevicePowerMW); err != nil {
					return fmt.Errorf("failed to update device power: %v", err)
				}
			}
		}
		end := hours
		for _, c := range changes {
			if c.Hour > start && c.Hour < end {
				end = c.Hour
			}
		}

		op := b.Get()
		last := trace[len(trace)-1]
		seg := p.SimulateBatteryFrom(op.Gradient, op.Battery, last.RemainingMWh, op.DevicePowerMW, float64(end-start), 1)
		for _, s := range seg[1:] {
			trace = append(trace, energy.Sample{TimeHours: float64(start) + s.TimeHours, RemainingMWh: s.RemainingMWh})
		}
		start = end
	}

	return report.WriteTraceCSV(file, trace)
}

func main() {
	changes := []LoadChange{
		{Hour: 24, DevicePowerMW: 40},
		{Hour: 48, DevicePowerMW: 2},
	}
	if err := SimulatePowerManagement(72, "power_management.csv", changes); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
