package main

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/Agrid-Dev/thermobeat/internal/bench"
	"github.com/Agrid-Dev/thermobeat/internal/energy"
	"github.com/Agrid-Dev/thermobeat/internal/report"
)

// pointFlags override the configured operating point.
type pointFlags struct {
	gradient    float64
	duration    float64
	devicePower float64
	capacity    float64
}

func (p *pointFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&p.gradient, "gradient", 0, "temperature gradient in °C (default from config)")
	cmd.Flags().Float64Var(&p.duration, "duration", 0, "duration in hours (default from config)")
	cmd.Flags().Float64Var(&p.devicePower, "device-power", 0, "device consumption in mW (default from config)")
	cmd.Flags().Float64Var(&p.capacity, "capacity", 0, "battery capacity in mAh (default from config)")
}

func (p *pointFlags) bench(cmd *cobra.Command, e env) (*bench.Bench, error) {
	op := e.cfg.Operating()
	op.Gradient = floatOr(cmd, "gradient", p.gradient, op.Gradient)
	op.DurationHours = floatOr(cmd, "duration", p.duration, op.DurationHours)
	op.DevicePowerMW = floatOr(cmd, "device-power", p.devicePower, op.DevicePowerMW)
	op.Battery.CapacityMAh = floatOr(cmd, "capacity", p.capacity, op.Battery.CapacityMAh)
	return bench.New(e.profile, op)
}

// rangeFlags describe a linspace on the command line.
type rangeFlags struct {
	name string
	r    energy.GradientRange
}

func (f *rangeFlags) register(cmd *cobra.Command, unit string) {
	cmd.Flags().Float64Var(&f.r.Min, f.name+"-min", f.r.Min, "first "+f.name+" ("+unit+")")
	cmd.Flags().Float64Var(&f.r.Max, f.name+"-max", f.r.Max, "last "+f.name+" ("+unit+")")
	cmd.Flags().IntVar(&f.r.Samples, f.name+"-n", f.r.Samples, "number of "+f.name+" samples")
}

func (f *rangeFlags) values() ([]float64, error) {
	if f.r.Samples < 1 {
		return nil, fmt.Errorf("--%s-n must be at least 1", f.name)
	}
	return f.r.Values(), nil
}

func newTraceCmd(g *globals) *cobra.Command {
	var pf pointFlags
	var step float64
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Simulate the battery over the duration at a fixed time step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			b, err := pf.bench(cmd, e)
			if err != nil {
				return err
			}
			trace, err := b.Trace(step)
			if err != nil {
				return err
			}
			return writeTrace(e, trace)
		},
	}
	pf.register(cmd)
	cmd.Flags().Float64Var(&step, "step", 0.1, "time step in hours")
	return cmd
}

func newPowerCmd(g *globals) *cobra.Command {
	var pf pointFlags
	var hours int
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Hourly power-management trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			b, err := pf.bench(cmd, e)
			if err != nil {
				return err
			}
			trace, err := b.PowerManagement(hours)
			if err != nil {
				return err
			}
			return writeTrace(e, trace)
		},
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&hours, "hours", 72, "simulation horizon in hours")
	return cmd
}

func writeTrace(e env, trace energy.Trace) error {
	switch e.format {
	case report.FormatCSV:
		return report.WriteTraceCSV(e.out, trace)
	case report.FormatText:
		tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "time_h\tremaining_mWh")
		for _, s := range trace {
			fmt.Fprintf(tw, "%g\t%.3f\n", s.TimeHours, s.RemainingMWh)
		}
		if s, ok := trace.Depleted(); ok {
			fmt.Fprintf(tw, "depleted at %g h\n", s.TimeHours)
		}
		return tw.Flush()
	default:
		return report.Encode(e.out, e.format, trace)
	}
}

func newLifeCmd(g *globals) *cobra.Command {
	var pf pointFlags
	var capacities []float64
	gradients := rangeFlags{name: "gradient", r: energy.GradientRange{Min: 1, Max: 10, Samples: 10}}
	cmd := &cobra.Command{
		Use:   "life",
		Short: "Battery life in hours, alone or as a gradient x capacity grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			b, err := pf.bench(cmd, e)
			if err != nil {
				return err
			}
			op := b.Get()

			if len(capacities) == 0 {
				life := b.Report().BatteryLifeHours
				return writeScalar(e, "battery_life_hours", life, "Battery Life: %s h\n")
			}

			gs, err := gradients.values()
			if err != nil {
				return err
			}
			grid := e.profile.BatteryLifeGrid(gs, capacities, op.Battery.VoltageV, op.DevicePowerMW)
			return writeGrid(e, "gradient\\capacity_mah", gs, capacities, grid, "battery_life_hours")
		},
	}
	pf.register(cmd)
	gradients.register(cmd, "°C")
	cmd.Flags().Float64SliceVar(&capacities, "capacities", nil, "battery capacities in mAh; enables the grid")
	return cmd
}

func newSavingsCmd(g *globals) *cobra.Command {
	var pf pointFlags
	var capacities []float64
	var years int
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Project lifetime energy savings with battery degradation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			b, err := pf.bench(cmd, e)
			if err != nil {
				return err
			}

			if len(capacities) == 0 {
				s, err := b.LifetimeSavings(years)
				if err != nil {
					return err
				}
				if e.format == report.FormatText {
					fmt.Fprintf(e.out, "Total Harvested: %.3f mWh\n", s.TotalHarvestedMWh)
					fmt.Fprintf(e.out, "Remaining Capacity: %.3f mWh\n", s.RemainingCapacity)
					fmt.Fprintf(e.out, "Net Savings: %.3f mWh\n", s.Net())
					return nil
				}
				if e.format == report.FormatCSV {
					return report.WriteCurveCSV(e.out, "capacity_mah", "net_savings_mwh",
						[]energy.CurvePoint{{X: b.Get().Battery.CapacityMAh, Y: s.Net(), OK: true}})
				}
				return report.Encode(e.out, e.format, s)
			}

			if years < 0 {
				return bench.ErrInvalidHorizon
			}
			if years > bench.MaxYears {
				return bench.ErrTooManySamples
			}
			op := b.Get()
			pts := e.profile.LifetimeSavingsCurve(op.Gradient, capacities, op.Battery, op.DevicePowerMW, years)
			return writeCurve(e, "capacity_mah", "net_savings_mwh", pts)
		},
	}
	pf.register(cmd)
	cmd.Flags().IntVar(&years, "years", 10, "projection horizon in years")
	cmd.Flags().Float64SliceVar(&capacities, "capacities", nil, "battery capacities in mAh; enables the curve")
	return cmd
}

func newOptimalCmd(g *globals) *cobra.Command {
	var pf pointFlags
	var powers []float64
	search := rangeFlags{name: "gradient", r: energy.DefaultSearchRange}
	cmd := &cobra.Command{
		Use:   "optimal",
		Short: "Smallest gradient whose harvest covers the device consumption",
		Long: `Smallest gradient whose harvest covers the device consumption.

The search scans 0.5 to 10 °C by default. Harvest power peaks near 12.5 mW
at 10 °C, so heavier loads, including the 336 mW default, report none.
Widen the range with --gradient-max to search further.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			if search.r.Samples < 1 {
				return fmt.Errorf("--gradient-n must be at least 1")
			}

			if len(powers) == 0 {
				b, err := pf.bench(cmd, e)
				if err != nil {
					return err
				}
				powers = []float64{b.Get().DevicePowerMW}
			}
			pts := e.profile.OptimalGradientCurve(powers, search.r)
			return writeCurve(e, "device_power_mw", "gradient", pts)
		},
	}
	pf.register(cmd)
	search.register(cmd, "°C")
	cmd.Flags().Float64SliceVar(&powers, "powers", nil, "device consumptions in mW; default is the configured device power")
	return cmd
}

func newAmbientCmd(g *globals) *cobra.Command {
	var pf pointFlags
	ambients := rangeFlags{name: "ambient", r: energy.GradientRange{Min: 20, Max: 40, Samples: 21}}
	gradients := rangeFlags{name: "gradient", r: energy.GradientRange{Min: 1, Max: 10, Samples: 10}}
	cmd := &cobra.Command{
		Use:   "ambient",
		Short: "Harvested energy over ambient temperature x gradient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			as, err := ambients.values()
			if err != nil {
				return err
			}
			gs, err := gradients.values()
			if err != nil {
				return err
			}
			b, err := pf.bench(cmd, e)
			if err != nil {
				return err
			}
			grid := b.AmbientSweep(as, gs)
			return writeGrid(e, "ambient\\gradient", as, gs, grid, "energy_mwh")
		},
	}
	pf.register(cmd)
	ambients.register(cmd, "°C")
	gradients.register(cmd, "°C")
	return cmd
}

func newReadingsCmd(g *globals) *cobra.Command {
	gradients := rangeFlags{name: "gradient", r: energy.GradientRange{Min: 0, Max: 10, Samples: 11}}
	cmd := &cobra.Command{
		Use:   "readings",
		Short: "TEG and converter output over a gradient range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			gs, err := gradients.values()
			if err != nil {
				return err
			}
			readings := e.profile.Readings(gs)
			switch e.format {
			case report.FormatCSV:
				return report.WriteReadingsCSV(e.out, readings)
			case report.FormatText:
				tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "gradient_C\tteg_mV\tteg_mA\tconv_mV\tconv_mA\tefficiency")
				for _, r := range readings {
					fmt.Fprintf(tw, "%g\t%.2f\t%.3f\t%g\t%.4f\t%s\n",
						r.Gradient, r.TEG.VoltageMV, r.TEG.CurrentMA, r.Converter.VoltageMV, r.Converter.CurrentMA,
						formatValue(energy.ConversionEfficiency(r.TEG, r.Converter)))
				}
				return tw.Flush()
			default:
				return report.Encode(e.out, e.format, readings)
			}
		},
	}
	gradients.register(cmd, "°C")
	return cmd
}

func writeScalar(e env, key string, v float64, textFmt string) error {
	switch e.format {
	case report.FormatText:
		_, err := fmt.Fprintf(e.out, textFmt, formatValue(v))
		return err
	case report.FormatCSV:
		_, err := fmt.Fprintf(e.out, "%s\n%s\n", key, formatValue(v))
		return err
	default:
		return report.Encode(e.out, e.format, map[string]any{key: jsonSafe(v)})
	}
}

func writeCurve(e env, xLabel, yLabel string, pts []energy.CurvePoint) error {
	switch e.format {
	case report.FormatCSV:
		return report.WriteCurveCSV(e.out, xLabel, yLabel, pts)
	case report.FormatText:
		tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "%s\t%s\n", xLabel, yLabel)
		for _, p := range pts {
			y := "none"
			if p.OK {
				y = formatValue(p.Y)
			}
			fmt.Fprintf(tw, "%g\t%s\n", p.X, y)
		}
		return tw.Flush()
	default:
		return report.Encode(e.out, e.format, pts)
	}
}

func writeGrid(e env, corner string, rows, cols []float64, grid *mat.Dense, key string) error {
	if grid == nil {
		return fmt.Errorf("empty grid")
	}
	switch e.format {
	case report.FormatCSV:
		return report.WriteGridCSV(e.out, corner, rows, cols, grid)
	case report.FormatText:
		tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprint(tw, corner)
		for _, c := range cols {
			fmt.Fprintf(tw, "\t%g", c)
		}
		fmt.Fprintln(tw, "\t")
		for i, r := range rows {
			fmt.Fprintf(tw, "%g", r)
			for j := range cols {
				fmt.Fprintf(tw, "\t%s", formatValue(grid.At(i, j)))
			}
			fmt.Fprintln(tw, "\t")
		}
		return tw.Flush()
	default:
		values := make([][]any, len(rows))
		for i := range rows {
			values[i] = make([]any, len(cols))
			for j := range cols {
				values[i][j] = jsonSafe(grid.At(i, j))
			}
		}
		return report.Encode(e.out, e.format, map[string]any{
			"rows":    rows,
			"columns": cols,
			key:       values,
		})
	}
}

// formatValue renders +Inf as "inf" and finite values with three decimals.
func formatValue(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsNaN(v):
		return "nan"
	}
	return fmt.Sprintf("%.3f", v)
}

// jsonSafe maps non-finite values to nil, which JSON and YAML render as null.
func jsonSafe(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return v
}
