// Package main provides the command-line front end of the harvesting engine.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Agrid-Dev/thermobeat/cmd/app"
	"github.com/Agrid-Dev/thermobeat/internal/energy"
	"github.com/Agrid-Dev/thermobeat/internal/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globals shared by every subcommand
type globals struct {
	configPath string
	format     string
}

// env is what a command runs against once flags are parsed.
type env struct {
	cfg     app.Config
	profile energy.Profile
	format  report.Format
	out     io.Writer
}

func (g *globals) load(cmd *cobra.Command) (env, error) {
	f, err := report.ParseFormat(g.format)
	if err != nil {
		return env{}, err
	}
	cfg, err := app.LoadConfig(g.configPath)
	if err != nil {
		return env{}, fmt.Errorf("failed to load config: %w", err)
	}
	p, err := cfg.EnergyProfile()
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, profile: p, format: f, out: cmd.OutOrStdout()}, nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	var simulate, estimate bool

	rootCmd := &cobra.Command{
		Use:   "thermobeat <gradient> <duration>",
		Short: "TEG energy harvesting simulator",
		Long: "Evaluates a thermoelectric generator feeding a boost converter.\n" +
			"With --simulate prints the converter output for <gradient> °C;\n" +
			"with --estimate-energy prints the energy harvested over <duration> hours.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			gradient, err := parseArg(args[0], "gradient")
			if err != nil {
				return err
			}
			duration, err := parseArg(args[1], "duration")
			if err != nil {
				return err
			}
			if !simulate && !estimate {
				return cmd.Help()
			}
			e, err := g.load(cmd)
			if err != nil {
				return err
			}
			return runChain(e, gradient, duration, simulate, estimate)
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "path to config file (.yaml/.yml/.json)")
	rootCmd.PersistentFlags().StringVar(&g.format, "format", "text", "output format: text|json|yaml|csv")
	rootCmd.Flags().BoolVar(&simulate, "simulate", false, "print the converter output voltage and current")
	rootCmd.Flags().BoolVar(&estimate, "estimate-energy", false, "print the harvested energy over the duration")

	// --estimate_energy is accepted as well.
	rootCmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.AddCommand(newTraceCmd(g))
	rootCmd.AddCommand(newPowerCmd(g))
	rootCmd.AddCommand(newLifeCmd(g))
	rootCmd.AddCommand(newSavingsCmd(g))
	rootCmd.AddCommand(newOptimalCmd(g))
	rootCmd.AddCommand(newAmbientCmd(g))
	rootCmd.AddCommand(newReadingsCmd(g))

	return rootCmd
}

type chainResult struct {
	Reading   *energy.Reading `json:"reading,omitempty" yaml:"reading,omitempty"`
	EnergyMWh *float64        `json:"harvested_energy_mwh,omitempty" yaml:"harvested_energy_mwh,omitempty"`
}

func runChain(e env, gradient, duration float64, simulate, estimate bool) error {
	r := e.profile.Chain(gradient)
	var res chainResult
	if simulate {
		res.Reading = &r
	}
	if estimate {
		mwh := energy.EnergyHarvested(gradient, duration, r.Converter.VoltageMV, r.Converter.CurrentMA)
		res.EnergyMWh = &mwh
	}

	switch e.format {
	case report.FormatText:
		if res.Reading != nil {
			fmt.Fprintf(e.out, "Output Voltage: %g mV\n", r.Converter.VoltageMV)
			fmt.Fprintf(e.out, "Output Current: %g mA\n", r.Converter.CurrentMA)
		}
		if res.EnergyMWh != nil {
			fmt.Fprintf(e.out, "Harvested Energy: %g mWh\n", *res.EnergyMWh)
		}
		return nil
	case report.FormatCSV:
		return report.WriteChainCSV(e.out, r, simulate, duration, res.EnergyMWh)
	default:
		return report.Encode(e.out, e.format, res)
	}
}

func parseArg(s, name string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

// floatOr returns the flag value when set on the command line, else fallback.
func floatOr(cmd *cobra.Command, name string, v, fallback float64) float64 {
	if cmd.Flags().Changed(name) {
		return v
	}
	return fallback
}
