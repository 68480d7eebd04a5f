package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/Agrid-Dev/thermobeat/internal/energy"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteTraceCSV writes one row per sample: time_hours, remaining_mwh.
func WriteTraceCSV(w io.Writer, t energy.Trace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_hours", "remaining_mwh"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range t {
		if err := cw.Write([]string{formatFloat(s.TimeHours), formatFloat(s.RemainingMWh)}); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGridCSV writes a labelled matrix. The header row holds corner followed
// by cols; each following row starts with its rows value. Inf is written as "+Inf".
func WriteGridCSV(w io.Writer, corner string, rows, cols []float64, grid *mat.Dense) error {
	if grid != nil {
		r, c := grid.Dims()
		if r != len(rows) || c != len(cols) {
			return fmt.Errorf("grid is %dx%d, labels are %dx%d", r, c, len(rows), len(cols))
		}
	} else if len(rows) != 0 && len(cols) != 0 {
		return fmt.Errorf("nil grid for %dx%d labels", len(rows), len(cols))
	}

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(cols)+1)
	header = append(header, corner)
	for _, c := range cols {
		header = append(header, formatFloat(c))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i, rv := range rows {
		record := make([]string, 0, len(cols)+1)
		record = append(record, formatFloat(rv))
		for j := range cols {
			record = append(record, formatFloat(grid.At(i, j)))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCurveCSV writes x, y pairs. y is left empty for points that are not OK.
func WriteCurveCSV(w io.Writer, xLabel, yLabel string, pts []energy.CurvePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{xLabel, yLabel}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range pts {
		y := ""
		if p.OK {
			y = formatFloat(p.Y)
		}
		if err := cw.Write([]string{formatFloat(p.X), y}); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReadingsCSV writes the TEG and converter outputs per gradient.
func WriteReadingsCSV(w io.Writer, readings []energy.Reading) error {
	cw := csv.NewWriter(w)
	header := []string{"gradient", "teg_voltage_mv", "teg_current_ma", "converter_voltage_mv", "converter_current_ma"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range readings {
		if err := cw.Write([]string{
			formatFloat(r.Gradient),
			formatFloat(r.TEG.VoltageMV),
			formatFloat(r.TEG.CurrentMA),
			formatFloat(r.Converter.VoltageMV),
			formatFloat(r.Converter.CurrentMA),
		}); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteChainCSV writes a single row for one gradient. The reading columns are
// present when withReading is set, the duration and energy columns when
// energyMWh is not nil.
func WriteChainCSV(w io.Writer, r energy.Reading, withReading bool, durationHours float64, energyMWh *float64) error {
	header := []string{"gradient"}
	record := []string{formatFloat(r.Gradient)}
	if withReading {
		header = append(header, "teg_voltage_mv", "teg_current_ma", "converter_voltage_mv", "converter_current_ma")
		record = append(record,
			formatFloat(r.TEG.VoltageMV),
			formatFloat(r.TEG.CurrentMA),
			formatFloat(r.Converter.VoltageMV),
			formatFloat(r.Converter.CurrentMA),
		)
	}
	if energyMWh != nil {
		header = append(header, "duration_hours", "harvested_energy_mwh")
		record = append(record, formatFloat(durationHours), formatFloat(*energyMWh))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
