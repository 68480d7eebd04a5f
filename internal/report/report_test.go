package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Agrid-Dev/thermobeat/internal/energy"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"csv", FormatCSV, false},
		{"xml", FormatText, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.True(t, got.Valid())
	}
	assert.Equal(t, "unknown", Format(42).String())
}

func TestEncode(t *testing.T) {
	v := energy.ElectricalState{VoltageMV: 151.2, CurrentMA: 9.33}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSON, v))
	assert.Contains(t, buf.String(), `"voltage_mv": 151.2`)

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatYAML, v))
	assert.Contains(t, buf.String(), "current_ma: 9.33")

	assert.Error(t, Encode(&buf, FormatCSV, v))
}

func TestWriteTraceCSV(t *testing.T) {
	trace := energy.Trace{{TimeHours: 0, RemainingMWh: 4440}, {TimeHours: 0.5, RemainingMWh: 4272.5}}

	var buf bytes.Buffer
	require.NoError(t, WriteTraceCSV(&buf, trace))

	want := "time_hours,remaining_mwh\n0,4440\n0.5,4272.5\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteGridCSV(t *testing.T) {
	grid := mat.NewDense(2, 2, []float64{1, 2, 3, math.Inf(1)})

	var buf bytes.Buffer
	require.NoError(t, WriteGridCSV(&buf, "gradient\\capacity", []float64{1, 2}, []float64{600, 1200}, grid))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "gradient\\capacity,600,1200", lines[0])
	assert.Equal(t, "1,1,2", lines[1])
	assert.Equal(t, "2,3,+Inf", lines[2])
}

func TestWriteGridCSV_DimensionMismatch(t *testing.T) {
	grid := mat.NewDense(2, 2, nil)
	assert.Error(t, WriteGridCSV(&bytes.Buffer{}, "x", []float64{1}, []float64{1, 2}, grid))
	assert.Error(t, WriteGridCSV(&bytes.Buffer{}, "x", []float64{1}, []float64{1}, nil))
	assert.NoError(t, WriteGridCSV(&bytes.Buffer{}, "x", nil, nil, nil))
}

func TestWriteCurveCSV(t *testing.T) {
	pts := []energy.CurvePoint{{X: 0, Y: 0.5, OK: true}, {X: 500, OK: false}}

	var buf bytes.Buffer
	require.NoError(t, WriteCurveCSV(&buf, "device_power_mw", "gradient", pts))

	assert.Equal(t, "device_power_mw,gradient\n0,0.5\n500,\n", buf.String())
}

func TestWriteReadingsCSV(t *testing.T) {
	readings := energy.DefaultProfile().Readings([]float64{0, 1})

	var buf bytes.Buffer
	require.NoError(t, WriteReadingsCSV(&buf, readings))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[2], "1,50.4,3.11,3300,"), lines[2])
}

func TestWriteChainCSV(t *testing.T) {
	r := energy.DefaultProfile().Chain(1)
	mwh := 4.5

	var buf bytes.Buffer
	require.NoError(t, WriteChainCSV(&buf, r, false, 2, &mwh))
	assert.Equal(t, "gradient,duration_hours,harvested_energy_mwh\n1,2,4.5\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteChainCSV(&buf, r, true, 2, nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "gradient,teg_voltage_mv,teg_current_ma,converter_voltage_mv,converter_current_ma", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,50.4,3.11,3300,"), lines[1])
}
