package energy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateBatteryTraceShape(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()

	tests := []struct {
		name      string
		total     float64
		step      float64
		wantLen   int
		wantFinal float64
	}{
		{"half hour steps", 10, 0.5, 21, 10},
		{"hourly", 72, 1, 73, 72},
		{"partial last step is dropped", 10, 3, 4, 9},
		{"step longer than run", 1, 2, 1, 0},
		{"zero duration", 0, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trace := p.SimulateBattery(3, battery, 336, tt.total, tt.step)
			require.Len(t, trace, tt.wantLen)
			assert.Equal(t, 0.0, trace[0].TimeHours)
			assert.Equal(t, battery.CapacityMWh(), trace[0].RemainingMWh)
			assert.InDelta(t, tt.wantFinal, trace[len(trace)-1].TimeHours, 1e-9)
		})
	}
}

func TestSimulateBatteryNeverExceedsCapacity(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()
	for _, g := range []float64{0, 3, 10, 50} {
		for _, device := range []float64{0, 1, 336} {
			trace := p.SimulateBattery(g, battery, device, 48, 0.25)
			for _, s := range trace {
				if s.RemainingMWh > battery.CapacityMWh() {
					t.Fatalf("g=%v device=%v: %v exceeds capacity at t=%v", g, device, s.RemainingMWh, s.TimeHours)
				}
			}
		}
	}
}

func TestSimulateBatteryStep(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()
	trace := p.SimulateBattery(3, battery, 336, 1, 0.5)

	require.Len(t, trace, 3)
	harvested := p.HarvestPower(3) * 0.5
	want := battery.CapacityMWh() + harvested - 336*0.5
	assert.InDelta(t, want, trace[1].RemainingMWh, 1e-9)
	assert.InDelta(t, want+harvested-168, trace[2].RemainingMWh, 1e-9)
}

func TestSimulateBatteryGoesNegative(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()
	trace := p.SimulateBattery(3, battery, 336, 72, 1)

	last := trace[len(trace)-1]
	assert.Less(t, last.RemainingMWh, 0.0, "deficit is not clamped at zero")

	s, ok := trace.Depleted()
	require.True(t, ok)
	assert.Equal(t, 14.0, s.TimeHours)
}

func TestSimulateBatterySurplusHoldsAtCapacity(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()
	trace := p.SimulateBattery(3, battery, 0, 24, 1)
	for _, v := range trace.Values() {
		assert.Equal(t, battery.CapacityMWh(), v)
	}
	_, ok := trace.Depleted()
	assert.False(t, ok)
}

func TestSimulateBatteryDegenerateStep(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()
	for _, step := range []float64{0, -1, math.NaN()} {
		trace := p.SimulateBattery(3, battery, 336, 10, step)
		assert.Len(t, trace, 1, "step=%v", step)
	}
}

func TestSimulateBatteryFrom(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()
	net := p.HarvestPower(5) - 40

	trace := p.SimulateBatteryFrom(5, battery, 1000, 40, 3, 1)
	require.Len(t, trace, 4)
	assert.Equal(t, 1000.0, trace[0].RemainingMWh)
	assert.InDelta(t, 1000+3*net, trace[3].RemainingMWh, 1e-9)

	// a surplus still stops at the ceiling
	trace = p.SimulateBatteryFrom(5, battery, battery.CapacityMWh()-0.5, 0, 2, 1)
	assert.Equal(t, battery.CapacityMWh(), trace[2].RemainingMWh)
}

func TestSimulateBatteryFromChainsLikeOneRun(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()

	whole := p.SimulateBattery(3, battery, 336, 6, 1)
	first := p.SimulateBattery(3, battery, 336, 3, 1)
	second := p.SimulateBatteryFrom(3, battery, first[3].RemainingMWh, 336, 3, 1)

	assert.Equal(t, whole[6].RemainingMWh, second[3].RemainingMWh)
}

func TestPowerManagement(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()
	trace := p.PowerManagement(3, battery, 336, 72)

	require.Len(t, trace, 73)
	assert.Equal(t, battery.CapacityMWh(), trace[0].RemainingMWh)
	net := p.HarvestPower(3) - 336
	assert.InDelta(t, battery.CapacityMWh()+72*net, trace[72].RemainingMWh, 1e-6)
}

func TestBatteryLifeHours(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()

	got := p.BatteryLifeHours(3, battery, 336)
	assert.InDelta(t, battery.CapacityMWh()/(336-p.HarvestPower(3)), got, 1e-9)
	assert.InDelta(t, 13.2588, got, 1e-3)
}

func TestBatteryLifeHoursInfiniteWhenSustainable(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()

	tests := []struct {
		gradient float64
		device   float64
	}{
		{3, 0},
		{3, 1},
		{10, 12},
		{5, 3},
	}
	for _, tt := range tests {
		if p.HarvestPower(tt.gradient) < tt.device {
			t.Fatalf("bad fixture: harvest %v < device %v", p.HarvestPower(tt.gradient), tt.device)
		}
		got := p.BatteryLifeHours(tt.gradient, battery, tt.device)
		assert.True(t, math.IsInf(got, 1), "gradient=%v device=%v got %v", tt.gradient, tt.device, got)
	}
}

func TestLifetimeSavings(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()

	s := p.LifetimeSavings(3, battery, 336, 1)
	assert.InDelta(t, p.HarvestPower(3)*8760, s.TotalHarvestedMWh, 1e-6)
	assert.InDelta(t, (4440-336*8760)*0.98, s.RemainingCapacity, 1e-6)

	ten := p.LifetimeSavings(3, battery, 336, 10)
	assert.InDelta(t, 10*p.HarvestPower(3)*8760, ten.TotalHarvestedMWh, 1e-6)
	assert.Equal(t, ten.TotalHarvestedMWh-ten.RemainingCapacity, ten.Net())
}

func TestLifetimeSavingsZeroYears(t *testing.T) {
	p := DefaultProfile()
	battery := DefaultBatteryConfig()
	s := p.LifetimeSavings(3, battery, 336, 0)
	assert.Equal(t, 0.0, s.TotalHarvestedMWh)
	assert.Equal(t, battery.CapacityMWh(), s.RemainingCapacity)
}

func TestLifetimeSavingsFadeCompounds(t *testing.T) {
	p := DefaultProfile()
	battery := BatteryConfig{CapacityMAh: 1000, VoltageV: 1, DegradationRate: 0.1}
	s := p.LifetimeSavings(3, battery, 0, 3)
	assert.InDelta(t, 1000*0.9*0.9*0.9, s.RemainingCapacity, 1e-9)
}
