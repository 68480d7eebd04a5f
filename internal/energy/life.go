package energy

import "math"

const hoursPerYear = 365 * 24

// BatteryLifeHours assumes a constant net drain with no ceiling and no fade.
// It returns +Inf when harvesting covers the device consumption.
func (p Profile) BatteryLifeHours(gradient float64, battery BatteryConfig, devicePowerMW float64) float64 {
	net := devicePowerMW - p.HarvestPower(gradient)
	if net > 0 {
		return battery.CapacityMWh() / net
	}
	return math.Inf(1)
}

// Savings is the outcome of a multi-year projection.
type Savings struct {
	Years             int     `json:"years" yaml:"years"`
	TotalHarvestedMWh float64 `json:"total_harvested_mwh" yaml:"total_harvested_mwh"`
	RemainingCapacity float64 `json:"remaining_capacity_mwh" yaml:"remaining_capacity_mwh"`
}

// Net is the harvested total minus the faded battery capacity.
func (s Savings) Net() float64 {
	return s.TotalHarvestedMWh - s.RemainingCapacity
}

// LifetimeSavings accumulates a year of harvest per iteration and, independently,
// drains a year of device consumption from the battery before compounding the
// capacity fade.
func (p Profile) LifetimeSavings(gradient float64, battery BatteryConfig, devicePowerMW float64, years int) Savings {
	perYear := p.HarvestPower(gradient) * hoursPerYear
	s := Savings{Years: years, RemainingCapacity: battery.CapacityMWh()}
	for range years {
		s.TotalHarvestedMWh += perYear
		s.RemainingCapacity -= devicePowerMW * hoursPerYear
		s.RemainingCapacity *= 1 - battery.DegradationRate
	}
	return s
}
