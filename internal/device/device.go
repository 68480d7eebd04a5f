package device

import "github.com/Agrid-Dev/thermobeat/internal/bench"

// Device ties a harvester identity to its bench.
type Device struct {
	ID string
	B  *bench.Bench
}

func New(id string, b *bench.Bench) *Device {
	return &Device{ID: id, B: b}
}
