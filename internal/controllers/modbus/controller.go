package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/thermobeat/internal/bench"
	"github.com/Agrid-Dev/thermobeat/internal/metrics"
	"github.com/Agrid-Dev/thermobeat/internal/ports"
)

const transport = "modbus"

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // Modbus slave/unit ID, 1..247.
}

// Holding registers, read/write, signed 16-bit fixed point.
//
//	HR0 gradient °C        ×100
//	HR1 duration h         ×10
//	HR2 device power mW    ×10
var holdingRegisters = []struct {
	param bench.Parameter
	scale float64
}{
	{bench.ParamGradient, 100},
	{bench.ParamDuration, 10},
	{bench.ParamDevicePower, 10},
}

// Input registers, read only, signed 16-bit fixed point, saturating.
//
//	IR0 TEG voltage mV         ×10
//	IR1 TEG current mA         ×100
//	IR2 converter current mA   ×1000
//	IR3 harvest power mW       ×1000
//	IR4 battery life h         ×1 (0x7FFF when sustainable)
//	IR5 sustainable            0/1
var inputRegisters = []func(r bench.Report) uint16{
	func(r bench.Report) uint16 { return encode(r.Reading.TEG.VoltageMV, 10) },
	func(r bench.Report) uint16 { return encode(r.Reading.TEG.CurrentMA, 100) },
	func(r bench.Report) uint16 { return encode(r.Reading.Converter.CurrentMA, 1000) },
	func(r bench.Report) uint16 { return encode(r.HarvestPowerMW, 1000) },
	func(r bench.Report) uint16 { return encode(r.BatteryLifeHours, 1) },
	func(r bench.Report) uint16 {
		if r.Sustainable {
			return 1
		}
		return 0
	},
}

type Controller struct {
	svc ports.BenchService
	cfg Config

	serv *mbserver.Server
}

func New(svc ports.BenchService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	return &Controller{svc: svc, cfg: cfg}, nil
}

// Run starts the Modbus server. Reads are answered from the bench on demand and
// writes are applied immediately. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Handlers must be registered before ListenTCP starts the server goroutines.
	serv.RegisterFunctionHandler(3, c.readHolding)
	serv.RegisterFunctionHandler(4, c.readInput)
	serv.RegisterFunctionHandler(6, c.writeSingle)
	serv.RegisterFunctionHandler(16, c.writeMultiple)

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// Read Holding Registers (function 3).
func (c *Controller) readHolding(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData(), len(holdingRegisters))
	if exc != &mbserver.Success {
		return []byte{}, exc
	}
	op := c.svc.Get()
	values := map[bench.Parameter]float64{
		bench.ParamGradient:    op.Gradient,
		bench.ParamDuration:    op.DurationHours,
		bench.ParamDevicePower: op.DevicePowerMW,
	}
	regs := make([]uint16, qty)
	for i := range regs {
		hr := holdingRegisters[start+i]
		regs[i] = encode(values[hr.param], hr.scale)
	}
	return registerResponse(regs), &mbserver.Success
}

// Read Input Registers (function 4).
func (c *Controller) readInput(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData(), len(inputRegisters))
	if exc != &mbserver.Success {
		return []byte{}, exc
	}
	report := c.svc.Report()
	regs := make([]uint16, qty)
	for i := range regs {
		regs[i] = inputRegisters[start+i](report)
	}
	return registerResponse(regs), &mbserver.Success
}

// Write Single Register (function 6).
func (c *Controller) writeSingle(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := int(binary.BigEndian.Uint16(data[0:2]))
	value := binary.BigEndian.Uint16(data[2:4])

	if exc := c.write(addr, value); exc != &mbserver.Success {
		return []byte{}, exc
	}

	// echo request (address + value)
	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

// Write Multiple Registers (function 16).
func (c *Controller) writeMultiple(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	d := frame.GetData()
	if len(d) < 5 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(d[0:2])
	quantity := binary.BigEndian.Uint16(d[2:4])
	byteCount := int(d[4])
	if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
		return []byte{}, &mbserver.IllegalDataValue
	}
	for i := 0; i < int(quantity); i++ {
		val := binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
		if exc := c.write(int(start)+i, val); exc != &mbserver.Success {
			return []byte{}, exc
		}
	}

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], start)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return resp, &mbserver.Success
}

func (c *Controller) write(addr int, value uint16) *mbserver.Exception {
	if addr < 0 || addr >= len(holdingRegisters) {
		return &mbserver.IllegalDataAddress
	}
	hr := holdingRegisters[addr]
	err := c.svc.Set(hr.param, decode(value, hr.scale))
	metrics.ObserveCommand(transport, err)
	if err != nil {
		return &mbserver.IllegalDataValue
	}
	return &mbserver.Success
}

func readRange(data []byte, size int) (start, qty int, exc *mbserver.Exception) {
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start = int(binary.BigEndian.Uint16(data[0:2]))
	qty = int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 125 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	if start+qty > size {
		return 0, 0, &mbserver.IllegalDataAddress
	}
	return start, qty, &mbserver.Success
}

// registerResponse builds byte count + register bytes.
func registerResponse(regs []uint16) []byte {
	byteCount := len(regs) * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
	}
	return resp
}

// encode saturates to int16. NaN encodes as zero.
func encode(v, scale float64) uint16 {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v * scale)
	r = math.Min(math.Max(r, math.MinInt16), math.MaxInt16)
	return uint16(int16(r))
}

func decode(u uint16, scale float64) float64 {
	return float64(int16(u)) / scale
}
