package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Agrid-Dev/thermobeat/internal/bench"
	"github.com/Agrid-Dev/thermobeat/internal/energy"
	"github.com/Agrid-Dev/thermobeat/internal/metrics"
	"github.com/Agrid-Dev/thermobeat/internal/ports"
)

const transport = "mqtt"

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainReport    bool
	PublishInterval time.Duration

	Username string
	Password string

	// Logger receives rejected commands and unpublishable reports. Nil discards them.
	Logger *log.Logger
}

type Controller struct {
	svc ports.BenchService
	cfg Config

	client mqtt.Client
}

func New(svc ports.BenchService, cfg Config) (*Controller, error) {
	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}
	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "thermobeat/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "thermobeat-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	opts.OnConnect = func(cl mqtt.Client) {
		token := cl.Subscribe(c.topic("set/+"), c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.cfg.Logger.Printf("mqtt subscribe: %v", err)
		}
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	// The report is a pure function of the operating point,
	// so comparing points is enough to detect a change.
	last := c.svc.Get()
	c.publishReport()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			if cur := c.svc.Get(); cur != last {
				c.publishReport()
				last = cur
			}
		}
	}
}

type electricalDTO struct {
	VoltageMV float64 `json:"voltage_mv"`
	CurrentMA float64 `json:"current_ma"`
}

type reportDTO struct {
	Gradient           float64       `json:"gradient"`
	DurationHours      float64       `json:"duration_hours"`
	DevicePowerMW      float64       `json:"device_power_mw"`
	CapacityMAh        float64       `json:"battery_capacity_mah"`
	TEG                electricalDTO `json:"teg"`
	Converter          electricalDTO `json:"converter"`
	HarvestPowerMW     float64       `json:"harvest_power_mw"`
	HarvestedEnergyMWh float64       `json:"harvested_energy_mwh"`
	BatteryLifeHours   *float64      `json:"battery_life_hours"`
	Sustainable        bool          `json:"sustainable"`
}

func (c *Controller) publishReport() {
	op := c.svc.Get()
	r := c.svc.Report()
	dto := reportDTO{
		Gradient:           op.Gradient,
		DurationHours:      op.DurationHours,
		DevicePowerMW:      op.DevicePowerMW,
		CapacityMAh:        op.Battery.CapacityMAh,
		TEG:                electricalDTO(r.Reading.TEG),
		Converter:          electricalDTO(r.Reading.Converter),
		HarvestPowerMW:     r.HarvestPowerMW,
		HarvestedEnergyMWh: r.HarvestedEnergyMWh,
		Sustainable:        r.Sustainable,
	}
	if !math.IsInf(r.BatteryLifeHours, 0) {
		life := r.BatteryLifeHours
		dto.BatteryLifeHours = &life
	}
	b, err := json.Marshal(dto)
	if err != nil {
		// Non-finite harvest figures have no JSON form.
		c.cfg.Logger.Printf("mqtt report: %v", err)
		return
	}
	c.client.Publish(c.topic("report"), c.cfg.QoS, c.cfg.RetainReport, b)
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := strings.TrimRight(c.cfg.BaseTopic, "/") + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	err := c.apply(field, msg.Payload())
	metrics.ObserveCommand(transport, err)
	if err != nil {
		c.cfg.Logger.Printf("mqtt %s: %v", field, err)
	}
}

func (c *Controller) apply(field string, payload []byte) error {
	if field == "battery" {
		cfg, err := decodeValueStrict[energy.BatteryConfig](payload)
		if err != nil {
			return err
		}
		return c.svc.SetBattery(cfg)
	}

	p, err := bench.ParseParameter(field)
	if err != nil {
		return err
	}
	v, err := decodeValueStrict[float64](payload)
	if err != nil {
		return err
	}
	return c.svc.Set(p, v)
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
