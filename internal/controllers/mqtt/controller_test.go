package mqttctrl

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Agrid-Dev/thermobeat/internal/bench"
	"github.com/Agrid-Dev/thermobeat/internal/energy"
	"github.com/Agrid-Dev/thermobeat/internal/testutil"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeToken struct {
	err error
}

func (t fakeToken) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

func (t fakeToken) Wait() bool                       { return true }
func (t fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t fakeToken) Error() error                     { return t.err }

type publishCall struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

type fakeClient struct {
	publishes []publishCall
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() mqtt.Token    { return fakeToken{} }
func (c *fakeClient) Disconnect(_ uint)      {}
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = append([]byte(nil), v...)
	case string:
		b = []byte(v)
	default:
		tmp, _ := json.Marshal(v)
		b = tmp
	}
	c.publishes = append(c.publishes, publishCall{
		topic: topic, qos: qos, retain: retained, payload: b,
	})
	return fakeToken{}
}
func (c *fakeClient) Subscribe(_ string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) Unsubscribe(_ ...string) mqtt.Token       { return fakeToken{} }
func (c *fakeClient) AddRoute(_ string, _ mqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader  { return mqtt.ClientOptionsReader{} }

// ---- tests ----

func newController(t *testing.T, cfg Config) (*Controller, *testutil.FakeBenchService, *fakeClient) {
	t.Helper()
	svc := testutil.NewFakeBenchService()
	if cfg.DeviceID == "" {
		cfg.DeviceID = "bench1"
	}
	c, err := New(svc, cfg)
	if err != nil {
		t.Fatal(err)
	}
	fc := &fakeClient{}
	c.client = fc
	return c, svc, fc
}

func TestNewDefaults(t *testing.T) {
	c, _, _ := newController(t, Config{})

	if c.cfg.BrokerURL != "tcp://localhost:1883" {
		t.Fatalf("expected default BrokerURL, got %q", c.cfg.BrokerURL)
	}
	if c.cfg.BaseTopic != "thermobeat/bench1" {
		t.Fatalf("expected default BaseTopic, got %q", c.cfg.BaseTopic)
	}
	if c.cfg.ClientID != "thermobeat-bench1" {
		t.Fatalf("expected default ClientID, got %q", c.cfg.ClientID)
	}
	if c.cfg.PublishInterval != 1*time.Second {
		t.Fatalf("expected default PublishInterval, got %v", c.cfg.PublishInterval)
	}
	if c.cfg.Logger == nil {
		t.Fatal("expected a discard logger")
	}
}

func TestNewValidation(t *testing.T) {
	svc := testutil.NewFakeBenchService()

	if _, err := New(svc, Config{}); err == nil {
		t.Fatal("expected error when DeviceID missing")
	}
	if _, err := New(svc, Config{DeviceID: "x", QoS: 2}); err == nil {
		t.Fatal("expected error when QoS > 1")
	}
}

func TestTopicJoin(t *testing.T) {
	c, _, _ := newController(t, Config{BaseTopic: "lab/bench1/"})
	if got := c.topic("report"); got != "lab/bench1/report" {
		t.Fatalf("expected topic without double slashes, got %q", got)
	}
}

func TestDecodeValueStrict(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		v, err := decodeValueStrict[float64]([]byte(`{"value": 12.5}`))
		if err != nil {
			t.Fatal(err)
		}
		if v != 12.5 {
			t.Fatalf("expected 12.5, got %v", v)
		}
	})

	t.Run("missing value", func(t *testing.T) {
		if _, err := decodeValueStrict[float64]([]byte(`{}`)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		if _, err := decodeValueStrict[float64]([]byte(`{"value":3,"extra":1}`)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := decodeValueStrict[float64]([]byte(`{"value":`)); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestOnMessage_IgnoresWrongPrefix(t *testing.T) {
	c, svc, _ := newController(t, Config{})

	c.onMessage(nil, fakeMessage{
		topic:   "otherprefix/set/gradient",
		payload: []byte(`{"value":4}`),
	})

	if svc.SetCalled {
		t.Fatal("expected Set not called")
	}
}

func TestOnMessage_Parameters(t *testing.T) {
	tests := []struct {
		field string
		want  bench.Parameter
		value float64
	}{
		{"gradient", bench.ParamGradient, 4.5},
		{"duration", bench.ParamDuration, 12},
		{"device_power", bench.ParamDevicePower, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			c, svc, _ := newController(t, Config{})
			payload, _ := json.Marshal(map[string]float64{"value": tt.value})

			c.onMessage(nil, fakeMessage{
				topic:   "thermobeat/bench1/set/" + tt.field,
				payload: payload,
			})

			if !svc.SetCalled || svc.SetParam != tt.want || svc.SetArg != tt.value {
				t.Fatalf("expected Set(%v, %v), got called=%v param=%v arg=%v",
					tt.want, tt.value, svc.SetCalled, svc.SetParam, svc.SetArg)
			}
		})
	}
}

func TestOnMessage_UnknownField_DoesNotCallService(t *testing.T) {
	var buf bytes.Buffer
	c, svc, _ := newController(t, Config{Logger: log.New(&buf, "", 0)})

	c.onMessage(nil, fakeMessage{
		topic:   "thermobeat/bench1/set/ambient",
		payload: []byte(`{"value":25}`),
	})

	if svc.SetCalled {
		t.Fatal("expected Set not called")
	}
	if !strings.Contains(buf.String(), "ambient") {
		t.Fatalf("expected rejected command to be logged, got %q", buf.String())
	}
}

func TestOnMessage_Battery(t *testing.T) {
	c, svc, _ := newController(t, Config{})

	c.onMessage(nil, fakeMessage{
		topic:   "thermobeat/bench1/set/battery",
		payload: []byte(`{"value":{"capacity_mah":800,"voltage_v":3.6,"degradation_rate":0.01}}`),
	})

	want := energy.BatteryConfig{CapacityMAh: 800, VoltageV: 3.6, DegradationRate: 0.01}
	if !svc.SetBatteryCalled || svc.SetBatteryArg != want {
		t.Fatalf("expected SetBattery(%+v), got called=%v arg=%+v", want, svc.SetBatteryCalled, svc.SetBatteryArg)
	}
}

func TestOnMessage_ServiceError_IsLogged(t *testing.T) {
	var buf bytes.Buffer
	c, svc, _ := newController(t, Config{Logger: log.New(&buf, "", 0)})
	svc.SetErr = errors.New("boom")

	c.onMessage(nil, fakeMessage{
		topic:   "thermobeat/bench1/set/gradient",
		payload: []byte(`{"value":-1}`),
	})

	if !svc.SetCalled {
		t.Fatal("expected Set called")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected service error to be logged, got %q", buf.String())
	}
}

func TestPublishReport_PublishesJSON(t *testing.T) {
	c, _, fc := newController(t, Config{QoS: 1, RetainReport: true})

	c.publishReport()

	if len(fc.publishes) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(fc.publishes))
	}

	p := fc.publishes[0]
	if p.topic != "thermobeat/bench1/report" {
		t.Fatalf("expected report topic, got %q", p.topic)
	}
	if p.qos != 1 || p.retain != true {
		t.Fatalf("expected qos=1 retain=true, got qos=%d retain=%v", p.qos, p.retain)
	}

	var got map[string]any
	if err := json.Unmarshal(p.payload, &got); err != nil {
		t.Fatalf("invalid published json: %v payload=%s", err, string(p.payload))
	}
	if got["gradient"] != 3.0 {
		t.Fatalf("expected gradient=3, got %v", got["gradient"])
	}
	teg, ok := got["teg"].(map[string]any)
	if !ok || teg["voltage_mv"] == nil {
		t.Fatalf("expected teg reading, got %v", got["teg"])
	}
	if got["battery_life_hours"] == nil {
		t.Fatal("expected finite battery life for a draining load")
	}
}

func TestPublishReport_SustainableLifeIsNull(t *testing.T) {
	c, svc, fc := newController(t, Config{})
	svc.Op.DevicePowerMW = 0

	c.publishReport()

	var got map[string]any
	if err := json.Unmarshal(fc.publishes[0].payload, &got); err != nil {
		t.Fatal(err)
	}
	if got["sustainable"] != true || got["battery_life_hours"] != nil {
		t.Fatalf("expected sustainable with null life, got %v", got)
	}
}

func TestPublishReport_UnencodableReportIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	c, svc, fc := newController(t, Config{Logger: log.New(&buf, "", 0)})
	svc.Op.Gradient = 1e200 // harvest power overflows to +Inf

	c.publishReport()

	if len(fc.publishes) != 0 {
		t.Fatalf("expected no publish, got %d", len(fc.publishes))
	}
	if !strings.Contains(buf.String(), "mqtt report") {
		t.Fatalf("expected marshal error to be logged, got %q", buf.String())
	}
}
