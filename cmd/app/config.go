package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/thermobeat/internal/bench"
	"github.com/Agrid-Dev/thermobeat/internal/energy"
)

// EnvPrefix marks the environment variables read by LoadConfig.
const EnvPrefix = "THERMOBEAT_"

type Config struct {
	DeviceID       string               `koanf:"device_id"`
	Profile        ProfileConfig        `koanf:"profile"`
	Battery        BatteryConfig        `koanf:"battery"`
	OperatingPoint OperatingPointConfig `koanf:"operating_point"`
	Controllers    ControllersConfig    `koanf:"controllers"`
}

type ProfileConfig struct {
	OpenCircuitVoltagePerGradient  float64 `koanf:"ocv_per_gradient"` // mV/°C
	ShortCircuitCurrentPerGradient float64 `koanf:"scc_per_gradient"` // mA/°C
	ConverterVoltage               float64 `koanf:"converter_voltage"`
	ConverterEfficiency            float64 `koanf:"converter_efficiency"`
}

type BatteryConfig struct {
	CapacityMAh     float64 `koanf:"capacity_mah"`
	VoltageV        float64 `koanf:"voltage_v"`
	DegradationRate float64 `koanf:"degradation_rate"`
}

type OperatingPointConfig struct {
	Gradient      float64 `koanf:"gradient"`
	DurationHours float64 `koanf:"duration_hours"`
	DevicePowerMW float64 `koanf:"device_power_mw"`
}

type ControllersConfig struct {
	HTTP   HTTPConfig   `koanf:"http"`
	MQTT   MQTTConfig   `koanf:"mqtt"`
	Modbus ModbusConfig `koanf:"modbus"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BrokerURL       string        `koanf:"broker_url"`
	ClientID        string        `koanf:"client_id"`
	BaseTopic       string        `koanf:"base_topic"`
	QoS             byte          `koanf:"qos"`
	RetainReport    bool          `koanf:"retain_report"`
	PublishInterval time.Duration `koanf:"publish_interval"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	UnitID  byte   `koanf:"unit_id"`
}

// Defaults mirrors the reference hardware and a 336 mW load over two hours.
func Defaults() Config {
	p := energy.DefaultProfile()
	b := energy.DefaultBatteryConfig()
	return Config{
		DeviceID: "default",
		Profile: ProfileConfig{
			OpenCircuitVoltagePerGradient:  p.OpenCircuitVoltagePerGradient,
			ShortCircuitCurrentPerGradient: p.ShortCircuitCurrentPerGradient,
			ConverterVoltage:               p.ConverterOutputVoltage,
			ConverterEfficiency:            p.ConverterEfficiency,
		},
		Battery: BatteryConfig{
			CapacityMAh:     b.CapacityMAh,
			VoltageV:        b.VoltageV,
			DegradationRate: b.DegradationRate,
		},
		OperatingPoint: OperatingPointConfig{
			Gradient:      3,
			DurationHours: 2,
			DevicePowerMW: 336,
		},
		Controllers: ControllersConfig{
			HTTP: HTTPConfig{Enabled: true, Addr: ":8080"},
			MQTT: MQTTConfig{
				BrokerURL:       "tcp://localhost:1883",
				PublishInterval: time.Second,
			},
			Modbus: ModbusConfig{Addr: "127.0.0.1:1502", UnitID: 1},
		},
	}
}

// LoadConfig layers defaults, the optional file at path and THERMOBEAT_*
// environment variables, in that order. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return Config{}, err
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, EnvPrefix)), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// envKeyTransform maps an unprefixed variable name to a koanf key path:
// CONTROLLERS_HTTP_ADDR -> controllers.http.addr,
// OPERATING_POINT_DEVICE_POWER_MW -> operating_point.device_power_mw.
func envKeyTransform(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	if strings.HasPrefix(s, "controllers_") {
		parts := strings.SplitN(s, "_", 3)
		if len(parts) == 3 {
			return parts[0] + "." + parts[1] + "." + parts[2]
		}
		return s
	}

	for _, section := range []string{"operating_point", "profile", "battery"} {
		if rest, ok := strings.CutPrefix(s, section+"_"); ok && rest != "" {
			return section + "." + rest
		}
	}
	return s
}

// EnergyProfile returns the validated hardware profile.
func (c Config) EnergyProfile() (energy.Profile, error) {
	p := energy.Profile{
		OpenCircuitVoltagePerGradient:  c.Profile.OpenCircuitVoltagePerGradient,
		ShortCircuitCurrentPerGradient: c.Profile.ShortCircuitCurrentPerGradient,
		ConverterOutputVoltage:         c.Profile.ConverterVoltage,
		ConverterEfficiency:            c.Profile.ConverterEfficiency,
	}
	if err := p.Validate(); err != nil {
		return energy.Profile{}, err
	}
	return p, nil
}

// Operating returns the initial operating point. bench.New validates it.
func (c Config) Operating() bench.OperatingPoint {
	return bench.OperatingPoint{
		Gradient:      c.OperatingPoint.Gradient,
		DurationHours: c.OperatingPoint.DurationHours,
		DevicePowerMW: c.OperatingPoint.DevicePowerMW,
		Battery: energy.BatteryConfig{
			CapacityMAh:     c.Battery.CapacityMAh,
			VoltageV:        c.Battery.VoltageV,
			DegradationRate: c.Battery.DegradationRate,
		},
	}
}
