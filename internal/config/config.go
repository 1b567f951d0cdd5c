// Package config loads the thermostat daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for configurations the controller cannot run.
var ErrInvalid = errors.New("invalid config")

// Config represents the daemon configuration.
type Config struct {
	Timing   TimingConfig  `yaml:"timing"`
	Control  ControlConfig `yaml:"control"`
	GPIO     GPIOConfig    `yaml:"gpio"`
	Sensor   SensorConfig  `yaml:"sensor"`
	Console  ConsoleConfig `yaml:"console"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
	HTTP     HTTPConfig    `yaml:"http"`
	History  HistoryConfig `yaml:"history"`
	LogLevel string        `yaml:"log_level"`
}

// TimingConfig holds the base tick and the three task periods.
type TimingConfig struct {
	Base        time.Duration `yaml:"base"`
	Setpoint    time.Duration `yaml:"setpoint"`
	Temperature time.Duration `yaml:"temperature"`
	Report      time.Duration `yaml:"report"`
}

// ControlConfig holds the controller's power-on values.
type ControlConfig struct {
	InitialTemperature int `yaml:"initial_temperature"`
	InitialSetpoint    int `yaml:"initial_setpoint"`
}

// GPIOConfig names the chip and line offsets. DecreasePin < 0 means the
// board has a single button.
type GPIOConfig struct {
	Chip         string `yaml:"chip"`
	IncreasePin  int    `yaml:"increase_pin"`
	DecreasePin  int    `yaml:"decrease_pin"`
	LEDPin       int    `yaml:"led_pin"`
	LEDActiveLow bool   `yaml:"led_active_low"`
}

// SensorConfig names the I2C bus device and the probe candidates.
type SensorConfig struct {
	Bus        string            `yaml:"bus"`
	Candidates []SensorCandidate `yaml:"candidates"`
}

// SensorCandidate is one address/register pair tried during autodetection.
type SensorCandidate struct {
	Address  uint16 `yaml:"address"`
	Register byte   `yaml:"register"`
	ID       string `yaml:"id"`
}

// ConsoleConfig selects the serial port for status records. An empty port
// writes to stdout.
type ConsoleConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// MQTTConfig configures the optional broker connection. An empty broker
// disables MQTT.
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	ClientID   string `yaml:"client_id"`
	BufferSize int    `yaml:"buffer_size"`
}

// HTTPConfig configures the optional status server. An empty address
// disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// HistoryConfig configures the optional record store. An empty path
// disables it; MaxRows 0 keeps every row.
type HistoryConfig struct {
	Path    string `yaml:"path"`
	MaxRows int    `yaml:"max_rows"`
}

// Default returns the configuration matching the reference board.
func Default() *Config {
	return &Config{
		Timing: TimingConfig{
			Base:        100 * time.Millisecond,
			Setpoint:    200 * time.Millisecond,
			Temperature: 500 * time.Millisecond,
			Report:      1000 * time.Millisecond,
		},
		Control: ControlConfig{
			InitialTemperature: 25,
			InitialSetpoint:    22,
		},
		GPIO: GPIOConfig{
			Chip:        "gpiochip0",
			IncreasePin: 17,
			DecreasePin: 27,
			LEDPin:      22,
		},
		Sensor: SensorConfig{
			Bus: "/dev/i2c-1",
			Candidates: []SensorCandidate{
				{Address: 0x48, Register: 0x00, ID: "11X"},
				{Address: 0x49, Register: 0x00, ID: "116"},
				{Address: 0x41, Register: 0x01, ID: "006"},
			},
		},
		Console: ConsoleConfig{
			Port:     "",
			BaudRate: 115200,
		},
		MQTT: MQTTConfig{
			Broker:     "",
			ClientID:   "thermostat",
			BufferSize: 100,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		History: HistoryConfig{
			Path:    "",
			MaxRows: 86400,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that every task period is a positive exact multiple of
// the base tick.
func (c *Config) Validate() error {
	base := c.Timing.Base
	if base <= 0 {
		return fmt.Errorf("%w: base period %v must be positive", ErrInvalid, base)
	}
	periods := []struct {
		name string
		d    time.Duration
	}{
		{"setpoint", c.Timing.Setpoint},
		{"temperature", c.Timing.Temperature},
		{"report", c.Timing.Report},
	}
	for _, p := range periods {
		if p.d <= 0 || p.d%base != 0 {
			return fmt.Errorf("%w: %s period %v is not a multiple of base %v", ErrInvalid, p.name, p.d, base)
		}
	}
	if len(c.Sensor.Candidates) == 0 {
		return fmt.Errorf("%w: no sensor candidates", ErrInvalid)
	}
	if c.GPIO.IncreasePin < 0 {
		return fmt.Errorf("%w: increase pin %d", ErrInvalid, c.GPIO.IncreasePin)
	}
	return nil
}

// SingleButton reports whether both setpoint directions share one input.
func (g GPIOConfig) SingleButton() bool {
	return g.DecreasePin < 0 || g.DecreasePin == g.IncreasePin
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Timing.Base == 0 {
		c.Timing.Base = def.Timing.Base
	}
	if c.Timing.Setpoint == 0 {
		c.Timing.Setpoint = def.Timing.Setpoint
	}
	if c.Timing.Temperature == 0 {
		c.Timing.Temperature = def.Timing.Temperature
	}
	if c.Timing.Report == 0 {
		c.Timing.Report = def.Timing.Report
	}

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}

	if c.Sensor.Bus == "" {
		c.Sensor.Bus = def.Sensor.Bus
	}
	if len(c.Sensor.Candidates) == 0 {
		c.Sensor.Candidates = def.Sensor.Candidates
	}

	if c.Console.BaudRate == 0 {
		c.Console.BaudRate = def.Console.BaudRate
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = def.MQTT.BufferSize
	}

	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}
