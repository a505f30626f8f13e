package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/base-14/examples/go/parking-levels/internal/parking"
)

const envPrefix = "PARKING_"

type Config struct {
	Mode        string          `json:"mode"`
	Port        string          `json:"port"`
	Environment string          `json:"environment"`
	Telemetry   TelemetryConfig `json:"telemetry"`
	Levels      []LevelConfig   `json:"levels"`
	Rates       map[string]int  `json:"rates"`
	// DefaultRate prices types missing from Rates. Nil means parking.DefaultRate.
	DefaultRate *int `json:"default_rate"`
}

type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"service_name"`
	Endpoint    string `json:"endpoint"`
}

// LevelConfig is one floor of the layout. Slot entries are built in order.
type LevelConfig struct {
	ID    string       `json:"id"`
	Slots []SlotConfig `json:"slots"`
}

type SlotConfig struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Load reads path (YAML or JSON, optional) then applies PARKING_ environment
// overrides, where "__" separates nested keys: PARKING_TELEMETRY__ENDPOINT.
// The result is defaulted but not validated; call Validate after applying
// any command-line overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	cfg := Config{
		Telemetry: TelemetryConfig{Enabled: true},
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}

	cfg.applyOTelEnv()
	cfg.SetDefaults()
	return &cfg, nil
}

// applyOTelEnv honours the standard OpenTelemetry variables.
func (c *Config) applyOTelEnv() {
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("OTEL_SDK_DISABLED"); v != "" {
		if disabled, err := strconv.ParseBool(v); err == nil && disabled {
			c.Telemetry.Enabled = false
		}
	}
}

// SetDefaults fills unset fields, including the reference two-level layout.
func (c *Config) SetDefaults() {
	if c.Mode == "" {
		c.Mode = "cli"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = parking.DefaultServiceName
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = parking.DefaultOTLPEndpoint
	}
	if len(c.Levels) == 0 {
		c.Levels = DefaultLevels()
	}
	if c.DefaultRate == nil {
		rate := parking.DefaultRate
		c.DefaultRate = &rate
	}
}

func DefaultLevels() []LevelConfig {
	return []LevelConfig{
		{ID: "L1", Slots: []SlotConfig{{"Car", 3}, {"Bike", 2}, {"Truck", 1}}},
		{ID: "L2", Slots: []SlotConfig{{"Car", 2}, {"Bike", 3}, {"Truck", 1}}},
	}
}

func (c *Config) Validate() error {
	switch c.Mode {
	case "cli", "server", "both":
	default:
		return fmt.Errorf("invalid mode %q: must be cli, server, or both", c.Mode)
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if _, err := c.LevelConfigs(); err != nil {
		return err
	}
	if _, err := c.RateTable(); err != nil {
		return err
	}
	if c.DefaultRate != nil && *c.DefaultRate < 0 {
		return fmt.Errorf("invalid default_rate %d", *c.DefaultRate)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LevelConfigs converts the layout to the parking package's types.
func (c *Config) LevelConfigs() ([]parking.LevelConfig, error) {
	levels := make([]parking.LevelConfig, 0, len(c.Levels))
	for _, l := range c.Levels {
		level := parking.LevelConfig{ID: l.ID}
		for _, s := range l.Slots {
			t, err := parking.ParseVehicleType(s.Type)
			if err != nil {
				return nil, fmt.Errorf("level %s: %w", l.ID, err)
			}
			if s.Count < 0 {
				return nil, fmt.Errorf("level %s: negative %s count %d", l.ID, t, s.Count)
			}
			level.Slots = append(level.Slots, parking.SlotConfig{Type: t, Count: s.Count})
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// RateTable overlays the configured rates on the default table.
func (c *Config) RateTable() (parking.RateTable, error) {
	rates := parking.DefaultRates()
	for name, rate := range c.Rates {
		t, err := parking.ParseVehicleType(name)
		if err != nil {
			return nil, fmt.Errorf("rates: %w", err)
		}
		if rate < 0 {
			return nil, fmt.Errorf("rates: negative rate for %s", t)
		}
		rates[t] = rate
	}
	return rates, nil
}

// LotOptions builds the parking lot options for the configured rates.
func (c *Config) LotOptions() ([]parking.Option, error) {
	rates, err := c.RateTable()
	if err != nil {
		return nil, err
	}
	opts := []parking.Option{parking.WithRates(rates)}
	if c.DefaultRate != nil {
		opts = append(opts, parking.WithDefaultRate(*c.DefaultRate))
	}
	return opts, nil
}
