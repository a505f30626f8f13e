package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/base-14/examples/go/parking-levels/internal/parking"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "cli", cfg.Mode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, parking.DefaultServiceName, cfg.Telemetry.ServiceName)
	assert.Equal(t, parking.DefaultOTLPEndpoint, cfg.Telemetry.Endpoint)
	assert.Equal(t, DefaultLevels(), cfg.Levels)

	levels, err := cfg.LevelConfigs()
	require.NoError(t, err)
	assert.Equal(t, []parking.LevelConfig{
		{ID: "L1", Slots: []parking.SlotConfig{{Type: parking.Car, Count: 3}, {Type: parking.Bike, Count: 2}, {Type: parking.Truck, Count: 1}}},
		{ID: "L2", Slots: []parking.SlotConfig{{Type: parking.Car, Count: 2}, {Type: parking.Bike, Count: 3}, {Type: parking.Truck, Count: 1}}},
	}, levels)

	rates, err := cfg.RateTable()
	require.NoError(t, err)
	assert.Equal(t, parking.DefaultRates(), rates)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "parking.yaml", `
mode: server
port: "9090"
environment: production
telemetry:
  enabled: false
  service_name: garage
levels:
  - id: G
    slots:
      - type: truck
        count: 2
      - type: car
        count: 4
rates:
  car: 25
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "garage", cfg.Telemetry.ServiceName)
	assert.Equal(t, parking.DefaultOTLPEndpoint, cfg.Telemetry.Endpoint)

	levels, err := cfg.LevelConfigs()
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, []parking.SlotConfig{{Type: parking.Truck, Count: 2}, {Type: parking.Car, Count: 4}}, levels[0].Slots)

	rates, err := cfg.RateTable()
	require.NoError(t, err)
	assert.Equal(t, 25, rates.Rate(parking.Car))
	assert.Equal(t, 10, rates.Rate(parking.Bike))
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "parking.json", `{"mode": "both", "levels": [{"id": "A", "slots": [{"type": "Bike", "count": 1}]}]}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "both", cfg.Mode)
	assert.Equal(t, []LevelConfig{{ID: "A", Slots: []SlotConfig{{"Bike", 1}}}}, cfg.Levels)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PARKING_PORT", "7070")
	t.Setenv("PARKING_MODE", "server")
	t.Setenv("PARKING_TELEMETRY__ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_SERVICE_NAME", "from-otel-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, "from-otel-env", cfg.Telemetry.ServiceName)
}

func TestLoadOTelSDKDisabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	_, err := Load(writeFile(t, "parking.toml", `mode = "cli"`))
	assert.Error(t, err)
}

func TestValidateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad mode", "bad.yaml", "mode: daemon\n"},
		{"bad port", "bad.yaml", "port: \"http\"\n"},
		{"unknown vehicle type", "bad.yaml", "levels:\n  - id: L1\n    slots:\n      - type: bus\n        count: 1\n"},
		{"negative count", "bad.yaml", "levels:\n  - id: L1\n    slots:\n      - type: car\n        count: -2\n"},
		{"unknown rate type", "bad.yaml", "rates:\n  van: 12\n"},
		{"negative rate", "bad.yaml", "rates:\n  car: -1\n"},
		{"negative default rate", "bad.yaml", "default_rate: -5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOverridesApplyBeforeValidate(t *testing.T) {
	cfg, err := Load(writeFile(t, "parking.yaml", "mode: daemon\nport: \"http\"\n"))
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.Mode = "server"
	cfg.Port = "9000"
	assert.NoError(t, cfg.Validate())
}

func TestLoadDefaultRate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg.DefaultRate)
	assert.Equal(t, parking.DefaultRate, *cfg.DefaultRate)

	cfg, err = Load(writeFile(t, "parking.yaml", "default_rate: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.DefaultRate)
	assert.Equal(t, 0, *cfg.DefaultRate)

	t.Setenv("PARKING_DEFAULT_RATE", "40")
	cfg, err = Load(writeFile(t, "parking.json", `{"default_rate": 25}`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 40, *cfg.DefaultRate)
}

func TestLotOptionsApplyDefaultRate(t *testing.T) {
	cfg, err := Load(writeFile(t, "parking.yaml", "default_rate: 50\nrates:\n  car: 25\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	levels, err := cfg.LevelConfigs()
	require.NoError(t, err)
	opts, err := cfg.LotOptions()
	require.NoError(t, err)

	pl, err := parking.NewParkingLot(levels, opts...)
	require.NoError(t, err)
	assert.Equal(t, 25, pl.Rate(parking.Car))
	assert.Equal(t, 10, pl.Rate(parking.Bike))

	// every known type has a table entry, so the fallback only shows on a table without one
	pl, err = parking.NewParkingLot(levels, append(opts, parking.WithRates(parking.RateTable{}))...)
	require.NoError(t, err)
	assert.Equal(t, 50, pl.Rate(parking.Truck))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
