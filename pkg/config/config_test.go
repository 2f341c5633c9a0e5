// pkg/config/config_test.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BoundaryWrap, cfg.World.Boundary)
	assert.Equal(t, 3300*time.Millisecond, cfg.Weapons.ShotLifetime.Duration)
	assert.Equal(t, 4800*time.Millisecond, cfg.Weapons.MissileLifetime.Duration)
	assert.Equal(t, 3300*time.Millisecond, cfg.Weapons.BombLifetime.Duration)
}

func TestWeaponsConfig_Costs(t *testing.T) {
	w := WeaponsConfig{BulletPower: 100, BombPower: 400}
	assert.InDelta(t, 10.0, w.ShotCost(), 1e-9)
	assert.InDelta(t, 20.0, w.MissileCost(), 1e-9)
	assert.InDelta(t, 140.0, w.BombCost(), 1e-9)
}

func TestValidate_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero_tick_budget", func(c *Config) { c.Timing.TickBudget.Duration = 0 }},
		{"negative_planets", func(c *Config) { c.Setup.Planets = -1 }},
		{"negative_asteroids", func(c *Config) { c.Setup.Asteroids = -3 }},
		{"negative_rewards", func(c *Config) { c.Setup.Rewards = -2 }},
		{"unknown_boundary", func(c *Config) { c.World.Boundary = "teleport" }},
		{"zero_width", func(c *Config) { c.World.Width = 0 }},
		{"zero_speed_cap", func(c *Config) { c.Vehicle.SpeedCap = 0 }},
		{"zero_angle_divisions", func(c *Config) { c.Vehicle.AngleDivisions = 0 }},
		{"inverted_reward_range", func(c *Config) { c.Bodies.RewardMin, c.Bodies.RewardMax = 500, 100 }},
		{"zero_agent_period", func(c *Config) { c.Timing.ComputerPeriod.Duration = 0 }},
		{"bomb_drag_above_one", func(c *Config) { c.Weapons.BombDrag = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestSaveAndLoad_AllFormats(t *testing.T) {
	for _, ext := range []string{".json", ".toml", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.World.Boundary = BoundaryBounce
			cfg.Setup.Asteroids = 7
			cfg.Timing.TickBudget = Duration{45 * time.Millisecond}

			path := filepath.Join(t.TempDir(), "orbitwar"+ext)
			require.NoError(t, SaveConfig(cfg, path))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, BoundaryBounce, loaded.World.Boundary)
			assert.Equal(t, 7, loaded.Setup.Asteroids)
			assert.Equal(t, 45*time.Millisecond, loaded.Timing.TickBudget.Duration)
			assert.Equal(t, cfg.Weapons.MissileDelay, loaded.Weapons.MissileDelay)
		})
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.toml")
	content := "[world]\nwidth = 1024.0\nboundary = \"bounce\"\n\n[timing]\ntick_budget = \"20ms\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1024.0, cfg.World.Width)
	assert.Equal(t, 600.0, cfg.World.Height, "untouched field keeps its default")
	assert.Equal(t, 20*time.Millisecond, cfg.Timing.TickBudget.Duration)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	ini := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(ini, []byte("x=1"), 0o644))
	_, err = LoadConfig(ini)
	assert.ErrorContains(t, err, "unsupported config format")

	badDuration := filepath.Join(dir, "dur.yaml")
	require.NoError(t, os.WriteFile(badDuration, []byte("timing:\n  tickBudget: soon\n"), 0o644))
	_, err = LoadConfig(badDuration)
	assert.Error(t, err)
}

func TestSaveConfig_Errors(t *testing.T) {
	assert.Error(t, SaveConfig(nil, filepath.Join(t.TempDir(), "x.json")))
	assert.Error(t, SaveConfig(DefaultConfig(), filepath.Join(t.TempDir(), "x.ini")))
	assert.Error(t, SaveConfig(DefaultConfig(), filepath.Join(t.TempDir(), "missing", "dir", "x.json")))
}
