// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// BoundaryMode selects what happens to entities leaving the arena.
type BoundaryMode string

const (
	// BoundaryWrap teleports an entity to the opposite edge.
	BoundaryWrap BoundaryMode = "wrap"
	// BoundaryBounce reflects the velocity and clamps to the edge.
	BoundaryBounce BoundaryMode = "bounce"
)

// Config holds every tunable of a simulation. It is passed explicitly to the
// registry and to each entity constructor.
type Config struct {
	World   WorldConfig   `json:"world" toml:"world" yaml:"world"`
	Vehicle VehicleConfig `json:"vehicle" toml:"vehicle" yaml:"vehicle"`
	Weapons WeaponsConfig `json:"weapons" toml:"weapons" yaml:"weapons"`
	Bodies  BodiesConfig  `json:"bodies" toml:"bodies" yaml:"bodies"`
	Setup   SetupConfig   `json:"setup" toml:"setup" yaml:"setup"`
	Timing  TimingConfig  `json:"timing" toml:"timing" yaml:"timing"`
	AI      AIConfig      `json:"ai" toml:"ai" yaml:"ai"`
	Logging LoggingConfig `json:"logging" toml:"logging" yaml:"logging"`
}

// WorldConfig describes the arena.
type WorldConfig struct {
	Width    float64      `json:"width" toml:"width" yaml:"width"`
	Height   float64      `json:"height" toml:"height" yaml:"height"`
	Boundary BoundaryMode `json:"boundary" toml:"boundary" yaml:"boundary"`
}

// VehicleConfig contains ship handling and energy settings.
type VehicleConfig struct {
	MaxEnergy        float64  `json:"maxEnergy" toml:"max_energy" yaml:"maxEnergy"`
	Radius           float64  `json:"radius" toml:"radius" yaml:"radius"`
	Acceleration     float64  `json:"acceleration" toml:"acceleration" yaml:"acceleration"`
	SpeedCap         float64  `json:"speedCap" toml:"speed_cap" yaml:"speedCap"`
	AngleDivisions   int      `json:"angleDivisions" toml:"angle_divisions" yaml:"angleDivisions"`
	RechargeInterval Duration `json:"rechargeInterval" toml:"recharge_interval" yaml:"rechargeInterval"`
	RechargeAmount   float64  `json:"rechargeAmount" toml:"recharge_amount" yaml:"rechargeAmount"`
}

// WeaponsConfig contains per-weapon damage, cadence and ballistics.
type WeaponsConfig struct {
	BulletPower       float64  `json:"bulletPower" toml:"bullet_power" yaml:"bulletPower"`
	BulletDelay       Duration `json:"bulletDelay" toml:"bullet_delay" yaml:"bulletDelay"`
	ShotLifetime      Duration `json:"shotLifetime" toml:"shot_lifetime" yaml:"shotLifetime"`
	MissilePower      float64  `json:"missilePower" toml:"missile_power" yaml:"missilePower"`
	MissileDelay      Duration `json:"missileDelay" toml:"missile_delay" yaml:"missileDelay"`
	MissileLifetime   Duration `json:"missileLifetime" toml:"missile_lifetime" yaml:"missileLifetime"`
	BombPower         float64  `json:"bombPower" toml:"bomb_power" yaml:"bombPower"`
	BombDelay         Duration `json:"bombDelay" toml:"bomb_delay" yaml:"bombDelay"`
	BombLifetime      Duration `json:"bombLifetime" toml:"bomb_lifetime" yaml:"bombLifetime"`
	Speed             float64  `json:"speed" toml:"speed" yaml:"speed"`
	MissileSpeed      float64  `json:"missileSpeed" toml:"missile_speed" yaml:"missileSpeed"`
	MissileTurnRate   float64  `json:"missileTurnRate" toml:"missile_turn_rate" yaml:"missileTurnRate"`
	BombDrag          float64  `json:"bombDrag" toml:"bomb_drag" yaml:"bombDrag"`
	BombTriggerRadius float64  `json:"bombTriggerRadius" toml:"bomb_trigger_radius" yaml:"bombTriggerRadius"`
	ProjectileRadius  float64  `json:"projectileRadius" toml:"projectile_radius" yaml:"projectileRadius"`
}

// ShotCost is the energy a vehicle pays to fire a shot.
func (w WeaponsConfig) ShotCost() float64 { return 0.10 * w.BulletPower }

// MissileCost is the energy a vehicle pays to fire a missile.
func (w WeaponsConfig) MissileCost() float64 { return 0.20 * w.BulletPower }

// BombCost is the energy a vehicle pays to drop a proximity bomb.
func (w WeaponsConfig) BombCost() float64 { return 0.35 * w.BombPower }

// BodiesConfig contains the physical properties of the non-vehicle bodies.
type BodiesConfig struct {
	PlanetMass       float64 `json:"planetMass" toml:"planet_mass" yaml:"planetMass"`
	PlanetRadius     float64 `json:"planetRadius" toml:"planet_radius" yaml:"planetRadius"`
	SpinnerMass      float64 `json:"spinnerMass" toml:"spinner_mass" yaml:"spinnerMass"`
	SpinnerRadius    float64 `json:"spinnerRadius" toml:"spinner_radius" yaml:"spinnerRadius"`
	AsteroidRadius   float64 `json:"asteroidRadius" toml:"asteroid_radius" yaml:"asteroidRadius"`
	AsteroidMinSpeed float64 `json:"asteroidMinSpeed" toml:"asteroid_min_speed" yaml:"asteroidMinSpeed"`
	AsteroidMaxSpeed float64 `json:"asteroidMaxSpeed" toml:"asteroid_max_speed" yaml:"asteroidMaxSpeed"`
	AsteroidEnergy   float64 `json:"asteroidEnergy" toml:"asteroid_energy" yaml:"asteroidEnergy"`
	AsteroidMaxSpin  float64 `json:"asteroidMaxSpin" toml:"asteroid_max_spin" yaml:"asteroidMaxSpin"`
	RewardRadius     float64 `json:"rewardRadius" toml:"reward_radius" yaml:"rewardRadius"`
	RewardMin        float64 `json:"rewardMin" toml:"reward_min" yaml:"rewardMin"`
	RewardMax        float64 `json:"rewardMax" toml:"reward_max" yaml:"rewardMax"`
}

// SetupConfig holds how many of each body the environment set-up places.
type SetupConfig struct {
	Planets   int `json:"planets" toml:"planets" yaml:"planets"`
	Spinners  int `json:"spinners" toml:"spinners" yaml:"spinners"`
	Asteroids int `json:"asteroids" toml:"asteroids" yaml:"asteroids"`
	Rewards   int `json:"rewards" toml:"rewards" yaml:"rewards"`
}

// TimingConfig holds the cadence of the tick loop and the agent loops.
type TimingConfig struct {
	TickBudget     Duration `json:"tickBudget" toml:"tick_budget" yaml:"tickBudget"`
	HumanPeriod    Duration `json:"humanPeriod" toml:"human_period" yaml:"humanPeriod"`
	ComputerPeriod Duration `json:"computerPeriod" toml:"computer_period" yaml:"computerPeriod"`
}

// AIConfig tunes the built-in computer policies.
type AIConfig struct {
	ThreatRadius    float64  `json:"threatRadius" toml:"threat_radius" yaml:"threatRadius"`
	AttackRange     float64  `json:"attackRange" toml:"attack_range" yaml:"attackRange"`
	EnergyReserve   float64  `json:"energyReserve" toml:"energy_reserve" yaml:"energyReserve"`
	BreakerFailures uint32   `json:"breakerFailures" toml:"breaker_failures" yaml:"breakerFailures"`
	BreakerCooldown Duration `json:"breakerCooldown" toml:"breaker_cooldown" yaml:"breakerCooldown"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `json:"level" toml:"level" yaml:"level"`
	Format string `json:"format" toml:"format" yaml:"format"` // "json" or "text"
}

// DefaultConfig returns a default simulation configuration
func DefaultConfig() *Config {
	return &Config{
		World: WorldConfig{
			Width:    800,
			Height:   600,
			Boundary: BoundaryWrap,
		},
		Vehicle: VehicleConfig{
			MaxEnergy:        1000,
			Radius:           12,
			Acceleration:     0.35,
			SpeedCap:         9,
			AngleDivisions:   32,
			RechargeInterval: Duration{time.Second},
			RechargeAmount:   20,
		},
		Weapons: WeaponsConfig{
			BulletPower:       100,
			BulletDelay:       Duration{250 * time.Millisecond},
			ShotLifetime:      Duration{3300 * time.Millisecond},
			MissilePower:      300,
			MissileDelay:      Duration{900 * time.Millisecond},
			MissileLifetime:   Duration{4800 * time.Millisecond},
			BombPower:         500,
			BombDelay:         Duration{1500 * time.Millisecond},
			BombLifetime:      Duration{3300 * time.Millisecond},
			Speed:             7,
			MissileSpeed:      5,
			MissileTurnRate:   0.6,
			BombDrag:          0.96,
			BombTriggerRadius: 30,
			ProjectileRadius:  3,
		},
		Bodies: BodiesConfig{
			PlanetMass:       400,
			PlanetRadius:     30,
			SpinnerMass:      300,
			SpinnerRadius:    20,
			AsteroidRadius:   14,
			AsteroidMinSpeed: 0.5,
			AsteroidMaxSpeed: 2,
			AsteroidEnergy:   300,
			AsteroidMaxSpin:  0.1,
			RewardRadius:     10,
			RewardMin:        100,
			RewardMax:        400,
		},
		Setup: SetupConfig{
			Planets:   2,
			Spinners:  1,
			Asteroids: 3,
			Rewards:   2,
		},
		Timing: TimingConfig{
			TickBudget:     Duration{30 * time.Millisecond},
			HumanPeriod:    Duration{50 * time.Millisecond},
			ComputerPeriod: Duration{120 * time.Millisecond},
		},
		AI: AIConfig{
			ThreatRadius:    120,
			AttackRange:     300,
			EnergyReserve:   350,
			BreakerFailures: 3,
			BreakerCooldown: Duration{5 * time.Second},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration and returns every problem found, joined,
// each wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.World.Width > 0, "world width must be positive, got %v", c.World.Width)
	check(c.World.Height > 0, "world height must be positive, got %v", c.World.Height)
	check(c.World.Boundary == BoundaryWrap || c.World.Boundary == BoundaryBounce,
		"unknown boundary mode %q", c.World.Boundary)

	check(c.Vehicle.MaxEnergy > 0, "max energy must be positive, got %v", c.Vehicle.MaxEnergy)
	check(c.Vehicle.Radius >= 0, "vehicle radius must not be negative, got %v", c.Vehicle.Radius)
	check(c.Vehicle.Acceleration >= 0, "acceleration must not be negative, got %v", c.Vehicle.Acceleration)
	check(c.Vehicle.SpeedCap > 0, "speed cap must be positive, got %v", c.Vehicle.SpeedCap)
	check(c.Vehicle.AngleDivisions > 0, "angle divisions must be positive, got %d", c.Vehicle.AngleDivisions)
	check(c.Vehicle.RechargeInterval.Duration > 0, "recharge interval must be positive, got %v", c.Vehicle.RechargeInterval)
	check(c.Vehicle.RechargeAmount >= 0, "recharge amount must not be negative, got %v", c.Vehicle.RechargeAmount)

	w := c.Weapons
	check(w.BulletPower >= 0 && w.MissilePower >= 0 && w.BombPower >= 0, "weapon power must not be negative")
	check(w.BulletDelay.Duration >= 0 && w.MissileDelay.Duration >= 0 && w.BombDelay.Duration >= 0,
		"refire delays must not be negative")
	check(w.ShotLifetime.Duration > 0 && w.MissileLifetime.Duration > 0 && w.BombLifetime.Duration > 0,
		"weapon lifetimes must be positive")
	check(w.ProjectileRadius >= 0 && w.BombTriggerRadius >= 0, "weapon radii must not be negative")
	check(w.BombDrag > 0 && w.BombDrag <= 1, "bomb drag must be in (0, 1], got %v", w.BombDrag)

	b := c.Bodies
	check(b.PlanetRadius >= 0 && b.SpinnerRadius >= 0 && b.AsteroidRadius >= 0 && b.RewardRadius >= 0,
		"body radii must not be negative")
	check(b.AsteroidMinSpeed >= 0 && b.AsteroidMinSpeed <= b.AsteroidMaxSpeed,
		"asteroid speed range [%v, %v] is invalid", b.AsteroidMinSpeed, b.AsteroidMaxSpeed)
	check(b.AsteroidEnergy > 0, "asteroid energy must be positive, got %v", b.AsteroidEnergy)
	check(b.RewardMin >= 0 && b.RewardMin <= b.RewardMax,
		"reward range [%v, %v] is invalid", b.RewardMin, b.RewardMax)

	s := c.Setup
	check(s.Planets >= 0, "planet count must not be negative, got %d", s.Planets)
	check(s.Spinners >= 0, "spinner count must not be negative, got %d", s.Spinners)
	check(s.Asteroids >= 0, "asteroid count must not be negative, got %d", s.Asteroids)
	check(s.Rewards >= 0, "reward count must not be negative, got %d", s.Rewards)

	check(c.Timing.TickBudget.Duration > 0, "tick budget must be positive, got %v", c.Timing.TickBudget)
	check(c.Timing.HumanPeriod.Duration > 0, "human period must be positive, got %v", c.Timing.HumanPeriod)
	check(c.Timing.ComputerPeriod.Duration > 0, "computer period must be positive, got %v", c.Timing.ComputerPeriod)

	check(c.AI.ThreatRadius >= 0 && c.AI.AttackRange >= 0, "AI ranges must not be negative")

	return errors.Join(errs...)
}

// LoadConfig loads a configuration from a file. The format is chosen by
// extension: .json, .toml, .yaml or .yml. Fields missing from the file keep
// their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig saves a configuration to a file in the format implied by its
// extension.
func SaveConfig(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".toml":
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(cfg)
		data = []byte(sb.String())
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
