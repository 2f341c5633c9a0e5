package agent

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// ErrUnknownPolicy is returned for a policy name that is not recognised.
var ErrUnknownPolicy = errors.New("unknown policy")

// PolicyKind names a computer policy.
type PolicyKind string

const (
	PolicyHunter PolicyKind = "hunter"
	PolicyEvader PolicyKind = "evader"
	PolicyTurret PolicyKind = "turret"
	PolicyLua    PolicyKind = "lua"
)

// ParsePolicyKind validates a policy name.
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch k := PolicyKind(strings.ToLower(strings.TrimSpace(s))); k {
	case PolicyHunter, PolicyEvader, PolicyTurret, PolicyLua:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Situation is what a computer agent knows when it decides. The Has* flags
// report whether the matching snapshot is valid.
type Situation struct {
	Self        entity.Snapshot
	WeaponIndex int

	Threat    entity.Snapshot
	HasThreat bool
	Enemy     entity.Snapshot
	HasEnemy  bool
	Reward    entity.Snapshot
	HasReward bool
}

// Commands is one decision. Turn is -1 for left, +1 for right; Toward and
// Away, when set, take precedence over Turn.
type Commands struct {
	Thrust       bool
	Retro        bool
	Fire         bool
	ChangeWeapon bool
	Turn         int
	Toward       *physics.Vector2D
	Away         *physics.Vector2D
}

// Policy maps a situation to commands. Implementations must be pure with
// respect to the simulation: they never touch the registry or the vehicle.
type Policy interface {
	Decide(s Situation) Commands
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(Situation) Commands

// Decide calls f.
func (f PolicyFunc) Decide(s Situation) Commands { return f(s) }

// NewPolicy builds one of the built-in policies. Lua policies need a script
// and are built with NewScriptPolicy.
func NewPolicy(kind PolicyKind, cfg *config.Config) (Policy, error) {
	switch kind {
	case PolicyHunter:
		return NewHunter(cfg), nil
	case PolicyEvader:
		return NewEvader(cfg), nil
	case PolicyTurret:
		return NewTurret(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q has no built-in implementation", ErrUnknownPolicy, kind)
	}
}

// Hunter flees nearby weapons, attacks enemies in range while it has energy
// to spare, and otherwise chases rewards.
type Hunter struct {
	ai        config.AIConfig
	shotSpeed float64
	topSpeed  float64
}

// NewHunter creates a hunter tuned by cfg.
func NewHunter(cfg *config.Config) *Hunter {
	return &Hunter{ai: cfg.AI, shotSpeed: cfg.Weapons.Speed, topSpeed: cfg.Vehicle.SpeedCap}
}

// Decide implements Policy.
func (h *Hunter) Decide(s Situation) Commands {
	self := s.Self
	switch {
	case s.HasThreat && self.Position.Distance(s.Threat.Position) < h.ai.ThreatRadius:
		away := s.Threat.Position
		return Commands{Away: &away, Thrust: true}

	case s.HasEnemy && self.Position.Distance(s.Enemy.Position) < h.ai.AttackRange && self.Energy > h.ai.EnergyReserve:
		aim := Intercept(self.Position, s.Enemy.Position, s.Enemy.Velocity.Sub(self.Velocity), h.shotSpeed)
		return Commands{
			Toward: &aim,
			Fire:   facing(self, aim, 0.35),
			Thrust: self.Position.Distance(s.Enemy.Position) > h.ai.AttackRange/2,
		}

	case s.HasReward:
		return chase(self, s.Reward, h.topSpeed)
	}
	return Commands{Turn: 1}
}

// Evader never fires: it keeps away from weapons and vehicles and collects
// rewards when the coast is clear.
type Evader struct {
	ai       config.AIConfig
	topSpeed float64
}

// NewEvader creates an evader tuned by cfg.
func NewEvader(cfg *config.Config) *Evader {
	return &Evader{ai: cfg.AI, topSpeed: cfg.Vehicle.SpeedCap}
}

// Decide implements Policy.
func (e *Evader) Decide(s Situation) Commands {
	self := s.Self
	switch {
	case s.HasThreat && self.Position.Distance(s.Threat.Position) < e.ai.ThreatRadius:
		away := s.Threat.Position
		return Commands{Away: &away, Thrust: true}
	case s.HasEnemy && self.Position.Distance(s.Enemy.Position) < e.ai.AttackRange:
		away := s.Enemy.Position
		return Commands{Away: &away, Thrust: true}
	case s.HasReward:
		return chase(self, s.Reward, e.topSpeed)
	}
	return Commands{}
}

// Turret never thrusts. It tracks the nearest enemy in range and fires,
// otherwise it sweeps.
type Turret struct {
	ai        config.AIConfig
	shotSpeed float64
}

// NewTurret creates a turret tuned by cfg.
func NewTurret(cfg *config.Config) *Turret {
	return &Turret{ai: cfg.AI, shotSpeed: cfg.Weapons.Speed}
}

// Decide implements Policy.
func (t *Turret) Decide(s Situation) Commands {
	self := s.Self
	if s.HasEnemy && self.Position.Distance(s.Enemy.Position) < t.ai.AttackRange {
		aim := Intercept(self.Position, s.Enemy.Position, s.Enemy.Velocity.Sub(self.Velocity), t.shotSpeed)
		return Commands{Toward: &aim, Fire: facing(self, aim, 0.2)}
	}
	return Commands{Turn: 1}
}

// chase heads for target, leading it by the relative velocity.
func chase(self, target entity.Snapshot, speed float64) Commands {
	aim := Intercept(self.Position, target.Position, target.Velocity.Sub(self.Velocity), speed)
	return Commands{Toward: &aim, Thrust: facing(self, aim, math.Pi/4)}
}

// facing reports whether self's heading is within tolerance radians of point.
func facing(self entity.Snapshot, point physics.Vector2D, tolerance float64) bool {
	dir := point.Sub(self.Position)
	if dir.LengthSquared() == 0 {
		return true
	}
	off := math.Remainder(dir.Angle()-self.Heading, 2*math.Pi)
	return math.Abs(off) <= tolerance
}
