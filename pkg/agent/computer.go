package agent

import (
	"context"
	"time"

	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/logging"
)

// Timing is the cadence of the agent loops.
type Timing struct {
	HumanPeriod    time.Duration
	ComputerPeriod time.Duration
}

// TimingFrom extracts agent cadences from a config.
func TimingFrom(cfg *config.Config) Timing {
	return Timing{
		HumanPeriod:    cfg.Timing.HumanPeriod.Duration,
		ComputerPeriod: cfg.Timing.ComputerPeriod.Duration,
	}
}

// Computer asks a Policy what to do each cycle.
type Computer struct {
	pilot
	policy Policy
}

// NewComputer creates a computer agent flying v.
func NewComputer(name string, v *entity.Vehicle, w World, policy Policy, cfg Timing, logger *logging.Logger) *Computer {
	return &Computer{
		pilot:  newPilot(name, v, w, cfg.ComputerPeriod, logger),
		policy: policy,
	}
}

// Policy returns the decision policy.
func (c *Computer) Policy() Policy { return c.policy }

// Situation gathers the agent's view of the world from registry queries.
func (c *Computer) Situation() (Situation, error) {
	id := c.vehicle.ID()
	self, ok := c.world.ByID(id)
	if !ok {
		return Situation{}, ErrVehicleGone
	}
	s := Situation{Self: self, WeaponIndex: c.vehicle.WeaponIndex()}
	s.Threat, s.HasThreat = c.world.ClosestThreatTo(id)
	s.Enemy, s.HasEnemy = c.world.ClosestVehicleTo(id)
	s.Reward, s.HasReward = c.world.ClosestRewardTo(id)
	return s, nil
}

// Step runs one decision cycle.
func (c *Computer) Step(ctx context.Context) error {
	s, err := c.Situation()
	if err != nil {
		return err
	}
	c.apply(ctx, c.policy.Decide(s))
	return nil
}

// Run drives the vehicle until ctx is cancelled.
func (c *Computer) Run(ctx context.Context) error {
	if closer, ok := c.policy.(interface{ Close() }); ok {
		defer closer.Close()
	}
	return c.run(ctx, c.Step)
}
