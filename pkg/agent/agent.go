// Package agent runs the decision loops that drive vehicles: human input
// and computer policies. Each agent owns exactly one vehicle.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/event"
	"github.com/opd-ai/go-orbitwar/pkg/logging"
)

var (
	// ErrAgentPanic wraps a panic recovered from an agent's decision cycle.
	ErrAgentPanic = errors.New("agent panicked")
	// ErrVehicleGone is returned when an agent's vehicle left the registry.
	ErrVehicleGone = errors.New("vehicle no longer registered")
)

// World is the part of the registry an agent uses.
type World interface {
	Now() time.Time
	Add(e entity.Entity)
	ByID(id entity.ID) (entity.Snapshot, bool)
	ClosestVehicleTo(id entity.ID) (entity.Snapshot, bool)
	ClosestThreatTo(id entity.ID) (entity.Snapshot, bool)
	ClosestRewardTo(id entity.ID) (entity.Snapshot, bool)
	Events() *event.Bus
}

// Agent is a decision loop bound to one vehicle.
type Agent interface {
	Name() string
	Vehicle() *entity.Vehicle
	Run(ctx context.Context) error
}

// pilot holds what every agent needs to fly its vehicle.
type pilot struct {
	name    string
	vehicle *entity.Vehicle
	world   World
	period  time.Duration
	logger  *logging.Logger
}

func newPilot(name string, v *entity.Vehicle, w World, period time.Duration, logger *logging.Logger) pilot {
	if logger == nil {
		logger = logging.Discard()
	}
	return pilot{
		name:    name,
		vehicle: v,
		world:   w,
		period:  period,
		logger:  logger.With("agent", name, "vehicle", uint64(v.ID())),
	}
}

// Name returns the agent's name.
func (p *pilot) Name() string { return p.name }

// Vehicle returns the vehicle the agent drives.
func (p *pilot) Vehicle() *entity.Vehicle { return p.vehicle }

// run calls step once per period until ctx is done or step fails. A panic
// inside step ends only this loop and is returned wrapped in ErrAgentPanic.
func (p *pilot) run(ctx context.Context, step func(context.Context) error) (err error) {
	ctx = logging.WithCorrelationID(ctx, "")
	p.logger.Info(ctx, "agent started", "period", p.period.String())

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrAgentPanic, rec)
		}
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			p.logger.Error(ctx, "agent stopped", err)
		} else {
			p.logger.Info(ctx, "agent stopped")
		}
		p.world.Events().Publish(event.NewAgentEvent(p, uint64(p.vehicle.ID()), p.name, err))
	}()

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := step(ctx); err != nil {
				return err
			}
		}
	}
}

// fire launches the selected weapon if the vehicle is ready and hands it to
// the registry.
func (p *pilot) fire(ctx context.Context) {
	w, ok := p.vehicle.Fire(p.world.Now())
	if !ok {
		return
	}
	p.world.Add(w)
	p.world.Events().Publish(event.NewWeaponEvent(p, uint64(w.ID()), uint64(p.vehicle.ID()), w.Kind().String()))
	p.logger.Debug(ctx, "weapon fired", "kind", w.Kind().String())
}

// apply issues one decision's commands to the vehicle.
func (p *pilot) apply(ctx context.Context, c Commands) {
	v := p.vehicle
	switch {
	case c.Away != nil:
		v.TurnAway(*c.Away)
	case c.Toward != nil:
		v.TurnToward(*c.Toward)
	case c.Turn < 0:
		v.TurnLeft()
	case c.Turn > 0:
		v.TurnRight()
	}
	if c.Thrust {
		v.Thrust()
	}
	if c.Retro {
		v.RetroThrust()
	}
	if c.ChangeWeapon {
		v.ChangeWeapon()
	}
	if c.Fire {
		p.fire(ctx)
	}
}
