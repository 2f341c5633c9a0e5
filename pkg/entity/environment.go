package entity

import (
	"math"

	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// Environment applies the boundary policy to every other entity each tick.
// It has no size, never moves and never dies.
type Environment struct {
	BaseEntity
	mode  config.BoundaryMode
	arena Arena
}

// NewEnvironment creates the boundary entity for an arena.
func NewEnvironment(mode config.BoundaryMode, arena Arena) *Environment {
	e := &Environment{mode: mode, arena: arena}
	e.init(KindEnvironment, physics.Vector2D{}, physics.Vector2D{}, 0, true)
	return e
}

// Mode returns the boundary mode.
func (e *Environment) Mode() config.BoundaryMode { return e.mode }

// Arena returns the world extent.
func (e *Environment) Arena() Arena { return e.arena }

// Die is ignored.
func (e *Environment) Die() {}

// Move does nothing.
func (e *Environment) Move(World) bool { return true }

// Affect wraps or bounces other back into the arena.
func (e *Environment) Affect(other Entity) bool {
	if other.Stationary() {
		return true
	}
	other.UpdateKinematics(func(pos, vel *physics.Vector2D) {
		if e.mode == config.BoundaryBounce {
			pos.X, vel.X = bounce(pos.X, vel.X, e.arena.Width)
			pos.Y, vel.Y = bounce(pos.Y, vel.Y, e.arena.Height)
			return
		}
		pos.X = wrap(pos.X, e.arena.Width)
		pos.Y = wrap(pos.Y, e.arena.Height)
	})
	return true
}

func wrap(x, extent float64) float64 {
	if extent <= 0 || (x >= 0 && x < extent) {
		return x
	}
	x = math.Mod(x, extent)
	if x < 0 {
		x += extent
	}
	return x
}

func bounce(x, v, extent float64) (float64, float64) {
	switch {
	case x < 0:
		return 0, math.Abs(v)
	case x > extent:
		return extent, -math.Abs(v)
	default:
		return x, v
	}
}
