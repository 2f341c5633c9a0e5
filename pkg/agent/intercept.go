package agent

import (
	"math"

	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// interceptIterations bounds the fixed-point refinement in Intercept.
const interceptIterations = 5

// Intercept returns the point a projectile (or a vehicle) moving at speed
// from shooter should head for to meet a target at target moving with
// velocity targetVel. A slow or very close target, or a non-positive speed,
// yields the target's current position.
func Intercept(shooter, target, targetVel physics.Vector2D, speed float64) physics.Vector2D {
	if targetVel.LengthSquared() < 0.01 || speed <= 0 {
		return target
	}
	distance := shooter.Distance(target)
	if distance < 1 {
		return target
	}

	t := distance / speed
	for i := 0; i < interceptIterations; i++ {
		predicted := target.Add(targetVel.Scale(t))
		next := shooter.Distance(predicted) / speed
		if math.Abs(next-t) < 0.001 {
			break
		}
		t = next
	}
	return target.Add(targetVel.Scale(t))
}
