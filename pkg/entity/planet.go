// pkg/entity/planet.go
package entity

import (
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// Planet is a stationary gravity source. A planet pulls movable entities
// toward its centre (pushes them away for a negative mass); a spinner pushes
// them along the tangent instead. Either kills whatever touches it.
// Planets never die.
type Planet struct {
	BaseEntity
	mass float64
}

// NewPlanet creates a planet of the given signed mass.
func NewPlanet(pos physics.Vector2D, radius, mass float64) *Planet {
	p := &Planet{mass: mass}
	p.init(KindPlanet, pos, physics.Vector2D{}, radius, true)
	return p
}

// NewSpinner creates a spinner of the given signed mass.
func NewSpinner(pos physics.Vector2D, radius, mass float64) *Planet {
	p := &Planet{mass: mass}
	p.init(KindSpinner, pos, physics.Vector2D{}, radius, true)
	return p
}

// Mass returns the signed mass.
func (p *Planet) Mass() float64 { return p.mass }

// Die is ignored.
func (p *Planet) Die() {}

// Move leaves the planet in place.
func (p *Planet) Move(World) bool { return true }

// Affect accelerates a movable entity or kills it on contact.
// Stationary entities are never accelerated.
func (p *Planet) Affect(other Entity) bool {
	if other.Stationary() {
		return true
	}
	target := collider(other)
	if p.collider().Touches(target) {
		other.Die()
		return true
	}
	other.Accelerate(p.AccelerationAt(target.Center))
	return true
}

// AccelerationAt returns the acceleration the planet would apply to a
// movable body at point, ignoring contact.
func (p *Planet) AccelerationAt(point physics.Vector2D) physics.Vector2D {
	switch p.kind {
	case KindSpinner:
		return physics.Swirl(p.position, point, p.mass)
	default:
		return physics.Attraction(p.position, point, p.mass)
	}
}

// collider is safe without mu: a planet's position never changes.
func (p *Planet) collider() physics.Circle {
	return physics.Circle{Center: p.position, Radius: p.radius}
}
