package entity

import (
	"math"
	"math/rand/v2"

	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// Asteroid drifts at constant velocity and kills whatever movable entity it
// touches. Damage or a collision sends it to a fresh random position with a
// new drift; it is never removed.
type Asteroid struct {
	BaseEntity
	arena  Arena
	bodies config.BodiesConfig
	energy float64
	angle  float64
	spin   float64
}

// NewAsteroid creates an asteroid at a random position with a random drift.
func NewAsteroid(bodies config.BodiesConfig, arena Arena) *Asteroid {
	a := &Asteroid{arena: arena, bodies: bodies}
	a.init(KindAsteroid, arena.RandomPosition(), physics.Vector2D{}, bodies.AsteroidRadius, false)
	a.reset()
	return a
}

// Energy returns the remaining energy.
func (a *Asteroid) Energy() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.energy
}

// Angle returns the display rotation in radians.
func (a *Asteroid) Angle() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.angle
}

// Snapshot returns the asteroid's observable state.
func (a *Asteroid) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.snapshot()
	s.Energy = a.energy
	s.Heading = a.angle
	return s
}

// Move drifts and rotates.
func (a *Asteroid) Move(World) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.integrate()
	a.angle = math.Mod(a.angle+a.spin, 2*math.Pi)
	return true
}

// Accelerate is ignored: asteroid drift is constant.
func (a *Asteroid) Accelerate(physics.Vector2D) {}

// Die respawns the asteroid.
func (a *Asteroid) Die() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.position = a.arena.RandomPosition()
	a.reset()
}

// AddEnergy changes the asteroid's energy and respawns it at zero or less.
func (a *Asteroid) AddEnergy(power float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.energy += power
	if a.energy <= 0 {
		a.position = a.arena.RandomPosition()
		a.reset()
	}
}

// Affect kills a movable entity in contact, then respawns the asteroid.
func (a *Asteroid) Affect(other Entity) bool {
	if other.Stationary() {
		return true
	}
	if !collider(a).Touches(collider(other)) {
		return true
	}
	other.Die()

	a.mu.Lock()
	a.position = a.arena.RandomPosition()
	a.reset()
	a.mu.Unlock()
	return true
}

// reset requires mu.
func (a *Asteroid) reset() {
	speed := randomBetween(a.bodies.AsteroidMinSpeed, a.bodies.AsteroidMaxSpeed)
	a.velocity = physics.FromAngle(rand.Float64()*2*math.Pi, speed)
	a.energy = a.bodies.AsteroidEnergy
	a.spin = randomBetween(-a.bodies.AsteroidMaxSpin, a.bodies.AsteroidMaxSpin)
	a.alive = true
}
