// pkg/entity/entity.go
package entity

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// ID is a unique identifier for an entity
type ID uint64

// NewID allocates a process-wide unique, increasing id. Safe for concurrent use.
func NewID() ID {
	return ID(ecs.NewBasic().ID())
}

// Snapshot is an immutable copy of an entity's observable state.
// Mutating a snapshot never touches the entity it was taken from.
type Snapshot struct {
	ID       ID
	Kind     Kind
	Position physics.Vector2D
	Velocity physics.Vector2D
	Radius   float64
	Damage   float64
	OwnerID  ID
	Energy   float64
	Heading  float64 // radians, vehicles and asteroids only
	Name     string
	Alive    bool
}

// World is the view of the simulation an entity gets while it is advanced.
type World interface {
	Now() time.Time
	// ClosestVehicle returns the nearest vehicle to from whose id is not in exclude.
	ClosestVehicle(from physics.Vector2D, exclude ...ID) (Snapshot, bool)
}

// Entity is the base interface for all simulated objects.
//
// Move advances the entity one tick and reports whether it should stay in
// the registry. Affect applies this entity's effect (gravity, damage, pickup,
// boundary) to other and returns false once the actor has consumed itself.
type Entity interface {
	ID() ID
	Kind() Kind
	Position() physics.Vector2D
	Velocity() physics.Vector2D
	Radius() float64
	Stationary() bool
	Alive() bool
	Snapshot() Snapshot

	Move(w World) bool
	Affect(other Entity) bool
	Die()
	AddEnergy(power float64)
	Accelerate(a physics.Vector2D)
	UpdateKinematics(fn func(pos, vel *physics.Vector2D))
}

// BaseEntity contains common functionality for all entities.
// id, kind, radius and stationary never change after construction; the rest
// is guarded by mu.
type BaseEntity struct {
	mu         sync.Mutex
	id         ID
	kind       Kind
	radius     float64
	stationary bool
	position   physics.Vector2D
	velocity   physics.Vector2D
	alive      bool
}

func (e *BaseEntity) init(kind Kind, pos, vel physics.Vector2D, radius float64, stationary bool) {
	if radius < 0 {
		radius = 0
	}
	e.id = NewID()
	e.kind = kind
	e.radius = radius
	e.stationary = stationary
	e.position = pos
	e.velocity = vel
	e.alive = true
}

// ID returns the entity's unique identifier
func (e *BaseEntity) ID() ID { return e.id }

// Kind returns the entity's variant tag
func (e *BaseEntity) Kind() Kind { return e.kind }

// Radius returns the collision radius
func (e *BaseEntity) Radius() float64 { return e.radius }

// Stationary reports whether the entity is skipped by integration and
// ignored by weapons and gravity.
func (e *BaseEntity) Stationary() bool { return e.stationary }

// Position returns the entity's position
func (e *BaseEntity) Position() physics.Vector2D {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// Velocity returns the entity's velocity
func (e *BaseEntity) Velocity() physics.Vector2D {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.velocity
}

// Alive reports whether the entity survives the next prune.
func (e *BaseEntity) Alive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alive
}

// Die marks the entity for removal.
func (e *BaseEntity) Die() {
	e.mu.Lock()
	e.alive = false
	e.mu.Unlock()
}

// AddEnergy is ignored by entities without an energy pool.
func (e *BaseEntity) AddEnergy(float64) {}

// Accelerate adds a to the velocity of a movable entity.
func (e *BaseEntity) Accelerate(a physics.Vector2D) {
	if e.stationary {
		return
	}
	e.mu.Lock()
	e.velocity.AddInPlace(a)
	e.mu.Unlock()
}

// UpdateKinematics runs fn with exclusive access to position and velocity.
func (e *BaseEntity) UpdateKinematics(fn func(pos, vel *physics.Vector2D)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.position, &e.velocity)
}

// Move integrates position by one tick of velocity.
func (e *BaseEntity) Move(World) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.integrate()
	return true
}

// Affect does nothing by default.
func (e *BaseEntity) Affect(Entity) bool { return true }

// Snapshot returns the common observable state.
func (e *BaseEntity) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// snapshot requires mu.
func (e *BaseEntity) snapshot() Snapshot {
	return Snapshot{
		ID:       e.id,
		Kind:     e.kind,
		Position: e.position,
		Velocity: e.velocity,
		Radius:   e.radius,
		Alive:    e.alive,
	}
}

// integrate requires mu.
func (e *BaseEntity) integrate() {
	if !e.stationary {
		e.position.AddInPlace(e.velocity)
	}
}

// collider returns the collision circle of e.
func collider(e Entity) physics.Circle {
	return physics.Circle{Center: e.Position(), Radius: e.Radius()}
}

// Arena is the rectangle entities are placed in.
type Arena struct {
	Width  float64
	Height float64
}

// RandomPosition returns a uniformly random point inside the arena.
func (a Arena) RandomPosition() physics.Vector2D {
	return physics.Vector2D{X: rand.Float64() * a.Width, Y: rand.Float64() * a.Height}
}

// randomBetween returns a uniform value in [lo, hi].
func randomBetween(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rand.Float64()*(hi-lo)
}
