// pkg/entity/weapon.go
package entity

import (
	"time"

	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// Weapon is implemented by the three projectile variants.
type Weapon interface {
	Entity
	Owner() ID
	Damage() float64
	SpawnTime() time.Time
	Lifetime() time.Duration
}

// Projectile contains the behaviour shared by every weapon: ownership,
// damage, expiry and contact resolution.
type Projectile struct {
	BaseEntity
	owner    ID
	damage   float64
	spawn    time.Time
	lifetime time.Duration
	reach    float64 // contact radius used instead of Radius when larger
}

func (p *Projectile) initProjectile(kind Kind, w config.WeaponsConfig, owner ID, pos, vel physics.Vector2D, now time.Time) {
	spec := WeaponSpecFor(w, weaponSlot(kind))
	p.init(kind, pos, vel, w.ProjectileRadius, false)
	p.owner = owner
	p.damage = spec.Damage
	p.spawn = now
	p.lifetime = spec.Lifetime
	p.reach = w.ProjectileRadius
}

func weaponSlot(kind Kind) int {
	switch kind {
	case KindMissile:
		return 1
	case KindBomb:
		return 2
	default:
		return 0
	}
}

// Owner returns the id of the vehicle that fired the weapon.
func (p *Projectile) Owner() ID { return p.owner }

// Damage returns the energy removed from whatever the weapon hits.
func (p *Projectile) Damage() float64 { return p.damage }

// SpawnTime returns when the weapon was fired.
func (p *Projectile) SpawnTime() time.Time { return p.spawn }

// Lifetime returns how long the weapon survives without hitting anything.
func (p *Projectile) Lifetime() time.Duration { return p.lifetime }

// Expired reports whether now is past the weapon's lifetime.
func (p *Projectile) Expired(now time.Time) bool {
	return now.Sub(p.spawn) > p.lifetime
}

// AddEnergy destroys the weapon regardless of sign.
func (p *Projectile) AddEnergy(float64) { p.Die() }

// Snapshot returns the weapon's observable state.
func (p *Projectile) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.snapshot()
	s.Damage = p.damage
	s.OwnerID = p.owner
	return s
}

// Move expires the weapon or integrates it.
func (p *Projectile) Move(w World) bool {
	if p.Expired(w.Now()) {
		return false
	}
	p.mu.Lock()
	p.integrate()
	p.mu.Unlock()
	return true
}

// Affect damages a movable entity in contact. The owner and the owner's
// other weapons are immune. Returns false once the weapon has detonated.
func (p *Projectile) Affect(other Entity) bool {
	if other.Stationary() || other.ID() == p.owner {
		return true
	}
	if sibling, ok := other.(Weapon); ok && sibling.Owner() == p.owner {
		return true
	}
	if !p.Alive() {
		return false
	}
	contact := physics.Circle{Center: p.Position(), Radius: p.reach}
	if !contact.Touches(collider(other)) {
		return true
	}

	p.Die()
	if v, ok := other.(*Vehicle); ok {
		v.Hit(p.damage, p.owner)
	} else {
		other.AddEnergy(-p.damage)
	}
	return false
}

// Shot flies in a straight line.
type Shot struct {
	Projectile
}

// NewShot creates a shot owned by owner.
func NewShot(w config.WeaponsConfig, owner ID, pos, vel physics.Vector2D, now time.Time) *Shot {
	s := &Shot{}
	s.initProjectile(KindShot, w, owner, pos, vel, now)
	return s
}

// Missile steers toward the closest vehicle other than its owner.
type Missile struct {
	Projectile
	speed    float64
	turnRate float64
}

// NewMissile creates a homing missile owned by owner.
func NewMissile(w config.WeaponsConfig, owner ID, pos, vel physics.Vector2D, now time.Time) *Missile {
	m := &Missile{speed: w.MissileSpeed, turnRate: w.MissileTurnRate}
	m.initProjectile(KindMissile, w, owner, pos, vel, now)
	return m
}

// Move expires the missile, or bends its course toward its target and
// integrates it.
func (m *Missile) Move(w World) bool {
	if m.Expired(w.Now()) {
		return false
	}
	target, found := w.ClosestVehicle(m.Position(), m.owner)

	m.mu.Lock()
	defer m.mu.Unlock()
	if found {
		dir := target.Position.Sub(m.position).Normalize()
		steered := m.velocity.Add(dir.Scale(m.turnRate)).Normalize()
		if steered.LengthSquared() > 0 {
			m.velocity = steered.Scale(m.speed)
		}
	}
	m.integrate()
	return true
}

// ProximityBomb drifts to a halt and detonates on anything movable that
// comes within its trigger radius.
type ProximityBomb struct {
	Projectile
	drag float64
}

// NewProximityBomb creates a bomb owned by owner.
func NewProximityBomb(w config.WeaponsConfig, owner ID, pos, vel physics.Vector2D, now time.Time) *ProximityBomb {
	b := &ProximityBomb{drag: w.BombDrag}
	b.initProjectile(KindBomb, w, owner, pos, vel, now)
	if w.BombTriggerRadius > b.reach {
		b.reach = w.BombTriggerRadius
	}
	return b
}

// Move expires the bomb or integrates it with drag.
func (b *ProximityBomb) Move(w World) bool {
	if b.Expired(w.Now()) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.integrate()
	if b.drag > 0 && b.drag < 1 {
		b.velocity.ScaleInPlace(b.drag)
	}
	return true
}
