// pkg/entity/vehicle.go
package entity

import (
	"math"
	"time"

	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// NumWeapons is the number of weapon slots a vehicle cycles through.
const NumWeapons = 3

// WeaponSpec is the fixed tuple a weapon slot maps to.
type WeaponSpec struct {
	Kind     Kind
	Damage   float64
	Delay    time.Duration
	Cost     float64
	Lifetime time.Duration
	Speed    float64
}

// WeaponSpecFor returns the spec of weapon slot index (taken modulo NumWeapons).
func WeaponSpecFor(w config.WeaponsConfig, index int) WeaponSpec {
	switch ((index % NumWeapons) + NumWeapons) % NumWeapons {
	case 1:
		return WeaponSpec{KindMissile, w.MissilePower, w.MissileDelay.Duration, w.MissileCost(), w.MissileLifetime.Duration, w.Speed}
	case 2:
		return WeaponSpec{KindBomb, w.BombPower, w.BombDelay.Duration, w.BombCost(), w.BombLifetime.Duration, w.Speed}
	default:
		return WeaponSpec{KindShot, w.BulletPower, w.BulletDelay.Duration, w.ShotCost(), w.ShotLifetime.Duration, w.Speed}
	}
}

// Respawn records one pass through the respawn transition.
// KillerID is the owner of the weapon that dealt the last blow, or zero.
type Respawn struct {
	VehicleID  ID
	KillerID   ID
	DeathCount int
	From       physics.Vector2D
	To         physics.Vector2D
}

// Vehicle is a player-controlled ship. It never leaves the registry: when its
// energy runs out it respawns at a random position.
type Vehicle struct {
	BaseEntity
	cfg   *config.Config
	arena Arena
	name  string

	heading     int
	energy      float64
	weaponIndex int
	nextFire    time.Time
	deaths      int
	kills       int
	pending     []Respawn
}

// NewVehicle creates a vehicle at pos with full energy, facing heading index 0.
func NewVehicle(cfg *config.Config, name string, pos physics.Vector2D) *Vehicle {
	v := &Vehicle{
		cfg:    cfg,
		arena:  Arena{Width: cfg.World.Width, Height: cfg.World.Height},
		name:   name,
		energy: cfg.Vehicle.MaxEnergy,
	}
	v.init(KindVehicle, pos, physics.Vector2D{}, cfg.Vehicle.Radius, false)
	return v
}

// Name returns the display name.
func (v *Vehicle) Name() string { return v.name }

// Energy returns the current energy.
func (v *Vehicle) Energy() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.energy
}

// HeadingIndex returns the discretized heading.
func (v *Vehicle) HeadingIndex() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.heading
}

// Heading returns the unit vector the vehicle faces.
func (v *Vehicle) Heading() physics.Vector2D {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.headingVector()
}

// WeaponIndex returns the selected weapon slot.
func (v *Vehicle) WeaponIndex() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.weaponIndex
}

// DeathCount returns how many times the vehicle has respawned.
func (v *Vehicle) DeathCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deaths
}

// Kills returns how many respawns this vehicle's weapons have caused.
func (v *Vehicle) Kills() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.kills
}

// CreditKill increments the kill counter.
func (v *Vehicle) CreditKill() {
	v.mu.Lock()
	v.kills++
	v.mu.Unlock()
}

// Snapshot returns the vehicle's observable state.
func (v *Vehicle) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.snapshot()
	s.Energy = v.energy
	s.Heading = v.headingAngle()
	s.Name = v.name
	return s
}

// Move integrates position.
func (v *Vehicle) Move(World) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.integrate()
	return true
}

// Affect does nothing: vehicles act on others only through their weapons.
func (v *Vehicle) Affect(Entity) bool { return true }

// Die sends the vehicle through the respawn transition.
func (v *Vehicle) Die() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.respawn(0)
}

// AddEnergy adds power (possibly negative), clamping to the maximum.
// Reaching zero or less respawns the vehicle.
func (v *Vehicle) AddEnergy(power float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.addEnergy(power, 0)
}

// Hit applies damage dealt by a weapon owned by attacker.
func (v *Vehicle) Hit(damage float64, attacker ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.addEnergy(-damage, attacker)
}

// TakeRespawns returns and clears the respawns recorded since the last call.
func (v *Vehicle) TakeRespawns() []Respawn {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.pending
	v.pending = nil
	return out
}

// TurnLeft rotates the heading one step counter-clockwise.
func (v *Vehicle) TurnLeft() {
	v.mu.Lock()
	v.turn(-1)
	v.mu.Unlock()
}

// TurnRight rotates the heading one step clockwise.
func (v *Vehicle) TurnRight() {
	v.mu.Lock()
	v.turn(1)
	v.mu.Unlock()
}

// TurnToward turns one step toward target. A target dead behind turns right;
// a target already ahead leaves the heading alone.
func (v *Vehicle) TurnToward(target physics.Vector2D) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.turn(v.turnSign(target.Sub(v.position)))
}

// TurnAway turns one step away from target.
func (v *Vehicle) TurnAway(target physics.Vector2D) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.turn(v.turnSign(v.position.Sub(target)))
}

// Thrust accelerates along the heading.
func (v *Vehicle) Thrust() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.propel(v.headingVector())
}

// RetroThrust accelerates against the heading.
func (v *Vehicle) RetroThrust() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.propel(v.headingVector().Scale(-1))
}

// ChangeWeapon cycles forward to the next weapon slot.
func (v *Vehicle) ChangeWeapon() {
	v.mu.Lock()
	v.weaponIndex = (v.weaponIndex + 1) % NumWeapons
	v.mu.Unlock()
}

// Fire launches the selected weapon from the nose. It returns false while the
// refire delay has not elapsed. The energy cost may respawn the vehicle.
func (v *Vehicle) Fire(now time.Time) (Weapon, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if now.Before(v.nextFire) {
		return nil, false
	}
	spec := WeaponSpecFor(v.cfg.Weapons, v.weaponIndex)
	dir := v.headingVector()
	wr := v.cfg.Weapons.ProjectileRadius
	nose := v.position.Add(dir.Scale(v.radius + wr + 1))
	vel := v.velocity.Add(dir.Scale(spec.Speed))

	var w Weapon
	switch spec.Kind {
	case KindMissile:
		w = NewMissile(v.cfg.Weapons, v.id, nose, vel, now)
	case KindBomb:
		w = NewProximityBomb(v.cfg.Weapons, v.id, nose, vel, now)
	default:
		w = NewShot(v.cfg.Weapons, v.id, nose, vel, now)
	}

	v.nextFire = now.Add(spec.Delay)
	v.addEnergy(-spec.Cost, 0)
	return w, true
}

// NextFire returns the earliest time the vehicle may fire again.
func (v *Vehicle) NextFire() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nextFire
}

// The helpers below require mu.

func (v *Vehicle) addEnergy(power float64, attacker ID) {
	v.energy += power
	if v.energy > v.cfg.Vehicle.MaxEnergy {
		v.energy = v.cfg.Vehicle.MaxEnergy
	}
	if v.energy <= 0 {
		v.respawn(attacker)
	}
}

func (v *Vehicle) respawn(killer ID) {
	from := v.position
	v.position = v.arena.RandomPosition()
	v.velocity = physics.Vector2D{}
	v.energy = v.cfg.Vehicle.MaxEnergy
	v.deaths++
	v.pending = append(v.pending, Respawn{
		VehicleID:  v.id,
		KillerID:   killer,
		DeathCount: v.deaths,
		From:       from,
		To:         v.position,
	})
}

func (v *Vehicle) divisions() int {
	if v.cfg.Vehicle.AngleDivisions <= 0 {
		return 1
	}
	return v.cfg.Vehicle.AngleDivisions
}

func (v *Vehicle) turn(step int) {
	n := v.divisions()
	v.heading = ((v.heading+step)%n + n) % n
}

func (v *Vehicle) headingAngle() float64 {
	return float64(v.heading) * 2 * math.Pi / float64(v.divisions())
}

func (v *Vehicle) headingVector() physics.Vector2D {
	return physics.FromAngle(v.headingAngle(), 1)
}

// turnSign picks the single step that rotates the heading toward dir, or
// zero when dir is already within half a step of the heading.
func (v *Vehicle) turnSign(dir physics.Vector2D) int {
	h := v.headingVector()
	cross := h.Cross(dir)
	off := math.Atan2(cross, h.Dot(dir))
	if math.Abs(off) < math.Pi/float64(v.divisions()) {
		return 0
	}
	if cross < 0 {
		return -1
	}
	return 1
}

func (v *Vehicle) propel(dir physics.Vector2D) {
	v.velocity = physics.Propel(v.velocity, dir, v.cfg.Vehicle.Acceleration, v.cfg.Vehicle.SpeedCap)
}
