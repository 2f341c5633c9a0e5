package entity

import (
	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// Collection records a vehicle picking up a reward.
type Collection struct {
	RewardID  ID
	VehicleID ID
	Bonus     float64
}

// Reward is a stationary pickup. A vehicle touching it gains a random bonus
// and the reward moves elsewhere. Rewards are never removed.
type Reward struct {
	BaseEntity
	arena   Arena
	min     float64
	max     float64
	pending []Collection
}

// NewReward creates a reward at pos.
func NewReward(bodies config.BodiesConfig, arena Arena, pos physics.Vector2D) *Reward {
	r := &Reward{arena: arena, min: bodies.RewardMin, max: bodies.RewardMax}
	r.init(KindReward, pos, physics.Vector2D{}, bodies.RewardRadius, true)
	return r
}

// Die is ignored.
func (r *Reward) Die() {}

// Move leaves the reward in place.
func (r *Reward) Move(World) bool { return true }

// Affect grants a bonus to a vehicle in contact and relocates the reward.
// Other entities pass through.
func (r *Reward) Affect(other Entity) bool {
	v, ok := other.(*Vehicle)
	if !ok {
		return true
	}
	if !collider(r).Touches(collider(v)) {
		return true
	}

	bonus := randomBetween(r.min, r.max)
	v.AddEnergy(bonus)

	r.mu.Lock()
	r.position = r.arena.RandomPosition()
	r.pending = append(r.pending, Collection{RewardID: r.id, VehicleID: v.ID(), Bonus: bonus})
	r.mu.Unlock()
	return true
}

// TakeCollections returns and clears the pickups recorded since the last call.
func (r *Reward) TakeCollections() []Collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}
