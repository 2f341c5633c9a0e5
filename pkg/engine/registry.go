// pkg/engine/registry.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/opd-ai/go-orbitwar/pkg/clock"
	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/event"
	"github.com/opd-ai/go-orbitwar/pkg/logging"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// ErrTickPanic is returned by Run when a tick panics.
var ErrTickPanic = errors.New("tick panicked")

// Registry owns every live entity and advances them one tick at a time.
//
// Add, Remove and Tick are mutually exclusive; queries share a read lock and
// return snapshots, never the entities themselves.
type Registry struct {
	cfg     *config.Config
	clock   clock.Clock
	logger  *logging.Logger
	bus     *event.Bus
	metrics *metrics

	mu         sync.RWMutex
	entities   []entity.Entity
	index      map[entity.ID]entity.Entity
	rechargeAt time.Time
	ticks      uint64
	lastTick   time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source used for weapon lifetimes and recharge.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithEventBus sets the bus simulation events are published on.
func WithEventBus(b *event.Bus) Option {
	return func(r *Registry) { r.bus = b }
}

// NewRegistry creates an empty registry. The config must already be valid.
func NewRegistry(cfg *config.Config, opts ...Option) (*Registry, error) {
	r := &Registry{
		cfg:    cfg,
		clock:  clock.System{},
		logger: logging.Discard(),
		bus:    event.NewEventBus(),
		index:  make(map[entity.ID]entity.Entity),
	}
	for _, opt := range opts {
		opt(r)
	}
	m, err := newMetrics(r)
	if err != nil {
		return nil, fmt.Errorf("creating registry metrics: %w", err)
	}
	r.metrics = m
	r.rechargeAt = r.clock.Now().Add(cfg.Vehicle.RechargeInterval.Duration)
	return r, nil
}

// Events returns the bus the registry publishes on. Tick events are
// delivered after the tick has finished and the registry is unlocked.
func (r *Registry) Events() *event.Bus { return r.bus }

// Config returns the configuration the registry was built with.
func (r *Registry) Config() *config.Config { return r.cfg }

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time { return r.clock.Now() }

// Add inserts e. Nil and already-present entities are ignored.
func (r *Registry) Add(e entity.Entity) {
	if e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[e.ID()]; ok {
		return
	}
	r.entities = append(r.entities, e)
	r.index[e.ID()] = e
}

// Remove deletes the entity with the given id. Missing ids are ignored.
func (r *Registry) Remove(id entity.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(map[entity.ID]bool{id: true})
}

// removeLocked requires mu held for writing.
func (r *Registry) removeLocked(ids map[entity.ID]bool) {
	if len(ids) == 0 {
		return
	}
	for id := range ids {
		delete(r.index, id)
	}
	r.entities = slices.DeleteFunc(r.entities, func(e entity.Entity) bool {
		return ids[e.ID()]
	})
}

// Tick advances the simulation by one step:
//
//  1. every entity present at the start of the tick moves once; entities
//     whose Move returns false are removed and skip the rest of the tick;
//  2. if the recharge deadline has passed every vehicle gains the recharge
//     amount and the deadline is rescheduled once;
//  3. for every ordered pair (o, e) of surviving entities with o != e,
//     o.Affect(e) is called exactly once;
//  4. entities no longer alive are removed.
//
// Events raised during the tick are published after the registry lock is
// released, so handlers may query the registry.
func (r *Registry) Tick() {
	for _, e := range r.tickLocked() {
		r.bus.Publish(e)
	}
}

func (r *Registry) tickLocked() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var raised []event.Event

	now := r.clock.Now()
	world := tickWorld{r: r, now: now}
	pass := slices.Clone(r.entities)

	survivors := make([]entity.Entity, 0, len(pass))
	expired := make(map[entity.ID]bool)
	for _, e := range pass {
		if e.Move(world) {
			survivors = append(survivors, e)
			continue
		}
		expired[e.ID()] = true
		raised = append(raised, event.NewEntityEvent(event.EntityExpired, r, uint64(e.ID()), e.Kind().String()))
	}
	r.removeLocked(expired)

	recharge := !now.Before(r.rechargeAt)
	for _, e := range survivors {
		if recharge && e.Kind() == entity.KindVehicle {
			e.AddEnergy(r.cfg.Vehicle.RechargeAmount)
		}
		for _, o := range survivors {
			if o.ID() == e.ID() {
				continue
			}
			o.Affect(e)
		}
	}
	if recharge {
		r.rechargeAt = now.Add(r.cfg.Vehicle.RechargeInterval.Duration)
	}

	dead := make(map[entity.ID]bool)
	for _, e := range survivors {
		raised = r.reportLocked(e, raised)
		if !e.Alive() {
			dead[e.ID()] = true
			raised = append(raised, event.NewEntityEvent(event.EntityDestroyed, r, uint64(e.ID()), e.Kind().String()))
		}
	}
	r.removeLocked(dead)

	r.ticks++
	r.lastTick = now
	return raised
}

// reportLocked appends what happened to e during the tick to raised and
// credits kills.
func (r *Registry) reportLocked(e entity.Entity, raised []event.Event) []event.Event {
	switch x := e.(type) {
	case *entity.Vehicle:
		for _, rs := range x.TakeRespawns() {
			if rs.KillerID != 0 && rs.KillerID != x.ID() {
				if killer, ok := r.index[rs.KillerID].(*entity.Vehicle); ok {
					killer.CreditKill()
				}
			}
			destroyed := event.NewVehicleEvent(event.VehicleDestroyed, r, uint64(x.ID()), x.Name())
			destroyed.KillerID = uint64(rs.KillerID)
			destroyed.DeathCount = rs.DeathCount
			raised = append(raised, destroyed)

			respawned := event.NewVehicleEvent(event.VehicleRespawned, r, uint64(x.ID()), x.Name())
			respawned.DeathCount = rs.DeathCount
			raised = append(raised, respawned)

			r.logger.Debug(context.Background(), "vehicle respawned",
				"vehicle", x.Name(), "killer", uint64(rs.KillerID), "deaths", rs.DeathCount)
		}
	case *entity.Reward:
		for _, c := range x.TakeCollections() {
			raised = append(raised, event.NewRewardEvent(r, uint64(c.RewardID), uint64(c.VehicleID), c.Bonus))
		}
	}
	return raised
}

// Run ticks until ctx is cancelled, pacing ticks to the configured budget.
// An overrun is logged, counted and published, and the next tick starts at
// once without trying to catch up. A panicking tick ends the loop with an
// error wrapping ErrTickPanic.
func (r *Registry) Run(ctx context.Context) error {
	budget := r.cfg.Timing.TickBudget.Duration
	r.logger.Info(ctx, "tick loop started", "budget", budget.String())
	defer func() { r.logger.Info(ctx, "tick loop stopped", "ticks", r.Ticks()) }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		if err := r.safeTick(ctx); err != nil {
			return err
		}
		elapsed := time.Since(start)
		r.metrics.recordTick(ctx, elapsed)

		if elapsed > budget {
			tick := r.Ticks()
			r.metrics.recordOverrun(ctx)
			r.logger.Warn(ctx, "tick overrun", "tick", tick, "elapsed", elapsed.String(), "budget", budget.String())
			r.bus.Publish(event.NewOverrunEvent(r, tick, elapsed, budget))
			continue
		}

		timer := time.NewTimer(budget - elapsed)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Registry) safeTick(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanic, rec)
			r.logger.Error(ctx, "tick loop terminated", err, "tick", r.Ticks())
		}
	}()
	r.Tick()
	return nil
}

// Ticks returns the number of completed ticks.
func (r *Registry) Ticks() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ticks
}

// LastTick returns the clock reading of the most recent tick.
func (r *Registry) LastTick() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastTick
}

// Count returns the number of live entities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// ByID returns a snapshot of the entity with the given id.
func (r *Registry) ByID(id entity.ID) (entity.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.index[id]
	if !ok {
		return entity.Snapshot{}, false
	}
	return e.Snapshot(), true
}

// Vehicle returns the command handle of a registered vehicle.
func (r *Registry) Vehicle(id entity.ID) (*entity.Vehicle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.index[id].(*entity.Vehicle)
	return v, ok
}

// Vehicles returns every registered vehicle in insertion order.
func (r *Registry) Vehicles() []*entity.Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Vehicle
	for _, e := range r.entities {
		if v, ok := e.(*entity.Vehicle); ok {
			out = append(out, v)
		}
	}
	return out
}

// Snapshots returns a snapshot of every live entity.
func (r *Registry) Snapshots() []entity.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Snapshot, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e.Snapshot())
	}
	return out
}

// ClosestTo returns the entity nearest to point. The environment has no
// location and is never returned.
func (r *Registry) ClosestTo(point physics.Vector2D) (entity.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nearestLocked(point, func(entity.Entity) bool { return true })
}

// ClosestToEntity returns the entity nearest to the one with the given id,
// excluding that entity itself.
func (r *Registry) ClosestToEntity(id entity.ID) (entity.Snapshot, bool) {
	return r.closestToEntity(id, func(e entity.Entity) bool { return e.ID() != id })
}

// ClosestVehicleTo returns the nearest other vehicle.
func (r *Registry) ClosestVehicleTo(id entity.ID) (entity.Snapshot, bool) {
	return r.closestToEntity(id, func(e entity.Entity) bool {
		return e.ID() != id && e.Kind() == entity.KindVehicle
	})
}

// ClosestThreatTo returns the nearest weapon not owned by id.
func (r *Registry) ClosestThreatTo(id entity.ID) (entity.Snapshot, bool) {
	return r.closestToEntity(id, func(e entity.Entity) bool {
		w, ok := e.(entity.Weapon)
		return ok && w.Owner() != id && w.Alive()
	})
}

// ClosestRewardTo returns the nearest reward.
func (r *Registry) ClosestRewardTo(id entity.ID) (entity.Snapshot, bool) {
	return r.closestToEntity(id, func(e entity.Entity) bool { return e.Kind() == entity.KindReward })
}

func (r *Registry) closestToEntity(id entity.ID, keep func(entity.Entity) bool) (entity.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	self, ok := r.index[id]
	if !ok {
		return entity.Snapshot{}, false
	}
	return r.nearestLocked(self.Position(), keep)
}

// nearestLocked requires mu held.
func (r *Registry) nearestLocked(from physics.Vector2D, keep func(entity.Entity) bool) (entity.Snapshot, bool) {
	var best entity.Entity
	bestDist := 0.0
	for _, e := range r.entities {
		if e.Kind() == entity.KindEnvironment || !keep(e) {
			continue
		}
		d := e.Position().DistanceSquared(from)
		if best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	if best == nil {
		return entity.Snapshot{}, false
	}
	return best.Snapshot(), true
}

// tickWorld is the World handed to Move. It reads registry state directly
// because the tick already holds the registry lock.
type tickWorld struct {
	r   *Registry
	now time.Time
}

func (w tickWorld) Now() time.Time { return w.now }

func (w tickWorld) ClosestVehicle(from physics.Vector2D, exclude ...entity.ID) (entity.Snapshot, bool) {
	return w.r.nearestLocked(from, func(e entity.Entity) bool {
		return e.Kind() == entity.KindVehicle && !slices.Contains(exclude, e.ID())
	})
}
