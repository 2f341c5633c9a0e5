// pkg/event/event.go
package event

import (
	"sync"
	"time"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	VehicleSpawned   Type = "vehicle_spawned"
	VehicleRespawned Type = "vehicle_respawned"
	VehicleDestroyed Type = "vehicle_destroyed"
	WeaponFired      Type = "weapon_fired"
	EntityExpired    Type = "entity_expired"
	EntityDestroyed  Type = "entity_destroyed"
	RewardCollected  Type = "reward_collected"
	TickOverrun      Type = "tick_overrun"
	AgentStopped     Type = "agent_stopped"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// Publisher is the publishing half of a Bus.
type Publisher interface {
	Publish(Event)
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies one registered handler.
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type registration struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching.
// Handlers run synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]registration
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registration),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Type:   eventType,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, reg := range handlers {
		if reg.id == id {
			kept := make([]registration, 0, len(handlers)-1)
			kept = append(kept, handlers[:i]...)
			b.handlers[eventType] = append(kept, handlers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribed handlers. A nil bus drops the event.
func (b *Bus) Publish(event Event) {
	if b == nil || event == nil {
		return
	}
	b.mu.RLock()
	handlers := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, reg := range handlers {
		reg.handler(event)
	}
}

// Specific event implementations

// VehicleEvent reports a vehicle spawning, respawning or being destroyed.
// KillerID is the owner of the weapon that caused a destruction, zero otherwise.
type VehicleEvent struct {
	BaseEvent
	VehicleID  uint64
	Name       string
	KillerID   uint64
	DeathCount int
}

// NewVehicleEvent creates a new vehicle event
func NewVehicleEvent(eventType Type, source interface{}, vehicleID uint64, name string) *VehicleEvent {
	return &VehicleEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source},
		VehicleID: vehicleID,
		Name:      name,
	}
}

// WeaponEvent reports a weapon leaving a vehicle.
type WeaponEvent struct {
	BaseEvent
	WeaponID uint64
	OwnerID  uint64
	Kind     string
}

// NewWeaponEvent creates a new weapon fired event
func NewWeaponEvent(source interface{}, weaponID, ownerID uint64, kind string) *WeaponEvent {
	return &WeaponEvent{
		BaseEvent: BaseEvent{EventType: WeaponFired, Source: source},
		WeaponID:  weaponID,
		OwnerID:   ownerID,
		Kind:      kind,
	}
}

// EntityEvent reports an entity leaving the registry.
type EntityEvent struct {
	BaseEvent
	EntityID uint64
	Kind     string
}

// NewEntityEvent creates a new entity removal event
func NewEntityEvent(eventType Type, source interface{}, entityID uint64, kind string) *EntityEvent {
	return &EntityEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source},
		EntityID:  entityID,
		Kind:      kind,
	}
}

// RewardEvent reports a vehicle collecting a reward.
type RewardEvent struct {
	BaseEvent
	RewardID  uint64
	VehicleID uint64
	Bonus     float64
}

// NewRewardEvent creates a new reward collected event
func NewRewardEvent(source interface{}, rewardID, vehicleID uint64, bonus float64) *RewardEvent {
	return &RewardEvent{
		BaseEvent: BaseEvent{EventType: RewardCollected, Source: source},
		RewardID:  rewardID,
		VehicleID: vehicleID,
		Bonus:     bonus,
	}
}

// OverrunEvent reports a tick that took longer than its budget.
type OverrunEvent struct {
	BaseEvent
	Tick    uint64
	Elapsed time.Duration
	Budget  time.Duration
}

// NewOverrunEvent creates a new tick overrun event
func NewOverrunEvent(source interface{}, tick uint64, elapsed, budget time.Duration) *OverrunEvent {
	return &OverrunEvent{
		BaseEvent: BaseEvent{EventType: TickOverrun, Source: source},
		Tick:      tick,
		Elapsed:   elapsed,
		Budget:    budget,
	}
}

// AgentEvent reports an agent loop terminating. Err is nil on a clean stop.
type AgentEvent struct {
	BaseEvent
	VehicleID uint64
	Name      string
	Err       error
}

// NewAgentEvent creates a new agent stopped event
func NewAgentEvent(source interface{}, vehicleID uint64, name string, err error) *AgentEvent {
	return &AgentEvent{
		BaseEvent: BaseEvent{EventType: AgentStopped, Source: source},
		VehicleID: vehicleID,
		Name:      name,
		Err:       err,
	}
}
