package agent

import (
	"context"
	"sync"

	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/logging"
)

// Key is a control a human can hold down.
type Key int

const (
	KeyLeft Key = iota
	KeyRight
	KeyThrust
	KeyRetro
	KeyFire
	KeyWeapon
)

var keyNames = [...]string{"left", "right", "thrust", "retro", "fire", "weapon"}

func (k Key) String() string {
	if k < 0 || int(k) >= len(keyNames) {
		return "unknown"
	}
	return keyNames[k]
}

// Human turns held keys into vehicle commands once per cycle. Several keys
// may be held at once. Weapon change fires once per press.
type Human struct {
	pilot

	mu         sync.Mutex
	held       map[Key]bool
	tapped     map[Key]bool
	weaponDown bool
}

// NewHuman creates a human agent flying v.
func NewHuman(name string, v *entity.Vehicle, w World, cfg Timing, logger *logging.Logger) *Human {
	return &Human{
		pilot:  newPilot(name, v, w, cfg.HumanPeriod, logger),
		held:   make(map[Key]bool),
		tapped: make(map[Key]bool),
	}
}

// Press marks k as held until Release.
func (h *Human) Press(k Key) {
	h.mu.Lock()
	h.held[k] = true
	h.mu.Unlock()
}

// Release clears k.
func (h *Human) Release(k Key) {
	h.mu.Lock()
	delete(h.held, k)
	h.mu.Unlock()
}

// Tap holds k for the next cycle only, for inputs that report key-down but
// never key-up.
func (h *Human) Tap(k Key) {
	h.mu.Lock()
	h.tapped[k] = true
	h.mu.Unlock()
}

// Held reports whether k is currently pressed or tapped.
func (h *Human) Held(k Key) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.held[k] || h.tapped[k]
}

// Step runs one decision cycle.
func (h *Human) Step(ctx context.Context) error {
	h.mu.Lock()
	down := make(map[Key]bool, len(h.held)+len(h.tapped))
	for k := range h.held {
		down[k] = true
	}
	for k := range h.tapped {
		down[k] = true
	}
	clear(h.tapped)
	changeWeapon := down[KeyWeapon] && !h.weaponDown
	h.weaponDown = down[KeyWeapon]
	h.mu.Unlock()

	c := Commands{
		Thrust:       down[KeyThrust],
		Retro:        down[KeyRetro],
		Fire:         down[KeyFire],
		ChangeWeapon: changeWeapon,
	}
	if down[KeyLeft] {
		c.Turn--
	}
	if down[KeyRight] {
		c.Turn++
	}
	h.apply(ctx, c)
	return nil
}

// Run drives the vehicle until ctx is cancelled.
func (h *Human) Run(ctx context.Context) error {
	return h.run(ctx, h.Step)
}
