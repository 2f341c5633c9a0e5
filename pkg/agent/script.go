package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	lua "github.com/yuin/gopher-lua"

	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/logging"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
)

// ErrScript wraps every failure to load or run a policy script.
var ErrScript = errors.New("policy script")

// scriptCallTimeout bounds a single call to the script's decide function.
const scriptCallTimeout = 50 * time.Millisecond

// ScriptPolicy runs a Lua function as a computer policy.
//
// The script must define a global decide(situation) returning a table with
// any of: thrust, retro, fire, change_weapon (booleans), turn ("left" or
// "right"), toward and away ({x=..., y=...}). Calls go through a circuit
// breaker; while it is open, or when a call fails, the fallback policy
// decides instead.
type ScriptPolicy struct {
	mu       sync.Mutex
	vm       *lua.LState
	breaker  *gobreaker.CircuitBreaker
	fallback Policy
	logger   *logging.Logger
}

// NewScriptPolicy loads source into a fresh Lua state. Failures to run the
// chunk or a missing decide function wrap ErrScript.
func NewScriptPolicy(name, source string, cfg *config.Config, fallback Policy, logger *logging.Logger) (*ScriptPolicy, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	if err := vm.DoString(source); err != nil {
		vm.Close()
		return nil, fmt.Errorf("%w: load %s: %v", ErrScript, name, err)
	}
	if vm.GetGlobal("decide").Type() != lua.LTFunction {
		vm.Close()
		return nil, fmt.Errorf("%w: %s does not define decide(situation)", ErrScript, name)
	}

	p := &ScriptPolicy{vm: vm, fallback: fallback, logger: logger}
	failures := cfg.AI.BreakerFailures
	if failures == 0 {
		failures = 1
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "lua-" + name,
		Timeout: cfg.AI.BreakerCooldown.Duration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return p, nil
}

// Decide implements Policy.
func (p *ScriptPolicy) Decide(s Situation) Commands {
	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.call(s)
	})
	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.logger.Warn(context.Background(), "script decision failed, using fallback", "error", err.Error())
		}
		if p.fallback == nil {
			return Commands{}
		}
		return p.fallback.Decide(s)
	}
	return out.(Commands)
}

// State reports the circuit breaker state.
func (p *ScriptPolicy) State() gobreaker.State {
	return p.breaker.State()
}

// Close releases the Lua state.
func (p *ScriptPolicy) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vm != nil {
		p.vm.Close()
		p.vm = nil
	}
}

func (p *ScriptPolicy) call(s Situation) (Commands, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vm == nil {
		return Commands{}, fmt.Errorf("%w: state closed", ErrScript)
	}

	ctx, cancel := context.WithTimeout(context.Background(), scriptCallTimeout)
	defer cancel()
	p.vm.SetContext(ctx)
	defer p.vm.RemoveContext()

	if err := p.vm.CallByParam(lua.P{
		Fn:      p.vm.GetGlobal("decide"),
		NRet:    1,
		Protect: true,
	}, p.situationTable(s)); err != nil {
		return Commands{}, fmt.Errorf("%w: decide: %v", ErrScript, err)
	}

	result := p.vm.Get(-1)
	p.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return Commands{}, fmt.Errorf("%w: decide returned %s, want table", ErrScript, result.Type())
	}
	return commandsFromTable(rt)
}

func (p *ScriptPolicy) situationTable(s Situation) *lua.LTable {
	t := p.vm.NewTable()
	t.RawSetString("self", p.snapshotTable(s.Self))
	t.RawSetString("weapon", lua.LNumber(s.WeaponIndex))
	if s.HasThreat {
		t.RawSetString("threat", p.snapshotTable(s.Threat))
	}
	if s.HasEnemy {
		t.RawSetString("enemy", p.snapshotTable(s.Enemy))
	}
	if s.HasReward {
		t.RawSetString("reward", p.snapshotTable(s.Reward))
	}
	return t
}

func (p *ScriptPolicy) snapshotTable(snap entity.Snapshot) *lua.LTable {
	t := p.vm.NewTable()
	t.RawSetString("id", lua.LNumber(snap.ID))
	t.RawSetString("kind", lua.LString(snap.Kind.String()))
	t.RawSetString("x", lua.LNumber(snap.Position.X))
	t.RawSetString("y", lua.LNumber(snap.Position.Y))
	t.RawSetString("vx", lua.LNumber(snap.Velocity.X))
	t.RawSetString("vy", lua.LNumber(snap.Velocity.Y))
	t.RawSetString("radius", lua.LNumber(snap.Radius))
	t.RawSetString("energy", lua.LNumber(snap.Energy))
	t.RawSetString("heading", lua.LNumber(snap.Heading))
	t.RawSetString("damage", lua.LNumber(snap.Damage))
	t.RawSetString("owner", lua.LNumber(snap.OwnerID))
	return t
}

func commandsFromTable(t *lua.LTable) (Commands, error) {
	c := Commands{
		Thrust:       lua.LVAsBool(t.RawGetString("thrust")),
		Retro:        lua.LVAsBool(t.RawGetString("retro")),
		Fire:         lua.LVAsBool(t.RawGetString("fire")),
		ChangeWeapon: lua.LVAsBool(t.RawGetString("change_weapon")),
	}

	switch turn := t.RawGetString("turn"); turn {
	case lua.LNil:
	case lua.LString("left"):
		c.Turn = -1
	case lua.LString("right"):
		c.Turn = 1
	default:
		return Commands{}, fmt.Errorf("%w: turn must be \"left\" or \"right\", got %s", ErrScript, turn.String())
	}

	var err error
	if c.Toward, err = pointFromValue("toward", t.RawGetString("toward")); err != nil {
		return Commands{}, err
	}
	if c.Away, err = pointFromValue("away", t.RawGetString("away")); err != nil {
		return Commands{}, err
	}
	return c, nil
}

func pointFromValue(field string, v lua.LValue) (*physics.Vector2D, error) {
	if v == lua.LNil {
		return nil, nil
	}
	pt, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a table, got %s", ErrScript, field, v.Type())
	}
	x, xok := pt.RawGetString("x").(lua.LNumber)
	y, yok := pt.RawGetString("y").(lua.LNumber)
	if !xok || !yok {
		return nil, fmt.Errorf("%w: %s needs numeric x and y", ErrScript, field)
	}
	return &physics.Vector2D{X: float64(x), Y: float64(y)}, nil
}
