package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-orbitwar/pkg/agent"
	"github.com/opd-ai/go-orbitwar/pkg/clock"
	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/event"
	"github.com/opd-ai/go-orbitwar/pkg/validation"
)

func fastConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timing.TickBudget = config.Duration{Duration: 2 * time.Millisecond}
	cfg.Timing.HumanPeriod = config.Duration{Duration: time.Millisecond}
	cfg.Timing.ComputerPeriod = config.Duration{Duration: time.Millisecond}
	return cfg
}

func newSim(t *testing.T, cfg *config.Config) *Simulation {
	t.Helper()
	s, err := New(cfg, WithClock(clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, err)
	return s
}

func kindCounts(s *Simulation) map[entity.Kind]int {
	out := make(map[entity.Kind]int)
	for _, snap := range s.Registry().Snapshots() {
		out[snap.Kind]++
	}
	return out
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg := config.DefaultConfig()
	cfg.World.Width = 0
	_, err = New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestConfigureEnvironment(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Setup.Spinners = 2
	s := newSim(t, cfg)
	_, err := s.AddVehicle("keeper")
	require.NoError(t, err)

	require.NoError(t, s.ConfigureEnvironment(config.BoundaryBounce, 3, 4, 5))
	counts := kindCounts(s)
	assert.Equal(t, 3, counts[entity.KindPlanet])
	assert.Equal(t, 2, counts[entity.KindSpinner])
	assert.Equal(t, 4, counts[entity.KindAsteroid])
	assert.Equal(t, 5, counts[entity.KindReward])
	assert.Equal(t, 1, counts[entity.KindVehicle])
	assert.Equal(t, 1, counts[entity.KindEnvironment])
	assert.Equal(t, 3+2+4+5+1+1, s.Registry().Count())

	// Reconfiguring replaces the previous set-up and keeps vehicles.
	require.NoError(t, s.ConfigureEnvironment(config.BoundaryWrap, 1, 0, 0))
	counts = kindCounts(s)
	assert.Equal(t, 1, counts[entity.KindPlanet])
	assert.Equal(t, 2, counts[entity.KindSpinner])
	assert.Zero(t, counts[entity.KindAsteroid])
	assert.Zero(t, counts[entity.KindReward])
	assert.Equal(t, 1, counts[entity.KindVehicle])
	assert.Equal(t, 1, counts[entity.KindEnvironment])
	assert.Equal(t, 1+2+1+1, s.Registry().Count())
}

func TestConfigureEnvironment_BodiesDoNotOverlap(t *testing.T) {
	s := newSim(t, config.DefaultConfig())
	require.NoError(t, s.ConfigureEnvironment(config.BoundaryWrap, 3, 0, 2))

	var bodies []entity.Snapshot
	for _, snap := range s.Registry().Snapshots() {
		if snap.Kind == entity.KindPlanet || snap.Kind == entity.KindSpinner || snap.Kind == entity.KindReward {
			bodies = append(bodies, snap)
		}
	}
	require.Len(t, bodies, 3+1+2)
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			d := bodies[i].Position.Distance(bodies[j].Position)
			assert.Greater(t, d, bodies[i].Radius+bodies[j].Radius)
		}
	}
}

func TestConfigureEnvironment_Errors(t *testing.T) {
	s := newSim(t, config.DefaultConfig())
	assert.ErrorIs(t, s.ConfigureEnvironment("spiral", 1, 1, 1), config.ErrInvalidConfig)
	assert.ErrorIs(t, s.ConfigureEnvironment(config.BoundaryWrap, -1, 0, 0), config.ErrInvalidConfig)
	assert.Zero(t, s.Registry().Count())
}

func TestAddVehicle(t *testing.T) {
	s := newSim(t, config.DefaultConfig())

	var spawned []*event.VehicleEvent
	s.Events().Subscribe(event.VehicleSpawned, func(e event.Event) {
		spawned = append(spawned, e.(*event.VehicleEvent))
	})

	v, err := s.AddVehicle("  Red Baron ")
	require.NoError(t, err)
	assert.Equal(t, "Red Baron", v.Name())
	assert.Equal(t, s.Config().Vehicle.MaxEnergy, v.Energy())

	_, ok := s.Registry().Vehicle(v.ID())
	assert.True(t, ok)
	require.Len(t, spawned, 1)
	assert.Equal(t, uint64(v.ID()), spawned[0].VehicleID)
	assert.Equal(t, "Red Baron", spawned[0].Name)

	_, err = s.AddVehicle("<b>bold</b>")
	assert.ErrorIs(t, err, validation.ErrInvalidName)
	assert.Equal(t, 1, s.Registry().Count())
}

func TestAddAgents(t *testing.T) {
	s := newSim(t, config.DefaultConfig())

	h, err := s.AddHuman("pilot")
	require.NoError(t, err)
	assert.Equal(t, "pilot", h.Name())

	c, err := s.AddComputerAgent(agent.PolicyTurret, "turret-1")
	require.NoError(t, err)
	assert.IsType(t, &agent.Turret{}, c.Policy())

	_, err = s.AddComputerAgent(agent.PolicyLua, "scripted")
	assert.ErrorIs(t, err, agent.ErrUnknownPolicy)
	_, err = s.AddComputerAgent(agent.PolicyKind("kamikaze"), "k")
	assert.ErrorIs(t, err, agent.ErrUnknownPolicy)

	sc, err := s.AddScriptedAgent("lua-1", `function decide(s) return { turn = "right" } end`)
	require.NoError(t, err)
	assert.IsType(t, &agent.ScriptPolicy{}, sc.Policy())

	_, err = s.AddScriptedAgent("lua-2", "")
	assert.ErrorIs(t, err, validation.ErrInvalidScript)
	_, err = s.AddScriptedAgent("lua-3", "function decide(")
	assert.ErrorIs(t, err, agent.ErrScript)
	_, err = s.AddScriptedAgent("", `function decide(s) return {} end`)
	assert.ErrorIs(t, err, validation.ErrInvalidName)

	assert.Len(t, s.Agents(), 3)
	assert.Equal(t, 3, s.Registry().Count())
}

func TestScoreboard(t *testing.T) {
	s := newSim(t, config.DefaultConfig())
	ace, err := s.AddVehicle("ace")
	require.NoError(t, err)
	rookie, err := s.AddVehicle("rookie")
	require.NoError(t, err)
	veteran, err := s.AddVehicle("veteran")
	require.NoError(t, err)

	ace.CreditKill()
	ace.CreditKill()
	veteran.CreditKill()
	rookie.Die()
	rookie.Die()
	veteran.Die()

	board := s.Scoreboard()
	require.Len(t, board, 3)
	assert.Equal(t, []string{"ace", "veteran", "rookie"},
		[]string{board[0].Name, board[1].Name, board[2].Name})
	assert.Equal(t, 2, board[0].Kills)
	assert.Equal(t, 2, board[2].Deaths)
	assert.Equal(t, s.Config().Vehicle.MaxEnergy, board[2].Energy)
}

func TestRun(t *testing.T) {
	s, err := New(fastConfig())
	require.NoError(t, err)
	require.NoError(t, s.ConfigureEnvironment(config.BoundaryWrap, 1, 1, 1))
	for _, kind := range []agent.PolicyKind{agent.PolicyHunter, agent.PolicyEvader, agent.PolicyTurret} {
		_, err := s.AddComputerAgent(kind, string(kind))
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return s.Registry().Ticks() > 2 && s.ActiveAgents() == 3
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.Run(ctx), ErrAlreadyRunning)

	// Agents added while running start straight away.
	_, err = s.AddHuman("late")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.ActiveAgents() == 4 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Zero(t, s.ActiveAgents())
}

func TestRun_AgentFailureDoesNotStopOthers(t *testing.T) {
	s, err := New(fastConfig())
	require.NoError(t, err)

	c, err := s.AddComputerAgent(agent.PolicyHunter, "doomed")
	require.NoError(t, err)
	_, err = s.AddComputerAgent(agent.PolicyTurret, "survivor")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.ActiveAgents() == 2 }, time.Second, time.Millisecond)
	s.Registry().Remove(c.Vehicle().ID())
	require.Eventually(t, func() bool { return s.ActiveAgents() == 1 }, time.Second, time.Millisecond)

	ticks := s.Registry().Ticks()
	require.Eventually(t, func() bool { return s.Registry().Ticks() > ticks }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
