// Package game assembles a registry, its environment and the agents that fly
// the vehicles, and runs them together.
package game

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/go-orbitwar/pkg/agent"
	"github.com/opd-ai/go-orbitwar/pkg/clock"
	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/engine"
	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/event"
	"github.com/opd-ai/go-orbitwar/pkg/logging"
	"github.com/opd-ai/go-orbitwar/pkg/physics"
	"github.com/opd-ai/go-orbitwar/pkg/validation"
)

// ErrAlreadyRunning is returned by Run while another Run is in progress.
var ErrAlreadyRunning = errors.New("simulation already running")

// placementAttempts bounds the search for a free spot for a new body.
const placementAttempts = 100

// Simulation owns a registry and the agents that act on it.
type Simulation struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *engine.Registry
	arena    entity.Arena

	mu       sync.Mutex
	setup    []entity.ID
	vehicles []*entity.Vehicle
	agents   []agent.Agent
	active   int

	// set while Run is in progress
	runCtx   context.Context
	group    *errgroup.Group
	stopping bool
}

type options struct {
	clock  clock.Clock
	logger *logging.Logger
	bus    *event.Bus
}

// Option customises a Simulation.
type Option func(*options)

// WithClock sets the clock the registry reads.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the parent logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEventBus makes the registry publish on b.
func WithEventBus(b *event.Bus) Option {
	return func(o *options) { o.bus = b }
}

// New validates cfg and builds an empty simulation.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	regOpts := []engine.Option{engine.WithLogger(o.logger.Component("engine"))}
	if o.clock != nil {
		regOpts = append(regOpts, engine.WithClock(o.clock))
	}
	if o.bus != nil {
		regOpts = append(regOpts, engine.WithEventBus(o.bus))
	}
	registry, err := engine.NewRegistry(cfg, regOpts...)
	if err != nil {
		return nil, logging.WrapError(err, "creating registry")
	}

	s := &Simulation{
		cfg:      cfg,
		logger:   o.logger.Component("game"),
		registry: registry,
		arena:    entity.Arena{Width: cfg.World.Width, Height: cfg.World.Height},
	}
	registry.Events().Subscribe(event.VehicleDestroyed, s.logDestroyed)
	return s, nil
}

// Registry returns the underlying registry.
func (s *Simulation) Registry() *engine.Registry { return s.registry }

// Config returns the configuration the simulation was built with.
func (s *Simulation) Config() *config.Config { return s.cfg }

// Events returns the bus simulation events are published on.
func (s *Simulation) Events() *event.Bus { return s.registry.Events() }

// ConfigureEnvironment replaces the environment set-up: the boundary,
// planets and the configured number of spinners, asteroids, and rewards.
// Vehicles are left alone.
func (s *Simulation) ConfigureEnvironment(mode config.BoundaryMode, planets, asteroids, rewards int) error {
	if mode != config.BoundaryWrap && mode != config.BoundaryBounce {
		return fmt.Errorf("%w: unknown boundary mode %q", config.ErrInvalidConfig, mode)
	}
	if planets < 0 || asteroids < 0 || rewards < 0 {
		return fmt.Errorf("%w: body counts must not be negative (planets %d, asteroids %d, rewards %d)",
			config.ErrInvalidConfig, planets, asteroids, rewards)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.setup {
		s.registry.Remove(id)
	}
	s.setup = s.setup[:0]

	b := s.cfg.Bodies
	var placed []physics.Circle
	add := func(e entity.Entity) {
		s.registry.Add(e)
		s.setup = append(s.setup, e.ID())
		placed = append(placed, physics.Circle{Center: e.Position(), Radius: e.Radius()})
	}

	s.setup = append(s.setup, s.addEnvironment(mode))
	for i := 0; i < planets; i++ {
		add(entity.NewPlanet(s.freeSpot(placed, b.PlanetRadius), b.PlanetRadius, b.PlanetMass))
	}
	for i := 0; i < s.cfg.Setup.Spinners; i++ {
		add(entity.NewSpinner(s.freeSpot(placed, b.SpinnerRadius), b.SpinnerRadius, b.SpinnerMass))
	}
	for i := 0; i < asteroids; i++ {
		add(entity.NewAsteroid(b, s.arena))
	}
	for i := 0; i < rewards; i++ {
		add(entity.NewReward(b, s.arena, s.freeSpot(placed, b.RewardRadius)))
	}

	s.logger.Info(context.Background(), "environment configured",
		"boundary", string(mode),
		"planets", planets,
		"spinners", s.cfg.Setup.Spinners,
		"asteroids", asteroids,
		"rewards", rewards,
	)
	return nil
}

func (s *Simulation) addEnvironment(mode config.BoundaryMode) entity.ID {
	env := entity.NewEnvironment(mode, s.arena)
	s.registry.Add(env)
	return env.ID()
}

// freeSpot picks a random position whose circle of the given radius, padded
// by a vehicle's diameter, clears every placed body. When the arena is too
// crowded the last candidate is used anyway.
func (s *Simulation) freeSpot(placed []physics.Circle, radius float64) physics.Vector2D {
	clearance := 2 * s.cfg.Vehicle.Radius
	var pos physics.Vector2D
	for attempt := 0; attempt < placementAttempts; attempt++ {
		pos = s.arena.RandomPosition()
		c := physics.Circle{Center: pos, Radius: radius + clearance}
		if !slices.ContainsFunc(placed, c.Touches) {
			return pos
		}
	}
	s.logger.Warn(context.Background(), "no free spot found, bodies may overlap", "radius", radius)
	return pos
}

// AddVehicle validates name and spawns a vehicle at a random position.
func (s *Simulation) AddVehicle(name string) (*entity.Vehicle, error) {
	clean, err := validation.ValidateName(name)
	if err != nil {
		return nil, err
	}

	v := entity.NewVehicle(s.cfg, clean, s.arena.RandomPosition())
	s.registry.Add(v)

	s.mu.Lock()
	s.vehicles = append(s.vehicles, v)
	s.mu.Unlock()

	s.registry.Events().Publish(event.NewVehicleEvent(event.VehicleSpawned, s, uint64(v.ID()), clean))
	s.logger.Info(context.Background(), "vehicle spawned", "name", clean, "vehicle", uint64(v.ID()))
	return v, nil
}

// AddHuman spawns a vehicle flown by keyboard input.
func (s *Simulation) AddHuman(name string) (*agent.Human, error) {
	v, err := s.AddVehicle(name)
	if err != nil {
		return nil, err
	}
	h := agent.NewHuman(v.Name(), v, s.registry, agent.TimingFrom(s.cfg), s.logger.Component("agent"))
	s.addAgent(h)
	return h, nil
}

// AddComputerAgent spawns a vehicle flown by a built-in policy.
func (s *Simulation) AddComputerAgent(kind agent.PolicyKind, name string) (*agent.Computer, error) {
	if kind == agent.PolicyLua {
		return nil, fmt.Errorf("%w: lua policies need a script", agent.ErrUnknownPolicy)
	}
	policy, err := agent.NewPolicy(kind, s.cfg)
	if err != nil {
		return nil, err
	}
	return s.addComputer(name, policy)
}

// AddScriptedAgent spawns a vehicle flown by a Lua script. While the script
// misbehaves the hunter policy flies instead.
func (s *Simulation) AddScriptedAgent(name, source string) (*agent.Computer, error) {
	if err := validation.ValidateScript(source); err != nil {
		return nil, err
	}
	policy, err := agent.NewScriptPolicy(name, source, s.cfg, agent.NewHunter(s.cfg), s.logger.Component("script"))
	if err != nil {
		return nil, err
	}
	c, err := s.addComputer(name, policy)
	if err != nil {
		policy.Close()
		return nil, err
	}
	return c, nil
}

func (s *Simulation) addComputer(name string, policy agent.Policy) (*agent.Computer, error) {
	v, err := s.AddVehicle(name)
	if err != nil {
		return nil, err
	}
	c := agent.NewComputer(v.Name(), v, s.registry, policy, agent.TimingFrom(s.cfg), s.logger.Component("agent"))
	s.addAgent(c)
	return c, nil
}

// addAgent records a and, if the simulation is running, starts it.
func (s *Simulation) addAgent(a agent.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = append(s.agents, a)
	if s.group != nil && !s.stopping {
		s.startLocked(a)
	}
}

// Agents returns the registered agents.
func (s *Simulation) Agents() []agent.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.agents)
}

// ActiveAgents returns how many agent loops are currently running.
func (s *Simulation) ActiveAgents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Run runs the tick loop and every agent until ctx is done or the tick loop
// fails. An agent that stops is logged and does not stop the others.
// Cancellation is not an error.
func (s *Simulation) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.group != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	g, gctx := errgroup.WithContext(ctx)
	s.group, s.runCtx, s.stopping = g, gctx, false
	g.Go(func() error {
		err := s.registry.Run(gctx)
		s.mu.Lock()
		s.stopping = true
		s.mu.Unlock()
		return err
	})
	for _, a := range s.agents {
		s.startLocked(a)
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "simulation started", "agents", len(s.Agents()))
	err := g.Wait()

	s.mu.Lock()
	s.group, s.runCtx = nil, nil
	s.mu.Unlock()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		s.logger.Error(ctx, "simulation stopped", err)
		return err
	}
	s.logger.Info(ctx, "simulation stopped", "ticks", s.registry.Ticks())
	return nil
}

// startLocked requires mu and a running group.
func (s *Simulation) startLocked(a agent.Agent) {
	ctx := s.runCtx
	s.active++
	s.group.Go(func() error {
		err := a.Run(ctx)
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
		if err != nil && ctx.Err() == nil {
			s.logger.Warn(ctx, "agent stopped early", "agent", a.Name(), "error", err.Error())
		}
		return nil
	})
}

// Score is one scoreboard row.
type Score struct {
	ID     entity.ID
	Name   string
	Kills  int
	Deaths int
	Energy float64
}

// Scoreboard lists every vehicle, most kills first, then fewest deaths.
func (s *Simulation) Scoreboard() []Score {
	s.mu.Lock()
	vehicles := slices.Clone(s.vehicles)
	s.mu.Unlock()

	out := make([]Score, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, Score{
			ID:     v.ID(),
			Name:   v.Name(),
			Kills:  v.Kills(),
			Deaths: v.DeathCount(),
			Energy: v.Energy(),
		})
	}
	slices.SortStableFunc(out, func(a, b Score) int {
		if c := cmp.Compare(b.Kills, a.Kills); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Deaths, b.Deaths); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func (s *Simulation) logDestroyed(e event.Event) {
	ve, ok := e.(*event.VehicleEvent)
	if !ok {
		return
	}
	s.logger.Info(context.Background(), "vehicle destroyed",
		"vehicle", ve.Name,
		"killer", ve.KillerID,
		"deaths", ve.DeathCount,
	)
}
