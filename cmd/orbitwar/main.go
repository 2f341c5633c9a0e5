// cmd/orbitwar/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/opd-ai/go-orbitwar/pkg/agent"
	"github.com/opd-ai/go-orbitwar/pkg/config"
	"github.com/opd-ai/go-orbitwar/pkg/entity"
	"github.com/opd-ai/go-orbitwar/pkg/game"
	"github.com/opd-ai/go-orbitwar/pkg/health"
	"github.com/opd-ai/go-orbitwar/pkg/logging"
	"github.com/opd-ai/go-orbitwar/pkg/render"
)

// renderPeriod is the terminal frame interval.
const renderPeriod = 100 * time.Millisecond

func main() {
	configPath := flag.String("config", "orbitwar.json", "Path to configuration file (.json, .toml, .yaml)")
	createDefault := flag.Bool("default", false, "Write the default configuration to -config and exit")
	bots := flag.Int("bots", 3, "Number of computer-controlled vehicles")
	policy := flag.String("policy", "hunter", "Computer policy: hunter, evader, turret or lua")
	scriptPath := flag.String("script", "", "Lua policy script for -policy=lua")
	humanName := flag.String("human", "", "Add a keyboard-controlled vehicle with this name")
	renderMode := flag.String("render", "none", "Renderer: none, log or terminal")
	duration := flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	healthPort := flag.Int("health-port", 0, "Serve /health and /ready on this port (0 disables)")
	flag.Parse()

	ctx := context.Background()
	bootLogger := logging.NewLogger()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			bootLogger.Error(ctx, "Failed to create default configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
		bootLogger.Info(ctx, "Created default configuration file", "config_path", *configPath)
		return
	}

	cfg, err := loadConfig(*configPath, bootLogger)
	if err != nil {
		bootLogger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: os.Stderr,
	})

	if err := run(ctx, cfg, logger, runOptions{
		bots:       *bots,
		policy:     *policy,
		scriptPath: *scriptPath,
		human:      *humanName,
		render:     *renderMode,
		duration:   *duration,
		healthPort: *healthPort,
	}); err != nil {
		logger.Error(ctx, "Simulation failed", err)
		os.Exit(1)
	}
}

type runOptions struct {
	bots       int
	policy     string
	scriptPath string
	human      string
	render     string
	duration   time.Duration
	healthPort int
}

// loadConfig reads path when it exists, falls back to defaults otherwise, and
// applies ORBITWAR_* overrides.
func loadConfig(path string, logger *logging.Logger) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info(context.Background(), "Configuration file not found, using default configuration",
			"config_path", path,
		)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(parent context.Context, cfg *config.Config, logger *logging.Logger, opts runOptions) error {
	sim, err := game.New(cfg, game.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := sim.ConfigureEnvironment(cfg.World.Boundary, cfg.Setup.Planets, cfg.Setup.Asteroids, cfg.Setup.Rewards); err != nil {
		return err
	}
	if err := addBots(sim, opts); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.human != "" {
		h, err := sim.AddHuman(opts.human)
		if err != nil {
			return err
		}
		restore, err := rawStdin()
		if err != nil {
			return err
		}
		defer restore()
		go readKeys(ctx, os.Stdin, h, cancel)
	}

	if opts.healthPort > 0 {
		srv := startHealthServer(sim, opts.healthPort, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error(shutdownCtx, "Health check server shutdown failed", err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sim.Run(gctx) })
	if r := newRenderer(opts.render, cfg, logger); r != nil {
		g.Go(func() error {
			err := render.Loop(gctx, withScoreboard(r, sim), sim.Registry(), renderPeriod)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		})
	}
	err = g.Wait()

	for i, s := range sim.Scoreboard() {
		logger.Info(parent, "final score",
			"rank", i+1,
			"name", s.Name,
			"kills", s.Kills,
			"deaths", s.Deaths,
		)
	}
	return err
}

func addBots(sim *game.Simulation, opts runOptions) error {
	kind, err := agent.ParsePolicyKind(opts.policy)
	if err != nil {
		return err
	}

	var source string
	if kind == agent.PolicyLua {
		if opts.scriptPath == "" {
			return errors.New("-policy=lua needs -script")
		}
		data, err := os.ReadFile(opts.scriptPath)
		if err != nil {
			return logging.WrapError(err, "reading script %s", opts.scriptPath)
		}
		source = string(data)
	}

	for i := 1; i <= opts.bots; i++ {
		name := fmt.Sprintf("%s-%d", kind, i)
		if kind == agent.PolicyLua {
			_, err = sim.AddScriptedAgent(name, source)
		} else {
			_, err = sim.AddComputerAgent(kind, name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// rawStdin switches stdin to raw mode so single key presses arrive at once.
func rawStdin() (func(), error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enable raw mode: %w", err)
	}
	return func() { _ = term.Restore(fd, oldState) }, nil
}

func startHealthServer(sim *game.Simulation, port int, logger *logging.Logger) *http.Server {
	checker := health.NewHealthChecker()
	maxStale := 10 * sim.Config().Timing.TickBudget.Duration
	checker.AddCheck(health.NewTickLoopHealthCheck(sim.Registry(), maxStale))
	checker.AddCheck(health.NewAgentsHealthCheck(1, sim.ActiveAgents))
	checker.AddCheck(health.NewMemoryHealthCheck(500, nil))

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      checker.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info(context.Background(), "Starting health check server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "Health check server failed", err)
		}
	}()
	return srv
}

func newRenderer(mode string, cfg *config.Config, logger *logging.Logger) render.Renderer {
	switch mode {
	case "terminal":
		cols, rows := 80, 24
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			cols, rows = w-2, h-8
		}
		arena := entity.Arena{Width: cfg.World.Width, Height: cfg.World.Height}
		return render.NewArenaRenderer(os.Stdout, max(cols, 10), max(rows, 5), arena)
	case "log":
		return render.NewNullRenderer(logger)
	}
	return nil
}

// scoreboardRenderer refreshes the terminal status lines before each frame.
type scoreboardRenderer struct {
	render.Renderer
	sim *game.Simulation
}

func withScoreboard(r render.Renderer, sim *game.Simulation) render.Renderer {
	if _, ok := r.(*render.TerminalRenderer); !ok {
		return r
	}
	return scoreboardRenderer{Renderer: r, sim: sim}
}

func (s scoreboardRenderer) Present() error {
	board := s.sim.Scoreboard()
	lines := make([]string, 0, len(board))
	for _, row := range board {
		lines = append(lines, fmt.Sprintf("%-20s kills %3d  deaths %3d  energy %6.0f",
			row.Name, row.Kills, row.Deaths, row.Energy))
	}
	s.Renderer.(*render.TerminalRenderer).SetStatus(lines...)
	return s.Renderer.Present()
}
