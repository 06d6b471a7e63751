// Package parking wires the episode controller and the planar world into
// the experiment runner.
package parking

import (
	"go.uber.org/zap"

	"github.com/zeu5/self-parking/agent"
	"github.com/zeu5/self-parking/core"
	"github.com/zeu5/self-parking/sim"
)

// ParkingEnv runs one controller against one world. Every Step is one
// controller tick followed by one physics step of the tick duration.
type ParkingEnv struct {
	ctrl  *agent.Controller
	world *sim.World
	dt    float64

	// fresh is set until the first Reset; the controller begins episode 1
	// on construction.
	fresh     bool
	telemetry string
	logger    *zap.Logger
}

var (
	_ core.Environment = &ParkingEnv{}
	_ agent.Telemetry  = &ParkingEnv{}
)

type ParkingEnvConfig struct {
	Agent agent.Config
	World sim.Config
	// Scheduler drives feedback reverts, the wall clock when nil.
	Scheduler agent.Scheduler
	Logger    *zap.Logger
}

func NewParkingEnv(c ParkingEnvConfig) (*ParkingEnv, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &ParkingEnv{
		world:  sim.NewWorld(c.World),
		dt:     c.Agent.TickDuration.Seconds(),
		fresh:  true,
		logger: logger,
	}
	opts := []agent.Option{
		agent.WithRenderer(e.world),
		agent.WithTelemetry(e),
		agent.WithLogger(logger),
	}
	if c.Scheduler != nil {
		opts = append(opts, agent.WithScheduler(c.Scheduler))
	}
	ctrl, err := agent.NewController(c.Agent, e.world, opts...)
	if err != nil {
		return nil, err
	}
	e.ctrl = ctrl
	return e, nil
}

// Display keeps the latest telemetry line for the progress output.
func (e *ParkingEnv) Display(text string) {
	e.telemetry = text
}

func (e *ParkingEnv) Reset(_ *core.EpisodeContext) (core.Observation, error) {
	if !e.fresh {
		e.ctrl.BeginEpisode()
	}
	e.fresh = false
	e.ctrl.Report()
	return core.Observation(e.ctrl.Observe()), nil
}

func (e *ParkingEnv) Step(action core.Action, _ *core.StepContext) (*core.Transition, error) {
	ticked := e.ctrl.Step(agent.CommandFromVector(action))
	if !ticked.Done {
		for _, tag := range e.world.Advance(e.dt) {
			e.ctrl.OnContact(tag)
		}
	}
	res := e.ctrl.Result()
	e.ctrl.Report()

	t := &core.Transition{
		Observation: core.Observation(res.Observation),
		Reward:      ticked.Reward + res.Reward,
		Done:        res.Done,
		Info:        e.telemetry,
	}
	if res.Done {
		t.Outcome = res.Outcome.String()
	}
	return t, nil
}

func (e *ParkingEnv) ObservationSize() int {
	return agent.ObservationSize
}

// Close cancels pending floor flashes.
func (e *ParkingEnv) Close() error {
	e.ctrl.Close()
	return nil
}

func (e *ParkingEnv) Controller() *agent.Controller {
	return e.ctrl
}

func (e *ParkingEnv) World() *sim.World {
	return e.world
}

type ParkingEnvConstructor struct {
	config ParkingEnvConfig
}

var _ core.EnvironmentConstructor = &ParkingEnvConstructor{}

func NewParkingEnvConstructor(c ParkingEnvConfig) *ParkingEnvConstructor {
	return &ParkingEnvConstructor{config: c}
}

func (p *ParkingEnvConstructor) NewEnvironment(instance int) (core.Environment, error) {
	c := p.config
	if c.Logger != nil {
		c.Logger = c.Logger.With(zap.Int("env", instance))
	}
	return NewParkingEnv(c)
}
