package agent

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

type Phase int

const (
	PhaseRunning Phase = iota
	PhaseTerminated
)

func (p Phase) String() string {
	if p == PhaseTerminated {
		return "terminated"
	}
	return "running"
}

// EpisodeState is the bookkeeping of the current episode.
type EpisodeState struct {
	EpisodeID        int
	StepCount        int
	CumulativeReward float64
	Phase            Phase
}

// StepResult is what the policy collaborator sees after one tick.
type StepResult struct {
	Observation Observation
	// Reward is the sum of increments applied since the previous result.
	Reward  float64
	Done    bool
	Outcome Event
	State   EpisodeState
}

type Option func(*Controller)

func WithRenderer(r Renderer) Option {
	return func(c *Controller) { c.renderer = r }
}

func WithTelemetry(t Telemetry) Option {
	return func(c *Controller) { c.telemetry = t }
}

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller owns the episode state machine. It is driven by a single tick
// loop; only the floor feedback reverts run concurrently.
type Controller struct {
	cfg         Config
	physics     Physics
	renderer    Renderer
	telemetry   Telemetry
	scheduler   Scheduler
	logger      *zap.Logger
	interpreter Interpreter
	reward      *RewardModel
	floor       *FeedbackTimer

	carDefault Color
	carFlag    VisualFlag

	state   EpisodeState
	outcome Event
}

// NewController validates cfg, captures the default surface colors and
// begins the first episode.
func NewController(cfg Config, physics Physics, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if physics == nil {
		return nil, fmt.Errorf("%w: physics collaborator is required", ErrInvalidConfig)
	}
	c := &Controller{
		cfg:         cfg,
		physics:     physics,
		scheduler:   WallClock,
		interpreter: NewInterpreter(cfg),
		reward:      NewRewardModel(cfg),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.renderer != nil {
		c.carDefault = c.renderer.Color(SurfaceCar)
	}
	c.carFlag = VisualFlag{Kind: FlagNormal, Color: c.carDefault}
	c.floor = NewFeedbackTimer(SurfaceFloor, c.renderer, cfg.FlashDelay, c.scheduler, c.logger)

	c.BeginEpisode()
	return c, nil
}

// BeginEpisode resets the agent to the spawn pose and starts a new episode.
func (c *Controller) BeginEpisode() {
	c.state = EpisodeState{
		EpisodeID: c.state.EpisodeID + 1,
		Phase:     PhaseRunning,
	}
	c.outcome = EventNone
	c.reward.Reset()

	c.physics.SetVelocity(ObjectAgent, r3.Vec{})
	c.physics.SetAngularVelocity(ObjectAgent, r3.Vec{})

	c.carFlag = VisualFlag{Kind: FlagNormal, Color: c.carDefault}
	if c.renderer != nil {
		c.renderer.SetColor(SurfaceCar, c.carDefault)
	}

	c.physics.SetPose(ObjectAgent, c.physics.Pose(ObjectSpawn))

	c.logger.Debug("episode begin", zap.Int("episode", c.state.EpisodeID))
}

// Step applies one command. A terminated episode is reset first, so no
// tick ever runs against a terminated episode.
func (c *Controller) Step(cmd ActionCommand) StepResult {
	if c.state.Phase == PhaseTerminated {
		c.BeginEpisode()
	}

	pose := c.physics.Pose(ObjectAgent)
	force, turn := c.interpreter.Interpret(pose.Rotation, cmd)
	c.physics.ApplyForce(ObjectAgent, force)
	c.physics.Rotate(ObjectAgent, turn.Axis, turn.Degrees)

	c.reward.Tick()
	c.state.StepCount++
	c.state.CumulativeReward = c.reward.Cumulative()

	if c.cfg.MaxSteps > 0 && c.state.StepCount >= c.cfg.MaxSteps {
		c.Terminate(EventStepLimit, 0)
	}
	return c.Result()
}

// OnContact handles a collision or trigger reported by the physics
// collaborator. Unknown tags and contacts after termination are ignored.
func (c *Controller) OnContact(tag string) {
	if c.state.Phase != PhaseRunning {
		return
	}
	ev, ok := EventForTag(tag)
	if !ok {
		return
	}
	c.Terminate(ev, c.reward.TerminalDelta(ev))
}

// Terminate ends the current episode with reason and applies delta.
func (c *Controller) Terminate(reason Event, delta float64) {
	if c.state.Phase == PhaseTerminated {
		return
	}
	c.reward.Add(delta)
	c.state.CumulativeReward = c.reward.Cumulative()
	c.state.Phase = PhaseTerminated
	c.outcome = reason

	switch reason {
	case EventCollisionWithWall:
		c.carFlag = VisualFlag{Kind: FlagAlert, Color: c.cfg.AlertColor}
		if c.renderer != nil {
			c.renderer.SetColor(SurfaceCar, c.cfg.AlertColor)
		}
		c.floor.Flash(FlagAlert, c.cfg.AlertColor)
	case EventEntryToTargetZone:
		c.floor.Flash(FlagSuccess, c.cfg.SuccessColor)
	}

	c.logger.Info("episode terminated",
		zap.Int("episode", c.state.EpisodeID),
		zap.Int("steps", c.state.StepCount),
		zap.Stringer("outcome", reason),
		zap.Float64("reward", c.state.CumulativeReward),
	)
}

// Result drains the pending reward into a StepResult.
func (c *Controller) Result() StepResult {
	return StepResult{
		Observation: c.Observe(),
		Reward:      c.reward.Drain(),
		Done:        c.state.Phase == PhaseTerminated,
		Outcome:     c.outcome,
		State:       c.state,
	}
}

func (c *Controller) Observe() Observation {
	return Encode(
		c.physics.Pose(ObjectAgent),
		c.physics.Pose(ObjectTarget),
		c.physics.Velocity(ObjectAgent),
	)
}

func (c *Controller) State() EpisodeState {
	return c.state
}

// Outcome is the terminal event of the current episode, EventNone while running.
func (c *Controller) Outcome() Event {
	return c.outcome
}

func (c *Controller) CarFlag() VisualFlag {
	return c.carFlag
}

func (c *Controller) Feedback() *FeedbackTimer {
	return c.floor
}

// Report renders the status line and hands it to the telemetry sink.
func (c *Controller) Report() string {
	text := FormatTelemetry(c.state)
	if c.telemetry != nil {
		c.telemetry.Display(text)
	}
	return text
}

// Close cancels pending feedback and leaves the floor at its default color.
func (c *Controller) Close() {
	c.floor.Stop()
	c.floor.Wait()
}
