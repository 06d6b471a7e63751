package policies

import (
	"math"

	"github.com/zeu5/self-parking/agent"
	"github.com/zeu5/self-parking/core"
)

// SeekPolicy steers toward the target using only the observation. It turns
// in proportion to the bearing of the target and slows down as it closes in.
type SeekPolicy struct {
	// TurnGain maps bearing (radians) to the turn signal.
	TurnGain float64
	// SlowRadius is the distance under which throttle ramps down.
	SlowRadius float64
	// MaxSpeed is the planar speed above which throttle is cut.
	MaxSpeed float64
}

var _ core.Policy = &SeekPolicy{}

func NewSeekPolicy() *SeekPolicy {
	return &SeekPolicy{
		TurnGain:   2,
		SlowRadius: 6,
		MaxSpeed:   8,
	}
}

func (s *SeekPolicy) Reset() {}

func (s *SeekPolicy) ResetEpisode(_ *core.EpisodeContext) {}

func (s *SeekPolicy) UpdateEpisode(_ *core.EpisodeContext) {}

func (s *SeekPolicy) PickAction(_ *core.StepContext, obs core.Observation) core.Action {
	return s.Command(agent.Observation(obs)).Vector()
}

// Command is the steering decision for a single observation.
func (s *SeekPolicy) Command(obs agent.Observation) agent.ActionCommand {
	if len(obs) != agent.ObservationSize {
		return agent.ActionCommand{}
	}
	local := obs.TargetLocal()
	bearing := math.Atan2(local.X, local.Z)
	dist := math.Hypot(local.X, local.Z)
	vx, vz := obs.Velocity()
	speed := math.Hypot(vx, vz)

	move := math.Cos(bearing)
	if s.SlowRadius > 0 && dist < s.SlowRadius {
		move *= dist / s.SlowRadius
	}
	if s.MaxSpeed > 0 && speed > s.MaxSpeed {
		move = 0
	}
	return agent.ActionCommand{
		Move: clamp(move),
		Turn: clamp(s.TurnGain * bearing),
	}
}

func (s *SeekPolicy) UpdateStep(_ *core.StepContext, _ core.Observation, _ core.Action, _ *core.Transition) {
}

func (s *SeekPolicy) InputSize() int { return agent.ObservationSize }

type SeekPolicyConstructor struct{}

func (SeekPolicyConstructor) NewPolicy() core.Policy {
	return NewSeekPolicy()
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
