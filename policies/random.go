package policies

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zeu5/self-parking/agent"
	"github.com/zeu5/self-parking/core"
)

// RandomPolicy samples move and turn uniformly from [-1, 1].
type RandomPolicy struct {
	move distuv.Uniform
	turn distuv.Uniform
}

var _ core.Policy = &RandomPolicy{}

func NewRandomPolicy() *RandomPolicy {
	return NewSeededRandomPolicy(uint64(time.Now().UnixNano()))
}

func NewSeededRandomPolicy(seed uint64) *RandomPolicy {
	src := rand.NewSource(seed)
	return &RandomPolicy{
		move: distuv.Uniform{Min: -1, Max: 1, Src: src},
		turn: distuv.Uniform{Min: -1, Max: 1, Src: src},
	}
}

func (r *RandomPolicy) Reset() {}

func (r *RandomPolicy) UpdateEpisode(_ *core.EpisodeContext) {}

func (r *RandomPolicy) PickAction(_ *core.StepContext, _ core.Observation) core.Action {
	return agent.ActionCommand{Move: r.move.Rand(), Turn: r.turn.Rand()}.Vector()
}

func (r *RandomPolicy) UpdateStep(_ *core.StepContext, _ core.Observation, _ core.Action, _ *core.Transition) {
}

func (r *RandomPolicy) ResetEpisode(_ *core.EpisodeContext) {}

func (r *RandomPolicy) InputSize() int { return agent.ObservationSize }

type RandomPolicyConstructor struct{}

func (r *RandomPolicyConstructor) NewPolicy() core.Policy {
	return NewRandomPolicy()
}
