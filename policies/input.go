package policies

import (
	"fmt"

	"github.com/zeu5/self-parking/agent"
	"github.com/zeu5/self-parking/core"
	"github.com/zeu5/self-parking/util"
)

// InputPolicy forwards a manual input device: the vertical axis drives,
// the horizontal axis steers. Observations are ignored.
type InputPolicy struct {
	input agent.Input
}

var _ core.Policy = &InputPolicy{}

func NewInputPolicy(input agent.Input) *InputPolicy {
	return &InputPolicy{input: input}
}

func (p *InputPolicy) Reset() {}

// ResetEpisode rewinds inputs that replay a recording.
func (p *InputPolicy) ResetEpisode(_ *core.EpisodeContext) {
	if r, ok := p.input.(interface{ Rewind() }); ok {
		r.Rewind()
	}
}

func (p *InputPolicy) UpdateEpisode(_ *core.EpisodeContext) {}

func (p *InputPolicy) PickAction(_ *core.StepContext, _ core.Observation) core.Action {
	if p.input == nil {
		return agent.ActionCommand{}.Vector()
	}
	return agent.ActionCommand{
		Move: p.input.Axis(agent.AxisVertical),
		Turn: p.input.Axis(agent.AxisHorizontal),
	}.Vector()
}

func (p *InputPolicy) UpdateStep(_ *core.StepContext, _ core.Observation, _ core.Action, _ *core.Transition) {
}

// InputSize is 0: the policy accepts any observation.
func (p *InputPolicy) InputSize() int { return 0 }

type InputPolicyConstructor struct {
	Input agent.Input
}

// NewPolicy hands each policy its own copy of inputs that can be cloned,
// so replays in parallel runs do not share a cursor.
func (c *InputPolicyConstructor) NewPolicy() core.Policy {
	if cl, ok := c.Input.(interface{ Clone() agent.Input }); ok {
		return NewInputPolicy(cl.Clone())
	}
	return NewInputPolicy(c.Input)
}

// ScriptedInput replays a fixed sequence of axis values, one entry per
// read of the vertical axis, and holds the last entry afterwards.
type ScriptedInput struct {
	Commands []agent.ActionCommand
	next     int
	current  agent.ActionCommand
}

// LoadScript reads a JSON array of {"Move": m, "Turn": t} commands.
func LoadScript(path string) (*ScriptedInput, error) {
	var cmds []agent.ActionCommand
	if err := util.ReadJson(path, &cmds); err != nil {
		return nil, fmt.Errorf("input script: %w", err)
	}
	return &ScriptedInput{Commands: cmds}, nil
}

// Clone returns a rewound replay of the same commands.
func (s *ScriptedInput) Clone() agent.Input {
	return &ScriptedInput{Commands: s.Commands}
}

func (s *ScriptedInput) Rewind() {
	s.next = 0
	s.current = agent.ActionCommand{}
}

var _ agent.Input = &ScriptedInput{}

func (s *ScriptedInput) Axis(name string) float64 {
	switch name {
	case agent.AxisVertical:
		if s.next < len(s.Commands) {
			s.current = s.Commands[s.next]
			s.next++
		}
		return s.current.Move
	case agent.AxisHorizontal:
		return s.current.Turn
	}
	return 0
}
