package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestInterpretForward(t *testing.T) {
	in := NewInterpreter(DefaultConfig())

	force, turn := in.Interpret(Identity(), ActionCommand{Move: 0.5, Turn: 1})

	assertVecInDelta(t, r3.Vec{Z: 15}, force, 1e-9)
	assert.Equal(t, Up, turn.Axis)
	assert.InDelta(t, 2.0, turn.Degrees, 1e-9)
}

func TestInterpretFollowsOrientation(t *testing.T) {
	in := NewInterpreter(DefaultConfig())

	force, _ := in.Interpret(Yaw(90), ActionCommand{Move: -1})

	assertVecInDelta(t, r3.Vec{X: -30}, force, 1e-9)
}

func TestInterpretDoesNotClamp(t *testing.T) {
	in := NewInterpreter(DefaultConfig())

	force, turn := in.Interpret(Identity(), ActionCommand{Move: 2, Turn: -3})

	assertVecInDelta(t, r3.Vec{Z: 60}, force, 1e-9)
	assert.InDelta(t, -6.0, turn.Degrees, 1e-9)
}

func TestCommandVectorRoundTrip(t *testing.T) {
	cmd := ActionCommand{Move: 0.5, Turn: -1}
	assert.Equal(t, []float64{0.5, -1}, cmd.Vector())
	assert.Equal(t, cmd, CommandFromVector(cmd.Vector()))
	assert.Equal(t, ActionCommand{Move: 0.3}, CommandFromVector([]float64{0.3}))
	assert.Equal(t, ActionCommand{}, CommandFromVector(nil))
}
