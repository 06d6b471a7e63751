package agent

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ActionCommand is the continuous command of one tick. Both signals are
// expected in [-1, 1]; the range is the policy's contract and is not
// enforced here.
type ActionCommand struct {
	Move float64
	Turn float64
}

// ActionSize is the length of a command in vector form: move, then turn.
const ActionSize = 2

// Vector packs the command as [move, turn].
func (c ActionCommand) Vector() []float64 {
	return []float64{c.Move, c.Turn}
}

// CommandFromVector reads [move, turn]. Missing entries are zero.
func CommandFromVector(v []float64) ActionCommand {
	var c ActionCommand
	if len(v) > 0 {
		c.Move = v[0]
	}
	if len(v) > 1 {
		c.Turn = v[1]
	}
	return c
}

// AngularDelta is a rotation of Degrees about Axis.
type AngularDelta struct {
	Axis    r3.Vec
	Degrees float64
}

// Interpreter maps commands to the force and rotation the physics
// collaborator integrates.
type Interpreter struct {
	moveSpeed float64
	turnSpeed float64
	tick      float64
}

func NewInterpreter(cfg Config) Interpreter {
	return Interpreter{
		moveSpeed: cfg.MoveSpeed,
		turnSpeed: cfg.TurnSpeed,
		tick:      cfg.TickDuration.Seconds(),
	}
}

func (i Interpreter) Interpret(orientation quat.Number, cmd ActionCommand) (r3.Vec, AngularDelta) {
	force := r3.Scale(cmd.Move*i.moveSpeed, TransformForward(orientation))
	return force, AngularDelta{
		Axis:    Up,
		Degrees: cmd.Turn * i.turnSpeed * i.tick,
	}
}
