package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zeu5/self-parking/agent"
)

func TestAdvanceMovesAlongForce(t *testing.T) {
	w := NewWorld(DefaultConfig())
	start := w.Pose(agent.ObjectAgent).Position

	w.ApplyForce(agent.ObjectAgent, r3.Vec{Z: 30})
	contacts := w.Advance(0.02)

	assert.Empty(t, contacts)
	assert.Greater(t, w.Velocity(agent.ObjectAgent).Z, 0.0)
	assert.Greater(t, w.Pose(agent.ObjectAgent).Position.Z, start.Z)
	assert.InDelta(t, 0.02, w.Elapsed(), 1e-12)
}

func TestAdvanceReportsWallOnce(t *testing.T) {
	w := NewWorld(DefaultConfig())
	w.SetPose(agent.ObjectAgent, agent.Pose{Position: r3.Vec{X: 18.9}, Rotation: agent.Identity()})
	w.SetVelocity(agent.ObjectAgent, r3.Vec{X: 10})

	contacts := w.Advance(0.1)
	require.Equal(t, []string{agent.TagWall}, contacts)

	w.SetVelocity(agent.ObjectAgent, r3.Vec{X: 1})
	assert.Empty(t, w.Advance(0.1))
}

func TestAdvanceReportsParkingSpot(t *testing.T) {
	cfg := DefaultConfig()
	w := NewWorld(cfg)
	w.SetPose(agent.ObjectAgent, agent.Pose{Position: r3.Vec{Z: cfg.Target.Position.Z - 2}, Rotation: agent.Identity()})
	w.SetVelocity(agent.ObjectAgent, r3.Vec{Z: 10})

	contacts := w.Advance(0.1)

	assert.Equal(t, []string{agent.TagParkingSpot}, contacts)
}

func TestRotateTurnsForward(t *testing.T) {
	w := NewWorld(DefaultConfig())

	w.Rotate(agent.ObjectAgent, agent.Up, 90)

	fwd := agent.TransformForward(w.Pose(agent.ObjectAgent).Rotation)
	assert.InDelta(t, 1.0, fwd.X, 1e-9)
	assert.InDelta(t, 0.0, fwd.Z, 1e-9)
}

func TestWorldColors(t *testing.T) {
	cfg := DefaultConfig()
	w := NewWorld(cfg)

	assert.Equal(t, cfg.FloorColor, w.Color(agent.SurfaceFloor))
	w.SetColor(agent.SurfaceFloor, agent.Red)
	assert.Equal(t, agent.Red, w.Color(agent.SurfaceFloor))
}

func TestControllerDrivesIntoSpot(t *testing.T) {
	cfg := DefaultConfig()
	w := NewWorld(cfg)
	ctrl, err := agent.NewController(agent.DefaultConfig(), w, agent.WithRenderer(w))
	require.NoError(t, err)
	defer ctrl.Close()

	var res agent.StepResult
	for i := 0; i < 2000 && !res.Done; i++ {
		res = ctrl.Step(agent.ActionCommand{Move: 1})
		for _, tag := range w.Advance(0.02) {
			ctrl.OnContact(tag)
		}
		res = ctrl.Result()
	}

	require.True(t, res.Done)
	assert.Equal(t, agent.EventEntryToTargetZone, res.Outcome)
	assert.Greater(t, res.State.CumulativeReward, 1.0)
}
