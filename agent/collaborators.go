package agent

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Object names a scene object the physics collaborator tracks.
type Object string

const (
	ObjectAgent  Object = "Agent"
	ObjectTarget Object = "Target"
	ObjectSpawn  Object = "Spawn"
)

// Physics is the spatial transform provider and force integrator the agent
// drives. Contacts are reported back through Controller.OnContact.
type Physics interface {
	Pose(Object) Pose
	Velocity(Object) r3.Vec
	SetVelocity(Object, r3.Vec)
	SetAngularVelocity(Object, r3.Vec)
	SetPose(Object, Pose)
	ApplyForce(Object, r3.Vec)
	Rotate(o Object, axis r3.Vec, degrees float64)
}

// Surface names a colored surface of the scene.
type Surface string

const (
	SurfaceFloor Surface = "Floor"
	SurfaceCar   Surface = "Car"
)

type Color struct {
	R, G, B, A float64
}

var (
	Red   = Color{R: 1, A: 1}
	Green = Color{G: 1, A: 1}
	White = Color{R: 1, G: 1, B: 1, A: 1}
)

func (c Color) String() string {
	return fmt.Sprintf("RGBA(%.3f, %.3f, %.3f, %.3f)", c.R, c.G, c.B, c.A)
}

// Renderer paints scene surfaces.
type Renderer interface {
	SetColor(Surface, Color)
	Color(Surface) Color
}

// Telemetry receives the rendered status text once per tick.
type Telemetry interface {
	Display(text string)
}

// Input reads a manual control axis in [-1, 1].
type Input interface {
	Axis(name string) float64
}

const (
	AxisVertical   = "Vertical"
	AxisHorizontal = "Horizontal"
)
