// Package sim is a small planar stand-in for the physics and rendering
// collaborators. The agent is a point mass with linear drag inside a
// rectangular walled arena; the parking spot is a circle on the floor.
package sim

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zeu5/self-parking/agent"
)

type Config struct {
	HalfWidth  float64 // arena extent along X
	HalfDepth  float64 // arena extent along Z
	CarRadius  float64
	SpotRadius float64
	Mass       float64
	Drag       float64

	Spawn  agent.Pose
	Target agent.Pose

	FloorColor agent.Color
	CarColor   agent.Color
}

func DefaultConfig() Config {
	return Config{
		HalfWidth:  20,
		HalfDepth:  20,
		CarRadius:  1,
		SpotRadius: 1.5,
		Mass:       1,
		Drag:       2,
		Spawn:      agent.Pose{Position: r3.Vec{Z: -12}, Rotation: agent.Identity()},
		Target:     agent.Pose{Position: r3.Vec{Z: 12}, Rotation: agent.Identity()},
		FloorColor: agent.Color{R: 0.4, G: 0.4, B: 0.4, A: 1},
		CarColor:   agent.Color{B: 1, A: 1},
	}
}

type body struct {
	pose     agent.Pose
	velocity r3.Vec
	angular  r3.Vec
	force    r3.Vec
}

// World implements agent.Physics and agent.Renderer.
type World struct {
	config Config

	mu      sync.Mutex
	bodies  map[agent.Object]*body
	colors  map[agent.Surface]agent.Color
	walled  bool
	parked  bool
	elapsed float64
}

var (
	_ agent.Physics  = &World{}
	_ agent.Renderer = &World{}
)

func NewWorld(c Config) *World {
	if c.Mass <= 0 {
		c.Mass = 1
	}
	w := &World{
		config: c,
		bodies: map[agent.Object]*body{
			agent.ObjectAgent:  {pose: c.Spawn},
			agent.ObjectSpawn:  {pose: c.Spawn},
			agent.ObjectTarget: {pose: c.Target},
		},
		colors: map[agent.Surface]agent.Color{
			agent.SurfaceFloor: c.FloorColor,
			agent.SurfaceCar:   c.CarColor,
		},
	}
	return w
}

func (w *World) get(o agent.Object) *body {
	b, ok := w.bodies[o]
	if !ok {
		b = &body{pose: agent.Pose{Rotation: agent.Identity()}}
		w.bodies[o] = b
	}
	return b
}

func (w *World) Pose(o agent.Object) agent.Pose {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.get(o).pose
}

func (w *World) Velocity(o agent.Object) r3.Vec {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.get(o).velocity
}

func (w *World) SetVelocity(o agent.Object, v r3.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.get(o).velocity = v
}

func (w *World) SetAngularVelocity(o agent.Object, v r3.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.get(o).angular = v
}

// SetPose teleports o. Teleporting the agent clears the contact state so a
// respawn can report fresh contacts.
func (w *World) SetPose(o agent.Object, p agent.Pose) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.get(o).pose = p
	if o == agent.ObjectAgent {
		w.walled = w.touchesWall(p.Position)
		w.parked = w.insideSpot(p.Position)
	}
}

func (w *World) ApplyForce(o agent.Object, f r3.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.get(o)
	b.force = r3.Add(b.force, f)
}

// Rotate turns o about axis in its own frame.
func (w *World) Rotate(o agent.Object, axis r3.Vec, degrees float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.get(o)
	b.pose.Rotation = quat.Mul(b.pose.Rotation, agent.AxisAngle(axis, degrees))
}

func (w *World) SetColor(s agent.Surface, c agent.Color) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.colors[s] = c
}

func (w *World) Color(s agent.Surface) agent.Color {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.colors[s]
}

// Advance integrates the agent over dt seconds and returns the tags of the
// contacts that started during the step.
func (w *World) Advance(dt float64) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	b := w.get(agent.ObjectAgent)
	accel := r3.Scale(1/w.config.Mass, b.force)
	b.velocity = r3.Add(b.velocity, r3.Scale(dt, accel))
	b.velocity = r3.Scale(math.Max(0, 1-w.config.Drag*dt), b.velocity)
	b.velocity.Y = 0
	b.pose.Position = r3.Add(b.pose.Position, r3.Scale(dt, b.velocity))
	b.force = r3.Vec{}
	w.elapsed += dt

	var contacts []string
	walled := w.touchesWall(b.pose.Position)
	if walled && !w.walled {
		contacts = append(contacts, agent.TagWall)
	}
	w.walled = walled

	parked := w.insideSpot(b.pose.Position)
	if parked && !w.parked {
		contacts = append(contacts, agent.TagParkingSpot)
	}
	w.parked = parked
	return contacts
}

func (w *World) touchesWall(p r3.Vec) bool {
	r := w.config.CarRadius
	return math.Abs(p.X)+r >= w.config.HalfWidth || math.Abs(p.Z)+r >= w.config.HalfDepth
}

func (w *World) insideSpot(p r3.Vec) bool {
	target := w.get(agent.ObjectTarget).pose.Position
	d := r3.Sub(p, target)
	d.Y = 0
	return r3.Norm(d) <= w.config.SpotRadius
}

// Elapsed is the simulated time integrated so far, in seconds.
func (w *World) Elapsed() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.elapsed
}
